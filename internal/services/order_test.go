package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"f1-pass-storefront/internal/models"
)

func testPayload() *models.ReservationPayload {
	return &models.ReservationPayload{
		EventID:  "101",
		TicketID: "1",
		Quantity: 3,
		AddOns: []models.AddOnSelection{
			{AddOnID: "9", Quantity: 2, OptionID: "91"},
			{AddOnID: "10", Quantity: 1},
		},
		Customer: models.Customer{
			FirstName: "Ada",
			LastName:  "Lovelace",
			Email:     "ada@example.com",
			Phone:     "+441234567",
		},
		TicketHolders: []models.TicketHolder{
			{FirstName: "Grace", LastName: "Hopper", Email: "grace@example.com"},
		},
		PayOffline: true,
	}
}

func newTestOrderClient(t *testing.T, handler http.HandlerFunc) *OrderClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewOrderClient(OrderClientConfig{BaseURL: server.URL}, zap.NewNop())
}

func TestBuildReservationRequest_PadsHolders(t *testing.T) {
	req, err := BuildReservationRequest(testPayload())
	require.NoError(t, err)

	require.Len(t, req.TicketHolders, 3)
	assert.Equal(t, "Grace", req.TicketHolders[0].FirstName)
	for _, holder := range req.TicketHolders[1:] {
		assert.Equal(t, "Ada", holder.FirstName)
		assert.Equal(t, "Lovelace", holder.LastName)
		assert.Equal(t, "ada@example.com", holder.Email)
	}
	for _, holder := range req.TicketHolders {
		assert.Equal(t, json.Number("1"), holder.TicketID)
	}
}

func TestBuildReservationRequest_TruncatesHolders(t *testing.T) {
	payload := testPayload()
	payload.Quantity = 1
	payload.TicketHolders = append(payload.TicketHolders, models.TicketHolder{FirstName: "Extra", LastName: "Person", Email: "x@example.com"})

	req, err := BuildReservationRequest(payload)
	require.NoError(t, err)
	require.Len(t, req.TicketHolders, 1)
	assert.Equal(t, "Grace", req.TicketHolders[0].FirstName)
}

func TestBuildReservationRequest_Body(t *testing.T) {
	payload := testPayload()
	payload.Quantity = 0

	req, err := BuildReservationRequest(payload)
	require.NoError(t, err)
	data, err := json.Marshal(req)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &body))

	assert.Equal(t, 101.0, body["event_id"])
	assert.Equal(t, "Ada", body["order_first_name"])
	assert.Equal(t, "Lovelace", body["order_last_name"])
	assert.Equal(t, "ada@example.com", body["order_email"])
	assert.Equal(t, true, body["pay_offline"])

	tickets := body["tickets"].([]interface{})
	require.Len(t, tickets, 1)
	ticket := tickets[0].(map[string]interface{})
	assert.Equal(t, 1.0, ticket["ticket_id"])
	assert.Equal(t, 1.0, ticket["quantity"])

	addOns := ticket["add_ons"].([]interface{})
	require.Len(t, addOns, 2)
	first := addOns[0].(map[string]interface{})
	assert.Equal(t, 9.0, first["add_on_id"])
	assert.Equal(t, 2.0, first["quantity"])
	assert.Equal(t, 91.0, first["option_id"])
	_, hasOption := addOns[1].(map[string]interface{})["option_id"]
	assert.False(t, hasOption)

	assert.Len(t, body["ticket_holders"], 1)
}

func TestBuildReservationRequest_RejectsNonNumericIDs(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *models.ReservationPayload)
	}{
		{name: "event", mutate: func(p *models.ReservationPayload) { p.EventID = "monaco" }},
		{name: "ticket", mutate: func(p *models.ReservationPayload) { p.TicketID = "" }},
		{name: "add-on", mutate: func(p *models.ReservationPayload) { p.AddOns[1].AddOnID = "parking" }},
		{name: "option", mutate: func(p *models.ReservationPayload) { p.AddOns[0].OptionID = "9.1x" }},
		{name: "negative", mutate: func(p *models.ReservationPayload) { p.TicketID = "-1" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := testPayload()
			tt.mutate(payload)

			_, err := BuildReservationRequest(payload)
			assert.ErrorIs(t, err, ErrInvalidID)
		})
	}
}

func TestOrderClient_SubmitReservation_InvalidIDNotSent(t *testing.T) {
	var called bool
	client := newTestOrderClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusCreated)
	})

	payload := testPayload()
	payload.TicketID = "vip"

	_, err := client.SubmitReservation(context.Background(), payload)
	assert.ErrorIs(t, err, ErrInvalidID)
	assert.False(t, called)
}

func TestOrderClient_SubmitReservation_Success(t *testing.T) {
	client := newTestOrderClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/orders", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		var body reservationRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Len(t, body.TicketHolders, 3)

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{
			"status": "success",
			"message": "Order created",
			"data": {
				"order_reference": "F1-000123",
				"order_url": "https://example.com/order/F1-000123",
				"grand_total": "2750.50",
				"is_payment_received": false,
				"payment_deadline_at": "2026-03-01T12:00:00Z"
			}
		}`))
	})

	resp, err := client.SubmitReservation(context.Background(), testPayload())
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuccess, resp.Status)
	assert.Equal(t, "F1-000123", resp.ReservationReference)
	assert.Equal(t, "Order created", resp.Message)
	require.NotNil(t, resp.OrderURL)
	assert.Equal(t, "https://example.com/order/F1-000123", *resp.OrderURL)
	require.NotNil(t, resp.GrandTotal)
	assert.Equal(t, 2750.5, *resp.GrandTotal)
	require.NotNil(t, resp.Data)
	assert.False(t, resp.Data.IsPaid())
}

func TestOrderClient_SubmitReservation_ValidationError(t *testing.T) {
	client := newTestOrderClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{
			"status": "error",
			"message": "The given data was invalid.",
			"checkout_url": "https://example.com/checkout",
			"errors": {"order_email": ["must be a valid email"], "tickets": []}
		}`))
	})

	_, err := client.SubmitReservation(context.Background(), testPayload())
	var apiErr *OrderAPIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Equal(t, "must be a valid email", apiErr.UserMessage())
	assert.Equal(t, "The given data was invalid.", apiErr.Message)
	assert.Equal(t, "https://example.com/checkout", apiErr.CheckoutURL)
}

func TestOrderClient_SubmitReservation_ErrorBodies(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{name: "message only", status: http.StatusConflict, body: `{"status":"error","message":"Sold out"}`, message: "Sold out"},
		{name: "wrong status field", status: http.StatusBadRequest, body: `{"status":"fail","message":"nope"}`, message: "Order could not be created. Please try again."},
		{name: "missing message", status: http.StatusBadRequest, body: `{"status":"error"}`, message: "Order could not be created. Please try again."},
		{name: "empty body", status: http.StatusInternalServerError, body: ``, message: "Invalid server response"},
		{name: "html body", status: http.StatusBadGateway, body: `<html>bad gateway</html>`, message: "Invalid server response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestOrderClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.SubmitReservation(context.Background(), testPayload())
			var apiErr *OrderAPIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.message, apiErr.UserMessage())
		})
	}
}

func TestOrderClient_SubmitReservation_UnexpectedSuccess(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing data", body: `{"status":"success","message":"ok"}`},
		{name: "missing reference", body: `{"status":"success","message":"ok","data":{}}`},
		{name: "status not success", body: `{"status":"queued","message":"ok","data":{"order_reference":"F1-1"}}`},
		{name: "missing message", body: `{"status":"success","data":{"order_reference":"F1-1"}}`},
		{name: "not json", body: `created`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestOrderClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte(tt.body))
			})

			resp, err := client.SubmitReservation(context.Background(), testPayload())
			assert.Nil(t, resp)
			var apiErr *OrderAPIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, http.StatusOK, apiErr.StatusCode)
			assert.Equal(t, "Order created but response payload was unexpected.", apiErr.Message)
		})
	}
}

func TestOrderClient_SubmitReservation_NotRetried(t *testing.T) {
	calls := 0
	client := newTestOrderClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.SubmitReservation(context.Background(), testPayload())
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestOrderAPIError_UserMessageOrder(t *testing.T) {
	err := &OrderAPIError{
		Message: "Invalid",
		ValidationErrors: map[string][]string{
			"ticket_holders": {"holder email required"},
			"order_email":    {"", "must be a valid email"},
		},
	}
	assert.Equal(t, "must be a valid email", err.UserMessage())
	assert.Equal(t, "order API error: Invalid", err.Error())
}
