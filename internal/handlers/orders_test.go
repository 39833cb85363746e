package handlers

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"f1-pass-storefront/internal/models"
	"f1-pass-storefront/internal/services"
)

const testReference = "F1-000123"

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func orderRouter(h *OrderHandler) http.Handler {
	r := chi.NewRouter()
	r.Route("/api/orders/{reference}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Get("/events", h.Events)
		r.Get("/payment-instructions", h.PaymentInstructions)
		r.Post("/receipt", h.UploadReceipt)
		r.Post("/receipt/confirm", h.ConfirmReceipt)
		r.Delete("/receipt", h.RemoveReceipt)
		r.Post("/payment-instructions/email", h.SendPaymentInstructions)
	})
	return r
}

func newOrderHandler(config OrderHandlerConfig) *OrderHandler {
	h := NewOrderHandler(config, zap.NewNop())
	h.now = func() time.Time { return testNow }
	return h
}

func unpaidOrder() *models.OrderData {
	deadline := "2026-03-08T12:00:00Z"
	total := 540.0
	return &models.OrderData{
		OrderReference:    testReference,
		GrandTotal:        &total,
		PaymentDeadlineAt: &deadline,
		Currency:          &models.Currency{Code: "EUR", Symbol: "€"},
	}
}

func pendingReceiptOrder() *models.OrderData {
	order := unpaidOrder()
	order.Receipt = &models.Receipt{Filename: "receipt.png"}
	return order
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func multipartRequest(t *testing.T, target, field, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if field != "" {
		part, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	} else {
		require.NoError(t, mw.WriteField("note", "no file"))
	}
	require.NoError(t, mw.Close())

	req := newRequest("POST", target, body.String())
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestOrderHandler_Get(t *testing.T) {
	lifecycle := &mockLifecycle{}
	lifecycle.On("FetchOrderByReference", mock.Anything, testReference).Return(unpaidOrder(), true)
	lifecycle.On("FetchOrderByReference", mock.Anything, "F1-404").Return(nil, false)
	router := orderRouter(newOrderHandler(OrderHandlerConfig{Lifecycle: lifecycle}))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, newRequest("GET", "/api/orders/"+testReference+"/", ""))
	require.Equal(t, http.StatusOK, rr.Code)

	var body OrderResponse
	decodeBody(t, rr, &body)
	assert.Equal(t, testReference, body.Order.OrderReference)
	assert.Equal(t, models.OrderFlags{State: models.OrderAwaitingPayment, CanUploadReceipt: true}, body.Flags)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, newRequest("GET", "/api/orders/F1-404/", ""))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Order not found", errorMessage(t, rr))
}

func TestOrderHandler_UploadReceipt(t *testing.T) {
	dir := t.TempDir()
	store, err := services.NewLocalArchiveStore(dir)
	require.NoError(t, err)

	lifecycle := &mockLifecycle{}
	lifecycle.On("FetchOrderByReference", mock.Anything, testReference).Return(unpaidOrder(), true).Once()
	lifecycle.On("FetchOrderByReference", mock.Anything, testReference).Return(pendingReceiptOrder(), true).Once()
	lifecycle.On("UploadReceipt", mock.Anything, testReference, "bank-transfer.png", mock.Anything).
		Return(models.MutationSuccess("Receipt uploaded.")).Once()

	h := newOrderHandler(OrderHandlerConfig{
		Lifecycle: lifecycle,
		Archiver:  services.NewReceiptArchiver(store, zap.NewNop()),
	})

	rr := httptest.NewRecorder()
	orderRouter(h).ServeHTTP(rr, multipartRequest(t, "/api/orders/"+testReference+"/receipt", "receipt", "bank-transfer.png", pngBytes(t)))
	require.Equal(t, http.StatusOK, rr.Code)

	var body MutationResponse
	decodeBody(t, rr, &body)
	assert.Equal(t, models.StatusSuccess, body.Status)
	assert.Equal(t, "Receipt uploaded.", body.Message)
	require.NotNil(t, body.Flags)
	assert.True(t, body.Flags.ShowConfirmStep)
	lifecycle.AssertExpectations(t)

	archived, err := filepath.Glob(filepath.Join(dir, "receipts", testReference, "*", "*.png"))
	require.NoError(t, err)
	assert.Len(t, archived, 1)
}

func TestOrderHandler_UploadReceipt_Rejected(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		filename string
		content  []byte
		status   int
		message  string
	}{
		{name: "no file", status: http.StatusBadRequest, message: "Choose a receipt file to upload."},
		{name: "empty file", field: "receipt", filename: "r.png", content: []byte{}, status: http.StatusBadRequest, message: "Choose a receipt file to upload."},
		{name: "wrong type", field: "receipt", filename: "r.png", content: []byte("just some text"), status: http.StatusUnsupportedMediaType, message: "Upload a JPG, PNG or PDF receipt."},
		{name: "too large", field: "receipt", filename: "r.pdf", content: bytes.Repeat([]byte("a"), 4096), status: http.StatusRequestEntityTooLarge, message: "Receipt must be 2 KB or smaller."},
		{name: "broken image", field: "receipt", filename: "r.png", content: []byte("\x89PNG\r\n\x1a\n garbage"), status: http.StatusBadRequest, message: "The receipt file could not be read."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lifecycle := &mockLifecycle{}
			h := newOrderHandler(OrderHandlerConfig{
				Lifecycle: lifecycle,
				Receipts:  services.NewReceiptValidator(2048),
			})

			rr := httptest.NewRecorder()
			orderRouter(h).ServeHTTP(rr, multipartRequest(t, "/api/orders/"+testReference+"/receipt", tt.field, tt.filename, tt.content))

			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, tt.message, errorMessage(t, rr))
			lifecycle.AssertNotCalled(t, "UploadReceipt", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestOrderHandler_ConfirmReceipt(t *testing.T) {
	confirmed := pendingReceiptOrder()
	confirmed.Receipt.Confirmed = true

	lifecycle := &mockLifecycle{}
	lifecycle.On("FetchOrderByReference", mock.Anything, testReference).Return(pendingReceiptOrder(), true).Once()
	lifecycle.On("FetchOrderByReference", mock.Anything, testReference).Return(confirmed, true).Once()
	lifecycle.On("ConfirmReceipt", mock.Anything, testReference).Return(models.MutationSuccess("Receipt confirmed.")).Once()

	rr := httptest.NewRecorder()
	orderRouter(newOrderHandler(OrderHandlerConfig{Lifecycle: lifecycle})).
		ServeHTTP(rr, newRequest("POST", "/api/orders/"+testReference+"/receipt/confirm", ""))
	require.Equal(t, http.StatusOK, rr.Code)

	var body MutationResponse
	decodeBody(t, rr, &body)
	assert.Equal(t, "Receipt confirmed.", body.Message)
	require.NotNil(t, body.Flags)
	assert.Equal(t, models.OrderReceiptConfirmed, body.Flags.State)
	assert.False(t, body.Flags.CanUploadReceipt)
	lifecycle.AssertExpectations(t)
}

func TestOrderHandler_RemoveReceipt(t *testing.T) {
	t.Run("pending receipt", func(t *testing.T) {
		lifecycle := &mockLifecycle{}
		lifecycle.On("FetchOrderByReference", mock.Anything, testReference).Return(pendingReceiptOrder(), true).Once()
		lifecycle.On("FetchOrderByReference", mock.Anything, testReference).Return(unpaidOrder(), true).Once()
		lifecycle.On("RemoveReceipt", mock.Anything, testReference).Return(models.MutationSuccess("Receipt removed.")).Once()

		rr := httptest.NewRecorder()
		orderRouter(newOrderHandler(OrderHandlerConfig{Lifecycle: lifecycle})).
			ServeHTTP(rr, newRequest("DELETE", "/api/orders/"+testReference+"/receipt", ""))

		var body MutationResponse
		decodeBody(t, rr, &body)
		assert.Equal(t, models.StatusSuccess, body.Status)
		assert.Equal(t, models.OrderAwaitingPayment, body.Flags.State)
		lifecycle.AssertExpectations(t)
	})

	t.Run("nothing to remove", func(t *testing.T) {
		lifecycle := &mockLifecycle{}
		lifecycle.On("FetchOrderByReference", mock.Anything, testReference).Return(unpaidOrder(), true)

		rr := httptest.NewRecorder()
		orderRouter(newOrderHandler(OrderHandlerConfig{Lifecycle: lifecycle})).
			ServeHTTP(rr, newRequest("DELETE", "/api/orders/"+testReference+"/receipt", ""))

		require.Equal(t, http.StatusOK, rr.Code)
		var body MutationResponse
		decodeBody(t, rr, &body)
		assert.Equal(t, models.StatusError, body.Status)
		assert.Equal(t, "There is no receipt to remove.", body.Message)
		lifecycle.AssertNotCalled(t, "RemoveReceipt", mock.Anything, mock.Anything)
	})
}

func TestOrderHandler_SendPaymentInstructions(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		status  string
		message string
		sends   bool
	}{
		{name: "attendees", body: `{"send_to":"attendees"}`, status: models.StatusSuccess, message: "Email sent.", sends: true},
		{name: "unknown recipient", body: `{"send_to":"everyone"}`, status: models.StatusError, message: "Choose who should receive the email."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lifecycle := &mockLifecycle{}
			lifecycle.On("SendPaymentInstructionsEmail", mock.Anything, testReference, models.SendToAttendees).
				Return(models.MutationSuccess("Email sent.")).Maybe()
			lifecycle.On("FetchOrderByReference", mock.Anything, testReference).Return(unpaidOrder(), true).Maybe()

			rr := httptest.NewRecorder()
			orderRouter(newOrderHandler(OrderHandlerConfig{Lifecycle: lifecycle})).
				ServeHTTP(rr, newRequest("POST", "/api/orders/"+testReference+"/payment-instructions/email", tt.body))

			require.Equal(t, http.StatusOK, rr.Code)
			var body MutationResponse
			decodeBody(t, rr, &body)
			assert.Equal(t, tt.status, body.Status)
			assert.Equal(t, tt.message, body.Message)
			if tt.sends {
				lifecycle.AssertNumberOfCalls(t, "SendPaymentInstructionsEmail", 1)
				assert.NotNil(t, body.Order)
			} else {
				lifecycle.AssertNotCalled(t, "SendPaymentInstructionsEmail", mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestOrderHandler_SendPaymentInstructions_Busy(t *testing.T) {
	guard := services.NewSendGuard()
	require.True(t, guard.TryAcquire(strings.ToLower(testReference)))

	lifecycle := &mockLifecycle{}
	rr := httptest.NewRecorder()
	orderRouter(newOrderHandler(OrderHandlerConfig{Lifecycle: lifecycle, Emails: guard})).
		ServeHTTP(rr, newRequest("POST", "/api/orders/"+testReference+"/payment-instructions/email", `{"send_to":"me"}`))

	var body MutationResponse
	decodeBody(t, rr, &body)
	assert.Equal(t, "Another email is already being sent.", body.Message)
	lifecycle.AssertNotCalled(t, "SendPaymentInstructionsEmail", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderHandler_PaymentInstructions(t *testing.T) {
	downloads := &mockDownloads{}
	downloads.On("FetchPaymentInstructions", mock.Anything, testReference).Return(&services.Download{
		Body:        []byte("%PDF-1.4\n"),
		ContentType: "application/pdf",
		Filename:    "payment-instructions-" + testReference + ".pdf",
	}, nil)
	downloads.On("FetchPaymentInstructions", mock.Anything, "F1-404").
		Return(nil, &services.HTTPStatusError{Operation: "Payment instructions", StatusCode: 404})
	downloads.On("FetchPaymentInstructions", mock.Anything, "F1-down").Return(nil, errors.New("connection reset"))
	router := orderRouter(newOrderHandler(OrderHandlerConfig{Downloads: downloads}))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, newRequest("GET", "/api/orders/"+testReference+"/payment-instructions", ""))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="payment-instructions-F1-000123.pdf"`, rr.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.4\n", rr.Body.String())

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, newRequest("GET", "/api/orders/F1-404/payment-instructions", ""))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Could not load payment instructions", errorMessage(t, rr))

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, newRequest("GET", "/api/orders/F1-down/payment-instructions", ""))
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Equal(t, "Failed to fetch payment instructions", errorMessage(t, rr))
}

func TestOrderHandler_EventsStreamsUntilPaid(t *testing.T) {
	paid := unpaidOrder()
	paid.IsPaymentReceived = true

	lifecycle := &mockLifecycle{}
	lifecycle.On("FetchOrderByReference", mock.Anything, testReference).Return(unpaidOrder(), true).Times(2)
	lifecycle.On("FetchOrderByReference", mock.Anything, testReference).Return(paid, true).Once()

	h := newOrderHandler(OrderHandlerConfig{Lifecycle: lifecycle, PollInterval: 5 * time.Millisecond})
	rr := httptest.NewRecorder()
	orderRouter(h).ServeHTTP(rr, newRequest("GET", "/api/orders/"+testReference+"/events", ""))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/event-stream", rr.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rr.Header().Get("Cache-Control"))

	stream := rr.Body.String()
	assert.Equal(t, 3, strings.Count(stream, "event: order\n"))
	assert.Contains(t, stream, `"isPaid":true`)
	assert.True(t, strings.HasSuffix(stream, "event: paid\ndata: {\"reference\":\"F1-000123\"}\n\n"), stream)
	lifecycle.AssertExpectations(t)
}

func TestOrderHandler_EventsNotFound(t *testing.T) {
	lifecycle := &mockLifecycle{}
	lifecycle.On("FetchOrderByReference", mock.Anything, testReference).Return(nil, false)

	rr := httptest.NewRecorder()
	orderRouter(newOrderHandler(OrderHandlerConfig{Lifecycle: lifecycle})).
		ServeHTTP(rr, newRequest("GET", "/api/orders/"+testReference+"/events", ""))

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Order not found", errorMessage(t, rr))
}
