package services

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"f1-pass-storefront/internal/models"
)

// fakeOrderBackend serves the /orders endpoints for a single order.
type fakeOrderBackend struct {
	server *httptest.Server

	mu            sync.Mutex
	reference     string
	deadline      string
	paid          bool
	receipt       *models.Receipt
	fetches       int
	paidAfter     int
	rejectUploads bool
	uploads       []string
	emailsTo      []string
	emailGate     chan struct{}
	emailStarted  chan struct{}
}

func newFakeOrderBackend(t *testing.T, reference string) *fakeOrderBackend {
	t.Helper()
	b := &fakeOrderBackend{reference: reference, deadline: "2099-01-01T00:00:00Z"}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /orders/{ref}", b.getOrder)
	mux.HandleFunc("POST /orders/{ref}/receipt", b.uploadReceipt)
	mux.HandleFunc("DELETE /orders/{ref}/receipt", b.removeReceipt)
	mux.HandleFunc("POST /orders/{ref}/receipt/confirm", b.confirmReceipt)
	mux.HandleFunc("POST /orders/{ref}/payment-instructions/email", b.sendEmail)

	b.server = httptest.NewServer(mux)
	t.Cleanup(b.server.Close)
	return b
}

func (b *fakeOrderBackend) client() *OrderClient {
	return NewOrderClient(OrderClientConfig{BaseURL: b.server.URL}, zap.NewNop())
}

func (b *fakeOrderBackend) now() time.Time {
	return time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
}

func (b *fakeOrderBackend) uploadsSeen() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.uploads...)
}

func (b *fakeOrderBackend) emailsSeen() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.emailsTo...)
}

func (b *fakeOrderBackend) fetchCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fetches
}

func (b *fakeOrderBackend) known(r *http.Request) bool {
	return strings.EqualFold(r.PathValue("ref"), b.reference)
}

func (b *fakeOrderBackend) getOrder(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.known(r) {
		writeJSON(w, http.StatusNotFound, map[string]string{"status": "error", "message": "Order not found"})
		return
	}

	b.fetches++
	if b.paidAfter > 0 && b.fetches >= b.paidAfter {
		b.paid = true
	}

	total := 500.0
	deadline := b.deadline
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": models.OrderData{
			OrderReference:    b.reference,
			GrandTotal:        &total,
			IsPaymentReceived: b.paid,
			PaymentDeadlineAt: &deadline,
			Receipt:           b.receipt,
		},
	})
}

func (b *fakeOrderBackend) uploadReceipt(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("receipt")
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"status": "error", "message": "The receipt field is required."})
		return
	}
	defer file.Close()
	data, _ := io.ReadAll(file)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.rejectUploads {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"status": "error", "message": "File type not allowed."})
		return
	}
	b.uploads = append(b.uploads, string(data))
	b.receipt = &models.Receipt{Filename: header.Filename}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (b *fakeOrderBackend) confirmReceipt(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.receipt == nil {
		writeJSON(w, http.StatusConflict, map[string]string{"status": "error"})
		return
	}
	b.receipt.Confirmed = true
	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "message": "Thanks, we will check your transfer."})
}

func (b *fakeOrderBackend) removeReceipt(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.receipt = nil
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (b *fakeOrderBackend) sendEmail(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SendTo string `json:"send_to"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	b.mu.Lock()
	gate, started := b.emailGate, b.emailStarted
	b.mu.Unlock()
	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		<-gate
	}

	b.mu.Lock()
	b.emailsTo = append(b.emailsTo, body.SendTo)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
