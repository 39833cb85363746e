package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"f1-pass-storefront/internal/logger"
	"f1-pass-storefront/internal/middleware"
	"f1-pass-storefront/internal/models"
	"f1-pass-storefront/internal/services"
)

const (
	msgMissingReference = "Missing order reference"
	msgOrderNotFound    = "Order not found"
	msgChooseReceipt    = "Choose a receipt file to upload."
	msgReceiptType      = "Upload a JPG, PNG or PDF receipt."
	msgReceiptCorrupt   = "The receipt file could not be read."
	msgStreamingFailed  = "Streaming is not supported"
)

// multipart framing allowed on top of the receipt itself
const multipartOverhead = 1 << 20

// OrderHandlerConfig holds the collaborators of the order endpoints
type OrderHandlerConfig struct {
	Lifecycle    services.OrderLifecycle
	Downloads    Downloads
	Caches       OrderCacheFactory // may be nil
	Emails       *services.SendGuard
	Receipts     *services.ReceiptValidator
	Archiver     *services.ReceiptArchiver // may be nil
	PollInterval time.Duration
}

// OrderHandler serves the order view: status, receipt lifecycle, payment
// instructions and the payment status stream
type OrderHandler struct {
	config OrderHandlerConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(config OrderHandlerConfig, logger *zap.Logger) *OrderHandler {
	if config.Emails == nil {
		config.Emails = services.NewSendGuard()
	}
	if config.Receipts == nil {
		config.Receipts = services.NewReceiptValidator(0)
	}
	return &OrderHandler{config: config, logger: logger, now: time.Now}
}

// OrderResponse is an order with the flags derived from it
type OrderResponse struct {
	Order *models.OrderData `json:"order"`
	Flags models.OrderFlags `json:"flags"`
}

// MutationResponse is the outcome of a lifecycle action and the order state after it
type MutationResponse struct {
	Status  string             `json:"status"`
	Message string             `json:"message"`
	Order   *models.OrderData  `json:"order,omitempty"`
	Flags   *models.OrderFlags `json:"flags,omitempty"`
}

type emailRequest struct {
	SendTo string `json:"send_to"`
}

// view builds an order view for the request. It writes the error response
// and returns nil when the reference is missing.
func (h *OrderHandler) view(w http.ResponseWriter, r *http.Request) *services.OrderView {
	reference := strings.TrimSpace(chi.URLParam(r, "reference"))
	if reference == "" {
		writeError(w, http.StatusBadRequest, msgMissingReference)
		return nil
	}

	var cache services.OrderCache
	if visitor := middleware.VisitorID(r.Context()); visitor != "" && h.config.Caches != nil {
		cache = h.config.Caches(visitor)
	}

	return services.NewOrderView(reference, h.config.Lifecycle, cache,
		logger.FromContext(r.Context(), h.logger),
		services.WithSendGuard(h.config.Emails),
		services.WithClock(h.now),
	)
}

// loaded builds the view and fetches the order, writing 404 when it cannot
// be found.
func (h *OrderHandler) loaded(w http.ResponseWriter, r *http.Request) (*services.OrderView, *models.OrderData) {
	view := h.view(w, r)
	if view == nil {
		return nil, nil
	}
	order, ok := view.Load(r.Context())
	if !ok {
		writeError(w, http.StatusNotFound, msgOrderNotFound)
		return nil, nil
	}
	return view, order
}

// Get returns the order with its derived flags
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, order := h.loaded(w, r)
	if view == nil {
		return
	}
	writeJSON(w, http.StatusOK, OrderResponse{Order: order, Flags: order.Flags(view.Now())})
}

// UploadReceipt validates the uploaded receipt, forwards it and archives a copy
func (h *OrderHandler) UploadReceipt(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context(), h.logger)

	r.Body = http.MaxBytesReader(w, r.Body, h.config.Receipts.MaxBytes()+multipartOverhead)
	upload, header, err := r.FormFile("receipt")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, h.tooLargeMessage())
			return
		}
		writeError(w, http.StatusBadRequest, msgChooseReceipt)
		return
	}
	defer upload.Close()

	receipt, err := h.config.Receipts.Validate(upload, header.Filename)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrReceiptEmpty):
		writeError(w, http.StatusBadRequest, msgChooseReceipt)
		return
	case errors.Is(err, services.ErrReceiptTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, h.tooLargeMessage())
		return
	case errors.Is(err, services.ErrReceiptType):
		writeError(w, http.StatusUnsupportedMediaType, msgReceiptType)
		return
	case errors.Is(err, services.ErrReceiptCorrupt):
		writeError(w, http.StatusBadRequest, msgReceiptCorrupt)
		return
	default:
		log.Error("failed to read receipt upload", zap.Error(err))
		writeError(w, http.StatusBadRequest, msgReceiptCorrupt)
		return
	}

	view, _ := h.loaded(w, r)
	if view == nil {
		return
	}

	result := view.UploadReceipt(r.Context(), receipt.Filename, receipt.Reader())
	if result.OK() {
		h.config.Archiver.Archive(r.Context(), view.Reference(), receipt)
	}
	h.writeMutation(w, view, result)
}

// ConfirmReceipt confirms the pending receipt
func (h *OrderHandler) ConfirmReceipt(w http.ResponseWriter, r *http.Request) {
	view, _ := h.loaded(w, r)
	if view == nil {
		return
	}
	h.writeMutation(w, view, view.ConfirmReceipt(r.Context()))
}

// RemoveReceipt deletes the pending receipt
func (h *OrderHandler) RemoveReceipt(w http.ResponseWriter, r *http.Request) {
	view, _ := h.loaded(w, r)
	if view == nil {
		return
	}
	h.writeMutation(w, view, view.RemoveReceipt(r.Context()))
}

// SendPaymentInstructions emails the payment instructions to the buyer or
// the ticket holders
func (h *OrderHandler) SendPaymentInstructions(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	view := h.view(w, r)
	if view == nil {
		return
	}
	h.writeMutation(w, view, view.SendPaymentInstructionsEmail(r.Context(), models.SendTo(strings.TrimSpace(req.SendTo))))
}

// PaymentInstructions proxies the payment instructions PDF as a download
func (h *OrderHandler) PaymentInstructions(w http.ResponseWriter, r *http.Request) {
	reference := strings.TrimSpace(chi.URLParam(r, "reference"))
	if reference == "" {
		writeError(w, http.StatusBadRequest, msgMissingReference)
		return
	}

	download, err := h.config.Downloads.FetchPaymentInstructions(r.Context(), reference)
	if err != nil {
		writeProxyError(w, r, h.logger, err, "payment instructions")
		return
	}
	writeDownload(w, download)
}

// Events streams the order as server-sent events until payment is received
// or the client goes away.
func (h *OrderHandler) Events(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context(), h.logger)

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, msgStreamingFailed)
		return
	}

	view := h.view(w, r)
	if view == nil {
		return
	}
	defer view.Close()

	started := false
	poller := services.NewPaymentPoller(view, h.config.PollInterval, log)
	err := poller.Watch(r.Context(), func(order *models.OrderData) {
		if !started {
			w.Header().Set("Content-Type", "text/event-stream")
			w.Header().Set("Cache-Control", "no-cache")
			w.Header().Set("Connection", "keep-alive")
			w.WriteHeader(http.StatusOK)
			started = true
		}
		if err := writeEvent(w, "order", OrderResponse{Order: order, Flags: order.Flags(view.Now())}); err != nil {
			log.Debug("failed to write order event", zap.Error(err))
			return
		}
		flusher.Flush()
	})

	switch {
	case errors.Is(err, models.ErrOrderNotFound) && !started:
		writeError(w, http.StatusNotFound, msgOrderNotFound)
	case err == nil:
		_ = writeEvent(w, "paid", map[string]string{"reference": view.Reference()})
		flusher.Flush()
	}
}

func writeEvent(w http.ResponseWriter, event string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
	return err
}

func (h *OrderHandler) writeMutation(w http.ResponseWriter, view *services.OrderView, result models.MutationResult) {
	resp := MutationResponse{Status: result.Status, Message: result.Message}
	if order, ok := view.Order(); ok {
		flags := order.Flags(view.Now())
		resp.Order = order
		resp.Flags = &flags
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *OrderHandler) tooLargeMessage() string {
	limit := h.config.Receipts.MaxBytes()
	if limit < 1<<20 {
		return fmt.Sprintf("Receipt must be %d KB or smaller.", limit>>10)
	}
	return fmt.Sprintf("Receipt must be %d MB or smaller.", limit>>20)
}
