package services

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"f1-pass-storefront/internal/models"
)

const (
	msgEmailBusy         = "Another email is already being sent."
	msgInvalidRecipient  = "Choose who should receive the email."
	msgOrderNotLoaded    = "Order details are not loaded yet."
	msgUploadUnavailable = "Receipt upload is not available for this order."
	msgNoReceiptConfirm  = "There is no receipt to confirm."
	msgNoReceiptRemove   = "There is no receipt to remove."
)

// OrderCache keeps the last order shown to a viewer
type OrderCache interface {
	Load(ctx context.Context, reference string) (*models.OrderData, bool)
	Store(ctx context.Context, order *models.OrderData) error
}

// SendGuard allows one in-flight operation per key.
type SendGuard struct {
	mu   sync.Mutex
	busy map[string]bool
}

// NewSendGuard creates an empty guard
func NewSendGuard() *SendGuard {
	return &SendGuard{busy: make(map[string]bool)}
}

// TryAcquire marks key busy and reports whether it was free.
func (g *SendGuard) TryAcquire(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.busy[key] {
		return false
	}
	g.busy[key] = true
	return true
}

// Release frees key.
func (g *SendGuard) Release(key string) {
	g.mu.Lock()
	delete(g.busy, key)
	g.mu.Unlock()
}

// OrderView holds the freshest known state of one order for one viewer.
// Responses that arrive after Close, or after a newer response was applied,
// are discarded.
type OrderView struct {
	reference string
	client    OrderLifecycle
	cache     OrderCache
	emails    *SendGuard
	logger    *zap.Logger
	now       func() time.Time

	mu         sync.RWMutex
	order      *models.OrderData
	generation uint64
	issued     uint64
	applied    uint64
}

// OrderViewOption customises an OrderView
type OrderViewOption func(*OrderView)

// WithSendGuard shares the email guard between views of the same visitor.
func WithSendGuard(guard *SendGuard) OrderViewOption {
	return func(v *OrderView) { v.emails = guard }
}

// WithClock overrides the clock used to evaluate deadlines.
func WithClock(now func() time.Time) OrderViewOption {
	return func(v *OrderView) { v.now = now }
}

// NewOrderView creates a view of reference. cache may be nil.
func NewOrderView(reference string, client OrderLifecycle, cache OrderCache, logger *zap.Logger, opts ...OrderViewOption) *OrderView {
	v := &OrderView{
		reference: strings.TrimSpace(reference),
		client:    client,
		cache:     cache,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.emails == nil {
		v.emails = NewSendGuard()
	}
	return v
}

// Reference returns the viewed order reference.
func (v *OrderView) Reference() string {
	return v.reference
}

// Now returns the view's clock reading.
func (v *OrderView) Now() time.Time {
	return v.now()
}

// Paint fills the view from the cache when the cached order has the same
// reference and nothing fresher has been applied yet.
func (v *OrderView) Paint(ctx context.Context) (*models.OrderData, bool) {
	if v.cache == nil {
		return v.Order()
	}
	cached, ok := v.cache.Load(ctx, v.reference)
	if !ok {
		return v.Order()
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.order == nil {
		v.order = cached
	}
	return v.order, true
}

// Load paints from the cache and then refreshes.
func (v *OrderView) Load(ctx context.Context) (*models.OrderData, bool) {
	v.Paint(ctx)
	return v.Refresh(ctx)
}

// Refresh fetches the order and replaces the view state on success. On
// failure the previous state is kept and returned.
func (v *OrderView) Refresh(ctx context.Context) (*models.OrderData, bool) {
	v.mu.Lock()
	generation := v.generation
	v.issued++
	seq := v.issued
	v.mu.Unlock()

	order, found := v.client.FetchOrderByReference(ctx, v.reference)

	v.mu.Lock()
	stale := generation != v.generation || seq < v.applied
	if found && !stale {
		v.order = order
		v.applied = seq
	}
	current := v.order
	v.mu.Unlock()

	if stale {
		v.logger.Debug("discarding stale order response", zap.String("reference", v.reference))
	} else if found && v.cache != nil {
		if err := v.cache.Store(ctx, order); err != nil {
			v.logger.Warn("failed to cache order", zap.String("reference", v.reference), zap.Error(err))
		}
	}
	return current, current != nil
}

// Order returns the current state.
func (v *OrderView) Order() (*models.OrderData, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.order, v.order != nil
}

// Close discards every response still in flight.
func (v *OrderView) Close() {
	v.mu.Lock()
	v.generation++
	v.mu.Unlock()
}

// UploadReceipt forwards a receipt when the order still accepts one.
func (v *OrderView) UploadReceipt(ctx context.Context, filename string, file io.Reader) models.MutationResult {
	order, ok := v.Order()
	if !ok {
		return models.MutationFailure(msgOrderNotLoaded)
	}
	if !order.CanUploadReceipt(v.now()) {
		return models.MutationFailure(msgUploadUnavailable)
	}
	return v.afterMutation(ctx, v.client.UploadReceipt(ctx, v.reference, filename, file))
}

// ConfirmReceipt confirms the pending receipt.
func (v *OrderView) ConfirmReceipt(ctx context.Context) models.MutationResult {
	order, ok := v.Order()
	if !ok {
		return models.MutationFailure(msgOrderNotLoaded)
	}
	if !order.ShowConfirmStep(v.now()) {
		return models.MutationFailure(msgNoReceiptConfirm)
	}
	return v.afterMutation(ctx, v.client.ConfirmReceipt(ctx, v.reference))
}

// RemoveReceipt deletes the pending receipt.
func (v *OrderView) RemoveReceipt(ctx context.Context) models.MutationResult {
	order, ok := v.Order()
	if !ok {
		return models.MutationFailure(msgOrderNotLoaded)
	}
	if !order.CanRemoveReceipt(v.now()) {
		return models.MutationFailure(msgNoReceiptRemove)
	}
	return v.afterMutation(ctx, v.client.RemoveReceipt(ctx, v.reference))
}

// SendPaymentInstructionsEmail sends the instructions email. Only one send
// per reference runs at a time on the same guard.
func (v *OrderView) SendPaymentInstructionsEmail(ctx context.Context, sendTo models.SendTo) models.MutationResult {
	if !sendTo.Valid() {
		return models.MutationFailure(msgInvalidRecipient)
	}

	key := strings.ToLower(v.reference)
	if !v.emails.TryAcquire(key) {
		return models.MutationFailure(msgEmailBusy)
	}
	defer v.emails.Release(key)

	return v.afterMutation(ctx, v.client.SendPaymentInstructionsEmail(ctx, v.reference, sendTo))
}

func (v *OrderView) afterMutation(ctx context.Context, result models.MutationResult) models.MutationResult {
	if result.OK() {
		v.Refresh(ctx)
	}
	return result
}
