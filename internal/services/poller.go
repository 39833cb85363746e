package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"f1-pass-storefront/internal/models"
)

// DefaultPollInterval is how often an unpaid order is re-fetched
const DefaultPollInterval = 5 * time.Second

// PaymentPoller re-fetches an unpaid order until the backend reports payment
type PaymentPoller struct {
	view     *OrderView
	interval time.Duration
	logger   *zap.Logger
}

// NewPaymentPoller creates a poller over view
func NewPaymentPoller(view *OrderView, interval time.Duration, logger *zap.Logger) *PaymentPoller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &PaymentPoller{view: view, interval: interval, logger: logger}
}

// Watch calls onUpdate with the current order and again after every poll.
// It returns nil once the order is paid, ctx.Err() when cancelled and
// models.ErrOrderNotFound when no order could be loaded at all.
func (p *PaymentPoller) Watch(ctx context.Context, onUpdate func(*models.OrderData)) error {
	order, ok := p.view.Order()
	if !ok {
		order, ok = p.view.Load(ctx)
		if !ok {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return models.ErrOrderNotFound
		}
	}
	onUpdate(order)
	if order.IsPaid() {
		return nil
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		order, ok := p.view.Refresh(ctx)
		if !ok {
			continue
		}
		onUpdate(order)
		if order.IsPaid() {
			p.logger.Info("payment received", zap.String("reference", p.view.Reference()))
			return nil
		}
	}
}
