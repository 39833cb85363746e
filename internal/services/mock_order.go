package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"f1-pass-storefront/internal/middleware"
	"f1-pass-storefront/internal/models"
	"f1-pass-storefront/internal/repositories"
)

const mockOrderMessage = "Reservation request received in mock mode."

// MockOrderService accepts reservations without contacting the backend
type MockOrderService struct {
	log    *repositories.ReservationLogRepository
	delay  time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewMockOrderService creates a new mock order service
func NewMockOrderService(log *repositories.ReservationLogRepository, delay time.Duration, logger *zap.Logger) *MockOrderService {
	return &MockOrderService{
		log:    log,
		delay:  delay,
		logger: logger,
		now:    time.Now,
	}
}

// mockReference builds F1- followed by the last eight digits of the unix-millis clock.
func mockReference(now time.Time) string {
	return fmt.Sprintf("F1-%08d", now.UnixMilli()%100000000)
}

// SubmitReservation logs the payload under the visitor session carried by ctx
// and answers after the simulated delay.
func (s *MockOrderService) SubmitReservation(ctx context.Context, payload *models.ReservationPayload) (*models.ReservationResponse, error) {
	now := s.now()
	reference := mockReference(now)

	err := s.log.Append(ctx, middleware.VisitorID(ctx), repositories.ReservationLogEntry{
		Reference:   reference,
		SubmittedAt: now.UTC(),
		Payload:     *payload,
	})
	if err != nil {
		s.logger.Warn("failed to record mock reservation", zap.Error(err))
	}

	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	s.logger.Info("mock reservation accepted",
		zap.String("reference", reference),
		zap.String("event_id", payload.EventID),
		zap.String("ticket_id", payload.TicketID),
		zap.Int("quantity", payload.Quantity))

	return &models.ReservationResponse{
		Status:               models.StatusSuccess,
		ReservationReference: reference,
		Message:              mockOrderMessage,
	}, nil
}

// NewReservationSubmitter picks the mock or live implementation.
func NewReservationSubmitter(useMock bool, client *OrderClient, log *repositories.ReservationLogRepository, delay time.Duration, logger *zap.Logger) ReservationSubmitter {
	if useMock {
		logger.Info("order service: using mock reservations", zap.Duration("delay", delay))
		return NewMockOrderService(log, delay, logger)
	}
	logger.Info("order service: using live backend", zap.String("base_url", client.config.BaseURL))
	return client
}
