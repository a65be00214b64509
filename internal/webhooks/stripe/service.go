package stripewebhook

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v84"

	"github.com/ashu640/ecommerce-backend/internal/checkout"
	"github.com/ashu640/ecommerce-backend/pkg/db/models"
	pkgerrors "github.com/ashu640/ecommerce-backend/pkg/errors"
	"github.com/ashu640/ecommerce-backend/pkg/logger"
)

const eventOutcomeConfirmed = "confirmed"
const eventOutcomeDuplicate = "duplicate"
const eventOutcomeIgnored = "ignored"
const eventOutcomeStale = "stale"
const eventOutcomeFailed = "failed"

type paymentConfirmer interface {
	ConfirmPayment(ctx context.Context, sessionID, path string) (*models.Order, error)
}

type eventGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

type webhookMetrics interface {
	IncWebhookEvent(outcome string)
}

type ServiceParams struct {
	Checkout paymentConfirmer
	Guard    eventGuard
	Metrics  webhookMetrics
	Logger   *logger.Logger
}

// Service turns provider webhook events into order confirmations. Only the
// session-completed event carries an order; every other event type is
// acknowledged without side effects so the provider stops retrying.
type Service struct {
	checkout paymentConfirmer
	guard    eventGuard
	metrics  webhookMetrics
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Checkout == nil {
		return nil, fmt.Errorf("checkout service required")
	}
	if params.Guard == nil {
		return nil, fmt.Errorf("event guard required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{
		checkout: params.Checkout,
		guard:    params.Guard,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	if event.Type != stripe.EventTypeCheckoutSessionCompleted {
		s.count(eventOutcomeIgnored)
		return nil
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		s.count(eventOutcomeFailed)
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session event")
	}
	if session.ID == "" {
		s.count(eventOutcomeFailed)
		return pkgerrors.New(pkgerrors.CodeValidation, "checkout session id missing")
	}

	seen, err := s.guard.CheckAndMark(ctx, string(event.ID))
	if err != nil {
		s.count(eventOutcomeFailed)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check event guard")
	}
	if seen {
		s.count(eventOutcomeDuplicate)
		return nil
	}

	order, err := s.checkout.ConfirmPayment(ctx, session.ID, checkout.ConfirmPathWebhook)
	if err != nil {
		// An empty cart here means the buyer's cart was already consumed,
		// usually by the client-side verify racing ahead. Acknowledging the
		// event is correct; retrying it can never succeed.
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeValidation {
			s.count(eventOutcomeStale)
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"event_id":   event.ID,
				"session_id": session.ID,
				"reason":     typed.Message(),
			})
			s.logg.Warn(logCtx, "webhook event had nothing left to confirm")
			return nil
		}
		// Unmark so the provider's retry gets another attempt.
		if delErr := s.guard.Delete(ctx, string(event.ID)); delErr != nil {
			s.logg.Error(s.logg.WithField(ctx, "event_id", event.ID), "release event guard", delErr)
		}
		s.count(eventOutcomeFailed)
		return err
	}

	s.count(eventOutcomeConfirmed)
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"event_id":   event.ID,
		"session_id": session.ID,
		"order_id":   order.ID,
	})
	s.logg.Info(logCtx, "webhook confirmed order")
	return nil
}

func (s *Service) count(outcome string) {
	if s.metrics != nil {
		s.metrics.IncWebhookEvent(outcome)
	}
}
