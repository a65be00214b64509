package notifications

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/ashu640/ecommerce-backend/pkg/db/models"
	"github.com/ashu640/ecommerce-backend/pkg/logger"
	"github.com/ashu640/ecommerce-backend/pkg/mail"
)

type stubSender struct {
	failuresLeft int
	failAlways   bool
	sent         []mail.Message
}

func (s *stubSender) Send(_ context.Context, msg mail.Message) error {
	if s.failAlways {
		return errors.New("provider rejected")
	}
	if s.failuresLeft > 0 {
		s.failuresLeft--
		return errors.New("provider hiccup")
	}
	s.sent = append(s.sent, msg)
	return nil
}

type stubResolver struct {
	recipient *Recipient
	err       error
}

func (s *stubResolver) RecipientForOrder(_ context.Context, _ *models.Order) (*Recipient, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.recipient, nil
}

type stubMailMetrics struct {
	failures int
}

func (s *stubMailMetrics) IncMailFailure() { s.failures++ }

func newDispatcher(t *testing.T, sender *stubSender, resolver *stubResolver, metrics *stubMailMetrics) *Dispatcher {
	t.Helper()
	dispatcher, err := NewDispatcher(sender, resolver, logger.New(logger.Options{ServiceName: "mail-test"}), metrics, "ops@shop.test")
	if err != nil {
		t.Fatalf("setup dispatcher: %v", err)
	}
	return dispatcher
}

func testOrder() *models.Order {
	return &models.Order{
		ID:            uuid.New(),
		UserID:        uuid.New(),
		SubtotalCents: 2250,
		ShippingLine1: "1 Test Lane",
		Items: []models.OrderItem{
			{Name: "mug", PriceCents: 1000, Quantity: 2},
		},
	}
}

func TestDispatcher_OrderConfirmedSendsMail(t *testing.T) {
	sender := &stubSender{}
	resolver := &stubResolver{recipient: &Recipient{Name: "Test Buyer", Email: "buyer@shop.test"}}
	dispatcher := newDispatcher(t, sender, resolver, &stubMailMetrics{})

	dispatcher.OrderConfirmed(context.Background(), testOrder())

	if len(sender.sent) != 1 {
		t.Fatalf("expected one mail, got %d", len(sender.sent))
	}
	msg := sender.sent[0]
	if msg.ToEmail != "buyer@shop.test" {
		t.Fatalf("unexpected recipient %q", msg.ToEmail)
	}
	if !strings.Contains(msg.Subject, "confirmed") {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}
	if !strings.Contains(msg.PlainBody, "mug x2") {
		t.Fatalf("body missing line items: %q", msg.PlainBody)
	}
}

func TestDispatcher_OrderConfirmedRetriesTransientFailure(t *testing.T) {
	sender := &stubSender{failuresLeft: 2}
	resolver := &stubResolver{recipient: &Recipient{Name: "Test Buyer", Email: "buyer@shop.test"}}
	metrics := &stubMailMetrics{}
	dispatcher := newDispatcher(t, sender, resolver, metrics)

	dispatcher.OrderConfirmed(context.Background(), testOrder())

	if len(sender.sent) != 1 {
		t.Fatalf("expected retry to succeed, got %d sends", len(sender.sent))
	}
	if metrics.failures != 0 {
		t.Fatalf("no failure should be counted")
	}
}

func TestDispatcher_OrderConfirmedNeverPropagatesFailure(t *testing.T) {
	metrics := &stubMailMetrics{}
	dispatcher := newDispatcher(t, &stubSender{}, &stubResolver{err: errors.New("no such user")}, metrics)

	dispatcher.OrderConfirmed(context.Background(), testOrder())

	if metrics.failures != 1 {
		t.Fatalf("expected one counted failure, got %d", metrics.failures)
	}
}

func TestDispatcher_OrderCancelledMailsOwnerAndOps(t *testing.T) {
	sender := &stubSender{}
	resolver := &stubResolver{recipient: &Recipient{Name: "Test Buyer", Email: "buyer@shop.test"}}
	dispatcher := newDispatcher(t, sender, resolver, &stubMailMetrics{})

	dispatcher.OrderCancelled(context.Background(), testOrder())

	if len(sender.sent) != 2 {
		t.Fatalf("expected owner and ops mail, got %d", len(sender.sent))
	}
	recipients := []string{sender.sent[0].ToEmail, sender.sent[1].ToEmail}
	if recipients[0] != "buyer@shop.test" || recipients[1] != "ops@shop.test" {
		t.Fatalf("unexpected recipients %v", recipients)
	}
}

func TestDispatcher_OrderCancelledCountsMergedFailure(t *testing.T) {
	sender := &stubSender{failAlways: true}
	resolver := &stubResolver{recipient: &Recipient{Name: "Test Buyer", Email: "buyer@shop.test"}}
	metrics := &stubMailMetrics{}
	dispatcher := newDispatcher(t, sender, resolver, metrics)

	dispatcher.OrderCancelled(context.Background(), testOrder())

	if metrics.failures != 1 {
		t.Fatalf("merged failure should count once, got %d", metrics.failures)
	}
}

func TestDispatcher_NilOrderIsNoOp(t *testing.T) {
	sender := &stubSender{}
	dispatcher := newDispatcher(t, sender, &stubResolver{recipient: &Recipient{}}, &stubMailMetrics{})

	dispatcher.OrderConfirmed(context.Background(), nil)
	dispatcher.OrderCancelled(context.Background(), nil)

	if len(sender.sent) != 0 {
		t.Fatalf("nil order must not send mail")
	}
}

type deadlineSender struct {
	sends       int
	hadDeadline bool
	ctxErr      error
}

func (s *deadlineSender) Send(ctx context.Context, _ mail.Message) error {
	s.sends++
	_, s.hadDeadline = ctx.Deadline()
	s.ctxErr = ctx.Err()
	return nil
}

func TestDispatcher_SendRunsOnDetachedDeadline(t *testing.T) {
	sender := &deadlineSender{}
	resolver := &stubResolver{recipient: &Recipient{Name: "Test Buyer", Email: "buyer@shop.test"}}
	dispatcher, err := NewDispatcher(sender, resolver, logger.New(logger.Options{ServiceName: "mail-test"}), &stubMailMetrics{}, "ops@shop.test")
	if err != nil {
		t.Fatalf("setup dispatcher: %v", err)
	}

	parent, cancel := context.WithCancel(context.Background())
	cancel()
	dispatcher.OrderConfirmed(parent, testOrder())

	if sender.sends != 1 {
		t.Fatalf("expected one send, got %d", sender.sends)
	}
	if !sender.hadDeadline {
		t.Fatal("send context must carry the dispatch deadline")
	}
	if sender.ctxErr != nil {
		t.Fatalf("send context should not inherit the caller's cancellation: %v", sender.ctxErr)
	}
}
