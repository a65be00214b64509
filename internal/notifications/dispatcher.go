package notifications

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/multierr"

	"github.com/ashu640/ecommerce-backend/pkg/db/models"
	"github.com/ashu640/ecommerce-backend/pkg/logger"
	"github.com/ashu640/ecommerce-backend/pkg/mail"
)

const (
	dispatchBudget = 5 * time.Second
	sendAttempts   = 3
	sendBackoff    = 500 * time.Millisecond
)

type mailMetrics interface {
	IncMailFailure()
}

// Recipient resolves the owner's email for an order.
type Recipient struct {
	Name  string
	Email string
}

type recipientResolver interface {
	RecipientForOrder(ctx context.Context, order *models.Order) (*Recipient, error)
}

// Dispatcher sends order lifecycle mail. Every send is best-effort: failures
// are retried, then logged and counted, never returned to the caller.
type Dispatcher struct {
	sender     mail.Sender
	recipients recipientResolver
	logg       *logger.Logger
	metrics    mailMetrics
	opsMailbox string
}

// NewDispatcher wires the mail dependencies.
func NewDispatcher(sender mail.Sender, recipients recipientResolver, logg *logger.Logger, metrics mailMetrics, opsMailbox string) (*Dispatcher, error) {
	if sender == nil {
		return nil, fmt.Errorf("mail sender required")
	}
	if recipients == nil {
		return nil, fmt.Errorf("recipient resolver required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if opsMailbox == "" {
		return nil, fmt.Errorf("operations mailbox required")
	}
	return &Dispatcher{
		sender:     sender,
		recipients: recipients,
		logg:       logg,
		metrics:    metrics,
		opsMailbox: opsMailbox,
	}, nil
}

// OrderConfirmed mails the owner a confirmation. Runs on its own deadline so
// a slow mail provider cannot hold the checkout response.
func (d *Dispatcher) OrderConfirmed(ctx context.Context, order *models.Order) {
	if order == nil {
		return
	}
	ctx, cancel := d.detach(ctx, order)
	defer cancel()

	recipient, err := d.recipients.RecipientForOrder(ctx, order)
	if err != nil {
		d.logg.Error(ctx, "order confirmation skipped: recipient lookup failed", err)
		d.countFailure()
		return
	}

	msg := renderConfirmation(order, recipient)
	if err := d.sendWithRetry(ctx, msg); err != nil {
		d.logg.Error(ctx, "order confirmation mail failed", err)
		d.countFailure()
		return
	}
	d.logg.Info(ctx, "order confirmation mail sent")
}

// OrderCancelled mails the owner and the operations mailbox. Both sends are
// attempted; their failures are merged into one logged error.
func (d *Dispatcher) OrderCancelled(ctx context.Context, order *models.Order) {
	if order == nil {
		return
	}
	ctx, cancel := d.detach(ctx, order)
	defer cancel()

	var errs error

	recipient, err := d.recipients.RecipientForOrder(ctx, order)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("recipient lookup: %w", err))
	} else {
		ownerMsg, opsMsg := renderCancellation(order, recipient, d.opsMailbox)
		if err := d.sendWithRetry(ctx, ownerMsg); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("owner mail: %w", err))
		}
		if err := d.sendWithRetry(ctx, opsMsg); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("ops mail: %w", err))
		}
	}

	if errs != nil {
		d.logg.Error(ctx, "order cancellation mail failed", errs)
		d.countFailure()
		return
	}
	d.logg.Info(ctx, "order cancellation mail sent")
}

func (d *Dispatcher) detach(ctx context.Context, order *models.Order) (context.Context, context.CancelFunc) {
	ctx = d.logg.WithOrderID(ctx, order.ID.String())
	return context.WithTimeout(context.WithoutCancel(ctx), dispatchBudget)
}

func (d *Dispatcher) sendWithRetry(ctx context.Context, msg mail.Message) error {
	backoff := retry.WithMaxRetries(sendAttempts-1, retry.NewConstant(sendBackoff))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := d.sender.Send(ctx, msg); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

func (d *Dispatcher) countFailure() {
	if d.metrics != nil {
		d.metrics.IncMailFailure()
	}
}

func renderConfirmation(order *models.Order, to *Recipient) mail.Message {
	var lines strings.Builder
	for _, item := range order.Items {
		fmt.Fprintf(&lines, "%s x%d %s\n", item.Name, item.Quantity, formatCents(item.PriceCents*int64(item.Quantity)))
	}
	fmt.Fprintf(&lines, "Total: %s\n", formatCents(order.SubtotalCents))

	return mail.Message{
		ToName:    to.Name,
		ToEmail:   to.Email,
		Subject:   fmt.Sprintf("Order %s confirmed", shortID(order)),
		PlainBody: fmt.Sprintf("Hi %s,\n\nYour order has been placed.\n\n%s\nWe will ship it to %s.\n", to.Name, lines.String(), order.ShippingLine1),
	}
}

func renderCancellation(order *models.Order, to *Recipient, opsMailbox string) (owner, ops mail.Message) {
	subject := fmt.Sprintf("Order %s cancelled", shortID(order))
	owner = mail.Message{
		ToName:    to.Name,
		ToEmail:   to.Email,
		Subject:   subject,
		PlainBody: fmt.Sprintf("Hi %s,\n\nYour order for %s has been cancelled. If a payment was captured it will be refunded.\n", to.Name, formatCents(order.SubtotalCents)),
	}
	ops = mail.Message{
		ToName:    "Operations",
		ToEmail:   opsMailbox,
		Subject:   subject,
		PlainBody: fmt.Sprintf("Order %s (%s, %s) was cancelled. Buyer: %s <%s>. Review any captured payment.\n", order.ID, order.Method, formatCents(order.SubtotalCents), to.Name, to.Email),
	}
	return owner, ops
}

func shortID(order *models.Order) string {
	id := order.ID.String()
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatCents(cents int64) string {
	return fmt.Sprintf("₹%d.%02d", cents/100, cents%100)
}
