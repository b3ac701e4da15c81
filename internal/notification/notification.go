// Package notification turns domain events into emails. Every send is
// best-effort and asynchronous: messages go through a queue drained by a
// background worker, failures are logged and never propagated, so a broken or
// hanging relay cannot fail or stall an order or a registration.
package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/sebastiaan36/louman/internal/domain/auth"
	"github.com/sebastiaan36/louman/internal/domain/customer"
	"github.com/sebastiaan36/louman/internal/domain/document"
	"github.com/sebastiaan36/louman/internal/domain/order"
	"github.com/sebastiaan36/louman/internal/mail"
)

// sendTimeout bounds a single delivery so a dead relay cannot hold the
// worker forever.
const sendTimeout = 30 * time.Second

// queueSize is the outbound buffer. When the queue is full new messages are
// dropped with a warning rather than blocking the request.
const queueSize = 64

// Service implements the order and customer notifier interfaces on top of a
// Mailer. The packing slip attached to staff copies is rendered in-process.
// Event mail is queued and delivered by a background worker; only invoices
// are sent inline because staff need the send error.
type Service struct {
	mailer   mail.Mailer
	users    auth.UserRepository
	renderer document.Renderer

	queue chan outbound
	done  chan struct{}
}

type outbound struct {
	lg  *zap.Logger
	msg mail.Message
}

var (
	_ order.Notifier    = (*Service)(nil)
	_ customer.Notifier = (*Service)(nil)
)

// NewService creates a notification Service and starts its delivery worker.
func NewService(mailer mail.Mailer, users auth.UserRepository, renderer document.Renderer) *Service {
	s := &Service{
		mailer:   mailer,
		users:    users,
		renderer: renderer,
		queue:    make(chan outbound, queueSize),
		done:     make(chan struct{}),
	}
	go s.deliver()
	return s
}

// Close stops accepting new event mail and waits until the queue is drained.
func (s *Service) Close() {
	close(s.queue)
	<-s.done
}

func (s *Service) deliver() {
	defer close(s.done)
	for out := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		if err := s.mailer.Send(ctx, out.msg); err != nil {
			out.lg.Warn("Send mail", zap.Error(err), zap.String("subject", out.msg.Subject))
		}
		cancel()
	}
}

// OrderPlaced sends the staff a copy with the packing slip attached, and the
// customer a confirmation.
func (s *Service) OrderPlaced(ctx context.Context, d order.Detail) {
	lg := zctx.From(ctx).With(zap.Int64("order_id", d.ID))

	staff := mail.Message{
		Subject: fmt.Sprintf("New order #%d from %s", d.ID, d.Customer.CompanyName),
		Body:    orderBody(d, "A new order has been placed."),
	}
	slip := document.PackingSlipFor(d, d.CreatedAt)
	if pdf, err := s.renderer.PackingSlip(*slip); err != nil {
		lg.Warn("Render packing slip", zap.Error(err))
	} else {
		staff.Attachments = []mail.Attachment{{
			Filename: fmt.Sprintf("packing-slip-%d.pdf", d.ID),
			Content:  pdf,
		}}
	}
	s.sendToStaff(ctx, lg, staff)

	if to := s.customerRecipient(ctx, lg, d.Customer); to != "" {
		s.send(lg, mail.Message{
			To:      []string{to},
			Subject: fmt.Sprintf("Order confirmation #%d", d.ID),
			Body:    orderBody(d, "Thank you for your order. We will deliver it on your next delivery day."),
		})
	}
}

// OrderShipped tells the customer the order went out for delivery.
func (s *Service) OrderShipped(ctx context.Context, d order.Detail) {
	lg := zctx.From(ctx).With(zap.Int64("order_id", d.ID))

	to := s.customerRecipient(ctx, lg, d.Customer)
	if to == "" {
		return
	}
	s.send(lg, mail.Message{
		To:      []string{to},
		Subject: fmt.Sprintf("Order #%d is on its way", d.ID),
		Body:    orderBody(d, "Your order has been completed and is on its way."),
	})
}

// CustomerRegistered asks staff to review a new application.
func (s *Service) CustomerRegistered(ctx context.Context, c customer.Customer) {
	lg := zctx.From(ctx).With(zap.Int64("customer_id", c.ID))

	s.sendToStaff(ctx, lg, mail.Message{
		Subject: fmt.Sprintf("New customer application: %s", c.CompanyName),
		Body: fmt.Sprintf(
			"%s (%s, KvK %s) applied for a wholesale account and is awaiting approval.\n",
			c.CompanyName, c.City, c.KvKNumber,
		),
	})
}

// CustomerApproved welcomes the customer to the ordering portal.
func (s *Service) CustomerApproved(ctx context.Context, c customer.Customer) {
	lg := zctx.From(ctx).With(zap.Int64("customer_id", c.ID))

	to := s.customerRecipient(ctx, lg, c)
	if to == "" {
		return
	}
	s.send(lg, mail.Message{
		To:      []string{to},
		Subject: "Your wholesale account has been approved",
		Body: fmt.Sprintf(
			"Dear %s,\n\nYour account for %s has been approved. You can now place orders.\nDelivery day: %s\n",
			c.ContactPerson, c.CompanyName, c.DeliveryDay,
		),
	})
}

// InvoiceIssued mails a rendered invoice to the order's customer. Unlike the
// event notifications this returns the send error, so staff see a failed
// delivery immediately.
func (s *Service) InvoiceIssued(ctx context.Context, d order.Detail, inv document.Invoice, pdf []byte) error {
	lg := zctx.From(ctx).With(zap.Int64("order_id", d.ID))

	to := s.customerRecipient(ctx, lg, d.Customer)
	if to == "" {
		return errors.New("customer has no email address")
	}
	return s.mailer.Send(ctx, mail.Message{
		To:      []string{to},
		Subject: fmt.Sprintf("Invoice %s", inv.Number),
		Body: fmt.Sprintf(
			"Dear %s,\n\nAttached is invoice %s for order #%d, total %s (incl. VAT).\nPlease pay within %d days.\n",
			d.Customer.ContactPerson, inv.Number, d.ID, inv.Total.StringFixed(2), document.PaymentTermDays,
		),
		Attachments: []mail.Attachment{{
			Filename: fmt.Sprintf("invoice-%s.pdf", inv.Number),
			Content:  pdf,
		}},
	})
}

// customerRecipient picks the packing slip address when set, the login email
// otherwise.
func (s *Service) customerRecipient(ctx context.Context, lg *zap.Logger, c customer.Customer) string {
	if c.PackingSlipEmail != "" {
		return c.PackingSlipEmail
	}
	u, err := s.users.GetByID(ctx, c.UserID)
	if err != nil {
		lg.Warn("Resolve customer email", zap.Error(err))
		return ""
	}
	return u.Email
}

func (s *Service) sendToStaff(ctx context.Context, lg *zap.Logger, msg mail.Message) {
	admins, err := s.users.ListAdmins(ctx)
	if err != nil {
		lg.Warn("List staff recipients", zap.Error(err))
		return
	}
	if len(admins) == 0 {
		return
	}
	msg.To = make([]string, len(admins))
	for i, a := range admins {
		msg.To[i] = a.Email
	}
	s.send(lg, msg)
}

func (s *Service) send(lg *zap.Logger, msg mail.Message) {
	select {
	case s.queue <- outbound{lg: lg, msg: msg}:
	default:
		lg.Warn("Mail queue full, message dropped", zap.String("subject", msg.Subject))
	}
}

func orderBody(d order.Detail, intro string) string {
	body := fmt.Sprintf("%s\n\nOrder #%d for %s\n\n", intro, d.ID, d.Customer.CompanyName)
	for _, item := range d.Items {
		body += fmt.Sprintf("  %dx %s (%s) - %s\n",
			item.Quantity, item.Product.Title, item.Product.ArticleNumber, item.Subtotal().StringFixed(2))
	}
	body += fmt.Sprintf("\nTotal: %s\n", d.Total.StringFixed(2))
	if d.Notes != "" {
		body += fmt.Sprintf("Notes: %s\n", d.Notes)
	}
	return body
}
