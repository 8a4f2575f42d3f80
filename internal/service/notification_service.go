package service

import (
	"context"
	"errors"
	"fmt"
	netmail "net/mail"
	"strings"

	"go.uber.org/zap"

	"github.com/teqwa/teqwa-core/internal/config"
	"github.com/teqwa/teqwa-core/internal/domain"
	"github.com/teqwa/teqwa-core/internal/events"
	"github.com/teqwa/teqwa-core/internal/mail"
)

// NotificationService turns domain events into emails and log lines.
type NotificationService struct {
	dispatcher events.Dispatcher
	sender     mail.Sender
	logger     *zap.Logger
	cfg        config.NotificationConfig
	appName    string
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, sender mail.Sender, logger *zap.Logger, cfg config.NotificationConfig, appName string) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if appName == "" {
		appName = "Teqwa"
	}
	return &NotificationService{
		dispatcher: dispatcher,
		sender:     sender,
		logger:     logger,
		cfg:        cfg,
		appName:    appName,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTaskCreated, n.handleTaskCreated)
	n.dispatcher.Subscribe(events.EventTaskStatusChanged, n.handleTaskStatusChanged)
	n.dispatcher.Subscribe(events.EventPaymentSucceeded, n.handlePaymentSucceeded)
	n.dispatcher.Subscribe(events.EventPaymentFailed, n.handlePaymentFailed)
}

func (n *NotificationService) handleTaskCreated(_ context.Context, event events.Event) error {
	n.logger.Info("TaskCreated", zap.String("task_id", event.Subject), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleTaskStatusChanged(_ context.Context, event events.Event) error {
	n.logger.Info("TaskStatusChanged", zap.String("task_id", event.Subject), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handlePaymentFailed(_ context.Context, event events.Event) error {
	n.logger.Info("PaymentFailed", zap.String("tx_ref", event.Subject), zap.Any("payload", event.Payload))
	return nil
}

// handlePaymentSucceeded mails the donor and the admins for donations.
// Bookings and enrollments are only logged.
func (n *NotificationService) handlePaymentSucceeded(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.PaymentSucceededPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	n.logger.Info("PaymentSucceeded",
		zap.String("tx_ref", payload.TxRef),
		zap.String("content_type", string(payload.ObjectType)),
		zap.Int64("object_id", payload.ObjectID))

	donation := payload.Donation
	if donation == nil || n.sender == nil {
		return nil
	}

	var errs []error
	if msg := n.donorConfirmation(donation, payload.TxRef); msg.HasRecipients() {
		errs = append(errs, n.send(ctx, "donor confirmation", msg))
	}
	if msg := n.adminAlert(donation, payload.TxRef); msg.HasRecipients() {
		errs = append(errs, n.send(ctx, "admin donation alert", msg))
	}
	if n.isLarge(donation) {
		if msg := n.largeDonationAlert(donation, payload.TxRef); msg.HasRecipients() {
			errs = append(errs, n.send(ctx, "large donation alert", msg))
		}
	}
	return errors.Join(errs...)
}

func (n *NotificationService) send(ctx context.Context, kind string, msg mail.Message) error {
	if err := n.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("%s: %w", kind, err)
	}
	n.logger.Debug("email sent", zap.String("kind", kind), zap.Int("recipients", len(msg.To)))
	return nil
}

func (n *NotificationService) isLarge(d *domain.Donation) bool {
	return n.cfg.LargeDonationThreshold.IsPositive() && d.Amount.GreaterThanOrEqual(n.cfg.LargeDonationThreshold)
}

func (n *NotificationService) donorConfirmation(d *domain.Donation, txRef string) mail.Message {
	msg := mail.Message{
		Subject: fmt.Sprintf("Thank you for your donation to %s", n.appName),
	}
	if strings.TrimSpace(d.Email) != "" {
		msg.To = []netmail.Address{{Name: d.DonorName, Address: d.Email}}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", donorName(d))
	fmt.Fprintf(&b, "We have received your donation of %s %s", d.Amount.StringFixed(2), d.Currency)
	if d.CauseTitle != "" {
		fmt.Fprintf(&b, " toward %s", d.CauseTitle)
	}
	b.WriteString(".\n\n")
	fmt.Fprintf(&b, "Reference: %s\n\nMay Allah reward you.\n%s\n", txRef, n.appName)
	msg.TextContent = b.String()
	return msg
}

func (n *NotificationService) adminAlert(d *domain.Donation, txRef string) mail.Message {
	return mail.Message{
		To:          n.adminRecipients(),
		Subject:     fmt.Sprintf("New donation: %s %s", d.Amount.StringFixed(2), d.Currency),
		TextContent: donationSummary(d, txRef),
	}
}

func (n *NotificationService) largeDonationAlert(d *domain.Donation, txRef string) mail.Message {
	return mail.Message{
		To: n.adminRecipients(),
		Subject: fmt.Sprintf("Large donation received: %s %s (threshold %s)",
			d.Amount.StringFixed(2), d.Currency, n.cfg.LargeDonationThreshold.StringFixed(2)),
		TextContent: donationSummary(d, txRef),
	}
}

func (n *NotificationService) adminRecipients() []netmail.Address {
	out := make([]netmail.Address, 0, len(n.cfg.AdminEmails))
	for _, addr := range n.cfg.AdminEmails {
		out = append(out, netmail.Address{Address: addr})
	}
	return out
}

func donationSummary(d *domain.Donation, txRef string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Donor: %s <%s>\n", donorName(d), d.Email)
	fmt.Fprintf(&b, "Amount: %s %s\n", d.Amount.StringFixed(2), d.Currency)
	if d.CauseTitle != "" {
		fmt.Fprintf(&b, "Cause: %s\n", d.CauseTitle)
	}
	if d.Message != "" {
		fmt.Fprintf(&b, "Message: %s\n", d.Message)
	}
	fmt.Fprintf(&b, "Reference: %s\n", txRef)
	return b.String()
}

func donorName(d *domain.Donation) string {
	if name := strings.TrimSpace(d.DonorName); name != "" {
		return name
	}
	return "Donor"
}
