package mail

import (
	"context"
	"net/mail"
)

// Message is a plain outbound email.
type Message struct {
	To          []mail.Address
	Subject     string
	TextContent string
	HTMLContent string
}

// HasRecipients reports whether the message has at least one recipient.
func (m Message) HasRecipients() bool {
	return len(m.To) > 0
}

// Sender delivers messages. Implementations return an error instead of
// retrying; callers decide whether a failure matters.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
