// Package mailer delivers the pipeline's emails through a pluggable gateway.
package mailer

import (
	"context"
)

// Message is one outgoing email. Template names the body template it was
// rendered from; gateways that support provider-side templates may use it.
type Message struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	Template string `json:"template,omitempty"`
}

// Gateway abstracts the email service. Send returns nil on acceptance.
// Errors wrapping domain.ErrPermanent will never succeed on retry; any other
// error is treated as transient.
type Gateway interface {
	Send(ctx context.Context, msg Message) error
}
