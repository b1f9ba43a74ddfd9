package mail

import (
	"context"
	"fmt"

	"github.com/camarasaas/portal/pkg/validator"
)

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Message is one outbound email.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"-"`
	Text    string `json:"-"`
	Tag     string `json:"tag,omitempty"`
}

// Validate requires a valid recipient, a subject and at least one body.
func (m Message) Validate() error {
	return validator.Apply(
		validator.ValidEmail("to", m.To),
		validator.Required("subject", m.Subject),
		validator.Rule{
			Check: func() bool { return m.HTML != "" || m.Text != "" },
			Error: validator.ValidationError{Field: "body", Message: "is required", TranslationKey: "validation.required"},
		},
	)
}

// NewSender returns a PostmarkSender when a server token is configured and a
// DevSender otherwise.
func NewSender(cfg Config) (Sender, error) {
	if cfg.PostmarkServerToken == "" {
		if cfg.DevDir == "" {
			return nil, fmt.Errorf("%w: MAIL_DEV_DIR is required without a Postmark token", ErrInvalidConfig)
		}
		return NewDevSender(cfg.DevDir), nil
	}
	return NewPostmarkSender(cfg)
}
