package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/pytake/pytake-go/internal/jobs"
)

var emailValidate = validator.New()

// EmailPayload is the expected shape of a Message.Payload for the email job
// type: to/subject/body/template fields an email sender accepts. Validated
// with struct tags via go-playground/validator.
type EmailPayload struct {
	To        []string               `json:"to" validate:"required,min=1,dive,email"`
	From      string                 `json:"from" validate:"omitempty,email"`
	Subject   string                 `json:"subject" validate:"required"`
	Body      string                 `json:"body" validate:"required_without=HTML"`
	HTML      string                 `json:"html,omitempty" validate:"required_without=Body"`
	Template  string                 `json:"template,omitempty"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

// EmailHandler sends transactional email for store-mode messages created by
// the rest of the application (e.g. invite emails, digest emails).
type EmailHandler struct {
	jobs.BaseHandler
	sender EmailSender
}

// EmailSender is the narrow collaborator EmailHandler depends on; production
// wiring supplies an SMTP- or API-backed implementation at cmd/jobengine
// construction time.
type EmailSender interface {
	Send(ctx context.Context, to []string, from, subject, body, html string) (string, error)
}

// NewEmailHandler returns a factory suitable for jobs.RegisterJob.
func NewEmailHandler(sender EmailSender) jobs.HandlerFactory {
	return func() jobs.Handler {
		return &EmailHandler{sender: sender}
	}
}

func (h *EmailHandler) Validate(_ context.Context, jc jobs.Context) (bool, error) {
	p, err := decodeEmailPayload(jc.Message.Payload)
	if err != nil {
		return false, err
	}
	if err := emailValidate.Struct(&p); err != nil {
		return false, fmt.Errorf("email: invalid payload: %w", err)
	}
	return true, nil
}

func (h *EmailHandler) Execute(ctx context.Context, jc jobs.Context) ([]jobs.Result, error) {
	p, err := decodeEmailPayload(jc.Message.Payload)
	if err != nil {
		return nil, err
	}

	messageID, err := h.sender.Send(ctx, p.To, p.From, p.Subject, p.Body, p.HTML)
	if err != nil {
		return nil, jobs.Transient(fmt.Errorf("email: send: %w", err))
	}

	return []jobs.Result{{
		Success: true,
		Message: "email sent",
		Data: map[string]interface{}{
			"sent_at":    time.Now(),
			"recipients": len(p.To),
			"message_id": messageID,
		},
	}}, nil
}

func decodeEmailPayload(raw map[string]interface{}) (EmailPayload, error) {
	var p EmailPayload
	if err := decodeInto(raw, &p); err != nil {
		return p, fmt.Errorf("email: invalid payload: %w", err)
	}
	return p, nil
}
