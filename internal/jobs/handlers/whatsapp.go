package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pytake/pytake-go/internal/jobs"
)

// WhatsAppDispatchPayload is the expected Message.Payload shape for the
// whatsapp_dispatch job type.
type WhatsAppDispatchPayload struct {
	ConfigID uuid.UUID `json:"config_id"`
	To       string    `json:"to"`
	Type     string    `json:"type"` // text, template, image, document, ...
	Text     string    `json:"text,omitempty"`
	Template string    `json:"template,omitempty"`
}

// WhatsAppSender is the narrow collaborator WhatsAppDispatchHandler depends
// on; it mirrors whatsapp.Service.SendMessage's signature without pulling
// the whole WhatsApp domain package into the job engine.
type WhatsAppSender interface {
	SendText(ctx context.Context, tenantID, configID uuid.UUID, to, text string) (string, error)
}

// WhatsAppDispatchHandler sends outbound WhatsApp messages queued by the
// conversation/campaign layers. RegisterAll enables this job only when a
// WhatsAppSender is supplied; RequiresWhatsApp in its Metadata.Capabilities
// makes Registry.ValidateDependencies report it when the WhatsApp capability
// is not resolved.
type WhatsAppDispatchHandler struct {
	jobs.BaseHandler
	sender WhatsAppSender
}

// NewWhatsAppDispatchHandler returns a factory suitable for jobs.RegisterJob.
func NewWhatsAppDispatchHandler(sender WhatsAppSender) jobs.HandlerFactory {
	return func() jobs.Handler {
		return &WhatsAppDispatchHandler{sender: sender}
	}
}

func (h *WhatsAppDispatchHandler) Validate(_ context.Context, jc jobs.Context) (bool, error) {
	p, err := decodeWhatsAppPayload(jc.Message.Payload)
	if err != nil {
		return false, err
	}
	if p.To == "" {
		return false, fmt.Errorf("whatsapp: recipient is required")
	}
	if p.ConfigID == uuid.Nil {
		return false, fmt.Errorf("whatsapp: config_id is required")
	}
	return true, nil
}

func (h *WhatsAppDispatchHandler) Execute(ctx context.Context, jc jobs.Context) ([]jobs.Result, error) {
	p, err := decodeWhatsAppPayload(jc.Message.Payload)
	if err != nil {
		return nil, err
	}

	var tenantID uuid.UUID
	if jc.Message.TenantID != nil {
		tenantID = *jc.Message.TenantID
	}

	whatsAppID, err := h.sender.SendText(ctx, tenantID, p.ConfigID, p.To, p.Text)
	if err != nil {
		return nil, jobs.Transient(fmt.Errorf("whatsapp: send: %w", err))
	}

	return []jobs.Result{{
		Success: true,
		Message: "whatsapp message dispatched",
		Data: map[string]interface{}{
			"sent_at":      time.Now(),
			"to":           p.To,
			"whatsapp_id":  whatsAppID,
			"config_id":    p.ConfigID,
		},
	}}, nil
}

func decodeWhatsAppPayload(raw map[string]interface{}) (WhatsAppDispatchPayload, error) {
	var p WhatsAppDispatchPayload
	if err := decodeInto(raw, &p); err != nil {
		return p, fmt.Errorf("whatsapp: invalid payload: %w", err)
	}
	return p, nil
}
