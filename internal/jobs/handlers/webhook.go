package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/pytake/pytake-go/internal/jobs"
)

var webhookValidate = validator.New()

// WebhookDeliveryPayload is the expected Message.Payload shape for the
// webhook job type.
type WebhookDeliveryPayload struct {
	URL         string                 `json:"url" validate:"required,url"`
	Method      string                 `json:"method,omitempty"`
	Headers     map[string]string      `json:"headers,omitempty"`
	Body        map[string]interface{} `json:"body"`
	Secret      string                 `json:"secret,omitempty"`
	ContentType string                 `json:"content_type,omitempty"`
}

// WebhookDeliveryHandler delivers outbound webhooks for integrations
// subscribed to tenant events (message delivered, campaign finished, and so
// on); producers create one queue message per delivery attempt.
type WebhookDeliveryHandler struct {
	jobs.BaseHandler
	client *http.Client
}

// NewWebhookDeliveryHandler returns a factory suitable for jobs.RegisterJob.
func NewWebhookDeliveryHandler(client *http.Client) jobs.HandlerFactory {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return func() jobs.Handler {
		return &WebhookDeliveryHandler{client: client}
	}
}

func (h *WebhookDeliveryHandler) Validate(_ context.Context, jc jobs.Context) (bool, error) {
	p, err := decodeWebhookPayload(jc.Message.Payload)
	if err != nil {
		return false, err
	}
	if err := webhookValidate.Struct(&p); err != nil {
		return false, fmt.Errorf("webhook: invalid payload: %w", err)
	}
	return true, nil
}

func (h *WebhookDeliveryHandler) Execute(ctx context.Context, jc jobs.Context) ([]jobs.Result, error) {
	p, err := decodeWebhookPayload(jc.Message.Payload)
	if err != nil {
		return nil, err
	}
	if p.Method == "" {
		p.Method = http.MethodPost
	}
	if p.ContentType == "" {
		p.ContentType = "application/json"
	}

	bodyBytes, err := json.Marshal(p.Body)
	if err != nil {
		return nil, fmt.Errorf("webhook: marshal body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, p.Method, p.URL, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("webhook: build request: %w", err)
	}
	req.Header.Set("Content-Type", p.ContentType)
	req.Header.Set("User-Agent", "PyTake-Webhook/1.0")
	for k, v := range p.Headers {
		req.Header.Set(k, v)
	}
	if p.Secret != "" {
		req.Header.Set("X-Webhook-Signature-256", "sha256="+sign(bodyBytes, p.Secret))
	}

	start := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, jobs.Transient(fmt.Errorf("webhook: deliver: %w", err))
	}
	defer resp.Body.Close()
	elapsed := time.Since(start)

	if resp.StatusCode >= 500 {
		io.Copy(io.Discard, resp.Body)
		return nil, jobs.Transient(fmt.Errorf("webhook: server error status %d", resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("webhook: rejected with status %d: %s", resp.StatusCode, string(respBody))
	}

	return []jobs.Result{{
		Success: true,
		Message: "webhook delivered",
		Data: map[string]interface{}{
			"delivered_at":  time.Now(),
			"url":           p.URL,
			"status_code":   resp.StatusCode,
			"response_time": elapsed.Milliseconds(),
		},
	}}, nil
}

func sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func decodeWebhookPayload(raw map[string]interface{}) (WebhookDeliveryPayload, error) {
	var p WebhookDeliveryPayload
	if err := decodeInto(raw, &p); err != nil {
		return p, fmt.Errorf("webhook: invalid payload: %w", err)
	}
	return p, nil
}
