package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pytake/pytake-go/internal/jobs"
)

func webhookContext(url string, secret string) jobs.Context {
	payload := map[string]interface{}{
		"url":  url,
		"body": map[string]interface{}{"event": "test"},
	}
	if secret != "" {
		payload["secret"] = secret
	}
	return jobs.Context{Message: jobs.Message{Payload: payload}}
}

func TestWebhookDeliveryHandlerValidateRejectsMissingURL(t *testing.T) {
	h := &WebhookDeliveryHandler{client: http.DefaultClient}
	ok, err := h.Validate(context.Background(), webhookContext("", ""))
	assert.False(t, ok)
	require.Error(t, err)
}

func TestWebhookDeliveryHandlerExecuteSucceedsOn2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	h := &WebhookDeliveryHandler{client: server.Client()}
	results, err := h.Execute(context.Background(), webhookContext(server.URL, ""))

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Equal(t, http.StatusOK, results[0].Data["status_code"])
}

func TestWebhookDeliveryHandlerExecuteSignsBodyWhenSecretPresent(t *testing.T) {
	var gotSignature string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSignature = r.Header.Get("X-Webhook-Signature-256")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	h := &WebhookDeliveryHandler{client: server.Client()}
	_, err := h.Execute(context.Background(), webhookContext(server.URL, "topsecret"))

	require.NoError(t, err)
	assert.NotEmpty(t, gotSignature)
	assert.Regexp(t, "^sha256=[0-9a-f]{64}$", gotSignature)
}

func TestWebhookDeliveryHandlerExecuteTreats5xxAsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	h := &WebhookDeliveryHandler{client: server.Client()}
	_, err := h.Execute(context.Background(), webhookContext(server.URL, ""))

	require.Error(t, err)
	assert.True(t, jobs.IsTransient(err))
}

func TestWebhookDeliveryHandlerExecuteTreats4xxAsPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	h := &WebhookDeliveryHandler{client: server.Client()}
	_, err := h.Execute(context.Background(), webhookContext(server.URL, ""))

	require.Error(t, err)
	assert.False(t, jobs.IsTransient(err))
}
