package handlers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pytake/pytake-go/internal/jobs"
)

type stubEmailSender struct {
	messageID string
	err       error
	calls     int
}

func (s *stubEmailSender) Send(_ context.Context, to []string, from, subject, body, html string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.messageID, nil
}

func emailContext(payload map[string]interface{}) jobs.Context {
	return jobs.Context{Message: jobs.Message{Payload: payload}}
}

func TestEmailHandlerValidateRejectsMissingRecipients(t *testing.T) {
	h := &EmailHandler{}
	ok, err := h.Validate(context.Background(), emailContext(map[string]interface{}{
		"subject": "hi",
		"body":    "hello",
	}))
	assert.False(t, ok)
	require.Error(t, err)
}

func TestEmailHandlerValidateRejectsMissingBodyAndHTML(t *testing.T) {
	h := &EmailHandler{}
	ok, err := h.Validate(context.Background(), emailContext(map[string]interface{}{
		"to":      []string{"user@example.com"},
		"subject": "hi",
	}))
	assert.False(t, ok)
	require.Error(t, err)
}

func TestEmailHandlerValidateAccepts(t *testing.T) {
	h := &EmailHandler{}
	ok, err := h.Validate(context.Background(), emailContext(map[string]interface{}{
		"to":      []string{"user@example.com"},
		"subject": "hi",
		"body":    "hello",
	}))
	assert.True(t, ok)
	assert.NoError(t, err)
}

func TestEmailHandlerExecuteSendsAndReportsMessageID(t *testing.T) {
	sender := &stubEmailSender{messageID: "msg-123"}
	h := &EmailHandler{sender: sender}

	results, err := h.Execute(context.Background(), emailContext(map[string]interface{}{
		"to":      []string{"a@example.com", "b@example.com"},
		"subject": "hi",
		"body":    "hello",
	}))

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Equal(t, 1, sender.calls)
	assert.Equal(t, "msg-123", results[0].Data["message_id"])
	assert.Equal(t, 2, results[0].Data["recipients"])
}

func TestEmailHandlerExecuteWrapsSenderErrorAsTransient(t *testing.T) {
	sender := &stubEmailSender{err: errors.New("smtp unavailable")}
	h := &EmailHandler{sender: sender}

	_, err := h.Execute(context.Background(), emailContext(map[string]interface{}{
		"to":      []string{"a@example.com"},
		"subject": "hi",
		"body":    "hello",
	}))

	require.Error(t, err)
	assert.True(t, jobs.IsTransient(err))
}
