package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pytake/pytake-go/internal/jobs"
	"github.com/pytake/pytake-go/internal/logger"
)

func TestRegisterAllGatesOptionalHandlersOnDependencies(t *testing.T) {
	log := logger.New("error")
	engine := jobs.NewEngine(log, nil, map[string]bool{"webhook": true, "database": true}, jobs.DefaultConfig(), nil, nil)

	require.NoError(t, RegisterAll(engine, Dependencies{}))
	issues := engine.Freeze()

	details, ok := engine.GetJobDetails(jobs.TypeOf("email"))
	require.True(t, ok)
	assert.False(t, details.Metadata.Enabled, "email should be disabled with no EmailSender wired")

	details, ok = engine.GetJobDetails(jobs.TypeOf("webhook_delivery"))
	require.True(t, ok)
	assert.True(t, details.Metadata.Enabled, "webhook delivery has no optional collaborator and is always enabled")

	details, ok = engine.GetJobDetails(jobs.TypeOf("whatsapp_dispatch"))
	require.True(t, ok)
	assert.False(t, details.Metadata.Enabled)

	// whatsapp wasn't in the resolved capability set: both the WhatsApp
	// dispatch job and the campaign dispatcher (which routes through
	// WhatsApp) are flagged, independent of whether they're Enabled.
	assert.Len(t, issues, 2)
}

func TestRegisterAllEnablesHandlersWhenDependenciesProvided(t *testing.T) {
	log := logger.New("error")
	resolved := map[string]bool{"webhook": true, "database": true, "whatsapp": true}
	engine := jobs.NewEngine(log, nil, resolved, jobs.DefaultConfig(), nil, nil)

	deps := Dependencies{
		EmailSender:    &stubEmailSender{},
		WhatsAppSender: &stubWhatsAppSender{},
	}
	require.NoError(t, RegisterAll(engine, deps))
	issues := engine.Freeze()

	details, ok := engine.GetJobDetails(jobs.TypeOf("email"))
	require.True(t, ok)
	assert.True(t, details.Metadata.Enabled)

	details, ok = engine.GetJobDetails(jobs.TypeOf("whatsapp_dispatch"))
	require.True(t, ok)
	assert.True(t, details.Metadata.Enabled)

	assert.Empty(t, issues)
}
