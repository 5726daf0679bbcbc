package handlers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pytake/pytake-go/internal/jobs"
)

type stubConversationStatsSource struct {
	stats ConversationStats
	err   error
}

func (s stubConversationStatsSource) GetConversationStats(context.Context) (ConversationStats, error) {
	return s.stats, s.err
}

func TestConversationHealthMonitorReportsHealthyBelowThreshold(t *testing.T) {
	source := stubConversationStatsSource{stats: ConversationStats{OpenConversations: 40, StaleOverOneHour: 3}}
	h := &ConversationHealthMonitor{stats: source, staleThreshold: 25}

	results, err := h.Execute(context.Background(), jobs.Context{})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, true, results[0].Data["healthy"])
}

func TestConversationHealthMonitorReportsUnhealthyAtOrAboveThreshold(t *testing.T) {
	source := stubConversationStatsSource{stats: ConversationStats{StaleOverOneHour: 30}}
	h := &ConversationHealthMonitor{stats: source, staleThreshold: 25}

	results, err := h.Execute(context.Background(), jobs.Context{})

	require.NoError(t, err)
	assert.Equal(t, false, results[0].Data["healthy"])
}

func TestConversationHealthMonitorWrapsStatsErrorAsTransient(t *testing.T) {
	source := stubConversationStatsSource{err: errors.New("db unreachable")}
	h := &ConversationHealthMonitor{stats: source, staleThreshold: 25}

	_, err := h.Execute(context.Background(), jobs.Context{})

	require.Error(t, err)
	assert.True(t, jobs.IsTransient(err))
}

func TestNewConversationHealthMonitorDefaultsStaleThreshold(t *testing.T) {
	factory := NewConversationHealthMonitor(stubConversationStatsSource{}, 0)
	handler := factory().(*ConversationHealthMonitor)
	assert.Equal(t, 25, handler.staleThreshold)
}
