package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/pytake/pytake-go/internal/jobs"
)

// ConversationStats is the subset of GetConversationStats' result this
// monitor cares about: counts that signal a stuck or overloaded pipeline.
type ConversationStats struct {
	OpenConversations     int
	StaleOverOneHour      int
	UnassignedOverOneHour int
}

// ConversationStatsSource is the narrow contract over the conversation
// service's stats query this monitor depends on.
type ConversationStatsSource interface {
	GetConversationStats(ctx context.Context) (ConversationStats, error)
}

// ConversationHealthMonitor runs on a timer and flags conversations stuck
// open without activity. It is registered as a monitoring job type, so the
// queue's aggressive-deduplication policy collapses any backlog of ticks
// into at most one pending + one running execution.
type ConversationHealthMonitor struct {
	jobs.BaseHandler
	stats ConversationStatsSource

	staleThreshold int
}

// NewConversationHealthMonitor returns a factory suitable for
// jobs.RegisterJob. staleThreshold is the count of stale-over-one-hour
// conversations considered unhealthy; non-positive defaults to 25.
func NewConversationHealthMonitor(stats ConversationStatsSource, staleThreshold int) jobs.HandlerFactory {
	if staleThreshold <= 0 {
		staleThreshold = 25
	}
	return func() jobs.Handler {
		return &ConversationHealthMonitor{stats: stats, staleThreshold: staleThreshold}
	}
}

func (h *ConversationHealthMonitor) Execute(ctx context.Context, jc jobs.Context) ([]jobs.Result, error) {
	s, err := h.stats.GetConversationStats(ctx)
	if err != nil {
		return nil, jobs.Transient(fmt.Errorf("conversation_health: stats: %w", err))
	}

	healthy := s.StaleOverOneHour < h.staleThreshold

	return []jobs.Result{{
		Success: true,
		Message: fmt.Sprintf("checked at %s", time.Now().Format(time.RFC3339)),
		Data: map[string]interface{}{
			"checked_at":              time.Now(),
			"open_conversations":      s.OpenConversations,
			"stale_over_one_hour":     s.StaleOverOneHour,
			"unassigned_over_one_hour": s.UnassignedOverOneHour,
			"healthy":                 healthy,
		},
	}}, nil
}
