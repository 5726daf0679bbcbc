package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pytake/pytake-go/internal/jobs"
)

// CampaignDispatcher is a narrow contract over the campaign engine's
// ProcessCampaignMessages operation: advance one batch of a running
// campaign's outbound queue. The full CampaignEngine interface covers
// lifecycle, analytics and A/B testing that this timer job never touches.
type CampaignDispatcher interface {
	ProcessDueCampaigns(ctx context.Context, batchSize int) (processed int, err error)
}

// CampaignDispatchHandler is a timer-mode job: on every tick it asks the
// campaign engine to advance whichever campaigns are due, rather than
// processing one specific message.
type CampaignDispatchHandler struct {
	jobs.BaseHandler
	dispatcher CampaignDispatcher
	batchSize  int
}

// NewCampaignDispatchHandler returns a factory suitable for jobs.RegisterJob.
// batchSize defaults to 100 when non-positive, the same value RegisterAll
// gives campaign_dispatch's Metadata.BatchSize.
func NewCampaignDispatchHandler(dispatcher CampaignDispatcher, batchSize int) jobs.HandlerFactory {
	if batchSize <= 0 {
		batchSize = 100
	}
	return func() jobs.Handler {
		return &CampaignDispatchHandler{dispatcher: dispatcher, batchSize: batchSize}
	}
}

func (h *CampaignDispatchHandler) Execute(ctx context.Context, jc jobs.Context) ([]jobs.Result, error) {
	batchSize := h.batchSize
	if jc.Config != nil {
		if bs, ok := jc.Config["batch_size"].(int); ok && bs > 0 {
			batchSize = bs
		}
	}

	processed, err := h.dispatcher.ProcessDueCampaigns(ctx, batchSize)
	if err != nil {
		return nil, jobs.Transient(fmt.Errorf("campaign: process due campaigns: %w", err))
	}

	return []jobs.Result{{
		Success: true,
		Message: "campaign batch processed",
		Data: map[string]interface{}{
			"processed_at":     time.Now(),
			"messages_sent":    processed,
			"run_id":           uuid.New(),
		},
	}}, nil
}
