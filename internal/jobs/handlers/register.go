package handlers

import (
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/pytake/pytake-go/internal/jobs"
)

// Dependencies collects every collaborator the seven built-in job types
// need. Fields may be left nil for handlers the deployment doesn't use; the
// corresponding Metadata.Enabled is then left false so the scheduler never
// ticks that job. Registry.ValidateDependencies checks every registered job,
// enabled or not, so a missing capability is still reported for it.
type Dependencies struct {
	DB         *gorm.DB
	HTTPClient *http.Client

	EmailSender     EmailSender
	WhatsAppSender  WhatsAppSender
	CampaignEngine  CampaignDispatcher
	ConversationStatsSource ConversationStatsSource
}

// RegisterAll registers the job engine's seven built-in domain job types
// against engine. Call once at startup, before engine.Freeze.
func RegisterAll(engine *jobs.Engine, deps Dependencies) error {
	registrations := []struct {
		metadata jobs.Metadata
		factory  jobs.HandlerFactory
	}{
		{
			metadata: jobs.Metadata{
				Type:              jobs.TypeOf("email"),
				DisplayName:       "Email Delivery",
				Version:           "1.0",
				Enabled:           deps.EmailSender != nil,
				SourceMode:        jobs.SourceModeStore,
				Priority:          jobs.PriorityNormal,
				MaxRetries:        3,
				RetryDelaySeconds: 30,
				TimeoutSeconds:    300,
				MaxConcurrent:     10,
				DeadLetterEnabled: true,
			},
			factory: NewEmailHandler(deps.EmailSender),
		},
		{
			metadata: jobs.Metadata{
				Type:              jobs.TypeOf("webhook_delivery"),
				DisplayName:       "Webhook Delivery",
				Version:           "1.0",
				Enabled:           true,
				SourceMode:        jobs.SourceModeStore,
				Priority:          jobs.PriorityNormal,
				MaxRetries:        5,
				RetryDelaySeconds: 10,
				TimeoutSeconds:    60,
				MaxConcurrent:     20,
				Capabilities:      jobs.Capabilities{RequiresWebhook: true},
				DeadLetterEnabled: true,
			},
			factory: NewWebhookDeliveryHandler(deps.HTTPClient),
		},
		{
			metadata: jobs.Metadata{
				Type:              jobs.TypeOf("whatsapp_dispatch"),
				DisplayName:       "WhatsApp Dispatch",
				Version:           "1.0",
				Enabled:           deps.WhatsAppSender != nil,
				SourceMode:        jobs.SourceModeStore,
				Priority:          jobs.PriorityHigh,
				MaxRetries:        5,
				RetryDelaySeconds: 15,
				TimeoutSeconds:    30,
				MaxConcurrent:     15,
				Capabilities:      jobs.Capabilities{RequiresWhatsApp: true},
				DeadLetterEnabled: true,
			},
			factory: NewWhatsAppDispatchHandler(deps.WhatsAppSender),
		},
		{
			metadata: jobs.Metadata{
				Type:              jobs.TypeOf("campaign_dispatch"),
				DisplayName:       "Campaign Dispatch",
				Version:           "1.0",
				Enabled:           deps.CampaignEngine != nil,
				IntervalSeconds:   30,
				SourceMode:        jobs.SourceModeTimer,
				Priority:          jobs.PriorityHigh,
				MaxRetries:        2,
				RetryDelaySeconds: 60,
				TimeoutSeconds:    120,
				MaxConcurrent:     1,
				BatchSize:         100,
				Capabilities:      jobs.Capabilities{RequiresWhatsApp: true},
				DeadLetterEnabled: true,
			},
			factory: NewCampaignDispatchHandler(deps.CampaignEngine, 100),
		},
		{
			metadata: jobs.Metadata{
				Type:              jobs.TypeOf("conversation_health_monitor"),
				DisplayName:       "Conversation Health Monitor",
				Version:           "1.0",
				Enabled:           deps.ConversationStatsSource != nil,
				IntervalSeconds:   60,
				SourceMode:        jobs.SourceModeTimer,
				Priority:          jobs.PriorityMedium,
				MaxRetries:        1,
				RetryDelaySeconds: 30,
				TimeoutSeconds:    30,
				MaxConcurrent:     1,
				Capabilities:      jobs.Capabilities{RequiresDatabase: true},
				DeadLetterEnabled: false,
			},
			factory: NewConversationHealthMonitor(deps.ConversationStatsSource, 25),
		},
		{
			metadata: jobs.Metadata{
				Type:              jobs.TypeOf("contact_sync"),
				DisplayName:       "Contact Stats Sync",
				Version:           "1.0",
				Enabled:           deps.DB != nil,
				IntervalSeconds:   300,
				SourceMode:        jobs.SourceModeTimer,
				Priority:          jobs.PriorityLow,
				MaxRetries:        1,
				RetryDelaySeconds: 60,
				TimeoutSeconds:    120,
				MaxConcurrent:     1,
				Capabilities:      jobs.Capabilities{RequiresDatabase: true},
				DeadLetterEnabled: false,
			},
			factory: NewContactSyncHandler(deps.DB),
		},
		{
			metadata: jobs.Metadata{
				Type:              jobs.TypeOf("cleanup"),
				DisplayName:       "Queue Cleanup",
				Version:           "1.0",
				Enabled:           deps.DB != nil,
				IntervalSeconds:   int((6 * time.Hour).Seconds()),
				SourceMode:        jobs.SourceModeTimer,
				Priority:          jobs.PriorityLow,
				MaxRetries:        1,
				RetryDelaySeconds: 300,
				TimeoutSeconds:    1800,
				MaxConcurrent:     1,
				Capabilities:      jobs.Capabilities{RequiresDatabase: true},
				DeadLetterEnabled: false,
			},
			factory: NewCleanupHandler(deps.DB, engine.DeadLetterQueueRef(), 30*24*time.Hour),
		},
	}

	for _, r := range registrations {
		if err := engine.RegisterJob(r.metadata, r.factory); err != nil {
			return err
		}
	}
	return nil
}
