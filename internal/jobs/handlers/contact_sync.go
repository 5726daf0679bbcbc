package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pytake/pytake-go/internal/database/models"
	"github.com/pytake/pytake-go/internal/jobs"
)

// ContactSyncHandler recomputes per-tenant contact aggregates (total,
// active, opted-in marketing, by-source) the way the now-retired contact
// service's GetContactStats query did, and reports total, active and
// opted-in counts per tenant in its Results. Tag counts are not computed,
// and nothing is written back to the database. It is a monitoring job type: ticks pile
// up under load exactly like ConversationHealthMonitor's, so the same
// aggressive-deduplication policy applies.
type ContactSyncHandler struct {
	jobs.BaseHandler
	db *gorm.DB
}

// NewContactSyncHandler returns a factory suitable for jobs.RegisterJob.
func NewContactSyncHandler(db *gorm.DB) jobs.HandlerFactory {
	return func() jobs.Handler {
		return &ContactSyncHandler{db: db}
	}
}

func (h *ContactSyncHandler) Execute(ctx context.Context, jc jobs.Context) ([]jobs.Result, error) {
	var tenantIDs []uuid.UUID
	if err := h.db.WithContext(ctx).Model(&models.Contact{}).Distinct("tenant_id").Pluck("tenant_id", &tenantIDs).Error; err != nil {
		return nil, jobs.Transient(fmt.Errorf("contact_sync: list tenants: %w", err))
	}

	results := make([]jobs.Result, 0, len(tenantIDs))
	for _, tenantID := range tenantIDs {
		stats, err := h.computeStats(ctx, tenantID)
		if err != nil {
			results = append(results, jobs.Result{
				Success: false,
				Error:   fmt.Errorf("contact_sync: tenant %s: %w", tenantID, err),
			})
			continue
		}
		results = append(results, jobs.Result{
			Success: true,
			Message: "contact stats refreshed",
			Data: map[string]interface{}{
				"tenant_id":   tenantID,
				"synced_at":   time.Now(),
				"total":       stats.TotalContacts,
				"active":      stats.ActiveContacts,
				"opted_in":    stats.OptedInMarketing,
			},
		})
	}
	return results, nil
}

func (h *ContactSyncHandler) computeStats(ctx context.Context, tenantID uuid.UUID) (models.ContactStats, error) {
	stats := models.ContactStats{
		BySource: make(map[string]int),
		ByStatus: make(map[string]int),
	}

	db := h.db.WithContext(ctx).Model(&models.Contact{}).Where("tenant_id = ?", tenantID)

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return stats, err
	}
	stats.TotalContacts = int(total)

	var active int64
	if err := h.db.WithContext(ctx).Model(&models.Contact{}).
		Where("tenant_id = ? AND status = ?", tenantID, models.ContactStatusActive).
		Count(&active).Error; err != nil {
		return stats, err
	}
	stats.ActiveContacts = int(active)

	var optedIn int64
	if err := h.db.WithContext(ctx).Model(&models.Contact{}).
		Where("tenant_id = ? AND opt_in_marketing = ?", tenantID, true).
		Count(&optedIn).Error; err != nil {
		return stats, err
	}
	stats.OptedInMarketing = int(optedIn)

	var sourceCounts []struct {
		Source string
		Count  int
	}
	if err := h.db.WithContext(ctx).Model(&models.Contact{}).
		Select("source, COUNT(*) as count").
		Where("tenant_id = ?", tenantID).
		Group("source").
		Scan(&sourceCounts).Error; err != nil {
		return stats, err
	}
	for _, sc := range sourceCounts {
		stats.BySource[sc.Source] = sc.Count
	}

	return stats, nil
}
