package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pytake/pytake-go/internal/database/models"
	"github.com/pytake/pytake-go/internal/jobs"
)

func setupCleanupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.QueueMessage{}))
	return db
}

func insertProcessedAt(t *testing.T, db *gorm.DB, updatedAt time.Time) {
	t.Helper()
	msg := models.QueueMessage{Type: "email", IsProcessed: true}
	require.NoError(t, db.Create(&msg).Error)
	require.NoError(t, db.Model(&models.QueueMessage{}).Where("id = ?", msg.ID).Update("updated_at", updatedAt).Error)
}

func TestCleanupHandlerDeletesOnlyStaleProcessedRows(t *testing.T) {
	db := setupCleanupDB(t)
	insertProcessedAt(t, db, time.Now().Add(-40*24*time.Hour))
	insertProcessedAt(t, db, time.Now())

	h := &CleanupHandler{db: db, dlq: jobs.NewDeadLetterQueue(10), defaultMaxAge: 30 * 24 * time.Hour}

	results, err := h.Execute(context.Background(), jobs.Context{Message: jobs.Message{Payload: map[string]interface{}{}}})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.EqualValues(t, 1, results[0].Data["deleted_count"])

	var remaining int64
	require.NoError(t, db.Model(&models.QueueMessage{}).Count(&remaining).Error)
	assert.Equal(t, int64(1), remaining)
}

func TestCleanupHandlerDryRunDoesNotDelete(t *testing.T) {
	db := setupCleanupDB(t)
	insertProcessedAt(t, db, time.Now().Add(-40*24*time.Hour))

	h := &CleanupHandler{db: db, dlq: jobs.NewDeadLetterQueue(10), defaultMaxAge: 30 * 24 * time.Hour}

	results, err := h.Execute(context.Background(), jobs.Context{Message: jobs.Message{Payload: map[string]interface{}{
		"dry_run": true,
	}}})

	require.NoError(t, err)
	assert.EqualValues(t, 1, results[0].Data["deleted_count"])

	var remaining int64
	require.NoError(t, db.Model(&models.QueueMessage{}).Count(&remaining).Error)
	assert.Equal(t, int64(1), remaining)
}

func TestParseRetentionAcceptsDaySuffix(t *testing.T) {
	d, err := parseRetention("7d")
	require.NoError(t, err)
	assert.Equal(t, 7*24*time.Hour, d)
}

func TestParseRetentionAcceptsStandardDurations(t *testing.T) {
	d, err := parseRetention("24h")
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, d)
}

func TestParseRetentionRejectsGarbage(t *testing.T) {
	_, err := parseRetention("x")
	assert.Error(t, err)
}
