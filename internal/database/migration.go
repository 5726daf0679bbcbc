package database

import (
	"github.com/pytake/pytake-go/internal/database/models"
	"gorm.io/gorm"
)

// Migrate runs database migrations
func Migrate(db *gorm.DB) error {
	// Enable UUID extension
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error; err != nil {
		return err
	}

	// Auto-migrate only the models this module's code actually reads or
	// writes. User/Tenant/TenantUser/TenantInvite/WhatsAppConfig and
	// ContactTag/ContactNote/ContactImport were dropped along with
	// internal/auth — see DESIGN.md.
	return db.AutoMigrate(
		&models.Contact{},
		&models.QueueMessage{},
	)
}