package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ContactStatus represents the status of a contact
type ContactStatus string

const (
	ContactStatusActive   ContactStatus = "active"
	ContactStatusInactive ContactStatus = "inactive"
	ContactStatusBlocked  ContactStatus = "blocked"
	ContactStatusDeleted  ContactStatus = "deleted"
)

// Contact represents a contact/customer
type Contact struct {
	TenantModel
	Name             string         `gorm:"type:varchar(255);not null;index" json:"name"`
	Phone            string         `gorm:"type:varchar(50);index" json:"phone,omitempty"`
	WhatsAppPhone    string         `gorm:"type:varchar(50);unique;index" json:"whatsapp_phone,omitempty"`
	Email            string         `gorm:"type:varchar(255);index" json:"email,omitempty"`
	Status           ContactStatus  `gorm:"type:varchar(50);default:'active';index" json:"status"`
	ProfilePictureURL string        `gorm:"type:text" json:"profile_picture_url,omitempty"`
	Source           string         `gorm:"type:varchar(100)" json:"source,omitempty"` // whatsapp, manual, import, api
	Language         string         `gorm:"type:varchar(10);default:'pt'" json:"language"`
	Timezone         string         `gorm:"type:varchar(50);default:'America/Sao_Paulo'" json:"timezone"`
	CustomFields     JSON           `gorm:"type:jsonb" json:"custom_fields,omitempty"`

	// CRM Fields
	CompanyName      string     `gorm:"type:varchar(255)" json:"company_name,omitempty"`
	JobTitle         string     `gorm:"type:varchar(255)" json:"job_title,omitempty"`
	Address          string     `gorm:"type:text" json:"address,omitempty"`
	City             string     `gorm:"type:varchar(100)" json:"city,omitempty"`
	State            string     `gorm:"type:varchar(100)" json:"state,omitempty"`
	Country          string     `gorm:"type:varchar(100)" json:"country,omitempty"`
	PostalCode       string     `gorm:"type:varchar(20)" json:"postal_code,omitempty"`
	DateOfBirth      *time.Time `json:"date_of_birth,omitempty"`
	
	// Tracking Fields
	FirstContactAt   *time.Time `json:"first_contact_at,omitempty"`
	LastContactAt    *time.Time `json:"last_contact_at,omitempty"`
	TotalMessages    int        `gorm:"default:0" json:"total_messages"`
	TotalConversations int      `gorm:"default:0" json:"total_conversations"`
	
	// Marketing Fields
	OptInMarketing   bool       `gorm:"default:false" json:"opt_in_marketing"`
	OptInAt          *time.Time `json:"opt_in_at,omitempty"`
	OptOutAt         *time.Time `json:"opt_out_at,omitempty"`
	LifetimeValue    float64    `gorm:"default:0" json:"lifetime_value"`
	LeadScore        int        `gorm:"default:0" json:"lead_score"`
	SegmentID        *uuid.UUID `gorm:"type:uuid" json:"segment_id,omitempty"`
	
	// External IDs
	ExternalID       string     `gorm:"type:varchar(255);index" json:"external_id,omitempty"`
	ERPCustomerID    string     `gorm:"type:varchar(255)" json:"erp_customer_id,omitempty"`
	CRMContactID     string     `gorm:"type:varchar(255)" json:"crm_contact_id,omitempty"`
	
	// AI Context
	AIContext        JSON       `gorm:"type:jsonb" json:"ai_context,omitempty"`
	Preferences      JSON       `gorm:"type:jsonb" json:"preferences,omitempty"`
}

// TableName sets the table name
func (Contact) TableName() string {
	return "contacts"
}

// BeforeCreate hook
func (c *Contact) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.FirstContactAt == nil {
		now := time.Now()
		c.FirstContactAt = &now
	}
	return c.TenantModel.BeforeCreate(tx)
}

// ContactStats represents contact statistics
type ContactStats struct {
	TotalContacts      int            `json:"total_contacts"`
	ActiveContacts     int            `json:"active_contacts"`
	BlockedContacts    int            `json:"blocked_contacts"`
	NewContactsToday   int            `json:"new_contacts_today"`
	NewContactsWeek    int            `json:"new_contacts_week"`
	NewContactsMonth   int            `json:"new_contacts_month"`
	WithConversations  int            `json:"with_conversations"`
	OptedInMarketing   int            `json:"opted_in_marketing"`
	BySource           map[string]int `json:"by_source"`
	ByStatus           map[string]int `json:"by_status"`
	TopTags            []TagCount     `json:"top_tags"`
	AvgLeadScore       float64        `json:"avg_lead_score"`
	TotalLifetimeValue float64        `json:"total_lifetime_value"`
}

// TagCount represents a tag with its count
type TagCount struct {
	Tag      string `json:"tag"`
	Count    int    `json:"count"`
	Category string `json:"category,omitempty"`
	Color    string `json:"color,omitempty"`
}