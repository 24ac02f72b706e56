package models

import (
	"time"

	"github.com/amirphl/conference-registry/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Abstract status values
const (
	AbstractStatusSubmitted = "submitted"
	AbstractStatusAccepted  = "accepted"
	AbstractStatusRejected  = "rejected"
)

// Abstract is a paper abstract submitted to an event, optionally linked to a registration.
// Table: abstracts
type Abstract struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID           uuid.UUID `gorm:"type:uuid;uniqueIndex;not null;default:gen_random_uuid()" json:"uuid"`
	EventID        uint      `gorm:"not null;uniqueIndex:uk_abstracts_event_public_id,priority:1" json:"event_id"`
	RegistrationID *uint     `gorm:"index" json:"registration_id,omitempty"`
	PublicID       string    `gorm:"type:varchar(64);not null;uniqueIndex:uk_abstracts_event_public_id,priority:2" json:"public_id"`
	Title          string    `gorm:"type:varchar(500);not null" json:"title"`
	Body           string    `gorm:"type:text;not null" json:"body"`
	Status         string    `gorm:"type:varchar(20);not null;default:'submitted'" json:"status"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	// Relations
	Event        *Event        `gorm:"foreignKey:EventID;references:ID;constraint:OnDelete:CASCADE" json:"event,omitempty"`
	Registration *Registration `gorm:"foreignKey:RegistrationID;references:ID;constraint:OnDelete:SET NULL" json:"registration,omitempty"`
}

func (Abstract) TableName() string { return "abstracts" }

// BeforeCreate ensures UUID, status and timestamps are set
func (a *Abstract) BeforeCreate(tx *gorm.DB) error {
	if a.UUID == uuid.Nil {
		a.UUID = uuid.New()
	}
	if a.Status == "" {
		a.Status = AbstractStatusSubmitted
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = utils.UTCNow()
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = utils.UTCNow()
	}
	return nil
}

// AbstractFilter represents filter criteria for abstract queries
type AbstractFilter struct {
	ID             *uint      `json:"id,omitempty"`
	UUID           *uuid.UUID `json:"uuid,omitempty"`
	EventID        *uint      `json:"event_id,omitempty"`
	RegistrationID *uint      `json:"registration_id,omitempty"`
	PublicID       *string    `json:"public_id,omitempty"`
	Status         *string    `json:"status,omitempty"`
}
