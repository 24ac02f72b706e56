package models

import (
	"time"

	"github.com/amirphl/conference-registry/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Event is a conference. It carries the identifier settings for its registrations and abstracts.
// Table: events
// AbstractPrefix is nullable; when unset the abstract prefix is "ABS-<code>"
type Event struct {
	ID                      uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID                    uuid.UUID `gorm:"type:uuid;uniqueIndex;not null;default:gen_random_uuid()" json:"uuid"`
	Code                    string    `gorm:"type:varchar(32);uniqueIndex:uk_events_code;not null" json:"code"`
	Name                    string    `gorm:"type:varchar(255);not null" json:"name"`
	RegistrationPrefix      string    `gorm:"type:varchar(32);not null;default:'REG'" json:"registration_prefix"`
	RegistrationStartNumber int64     `gorm:"not null;default:1" json:"registration_start_number"`
	AbstractPrefix          *string   `gorm:"type:varchar(32)" json:"abstract_prefix,omitempty"`
	AbstractStartNumber     int64     `gorm:"not null;default:1" json:"abstract_start_number"`
	IDPadWidth              int       `gorm:"column:id_pad_width;not null;default:4" json:"id_pad_width"`
	IsActive                *bool     `gorm:"default:true;index" json:"is_active,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Event) TableName() string { return "events" }

// EffectiveAbstractPrefix returns the configured abstract prefix or "ABS-<code>"
func (e *Event) EffectiveAbstractPrefix() string {
	if e.AbstractPrefix != nil && *e.AbstractPrefix != "" {
		return *e.AbstractPrefix
	}
	return "ABS-" + e.Code
}

// BeforeCreate ensures UUID and timestamps are set
func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.UUID == uuid.Nil {
		e.UUID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = utils.UTCNow()
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = utils.UTCNow()
	}
	return nil
}

// EventFilter represents filter criteria for event queries
type EventFilter struct {
	ID       *uint      `json:"id,omitempty"`
	UUID     *uuid.UUID `json:"uuid,omitempty"`
	Code     *string    `json:"code,omitempty"`
	IsActive *bool      `json:"is_active,omitempty"`
}
