package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/amirphl/conference-registry/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RegistrationStatus represents the lifecycle state of a registration
type RegistrationStatus string

const (
	RegistrationStatusPending   RegistrationStatus = "pending"
	RegistrationStatusConfirmed RegistrationStatus = "confirmed"
	RegistrationStatusCancelled RegistrationStatus = "cancelled"
)

func (s RegistrationStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s RegistrationStatus) Valid() bool {
	switch s {
	case RegistrationStatusPending, RegistrationStatusConfirmed, RegistrationStatusCancelled:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for RegistrationStatus
func (s *RegistrationStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = RegistrationStatus(v)
	case []byte:
		*s = RegistrationStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into RegistrationStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for RegistrationStatus
func (s RegistrationStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid RegistrationStatus: %s", s)
	}
	return string(s), nil
}

// RegistrationSource records how a registration entered the system
type RegistrationSource string

const (
	RegistrationSourceAPI    RegistrationSource = "api"
	RegistrationSourceImport RegistrationSource = "import"
	RegistrationSourceManual RegistrationSource = "manual"
)

// Registration is one attendee registration for an event.
// Table: registrations
// PublicID is the human readable identifier (REG-0007), unique within the event
type Registration struct {
	ID        uint               `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID      uuid.UUID          `gorm:"type:uuid;uniqueIndex;not null;default:gen_random_uuid()" json:"uuid"`
	EventID   uint               `gorm:"not null;uniqueIndex:uk_registrations_event_public_id,priority:1" json:"event_id"`
	PublicID  string             `gorm:"type:varchar(64);not null;uniqueIndex:uk_registrations_event_public_id,priority:2" json:"public_id"`
	FirstName string             `gorm:"type:varchar(255);not null" json:"first_name"`
	LastName  string             `gorm:"type:varchar(255);not null" json:"last_name"`
	Email     string             `gorm:"type:varchar(255);not null;index" json:"email"`
	Mobile    *string            `gorm:"type:varchar(20)" json:"mobile,omitempty"`
	Category  *string            `gorm:"type:varchar(64)" json:"category,omitempty"`
	Status    RegistrationStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	Source    RegistrationSource `gorm:"type:varchar(20);not null;default:'api'" json:"source"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	// Relations
	Event *Event `gorm:"foreignKey:EventID;references:ID;constraint:OnDelete:CASCADE" json:"event,omitempty"`
}

func (Registration) TableName() string { return "registrations" }

// BeforeCreate ensures UUID, status and timestamps are set
func (r *Registration) BeforeCreate(tx *gorm.DB) error {
	if r.UUID == uuid.Nil {
		r.UUID = uuid.New()
	}
	if r.Status == "" {
		r.Status = RegistrationStatusPending
	}
	if r.Source == "" {
		r.Source = RegistrationSourceAPI
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = utils.UTCNow()
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = utils.UTCNow()
	}
	return nil
}

// RegistrationFilter represents filter criteria for registration queries
type RegistrationFilter struct {
	ID       *uint               `json:"id,omitempty"`
	UUID     *uuid.UUID          `json:"uuid,omitempty"`
	EventID  *uint               `json:"event_id,omitempty"`
	PublicID *string             `json:"public_id,omitempty"`
	Email    *string             `json:"email,omitempty"`
	Status   *RegistrationStatus `json:"status,omitempty"`
	Source   *RegistrationSource `json:"source,omitempty"`
}
