package models

import "time"

// SequenceCounter stores the last identifier number issued in one namespace.
// Rows are created lazily by upsert and never deleted; LastValue only grows.
type SequenceCounter struct {
	Namespace string    `gorm:"primaryKey;size:128" json:"namespace"`
	LastValue int64     `gorm:"not null" json:"last_value"`
	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

func (SequenceCounter) TableName() string { return "sequence_counters" }
