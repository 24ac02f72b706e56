package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/amirphl/conference-registry/sequence"
	"gorm.io/gorm"
)

// EventNamespaceConfigSource reads identifier settings from the events table.
// Event IDs are event UUIDs.
type EventNamespaceConfigSource struct {
	events EventRepository
}

func NewEventNamespaceConfigSource(events EventRepository) *EventNamespaceConfigSource {
	return &EventNamespaceConfigSource{events: events}
}

func (s *EventNamespaceConfigSource) GetNamespaceConfig(ctx context.Context, eventID string, kind sequence.ResourceKind) (*sequence.IDSettings, error) {
	event, err := s.events.ByUUID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, nil
	}

	switch kind {
	case sequence.ResourceRegistration:
		return &sequence.IDSettings{
			EventID:     event.UUID.String(),
			Prefix:      event.RegistrationPrefix,
			StartNumber: event.RegistrationStartNumber,
			PadWidth:    event.IDPadWidth,
		}, nil
	case sequence.ResourceAbstract:
		return &sequence.IDSettings{
			EventID:     event.UUID.String(),
			Prefix:      event.EffectiveAbstractPrefix(),
			StartNumber: event.AbstractStartNumber,
			PadWidth:    event.IDPadWidth,
		}, nil
	default:
		return nil, nil
	}
}

// PublicIDScanner finds the highest identifier already stored for an event, including
// identifiers written by imports and manual inserts that never went through the allocator.
type PublicIDScanner struct {
	db *gorm.DB
}

func NewPublicIDScanner(db *gorm.DB) *PublicIDScanner {
	return &PublicIDScanner{db: db}
}

var scanTables = map[sequence.ResourceKind]string{
	sequence.ResourceRegistration: "registrations",
	sequence.ResourceAbstract:     "abstracts",
}

// ScanHighestIssued filters with the same anchored pattern ParseSuffix uses, so an identifier
// counts only when it is exactly "<prefix>-<digits>".
func (s *PublicIDScanner) ScanHighestIssued(ctx context.Context, eventID string, kind sequence.ResourceKind, prefix string) (*int64, error) {
	table, ok := scanTables[kind]
	if !ok {
		return nil, fmt.Errorf("no record table for resource kind %q", kind)
	}
	pattern := sequence.SuffixPattern(prefix)

	query := fmt.Sprintf(`
		SELECT MAX(CAST(SUBSTRING(t.public_id FROM @pattern) AS BIGINT)) AS highest
		FROM %s t
		JOIN events e ON e.id = t.event_id
		WHERE e.uuid = CAST(@event AS UUID) AND t.public_id ~ @pattern
	`, table)

	var result struct {
		Highest sql.NullInt64
	}
	err := s.db.WithContext(ctx).Raw(query, map[string]any{"pattern": pattern, "event": eventID}).Scan(&result).Error
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s for prefix %s: %w", table, prefix, err)
	}
	if !result.Highest.Valid {
		return nil, nil
	}
	v := result.Highest.Int64
	return &v, nil
}
