package testing

import (
	"fmt"
	"strings"

	"github.com/amirphl/conference-registry/models"
	"github.com/amirphl/conference-registry/utils"
	"github.com/google/uuid"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestEvent creates an active event with a random code and default identifier settings
func (tf *TestFixtures) CreateTestEvent() (*models.Event, error) {
	code := "EVT" + strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	event := &models.Event{
		Code:                    code,
		Name:                    "Test Conference " + code,
		RegistrationPrefix:      "REG",
		RegistrationStartNumber: 1,
		AbstractStartNumber:     1,
		IDPadWidth:              4,
		IsActive:                utils.ToPtr(true),
	}
	if err := tf.DB.DB.Create(event).Error; err != nil {
		return nil, fmt.Errorf("failed to create test event: %w", err)
	}
	return event, nil
}

// CreateTestRegistration inserts a registration with the given public identifier directly,
// the way a legacy import or a manual database fix would.
func (tf *TestFixtures) CreateTestRegistration(eventID uint, publicID string) (*models.Registration, error) {
	reg := &models.Registration{
		EventID:   eventID,
		PublicID:  publicID,
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     fmt.Sprintf("jane.%s@example.com", strings.ToLower(publicID)),
		Source:    models.RegistrationSourceManual,
	}
	if err := tf.DB.DB.Create(reg).Error; err != nil {
		return nil, fmt.Errorf("failed to create test registration %s: %w", publicID, err)
	}
	return reg, nil
}

// CreateTestAbstract inserts an abstract with the given public identifier directly
func (tf *TestFixtures) CreateTestAbstract(eventID uint, publicID string) (*models.Abstract, error) {
	abs := &models.Abstract{
		EventID:  eventID,
		PublicID: publicID,
		Title:    "On " + publicID,
		Body:     "Abstract body",
	}
	if err := tf.DB.DB.Create(abs).Error; err != nil {
		return nil, fmt.Errorf("failed to create test abstract %s: %w", publicID, err)
	}
	return abs, nil
}
