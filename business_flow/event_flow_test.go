package businessflow

import (
	"testing"

	"github.com/amirphl/conference-registry/models"
	"github.com/amirphl/conference-registry/utils"
	"github.com/stretchr/testify/assert"
)

func TestValidateEventIDSettings(t *testing.T) {
	valid := func() *models.Event {
		return &models.Event{
			Code:                    "EVT",
			RegistrationPrefix:      "REG",
			RegistrationStartNumber: 1,
			AbstractStartNumber:     1,
			IDPadWidth:              4,
		}
	}

	assert.NoError(t, validateEventIDSettings(valid()))

	tests := []struct {
		name   string
		mutate func(e *models.Event)
		code   string
	}{
		{"BadRegistrationPrefix", func(e *models.Event) { e.RegistrationPrefix = "REG--A" }, "INVALID_REGISTRATION_PREFIX"},
		{"EmptyRegistrationPrefix", func(e *models.Event) { e.RegistrationPrefix = "" }, "INVALID_REGISTRATION_PREFIX"},
		{"BadAbstractPrefix", func(e *models.Event) { e.AbstractPrefix = utils.ToPtr("ABS_1") }, "INVALID_ABSTRACT_PREFIX"},
		{"SamePrefixes", func(e *models.Event) { e.AbstractPrefix = utils.ToPtr("REG") }, "DUPLICATE_ID_PREFIX"},
		{"ZeroStart", func(e *models.Event) { e.AbstractStartNumber = 0 }, "INVALID_START_NUMBER"},
		{"PadTooWide", func(e *models.Event) { e.IDPadWidth = 19 }, "INVALID_PAD_WIDTH"},
		{"PadZero", func(e *models.Event) { e.IDPadWidth = 0 }, "INVALID_PAD_WIDTH"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := valid()
			tt.mutate(e)

			err := validateEventIDSettings(e)
			assert.True(t, IsInvalidEventConfig(err))
			var be *BusinessError
			if assert.ErrorAs(t, err, &be) {
				assert.Equal(t, tt.code, be.Code)
			}
		})
	}
}
