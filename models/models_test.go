package models

import (
	"testing"

	"github.com/amirphl/conference-registry/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableNames(t *testing.T) {
	assert.Equal(t, "events", Event{}.TableName())
	assert.Equal(t, "registrations", Registration{}.TableName())
	assert.Equal(t, "abstracts", Abstract{}.TableName())
	assert.Equal(t, "sequence_counters", SequenceCounter{}.TableName())
}

func TestEventEffectiveAbstractPrefix(t *testing.T) {
	e := &Event{Code: "EVT"}
	assert.Equal(t, "ABS-EVT", e.EffectiveAbstractPrefix())

	e.AbstractPrefix = utils.ToPtr("")
	assert.Equal(t, "ABS-EVT", e.EffectiveAbstractPrefix())

	e.AbstractPrefix = utils.ToPtr("PAPER")
	assert.Equal(t, "PAPER", e.EffectiveAbstractPrefix())
}

func TestRegistrationBeforeCreate(t *testing.T) {
	r := &Registration{EventID: 1, PublicID: "REG-0001"}
	require.NoError(t, r.BeforeCreate(nil))
	assert.NotEqual(t, uuid.Nil, r.UUID)
	assert.Equal(t, RegistrationStatusPending, r.Status)
	assert.Equal(t, RegistrationSourceAPI, r.Source)
	assert.False(t, r.CreatedAt.IsZero())

	imported := &Registration{Source: RegistrationSourceImport, Status: RegistrationStatusConfirmed}
	require.NoError(t, imported.BeforeCreate(nil))
	assert.Equal(t, RegistrationSourceImport, imported.Source)
	assert.Equal(t, RegistrationStatusConfirmed, imported.Status)
}

func TestRegistrationStatus(t *testing.T) {
	assert.True(t, RegistrationStatusConfirmed.Valid())
	assert.False(t, RegistrationStatus("archived").Valid())

	var s RegistrationStatus
	require.NoError(t, s.Scan([]byte("cancelled")))
	assert.Equal(t, RegistrationStatusCancelled, s)
	require.NoError(t, s.Scan(nil))
	assert.Equal(t, RegistrationStatus(""), s)
	assert.Error(t, s.Scan(42))

	v, err := RegistrationStatusPending.Value()
	require.NoError(t, err)
	assert.Equal(t, "pending", v)

	_, err = RegistrationStatus("archived").Value()
	assert.Error(t, err)
}

func TestAbstractBeforeCreate(t *testing.T) {
	a := &Abstract{EventID: 1, PublicID: "ABS-EVT-0001"}
	require.NoError(t, a.BeforeCreate(nil))
	assert.NotEqual(t, uuid.Nil, a.UUID)
	assert.Equal(t, AbstractStatusSubmitted, a.Status)
}
