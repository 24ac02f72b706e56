package businessflow

import (
	"context"
	"fmt"
	"testing"

	"github.com/amirphl/conference-registry/sequence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubInspector struct {
	snapshot *sequence.Snapshot
	report   *sequence.ReconcileReport
	err      error
	lastKind sequence.ResourceKind
}

func (s *stubInspector) Peek(_ context.Context, _ string, kind sequence.ResourceKind) (*sequence.Snapshot, error) {
	s.lastKind = kind
	return s.snapshot, s.err
}

func (s *stubInspector) Reconcile(_ context.Context, _ string, kind sequence.ResourceKind) (*sequence.ReconcileReport, error) {
	s.lastKind = kind
	return s.report, s.err
}

func TestSequenceAdminFlowInspect(t *testing.T) {
	ctx := context.Background()
	stored, highest := int64(3), int64(50)
	inspector := &stubInspector{snapshot: &sequence.Snapshot{
		Config: sequence.NamespaceConfig{
			Namespace: "e1_registration_id", EventID: "e1", Kind: sequence.ResourceRegistration,
			Prefix: "REG", StartNumber: 1, PadWidth: 4,
		},
		Stored:          &stored,
		HighestObserved: &highest,
		Floor:           50,
		NextNumber:      51,
		NextID:          "REG-0051",
	}}
	flow := NewSequenceAdminFlow(inspector)

	resp, err := flow.Inspect(ctx, "e1", " Registration ")
	require.NoError(t, err)
	assert.Equal(t, sequence.ResourceRegistration, inspector.lastKind)
	assert.Equal(t, "e1_registration_id", resp.Namespace)
	assert.Equal(t, int64(3), *resp.StoredValue)
	assert.Equal(t, int64(50), resp.Floor)
	assert.Equal(t, "REG-0051", resp.NextPublicID)

	_, err = flow.Inspect(ctx, "e1", "invoice")
	assert.True(t, IsUnknownResourceKind(err))
}

func TestSequenceAdminFlowReconcile(t *testing.T) {
	ctx := context.Background()
	stored, highest := int64(3), int64(50)
	inspector := &stubInspector{report: &sequence.ReconcileReport{
		Namespace: "e1_abstract_id", StoredBefore: &stored, HighestObserved: &highest, Floor: 50, Healed: true,
	}}
	flow := NewSequenceAdminFlow(inspector)

	resp, err := flow.Reconcile(ctx, "e1", "abstract", NewClientMetadata("127.0.0.1", "test"))
	require.NoError(t, err)
	assert.Equal(t, sequence.ResourceAbstract, inspector.lastKind)
	assert.True(t, resp.Healed)
	assert.Equal(t, int64(50), resp.Floor)
	assert.Equal(t, "Counter raised past the highest stored identifier", resp.Message)

	inspector.err = fmt.Errorf("%w: event e1 not found", sequence.ErrNamespaceResolution)
	_, err = flow.Reconcile(ctx, "e1", "abstract", nil)
	var be *BusinessError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, CodeNamespaceNotConfigured, be.Code)
}
