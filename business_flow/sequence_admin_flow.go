package businessflow

import (
	"context"
	"log"

	"github.com/amirphl/conference-registry/app/dto"
	"github.com/amirphl/conference-registry/sequence"
)

// SequenceAdminFlow lets administrators inspect and heal identifier counters
type SequenceAdminFlow interface {
	Inspect(ctx context.Context, eventUUID, kind string) (*dto.SequenceStateResponse, error)
	Reconcile(ctx context.Context, eventUUID, kind string, metadata *ClientMetadata) (*dto.ReconcileSequenceResponse, error)
}

// SequenceAdminFlowImpl implements SequenceAdminFlow
type SequenceAdminFlowImpl struct {
	inspector SequenceInspector
}

func NewSequenceAdminFlow(inspector SequenceInspector) SequenceAdminFlow {
	return &SequenceAdminFlowImpl{inspector: inspector}
}

func parseKind(kind string) (sequence.ResourceKind, error) {
	k, ok := sequence.ParseResourceKind(kind)
	if !ok {
		return "", NewBusinessErrorf("UNKNOWN_RESOURCE_KIND", "unknown resource kind %q", ErrUnknownResourceKind, kind)
	}
	return k, nil
}

func (f *SequenceAdminFlowImpl) Inspect(ctx context.Context, eventUUID, kind string) (*dto.SequenceStateResponse, error) {
	k, err := parseKind(kind)
	if err != nil {
		return nil, err
	}

	snap, err := f.inspector.Peek(ctx, eventUUID, k)
	if err != nil {
		return nil, allocationError(err)
	}

	return &dto.SequenceStateResponse{
		EventUUID:       snap.Config.EventID,
		Kind:            string(snap.Config.Kind),
		Namespace:       snap.Config.Namespace,
		Prefix:          snap.Config.Prefix,
		StartNumber:     snap.Config.StartNumber,
		PadWidth:        snap.Config.PadWidth,
		StoredValue:     snap.Stored,
		HighestObserved: snap.HighestObserved,
		Floor:           snap.Floor,
		NextNumber:      snap.NextNumber,
		NextPublicID:    snap.NextID,
	}, nil
}

func (f *SequenceAdminFlowImpl) Reconcile(ctx context.Context, eventUUID, kind string, metadata *ClientMetadata) (*dto.ReconcileSequenceResponse, error) {
	k, err := parseKind(kind)
	if err != nil {
		return nil, err
	}

	report, err := f.inspector.Reconcile(ctx, eventUUID, k)
	if err != nil {
		return nil, allocationError(err)
	}

	requestID := ""
	if metadata != nil {
		requestID = metadata.RequestID
	}
	log.Printf("manual reconcile of %s: floor %d, healed %t, request %s", report.Namespace, report.Floor, report.Healed, requestID)

	msg := "Counter is already ahead of every stored identifier"
	if report.Healed {
		msg = "Counter raised past the highest stored identifier"
	}
	return &dto.ReconcileSequenceResponse{
		Message:         msg,
		Namespace:       report.Namespace,
		StoredBefore:    report.StoredBefore,
		HighestObserved: report.HighestObserved,
		Floor:           report.Floor,
		Healed:          report.Healed,
	}, nil
}
