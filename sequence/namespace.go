package sequence

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// ResourceKind tags the kind of record an identifier is issued for.
type ResourceKind string

const (
	ResourceRegistration ResourceKind = "registration"
	ResourceAbstract     ResourceKind = "abstract"
)

// ResourceKinds lists every kind the allocator issues identifiers for.
var ResourceKinds = []ResourceKind{ResourceRegistration, ResourceAbstract}

func (k ResourceKind) Valid() bool {
	return k == ResourceRegistration || k == ResourceAbstract
}

// ParseResourceKind accepts the kind tag used in URLs and config ("registration", "abstract").
func ParseResourceKind(s string) (ResourceKind, bool) {
	k := ResourceKind(strings.ToLower(strings.TrimSpace(s)))
	return k, k.Valid()
}

// IDSettings is what an event configures for one resource kind. EventID is the source's
// canonical spelling of the event identifier; when set, namespaces are keyed by it so that
// equivalent spellings of one event share a single counter.
type IDSettings struct {
	EventID     string
	Prefix      string
	StartNumber int64
	PadWidth    int
}

// NamespaceConfig is a resolved, validated counter namespace.
type NamespaceConfig struct {
	Namespace   string
	EventID     string
	Kind        ResourceKind
	Prefix      string
	StartNumber int64
	PadWidth    int
}

// Baseline is the stored value a counter starts from before its first allocation.
func (c NamespaceConfig) Baseline() int64 {
	return c.StartNumber - 1
}

// ConfigSource looks up the ID settings an event carries for a resource kind.
// It returns (nil, nil) when the event does not exist.
type ConfigSource interface {
	GetNamespaceConfig(ctx context.Context, eventID string, kind ResourceKind) (*IDSettings, error)
}

// NamespaceKey is the counter key for an (event, kind) pair, e.g. "<eventId>_registration_id".
func NamespaceKey(eventID string, kind ResourceKind) string {
	return fmt.Sprintf("%s_%s_id", eventID, kind)
}

var prefixPattern = regexp.MustCompile(`^[A-Za-z0-9]+(-[A-Za-z0-9]+)*$`)

// ValidPrefix reports whether prefix is usable: alphanumeric groups joined by single dashes.
func ValidPrefix(prefix string) bool {
	return prefixPattern.MatchString(prefix)
}

// Resolver derives namespaces from event configuration. It is read-only.
type Resolver struct {
	source ConfigSource
}

func NewResolver(source ConfigSource) *Resolver {
	return &Resolver{source: source}
}

// Resolve returns the namespace config for eventID and kind. Missing events and unusable
// settings wrap ErrNamespaceResolution; lookup failures wrap ErrAllocationFailure.
func (r *Resolver) Resolve(ctx context.Context, eventID string, kind ResourceKind) (*NamespaceConfig, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return nil, fmt.Errorf("%w: event id is required", ErrNamespaceResolution)
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown resource kind %q", ErrNamespaceResolution, kind)
	}

	settings, err := r.source.GetNamespaceConfig(ctx, eventID, kind)
	if err != nil {
		return nil, allocationFailure("resolve", NamespaceKey(eventID, kind), err)
	}
	if settings == nil {
		return nil, fmt.Errorf("%w: event %s not found", ErrNamespaceResolution, eventID)
	}

	if canonical := strings.TrimSpace(settings.EventID); canonical != "" {
		eventID = canonical
	}

	prefix := strings.TrimSpace(settings.Prefix)
	if !ValidPrefix(prefix) {
		return nil, fmt.Errorf("%w: event %s has invalid %s prefix %q", ErrNamespaceResolution, eventID, kind, settings.Prefix)
	}
	if settings.StartNumber < 1 {
		return nil, fmt.Errorf("%w: event %s has invalid %s start number %d", ErrNamespaceResolution, eventID, kind, settings.StartNumber)
	}
	pad := settings.PadWidth
	if pad == 0 {
		pad = DefaultPadWidth
	}
	if pad < 1 || pad > MaxPadWidth {
		return nil, fmt.Errorf("%w: event %s has invalid pad width %d", ErrNamespaceResolution, eventID, settings.PadWidth)
	}

	return &NamespaceConfig{
		Namespace:   NamespaceKey(eventID, kind),
		EventID:     eventID,
		Kind:        kind,
		Prefix:      prefix,
		StartNumber: settings.StartNumber,
		PadWidth:    pad,
	}, nil
}
