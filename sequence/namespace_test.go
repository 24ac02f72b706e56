package sequence

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	ctx := context.Background()
	source := newFakeSource().
		set("evt-1", ResourceRegistration, IDSettings{Prefix: "REG", StartNumber: 1, PadWidth: 4}).
		set("evt-1", ResourceAbstract, IDSettings{Prefix: "ABS-EVT", StartNumber: 100}).
		set("bad-prefix", ResourceRegistration, IDSettings{Prefix: "RE G", StartNumber: 1}).
		set("trailing-dash", ResourceRegistration, IDSettings{Prefix: "REG-", StartNumber: 1}).
		set("empty-prefix", ResourceRegistration, IDSettings{Prefix: "", StartNumber: 1}).
		set("zero-start", ResourceRegistration, IDSettings{Prefix: "REG", StartNumber: 0}).
		set("wide-pad", ResourceRegistration, IDSettings{Prefix: "REG", StartNumber: 1, PadWidth: 19})
	resolver := NewResolver(source)

	t.Run("Registration", func(t *testing.T) {
		ns, err := resolver.Resolve(ctx, "evt-1", ResourceRegistration)
		require.NoError(t, err)
		assert.Equal(t, "evt-1_registration_id", ns.Namespace)
		assert.Equal(t, "REG", ns.Prefix)
		assert.Equal(t, int64(1), ns.StartNumber)
		assert.Equal(t, int64(0), ns.Baseline())
		assert.Equal(t, 4, ns.PadWidth)
	})

	t.Run("AbstractDefaultsPadWidth", func(t *testing.T) {
		ns, err := resolver.Resolve(ctx, "evt-1", ResourceAbstract)
		require.NoError(t, err)
		assert.Equal(t, "evt-1_abstract_id", ns.Namespace)
		assert.Equal(t, "ABS-EVT", ns.Prefix)
		assert.Equal(t, int64(99), ns.Baseline())
		assert.Equal(t, DefaultPadWidth, ns.PadWidth)
	})

	t.Run("UnknownEvent", func(t *testing.T) {
		_, err := resolver.Resolve(ctx, "missing", ResourceRegistration)
		assert.True(t, IsNamespaceResolution(err))
	})

	t.Run("UnconfiguredKind", func(t *testing.T) {
		_, err := resolver.Resolve(ctx, "bad-prefix", ResourceAbstract)
		assert.True(t, IsNamespaceResolution(err))
	})

	t.Run("EmptyEventID", func(t *testing.T) {
		_, err := resolver.Resolve(ctx, "  ", ResourceRegistration)
		assert.True(t, IsNamespaceResolution(err))
	})

	t.Run("UnknownKind", func(t *testing.T) {
		_, err := resolver.Resolve(ctx, "evt-1", ResourceKind("speaker"))
		assert.True(t, IsNamespaceResolution(err))
	})

	for _, eventID := range []string{"bad-prefix", "trailing-dash", "empty-prefix", "zero-start", "wide-pad"} {
		t.Run("Invalid/"+eventID, func(t *testing.T) {
			_, err := resolver.Resolve(ctx, eventID, ResourceRegistration)
			assert.True(t, IsNamespaceResolution(err))
			assert.False(t, IsRetryable(err))
		})
	}
}

func TestResolveLookupFailureIsRetryable(t *testing.T) {
	source := newFakeSource()
	source.err = errors.New("connection refused")

	_, err := NewResolver(source).Resolve(context.Background(), "evt-1", ResourceRegistration)
	require.Error(t, err)
	assert.True(t, IsAllocationFailure(err))
	assert.True(t, IsRetryable(err))
	assert.False(t, IsNamespaceResolution(err))
}

func TestParseResourceKind(t *testing.T) {
	k, ok := ParseResourceKind(" Registration ")
	assert.True(t, ok)
	assert.Equal(t, ResourceRegistration, k)

	k, ok = ParseResourceKind("abstract")
	assert.True(t, ok)
	assert.Equal(t, ResourceAbstract, k)

	_, ok = ParseResourceKind("invoice")
	assert.False(t, ok)
}

func TestNamespaceKeyIsolation(t *testing.T) {
	assert.NotEqual(t, NamespaceKey("e1", ResourceRegistration), NamespaceKey("e1", ResourceAbstract))
	assert.NotEqual(t, NamespaceKey("e1", ResourceRegistration), NamespaceKey("e2", ResourceRegistration))
}

func TestResolveUsesCanonicalEventID(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	resolver := NewResolver(uuidSource{id: id})

	for _, spelling := range []string{
		id.String(),
		strings.ToUpper(id.String()),
		"urn:uuid:" + id.String(),
		"{" + id.String() + "}",
	} {
		ns, err := resolver.Resolve(ctx, spelling, ResourceRegistration)
		require.NoError(t, err, spelling)
		assert.Equal(t, id.String(), ns.EventID, spelling)
		assert.Equal(t, id.String()+"_registration_id", ns.Namespace, spelling)
	}
}
