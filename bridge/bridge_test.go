package bridge

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/navigatorbuilds/elara-core/dag"
	"github.com/navigatorbuilds/elara-core/eventbus"
	"github.com/navigatorbuilds/elara-core/identity"
)

func openTestBridge(t *testing.T) (*Bridge, *eventbus.Bus) {
	t.Helper()
	id, err := identity.Generate(identity.EntityAI, identity.ProfileDual)
	require.NoError(t, err)

	d, err := dag.Open(filepath.Join(t.TempDir(), "dag.sqlite"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })

	bus := eventbus.New(0)
	b, err := Open(id, d, bus, 0, nil)
	require.NoError(t, err)
	return b, bus
}

func TestBridgeInsertsRecordOnCreationEvent(t *testing.T) {
	b, bus := openTestBridge(t)

	_, err := bus.Emit("MODEL_CREATED", map[string]interface{}{
		"model_id": "model-1",
		"summary":  "a new model",
	}, "test")
	require.NoError(t, err)

	stats, err := b.Stats()
	require.NoError(t, err)
	require.Equal(t, int64(1), stats.Processed)
	require.Equal(t, 1, stats.DAGRecordCount)
}

func TestBridgeSkipsInvalidPayload(t *testing.T) {
	b, bus := openTestBridge(t)

	_, err := bus.Emit("MODEL_CREATED", nil, "test")
	require.NoError(t, err)

	stats, err := b.Stats()
	require.NoError(t, err)
	require.Equal(t, int64(1), stats.SkippedInvalid)
	require.Equal(t, int64(0), stats.Processed)
}

func TestBridgeDedupsByArtifactID(t *testing.T) {
	b, bus := openTestBridge(t)

	payload := map[string]interface{}{"model_id": "model-1", "summary": "a"}
	_, err := bus.Emit("MODEL_CREATED", payload, "test")
	require.NoError(t, err)
	_, err = bus.Emit("MODEL_CREATED", payload, "test")
	require.NoError(t, err)

	stats, err := b.Stats()
	require.NoError(t, err)
	require.Equal(t, int64(1), stats.Processed)
	require.Equal(t, int64(1), stats.SkippedDedup)
}

func TestBridgeAdvancesHeadAsParent(t *testing.T) {
	b, bus := openTestBridge(t)

	_, err := bus.Emit("MODEL_CREATED", map[string]interface{}{"model_id": "m1"}, "test")
	require.NoError(t, err)
	_, err = bus.Emit("MODEL_CREATED", map[string]interface{}{"model_id": "m2"}, "test")
	require.NoError(t, err)

	matches, err := b.Provenance("m2")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Len(t, matches[0].Parents, 1)
}

func TestBridgeEmitsArtifactValidated(t *testing.T) {
	b, bus := openTestBridge(t)
	received := false
	bus.On("ARTIFACT_VALIDATED", func(eventbus.Event) { received = true }, 0, "test")

	_, err := bus.Emit("MODEL_CREATED", map[string]interface{}{"model_id": "m1"}, "test")
	require.NoError(t, err)
	require.True(t, received)
}

func TestBridgeRateLimitsAcceptances(t *testing.T) {
	id, err := identity.Generate(identity.EntityAI, identity.ProfileDual)
	require.NoError(t, err)
	d, err := dag.Open(filepath.Join(t.TempDir(), "dag.sqlite"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	bus := eventbus.New(0)
	b, err := Open(id, d, bus, 1, nil)
	require.NoError(t, err)

	_, err = bus.Emit("MODEL_CREATED", map[string]interface{}{"model_id": "m1"}, "test")
	require.NoError(t, err)
	_, err = bus.Emit("MODEL_CREATED", map[string]interface{}{"model_id": "m2"}, "test")
	require.NoError(t, err)

	stats, err := b.Stats()
	require.NoError(t, err)
	require.Equal(t, int64(1), stats.Processed)
	require.Equal(t, int64(1), stats.SkippedRateLimit)
}

func TestProvenanceMatchesOnlyArtifact(t *testing.T) {
	b, bus := openTestBridge(t)
	_, err := bus.Emit("MODEL_CREATED", map[string]interface{}{"model_id": "a"}, "test")
	require.NoError(t, err)
	_, err = bus.Emit("MODEL_CREATED", map[string]interface{}{"model_id": "b"}, "test")
	require.NoError(t, err)

	matches, err := b.Provenance("a")
	require.NoError(t, err)
	require.Len(t, matches, 1)
}
