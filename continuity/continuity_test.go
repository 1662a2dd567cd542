package continuity

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/navigatorbuilds/elara-core/dag"
	"github.com/navigatorbuilds/elara-core/eventbus"
	"github.com/navigatorbuilds/elara-core/identity"
)

type fakeProvider struct{}

func (fakeProvider) MoodVector() (float64, float64, float64, error) { return 0.5, 0.6, 0.7, nil }
func (fakeProvider) MemoryCount() (int, error)                      { return 10, nil }
func (fakeProvider) ModelCount() (int, error)                       { return 2, nil }
func (fakeProvider) PredictionCount() (int, error)                  { return 3, nil }
func (fakeProvider) PrincipleCount() (int, error)                   { return 1, nil }
func (fakeProvider) ActiveGoals() (int, error)                      { return 4, nil }
func (fakeProvider) SessionCount() (int, error)                     { return 5, nil }
func (fakeProvider) AllostaticLoad() (float64, error)                { return 0.2, nil }

func openTestChain(t *testing.T) (*Chain, *eventbus.Bus) {
	t.Helper()
	id, err := identity.Generate(identity.EntityAI, identity.ProfileDual)
	require.NoError(t, err)

	d, err := dag.Open(filepath.Join(t.TempDir(), "dag.sqlite"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })

	bus := eventbus.New(0)
	c, err := Open(id, d, bus, fakeProvider{}, filepath.Join(t.TempDir(), "continuity.json"), nil)
	require.NoError(t, err)
	return c, bus
}

func TestCheckpointBuildsAndInsertsRecord(t *testing.T) {
	c, _ := openTestChain(t)

	r, err := c.Checkpoint("SESSION_ENDED")
	require.NoError(t, err)
	require.Equal(t, "cognitive_checkpoint", r.Metadata["record_type"])
	require.Equal(t, c.State().ChainHead, r.ID)
	require.Equal(t, 1, c.State().ChainCount)
}

func TestCheckpointChainsByPreviousCheckpoint(t *testing.T) {
	c, _ := openTestChain(t)

	r1, err := c.Checkpoint("SESSION_ENDED")
	require.NoError(t, err)
	r2, err := c.Checkpoint("MODEL_CREATED")
	require.NoError(t, err)

	require.Equal(t, r1.ID, r2.Metadata["previous_checkpoint"])
	require.Equal(t, []string{r1.ID}, r2.Parents)
}

func TestVerifyChainSucceedsOnValidChain(t *testing.T) {
	c, _ := openTestChain(t)
	_, err := c.Checkpoint("SESSION_ENDED")
	require.NoError(t, err)
	_, err = c.Checkpoint("MODEL_CREATED")
	require.NoError(t, err)

	result := c.VerifyChain()
	require.True(t, result.OK)
	require.Equal(t, 2, result.VerifiedCount)
	require.Empty(t, result.Breaks)
}

func TestVerifyChainEmptyChainIsOK(t *testing.T) {
	c, _ := openTestChain(t)
	result := c.VerifyChain()
	require.True(t, result.OK)
	require.Equal(t, 0, result.VerifiedCount)
}

func TestTriggerRespectsCooldown(t *testing.T) {
	c, bus := openTestChain(t)

	_, err := bus.Emit("SESSION_ENDED", map[string]interface{}{}, "test")
	require.NoError(t, err)
	require.Equal(t, 1, c.State().ChainCount)

	_, err = bus.Emit("MODEL_CREATED", map[string]interface{}{}, "test")
	require.NoError(t, err)
	require.Equal(t, 1, c.State().ChainCount) // second trigger suppressed by cooldown
}

func TestMoodChangedRequiresThresholdBreach(t *testing.T) {
	c, bus := openTestChain(t)

	_, err := bus.Emit("MOOD_CHANGED", map[string]interface{}{"valence_delta": 0.1}, "test")
	require.NoError(t, err)
	require.Equal(t, 0, c.State().ChainCount)

	_, err = bus.Emit("MOOD_CHANGED", map[string]interface{}{"valence_delta": 0.4}, "test")
	require.NoError(t, err)
	require.Equal(t, 1, c.State().ChainCount)
}
