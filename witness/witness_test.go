package witness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := Open(filepath.Join(t.TempDir(), "attestations.sqlite"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func TestAddAttestationIsIdempotent(t *testing.T) {
	m := openTestManager(t)
	a := Attestation{RecordID: "r1", WitnessIdentityHash: "w1", Signature: []byte("sig"), Timestamp: 1.0}

	require.NoError(t, m.AddAttestation(a))
	require.NoError(t, m.AddAttestation(a))

	count, err := m.WitnessCount("r1")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestGetAttestationsReturnsAll(t *testing.T) {
	m := openTestManager(t)
	require.NoError(t, m.AddAttestation(Attestation{RecordID: "r1", WitnessIdentityHash: "w1", Signature: []byte("a"), Timestamp: 1.0}))
	require.NoError(t, m.AddAttestation(Attestation{RecordID: "r1", WitnessIdentityHash: "w2", Signature: []byte("b"), Timestamp: 2.0}))

	attestations, err := m.GetAttestations("r1")
	require.NoError(t, err)
	require.Len(t, attestations, 2)
}

func TestWitnessCountZeroForUnknownRecord(t *testing.T) {
	m := openTestManager(t)
	count, err := m.WitnessCount("nonexistent")
	require.NoError(t, err)
	require.Equal(t, 0, count)
}

func TestTrustScoreAnchors(t *testing.T) {
	require.Equal(t, 0.0, Compute(0))
	require.InDelta(t, 0.5, Compute(1), 1e-9)
	require.Less(t, Compute(1), 1.0)
}

func TestTrustScoreMonotone(t *testing.T) {
	prev := Compute(0)
	for i := 1; i <= 20; i++ {
		cur := Compute(i)
		require.Greater(t, cur, prev)
		require.Less(t, cur, 1.0)
		prev = cur
	}
}

func TestTrustLevelThresholds(t *testing.T) {
	require.Equal(t, LevelNone, Level(0))
	require.Equal(t, LevelLow, Level(0.1))
	require.Equal(t, LevelModerate, Level(0.3))
	require.Equal(t, LevelHigh, Level(0.7))
	require.Equal(t, LevelVeryHigh, Level(0.9))
}
