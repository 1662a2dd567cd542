package identity

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateDualProfile(t *testing.T) {
	id, err := Generate(EntityAI, ProfileDual)
	require.NoError(t, err)
	require.NotEmpty(t, id.PrimaryPublicKey)
	require.NotEmpty(t, id.BackupPublicKey)
	require.NotEmpty(t, id.Hash)
}

func TestGenerateSingleProfileHasNoBackupKey(t *testing.T) {
	id, err := Generate(EntityService, ProfileSingle)
	require.NoError(t, err)
	require.Empty(t, id.BackupPublicKey)

	_, err = id.SignBackup([]byte("hello"))
	require.ErrorIs(t, err, ErrBackupSchemeUnavailable)
}

func TestSignAndVerifyPrimaryRoundTrip(t *testing.T) {
	id, err := Generate(EntityAI, ProfileDual)
	require.NoError(t, err)

	msg := []byte("signable bytes for a validation record")
	sig, err := id.Sign(msg)
	require.NoError(t, err)

	ok, err := VerifyPrimary(id.PrimaryPublicKey, msg, sig)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = VerifyPrimary(id.PrimaryPublicKey, []byte("tampered"), sig)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSignAndVerifyBackupRoundTrip(t *testing.T) {
	id, err := Generate(EntityHuman, ProfileDual)
	require.NoError(t, err)

	msg := []byte("signable bytes")
	sig, err := id.SignBackup(msg)
	require.NoError(t, err)
	require.True(t, VerifyBackup(id.BackupPublicKey, msg, sig))
	require.False(t, VerifyBackup(id.BackupPublicKey, []byte("tampered"), sig))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	id, err := Generate(EntityAI, ProfileDual)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "identity.json")
	require.NoError(t, id.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, id.Hash, loaded.Hash)
	require.Equal(t, id.PrimaryPublicKey, loaded.PrimaryPublicKey)
	require.Equal(t, id.BackupPublicKey, loaded.BackupPublicKey)

	msg := []byte("post-reload signature check")
	sig, err := loaded.Sign(msg)
	require.NoError(t, err)
	ok, err := VerifyPrimary(loaded.PrimaryPublicKey, msg, sig)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestLoadOrGenerateCreatesOnFirstCall(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.json")

	first, err := LoadOrGenerate(path, EntityAI, ProfileDual)
	require.NoError(t, err)

	second, err := LoadOrGenerate(path, EntityAI, ProfileDual)
	require.NoError(t, err)

	require.Equal(t, first.Hash, second.Hash)
}

func TestDIDKeyRoundTrip(t *testing.T) {
	id, err := Generate(EntityAI, ProfileDual)
	require.NoError(t, err)

	did := EncodeDIDKey(id.BackupPublicKey)
	pub, err := DecodeDIDKey(did)
	require.NoError(t, err)
	require.Equal(t, id.BackupPublicKey, pub)
}

func TestDecodeDIDKeyRejectsBadPrefix(t *testing.T) {
	_, err := DecodeDIDKey("not-a-did")
	require.Error(t, err)
}
