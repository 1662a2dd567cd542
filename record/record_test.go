package record

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/navigatorbuilds/elara-core/identity"
)

func TestCreateIsDeterministic(t *testing.T) {
	ts := 1700000000.0
	content := []byte("hello testnet")
	creatorPub := []byte{1, 2, 3, 4}
	parents := []string{"parent-1"}
	metadata := map[string]interface{}{"domain": "general"}

	r1, err := Create(content, creatorPub, parents, ClassificationPublic, metadata, &ts)
	require.NoError(t, err)

	r2, err := Create(content, creatorPub, parents, ClassificationPublic, metadata, &ts)
	require.NoError(t, err)

	require.Equal(t, r1.ID, r2.ID)
}

func TestSignableBytesExcludeSignatures(t *testing.T) {
	ts := 1700000000.0
	r, err := Create([]byte("x"), []byte{1}, nil, ClassificationPublic, nil, &ts)
	require.NoError(t, err)

	before, err := r.SignableBytes()
	require.NoError(t, err)

	r.Signature = []byte{9, 9, 9}
	r.BackupSignature = []byte{8, 8}

	after, err := r.SignableBytes()
	require.NoError(t, err)

	require.Equal(t, before, after)
}

func TestModifyingAnyFieldChangesSignableBytes(t *testing.T) {
	ts := 1700000000.0
	base, err := Create([]byte("content"), []byte{1, 2}, []string{"p1"}, ClassificationPublic, map[string]interface{}{"k": "v"}, &ts)
	require.NoError(t, err)
	baseBytes, err := base.SignableBytes()
	require.NoError(t, err)

	variants := []*Record{
		mustCreate(t, []byte("different"), []byte{1, 2}, []string{"p1"}, ClassificationPublic, map[string]interface{}{"k": "v"}, ts),
		mustCreate(t, []byte("content"), []byte{9, 9}, []string{"p1"}, ClassificationPublic, map[string]interface{}{"k": "v"}, ts),
		mustCreate(t, []byte("content"), []byte{1, 2}, []string{"p2"}, ClassificationPublic, map[string]interface{}{"k": "v"}, ts),
		mustCreate(t, []byte("content"), []byte{1, 2}, []string{"p1"}, ClassificationSovereign, map[string]interface{}{"k": "v"}, ts),
		mustCreate(t, []byte("content"), []byte{1, 2}, []string{"p1"}, ClassificationPublic, map[string]interface{}{"k": "other"}, ts),
		mustCreate(t, []byte("content"), []byte{1, 2}, []string{"p1"}, ClassificationPublic, map[string]interface{}{"k": "v"}, ts+1),
	}

	for _, v := range variants {
		vBytes, err := v.SignableBytes()
		require.NoError(t, err)
		require.NotEqual(t, baseBytes, vBytes)
		require.NotEqual(t, base.ID, v.ID)
	}
}

func mustCreate(t *testing.T, content, creatorPub []byte, parents []string, classification Classification, metadata map[string]interface{}, ts float64) *Record {
	t.Helper()
	r, err := Create(content, creatorPub, parents, classification, metadata, &ts)
	require.NoError(t, err)
	return r
}

func TestSignatureVerificationFailsOnTamper(t *testing.T) {
	id, err := identity.Generate(identity.EntityAI, identity.ProfileDual)
	require.NoError(t, err)

	ts := 1700000000.0
	r, err := Create([]byte("content"), id.PrimaryPublicKey, nil, ClassificationSovereign, nil, &ts)
	require.NoError(t, err)

	sb, err := r.SignableBytes()
	require.NoError(t, err)
	sig, err := id.Sign(sb)
	require.NoError(t, err)
	r.Signature = sig

	ok, err := identity.VerifyPrimary(r.CreatorPublicKey, sb, r.Signature)
	require.NoError(t, err)
	require.True(t, ok)

	r.Content = []byte("tampered")
	tamperedBytes, err := r.SignableBytes()
	require.NoError(t, err)
	ok, err = identity.VerifyPrimary(r.CreatorPublicKey, tamperedBytes, r.Signature)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestWireRoundTrip(t *testing.T) {
	ts := 1700000000.0
	r, err := Create([]byte("content"), []byte{1, 2, 3}, []string{"p1"}, ClassificationPublic, map[string]interface{}{"a": 1.0}, &ts)
	require.NoError(t, err)
	r.Signature = []byte{4, 5, 6}
	r.BackupSignature = []byte{7, 8}

	wire, err := r.ToBytes()
	require.NoError(t, err)

	parsed, err := FromBytes(wire)
	require.NoError(t, err)

	require.Equal(t, r.ID, parsed.ID)
	require.Equal(t, r.Content, parsed.Content)
	require.Equal(t, r.CreatorPublicKey, parsed.CreatorPublicKey)
	require.Equal(t, r.Parents, parsed.Parents)
	require.Equal(t, r.Classification, parsed.Classification)
	require.Equal(t, r.Timestamp, parsed.Timestamp)
	require.Equal(t, r.Signature, parsed.Signature)
	require.Equal(t, r.BackupSignature, parsed.BackupSignature)
}

func TestFromBytesRejectsGarbage(t *testing.T) {
	_, err := FromBytes([]byte("not json"))
	require.ErrorIs(t, err, ErrRecordWireError)
}

func TestContentHashDiffersFromRecordID(t *testing.T) {
	ts := 1700000000.0
	r, err := Create([]byte("content"), []byte{1}, nil, ClassificationPublic, nil, &ts)
	require.NoError(t, err)
	wire, err := r.ToBytes()
	require.NoError(t, err)

	require.NotEqual(t, r.ID, ContentHash(wire))
}
