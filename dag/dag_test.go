package dag

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/navigatorbuilds/elara-core/identity"
	"github.com/navigatorbuilds/elara-core/record"
)

func openTestDAG(t *testing.T) *DAG {
	t.Helper()
	d, err := Open(filepath.Join(t.TempDir(), "dag.sqlite"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func signedRecord(t *testing.T, id *identity.Identity, content []byte, parents []string) *record.Record {
	t.Helper()
	r, err := record.Create(content, id.PrimaryPublicKey, parents, record.ClassificationSovereign, nil, nil)
	require.NoError(t, err)
	sb, err := r.SignableBytes()
	require.NoError(t, err)
	sig, err := id.Sign(sb)
	require.NoError(t, err)
	r.Signature = sig
	return r
}

func TestInsertLocalTrustedThenGet(t *testing.T) {
	d := openTestDAG(t)
	id, err := identity.Generate(identity.EntityAI, identity.ProfileDual)
	require.NoError(t, err)

	r := signedRecord(t, id, []byte("hello"), nil)
	hash, err := d.InsertLocalTrusted(r)
	require.NoError(t, err)
	require.NotEmpty(t, hash)

	fetched, err := d.Get(r.ID)
	require.NoError(t, err)
	require.Equal(t, r.Content, fetched.Content)
}

func TestInsertIsIdempotent(t *testing.T) {
	d := openTestDAG(t)
	id, err := identity.Generate(identity.EntityAI, identity.ProfileDual)
	require.NoError(t, err)

	r := signedRecord(t, id, []byte("content"), nil)
	hash1, err := d.InsertLocalTrusted(r)
	require.NoError(t, err)
	hash2, err := d.InsertLocalTrusted(r)
	require.NoError(t, err)
	require.Equal(t, hash1, hash2)

	stats, err := d.Stats()
	require.NoError(t, err)
	require.Equal(t, 1, stats.RecordCount)
}

func TestTipConsistency(t *testing.T) {
	d := openTestDAG(t)
	id, err := identity.Generate(identity.EntityAI, identity.ProfileDual)
	require.NoError(t, err)

	r1 := signedRecord(t, id, []byte("genesis"), nil)
	_, err = d.InsertLocalTrusted(r1)
	require.NoError(t, err)

	r2 := signedRecord(t, id, []byte("second"), []string{r1.ID})
	_, err = d.InsertLocalTrusted(r2)
	require.NoError(t, err)

	tips, err := d.Tips()
	require.NoError(t, err)
	require.Contains(t, tips, r2.ID)
	require.NotContains(t, tips, r1.ID)
}

func TestInsertForeignRejectsTamperedSignature(t *testing.T) {
	d := openTestDAG(t)
	id, err := identity.Generate(identity.EntityAI, identity.ProfileDual)
	require.NoError(t, err)

	r := signedRecord(t, id, []byte("content"), nil)
	r.Content = []byte("tampered")

	_, err = d.InsertForeign(r)
	require.ErrorIs(t, err, ErrInvalidSignature)

	_, err = d.Get(r.ID)
	require.ErrorIs(t, err, ErrRecordNotFound)
}

func TestInsertForeignAcceptsValidSignature(t *testing.T) {
	d := openTestDAG(t)
	id, err := identity.Generate(identity.EntityAI, identity.ProfileDual)
	require.NoError(t, err)

	r := signedRecord(t, id, []byte("content"), nil)
	_, err = d.InsertForeign(r)
	require.NoError(t, err)
}

func TestQueryOrdersMostRecentFirst(t *testing.T) {
	d := openTestDAG(t)
	id, err := identity.Generate(identity.EntityAI, identity.ProfileDual)
	require.NoError(t, err)

	early := 1700000000.0
	late := 1700000100.0

	r1, err := record.Create([]byte("early"), id.PrimaryPublicKey, nil, record.ClassificationPublic, nil, &early)
	require.NoError(t, err)
	sb, _ := r1.SignableBytes()
	sig, _ := id.Sign(sb)
	r1.Signature = sig
	_, err = d.InsertLocalTrusted(r1)
	require.NoError(t, err)

	r2, err := record.Create([]byte("late"), id.PrimaryPublicKey, nil, record.ClassificationPublic, nil, &late)
	require.NoError(t, err)
	sb2, _ := r2.SignableBytes()
	sig2, _ := id.Sign(sb2)
	r2.Signature = sig2
	_, err = d.InsertLocalTrusted(r2)
	require.NoError(t, err)

	results, err := d.Query(nil, nil, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, r2.ID, results[0].ID)
	require.Equal(t, r1.ID, results[1].ID)
}

func TestStatsCounts(t *testing.T) {
	d := openTestDAG(t)
	id, err := identity.Generate(identity.EntityAI, identity.ProfileDual)
	require.NoError(t, err)

	r1 := signedRecord(t, id, []byte("genesis"), nil)
	_, err = d.InsertLocalTrusted(r1)
	require.NoError(t, err)

	r2 := signedRecord(t, id, []byte("child"), []string{r1.ID})
	_, err = d.InsertLocalTrusted(r2)
	require.NoError(t, err)

	stats, err := d.Stats()
	require.NoError(t, err)
	require.Equal(t, 2, stats.RecordCount)
	require.Equal(t, 1, stats.EdgeCount)
	require.Equal(t, 1, stats.RootCount)
}
