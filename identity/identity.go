// Package identity generates, persists, and signs with a node's dual-key
// signing identity: a post-quantum primary scheme (Dilithium3) backed by a
// classical ed25519 signature as an independent-assumption fallback.
package identity

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/sha3"

	"github.com/navigatorbuilds/elara-core/errors"
)

// EntityType tags the kind of principal an identity represents.
type EntityType string

const (
	EntityAI      EntityType = "ai"
	EntityHuman   EntityType = "human"
	EntityService EntityType = "service"
)

// Profile selects the signature-scheme pairing used by an identity.
type Profile string

const (
	// ProfileSingle signs with the primary (Dilithium3) scheme only.
	ProfileSingle Profile = "single"
	// ProfileDual signs with both the primary and the backup (ed25519) scheme.
	ProfileDual Profile = "dual"
)

// ErrCryptoBackendMissing is returned when a required signature algorithm
// could not be initialized.
var ErrCryptoBackendMissing = errors.New("crypto backend unavailable")

// ErrIdentityIO is returned when persisting or loading identity material fails.
var ErrIdentityIO = errors.New("identity I/O error")

// ErrBackupSchemeUnavailable is returned by SignBackup when the identity's
// profile does not carry a backup key pair.
var ErrBackupSchemeUnavailable = errors.New("backup signature scheme unavailable for this profile")

// identityFileMode restricts identity material to owner read/write.
const identityFileMode = 0o600

// Identity is a node's signing authority. Attributes mirror spec.md §3:
// an entity-type tag, a profile tag, a primary post-quantum key pair, an
// optional backup key pair, a creation timestamp, and a stable hash.
type Identity struct {
	EntityType EntityType `json:"entity_type"`
	Profile    Profile    `json:"profile"`

	PrimaryPublicKey  []byte `json:"primary_public_key"`
	primaryPrivateKey []byte

	BackupPublicKey  ed25519.PublicKey `json:"backup_public_key,omitempty"`
	backupPrivateKey ed25519.PrivateKey

	CreatedAt float64 `json:"created_at"`
	Hash      string  `json:"hash"`
}

// identityWire is the on-disk representation, including secret material.
// Secret key fields are hex-encoded so the file remains readable JSON.
type identityWire struct {
	EntityType        EntityType `json:"entity_type"`
	Profile           Profile    `json:"profile"`
	PrimaryPublicKey  string     `json:"primary_public_key"`
	PrimaryPrivateKey string     `json:"primary_private_key"`
	BackupPublicKey   string     `json:"backup_public_key,omitempty"`
	BackupPrivateKey  string     `json:"backup_private_key,omitempty"`
	CreatedAt         float64    `json:"created_at"`
	Hash              string     `json:"hash"`
}

// Generate produces a fresh identity for the given entity type and profile.
func Generate(entityType EntityType, profile Profile) (*Identity, error) {
	pub, priv, err := mode3.GenerateKey(rand.Reader)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "generate primary keypair"), ErrCryptoBackendMissing)
	}

	id := &Identity{
		EntityType:        entityType,
		Profile:           profile,
		PrimaryPublicKey:  pub.Bytes(),
		primaryPrivateKey: priv.Bytes(),
		CreatedAt:         float64(time.Now().UnixNano()) / 1e9,
	}

	if profile == ProfileDual {
		bpub, bpriv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, errors.Mark(errors.Wrapf(err, "generate backup keypair"), ErrCryptoBackendMissing)
		}
		id.BackupPublicKey = bpub
		id.backupPrivateKey = bpriv
	}

	id.Hash = id.computeHash()
	return id, nil
}

// computeHash is SHA3-256 over a canonical concatenation of entity-type,
// profile, primary public key, and backup public key (spec.md §4.1).
func (id *Identity) computeHash() string {
	h := sha3.New256()
	h.Write([]byte(id.EntityType))
	h.Write([]byte{0})
	h.Write([]byte(id.Profile))
	h.Write([]byte{0})
	h.Write(id.PrimaryPublicKey)
	h.Write([]byte{0})
	h.Write(id.BackupPublicKey)
	return hex.EncodeToString(h.Sum(nil))
}

// Save persists the identity, including secret key material, to path at
// owner-only file permissions.
func (id *Identity) Save(path string) error {
	wire := identityWire{
		EntityType:        id.EntityType,
		Profile:           id.Profile,
		PrimaryPublicKey:  hex.EncodeToString(id.PrimaryPublicKey),
		PrimaryPrivateKey: hex.EncodeToString(id.primaryPrivateKey),
		CreatedAt:         id.CreatedAt,
		Hash:              id.Hash,
	}
	if id.Profile == ProfileDual {
		wire.BackupPublicKey = hex.EncodeToString(id.BackupPublicKey)
		wire.BackupPrivateKey = hex.EncodeToString(id.backupPrivateKey)
	}

	data, err := json.MarshalIndent(wire, "", "  ")
	if err != nil {
		return errors.Mark(errors.Wrap(err, "marshal identity"), ErrIdentityIO)
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return errors.Mark(errors.Wrapf(err, "create identity directory %s", dir), ErrIdentityIO)
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, identityFileMode); err != nil {
		return errors.Mark(errors.Wrapf(err, "write identity to %s", tmp), ErrIdentityIO)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Mark(errors.Wrapf(err, "rename identity into place at %s", path), ErrIdentityIO)
	}
	return nil
}

// Load reads a previously-saved identity from path.
func Load(path string) (*Identity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "read identity from %s", path), ErrIdentityIO)
	}

	var wire identityWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "unmarshal identity"), ErrIdentityIO)
	}

	primaryPub, err := hex.DecodeString(wire.PrimaryPublicKey)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "decode primary public key"), ErrIdentityIO)
	}
	primaryPriv, err := hex.DecodeString(wire.PrimaryPrivateKey)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "decode primary private key"), ErrIdentityIO)
	}

	id := &Identity{
		EntityType:        wire.EntityType,
		Profile:           wire.Profile,
		PrimaryPublicKey:  primaryPub,
		primaryPrivateKey: primaryPriv,
		CreatedAt:         wire.CreatedAt,
		Hash:              wire.Hash,
	}

	if wire.Profile == ProfileDual {
		bpub, err := hex.DecodeString(wire.BackupPublicKey)
		if err != nil {
			return nil, errors.Mark(errors.Wrap(err, "decode backup public key"), ErrIdentityIO)
		}
		bpriv, err := hex.DecodeString(wire.BackupPrivateKey)
		if err != nil {
			return nil, errors.Mark(errors.Wrap(err, "decode backup private key"), ErrIdentityIO)
		}
		id.BackupPublicKey = ed25519.PublicKey(bpub)
		id.backupPrivateKey = ed25519.PrivateKey(bpriv)
	}

	return id, nil
}

// LoadOrGenerate loads the identity at path, generating and saving a fresh
// one if none exists yet.
func LoadOrGenerate(path string, entityType EntityType, profile Profile) (*Identity, error) {
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}
	id, err := Generate(entityType, profile)
	if err != nil {
		return nil, err
	}
	if err := id.Save(path); err != nil {
		return nil, err
	}
	return id, nil
}

// Sign produces a primary (Dilithium3) signature over data.
func (id *Identity) Sign(data []byte) ([]byte, error) {
	var sk mode3.PrivateKey
	if err := sk.UnmarshalBinary(id.primaryPrivateKey); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "unmarshal primary private key"), ErrCryptoBackendMissing)
	}
	sig, err := sk.Sign(rand.Reader, data, crypto.Hash(0))
	if err != nil {
		return nil, errors.Wrap(err, "primary sign")
	}
	return sig, nil
}

// SignBackup produces a backup (ed25519) signature over data. Returns
// ErrBackupSchemeUnavailable if the identity's profile has no backup key.
func (id *Identity) SignBackup(data []byte) ([]byte, error) {
	if id.Profile != ProfileDual || id.backupPrivateKey == nil {
		return nil, errors.Mark(errors.New("identity has no backup key pair"), ErrBackupSchemeUnavailable)
	}
	return ed25519.Sign(id.backupPrivateKey, data), nil
}

// VerifyPrimary checks a Dilithium3 signature produced by Sign.
func VerifyPrimary(pub, data, sig []byte) (bool, error) {
	var pk mode3.PublicKey
	if err := pk.UnmarshalBinary(pub); err != nil {
		return false, errors.Mark(errors.Wrap(err, "unmarshal primary public key"), ErrCryptoBackendMissing)
	}
	return mode3.Verify(&pk, data, sig), nil
}

// VerifyBackup checks an ed25519 signature produced by SignBackup.
func VerifyBackup(pub ed25519.PublicKey, data, sig []byte) bool {
	return ed25519.Verify(pub, data, sig)
}

// ShortHash returns a truncated form of the identity hash suitable for
// logging and status displays.
func (id *Identity) ShortHash() string {
	if len(id.Hash) <= 12 {
		return id.Hash
	}
	return id.Hash[:12]
}

// EncodeDIDKey encodes an ed25519 public key as a did:key:z... identifier
// using the standard ed25519 multicodec prefix (0xed 0x01).
func EncodeDIDKey(pub ed25519.PublicKey) string {
	buf := make([]byte, 0, len(pub)+2)
	buf = append(buf, 0xed, 0x01)
	buf = append(buf, pub...)
	return "did:key:z" + base58.Encode(buf)
}

// DecodeDIDKey reverses EncodeDIDKey.
func DecodeDIDKey(did string) (ed25519.PublicKey, error) {
	const prefix = "did:key:z"
	if !strings.HasPrefix(did, prefix) {
		return nil, errors.Newf("invalid did:key format: %s", did)
	}
	decoded, err := base58.Decode(did[len(prefix):])
	if err != nil {
		return nil, errors.Wrapf(err, "base58-decode did:key %s", did)
	}
	if len(decoded) != 34 {
		return nil, errors.Newf("unexpected decoded length %d for did:key %s", len(decoded), did)
	}
	if decoded[0] != 0xed || decoded[1] != 0x01 {
		return nil, errors.Newf("unexpected multicodec prefix for did:key %s", did)
	}
	return ed25519.PublicKey(decoded[2:]), nil
}
