// Package record implements ValidationRecord: an immutable,
// content-addressed, dual-signed statement chained into a LocalDAG by
// parent hashes.
package record

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"time"

	"golang.org/x/crypto/sha3"

	"github.com/navigatorbuilds/elara-core/errors"
)

// Classification is a fixed enumeration attached to every record. It is
// opaque to the core's logic but is part of the signed bytes.
type Classification string

const (
	ClassificationPublic    Classification = "PUBLIC"
	ClassificationSovereign Classification = "SOVEREIGN"
)

// ErrRecordWireError is returned when wire bytes cannot be parsed as a record.
var ErrRecordWireError = errors.New("record wire error")

// wireVersion is prefixed to every serialized record so future format
// changes can be detected before parsing.
const wireVersion = 1

// Record is an immutable, content-addressed, signed statement.
type Record struct {
	ID               string                 `json:"id"`
	Content          []byte                 `json:"-"`
	CreatorPublicKey []byte                 `json:"-"`
	Parents          []string               `json:"parents"`
	Classification   Classification         `json:"classification"`
	Metadata         map[string]interface{} `json:"metadata"`
	Timestamp        float64                `json:"timestamp"`
	Signature        []byte                 `json:"-"`
	BackupSignature  []byte                 `json:"-"`
}

// signablePayload is the deterministic, sorted-key, no-whitespace JSON
// serialization of everything a record commits to except its own id and
// signatures. encoding/json already renders map keys in sorted order and
// produces compact (whitespace-free) output for json.Marshal, which is
// what makes this serialization stable across implementations.
type signablePayload struct {
	Content          string                 `json:"content"`
	CreatorPublicKey string                 `json:"creator_public_key"`
	Parents          []string               `json:"parents"`
	Classification   Classification         `json:"classification"`
	Metadata         map[string]interface{} `json:"metadata"`
	Timestamp        float64                `json:"timestamp"`
}

func normalizeParents(parents []string) []string {
	if parents == nil {
		return []string{}
	}
	return parents
}

func normalizeMetadata(metadata map[string]interface{}) map[string]interface{} {
	if metadata == nil {
		return map[string]interface{}{}
	}
	return metadata
}

// signableBytes computes the deterministic serialization these fields bind
// to, independent of any Record struct — it is the pure function both
// Create and signature verification call.
func signableBytes(content, creatorPublicKey []byte, parents []string, classification Classification, metadata map[string]interface{}, timestamp float64) ([]byte, error) {
	payload := signablePayload{
		Content:          base64.StdEncoding.EncodeToString(content),
		CreatorPublicKey: hex.EncodeToString(creatorPublicKey),
		Parents:          normalizeParents(parents),
		Classification:   classification,
		Metadata:         normalizeMetadata(metadata),
		Timestamp:        timestamp,
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "marshal signable payload")
	}
	return b, nil
}

// Create computes the record id from signable bytes and returns an
// unsigned record. The caller is responsible for populating Signature
// (and optionally BackupSignature) by signing SignableBytes().
func Create(content, creatorPublicKey []byte, parents []string, classification Classification, metadata map[string]interface{}, timestamp *float64) (*Record, error) {
	ts := float64(time.Now().UnixNano()) / 1e9
	if timestamp != nil {
		ts = *timestamp
	}

	parents = normalizeParents(parents)
	metadata = normalizeMetadata(metadata)

	b, err := signableBytes(content, creatorPublicKey, parents, classification, metadata, ts)
	if err != nil {
		return nil, err
	}
	sum := sha3.Sum256(b)

	return &Record{
		ID:               hex.EncodeToString(sum[:]),
		Content:          content,
		CreatorPublicKey: creatorPublicKey,
		Parents:          parents,
		Classification:   classification,
		Metadata:         metadata,
		Timestamp:        ts,
	}, nil
}

// SignableBytes returns the deterministic bytes this record's signatures
// are computed over.
func (r *Record) SignableBytes() ([]byte, error) {
	return signableBytes(r.Content, r.CreatorPublicKey, r.Parents, r.Classification, r.Metadata, r.Timestamp)
}

// RecomputeID recomputes the id from the record's current fields. Used by
// callers that want to assert a loaded record's id still matches its
// content (the universal determinism property in spec.md §8).
func (r *Record) RecomputeID() (string, error) {
	b, err := r.SignableBytes()
	if err != nil {
		return "", err
	}
	sum := sha3.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// wireFormat is the full wire serialization, including both signatures.
type wireFormat struct {
	Version          int                    `json:"version"`
	ID               string                 `json:"id"`
	Content          string                 `json:"content"`
	CreatorPublicKey string                 `json:"creator_public_key"`
	Parents          []string               `json:"parents"`
	Classification   Classification         `json:"classification"`
	Metadata         map[string]interface{} `json:"metadata"`
	Timestamp        float64                `json:"timestamp"`
	Signature        string                 `json:"signature"`
	BackupSignature  string                 `json:"backup_signature,omitempty"`
}

// ToBytes serializes the record, including both signatures, for wire
// transmission or storage.
func (r *Record) ToBytes() ([]byte, error) {
	wire := wireFormat{
		Version:          wireVersion,
		ID:               r.ID,
		Content:          base64.StdEncoding.EncodeToString(r.Content),
		CreatorPublicKey: hex.EncodeToString(r.CreatorPublicKey),
		Parents:          normalizeParents(r.Parents),
		Classification:   r.Classification,
		Metadata:         normalizeMetadata(r.Metadata),
		Timestamp:        r.Timestamp,
		Signature:        hex.EncodeToString(r.Signature),
	}
	if len(r.BackupSignature) > 0 {
		wire.BackupSignature = hex.EncodeToString(r.BackupSignature)
	}
	b, err := json.Marshal(wire)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "marshal wire record"), ErrRecordWireError)
	}
	return b, nil
}

// FromBytes parses wire bytes produced by ToBytes.
func FromBytes(data []byte) (*Record, error) {
	var wire wireFormat
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "unmarshal wire record"), ErrRecordWireError)
	}
	if wire.Version != wireVersion {
		return nil, errors.Mark(errors.Newf("unsupported record wire version %d", wire.Version), ErrRecordWireError)
	}

	content, err := base64.StdEncoding.DecodeString(wire.Content)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "decode content"), ErrRecordWireError)
	}
	creatorPub, err := hex.DecodeString(wire.CreatorPublicKey)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "decode creator public key"), ErrRecordWireError)
	}
	sig, err := hex.DecodeString(wire.Signature)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "decode signature"), ErrRecordWireError)
	}
	var backupSig []byte
	if wire.BackupSignature != "" {
		backupSig, err = hex.DecodeString(wire.BackupSignature)
		if err != nil {
			return nil, errors.Mark(errors.Wrap(err, "decode backup signature"), ErrRecordWireError)
		}
	}

	return &Record{
		ID:               wire.ID,
		Content:          content,
		CreatorPublicKey: creatorPub,
		Parents:          normalizeParents(wire.Parents),
		Classification:   wire.Classification,
		Metadata:         normalizeMetadata(wire.Metadata),
		Timestamp:        wire.Timestamp,
		Signature:        sig,
		BackupSignature:  backupSig,
	}, nil
}

// ContentHash is the SHA3-256 of the canonical wire bytes. LocalDAG
// returns this from insert() as a hash distinct from the record id used
// for chaining.
func ContentHash(wireBytes []byte) string {
	sum := sha3.Sum256(wireBytes)
	return hex.EncodeToString(sum[:])
}
