// Package witness implements the attestation store (WitnessManager) and
// the monotone trust-score function derived from attestation counts.
package witness

import (
	"database/sql"
	"math"

	"go.uber.org/zap"

	dbpkg "github.com/navigatorbuilds/elara-core/db"
	"github.com/navigatorbuilds/elara-core/errors"
	"github.com/navigatorbuilds/elara-core/logger"
)

// ErrAttestationStorage wraps any underlying storage failure.
var ErrAttestationStorage = errors.New("attestation storage error")

// Attestation is one peer's counter-signature of a record.
type Attestation struct {
	RecordID            string  `json:"record_id"`
	WitnessIdentityHash string  `json:"witness_identity_hash"`
	Signature           []byte  `json:"signature"`
	Timestamp           float64 `json:"timestamp"`
}

// Manager stores attestations in an embedded relational table keyed by
// (record_id, witness_identity_hash).
type Manager struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// Open opens (creating and migrating if necessary) the attestation store.
func Open(path string, log *zap.SugaredLogger) (*Manager, error) {
	db, err := dbpkg.OpenWithMigrations(path, dbpkg.SchemaAttestations, log)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "open attestation store"), ErrAttestationStorage)
	}
	if log == nil {
		log = logger.Logger
	}
	return &Manager{db: db, logger: log}, nil
}

// Close releases the underlying database handle.
func (m *Manager) Close() error {
	if m.db == nil {
		return nil
	}
	return m.db.Close()
}

// AddAttestation inserts an attestation. Idempotent on (record id,
// witness identity hash): a repeat call is a no-op, not an error.
func (m *Manager) AddAttestation(a Attestation) error {
	_, err := m.db.Exec(
		`INSERT OR IGNORE INTO attestations (record_id, witness_identity_hash, signature, timestamp)
		 VALUES (?, ?, ?, ?)`,
		a.RecordID, a.WitnessIdentityHash, a.Signature, a.Timestamp,
	)
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "add attestation for record %s", a.RecordID), ErrAttestationStorage)
	}
	if m.logger != nil {
		m.logger.Debugw("attestation stored", logger.FieldSymbol, "✓", logger.FieldRecordID, a.RecordID, logger.FieldPeerID, a.WitnessIdentityHash)
	}
	return nil
}

// GetAttestations returns every attestation recorded for recordID.
func (m *Manager) GetAttestations(recordID string) ([]Attestation, error) {
	rows, err := m.db.Query(
		`SELECT record_id, witness_identity_hash, signature, timestamp FROM attestations WHERE record_id = ? ORDER BY timestamp ASC`,
		recordID,
	)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "query attestations"), ErrAttestationStorage)
	}
	defer rows.Close()

	var out []Attestation
	for rows.Next() {
		var a Attestation
		if err := rows.Scan(&a.RecordID, &a.WitnessIdentityHash, &a.Signature, &a.Timestamp); err != nil {
			return nil, errors.Mark(errors.Wrap(err, "scan attestation row"), ErrAttestationStorage)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// WitnessCount returns the number of distinct witnesses for recordID.
func (m *Manager) WitnessCount(recordID string) (int, error) {
	var count int
	row := m.db.QueryRow(`SELECT COUNT(*) FROM attestations WHERE record_id = ?`, recordID)
	if err := row.Scan(&count); err != nil {
		return 0, errors.Mark(errors.Wrap(err, "count attestations"), ErrAttestationStorage)
	}
	return count, nil
}

// Trust levels, thresholds per the fixed bucket table.
const (
	LevelNone      = "none"
	LevelLow       = "low"
	LevelModerate  = "moderate"
	LevelHigh      = "high"
	LevelVeryHigh  = "very-high"
)

// Compute maps a witness count to a trust score in [0, 1). Zero
// witnesses scores 0.0, one witness scores exactly 0.5, and the curve
// asymptotically approaches but never reaches 1.0.
func Compute(witnessCount int) float64 {
	if witnessCount <= 0 {
		return 0.0
	}
	// score(1) = 1 - 0.5^1 = 0.5, strictly increasing, bounded above by 1.
	return 1.0 - math.Pow(0.5, float64(witnessCount))
}

// Level buckets a trust score using the fixed thresholds.
func Level(score float64) string {
	switch {
	case score <= 0:
		return LevelNone
	case score < 0.25:
		return LevelLow
	case score < 0.60:
		return LevelModerate
	case score < 0.85:
		return LevelHigh
	default:
		return LevelVeryHigh
	}
}
