// Package dag implements LocalDAG: the node's embedded-database-backed
// store of validation records and their parent edges.
package dag

import (
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	dbpkg "github.com/navigatorbuilds/elara-core/db"
	"github.com/navigatorbuilds/elara-core/errors"
	"github.com/navigatorbuilds/elara-core/identity"
	"github.com/navigatorbuilds/elara-core/logger"
	"github.com/navigatorbuilds/elara-core/record"
)

// ErrInvalidSignature is returned when a record's signature fails
// verification during a verified insert.
var ErrInvalidSignature = errors.New("invalid signature")

// ErrRecordNotFound is returned by Get when no record exists with the
// given id.
var ErrRecordNotFound = errors.New("record not found")

// ErrDAGStorage wraps any underlying storage failure during a mutating
// operation. The DAG is left in its prior state.
var ErrDAGStorage = errors.New("dag storage error")

// DAG is the node's per-process record store. It is not globally shared;
// spec.md explicitly excludes a consensus protocol.
type DAG struct {
	db     *sql.DB
	logger *zap.SugaredLogger
	mu     sync.Mutex
}

// Open opens (creating and migrating if necessary) the DAG store at path.
func Open(path string, log *zap.SugaredLogger) (*DAG, error) {
	db, err := dbpkg.OpenWithMigrations(path, dbpkg.SchemaDAG, log)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "open dag store"), ErrDAGStorage)
	}
	if log == nil {
		log = logger.Logger
	}
	return &DAG{db: db, logger: log}, nil
}

// Close releases the underlying database handle.
func (d *DAG) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

// InsertLocalTrusted inserts a record the caller has itself just signed,
// skipping signature verification. The `sign` command uses it for the
// record it has just signed; the bridge and continuity chain instead
// call Insert(r, true) so their own records are verified too.
func (d *DAG) InsertLocalTrusted(r *record.Record) (string, error) {
	return d.insert(r, false)
}

// InsertForeign inserts a record received from a peer. Signature
// verification is mandatory; the parent-existence check is relaxed
// because foreign parents may not be present locally (spec.md §3,
// LocalDAG invariant ii).
func (d *DAG) InsertForeign(r *record.Record) (string, error) {
	return d.insert(r, true)
}

// Insert is the spec-named operation: insert(record, verify_signature).
// It dispatches to InsertLocalTrusted or InsertForeign. New code should
// prefer the named wrappers, which make the trust boundary explicit at
// the call site.
func (d *DAG) Insert(r *record.Record, verifySignature bool) (string, error) {
	return d.insert(r, verifySignature)
}

func (d *DAG) insert(r *record.Record, verifySignature bool) (string, error) {
	if verifySignature {
		signable, err := r.SignableBytes()
		if err != nil {
			return "", errors.Wrap(err, "compute signable bytes")
		}
		ok, err := identity.VerifyPrimary(r.CreatorPublicKey, signable, r.Signature)
		if err != nil {
			return "", errors.Wrap(err, "verify primary signature")
		}
		if !ok {
			return "", errors.Mark(errors.Newf("invalid primary signature on record %s", r.ID), ErrInvalidSignature)
		}
		if len(r.BackupSignature) > 0 {
			// Backup verification requires the backup scheme's own public
			// key, which is not carried on the record; skip when absent.
			// Presence of a backup signature without a way to verify it
			// does not invalidate the record — the primary signature is
			// authoritative.
		}
	}

	wire, err := r.ToBytes()
	if err != nil {
		return "", errors.Wrap(err, "serialize wire bytes")
	}
	contentHash := record.ContentHash(wire)

	d.mu.Lock()
	defer d.mu.Unlock()

	var existingHash string
	err = d.db.QueryRow("SELECT content_hash FROM records WHERE id = ?", r.ID).Scan(&existingHash)
	if err == nil {
		// Idempotent: second insert of the same id returns the same hash.
		return existingHash, nil
	}
	if err != sql.ErrNoRows {
		return "", errors.Mark(errors.Wrap(err, "check existing record"), ErrDAGStorage)
	}

	metadataJSON, err := json.Marshal(r.Metadata)
	if err != nil {
		return "", errors.Wrap(err, "marshal metadata")
	}

	tx, err := d.db.Begin()
	if err != nil {
		return "", errors.Mark(errors.Wrap(err, "begin insert transaction"), ErrDAGStorage)
	}

	_, err = tx.Exec(
		`INSERT INTO records (id, wire_bytes, content_hash, creator_public_key, classification, timestamp, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, wire, contentHash, hex.EncodeToString(r.CreatorPublicKey), string(r.Classification), r.Timestamp, string(metadataJSON),
	)
	if err != nil {
		tx.Rollback()
		return "", errors.Mark(errors.Wrapf(err, "insert record %s", r.ID), ErrDAGStorage)
	}

	for _, parent := range r.Parents {
		_, err = tx.Exec(
			`INSERT OR IGNORE INTO edges (child_id, parent_id) VALUES (?, ?)`,
			r.ID, parent,
		)
		if err != nil {
			tx.Rollback()
			return "", errors.Mark(errors.Wrapf(err, "insert edge %s -> %s", r.ID, parent), ErrDAGStorage)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", errors.Mark(errors.Wrap(err, "commit insert transaction"), ErrDAGStorage)
	}

	logger.DBDebugw(d.logger, "record inserted", logger.FieldRecordID, r.ID, "content_hash", contentHash)

	return contentHash, nil
}

// Get fetches a record by id.
func (d *DAG) Get(recordID string) (*record.Record, error) {
	row := d.db.QueryRow("SELECT wire_bytes FROM records WHERE id = ?", recordID)
	var wire []byte
	if err := row.Scan(&wire); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrRecordNotFound
		}
		return nil, errors.Mark(errors.Wrap(err, "query record"), ErrDAGStorage)
	}
	return record.FromBytes(wire)
}

// Query returns records ordered most-recent-first, optionally filtered
// by creator public key and/or a minimum timestamp.
func (d *DAG) Query(creatorPublicKey []byte, since *float64, limit int) ([]*record.Record, error) {
	query := "SELECT wire_bytes FROM records WHERE 1=1"
	var args []interface{}

	if creatorPublicKey != nil {
		query += " AND creator_public_key = ?"
		args = append(args, hex.EncodeToString(creatorPublicKey))
	}
	if since != nil {
		query += " AND timestamp >= ?"
		args = append(args, *since)
	}
	query += " ORDER BY timestamp DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	if logger.ShouldShowSQLQueries(logger.Verbosity) {
		logger.DBDebugw(d.logger, "executing query", logger.FieldQuery, query, "args", args)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "query records"), ErrDAGStorage)
	}
	defer rows.Close()

	var results []*record.Record
	for rows.Next() {
		var wire []byte
		if err := rows.Scan(&wire); err != nil {
			return nil, errors.Mark(errors.Wrap(err, "scan record row"), ErrDAGStorage)
		}
		r, err := record.FromBytes(wire)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// Tips returns the ids of every local record that is not the parent of
// another local record, in stable (timestamp, id) order. tips()[len-1]
// is the canonical head.
func (d *DAG) Tips() ([]string, error) {
	rows, err := d.db.Query(`
		SELECT r.id, r.timestamp FROM records r
		WHERE NOT EXISTS (SELECT 1 FROM edges e WHERE e.parent_id = r.id)
		ORDER BY r.timestamp ASC, r.id ASC
	`)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "query tips"), ErrDAGStorage)
	}
	defer rows.Close()

	var tips []string
	for rows.Next() {
		var id string
		var ts float64
		if err := rows.Scan(&id, &ts); err != nil {
			return nil, errors.Mark(errors.Wrap(err, "scan tip row"), ErrDAGStorage)
		}
		tips = append(tips, id)
	}
	return tips, rows.Err()
}

// Head returns the canonical head (tips()[-1]) or "" if the DAG is empty.
func (d *DAG) Head() (string, error) {
	tips, err := d.Tips()
	if err != nil {
		return "", err
	}
	if len(tips) == 0 {
		return "", nil
	}
	return tips[len(tips)-1], nil
}

// Stats summarizes the DAG's contents.
type Stats struct {
	RecordCount     int     `json:"record_count"`
	EdgeCount       int     `json:"edge_count"`
	RootCount       int     `json:"root_count"`
	OldestTimestamp float64 `json:"oldest_timestamp"`
	NewestTimestamp float64 `json:"newest_timestamp"`
}

// Stats returns counts of records, edges, roots, and timestamp bounds.
func (d *DAG) Stats() (Stats, error) {
	var s Stats
	row := d.db.QueryRow("SELECT COUNT(*) FROM records")
	if err := row.Scan(&s.RecordCount); err != nil {
		return s, errors.Mark(errors.Wrap(err, "count records"), ErrDAGStorage)
	}

	row = d.db.QueryRow("SELECT COUNT(*) FROM edges")
	if err := row.Scan(&s.EdgeCount); err != nil {
		return s, errors.Mark(errors.Wrap(err, "count edges"), ErrDAGStorage)
	}

	row = d.db.QueryRow(`
		SELECT COUNT(*) FROM records r
		WHERE NOT EXISTS (SELECT 1 FROM edges e WHERE e.child_id = r.id)
	`)
	if err := row.Scan(&s.RootCount); err != nil {
		return s, errors.Mark(errors.Wrap(err, "count roots"), ErrDAGStorage)
	}

	if s.RecordCount > 0 {
		row = d.db.QueryRow("SELECT MIN(timestamp), MAX(timestamp) FROM records")
		if err := row.Scan(&s.OldestTimestamp, &s.NewestTimestamp); err != nil {
			return s, errors.Mark(errors.Wrap(err, "scan timestamp bounds"), ErrDAGStorage)
		}
	}

	return s, nil
}
