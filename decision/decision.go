// Package decision implements the unified decision registry: an
// idempotent, SQLite-backed set of crystallized judgments with an
// in-memory fast-path for prompt-time scans.
package decision

import (
	"database/sql"
	"encoding/json"
	"strings"
	"sync"

	"go.uber.org/zap"

	dbpkg "github.com/navigatorbuilds/elara-core/db"
	"github.com/navigatorbuilds/elara-core/errors"
	"github.com/navigatorbuilds/elara-core/logger"
)

// ErrDecisionStorage wraps any underlying storage failure.
var ErrDecisionStorage = errors.New("decision storage error")

// Verdict is one of the fixed outcome tags for a decision entry.
type Verdict string

const (
	VerdictRejected Verdict = "rejected"
	VerdictFailed   Verdict = "failed"
	VerdictApproved Verdict = "approved"
	VerdictRevisit  Verdict = "revisit"
)

// Source tags a decision's origin.
const (
	SourceManual     = "manual"
	SourceAutoDerived = "auto-derived"
)

const confidenceBump = 0.1

// Entry is a crystallized judgment preventing repetition of a rejected action.
type Entry struct {
	ActionSignature string   `json:"action_signature"`
	Verdict         Verdict  `json:"verdict"`
	Confidence      float64  `json:"confidence"`
	Reason          string   `json:"reason"`
	Source          string   `json:"source"`
	Session         *int64   `json:"session,omitempty"`
	Tags            []string `json:"tags"`
	CreatedAt       float64  `json:"created_at"`
	UpdatedAt       float64  `json:"updated_at"`
}

// isFastPathVerdict reports whether v is a verdict tracked in the in-memory set.
func isFastPathVerdict(v Verdict) bool {
	return v == VerdictRejected || v == VerdictFailed
}

// NormalizeActionSignature lowercases and trims both sides of a
// "domain:entity" action signature.
func NormalizeActionSignature(domain, entity string) string {
	return strings.TrimSpace(strings.ToLower(domain)) + ":" + strings.TrimSpace(strings.ToLower(entity))
}

// Registry is the SQLite-backed decision store plus its in-memory
// fast-path set of rejected/failed action signatures.
type Registry struct {
	db     *sql.DB
	logger *zap.SugaredLogger

	mu       sync.RWMutex
	fastPath map[string]struct{}
}

// Open opens (creating and migrating if necessary) the decision store.
// Callers should call BootDecisions afterward to populate the fast path.
func Open(path string, log *zap.SugaredLogger) (*Registry, error) {
	db, err := dbpkg.OpenWithMigrations(path, dbpkg.SchemaDecisions, log)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "open decision store"), ErrDecisionStorage)
	}
	if log == nil {
		log = logger.Logger
	}
	return &Registry{db: db, logger: log, fastPath: make(map[string]struct{})}, nil
}

// Close releases the underlying database handle.
func (r *Registry) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// BootDecisions (re)builds the in-memory fast-path set from the database.
// Call once at startup.
func (r *Registry) BootDecisions() error {
	rows, err := r.db.Query(`SELECT action_signature, verdict FROM decisions WHERE verdict IN (?, ?)`,
		string(VerdictRejected), string(VerdictFailed))
	if err != nil {
		return errors.Mark(errors.Wrap(err, "boot decisions"), ErrDecisionStorage)
	}
	defer rows.Close()

	fastPath := make(map[string]struct{})
	for rows.Next() {
		var sig, verdict string
		if err := rows.Scan(&sig, &verdict); err != nil {
			return errors.Mark(errors.Wrap(err, "scan decision row"), ErrDecisionStorage)
		}
		fastPath[sig] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return errors.Mark(errors.Wrap(err, "iterate decision rows"), ErrDecisionStorage)
	}

	r.mu.Lock()
	r.fastPath = fastPath
	r.mu.Unlock()
	return nil
}

// RecordDecision upserts a decision entry. Re-recording the same action
// signature bumps confidence by 0.1 (capped at 1.0) and overwrites
// reason/timestamp.
func (r *Registry) RecordDecision(e Entry) error {
	tagsJSON, err := json.Marshal(e.Tags)
	if err != nil {
		return errors.Wrap(err, "marshal tags")
	}

	var existingConfidence float64
	row := r.db.QueryRow(`SELECT confidence FROM decisions WHERE action_signature = ?`, e.ActionSignature)
	err = row.Scan(&existingConfidence)
	switch err {
	case nil:
		e.Confidence = existingConfidence + confidenceBump
		if e.Confidence > 1.0 {
			e.Confidence = 1.0
		}
	case sql.ErrNoRows:
		// first insert, use e.Confidence as given
	default:
		return errors.Mark(errors.Wrap(err, "check existing decision"), ErrDecisionStorage)
	}

	_, err = r.db.Exec(`
		INSERT INTO decisions (action_signature, verdict, confidence, reason, source, session, tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(action_signature) DO UPDATE SET
			verdict = excluded.verdict,
			confidence = excluded.confidence,
			reason = excluded.reason,
			source = excluded.source,
			session = excluded.session,
			tags = excluded.tags,
			updated_at = excluded.updated_at
	`, e.ActionSignature, string(e.Verdict), e.Confidence, e.Reason, e.Source, e.Session, string(tagsJSON), e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "record decision %s", e.ActionSignature), ErrDecisionStorage)
	}

	r.mu.Lock()
	if isFastPathVerdict(e.Verdict) {
		r.fastPath[e.ActionSignature] = struct{}{}
	} else {
		delete(r.fastPath, e.ActionSignature)
	}
	r.mu.Unlock()

	if r.logger != nil {
		r.logger.Debugw("decision recorded", logger.FieldSymbol, "◈", "action_signature", e.ActionSignature, "verdict", e.Verdict)
	}
	return nil
}

// CheckDecision looks up a single action signature.
func (r *Registry) CheckDecision(actionSignature string) (*Entry, error) {
	row := r.db.QueryRow(`
		SELECT action_signature, verdict, confidence, reason, source, session, tags, created_at, updated_at
		FROM decisions WHERE action_signature = ?`, actionSignature)

	var e Entry
	var tagsJSON string
	var session sql.NullInt64
	err := row.Scan(&e.ActionSignature, &e.Verdict, &e.Confidence, &e.Reason, &e.Source, &session, &tagsJSON, &e.CreatedAt, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "check decision"), ErrDecisionStorage)
	}
	if session.Valid {
		e.Session = &session.Int64
	}
	if err := json.Unmarshal([]byte(tagsJSON), &e.Tags); err != nil {
		return nil, errors.Wrap(err, "unmarshal tags")
	}
	return &e, nil
}

// CheckEntities performs a case-insensitive substring scan of text
// against every known fast-path signature's entity portion, returning
// at most 2 hits.
func (r *Registry) CheckEntities(text string) []string {
	lower := strings.ToLower(text)

	r.mu.RLock()
	defer r.mu.RUnlock()

	var hits []string
	for sig := range r.fastPath {
		parts := strings.SplitN(sig, ":", 2)
		entity := sig
		if len(parts) == 2 {
			entity = parts[1]
		}
		if entity != "" && strings.Contains(lower, entity) {
			hits = append(hits, sig)
			if len(hits) >= 2 {
				break
			}
		}
	}
	return hits
}

// ListDecisions returns up to n decisions, optionally filtered by verdict.
func (r *Registry) ListDecisions(verdict *Verdict, n int) ([]Entry, error) {
	query := `SELECT action_signature, verdict, confidence, reason, source, session, tags, created_at, updated_at FROM decisions WHERE 1=1`
	var args []interface{}
	if verdict != nil {
		query += " AND verdict = ?"
		args = append(args, string(*verdict))
	}
	query += " ORDER BY updated_at DESC"
	if n > 0 {
		query += " LIMIT ?"
		args = append(args, n)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "list decisions"), ErrDecisionStorage)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var tagsJSON string
		var session sql.NullInt64
		if err := rows.Scan(&e.ActionSignature, &e.Verdict, &e.Confidence, &e.Reason, &e.Source, &session, &tagsJSON, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, errors.Mark(errors.Wrap(err, "scan decision row"), ErrDecisionStorage)
		}
		if session.Valid {
			e.Session = &session.Int64
		}
		if err := json.Unmarshal([]byte(tagsJSON), &e.Tags); err != nil {
			return nil, errors.Wrap(err, "unmarshal tags")
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Stats summarizes the decision registry's contents.
type Stats struct {
	Total          int `json:"total"`
	FastPathCount  int `json:"fast_path_count"`
}

// Stats returns registry-wide counts.
func (r *Registry) Stats() (Stats, error) {
	var s Stats
	row := r.db.QueryRow(`SELECT COUNT(*) FROM decisions`)
	if err := row.Scan(&s.Total); err != nil {
		return s, errors.Mark(errors.Wrap(err, "count decisions"), ErrDecisionStorage)
	}
	r.mu.RLock()
	s.FastPathCount = len(r.fastPath)
	r.mu.RUnlock()
	return s, nil
}

// CorrectionSource is an external collaborator decision.BackfillFromCorrections
// scans for crystallizable rejections. Failures from it are swallowed.
type CorrectionSource interface {
	RecentCorrections(limit int) ([]Entry, error)
}

// OutcomeSource is an external collaborator decision.BackfillFromOutcomes
// scans for crystallizable outcomes. Failures from it are swallowed.
type OutcomeSource interface {
	RecentOutcomes(limit int) ([]Entry, error)
}

// BackfillFromCorrections fail-silently records any entries the
// correction source offers; a read failure from src is logged and
// ignored, matching the fail-silent-feed behavior of the decision
// registry's write-time ingestion.
func (r *Registry) BackfillFromCorrections(src CorrectionSource, limit int) {
	entries, err := src.RecentCorrections(limit)
	if err != nil {
		if r.logger != nil {
			r.logger.Warnw("backfill from corrections failed, skipping", "error", err)
		}
		return
	}
	for _, e := range entries {
		if err := r.RecordDecision(e); err != nil && r.logger != nil {
			r.logger.Warnw("failed to record backfilled correction", "action_signature", e.ActionSignature, "error", err)
		}
	}
}

// BackfillFromOutcomes fail-silently records any entries the outcome
// source offers.
func (r *Registry) BackfillFromOutcomes(src OutcomeSource, limit int) {
	entries, err := src.RecentOutcomes(limit)
	if err != nil {
		if r.logger != nil {
			r.logger.Warnw("backfill from outcomes failed, skipping", "error", err)
		}
		return
	}
	for _, e := range entries {
		if err := r.RecordDecision(e); err != nil && r.logger != nil {
			r.logger.Warnw("failed to record backfilled outcome", "action_signature", e.ActionSignature, "error", err)
		}
	}
}
