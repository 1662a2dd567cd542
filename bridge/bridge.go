// Package bridge implements the Layer-1 bridge: the event-bus
// subscriber that turns cognitive creation events into dual-signed
// ValidationRecords chained into the LocalDAG.
package bridge

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/navigatorbuilds/elara-core/dag"
	"github.com/navigatorbuilds/elara-core/errors"
	"github.com/navigatorbuilds/elara-core/eventbus"
	"github.com/navigatorbuilds/elara-core/identity"
	"github.com/navigatorbuilds/elara-core/logger"
	"github.com/navigatorbuilds/elara-core/record"
)

// ErrBridgeSigning wraps a dual-signing failure during event processing.
var ErrBridgeSigning = errors.New("bridge signing error")

// creationEvents is the fixed list of ten creation events the bridge
// subscribes to at priority 50.
var creationEvents = []string{
	"MODEL_CREATED",
	"PREDICTION_MADE",
	"PRINCIPLE_CRYSTALLIZED",
	"WORKFLOW_CREATED",
	"CORRECTION_ADDED",
	"DREAM_COMPLETED",
	"EPISODE_ENDED",
	"HANDOFF_SAVED",
	"SYNTHESIS_CREATED",
	"OUTCOME_RECORDED",
}

// bridgePriority is the event-bus priority the bridge's subscriptions
// run at; ContinuityChain's trigger subscriptions run at 40, ahead of
// this, so a checkpoint always captures the head from before the
// bridge advances it.
const bridgePriority = 50

// artifactIDKeys is the fixed set of payload keys checked, in order,
// for a non-empty artifact id.
var artifactIDKeys = []string{"artifact_id", "id", "model_id", "prediction_id", "principle_id", "workflow_id", "episode_id", "handoff_id", "synthesis_id", "outcome_id"}

// summaryKeys is the fixed set of payload keys checked, in order, for
// the most descriptive text field.
var summaryKeys = []string{"summary", "description", "content", "text", "statement", "title"}

const summaryMaxLen = 200

const dedupCap = 10000

const defaultRateLimitPerMinute = 120

// Stats summarizes bridge activity.
type Stats struct {
	Processed          int64  `json:"processed"`
	SkippedInvalid     int64  `json:"skipped_invalid"`
	SkippedRateLimit   int64  `json:"skipped_rate_limit"`
	SkippedDedup       int64  `json:"skipped_dedup"`
	SigningFailures    int64  `json:"signing_failures"`
	DAGFailures        int64  `json:"dag_failures"`
	IdentityShortHash  string `json:"identity_short_hash"`
	DAGRecordCount     int    `json:"dag_record_count"`
}

// Bridge subscribes to cognitive creation events and turns accepted
// ones into dual-signed, DAG-inserted ValidationRecords.
type Bridge struct {
	id  *identity.Identity
	dag *dag.DAG
	bus *eventbus.Bus
	log *zap.SugaredLogger

	rateLimitPerMinute int

	mu             sync.Mutex
	head           string
	dedupSeen      map[string]struct{}
	dedupOrder     []string
	acceptanceTimes []time.Time

	processed        int64
	skippedInvalid   int64
	skippedRateLimit int64
	skippedDedup     int64
	signingFailures  int64
	dagFailures      int64
}

// Open constructs a bridge bound to the given identity, DAG, and event
// bus, computes the current tip as the initial parent, and subscribes
// to the ten creation events at priority 50. rateLimitPerMinute <= 0
// uses the default of 120.
func Open(id *identity.Identity, d *dag.DAG, bus *eventbus.Bus, rateLimitPerMinute int, log *zap.SugaredLogger) (*Bridge, error) {
	if rateLimitPerMinute <= 0 {
		rateLimitPerMinute = defaultRateLimitPerMinute
	}
	if log == nil {
		log = logger.Logger
	}

	head, err := d.Head()
	if err != nil {
		return nil, errors.Wrap(err, "compute initial tip")
	}

	b := &Bridge{
		id:                 id,
		dag:                d,
		bus:                bus,
		log:                log,
		rateLimitPerMinute: rateLimitPerMinute,
		head:               head,
		dedupSeen:          make(map[string]struct{}),
	}

	for _, eventType := range creationEvents {
		eventType := eventType
		bus.On(eventType, func(ev eventbus.Event) {
			b.handle(eventType, ev)
		}, bridgePriority, "bridge")
	}

	return b, nil
}

func (b *Bridge) handle(eventType string, ev eventbus.Event) {
	if len(ev.Data) == 0 {
		b.mu.Lock()
		b.skippedInvalid++
		b.mu.Unlock()
		return
	}

	if !b.checkRateLimit() {
		b.mu.Lock()
		b.skippedRateLimit++
		b.mu.Unlock()
		if logger.ShouldShowRateLimitDecisions(logger.Verbosity) {
			logger.BridgeWarnw(b.log, "bridge rate limit rejected event", "event_type", eventType)
		}
		return
	}

	artifactID := firstNonEmptyString(ev.Data, artifactIDKeys)
	if artifactID == "" {
		// An id-less event is never deduped against others of the same
		// type; a fresh id guarantees isDuplicate never matches it.
		artifactID = uuid.NewString()
	}

	if b.isDuplicate(artifactID) {
		b.mu.Lock()
		b.skippedDedup++
		b.mu.Unlock()
		if logger.ShouldShowDedupDecisions(logger.Verbosity) {
			logger.BridgeWarnw(b.log, "bridge skipped duplicate artifact", "event_type", eventType, "artifact_id", artifactID)
		}
		return
	}

	metadata := map[string]interface{}{
		"artifact_id":     artifactID,
		"content_summary": truncate(firstNonEmptyString(ev.Data, summaryKeys), summaryMaxLen),
		"artifact_type":   eventType,
		"domain":          "general",
		"confidence":      1.0,
		"zone":            "local",
		"witness_count":   0,
	}

	content, err := canonicalContentBytes(eventType, ev.Data)
	if err != nil {
		logger.BridgeWarnw(b.log, "bridge failed to build content bytes", "event_type", eventType, "error", err)
		return
	}

	b.mu.Lock()
	parents := []string{}
	if b.head != "" {
		parents = []string{b.head}
	}
	b.mu.Unlock()

	r, err := record.Create(content, b.id.PrimaryPublicKey, parents, record.ClassificationSovereign, metadata, nil)
	if err != nil {
		logger.BridgeWarnw(b.log, "bridge failed to create record", "event_type", eventType, "error", err)
		return
	}

	signable, err := r.SignableBytes()
	if err != nil {
		b.recordSigningFailure(eventType, err)
		return
	}
	sig, err := b.id.Sign(signable)
	if err != nil {
		b.recordSigningFailure(eventType, err)
		return
	}
	r.Signature = sig
	if b.id.Profile == identity.ProfileDual {
		if backupSig, err := b.id.SignBackup(signable); err == nil {
			r.BackupSignature = backupSig
		}
	}

	contentHash, err := b.dag.Insert(r, true) // verify even our own freshly-signed record, per the bridge's insert step
	if err != nil {
		b.mu.Lock()
		b.dagFailures++
		b.mu.Unlock()
		logger.BridgeWarnw(b.log, "bridge failed to insert record", logger.FieldRecordID, r.ID, "error", err)
		return
	}

	b.mu.Lock()
	b.head = r.ID
	b.processed++
	b.mu.Unlock()

	if logger.ShouldShowOperationInfo(logger.Verbosity) {
		logger.BridgeInfow(b.log, "bridge validated artifact", logger.FieldRecordID, r.ID, "event_type", eventType)
	}

	_, _ = b.bus.Emit("ARTIFACT_VALIDATED", map[string]interface{}{
		"record_id":    r.ID,
		"content_hash": contentHash,
	}, "bridge")
}

func (b *Bridge) recordSigningFailure(eventType string, err error) {
	b.mu.Lock()
	b.signingFailures++
	b.mu.Unlock()
	logger.BridgeWarnw(b.log, "bridge signing failure", "event_type", eventType, "error", err)
}

// checkRateLimit enforces a sliding one-minute window of acceptances.
func (b *Bridge) checkRateLimit() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	cutoff := time.Now().Add(-time.Minute)
	kept := b.acceptanceTimes[:0]
	for _, t := range b.acceptanceTimes {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	b.acceptanceTimes = kept

	if len(b.acceptanceTimes) >= b.rateLimitPerMinute {
		return false
	}
	b.acceptanceTimes = append(b.acceptanceTimes, time.Now())
	return true
}

// isDuplicate checks and records artifactID against the session's dedup
// set, LRU-clearing the oldest entries once the cap is reached.
func (b *Bridge) isDuplicate(artifactID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, seen := b.dedupSeen[artifactID]; seen {
		return true
	}

	if len(b.dedupOrder) >= dedupCap {
		oldest := b.dedupOrder[0]
		b.dedupOrder = b.dedupOrder[1:]
		delete(b.dedupSeen, oldest)
	}
	b.dedupSeen[artifactID] = struct{}{}
	b.dedupOrder = append(b.dedupOrder, artifactID)
	return false
}

// Stats returns DAG stats plus bridge counters and a truncated identity hash.
func (b *Bridge) Stats() (Stats, error) {
	dagStats, err := b.dag.Stats()
	if err != nil {
		return Stats{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		Processed:         b.processed,
		SkippedInvalid:    b.skippedInvalid,
		SkippedRateLimit:  b.skippedRateLimit,
		SkippedDedup:      b.skippedDedup,
		SigningFailures:   b.signingFailures,
		DAGFailures:       b.dagFailures,
		IdentityShortHash: b.id.ShortHash(),
		DAGRecordCount:    dagStats.RecordCount,
	}, nil
}

// Provenance scans every record created by this identity and returns
// those whose metadata's artifact_id matches.
func (b *Bridge) Provenance(artifactID string) ([]*record.Record, error) {
	records, err := b.dag.Query(b.id.PrimaryPublicKey, nil, 0)
	if err != nil {
		return nil, err
	}

	var matches []*record.Record
	for _, r := range records {
		if id, ok := r.Metadata["artifact_id"]; ok {
			if s, ok := id.(string); ok && s == artifactID {
				matches = append(matches, r)
			}
		}
	}
	return matches, nil
}

func firstNonEmptyString(data map[string]interface{}, keys []string) string {
	for _, k := range keys {
		if v, ok := data[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// canonicalContentBytes builds UTF-8 sorted-key JSON over
// {event_type, data}, matching encoding/json's native sorted-key,
// no-whitespace behavior for map values.
func canonicalContentBytes(eventType string, data map[string]interface{}) ([]byte, error) {
	payload := struct {
		EventType string                 `json:"event_type"`
		Data      map[string]interface{} `json:"data"`
	}{EventType: eventType, Data: data}
	return json.Marshal(payload)
}
