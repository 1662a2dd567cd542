// Package continuity implements the cognitive continuity chain: a
// linear, verifiable sequence of ValidationRecord checkpoints snapshotting
// the node's cognitive state at high-salience moments.
package continuity

import (
	"encoding/hex"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/sha3"

	"github.com/navigatorbuilds/elara-core/dag"
	"github.com/navigatorbuilds/elara-core/errors"
	"github.com/navigatorbuilds/elara-core/eventbus"
	"github.com/navigatorbuilds/elara-core/identity"
	"github.com/navigatorbuilds/elara-core/logger"
	"github.com/navigatorbuilds/elara-core/record"
)

// ErrContinuityIO wraps chain-state persistence failures.
var ErrContinuityIO = errors.New("continuity state I/O error")

// continuityPriority runs ahead of the bridge's priority-50 subscriptions
// so a checkpoint captures the head before the bridge advances it.
const continuityPriority = 40

// cooldown is the monotonic-clock minimum interval between accepted checkpoints.
const cooldown = 300 * time.Second

// moodDeltaThreshold gates MOOD_CHANGED: only deltas whose absolute sum
// exceeds this trigger a checkpoint.
const moodDeltaThreshold = 0.3

// triggers that always fire (subject to cooldown).
var unconditionalTriggers = []string{
	"SESSION_ENDED",
	"PRINCIPLE_CRYSTALLIZED",
	"MODEL_CREATED",
	"DREAM_COMPLETED",
	"BRAIN_THINKING_COMPLETED",
}

const moodChangedTrigger = "MOOD_CHANGED"

// CognitiveDigest is the snapshot of cognitive scalars captured at each checkpoint.
type CognitiveDigest struct {
	MoodValence      float64 `json:"mood_valence"`
	MoodEnergy       float64 `json:"mood_energy"`
	MoodOpenness     float64 `json:"mood_openness"`
	MemoryCount      int     `json:"memory_count"`
	ModelCount       int     `json:"model_count"`
	PredictionCount  int     `json:"prediction_count"`
	PrincipleCount   int     `json:"principle_count"`
	ActiveGoals      int     `json:"active_goals"`
	SessionCount     int     `json:"session_count"`
	AllostaticLoad   float64 `json:"allostatic_load"`
	Timestamp        float64 `json:"timestamp"`
}

// StateProvider is the collaborator interface the checkpoint calls to
// build a CognitiveDigest, rather than reaching across module
// boundaries directly. Every method should be individually
// fault-tolerant; the chain treats a provider error as a zero default,
// not a fatal failure.
type StateProvider interface {
	MoodVector() (valence, energy, openness float64, err error)
	MemoryCount() (int, error)
	ModelCount() (int, error)
	PredictionCount() (int, error)
	PrincipleCount() (int, error)
	ActiveGoals() (int, error)
	SessionCount() (int, error)
	AllostaticLoad() (float64, error)
}

// ChainState is the persisted pointer into the continuity chain.
type ChainState struct {
	ChainHead       string  `json:"chain_head"`
	ChainCount      int     `json:"chain_count"`
	Created         float64 `json:"created"`
	LastCheckpoint  float64 `json:"last_checkpoint"`
}

// Chain is the continuity checkpoint subscriber and chain-state owner.
type Chain struct {
	id       *identity.Identity
	dag      *dag.DAG
	bus      *eventbus.Bus
	provider StateProvider
	statePath string
	log      *zap.SugaredLogger

	mu              sync.Mutex
	state           ChainState
	lastCheckpoint  time.Time
}

// Open loads persisted chain state (or initializes fresh state) and
// subscribes to the fixed trigger list at priority 40.
func Open(id *identity.Identity, d *dag.DAG, bus *eventbus.Bus, provider StateProvider, statePath string, log *zap.SugaredLogger) (*Chain, error) {
	if log == nil {
		log = logger.Logger
	}

	c := &Chain{
		id:        id,
		dag:       d,
		bus:       bus,
		provider:  provider,
		statePath: statePath,
		log:       log,
	}

	if data, err := os.ReadFile(statePath); err == nil {
		if err := json.Unmarshal(data, &c.state); err != nil {
			return nil, errors.Mark(errors.Wrap(err, "unmarshal continuity state"), ErrContinuityIO)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Mark(errors.Wrapf(err, "read continuity state at %s", statePath), ErrContinuityIO)
	} else {
		c.state = ChainState{Created: nowSeconds()}
	}

	for _, trigger := range unconditionalTriggers {
		trigger := trigger
		bus.On(trigger, func(ev eventbus.Event) {
			c.onTrigger(trigger, ev)
		}, continuityPriority, "continuity")
	}

	bus.On(moodChangedTrigger, func(ev eventbus.Event) {
		if !moodDeltaExceedsThreshold(ev.Data) {
			return
		}
		c.onTrigger(moodChangedTrigger, ev)
	}, continuityPriority, "continuity")

	return c, nil
}

func moodDeltaExceedsThreshold(data map[string]interface{}) bool {
	sum := 0.0
	for _, key := range []string{"valence_delta", "energy_delta", "openness_delta"} {
		if v, ok := data[key]; ok {
			if f, ok := v.(float64); ok {
				sum += math.Abs(f)
			}
		}
	}
	return sum > moodDeltaThreshold
}

func (c *Chain) onTrigger(trigger string, _ eventbus.Event) {
	c.mu.Lock()
	if time.Since(c.lastCheckpoint) < cooldown {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	if _, err := c.Checkpoint(trigger); err != nil {
		logger.ChainWarnw(c.log, "continuity checkpoint failed", "trigger", trigger, "error", err)
	}
}

// Checkpoint builds, signs, and inserts a new checkpoint record
// unconditionally (callers enforcing the cooldown should check it
// themselves; event-bus-triggered calls go through onTrigger, which does).
func (c *Chain) Checkpoint(trigger string) (*record.Record, error) {
	started := time.Now()
	digest := c.buildDigest()

	digestJSON, err := json.Marshal(digest)
	if err != nil {
		return nil, errors.Wrap(err, "marshal cognitive digest")
	}
	sum := sha3.Sum256(digestJSON)
	digestHash := hex.EncodeToString(sum[:])

	c.mu.Lock()
	previousHead := c.state.ChainHead
	sequence := c.state.ChainCount
	c.mu.Unlock()

	var previousCheckpoint interface{}
	var parents []string
	if previousHead != "" {
		previousCheckpoint = previousHead
		parents = []string{previousHead}
	}

	metadata := map[string]interface{}{
		"record_type":          "cognitive_checkpoint",
		"digest_hash":          digestHash,
		"sequence":             sequence,
		"trigger":              trigger,
		"previous_checkpoint":  previousCheckpoint,
		"mood":                 []float64{digest.MoodValence, digest.MoodEnergy, digest.MoodOpenness},
		"memory_count":         digest.MemoryCount,
		"model_count":          digest.ModelCount,
		"prediction_count":     digest.PredictionCount,
		"principle_count":      digest.PrincipleCount,
		"active_goals":         digest.ActiveGoals,
		"session_count":        digest.SessionCount,
		"allostatic_load":      digest.AllostaticLoad,
	}

	r, err := record.Create(digestJSON, c.id.PrimaryPublicKey, parents, record.ClassificationSovereign, metadata, &digest.Timestamp)
	if err != nil {
		return nil, errors.Wrap(err, "create checkpoint record")
	}

	signable, err := r.SignableBytes()
	if err != nil {
		return nil, errors.Wrap(err, "compute checkpoint signable bytes")
	}
	sig, err := c.id.Sign(signable)
	if err != nil {
		return nil, errors.Wrap(err, "sign checkpoint")
	}
	r.Signature = sig
	if c.id.Profile == identity.ProfileDual {
		if backupSig, err := c.id.SignBackup(signable); err == nil {
			r.BackupSignature = backupSig
		}
	}

	if _, err := c.dag.Insert(r, true); err != nil {
		return nil, errors.Wrap(err, "insert checkpoint")
	}

	c.mu.Lock()
	c.state.ChainHead = r.ID
	c.state.ChainCount++
	c.state.LastCheckpoint = digest.Timestamp
	c.lastCheckpoint = time.Now()
	stateCopy := c.state
	c.mu.Unlock()

	if err := persistState(c.statePath, stateCopy); err != nil {
		logger.ChainWarnw(c.log, "failed to persist continuity state", "error", err)
	}

	durationMS := time.Since(started).Milliseconds()
	if logger.ShouldShowTiming(logger.Verbosity, durationMS) {
		logger.ChainInfow(c.log, "checkpoint timing", "trigger", trigger, logger.FieldDurationMS, durationMS)
	}

	_, _ = c.bus.Emit("CONTINUITY_CHECKPOINT", map[string]interface{}{
		"record_id":   r.ID,
		"sequence":    sequence,
		"digest_hash": digestHash,
		"trigger":     trigger,
	}, "continuity")

	return r, nil
}

func (c *Chain) buildDigest() CognitiveDigest {
	digest := CognitiveDigest{Timestamp: nowSeconds()}
	if c.provider == nil {
		return digest
	}

	if v, e, o, err := c.provider.MoodVector(); err == nil {
		digest.MoodValence, digest.MoodEnergy, digest.MoodOpenness = v, e, o
	}
	if n, err := c.provider.MemoryCount(); err == nil {
		digest.MemoryCount = n
	}
	if n, err := c.provider.ModelCount(); err == nil {
		digest.ModelCount = n
	}
	if n, err := c.provider.PredictionCount(); err == nil {
		digest.PredictionCount = n
	}
	if n, err := c.provider.PrincipleCount(); err == nil {
		digest.PrincipleCount = n
	}
	if n, err := c.provider.ActiveGoals(); err == nil {
		digest.ActiveGoals = n
	}
	if n, err := c.provider.SessionCount(); err == nil {
		digest.SessionCount = n
	}
	if load, err := c.provider.AllostaticLoad(); err == nil {
		digest.AllostaticLoad = load
	}
	return digest
}

// VerifyResult is the outcome of walking the chain from its stored head.
type VerifyResult struct {
	OK            bool
	VerifiedCount int
	Breaks        []string
}

// VerifyChain walks the chain backwards from the stored head, detecting
// cycles, checking each record's metadata tag, and verifying its
// signature when the crypto backend is available.
func (c *Chain) VerifyChain() VerifyResult {
	c.mu.Lock()
	head := c.state.ChainHead
	c.mu.Unlock()

	result := VerifyResult{OK: true}
	seen := make(map[string]struct{})
	current := head

	for current != "" {
		if _, ok := seen[current]; ok {
			result.OK = false
			result.Breaks = append(result.Breaks, "cycle detected at "+current)
			break
		}
		seen[current] = struct{}{}

		r, err := c.dag.Get(current)
		if err != nil {
			result.OK = false
			result.Breaks = append(result.Breaks, "record not found: "+current)
			break
		}

		recordType, _ := r.Metadata["record_type"].(string)
		if recordType != "cognitive_checkpoint" {
			result.OK = false
			result.Breaks = append(result.Breaks, "unexpected record_type at "+current)
			break
		}

		signable, err := r.SignableBytes()
		if err != nil {
			result.OK = false
			result.Breaks = append(result.Breaks, "failed to compute signable bytes for "+current)
			break
		}
		ok, err := identity.VerifyPrimary(r.CreatorPublicKey, signable, r.Signature)
		if err != nil {
			// Backend unavailable downgrades to a skipped check, not a break.
		} else if !ok {
			result.OK = false
			result.Breaks = append(result.Breaks, "signature verification failed at "+current)
			break
		}

		result.VerifiedCount++

		prev, ok := r.Metadata["previous_checkpoint"].(string)
		if !ok || prev == "" {
			break
		}
		current = prev
	}

	return result
}

// State returns the current persisted chain state.
func (c *Chain) State() ChainState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func persistState(path string, state ChainState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return errors.Mark(errors.Wrap(err, "marshal continuity state"), ErrContinuityIO)
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return errors.Mark(errors.Wrapf(err, "create continuity state directory %s", dir), ErrContinuityIO)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Mark(errors.Wrapf(err, "write continuity state to %s", tmp), ErrContinuityIO)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Mark(errors.Wrapf(err, "rename continuity state into place at %s", path), ErrContinuityIO)
	}
	return nil
}

func nowSeconds() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}
