// Package network implements the peer-to-peer HTTP record-exchange
// surface: a server exposing status/records/witness endpoints, and a
// thin client mirroring them.
package network

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/navigatorbuilds/elara-core/dag"
	"github.com/navigatorbuilds/elara-core/db"
	"github.com/navigatorbuilds/elara-core/errors"
	"github.com/navigatorbuilds/elara-core/eventbus"
	"github.com/navigatorbuilds/elara-core/identity"
	"github.com/navigatorbuilds/elara-core/logger"
	"github.com/navigatorbuilds/elara-core/record"
	"github.com/navigatorbuilds/elara-core/sym"
	"github.com/navigatorbuilds/elara-core/witness"
)

// maxRecordsPageSize caps GET /records regardless of the requested limit.
const maxRecordsPageSize = 100

// Server is the node's HTTP record-exchange surface.
type Server struct {
	id        *identity.Identity
	dag       *dag.DAG
	witnesses *witness.Manager
	bus       *eventbus.Bus
	port      int
	log       *zap.SugaredLogger

	mu      sync.Mutex
	httpSrv *http.Server
	limits  *peerLimiters
}

// NewServer constructs a server bound to the node's identity, DAG,
// witness manager, and event bus, listening on port.
func NewServer(id *identity.Identity, d *dag.DAG, witnesses *witness.Manager, bus *eventbus.Bus, port int, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = logger.Logger
	}
	return &Server{id: id, dag: d, witnesses: witnesses, bus: bus, port: port, log: log, limits: newPeerLimiters()}
}

// Start binds 0.0.0.0:port and registers routes. It returns once the
// listener is serving in the background.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", s.logged(s.handleStatus))
	mux.HandleFunc("POST /records", s.logged(s.limits.rateLimited(s.handleSubmitRecord)))
	mux.HandleFunc("GET /records", s.logged(s.handleQueryRecords))
	mux.HandleFunc("POST /witness", s.logged(s.limits.rateLimited(s.handleWitness)))

	addr := "0.0.0.0:" + strconv.Itoa(s.port)
	srv := &http.Server{Addr: addr, Handler: mux}

	s.mu.Lock()
	s.httpSrv = srv
	s.mu.Unlock()

	ln, err := netListen(addr)
	if err != nil {
		return errors.Wrapf(err, "bind %s", addr)
	}

	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.WithSymbol(s.log, sym.Net).Errorw("network server stopped unexpectedly", "error", err)
		}
	}()

	_, _ = s.bus.Emit("NETWORK_STARTED", map[string]interface{}{"port": s.port}, "network")
	logger.NetInfow(s.log, "network server started", "addr", addr)
	return nil
}

// Stop awaits graceful shutdown.
func (s *Server) Stop() error {
	s.mu.Lock()
	srv := s.httpSrv
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "shutdown network server")
	}
	_, _ = s.bus.Emit("NETWORK_STOPPED", nil, "network")
	return nil
}

type statusResponse struct {
	Identity   string `json:"identity"`
	EntityType string `json:"entity_type"`
	DAGRecords int    `json:"dag_records"`
	Port       int    `json:"port"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := s.dag.Stats()
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		Identity:   s.id.Hash,
		EntityType: string(s.id.EntityType),
		DAGRecords: stats.RecordCount,
		Port:       s.port,
	})
}

type submitRecordResponse struct {
	RecordID   string `json:"record_id"`
	RecordHash string `json:"record_hash"`
	Accepted   bool   `json:"accepted"`
}

func (s *Server) handleSubmitRecord(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil || len(body) == 0 {
		writeError(w, http.StatusBadRequest, "empty or unreadable body")
		return
	}

	rec, err := record.FromBytes(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed record: "+err.Error())
		return
	}
	if logger.ShouldShowHTTPBody(logger.Verbosity) {
		logger.NetDebugw(s.log, "submitted record body", logger.FieldRecordID, rec.ID, "wire_hex", hexEncode(body))
	}

	signable, err := rec.SignableBytes()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	ok, err := identity.VerifyPrimary(rec.CreatorPublicKey, signable, rec.Signature)
	if err == nil && !ok {
		writeError(w, http.StatusForbidden, "invalid signature")
		return
	}

	hash, err := s.dag.InsertForeign(rec)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	_, _ = s.bus.Emit("RECORD_RECEIVED", map[string]interface{}{"record_id": rec.ID}, "network")
	writeJSON(w, http.StatusOK, submitRecordResponse{RecordID: rec.ID, RecordHash: hash, Accepted: true})
}

type recordSummary struct {
	RecordID  string  `json:"record_id"`
	WireHex   string  `json:"wire_hex"`
	Timestamp float64 `json:"timestamp"`
}

func (s *Server) handleQueryRecords(w http.ResponseWriter, r *http.Request) {
	limit := maxRecordsPageSize
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 && n < limit {
		limit = n
	}

	var since *float64
	if raw := r.URL.Query().Get("since"); raw != "" {
		if ts, err := strconv.ParseFloat(raw, 64); err == nil {
			since = &ts
		}
	}

	records, err := s.dag.Query(nil, since, limit)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	out := make([]recordSummary, 0, len(records))
	for _, rec := range records {
		wire, err := rec.ToBytes()
		if err != nil {
			continue
		}
		if logger.ShouldLogAll(logger.Verbosity) {
			logger.NetDebugw(s.log, "record dump", logger.FieldRecordID, rec.ID, "content", string(rec.Content), "metadata", rec.Metadata)
		}
		out = append(out, recordSummary{RecordID: rec.ID, WireHex: hexEncode(wire), Timestamp: rec.Timestamp})
	}
	writeJSON(w, http.StatusOK, out)
}

type witnessResponse struct {
	RecordID  string  `json:"record_id"`
	Witness   string  `json:"witness"`
	Signature string  `json:"signature"`
	Timestamp float64 `json:"timestamp"`
}

func (s *Server) handleWitness(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil || len(body) == 0 {
		writeError(w, http.StatusBadRequest, "empty or unreadable body")
		return
	}

	rec, err := record.FromBytes(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed record: "+err.Error())
		return
	}

	signable, err := rec.SignableBytes()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	ok, err := identity.VerifyPrimary(rec.CreatorPublicKey, signable, rec.Signature)
	if err == nil && !ok {
		writeError(w, http.StatusForbidden, "invalid signature")
		return
	}

	counterSig, err := s.id.Sign(signable)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	ts := nowSeconds()
	attestation := witness.Attestation{
		RecordID:            rec.ID,
		WitnessIdentityHash: s.id.Hash,
		Signature:           counterSig,
		Timestamp:           ts,
	}
	if err := s.witnesses.AddAttestation(attestation); err != nil {
		writeStoreError(w, err)
		return
	}

	_, _ = s.bus.Emit("RECORD_WITNESSED", map[string]interface{}{"record_id": rec.ID, "witness": s.id.Hash}, "network")
	writeJSON(w, http.StatusOK, witnessResponse{
		RecordID:  rec.ID,
		Witness:   s.id.Hash,
		Signature: hexEncode(counterSig),
		Timestamp: ts,
	})
}

// logged wraps a handler with a peer-request log line, gated behind
// -vv so a quiet node doesn't log every status poll.
func (s *Server) logged(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if logger.ShouldShowHTTPRequests(logger.Verbosity) {
			logger.NetDebugw(s.log, "peer request", logger.FieldMethod, r.Method, logger.FieldPath, r.URL.Path, "remote", r.RemoteAddr)
		}
		started := time.Now()
		next(w, r)
		if durationMS := time.Since(started).Milliseconds(); logger.ShouldShowTimingAlways(durationMS) {
			logger.NetWarnw(s.log, "slow peer request", logger.FieldMethod, r.Method, logger.FieldPath, r.URL.Path, logger.FieldDurationMS, durationMS)
		}
	}
}

// writeStoreError maps a DAG/witness-store error to a response. A request
// that races Server.Stop's database close reports 503 rather than 500, since
// the failure is the node shutting down, not a malformed request.
func writeStoreError(w http.ResponseWriter, err error) {
	if db.IsDatabaseClosed(err) {
		writeError(w, http.StatusServiceUnavailable, "node is shutting down")
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, reason string) {
	writeJSON(w, status, map[string]string{"error": reason})
}
