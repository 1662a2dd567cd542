package commands

import (
	"path/filepath"

	"github.com/navigatorbuilds/elara-core/config"
	"github.com/navigatorbuilds/elara-core/dag"
	"github.com/navigatorbuilds/elara-core/decision"
	"github.com/navigatorbuilds/elara-core/errors"
	"github.com/navigatorbuilds/elara-core/identity"
	"github.com/navigatorbuilds/elara-core/logger"
	"github.com/navigatorbuilds/elara-core/witness"
)

// identityPath, dagPath, etc. lay out the on-disk files under a node's
// data directory the way spec.md §6 names them.
func identityPath(cfg *config.Config) string   { return filepath.Join(cfg.DataDir, "identity.json") }
func dagPath(cfg *config.Config) string        { return filepath.Join(cfg.DataDir, "dag.sqlite") }
func attestationsPath(cfg *config.Config) string { return filepath.Join(cfg.DataDir, "attestations.sqlite") }
func decisionPath(cfg *config.Config) string   { return filepath.Join(cfg.DataDir, "udr.sqlite") }
func continuityPath(cfg *config.Config) string { return filepath.Join(cfg.DataDir, "continuity.json") }
func peersPath(cfg *config.Config) string      { return filepath.Join(cfg.DataDir, "peers.json") }
func pidPath(cfg *config.Config) string        { return filepath.Join(cfg.DataDir, "elara.pid") }

// loadConfig loads configuration and ensures the data directory exists.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, errors.Wrap(err, "load configuration")
	}
	if _, err := config.EnsureDataDir(cfg); err != nil {
		return nil, errors.Wrap(err, "ensure data directory")
	}
	return cfg, nil
}

// openIdentity loads the node's persisted identity, generating one if
// this is the first run.
func openIdentity(cfg *config.Config) (*identity.Identity, error) {
	id, err := identity.LoadOrGenerate(identityPath(cfg), identity.EntityAI, identity.ProfileDual)
	if err != nil {
		return nil, errors.Wrap(err, "load or generate identity")
	}
	return id, nil
}

func openDAG(cfg *config.Config) (*dag.DAG, error) {
	d, err := dag.Open(dagPath(cfg), logger.Logger)
	if err != nil {
		return nil, errors.Wrap(err, "open dag store")
	}
	return d, nil
}

func openWitnesses(cfg *config.Config) (*witness.Manager, error) {
	w, err := witness.Open(attestationsPath(cfg), logger.Logger)
	if err != nil {
		return nil, errors.Wrap(err, "open witness store")
	}
	return w, nil
}

func openDecisions(cfg *config.Config) (*decision.Registry, error) {
	r, err := decision.Open(decisionPath(cfg), logger.Logger)
	if err != nil {
		return nil, errors.Wrap(err, "open decision registry")
	}
	return r, nil
}
