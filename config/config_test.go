package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func resetEnv(t *testing.T) {
	t.Helper()
	Reset()
	for _, k := range []string{"ELARA_DATA_DIR", "ELARA_BRIDGE_RATE_LIMIT", "ELARA_NETWORK_PORT", "ELARA_NODE_TYPE", "ELARA_CONFIG_FILE"} {
		os.Unsetenv(k)
	}
	t.Cleanup(func() {
		Reset()
		for _, k := range []string{"ELARA_DATA_DIR", "ELARA_BRIDGE_RATE_LIMIT", "ELARA_NETWORK_PORT", "ELARA_NODE_TYPE", "ELARA_CONFIG_FILE"} {
			os.Unsetenv(k)
		}
	})
}

func TestLoadAppliesDefaults(t *testing.T) {
	resetEnv(t)
	os.Setenv("ELARA_DATA_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, defaultBridgeRateLimit, cfg.Bridge.RateLimit)
	require.Equal(t, defaultNetworkPort, cfg.Network.Port)
	require.Equal(t, NodeLeaf, cfg.Node.Type)
}

func TestLoadHonorsEnvironmentOverrides(t *testing.T) {
	resetEnv(t)
	os.Setenv("ELARA_DATA_DIR", t.TempDir())
	os.Setenv("ELARA_BRIDGE_RATE_LIMIT", "240")
	os.Setenv("ELARA_NETWORK_PORT", "9001")
	os.Setenv("ELARA_NODE_TYPE", "relay")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 240, cfg.Bridge.RateLimit)
	require.Equal(t, 9001, cfg.Network.Port)
	require.Equal(t, NodeRelay, cfg.Node.Type)
}

func TestLoadRejectsInvalidNodeType(t *testing.T) {
	resetEnv(t)
	os.Setenv("ELARA_DATA_DIR", t.TempDir())
	os.Setenv("ELARA_NODE_TYPE", "gremlin")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadReadsTOMLFile(t *testing.T) {
	resetEnv(t)
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(configPath, []byte(`
data_dir = "`+dir+`"

[bridge]
rate_limit = 60

[network]
port = 7000

[node]
type = "witness"
`), 0644))
	os.Setenv("ELARA_CONFIG_FILE", configPath)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 60, cfg.Bridge.RateLimit)
	require.Equal(t, 7000, cfg.Network.Port)
	require.Equal(t, NodeWitness, cfg.Node.Type)
}

func TestLoadCachesResultAcrossCalls(t *testing.T) {
	resetEnv(t)
	os.Setenv("ELARA_DATA_DIR", t.TempDir())

	first, err := Load()
	require.NoError(t, err)
	second, err := Load()
	require.NoError(t, err)
	require.Same(t, first, second)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	resetEnv(t)
	dir := t.TempDir()
	cfg := &Config{
		DataDir: dir,
		Bridge:  BridgeConfig{RateLimit: 75},
		Network: NetworkConfig{Port: 6100},
		Node:    NodeConfig{Type: NodeRelay},
	}

	require.NoError(t, Save(cfg))

	os.Setenv("ELARA_CONFIG_FILE", filepath.Join(dir, "config.toml"))
	loaded, err := Load()
	require.NoError(t, err)
	require.Equal(t, 75, loaded.Bridge.RateLimit)
	require.Equal(t, 6100, loaded.Network.Port)
	require.Equal(t, NodeRelay, loaded.Node.Type)
}

func TestEnsureDataDirCreatesDirectory(t *testing.T) {
	resetEnv(t)
	dir := filepath.Join(t.TempDir(), "nested", "data")
	cfg := &Config{DataDir: dir}

	got, err := EnsureDataDir(cfg)
	require.NoError(t, err)
	require.Equal(t, dir, got)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}
