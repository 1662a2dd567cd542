// Package config loads the substrate's runtime configuration from a
// TOML file layered under environment variable overrides, following
// the teacher's viper-based load pattern.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"

	"github.com/navigatorbuilds/elara-core/errors"
)

// NodeType selects which role this node plays on the peer network.
type NodeType string

const (
	NodeLeaf    NodeType = "leaf"
	NodeRelay   NodeType = "relay"
	NodeWitness NodeType = "witness"
)

// defaultBridgeRateLimit mirrors bridge.defaultRateLimitPerMinute so a
// config file never needs to repeat the bridge's own default.
const defaultBridgeRateLimit = 120

const defaultNetworkPort = 8765

// Config is the substrate's full runtime configuration.
type Config struct {
	DataDir string        `mapstructure:"data_dir" toml:"data_dir"`
	Bridge  BridgeConfig  `mapstructure:"bridge" toml:"bridge"`
	Network NetworkConfig `mapstructure:"network" toml:"network"`
	Node    NodeConfig    `mapstructure:"node" toml:"node"`
}

// BridgeConfig configures the Layer-1 event-to-record bridge.
type BridgeConfig struct {
	RateLimit int `mapstructure:"rate_limit" toml:"rate_limit"`
}

// NetworkConfig configures the peer-to-peer HTTP surface.
type NetworkConfig struct {
	Port int `mapstructure:"port" toml:"port"`
}

// NodeConfig configures this node's role on the peer network.
type NodeConfig struct {
	Type NodeType `mapstructure:"type" toml:"type"`
}

var globalConfig *Config
var viperInstance *viper.Viper

// Load reads configuration from $ELARA_DATA_DIR/config.toml (or the
// path override from ELARA_CONFIG_FILE), applying defaults and then
// environment variable overrides.
func Load() (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	v := initViper()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	globalConfig = &cfg
	return globalConfig, nil
}

// Reset clears the cached configuration and viper instance. Intended
// for tests that need a fresh load under different environment
// variables.
func Reset() {
	globalConfig = nil
	viperInstance = nil
}

func initViper() *viper.Viper {
	if viperInstance != nil {
		return viperInstance
	}

	v := viper.New()

	v.SetEnvPrefix("ELARA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configFile := os.Getenv("ELARA_CONFIG_FILE"); configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("toml")
		_ = v.ReadInConfig()
	} else if dataDir := dataDirDefault(); dataDir != "" {
		configPath := filepath.Join(dataDir, "config.toml")
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			v.SetConfigType("toml")
			_ = v.ReadInConfig()
		}
	}

	viperInstance = v
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", dataDirDefault())
	v.SetDefault("bridge.rate_limit", defaultBridgeRateLimit)
	v.SetDefault("network.port", defaultNetworkPort)
	v.SetDefault("node.type", string(NodeLeaf))
}

func dataDirDefault() string {
	if dir := os.Getenv("ELARA_DATA_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".elara"
	}
	return filepath.Join(home, ".elara")
}

func validate(cfg *Config) error {
	switch cfg.Node.Type {
	case NodeLeaf, NodeRelay, NodeWitness:
	default:
		return errors.Newf("invalid node.type %q: must be one of leaf, relay, witness", cfg.Node.Type)
	}
	if cfg.Bridge.RateLimit <= 0 {
		return errors.Newf("bridge.rate_limit must be positive, got %d", cfg.Bridge.RateLimit)
	}
	if cfg.Network.Port <= 0 || cfg.Network.Port > 65535 {
		return errors.Newf("network.port must be in (0, 65535], got %d", cfg.Network.Port)
	}
	return nil
}

// EnsureDataDir creates the configured data directory if missing and
// returns its path.
func EnsureDataDir(cfg *Config) (string, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return "", errors.Wrapf(err, "create data dir %s", cfg.DataDir)
	}
	return cfg.DataDir, nil
}

// Save writes cfg to $ELARA_DATA_DIR/config.toml, creating the data
// directory if needed. Used by `elara init` to lay down a starting
// config file a user can hand-edit afterward.
func Save(cfg *Config) error {
	if _, err := EnsureDataDir(cfg); err != nil {
		return err
	}

	f, err := os.Create(filepath.Join(cfg.DataDir, "config.toml"))
	if err != nil {
		return errors.Wrapf(err, "create config file in %s", cfg.DataDir)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return errors.Wrap(err, "encode config as TOML")
	}
	return nil
}
