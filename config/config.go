// Package config loads the node configuration from command line flags,
// SEALEDVOTE_ prefixed environment variables and an optional config file,
// in that order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.vocdoni.io/dvote/db"
)

// EnvPrefix is the prefix of the environment variables.
const EnvPrefix = "SEALEDVOTE"

// Config is the node configuration.
type Config struct {
	ConfigFile string
	Datadir    string
	DBType     string
	LogLevel   string
	LogOutput  string
	APIHost    string
	APIPort    int
	Metrics    bool
	ChainID    uint32
	Admins     []common.Address
	CacheSize  int

	CryptoBackend      string
	CommitteeSize      int
	CommitteeThreshold int
	PaillierKeySize    int

	FinalizeInterval time.Duration
}

func defaultDatadir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".sealedvote"
	}
	return filepath.Join(home, ".sealedvote")
}

// NewFlagSet returns the flag set of the node with its defaults.
func NewFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.String("config", "", "path to a configuration file (yaml, toml or json)")
	fs.String("datadir", defaultDatadir(), "data directory")
	fs.String("dbType", db.TypePebble, "database backend")
	fs.String("logLevel", "info", "log level (debug, info, warn, error)")
	fs.String("logOutput", "stdout", "log output (stdout, stderr or a file path)")
	fs.String("apiHost", "0.0.0.0", "API listen host")
	fs.Int("apiPort", 9090, "API listen port")
	fs.Bool("metrics", true, "serve prometheus metrics on /metrics")
	fs.Uint32("chainId", 1, "chain identifier embedded in proposal IDs")
	fs.StringSlice("admins", nil, "administrator addresses")
	fs.Int("cacheSize", 256, "number of proposals kept in memory")
	fs.String("cryptoBackend", "elgamal", "crypto backend (plaintext, elgamal, paillier)")
	fs.Int("committeeSize", 5, "number of key share holders of the elgamal committee")
	fs.Int("committeeThreshold", 3, "key share holders needed to decrypt")
	fs.Int("paillierKeySize", 2048, "paillier key size in bits")
	fs.Duration("finalizeInterval", 30*time.Second, "interval between checks for proposals to finalize")
	return fs
}

// Load parses args with fs and merges the environment and the config file.
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}
	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("could not read config file %s: %w", file, err)
		}
	}

	conf := &Config{
		ConfigFile:         v.GetString("config"),
		Datadir:            v.GetString("datadir"),
		DBType:             v.GetString("dbType"),
		LogLevel:           v.GetString("logLevel"),
		LogOutput:          v.GetString("logOutput"),
		APIHost:            v.GetString("apiHost"),
		APIPort:            v.GetInt("apiPort"),
		Metrics:            v.GetBool("metrics"),
		ChainID:            v.GetUint32("chainId"),
		CacheSize:          v.GetInt("cacheSize"),
		CryptoBackend:      v.GetString("cryptoBackend"),
		CommitteeSize:      v.GetInt("committeeSize"),
		CommitteeThreshold: v.GetInt("committeeThreshold"),
		PaillierKeySize:    v.GetInt("paillierKeySize"),
		FinalizeInterval:   v.GetDuration("finalizeInterval"),
	}
	for _, a := range v.GetStringSlice("admins") {
		for _, s := range strings.Split(a, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			if !common.IsHexAddress(s) {
				return nil, fmt.Errorf("invalid admin address %q", s)
			}
			conf.Admins = append(conf.Admins, common.HexToAddress(s))
		}
	}
	return conf, conf.Validate()
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	switch c.CryptoBackend {
	case "plaintext", "paillier":
	case "elgamal":
		if c.CommitteeThreshold < 1 || c.CommitteeThreshold > c.CommitteeSize {
			return fmt.Errorf("invalid committee threshold %d for %d members", c.CommitteeThreshold, c.CommitteeSize)
		}
	default:
		return fmt.Errorf("unknown crypto backend %q", c.CryptoBackend)
	}
	if c.APIPort < 0 || c.APIPort > 65535 {
		return fmt.Errorf("invalid API port %d", c.APIPort)
	}
	if c.FinalizeInterval <= 0 {
		return fmt.Errorf("finalize interval must be positive")
	}
	if c.Datadir == "" {
		return fmt.Errorf("empty data directory")
	}
	return nil
}

// DBPath returns the database directory.
func (c *Config) DBPath() string {
	return filepath.Join(c.Datadir, "db")
}
