// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2016 The Decred developers
// Copyright (c) 2017-2023 The Spacemesh developers

package config

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"go.uber.org/zap/zapcore"

	"github.com/tcrlabs/curate/logging"
	"github.com/tcrlabs/curate/registry"
)

const (
	defaultDbDirName      = "db"
	defaultDataDirname    = "data"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "curate.log"
	defaultMaxLogFiles    = 3
	defaultMaxLogFileSize = 10

	defaultArbitratorAccount = "arbitrator"
	defaultArbitrationCost   = 1000
	defaultAppealTimeout     = 24 * time.Hour
	defaultRulingQueueSize   = 64
)

// Config defines the configuration options for the curate daemon.
//
// See loadConfig in curate.go for further details regarding the
// configuration loading+parsing process.
type Config struct {
	CurateDir      string  `long:"curatedir"      description:"The base directory that contains curate's data, logs, configuration file, etc."`
	ConfigFile     string  `long:"configfile"     description:"Path to configuration file"                                                      short:"c"`
	DataDir        string  `long:"datadir"        description:"The directory to store curate's data within."                                    short:"b"`
	DbDir          string  `long:"dbdir"          description:"The directory to store DBs within"`
	LogDir         string  `long:"logdir"         description:"Directory to log output."`
	DebugLog       bool    `long:"debuglog"       description:"Enable debug logs"`
	JSONLog        bool    `long:"jsonlog"        description:"Whether to log in JSON format"`
	MaxLogFiles    int     `long:"maxlogfiles"    description:"Maximum logfiles to keep (0 for no rotation)"`
	MaxLogFileSize int     `long:"maxlogfilesize" description:"Maximum logfile size in MB"`
	MetricsPort    *uint16 `long:"metrics-port"   description:"The port to expose metrics"`

	CPUProfile string `long:"cpuprofile" description:"Write CPU profile to the specified file"`
	Profile    string `long:"profile"    description:"Enable HTTP profiling on given port -- must be between 1024 and 65535"`

	RulingQueueSize int `long:"ruling-queue-size" description:"Number of rulings buffered between the arbitrator and the registry"`

	Registry   registry.Config   `group:"Registry"`
	Arbitrator *ArbitratorConfig `group:"Arbitrator" namespace:"arbitrator"`
}

// ArbitratorConfig configures the built-in centralized arbitrator.
type ArbitratorConfig struct {
	Account       string          `long:"account"        description:"Account of the arbitrator, receiving arbitration fees"`
	Cost          registry.Amount `long:"cost"           description:"Fee to create or appeal a dispute"`
	AppealTimeout time.Duration   `long:"appeal-timeout" description:"Duration of the appeal period after a ruling"`
}

// implement zap.ObjectMarshaler interface.
func (c ArbitratorConfig) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("account", c.Account)
	enc.AddString("cost", c.Cost.String())
	enc.AddDuration("appeal-timeout", c.AppealTimeout)
	return nil
}

func DefaultArbitratorConfig() *ArbitratorConfig {
	return &ArbitratorConfig{
		Account:       defaultArbitratorAccount,
		Cost:          registry.NewAmount(defaultArbitrationCost),
		AppealTimeout: defaultAppealTimeout,
	}
}

// DefaultConfig returns a config with default hardcoded values.
func DefaultConfig() *Config {
	curateDir := "./curate"
	cacheDir, err := os.UserCacheDir()
	if err == nil {
		curateDir = filepath.Join(cacheDir, "curate")
	}

	return &Config{
		CurateDir:       curateDir,
		DataDir:         filepath.Join(curateDir, defaultDataDirname),
		DbDir:           filepath.Join(curateDir, defaultDbDirName),
		LogDir:          filepath.Join(curateDir, defaultLogDirname),
		MaxLogFiles:     defaultMaxLogFiles,
		MaxLogFileSize:  defaultMaxLogFileSize,
		RulingQueueSize: defaultRulingQueueSize,
		Registry:        registry.DefaultConfig(),
		Arbitrator:      DefaultArbitratorConfig(),
	}
}

// LogFile is the path of the daemon's log file.
func (c *Config) LogFile() string {
	return filepath.Join(c.LogDir, defaultLogFilename)
}

// ParseFlags reads values from command line arguments.
func ParseFlags(preCfg *Config) (*Config, error) {
	if _, err := flags.Parse(preCfg); err != nil {
		return nil, err
	}
	return preCfg, nil
}

// ReadConfigFile reads config from an ini file.
// It uses the provided `cfg` as a base config and overrides it with the values
// from the config file.
func ReadConfigFile(cfg *Config) (*Config, error) {
	if cfg.ConfigFile == "" {
		return cfg, nil
	}
	logging.FromContext(context.Background()).Sugar().Debugf("reading config from %s", cfg.ConfigFile)
	if err := flags.IniParse(cfg.ConfigFile, cfg); err != nil {
		return nil, fmt.Errorf("failed to read config from %v: %w", cfg.ConfigFile, err)
	}

	return cfg, nil
}

// SetupConfig expands paths and initializes filesystem.
func SetupConfig(cfg *Config) (*Config, error) {
	// If the provided curate directory is not the default, we'll modify the
	// path to all of the files and directories that will live within it.
	defaultCfg := DefaultConfig()
	if cfg.CurateDir != defaultCfg.CurateDir {
		if cfg.DataDir == defaultCfg.DataDir {
			cfg.DataDir = filepath.Join(cfg.CurateDir, defaultDataDirname)
		}
		if cfg.LogDir == defaultCfg.LogDir {
			cfg.LogDir = filepath.Join(cfg.CurateDir, defaultLogDirname)
		}
		if cfg.DbDir == defaultCfg.DbDir {
			cfg.DbDir = filepath.Join(cfg.CurateDir, defaultDbDirName)
		}
	}

	// Create the curate directory if it doesn't already exist.
	if err := os.MkdirAll(cfg.CurateDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create %v: %w", cfg.CurateDir, err)
	}

	// As soon as we're done parsing configuration options, ensure all paths
	// to directories and files are cleaned and expanded before attempting
	// to use them later on.
	cfg.DataDir = cleanAndExpandPath(cfg.DataDir)
	cfg.DbDir = cleanAndExpandPath(cfg.DbDir)
	cfg.LogDir = cleanAndExpandPath(cfg.LogDir)

	if cfg.Arbitrator == nil {
		cfg.Arbitrator = DefaultArbitratorConfig()
	}
	if cfg.Arbitrator.AppealTimeout <= 0 {
		return nil, fmt.Errorf("invalid appeal timeout %s", cfg.Arbitrator.AppealTimeout)
	}
	if cfg.RulingQueueSize <= 0 {
		cfg.RulingQueueSize = defaultRulingQueueSize
	}
	return cfg, nil
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
// This function is taken from https://github.com/btcsuite/btcd
func cleanAndExpandPath(path string) string {
	if path == "" {
		return ""
	}

	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		var homeDir string
		user, err := user.Current()
		if err == nil {
			homeDir = user.HomeDir
		} else {
			homeDir = os.Getenv("HOME")
		}

		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but the variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}
