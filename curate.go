// Command curate runs a curated registry daemon with its built-in arbitrator.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"

	"github.com/jessevdk/go-flags"
	"go.uber.org/zap"

	"github.com/tcrlabs/curate/config"
	"github.com/tcrlabs/curate/logging"
	"github.com/tcrlabs/curate/server"
)

// Set at build time with -ldflags "-X main.version=...".
var version = "unknown"

// loadConfig layers the configuration: defaults, then the config file named on
// the command line, then the command line itself.
func loadConfig() (*config.Config, error) {
	cfg, err := config.ParseFlags(config.DefaultConfig())
	if err != nil {
		return nil, err
	}
	if cfg, err = config.ReadConfigFile(cfg); err != nil {
		return nil, err
	}
	if cfg, err = config.ParseFlags(cfg); err != nil {
		return nil, err
	}
	return config.SetupConfig(cfg)
}

func newLogger(cfg *config.Config) *zap.Logger {
	level := zap.InfoLevel
	if cfg.DebugLog {
		level = zap.DebugLevel
	}
	return logging.New(level, cfg.LogFile(), cfg.JSONLog, logging.WithRotation(cfg.MaxLogFileSize, cfg.MaxLogFiles))
}

// serveProfiling exposes net/http/pprof on the given port.
func serveProfiling(logger *zap.Logger, port string) {
	addr := net.JoinHostPort("", port)
	http.Handle("/", http.RedirectHandler("/debug/pprof", http.StatusSeeOther))
	logger.Info("profiling server listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, nil); err != nil {
		logger.Error("profiling server stopped", zap.Error(err))
	}
}

// run holds the daemon's lifetime so that its defers execute before main
// calls os.Exit.
func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	defer logger.Sync()
	ctx := logging.NewContext(context.Background(), logger)

	logger.Info("starting curate",
		zap.String("version", version),
		zap.String("datadir", cfg.DataDir),
		zap.String("dbdir", cfg.DbDir),
		zap.Inline(cfg.Registry),
	)

	if cfg.Profile != "" {
		go serveProfiling(logger, cfg.Profile)
	} else {
		runtime.MemProfileRate = 0
	}
	if cfg.CPUProfile != "" {
		f, err := os.Create(cfg.CPUProfile)
		if err != nil {
			return fmt.Errorf("creating CPU profile: %w", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("starting CPU profile: %w", err)
		}
		defer pprof.StopCPUProfile()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	srv, err := server.New(ctx, *cfg)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer func() {
		if err := srv.Close(); err != nil {
			logger.Error("closing server", zap.Error(err))
		}
		logger.Info("curate stopped")
	}()
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("running server: %w", err)
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		// go-flags already printed the help text.
		var flagsErr *flags.Error
		if !errors.As(err, &flagsErr) || flagsErr.Type != flags.ErrHelp {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
