package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tcrlabs/curate/arbitrator"
	"github.com/tcrlabs/curate/config"
	"github.com/tcrlabs/curate/ledger"
	"github.com/tcrlabs/curate/logging"
	"github.com/tcrlabs/curate/registry"
	"github.com/tcrlabs/curate/transport"
)

// Server runs a registry together with its built-in arbitrator and bank.
// Rulings travel from the arbitrator to the registry through an in-memory
// transport.
type Server struct {
	cfg  config.Config
	reg  *registry.Registry
	arb  *arbitrator.Centralized
	bank *ledger.Bank
	tr   *transport.InMemory

	saveMu          sync.Mutex
	metricsListener net.Listener
}

func New(ctx context.Context, cfg config.Config) (*Server, error) {
	if _, err := os.Stat(cfg.DataDir); os.IsNotExist(err) {
		if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
			return nil, err
		}
	}
	if cfg.Arbitrator == nil {
		cfg.Arbitrator = config.DefaultArbitratorConfig()
	}

	tr := transport.NewInMemory(cfg.RulingQueueSize)
	arb := arbitrator.NewCentralized(
		ledger.Account(cfg.Arbitrator.Account),
		cfg.Arbitrator.Cost.Int(),
		cfg.Arbitrator.AppealTimeout,
		arbitrator.WithSink(tr),
	)
	bank := ledger.NewBank()

	s, err := loadState(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("loading state: %w", err)
	}
	if err := s.restore(arb, bank); err != nil {
		return nil, fmt.Errorf("restoring state: %w", err)
	}
	logging.FromContext(ctx).Info("arbitrator ready",
		zap.Inline(cfg.Arbitrator),
		zap.Int("disputes", len(s.Disputes)),
	)

	srv := &Server{
		cfg:  cfg,
		arb:  arb,
		bank: bank,
		tr:   tr,
	}
	reg, err := registry.New(ctx, cfg.DbDir, &durableArbitrator{Centralized: arb, save: srv.persist}, bank,
		registry.WithConfig(cfg.Registry),
	)
	if err != nil {
		return nil, fmt.Errorf("creating registry: %w", err)
	}
	srv.reg = reg

	if cfg.MetricsPort != nil {
		srv.metricsListener, err = net.Listen("tcp", fmt.Sprintf(":%d", *cfg.MetricsPort))
		if err != nil {
			reg.Close()
			return nil, fmt.Errorf("failed to listen: %v", err)
		}
	}
	return srv, nil
}

func (s *Server) persist() error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	return saveState(s.cfg.DataDir, captureState(s.arb, s.bank))
}

func (s *Server) Registry() *registry.Registry {
	return s.reg
}

func (s *Server) Arbitrator() *arbitrator.Centralized {
	return s.arb
}

func (s *Server) Bank() *ledger.Bank {
	return s.bank
}

// MetricsAddr returns the address metrics are served on, if enabled.
func (s *Server) MetricsAddr() net.Addr {
	if s.metricsListener == nil {
		return nil
	}
	return s.metricsListener.Addr()
}

// Close persists the arbitrator and bank state and releases all resources.
func (s *Server) Close() error {
	var result *multierror.Error
	if err := s.persist(); err != nil {
		result = multierror.Append(result, fmt.Errorf("saving state: %w", err))
	}
	if err := s.tr.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := s.reg.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	if s.metricsListener != nil {
		if err := s.metricsListener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// Start applies rulings and serves metrics until ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()
	serverGroup, ctx := errgroup.WithContext(ctx)

	logger := logging.FromContext(ctx)

	logger.Info("starting registry")
	serverGroup.Go(func() error {
		return s.reg.Run(ctx, s.tr)
	})

	var server *http.Server
	if s.metricsListener != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		server = &http.Server{Handler: loggerMiddleware(logger, mux), ReadHeaderTimeout: time.Second * 5}
		serverGroup.Go(func() error {
			logger.Sugar().Infof("metrics server listening on %s", s.metricsListener.Addr())
			err := server.Serve(s.metricsListener)
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		})
	}

	// Wait for the server to shut down gracefully
	<-ctx.Done()
	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Sugar().Errorf("failed to shutdown server: %s", err)
		}
	}
	if err := serverGroup.Wait(); err != nil {
		logger.Sugar().Errorf("error when waiting to shutdown servers: %s", err)
	}
	return nil
}

// loggerMiddleware logs all incoming HTTP requests.
func loggerMiddleware(logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := logger.Named(r.URL.Path).With(zap.Stringer("request_id", uuid.New()))
		logger.Debug("new HTTP request", zap.String("from", r.RemoteAddr), zap.String("method", r.Method))
		next.ServeHTTP(w, r.WithContext(logging.NewContext(r.Context(), logger)))
	})
}
