// Package server orchestrates all components: COMMS client, DB, binder, dispatcher, bridge channel, HTTP health.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	comms "github.com/nats-io/nats.go"
	"golang.org/x/sync/errgroup"

	"github.com/morezero/snapkit-bridge/internal/config"
	"github.com/morezero/snapkit-bridge/pkg/bridge"
	"github.com/morezero/snapkit-bridge/pkg/commsutil"
	"github.com/morezero/snapkit-bridge/pkg/db"
	"github.com/morezero/snapkit-bridge/pkg/dispatcher"
	"github.com/morezero/snapkit-bridge/pkg/events"
	"github.com/morezero/snapkit-bridge/pkg/lifecycle"
	"github.com/morezero/snapkit-bridge/pkg/semver"
	"github.com/morezero/snapkit-bridge/pkg/snapkit"
)

const logPrefix = "server:server"

// Server is the snapkit-bridge orchestrator.
type Server struct {
	cfg        *config.Config
	nc         *comms.Conn
	pool       *pgxpool.Pool
	ledger     *db.Ledger
	binder     *lifecycle.Binder
	disp       *dispatcher.Dispatcher
	channel    *bridge.Channel
	gate       *semver.Gate
	httpServer *http.Server
	started    time.Time
}

// Run starts the server, blocks until shutdown signal, then cleans up.
func Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("%s - failed to load config: %w", logPrefix, err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)})))

	if err := cfg.ValidateForServe(); err != nil {
		return err
	}
	slog.Info(fmt.Sprintf("%s - Starting snapkit-bridge (provider=%s)", logPrefix, cfg.Provider))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := Start(ctx, cfg)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info(fmt.Sprintf("%s - HTTP health server listening on %s", logPrefix, s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s - HTTP server error: %w", logPrefix, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info(fmt.Sprintf("%s - Shutting down", logPrefix))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout+cfg.HealthCheckTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	})

	slog.Info(fmt.Sprintf("%s - snapkit-bridge is ready on %s", logPrefix, s.channel.Subject()))
	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info(fmt.Sprintf("%s - Shutdown complete", logPrefix))
	return nil
}

// Start connects every component and opens the bridge channel. The HTTP
// server is built but not listening; Run serves it.
func Start(ctx context.Context, cfg *config.Config) (*Server, error) {
	s := &Server{cfg: cfg, binder: lifecycle.NewBinder(), started: time.Now()}

	// Step 1: Connect to COMMS
	nc, err := commsutil.Connect(cfg.COMMSURL, cfg.COMMSName, commsutil.ConnectOptions{})
	if err != nil {
		return nil, fmt.Errorf("%s - failed to connect to COMMS: %w", logPrefix, err)
	}
	s.nc = nc

	// Step 2: Connect to database (optional)
	if cfg.LedgerEnabled() {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			s.close()
			return nil, fmt.Errorf("%s - failed to connect to database: %w", logPrefix, err)
		}
		s.pool = pool
		s.ledger = db.NewLedger(pool)

		if cfg.RunMigrations {
			migrations, err := db.LoadMigrations(cfg.MigrationPath)
			if err != nil {
				s.close()
				return nil, fmt.Errorf("%s - failed to load migrations: %w", logPrefix, err)
			}
			if err := db.RunMigrations(ctx, pool, migrations); err != nil {
				s.close()
				return nil, fmt.Errorf("%s - failed to run migrations: %w", logPrefix, err)
			}
		}
	} else {
		slog.Info(fmt.Sprintf("%s - DATABASE_URL not set; ledger disabled", logPrefix))
	}

	// Step 3: Events follow the binder
	publisher := events.NewCommsPublisher(nc, &events.CommsPublisherOpts{SubjectPrefix: cfg.EventsSubjectPrefix})
	s.binder.OnChange(events.LifecycleListener(publisher, cfg.BridgeChannel))

	// Step 4: Provider, gated on the SDK version
	p, err := buildProvider(cfg, nc, s.ledger)
	if err != nil {
		s.close()
		return nil, err
	}
	gate, err := semver.NewGate(cfg.SDKVersionConstraint)
	if err != nil {
		s.close()
		return nil, err
	}
	s.gate = gate

	// Step 5: Command catalog and dispatcher
	svc := snapkit.NewService(s.binder, gate.Guard(p.factory), snapkit.Options{
		Channel:   cfg.BridgeChannel,
		Publisher: publisher,
		Platform:  p.platform,
	})
	s.disp = dispatcher.NewDispatcher(svc.Routes(), s.binder)

	// Step 6: Open the bridge channel
	s.channel = bridge.NewChannel(nc, s.disp, bridge.ChannelOptions{
		Name:          cfg.BridgeChannel,
		SubjectPrefix: cfg.BridgeSubjectPrefix,
		Binder:        s.binder,
	})
	if err := s.channel.Open(ctx); err != nil {
		s.close()
		return nil, err
	}
	slog.Info(fmt.Sprintf("%s - %d methods registered on %s", logPrefix, len(s.disp.Methods()), s.channel.Subject()))

	// Step 7: HTTP health server
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           s.routes(),
		ReadHeaderTimeout: cfg.HealthCheckTimeout,
	}
	return s, nil
}

// Shutdown stops accepting requests, waits for in-flight replies, then
// releases the host binding and connections.
func (s *Server) Shutdown(ctx context.Context) error {
	var firstErr error
	if err := s.channel.Close(); err != nil {
		firstErr = err
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	if err := s.channel.Wait(waitCtx); err != nil {
		slog.Warn(fmt.Sprintf("%s - %v", logPrefix, err))
	}
	cancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("%s - HTTP shutdown: %w", logPrefix, err)
		}
	}
	s.binder.Detach()
	s.close()
	return firstErr
}

// Subject returns the bridge request subject.
func (s *Server) Subject() string {
	return s.channel.Subject()
}

func (s *Server) close() {
	if s.nc != nil {
		if err := s.nc.Drain(); err != nil {
			s.nc.Close()
		}
	}
	if s.pool != nil {
		s.pool.Close()
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
