package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"reflect"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/jensholdgaard/auction-room/internal/auction"
	"github.com/jensholdgaard/auction-room/internal/bot"
	"github.com/jensholdgaard/auction-room/internal/clock"
	"github.com/jensholdgaard/auction-room/internal/config"
	"github.com/jensholdgaard/auction-room/internal/health"
	"github.com/jensholdgaard/auction-room/internal/httpapi"
	"github.com/jensholdgaard/auction-room/internal/leader"
	"github.com/jensholdgaard/auction-room/internal/roster"
	"github.com/jensholdgaard/auction-room/internal/scout"
	"github.com/jensholdgaard/auction-room/internal/store"
	"github.com/jensholdgaard/auction-room/internal/telemetry"

	// Register store drivers so they are available via store.Open.
	_ "github.com/jensholdgaard/auction-room/internal/store/entstore"
	_ "github.com/jensholdgaard/auction-room/internal/store/memory"
	_ "github.com/jensholdgaard/auction-room/internal/store/postgres"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := run(*configPath); err != nil {
		slog.Error("fatal error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(configPath string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	tp, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		slog.Warn("telemetry setup failed, continuing without OTEL export", slog.Any("error", err))
		tp = telemetry.NewNopProvider()
	}
	defer func() {
		if shutdownErr := tp.Shutdown(context.Background()); shutdownErr != nil {
			slog.Error("telemetry shutdown error", slog.Any("error", shutdownErr))
		}
	}()

	logger := tp.Logger
	clk := clock.Real{}

	repos, err := store.Open(ctx, cfg.Database, clk)
	if err != nil {
		return fmt.Errorf("opening store (driver=%s): %w", cfg.Database.Driver, err)
	}
	defer repos.Close()

	logger.InfoContext(ctx, "store opened", slog.String("driver", cfg.Database.Driver))

	session := sessionID(cfg.Session)
	seed, err := loadSeed(ctx, cfg.Roster, session, repos)
	if err != nil {
		return err
	}

	if cfg.Session.ID == "" && cfg.Database.Driver != "memory" {
		logger.WarnContext(ctx, "no session.id configured, journal will not be recovered after restart",
			slog.String("session_id", session))
	}
	if cfg.LeaderElection.Enabled && cfg.Database.Driver == "memory" {
		logger.WarnContext(ctx, "leader election with the memory driver: a new leader starts a fresh room")
	}

	mgr, err := auction.NewManager(session, seed, repos.Events, logger, tp.TracerProvider, tp.MeterProvider, clk)
	if err != nil {
		return fmt.Errorf("creating auction manager: %w", err)
	}

	var reporter scout.Reporter = scout.Static(scout.Unavailable)
	if cfg.Scout.Enabled {
		reporter = scout.NewClient(cfg.Scout, nil, logger, tp.TracerProvider)
	}

	healthHandler := health.NewHandler(clk,
		health.Checker{
			Name:  "database",
			Check: repos.Ping,
		},
	)

	// The board runs on all replicas.
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           httpapi.SetupRoutes(mgr, healthHandler, tp.TracerProvider),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.InfoContext(ctx, "starting http server", slog.Int("port", cfg.Server.Port))
		if listenErr := httpServer.ListenAndServe(); listenErr != nil && !errors.Is(listenErr, http.ErrServerClosed) {
			logger.ErrorContext(ctx, "http server error", slog.Any("error", listenErr))
		}
	}()

	// drive owns the room: it replays the journal, then takes operator
	// commands until ctx is done. Only the leader runs it.
	drive := func(ctx context.Context) error {
		n, err := mgr.Recover(ctx)
		if err != nil {
			return fmt.Errorf("recovering session: %w", err)
		}
		if n > 0 {
			logger.InfoContext(ctx, "resumed auction session",
				slog.String("session_id", session),
				slog.Int("events", n),
			)
		}

		var discordBot *bot.Bot
		if cfg.Discord.Token != "" {
			discordBot, err = bot.New(cfg.Discord, mgr, reporter, logger, tp.TracerProvider)
			if err != nil {
				return fmt.Errorf("creating bot: %w", err)
			}
			if err = discordBot.Start(ctx); err != nil {
				return fmt.Errorf("starting bot: %w", err)
			}
		} else {
			logger.WarnContext(ctx, "no discord token configured, serving the board only")
		}

		healthHandler.SetReady(true)
		logger.InfoContext(ctx, "auction room is running",
			slog.String("version", version),
			slog.String("session_id", session),
		)

		<-ctx.Done()

		healthHandler.SetReady(false)
		if discordBot != nil {
			if stopErr := discordBot.Stop(); stopErr != nil {
				logger.Error("bot shutdown error", slog.Any("error", stopErr))
			}
		}
		return nil
	}

	if cfg.LeaderElection.Enabled {
		logger.InfoContext(ctx, "leader election enabled, waiting for leadership...")

		if leaderErr := leader.Run(ctx, cfg.LeaderElection, logger,
			func(ctx context.Context) {
				if driveErr := drive(ctx); driveErr != nil {
					logger.ErrorContext(ctx, "leader work failed", slog.Any("error", driveErr))
					cancel()
				}
			},
			func() {
				logger.Info("lost leadership, shutting down...")
				cancel()
			},
		); leaderErr != nil {
			return fmt.Errorf("leader election: %w", leaderErr)
		}
	} else if err := drive(ctx); err != nil {
		return err
	}

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", slog.Any("error", err))
	}

	logger.Info("shutdown complete")
	return nil
}

// errRosterChanged rejects a roster file that no longer matches the
// catalog a journaled session was played against.
var errRosterChanged = errors.New("roster file differs from the catalog of a session in progress")

// loadSeed reads the roster file into the catalog when one is configured,
// otherwise it uses the catalog as stored. A changed file is only imported
// while session has nothing journaled.
func loadSeed(ctx context.Context, cfg config.RosterConfig, session string, repos *store.Repositories) (*roster.Seed, error) {
	if cfg.Path == "" {
		seed, err := repos.Catalog.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("loading catalog: %w", err)
		}
		if err := seed.Validate(); err != nil {
			return nil, fmt.Errorf("validating catalog: %w", err)
		}
		return seed, nil
	}

	seed, err := roster.LoadFile(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("loading roster: %w", err)
	}

	stored, err := repos.Catalog.Load(ctx)
	switch {
	case errors.Is(err, store.ErrEmptyCatalog):
	case err != nil:
		return nil, fmt.Errorf("loading catalog: %w", err)
	case reflect.DeepEqual(stored, seed):
		return seed, nil
	default:
		events, err := repos.Events.Load(ctx, session)
		if err != nil {
			return nil, fmt.Errorf("loading session events: %w", err)
		}
		if len(events) > 0 {
			return nil, fmt.Errorf("%w: session %q has %d events, restore the file or start a new session.id",
				errRosterChanged, session, len(events))
		}
	}

	if err := repos.Catalog.Save(ctx, seed); err != nil {
		return nil, fmt.Errorf("importing roster: %w", err)
	}
	return seed, nil
}

func sessionID(cfg config.SessionConfig) string {
	if cfg.ID != "" {
		return cfg.ID
	}
	return uuid.NewString()
}
