package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/command"
	"github.com/MrSnakeDoc/shelf/internal/config"
	"github.com/MrSnakeDoc/shelf/internal/events"
	"github.com/MrSnakeDoc/shelf/internal/httpserver"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelf/internal/index"
	"github.com/MrSnakeDoc/shelf/internal/logger"
	"github.com/MrSnakeDoc/shelf/internal/query"
	"github.com/MrSnakeDoc/shelf/internal/redis"
	"github.com/MrSnakeDoc/shelf/internal/sources/seed"
	"github.com/MrSnakeDoc/shelf/internal/stats"
	"github.com/MrSnakeDoc/shelf/internal/store"
	redisstore "github.com/MrSnakeDoc/shelf/internal/store/redis"
	"github.com/MrSnakeDoc/shelf/internal/store/sqlite"
	"github.com/MrSnakeDoc/shelf/internal/telemetry"
	"github.com/MrSnakeDoc/shelf/internal/utils"
	"github.com/MrSnakeDoc/shelf/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	store       store.Store
	storeCloser io.Closer // nil for the memory store
	bus         *events.Bus
	commands    *command.Service
	stats       *stats.Service
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	telemetry.Initialize(cfg.MetricsEnabled)

	// Open the store early - fail fast if unavailable
	st, closer, err := openStore(cfg, loggerClient)
	if err != nil {
		loggerClient.Errorf("Failed to open %s store: %v", cfg.Store, err)
		os.Exit(1)
	}
	loggerClient.Info("store initialized successfully", logger.String("store", cfg.Store))

	bus := events.NewBus(cfg.EventBuffer, loggerClient.With(logger.String("component", "bus")))
	commands := command.NewService(st, bus, loggerClient.With(logger.String("component", "command")))
	queries := query.NewService(st, loggerClient.With(logger.String("component", "query")))

	statsService, err := stats.NewService(st, cfg.StatsCacheSize, cfg.StatsCacheTTL, loggerClient.With(logger.String("component", "stats")))
	if err != nil {
		loggerClient.Errorf("Failed to initialize statistics: %v", err)
		os.Exit(1)
	}

	// Dependencies passed to routes (extend as needed).
	d := deps.Deps{
		Logger:          loggerClient,
		StartTime:       time.Now(),
		Version:         version.Version,
		Commit:          version.Commit,
		BuildDate:       version.BuildDate,
		GoVersion:       version.GoVersion,
		AllowedHosts:    cfg.AllowedHosts,
		AllowedCIDRS:    cfg.AllowedCIDRS,
		TrustProxy:      cfg.TrustProxy,
		PrincipalHeader: cfg.PrincipalHeader,
		CORSOrigins:     cfg.CORSOrigins,
		RequestTimeout:  cfg.RequestTimeout,
		RateBurst:       cfg.RateBurst,
		RatePerMinute:   cfg.RatePerMinute,
		SSEKeepAlive:    cfg.SSEKeepAlive,
		StoreKind:       cfg.Store,
		Store:           st,
		Bus:             bus,
		Queries:         queries,
		Commands:        commands,
		Stats:           statsService,
		MetricsHandler:  telemetry.Handler(),
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      server,
		store:       st,
		storeCloser: closer,
		bus:         bus,
		commands:    commands,
		stats:       statsService,
	}
}

// openStore builds the backend selected by SHELF_STORE. The returned
// closer is nil when there is nothing to release.
func openStore(cfg *config.Config, log logger.Logger) (store.Store, io.Closer, error) {
	switch cfg.Store {
	case config.StoreRedis:
		log.Infof("Connecting to Redis at %s", cfg.RedisAddr)
		client, err := redis.New(context.Background(), redis.OptionsFromConfig(cfg), log)
		if err != nil {
			return nil, nil, err
		}
		return redisstore.NewStore(client), client, nil

	case config.StoreSQLite:
		log.Infof("Opening SQLite database at %s", cfg.SQLitePath)
		s, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil

	default:
		return index.NewMemoryIndex(), nil, nil
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting Shelf v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("Shelf %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Statistics cache invalidation follows the change event bus
	statsDone := make(chan struct{})
	go func() {
		defer close(statsDone)
		a.stats.Run(ctx, a.bus)
	}()

	err := a.serve(ctx)
	if stopErr := a.shutdown(statsDone); stopErr != nil {
		err = errors.Join(err, stopErr)
	}
	if err != nil {
		return err
	}

	a.logger.Info("✅ Shelf stopped cleanly")
	return nil
}

// serve imports the seed file, then runs the HTTP server until ctx is
// done or the server fails.
func (a *App) serve(ctx context.Context) error {
	if a.cfg.SeedFile != "" {
		importer := seed.NewImporter(a.cfg.SeedFile, a.commands, a.store, a.logger.With(logger.String("component", "seed")))
		if _, err := importer.Run(ctx); err != nil {
			return fmt.Errorf("failed to import seed file: %w", err)
		}
	} else {
		a.logger.Info("seed file not configured, starting with the store as is")
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
		return nil
	case err := <-errCh:
		return err
	}
}

// shutdown is the single teardown for every exit of Run, whether the
// server ran or not.
func (a *App) shutdown(statsDone <-chan struct{}) error {
	// Closing the bus ends every open event stream and the stats
	// invalidator, so the server does not wait on them.
	a.bus.Close()
	<-statsDone

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	var err error
	if stopErr := a.server.Stop(ctx); stopErr != nil {
		err = fmt.Errorf("failed to stop server: %w", stopErr)
	}

	utils.CloseLogged(a.storeCloser, a.cfg.Store+" store", a.logger)
	return err
}
