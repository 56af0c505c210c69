package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"casino/config"
	"casino/database"
	"casino/events"
	"casino/games/randutil"
	"casino/infrastructure"
	"casino/infrastructure/observability"
	"casino/repository"
	"casino/repository/memstore"
	"casino/service"

	"github.com/bwmarrin/discordgo"
	"github.com/coder/quartz"
	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// App is the wired engine: store, event bus, services and integrations
type App struct {
	Config *config.Config
	Bus    *events.Bus

	Ledger       service.LedgerService
	Blackjack    service.BlackjackService
	Roulette     service.RouletteService
	Slots        service.SlotsService
	Achievements service.AchievementService

	db      *database.DB
	redis   *redis.Client
	nats    *infrastructure.NATSClient
	discord *discordgo.Session
	metrics *observability.MetricsProvider
}

// ConfigureLogging applies LOG_LEVEL and picks the JSON formatter in production
func ConfigureLogging(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("level", cfg.LogLevel).Warn("Unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)
	log.SetOutput(os.Stderr)

	if cfg.Environment == "production" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

// NewApp opens the configured store, connects the optional integrations and
// builds the services on top of them
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{
		Config: cfg,
		Bus:    events.NewBus(),
	}

	var uowFactory service.UnitOfWorkFactory
	switch cfg.Store {
	case config.StoreMemory:
		log.Info("Using in-memory store")
		uowFactory = memstore.NewFactory(app.Bus, quartz.NewReal())
	default:
		log.Debug("Connecting to database...")
		db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		app.db = db
		uowFactory = repository.NewUnitOfWorkFactory(db, app.Bus)
		log.Debug("Database connection established successfully")
	}

	if err := app.startIntegrations(ctx); err != nil {
		app.Close()
		return nil, err
	}

	var history service.SpinHistory = memstore.NewSpinHistory(cfg.RouletteHistorySize)
	if app.redis != nil {
		history = infrastructure.NewRedisSpinHistory(app.redis, cfg.RouletteHistorySize)
	}

	rng := randutil.Default()
	app.Ledger = service.NewLedgerService(uowFactory)
	app.Blackjack = service.NewBlackjackService(uowFactory, rng)
	app.Roulette = service.NewRouletteService(uowFactory, rng, history)
	app.Slots = service.NewSlotsService(uowFactory, rng)
	app.Achievements = service.NewAchievementService(uowFactory)

	service.SubscribeAchievements(app.Bus, app.Achievements)
	if app.metrics != nil {
		app.metrics.Subscribe(app.Bus)
	}
	if app.nats != nil {
		infrastructure.NewSettlementForwarder(app.nats).Subscribe(app.Bus)
	}
	if app.discord != nil {
		infrastructure.NewDiscordNotifier(app.discord, cfg.DiscordChannelID, cfg.BigWinThreshold).Subscribe(app.Bus)
	}

	return app, nil
}

// startIntegrations connects every configured integration concurrently
func (a *App) startIntegrations(ctx context.Context) error {
	cfg := a.Config
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		metrics := observability.NewMetricsProvider(cfg)
		if err := metrics.Initialize(gctx); err != nil {
			return fmt.Errorf("failed to initialize metrics: %w", err)
		}
		a.metrics = metrics
		return nil
	})

	if cfg.RedisURL != "" {
		g.Go(func() error {
			client, err := infrastructure.NewRedisClient(gctx, cfg.RedisURL)
			if err != nil {
				return err
			}
			a.redis = client
			return nil
		})
	}

	if cfg.NATSServers != "" {
		g.Go(func() error {
			client := infrastructure.NewNATSClient(cfg.NATSServers)
			if err := client.Connect(gctx); err != nil {
				return err
			}
			a.nats = client
			if err := client.EnsureSettlementStream(); err != nil {
				return fmt.Errorf("failed to ensure settlement stream: %w", err)
			}
			return nil
		})
	}

	if cfg.DiscordToken != "" {
		g.Go(func() error {
			session, err := infrastructure.NewDiscordSession(cfg.DiscordToken)
			if err != nil {
				return err
			}
			a.discord = session
			return nil
		})
	}

	return g.Wait()
}

// Close waits for in-flight hooks and releases every connection
func (a *App) Close() {
	a.Bus.Wait()

	if a.discord != nil {
		if err := a.discord.Close(); err != nil {
			log.WithError(err).Warn("Error closing Discord session")
		}
	}
	if a.nats != nil {
		_ = a.nats.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.WithError(err).Warn("Error closing Redis client")
		}
	}
	if a.metrics != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.metrics.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("Error shutting down metrics")
		}
	}
	if a.db != nil {
		a.db.Close()
	}
}

// Serve runs the engine until ctx is cancelled
func Serve(ctx context.Context, cfg *config.Config) error {
	log.Info("Starting casino engine...")

	app, err := NewApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	log.WithFields(log.Fields{
		"environment": cfg.Environment,
		"store":       cfg.Store,
		"nats":        app.nats != nil,
		"redis":       app.redis != nil,
		"discord":     app.discord != nil,
	}).Info("Casino engine is running")

	<-ctx.Done()
	log.Info("Shutting down casino engine...")
	return nil
}
