package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kursadbilgin/message-scheduler/internal/config"
	"github.com/kursadbilgin/message-scheduler/internal/contacts"
	"github.com/kursadbilgin/message-scheduler/internal/handler"
	"github.com/kursadbilgin/message-scheduler/internal/infra/database"
	"github.com/kursadbilgin/message-scheduler/internal/infra/database/migrations"
	infraredis "github.com/kursadbilgin/message-scheduler/internal/infra/redis"
	"github.com/kursadbilgin/message-scheduler/internal/observability"
	"github.com/kursadbilgin/message-scheduler/internal/provider"
	"github.com/kursadbilgin/message-scheduler/internal/repository"
	"github.com/kursadbilgin/message-scheduler/internal/service"
	"github.com/kursadbilgin/message-scheduler/internal/storage"
	"github.com/kursadbilgin/message-scheduler/internal/visibility"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const shutdownTimeout = 5 * time.Second

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger: ", err)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, logger); err != nil {
		logger.Fatal("message-scheduler stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	metrics := observability.NewMetrics()

	history := service.NewHistoryRecorder(ctx, repository.NewKVHistoryRepo(store), logger, metrics)
	templates := service.NewTemplateService(ctx, repository.NewKVTemplateRepo(store), logger)
	groups := service.NewGroupService(ctx, repository.NewKVGroupRepo(store), logger)

	var (
		returnSignal visibility.ReturnSignal = visibility.ManualOnly{}
		broadcaster  *visibility.Broadcaster
	)
	if cfg.ReturnSignal == config.ReturnSignalVisibility {
		broadcaster = visibility.NewBroadcaster()
		returnSignal = broadcaster
	}

	sequencer, err := service.NewSequencer(service.NewScheduler(logger, metrics), history, returnSignal, logger, metrics)
	if err != nil {
		return fmt.Errorf("sequencer initialization failed: %w", err)
	}

	session, err := service.NewSession(templates, groups, sequencer, logger, metrics)
	if err != nil {
		return fmt.Errorf("session initialization failed: %w", err)
	}

	links, err := provider.NewWhatsAppLinkBuilder(cfg.LinkBaseURL)
	if err != nil {
		return fmt.Errorf("link builder initialization failed: %w", err)
	}

	var source contacts.Source = contacts.Unsupported{}
	if cfg.ContactsURL != "" {
		remote, err := contacts.NewRemoteSource(cfg.ContactsURL)
		if err != nil {
			return fmt.Errorf("contact source initialization failed: %w", err)
		}
		source = remote
	}

	app, err := handler.NewApp(handler.Dependencies{
		Session:     session,
		History:     history,
		Links:       links,
		Signal:      broadcaster,
		Contacts:    source,
		Store:       store,
		StoreDriver: cfg.StoreDriver,
		Metrics:     metrics,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("http app initialization failed: %w", err)
	}

	g, groupCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("message-scheduler api started",
			zap.String("addr", cfg.ListenAddr()),
			zap.String("store", cfg.StoreDriver),
			zap.String("returnSignal", cfg.ReturnSignal),
		)
		return app.Listen(cfg.ListenAddr())
	})
	g.Go(func() error {
		<-groupCtx.Done()

		if session.Sequencer().Snapshot().ScheduledFor != nil {
			logger.Warn("pending scheduled activation dropped on shutdown")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("message-scheduler stopped")
	return nil
}

// openStore connects the configured durable store and returns a closer for
// it.
func openStore(ctx context.Context, cfg *config.Config) (storage.Store, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreMemory:
		return storage.NewMemoryStore(), func() {}, nil

	case config.StoreSQLite:
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("failed to create sqlite directory: %w", err)
			}
		}
		db, err := database.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite initialization failed: %w", err)
		}
		return migrateGormStore(db)

	case config.StorePostgres:
		db, err := database.OpenPostgres(cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres initialization failed: %w", err)
		}
		return migrateGormStore(db)

	case config.StoreRedis:
		rdb, err := infraredis.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("redis initialization failed: %w", err)
		}
		store, err := storage.NewRedisStore(rdb, cfg.RedisKeyPrefix)
		if err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("redis store initialization failed: %w", err)
		}
		return store, func() { _ = rdb.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func migrateGormStore(db *gorm.DB) (storage.Store, func(), error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("underlying db init failed: %w", err)
	}

	if err := migrations.Migrate(db); err != nil {
		_ = sqlDB.Close()
		return nil, nil, fmt.Errorf("database migrations failed: %w", err)
	}

	return repository.NewGormKVRepo(db), func() { _ = sqlDB.Close() }, nil
}
