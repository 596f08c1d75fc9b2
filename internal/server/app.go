// Package server initializes and runs the MediaVault backend: database
// and migrations, blob storage, session locks, the post-process queue,
// the services, and the retention sweeper, with graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"mediavault/internal/blob"
	"mediavault/internal/locks"
	"mediavault/internal/logging"
	"mediavault/internal/server/config"
	"mediavault/internal/server/jobs"
	"mediavault/internal/server/repositories/repomanager"
	"mediavault/internal/server/services"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	queue  *jobs.KafkaQueue

	FolderService *services.FolderService
	FileService   *services.FileService
	UploadService *services.UploadService
	AccessService *services.AccessService

	sweeper *services.Sweeper
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	repos := repomanager.NewPostgresRepositoryManager()
	if err := repos.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	blobs, err := newBlobStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	var keyed locks.Keyed
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		keyed = locks.NewRedisKeyed(client, cfg.LockTTL)
	} else {
		keyed = locks.NewMemoryKeyed()
	}

	queue := jobs.NewKafkaQueue(cfg.KafkaBrokers, cfg.KafkaTopic)

	app := &App{
		config:        cfg,
		logger:        logger,
		db:            db,
		queue:         queue,
		FolderService: services.NewFolderService(db, repos, blobs, logger),
		FileService:   services.NewFileService(db, repos, blobs, logger),
		UploadService: services.NewUploadService(db, repos, blobs, keyed, queue, logger, cfg),
		AccessService: services.NewAccessService(db, repos),
		sweeper:       services.NewSweeper(db, repos, blobs, logger, cfg.SessionRetention, cfg.SweepInterval),
	}
	return app, nil
}

func newBlobStore(ctx context.Context, cfg *config.Config) (blob.Store, error) {
	switch cfg.BlobBackend {
	case "disk":
		return blob.NewDiskStore(cfg.BlobDir)
	case "s3":
		return blob.NewS3Store(ctx, blob.S3Config{
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3BaseEndpoint,
		})
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.BlobBackend)
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.sweeper.Run(ctx)
	}()

	wg.Wait()

	if err := app.queue.Close(); err != nil {
		app.logger.Error(ctx, "queue close error", "error", err.Error())
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err.Error())
	}

	app.logger.Info(ctx, "App stopped")
}
