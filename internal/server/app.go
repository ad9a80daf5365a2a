// Package server opens the stores, runs migrations, wires the services and
// runs the HTTP API until the process is asked to stop.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/mediapub/internal/logging"
	"github.com/dmitrijs2005/mediapub/internal/server/blobstore"
	"github.com/dmitrijs2005/mediapub/internal/server/config"
	"github.com/dmitrijs2005/mediapub/internal/server/httpapi"
	"github.com/dmitrijs2005/mediapub/internal/server/repositories/documents"
	"github.com/dmitrijs2005/mediapub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/mediapub/internal/server/services"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"golang.org/x/sync/errgroup"
)

type App struct {
	config *config.Config
	logger logging.Logger

	pool  *pgxpool.Pool
	db    *sql.DB
	mongo *mongo.Client
	redis *redis.Client

	server *httpapi.Server
}

// NewApp opens every store named by c and builds the HTTP server. Stores
// opened before a failure are closed again.
func NewApp(ctx context.Context, c *config.Config) (_ *App, err error) {
	logger := logging.New(logging.Config{Level: c.LogLevel, Format: c.LogFormat})
	app := &App{config: c, logger: logger}

	defer func() {
		if err != nil {
			app.close(ctx)
		}
	}()

	app.pool, app.db, err = OpenPostgres(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	m := repomanager.NewPostgresRepositoryManager(repomanager.WithCallTimeout(c.DatabaseAcquireTimeout))
	if err = m.RunMigrations(ctx, app.db); err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}

	var docs *documents.MongoRepository
	app.mongo, docs, err = openMongo(ctx, c, logger)
	if err != nil {
		return nil, fmt.Errorf("mongo init error: %w", err)
	}

	blobs, err := openBlobStore(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	var limiter httpapi.LoginLimiter
	app.redis, limiter = newLoginLimiter(ctx, c, logger)

	sessions := services.NewSessionManager(app.db, m, logger,
		services.WithValidity(c.SessionTokenValidityDuration, c.RefreshTokenValidityDuration),
		services.WithEnforceExpiry(c.EnforceSessionExpiry),
		services.WithRevokeOnRotate(c.RevokeOnRotate),
	)

	h := httpapi.NewHandler(httpapi.Deps{
		Users:          services.NewUserService(app.db, m, sessions, logger),
		Sessions:       sessions,
		Credentials:    services.NewCredentialValidator(app.db, m, sessions, logger),
		Ingest:         services.NewIngestCoordinator(app.db, m, docs, blobs, logger),
		Retrieval:      services.NewRetrievalGateway(app.db, m, docs, blobs, logger),
		Limiter:        limiter,
		Logger:         logger,
		MaxUploadBytes: c.MaxUploadBytes,
	})

	app.server = httpapi.NewServer(c.HTTPAddr, h.Router(), logger)
	return app, nil
}

// OpenPostgres builds a bounded pgx pool and exposes it as *sql.DB for the
// repositories. The *sql.DB is capped at the same size as the pool, so a
// saturated pool makes callers queue in database/sql where their context
// deadline applies. The acquire timeout also caps dialing a new connection.
func OpenPostgres(ctx context.Context, c *config.Config) (*pgxpool.Pool, *sql.DB, error) {
	pc, err := pgxpool.ParseConfig(c.DatabaseDSN)
	if err != nil {
		return nil, nil, err
	}
	if c.DatabaseMaxConns > 0 {
		pc.MaxConns = c.DatabaseMaxConns
	}
	if c.DatabaseAcquireTimeout > 0 {
		pc.ConnConfig.ConnectTimeout = c.DatabaseAcquireTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	db := stdlib.OpenDBFromPool(pool)
	if c.DatabaseMaxConns > 0 {
		db.SetMaxOpenConns(int(c.DatabaseMaxConns))
	}
	return pool, db, nil
}

func openMongo(ctx context.Context, c *config.Config, logger logging.Logger) (*mongo.Client, *documents.MongoRepository, error) {
	opts := options.Client().
		ApplyURI(c.MongoURI).
		SetMaxPoolSize(50).
		SetMinPoolSize(5)
	if c.DatabaseAcquireTimeout > 0 {
		opts.SetTimeout(c.DatabaseAcquireTimeout)
	}
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, err
	}

	repo := documents.NewMongoRepository(client.Database(c.MongoDatabase).Collection(c.MongoCollection), logger)
	if err := repo.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, err
	}
	return client, repo, nil
}

// openBlobStore selects S3 when a bucket is configured and the local
// storage root otherwise.
func openBlobStore(ctx context.Context, c *config.Config) (blobstore.Store, error) {
	if c.S3Bucket != "" {
		return blobstore.NewS3Store(ctx, blobstore.S3Config{
			Bucket:       c.S3Bucket,
			Region:       c.S3Region,
			AccessKey:    c.S3RootUser,
			SecretKey:    c.S3RootPassword,
			BaseEndpoint: c.S3BaseEndpoint,
		})
	}
	return blobstore.NewLocalStore(c.StorageRoot)
}

// newLoginLimiter returns a nil client and limiter when no Redis address is
// configured; logins are then not throttled.
func newLoginLimiter(ctx context.Context, c *config.Config, logger logging.Logger) (*redis.Client, httpapi.LoginLimiter) {
	if c.RedisAddr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{Addr: c.RedisAddr, Password: c.RedisPassword})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn(ctx, "redis unreachable, login limiter will fail open", "addr", c.RedisAddr, "error", err)
	}
	return client, httpapi.NewRedisLoginLimiter(client, c.LoginRateLimit, c.LoginRateWindow)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until ctx is cancelled or a signal arrives, then releases
// every store.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.server.Run(gctx)
	})

	err := g.Wait()
	app.close(context.WithoutCancel(ctx))
	app.logger.Info(ctx, "App stopped")
	return err
}

func (app *App) close(ctx context.Context) {
	var errs []error
	if app.redis != nil {
		errs = append(errs, app.redis.Close())
	}
	if app.mongo != nil {
		errs = append(errs, app.mongo.Disconnect(ctx))
	}
	if app.db != nil {
		errs = append(errs, app.db.Close())
	}
	if app.pool != nil {
		app.pool.Close()
	}
	if err := errors.Join(errs...); err != nil {
		app.logger.Error(ctx, "closing stores", "error", err)
	}
}
