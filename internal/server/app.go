// Package server assembles the hrkeeper server: storage, signing key,
// credential workflows, notification hand-off and the gRPC and HTTP
// endpoints, and runs them until the process is told to stop.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/hrkeeper/internal/cryptox"
	"github.com/dmitrijs2005/hrkeeper/internal/dbx"
	"github.com/dmitrijs2005/hrkeeper/internal/logging"
	"github.com/dmitrijs2005/hrkeeper/internal/server/auth"
	"github.com/dmitrijs2005/hrkeeper/internal/server/config"
	"github.com/dmitrijs2005/hrkeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/hrkeeper/internal/server/keystore"
	"github.com/dmitrijs2005/hrkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/hrkeeper/internal/server/notify"
	"github.com/dmitrijs2005/hrkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/hrkeeper/internal/server/services"

	gs "github.com/dmitrijs2005/hrkeeper/internal/server/grpc"
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	metrics    *metrics.Metrics
	identities *services.IdentityService
	closers    []io.Closer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	db, err := repomanager.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	app := &App{config: c, logger: logger, db: db, metrics: metrics.New()}
	app.closers = append(app.closers, db)

	if err := app.init(ctx); err != nil {
		app.Close()
		return nil, err
	}

	return app, nil
}

func (app *App) init(ctx context.Context) error {
	rm, err := repomanager.NewPostgresRepositoryManager(app.db)
	if err != nil {
		return fmt.Errorf("repository init error: %w", err)
	}

	if err := rm.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migrations error: %w", err)
	}

	keys, err := newKeyStore(ctx, app.config)
	if err != nil {
		return fmt.Errorf("key store error: %w", err)
	}

	notifier, closer, err := newNotifier(app.config, app.logger)
	if err != nil {
		return fmt.Errorf("notifier error: %w", err)
	}
	if closer != nil {
		app.closers = append(app.closers, closer)
	}

	txm := dbx.NewSQLTxManager(app.db)
	hasher := cryptox.HMACHasher{}
	tokens := cryptox.RandomTokenGenerator{}

	verification := services.NewVerificationWorkflow(txm, rm, hasher, tokens, app.logger)
	reset := services.NewPasswordResetWorkflow(txm, rm, hasher, tokens, notifier, app.metrics, app.config.ResetTokenTTL, app.logger)
	sessions := auth.NewSessionIssuer(keys, app.config.SessionLifetime)

	app.identities = services.NewIdentityService(txm, rm, hasher, verification, reset, sessions, notifier, app.metrics, app.logger)
	return nil
}

// newKeyStore returns the signing key source selected by c.KeyStore.
func newKeyStore(ctx context.Context, c *config.Config) (keystore.Store, error) {
	gen := cryptox.RandomTokenGenerator{}

	switch c.KeyStore {
	case config.KeyStoreS3:
		s3cfg := keystore.S3Config{
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
			AccessKey:    c.S3RootUser,
			SecretKey:    c.S3RootPassword,
			Bucket:       c.S3Bucket,
			ObjectKey:    c.S3KeyObject,
			Passphrase:   c.KeyPassphrase,
		}
		client, err := keystore.NewS3Client(ctx, s3cfg)
		if err != nil {
			return nil, err
		}
		return keystore.NewS3Store(ctx, client, s3cfg, gen)
	case config.KeyStoreMemory, "":
		return keystore.NewMemoryStore(gen)
	default:
		return nil, fmt.Errorf("unknown key store %q", c.KeyStore)
	}
}

// newNotifier publishes to AMQP when a broker URL is configured and logs
// otherwise. The returned closer is nil for the log notifier.
func newNotifier(c *config.Config, logger logging.Logger) (notify.Notifier, io.Closer, error) {
	if c.AMQPURL == "" {
		return notify.NewLogNotifier(logger), nil, nil
	}

	n, err := notify.DialAMQP(c.AMQPURL, c.AMQPQueue)
	if err != nil {
		return nil, nil, err
	}
	return n, n, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.identities, app.metrics)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewServer(app.config.EndpointAddrHTTP, app.db, app.metrics.Handler(), app.logger)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled, a signal arrives, or either server
// fails. Resources are released before it returns.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	if app.config.EndpointAddrHTTP != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startHTTPServer(ctx, cancelFunc)
		}()
	}

	wg.Wait()

	app.Close()
	app.logger.Info(context.Background(), "App stopped")
}

// Close releases the broker connection and the database pool.
func (app *App) Close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i].Close(); err != nil {
			app.logger.Warn(context.Background(), "close failed", "error", err)
		}
	}
	app.closers = nil
}
