// Package server initializes and runs the application server. It opens the
// database, runs migrations, wires services to their repositories and
// side-channels (event publisher, balance cache), and serves the HTTP API
// until interrupted.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/promptsalchemy/tokenbank/internal/logging"
	"github.com/promptsalchemy/tokenbank/internal/server/auth"
	"github.com/promptsalchemy/tokenbank/internal/server/cache"
	"github.com/promptsalchemy/tokenbank/internal/server/config"
	"github.com/promptsalchemy/tokenbank/internal/server/events"
	"github.com/promptsalchemy/tokenbank/internal/server/httpapi"
	"github.com/promptsalchemy/tokenbank/internal/server/repositories/repomanager"
	"github.com/promptsalchemy/tokenbank/internal/server/services"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config    *config.Config
	logger    logging.Logger
	db        *sql.DB
	httpSrv   *http.Server
	publisher events.Publisher
	rdb       *redis.Client
}

func NewApp(cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(context.Background(), db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	codec, err := newCodec(cfg)
	if err != nil {
		return nil, err
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.KafkaBrokers != "" {
		publisher = events.NewKafkaPublisher(strings.Split(cfg.KafkaBrokers, ","), cfg.KafkaTopic)
	}

	var (
		rdb      *redis.Client
		balances *cache.BalanceCache
	)
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		balances = cache.NewBalanceCache(rdb)
	}

	ledger := services.NewLedgerService(db, m, cfg, logger, publisher, balances)
	magicLinks := services.NewMagicLinkService(db, m, codec, logger)

	api := httpapi.NewServer(ledger, magicLinks, db, cfg, logger)
	httpSrv := &http.Server{
		Addr:    cfg.EndpointAddr,
		Handler: api.Routes(),
	}

	return &App{
		config:    cfg,
		logger:    logger,
		db:        db,
		httpSrv:   httpSrv,
		publisher: publisher,
		rdb:       rdb,
	}, nil
}

func newCodec(cfg *config.Config) (auth.TokenCodec, error) {
	switch cfg.TokenStrategy {
	case config.StrategySigned:
		return auth.NewSignedCodec([]byte(cfg.SecretKey)), nil
	case config.StrategyOpaque:
		return auth.NewOpaqueCodec(), nil
	default:
		return nil, fmt.Errorf("unknown token strategy: %q", cfg.TokenStrategy)
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

	app.logger.Info(ctx, "starting server", "addr", app.config.EndpointAddr)

	app.initSignalHandler(cancelFunc)

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error(ctx, "http server error", "error", err.Error())
		}
	case <-ctx.Done():
		app.logger.Info(ctx, "shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.httpSrv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "shutdown error", "error", err.Error())
		}
	}

	app.close(ctx)
}

func (app *App) close(ctx context.Context) {
	if closer, ok := app.publisher.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			app.logger.Error(ctx, "event publisher close error", "error", err.Error())
		}
	}
	if app.rdb != nil {
		if err := app.rdb.Close(); err != nil {
			app.logger.Error(ctx, "redis close error", "error", err.Error())
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err.Error())
	}
}
