package cmd

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

	"github.com/cenkalti/backoff/v4"
	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/frahmantamala/ai-helper/internal"
	"github.com/frahmantamala/ai-helper/internal/auth"
	"github.com/frahmantamala/ai-helper/internal/chat"
	"github.com/frahmantamala/ai-helper/internal/coreapi"
	"github.com/frahmantamala/ai-helper/internal/transport/rest"
	"github.com/frahmantamala/ai-helper/internal/transport/swagger"
	"github.com/frahmantamala/ai-helper/internal/user"
	userPostgres "github.com/frahmantamala/ai-helper/internal/user/postgres"
	"github.com/frahmantamala/ai-helper/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config    *internal.Config
	DB        *sqlx.DB
	Gorm      *gorm.DB
	Router    *chi.Mux
	Logger    *slog.Logger
	Users     *user.Service
	UserStore *userPostgres.UserRepository
	Auth      *auth.Service
	Policy    *auth.Policy
	Chat      *chat.Service
	CoreAPI   *coreapi.Client
}

func startHTTPServer() {
	ctx := context.Background()
	deps, err := initializeDependencies(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	setupRoutes(deps)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr, "environment", deps.Config.Environment)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			deps.Logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("Server stopped")
}

func setupRoutes(deps *Dependencies) {
	rest.RegisterAllRoutes(deps.Router, rest.Dependencies{
		DB:             deps.DB,
		AuthHandler:    auth.NewHandler(deps.Auth),
		RBAC:           auth.NewRBACAuthorization(deps.Policy, deps.Logger),
		UserHandler:    user.NewHandler(deps.Users),
		ChatHandler:    chat.NewHandler(deps.Chat),
		AllowedOrigins: deps.Config.Server.AllowedOriginList(),
		MetricsEnabled: deps.Config.Observability.Metrics.Enabled,
		MetricsPath:    deps.Config.Observability.Metrics.Path,
		Logger:         deps.Logger,
	})
}

func initializeDependencies(ctx context.Context) (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	lg := logger.Configure(os.Stdout, config.Observability.Logging.Level, config.Observability.Logging.Format)

	if _, err := swagger.Load(ctx); err != nil {
		lg.Warn("openapi document failed validation", "error", err)
	}

	db, err := initDB(ctx, config.Database, lg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := initGorm(db, config.Environment)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	deps := buildServices(config, lg)
	deps.DB = db
	deps.Gorm = gormDB
	deps.Router = chi.NewRouter()
	wireUserStore(deps, userPostgres.NewUserRepository(gormDB))

	return deps, nil
}

// buildServices creates everything that does not need the database.
func buildServices(config *internal.Config, lg *slog.Logger) *Dependencies {
	client := coreapi.NewClient(coreapi.Config{
		BaseURL:           config.Upstream.BaseURL,
		APIKey:            config.Upstream.APIKey,
		UseAuthentication: config.Upstream.UseAuthentication,
		Timeout:           config.Upstream.Timeout,
	}, lg)

	return &Dependencies{
		Config:  config,
		Logger:  lg,
		Policy:  auth.NewPolicy(config.Security.PolicyRules()),
		CoreAPI: client,
		Chat:    chat.NewService(client, chat.NewSimulator(lg), config.Upstream.DefaultModel, lg),
	}
}

func wireUserStore(deps *Dependencies, store *userPostgres.UserRepository) {
	tokens := auth.NewJWTTokenManager(deps.Config.Security.JWTSecret, deps.Config.Security.TokenLifetime())

	deps.UserStore = store
	deps.Users = user.NewService(store, deps.Config.Security.BCryptCost, deps.Logger)
	deps.Auth = auth.NewService(store, tokens, deps.Logger)
}

// initDB opens the pgx pool, retrying with exponential backoff until connect_timeout elapses.
func initDB(ctx context.Context, cfg internal.DatabaseConfig, lg *slog.Logger) (*sqlx.DB, error) {
	const driver = "pgx"

	var dbConn *sqlx.DB
	connect := func() error {
		conn, err := sqlx.ConnectContext(ctx, driver, cfg.Source)
		if err != nil {
			return err
		}
		dbConn = conn
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = cfg.ConnectTimeout

	notify := func(err error, next time.Duration) {
		lg.Warn("database not ready, retrying", "error", err, "retry_in", next)
	}
	if err := backoff.RetryNotify(connect, backoff.WithContext(policy, ctx), notify); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return dbConn, nil
}

// initGorm layers gorm over the already opened pool.
func initGorm(db *sqlx.DB, environment string) (*gorm.DB, error) {
	level := gormlogger.Warn
	if environment == "production" {
		level = gormlogger.Error
	}

	return gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(level),
		TranslateError: true,
	})
}
