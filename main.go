package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/query-estimator/pkg/adapters/datasource"
	_ "github.com/ekaya-inc/query-estimator/pkg/adapters/datasource/mssql"
	_ "github.com/ekaya-inc/query-estimator/pkg/adapters/datasource/postgres"
	_ "github.com/ekaya-inc/query-estimator/pkg/adapters/datasource/trino"
	"github.com/ekaya-inc/query-estimator/pkg/auth"
	"github.com/ekaya-inc/query-estimator/pkg/config"
	"github.com/ekaya-inc/query-estimator/pkg/crypto"
	"github.com/ekaya-inc/query-estimator/pkg/database"
	"github.com/ekaya-inc/query-estimator/pkg/estimator"
	"github.com/ekaya-inc/query-estimator/pkg/handlers"
	"github.com/ekaya-inc/query-estimator/pkg/logging"
	"github.com/ekaya-inc/query-estimator/pkg/mcp"
	"github.com/ekaya-inc/query-estimator/pkg/mcp/tools"
	"github.com/ekaya-inc/query-estimator/pkg/middleware"
	"github.com/ekaya-inc/query-estimator/pkg/repositories"
	"github.com/ekaya-inc/query-estimator/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "encrypt-secret" {
		if err := encryptSecret(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	cfg, err := config.Load(Version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("base_url", cfg.BaseURL),
		zap.Bool("auth_verification", cfg.Auth.EnableVerification),
		zap.String("database", fmt.Sprintf("%s@%s:%d/%s", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)),
		zap.String("datasource_catalog", cfg.Datasource.CatalogFile),
		zap.Bool("mcp_enabled", cfg.MCP.Enabled))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Metadata database
	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %s", logging.SanitizeError(err))
	}
	defer db.Close()

	if err := database.RunMigrations(db.SQL(), logger); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Analytic databases
	var encryptor *crypto.CredentialEncryptor
	if cfg.Datasource.EncryptionKey != "" {
		encryptor, err = crypto.NewCredentialEncryptor(cfg.Datasource.EncryptionKey)
		if err != nil {
			return fmt.Errorf("invalid datasource encryption key: %w", err)
		}
	}

	entries, err := services.LoadCatalogFile(cfg.Datasource.CatalogFile, encryptor)
	if err != nil {
		return err
	}

	adapterFactory := datasource.NewDatasourceAdapterFactory(datasource.PoolOptions{
		MaxConns: cfg.Datasource.PoolMaxConns,
	})
	connManager := datasource.NewConnectionManager(datasource.ConnectionManagerConfig{
		TTLMinutes:     cfg.Datasource.ConnectionTTLMinutes,
		MaxConnections: cfg.Datasource.MaxConnections,
	}, logger)
	defer func() {
		if err := connManager.Close(); err != nil {
			logger.Warn("Failed to close datasource connections", zap.Error(err))
		}
	}()

	catalog := services.NewDatabaseCatalog(entries, adapterFactory, connManager, logger,
		services.WithCircuitBreaker(datasource.CircuitBreakerConfig{
			Threshold:  cfg.Datasource.BreakerThreshold,
			ResetAfter: time.Duration(cfg.Datasource.BreakerResetSeconds) * time.Second,
		}))
	logger.Info("Datasource catalog loaded", zap.Int("databases", len(entries)))

	// Services
	trinoPatterns, err := estimator.CompileTrinoPatterns(cfg.Estimator.Trino.MemoryPattern, cfg.Estimator.Trino.RowsPattern)
	if err != nil {
		return fmt.Errorf("invalid estimator configuration: %w", err)
	}
	estimatorService := services.NewEstimatorService(catalog, logger, estimator.WithTrinoPatterns(trinoPatterns))
	insightsService := services.NewInsightsService(logger)
	snippetService := services.NewSnippetService(repositories.NewSnippetRepository(db), logger)

	// Auth
	jwksClient, err := auth.NewJWKSClient(&auth.JWKSConfig{
		EnableVerification: cfg.Auth.EnableVerification,
		JWKSEndpoints:      cfg.Auth.JWKSEndpoints,
		Audience:           cfg.Auth.Audience,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize JWKS client: %w", err)
	}
	defer jwksClient.Close()

	authMiddleware := auth.NewMiddleware(auth.NewAuthService(jwksClient, logger), logger)

	// Routes
	mux := http.NewServeMux()

	handlers.NewHealthHandler(cfg, connManager, logger).RegisterRoutes(mux)
	handlers.NewDatabasesHandler(catalog, logger).RegisterRoutes(mux, authMiddleware.Identify)
	handlers.NewEstimatorHandler(estimatorService, logger).RegisterRoutes(mux, authMiddleware.Identify)
	handlers.NewInsightsHandler(insightsService, logger).RegisterRoutes(mux, authMiddleware.Identify)
	handlers.NewSnippetsHandler(snippetService, logger).RegisterRoutes(mux, authMiddleware.Identify)

	if cfg.MCP.Enabled {
		mcpServer := mcp.NewServer(cfg.Version, &tools.ToolDeps{
			Estimator: estimatorService,
			Insights:  insightsService,
			Databases: catalog,
			Version:   cfg.Version,
			Logger:    logger,
		}, mcp.NewToolAuditor(logger), logger)
		handlers.NewMCPHandler(mcpServer, logger, cfg.MCP).RegisterRoutes(mux, authMiddleware.Identify)
	}

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler:           middleware.RequestLogger(logger)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting query-estimator",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version),
			zap.Bool("tls", cfg.TLSCertPath != ""))

		var err error
		if cfg.TLSCertPath != "" {
			err = server.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Received shutdown signal")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	logger.Info("Shutdown complete")
	return nil
}

// encryptSecret prints the sealed form of a datasource credential so it can
// be pasted into the catalog file as an "enc:" value.
func encryptSecret(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: query-estimator encrypt-secret <plaintext>")
	}

	key := os.Getenv("DATASOURCE_ENCRYPTION_KEY")
	if key == "" {
		return errors.New("DATASOURCE_ENCRYPTION_KEY must be set")
	}

	encryptor, err := crypto.NewCredentialEncryptor(key)
	if err != nil {
		return fmt.Errorf("invalid encryption key: %w", err)
	}

	sealed, err := encryptor.Seal(args[0])
	if err != nil {
		return err
	}
	fmt.Println(sealed)
	return nil
}
