// Package app provides the dependency injection container for assembling
// application components.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"

	auditHTTP "github.com/allisson/auditchain/internal/audit/http"
	auditRepository "github.com/allisson/auditchain/internal/audit/repository"
	auditService "github.com/allisson/auditchain/internal/audit/service"
	auditUsecase "github.com/allisson/auditchain/internal/audit/usecase"
	"github.com/allisson/auditchain/internal/config"
	"github.com/allisson/auditchain/internal/database"
	"github.com/allisson/auditchain/internal/http"
	"github.com/allisson/auditchain/internal/metrics"
	retentionHTTP "github.com/allisson/auditchain/internal/retention/http"
	retentionRepository "github.com/allisson/auditchain/internal/retention/repository"
	retentionUsecase "github.com/allisson/auditchain/internal/retention/usecase"
)

// Container holds all application dependencies and provides methods to access them.
// It follows the lazy initialization pattern - components are created on first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger          *slog.Logger
	db              *sql.DB
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics

	// Managers
	txManager database.TxManager

	// Services
	hasher        auditService.EventHasher
	payloadCipher auditService.PayloadCipher
	exportSigner  auditService.ExportSigner

	// Repositories
	eventRepo  auditUsecase.EventRepository
	stateRepo  auditUsecase.ChainStateRepository
	rangeRepo  auditUsecase.PurgedRangeRepository
	policyRepo retentionUsecase.RetentionPolicyRepository
	holdRepo   retentionUsecase.LegalHoldRepository
	runRepo    retentionUsecase.PurgeRunRepository

	// Use Cases
	appenderUseCase    auditUsecase.AppenderUseCase
	verifierUseCase    auditUsecase.VerifierUseCase
	exporterUseCase    auditUsecase.ExporterUseCase
	policyUseCase      retentionUsecase.PolicyUseCase
	coordinatorUseCase retentionUsecase.CoordinatorUseCase

	// Servers
	httpServer    *http.Server
	metricsServer *http.MetricsServer

	// Initialization flags and mutex for thread-safety
	mu                  sync.Mutex
	loggerInit          sync.Once
	dbInit              sync.Once
	metricsProviderInit sync.Once
	businessMetricsInit sync.Once
	txManagerInit       sync.Once
	hasherInit          sync.Once
	payloadCipherInit   sync.Once
	exportSignerInit    sync.Once
	eventRepoInit       sync.Once
	stateRepoInit       sync.Once
	rangeRepoInit       sync.Once
	policyRepoInit      sync.Once
	holdRepoInit        sync.Once
	runRepoInit         sync.Once
	appenderInit        sync.Once
	verifierInit        sync.Once
	exporterInit        sync.Once
	policyUseCaseInit   sync.Once
	coordinatorInit     sync.Once
	httpServerInit      sync.Once
	metricsServerInit   sync.Once
	initErrors          map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
// It creates a new logger on first access based on the log level in configuration.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection.
// It creates and configures the database connection on first access.
func (c *Container) DB() (*sql.DB, error) {
	c.dbInit.Do(func() {
		db, err := database.Connect(database.Config{
			Driver:             c.config.DBDriver,
			ConnectionString:   c.config.DBConnectionString,
			MaxOpenConnections: c.config.DBMaxOpenConnections,
			MaxIdleConnections: c.config.DBMaxIdleConnections,
			ConnMaxLifetime:    c.config.DBConnMaxLifetime,
		})
		if err != nil {
			c.initErrors["db"] = fmt.Errorf("failed to connect to database: %w", err)
			return
		}
		c.db = db
	})
	if err, exists := c.initErrors["db"]; exists {
		return nil, err
	}
	return c.db, nil
}

// MetricsProvider returns the Prometheus-backed OpenTelemetry metrics provider.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	c.metricsProviderInit.Do(func() {
		provider, err := metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["metricsProvider"] = fmt.Errorf("failed to create metrics provider: %w", err)
			return
		}
		c.metricsProvider = provider
	})
	if err, exists := c.initErrors["metricsProvider"]; exists {
		return nil, err
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the business metrics recorder. When metrics are
// disabled it returns a no-op implementation so use cases never check a flag.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	c.businessMetricsInit.Do(func() {
		if !c.config.MetricsEnabled {
			c.businessMetrics = metrics.NewNoOpBusinessMetrics()
			return
		}

		provider, err := c.MetricsProvider()
		if err != nil {
			c.initErrors["businessMetrics"] = err
			return
		}

		bm, err := metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["businessMetrics"] = fmt.Errorf("failed to create business metrics: %w", err)
			return
		}
		c.businessMetrics = bm
	})
	if err, exists := c.initErrors["businessMetrics"]; exists {
		return nil, err
	}
	return c.businessMetrics, nil
}

// TxManager returns the transaction manager.
func (c *Container) TxManager() (database.TxManager, error) {
	c.txManagerInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["txManager"] = fmt.Errorf("failed to get database for tx manager: %w", err)
			return
		}
		c.txManager = database.NewTxManager(db)
	})
	if err, exists := c.initErrors["txManager"]; exists {
		return nil, err
	}
	return c.txManager, nil
}

// EventHasher returns the canonical event hasher.
func (c *Container) EventHasher() auditService.EventHasher {
	c.hasherInit.Do(func() {
		c.hasher = auditService.NewEventHasher()
	})
	return c.hasher
}

// PayloadCipher returns the sensitive payload cipher. With no KMS configured it
// returns the noop cipher, which stores payloads in the clear but still digests
// them into the chain hash.
func (c *Container) PayloadCipher(ctx context.Context) (auditService.PayloadCipher, error) {
	c.payloadCipherInit.Do(func() {
		if c.config.KMSProvider == "" || c.config.KMSKeyURI == "" {
			c.payloadCipher = auditService.NewNoopPayloadCipher()
			return
		}

		cipher, err := auditService.NewKMSPayloadCipher(ctx, c.config.KMSKeyURI)
		if err != nil {
			c.initErrors["payloadCipher"] = fmt.Errorf("failed to create payload cipher: %w", err)
			return
		}
		c.payloadCipher = cipher
	})
	if err, exists := c.initErrors["payloadCipher"]; exists {
		return nil, err
	}
	return c.payloadCipher, nil
}

// ExportSigner returns the export signer, or nil when no signing secret is
// configured. A nil signer means exports carry no signature trailer.
func (c *Container) ExportSigner() (auditService.ExportSigner, error) {
	c.exportSignerInit.Do(func() {
		if c.config.ExportSigningSecret == "" {
			return
		}

		signer, err := auditService.NewHMACExportSigner([]byte(c.config.ExportSigningSecret))
		if err != nil {
			c.initErrors["exportSigner"] = fmt.Errorf("failed to create export signer: %w", err)
			return
		}
		c.exportSigner = signer
	})
	if err, exists := c.initErrors["exportSigner"]; exists {
		return nil, err
	}
	return c.exportSigner, nil
}

// EventRepository returns the audit event repository instance.
func (c *Container) EventRepository() (auditUsecase.EventRepository, error) {
	c.eventRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["eventRepo"] = fmt.Errorf("failed to get database for event repository: %w", err)
			return
		}

		switch c.config.DBDriver {
		case "mysql":
			c.eventRepo = auditRepository.NewMySQLEventRepository(db)
		case "postgres":
			c.eventRepo = auditRepository.NewPostgreSQLEventRepository(db)
		default:
			c.initErrors["eventRepo"] = fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
	})
	if err, exists := c.initErrors["eventRepo"]; exists {
		return nil, err
	}
	return c.eventRepo, nil
}

// ChainStateRepository returns the chain state repository instance.
func (c *Container) ChainStateRepository() (auditUsecase.ChainStateRepository, error) {
	c.stateRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["stateRepo"] = fmt.Errorf("failed to get database for chain state repository: %w", err)
			return
		}

		switch c.config.DBDriver {
		case "mysql":
			c.stateRepo = auditRepository.NewMySQLChainStateRepository(db)
		case "postgres":
			c.stateRepo = auditRepository.NewPostgreSQLChainStateRepository(db)
		default:
			c.initErrors["stateRepo"] = fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
	})
	if err, exists := c.initErrors["stateRepo"]; exists {
		return nil, err
	}
	return c.stateRepo, nil
}

// PurgedRangeRepository returns the purged range repository instance.
func (c *Container) PurgedRangeRepository() (auditUsecase.PurgedRangeRepository, error) {
	c.rangeRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["rangeRepo"] = fmt.Errorf("failed to get database for purged range repository: %w", err)
			return
		}

		switch c.config.DBDriver {
		case "mysql":
			c.rangeRepo = auditRepository.NewMySQLPurgedRangeRepository(db)
		case "postgres":
			c.rangeRepo = auditRepository.NewPostgreSQLPurgedRangeRepository(db)
		default:
			c.initErrors["rangeRepo"] = fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
	})
	if err, exists := c.initErrors["rangeRepo"]; exists {
		return nil, err
	}
	return c.rangeRepo, nil
}

// RetentionPolicyRepository returns the retention policy repository instance.
func (c *Container) RetentionPolicyRepository() (retentionUsecase.RetentionPolicyRepository, error) {
	c.policyRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["policyRepo"] = fmt.Errorf("failed to get database for policy repository: %w", err)
			return
		}

		switch c.config.DBDriver {
		case "mysql":
			c.policyRepo = retentionRepository.NewMySQLRetentionPolicyRepository(db)
		case "postgres":
			c.policyRepo = retentionRepository.NewPostgreSQLRetentionPolicyRepository(db)
		default:
			c.initErrors["policyRepo"] = fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
	})
	if err, exists := c.initErrors["policyRepo"]; exists {
		return nil, err
	}
	return c.policyRepo, nil
}

// LegalHoldRepository returns the legal hold repository instance.
func (c *Container) LegalHoldRepository() (retentionUsecase.LegalHoldRepository, error) {
	c.holdRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["holdRepo"] = fmt.Errorf("failed to get database for legal hold repository: %w", err)
			return
		}

		switch c.config.DBDriver {
		case "mysql":
			c.holdRepo = retentionRepository.NewMySQLLegalHoldRepository(db)
		case "postgres":
			c.holdRepo = retentionRepository.NewPostgreSQLLegalHoldRepository(db)
		default:
			c.initErrors["holdRepo"] = fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
	})
	if err, exists := c.initErrors["holdRepo"]; exists {
		return nil, err
	}
	return c.holdRepo, nil
}

// PurgeRunRepository returns the purge run repository instance.
func (c *Container) PurgeRunRepository() (retentionUsecase.PurgeRunRepository, error) {
	c.runRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["runRepo"] = fmt.Errorf("failed to get database for purge run repository: %w", err)
			return
		}

		switch c.config.DBDriver {
		case "mysql":
			c.runRepo = retentionRepository.NewMySQLPurgeRunRepository(db)
		case "postgres":
			c.runRepo = retentionRepository.NewPostgreSQLPurgeRunRepository(db)
		default:
			c.initErrors["runRepo"] = fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
	})
	if err, exists := c.initErrors["runRepo"]; exists {
		return nil, err
	}
	return c.runRepo, nil
}

// AppenderUseCase returns the chain appender use case instance.
func (c *Container) AppenderUseCase(ctx context.Context) (auditUsecase.AppenderUseCase, error) {
	c.appenderInit.Do(func() {
		txManager, err := c.TxManager()
		if err != nil {
			c.initErrors["appender"] = err
			return
		}
		eventRepo, err := c.EventRepository()
		if err != nil {
			c.initErrors["appender"] = err
			return
		}
		stateRepo, err := c.ChainStateRepository()
		if err != nil {
			c.initErrors["appender"] = err
			return
		}
		cipher, err := c.PayloadCipher(ctx)
		if err != nil {
			c.initErrors["appender"] = err
			return
		}

		useCase := auditUsecase.NewAppenderUseCase(
			auditUsecase.AppenderConfig{
				MaxRetries:     c.config.AppendMaxRetries,
				RetryBaseDelay: c.config.AppendRetryBaseDelay,
			},
			txManager,
			eventRepo,
			stateRepo,
			c.EventHasher(),
			cipher,
		)

		bm, err := c.BusinessMetrics()
		if err != nil {
			c.initErrors["appender"] = err
			return
		}
		c.appenderUseCase = auditUsecase.NewAppenderUseCaseWithMetrics(useCase, bm)
	})
	if err, exists := c.initErrors["appender"]; exists {
		return nil, err
	}
	return c.appenderUseCase, nil
}

// VerifierUseCase returns the chain verifier use case instance.
func (c *Container) VerifierUseCase() (auditUsecase.VerifierUseCase, error) {
	c.verifierInit.Do(func() {
		eventRepo, err := c.EventRepository()
		if err != nil {
			c.initErrors["verifier"] = err
			return
		}
		rangeRepo, err := c.PurgedRangeRepository()
		if err != nil {
			c.initErrors["verifier"] = err
			return
		}

		useCase := auditUsecase.NewVerifierUseCase(
			auditUsecase.VerifierConfig{BatchSize: c.config.VerifyBatchSize},
			eventRepo,
			rangeRepo,
			c.EventHasher(),
		)

		bm, err := c.BusinessMetrics()
		if err != nil {
			c.initErrors["verifier"] = err
			return
		}
		c.verifierUseCase = auditUsecase.NewVerifierUseCaseWithMetrics(useCase, bm)
	})
	if err, exists := c.initErrors["verifier"]; exists {
		return nil, err
	}
	return c.verifierUseCase, nil
}

// ExporterUseCase returns the compliance exporter use case instance.
func (c *Container) ExporterUseCase() (auditUsecase.ExporterUseCase, error) {
	c.exporterInit.Do(func() {
		eventRepo, err := c.EventRepository()
		if err != nil {
			c.initErrors["exporter"] = err
			return
		}
		verifier, err := c.VerifierUseCase()
		if err != nil {
			c.initErrors["exporter"] = err
			return
		}
		signer, err := c.ExportSigner()
		if err != nil {
			c.initErrors["exporter"] = err
			return
		}

		useCase := auditUsecase.NewExporterUseCase(
			auditUsecase.VerifierConfig{BatchSize: c.config.VerifyBatchSize},
			eventRepo,
			verifier,
			signer,
		)

		bm, err := c.BusinessMetrics()
		if err != nil {
			c.initErrors["exporter"] = err
			return
		}
		c.exporterUseCase = auditUsecase.NewExporterUseCaseWithMetrics(useCase, bm)
	})
	if err, exists := c.initErrors["exporter"]; exists {
		return nil, err
	}
	return c.exporterUseCase, nil
}

// PolicyUseCase returns the retention policy use case instance.
func (c *Container) PolicyUseCase(ctx context.Context) (retentionUsecase.PolicyUseCase, error) {
	c.policyUseCaseInit.Do(func() {
		policyRepo, err := c.RetentionPolicyRepository()
		if err != nil {
			c.initErrors["policyUseCase"] = err
			return
		}
		holdRepo, err := c.LegalHoldRepository()
		if err != nil {
			c.initErrors["policyUseCase"] = err
			return
		}
		appender, err := c.AppenderUseCase(ctx)
		if err != nil {
			c.initErrors["policyUseCase"] = err
			return
		}

		useCase := retentionUsecase.NewPolicyUseCase(policyRepo, holdRepo, appender)

		bm, err := c.BusinessMetrics()
		if err != nil {
			c.initErrors["policyUseCase"] = err
			return
		}
		c.policyUseCase = retentionUsecase.NewPolicyUseCaseWithMetrics(useCase, bm)
	})
	if err, exists := c.initErrors["policyUseCase"]; exists {
		return nil, err
	}
	return c.policyUseCase, nil
}

// CoordinatorUseCase returns the purge coordinator use case instance.
func (c *Container) CoordinatorUseCase(ctx context.Context) (retentionUsecase.CoordinatorUseCase, error) {
	c.coordinatorInit.Do(func() {
		txManager, err := c.TxManager()
		if err != nil {
			c.initErrors["coordinator"] = err
			return
		}
		runRepo, err := c.PurgeRunRepository()
		if err != nil {
			c.initErrors["coordinator"] = err
			return
		}
		policyRepo, err := c.RetentionPolicyRepository()
		if err != nil {
			c.initErrors["coordinator"] = err
			return
		}
		holdRepo, err := c.LegalHoldRepository()
		if err != nil {
			c.initErrors["coordinator"] = err
			return
		}
		eventRepo, err := c.EventRepository()
		if err != nil {
			c.initErrors["coordinator"] = err
			return
		}
		stateRepo, err := c.ChainStateRepository()
		if err != nil {
			c.initErrors["coordinator"] = err
			return
		}
		rangeRepo, err := c.PurgedRangeRepository()
		if err != nil {
			c.initErrors["coordinator"] = err
			return
		}
		appender, err := c.AppenderUseCase(ctx)
		if err != nil {
			c.initErrors["coordinator"] = err
			return
		}

		useCase := retentionUsecase.NewCoordinatorUseCase(
			retentionUsecase.CoordinatorConfig{
				Interval:        c.config.PurgeInterval,
				BatchSize:       c.config.PurgeBatchSize,
				RequireApproval: c.config.PurgeRequireApproval,
			},
			txManager,
			runRepo,
			policyRepo,
			holdRepo,
			eventRepo,
			stateRepo,
			rangeRepo,
			appender,
			c.Logger(),
		)

		bm, err := c.BusinessMetrics()
		if err != nil {
			c.initErrors["coordinator"] = err
			return
		}
		c.coordinatorUseCase = retentionUsecase.NewCoordinatorUseCaseWithMetrics(useCase, bm)
	})
	if err, exists := c.initErrors["coordinator"]; exists {
		return nil, err
	}
	return c.coordinatorUseCase, nil
}

// HTTPServer returns the API HTTP server with all routes and middleware attached.
func (c *Container) HTTPServer(ctx context.Context) (*http.Server, error) {
	c.httpServerInit.Do(func() {
		server, err := c.initHTTPServer(ctx)
		if err != nil {
			c.initErrors["httpServer"] = err
			return
		}
		c.httpServer = server
	})
	if err, exists := c.initErrors["httpServer"]; exists {
		return nil, err
	}
	return c.httpServer, nil
}

// MetricsServer returns the Prometheus metrics HTTP server.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	c.metricsServerInit.Do(func() {
		provider, err := c.MetricsProvider()
		if err != nil {
			c.initErrors["metricsServer"] = err
			return
		}
		c.metricsServer = http.NewMetricsServer(
			c.config.ServerHost,
			c.config.MetricsPort,
			c.Logger(),
			provider,
		)
	})
	if err, exists := c.initErrors["metricsServer"]; exists {
		return nil, err
	}
	return c.metricsServer, nil
}

// Shutdown performs cleanup of all initialized resources.
// It should be called when the application is shutting down.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %v", shutdownErrors)
	}

	return nil
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// initHTTPServer assembles the API server: base middleware, optional CORS, rate
// limiting and HTTP metrics, then the audit and retention route groups.
func (c *Container) initHTTPServer(ctx context.Context) (*http.Server, error) {
	logger := c.Logger()

	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for http server: %w", err)
	}

	appender, err := c.AppenderUseCase(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get appender use case for http server: %w", err)
	}
	verifier, err := c.VerifierUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get verifier use case for http server: %w", err)
	}
	exporter, err := c.ExporterUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get exporter use case for http server: %w", err)
	}
	policyUseCase, err := c.PolicyUseCase(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get policy use case for http server: %w", err)
	}
	coordinator, err := c.CoordinatorUseCase(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get coordinator use case for http server: %w", err)
	}

	server := http.NewServer(db, c.config.ServerHost, c.config.ServerPort, logger)

	server.Use(http.CORSMiddleware(c.config.CORSEnabled, c.config.CORSAllowOrigins, logger))

	if c.config.RateLimitEnabled {
		server.Use(http.RateLimitMiddleware(
			c.config.RateLimitRequestsPerSec,
			c.config.RateLimitBurst,
			logger,
		))
	}

	if c.config.MetricsEnabled {
		provider, err := c.MetricsProvider()
		if err != nil {
			return nil, fmt.Errorf("failed to get metrics provider for http server: %w", err)
		}
		server.Use(metrics.HTTPMetricsMiddleware(provider.MeterProvider(), c.config.MetricsNamespace))
	}

	server.RegisterAuditRoutes(auditHTTP.NewChainHandler(appender, verifier, exporter, logger))
	server.RegisterRetentionRoutes(retentionHTTP.NewRetentionHandler(policyUseCase, coordinator, logger))

	return server, nil
}
