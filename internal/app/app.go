package app

import (
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
	semconv "go.opentelemetry.io/otel/semconv/v1.12.0"

	"github.com/riskibarqy/prediction-league/external/footballdata"
	"github.com/riskibarqy/prediction-league/internal/config"
	"github.com/riskibarqy/prediction-league/internal/domain/group"
	cacherepo "github.com/riskibarqy/prediction-league/internal/infrastructure/repository/cache"
	"github.com/riskibarqy/prediction-league/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/prediction-league/internal/interfaces/httpapi"
	basecache "github.com/riskibarqy/prediction-league/internal/platform/cache"
	idgen "github.com/riskibarqy/prediction-league/internal/platform/id"
	"github.com/riskibarqy/prediction-league/internal/platform/logging"
	"github.com/riskibarqy/prediction-league/internal/platform/resilience"
	"github.com/riskibarqy/prediction-league/internal/usecase"
)

// Engine bundles everything main needs to run and to shut down cleanly.
type Engine struct {
	HTTPServer *http.Server
	Scheduler  *usecase.SchedulerService
	DB         *sqlx.DB
}

func NewEngine(cfg config.Config, logger *logging.Logger) (*Engine, error) {
	if logger == nil {
		logger = logging.Default()
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	fixtureRepo := postgres.NewFixtureRepository(db)
	predictionRepo := postgres.NewPredictionRepository(db)
	rivalryRepo := postgres.NewRivalryRepository(db)
	uow := postgres.NewUnitOfWork(db)

	cacheStore := basecache.NewStore(cfg.CacheTTL)
	var groupRepo group.Repository = postgres.NewGroupRepository(db)
	if cfg.CacheEnabled {
		groupRepo = cacherepo.NewGroupRepository(groupRepo, cacheStore)
	}

	var provider usecase.FixtureSnapshotProvider
	if cfg.ProviderEnabled {
		provider = footballdata.NewClient(footballdata.ClientConfig{
			BaseURL:           cfg.ProviderBaseURL,
			Token:             cfg.ProviderToken,
			Timeout:           cfg.ProviderTimeout,
			MaxRetries:        cfg.ProviderMaxRetries,
			RequestsPerSecond: cfg.ProviderRequestsPerSecond,
			Logger:            logger,
			CircuitBreaker: resilience.CircuitBreakerConfig{
				Enabled:          cfg.ProviderCircuitEnabled,
				FailureThreshold: cfg.ProviderCircuitFailureCount,
				OpenTimeout:      cfg.ProviderCircuitOpenTimeout,
				HalfOpenMaxReq:   cfg.ProviderCircuitHalfOpenMax,
			},
		})
	}

	lifecycle := usecase.NewLifecycleService(uow, fixtureRepo, predictionRepo, logger)
	providerSync := usecase.NewProviderSyncService(provider, fixtureRepo, usecase.ProviderSyncConfig{
		MaxWorkers:     cfg.ProviderSyncWorkers,
		RefreshHorizon: cfg.ProviderSyncRefreshHorizon,
	}, logger)
	scheduler := usecase.NewSchedulerService(fixtureRepo, lifecycle, providerSync, usecase.SchedulerConfig{
		LiveInterval:          cfg.SchedulerLiveInterval,
		ActiveWindowInterval:  cfg.SchedulerActiveWindowInterval,
		UpcomingInterval:      cfg.SchedulerUpcomingInterval,
		MinimalInterval:       cfg.SchedulerMinimalInterval,
		ErrorFallbackInterval: cfg.SchedulerErrorFallbackInterval,
		ActiveWindow:          cfg.SchedulerActiveWindow,
		ProviderCheckMinGap:   cfg.SchedulerProviderCheckMinGap,
		MaxCycleFailures:      cfg.SchedulerMaxCycleFailures,
	}, logger)

	standings := usecase.NewStandingsService(predictionRepo, groupRepo, rivalryRepo, cacheStore)
	bonuses := usecase.NewBonusService(predictionRepo, groupRepo, logger)
	rivalries := usecase.NewRivalryService(
		groupRepo,
		rivalryRepo,
		predictionRepo,
		standings,
		idgen.NewRandomGenerator(),
		usecase.RivalryConfig{MaxPointGap: cfg.RivalryMaxPointGap},
		logger,
	)
	predictionQuery := usecase.NewPredictionQueryService(fixtureRepo, predictionRepo, logger)

	handler := httpapi.NewHandler(scheduler, lifecycle, bonuses, rivalries, standings, predictionQuery, logger)
	router := httpapi.NewRouter(handler, logger, cfg.InternalJobToken)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	if server.Addr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	return &Engine{
		HTTPServer: server,
		Scheduler:  scheduler,
		DB:         db,
	}, nil
}

func openDB(cfg config.Config) (*sqlx.DB, error) {
	dsn := normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary)

	opts := []otelsql.Option{
		otelsql.WithAttributes(semconv.DBSystemPostgreSQL),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	}
	if name := dbNameFromURL(cfg.DBURL); name != "" {
		opts = append(opts, otelsql.WithDBName(name))
	}

	db, err := otelsqlx.Open("postgres", dsn, opts...)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
