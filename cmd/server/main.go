// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal services packages.
//
// Backends degrade gracefully: without DATABASE_URL everything runs on
// in-memory stores, without KAFKA_BROKERS the audit trail stays in process
// memory, and without REDIS_URL rollups are recomputed per request.
package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"atomfleet/internal/audit"
	auditkafka "atomfleet/internal/audit/kafka"
	"atomfleet/internal/catalog"
	"atomfleet/internal/generation"
	generationhandler "atomfleet/internal/generation/handler"
	genmetrics "atomfleet/internal/generation/metrics"
	recordstore "atomfleet/internal/generation/store/record"
	"atomfleet/internal/history"
	intervalstore "atomfleet/internal/history/store/interval"
	"atomfleet/internal/platform/config"
	"atomfleet/internal/platform/httpserver"
	"atomfleet/internal/platform/logger"
	"atomfleet/internal/platform/postgres"
	"atomfleet/internal/platform/redis"
	"atomfleet/internal/registry/handler"
	regmetrics "atomfleet/internal/registry/metrics"
	"atomfleet/internal/registry/service"
	unitstore "atomfleet/internal/registry/store/unit"
	"atomfleet/internal/reporting"
	httptransport "atomfleet/internal/transport/http"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()
	ctx := context.Background()

	checks := make(map[string]httptransport.HealthChecker)

	// Storage backends.
	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}

	var (
		units     service.UnitStore
		intervals history.IntervalStore
		records   generation.RecordStore
		catStore  catalog.Resolver
		catReader catalog.Reader
		txRunner  service.TxRunner
	)
	if db != nil {
		defer db.Close()
		checks["postgres"] = dbHealth{db}

		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("catalog pool failed", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		units = unitstore.NewPostgres(db)
		intervals = intervalstore.NewPostgres(db)
		records = recordstore.NewPostgres(db)
		catPG := catalog.NewPostgres(pool)
		catStore, catReader = catPG, catPG
		txRunner = newRegistryPostgresTx(db)
		log.Info("using postgres storage")
	} else {
		mem := catalog.NewInMemory()
		if cfg.CatalogSeedPath != "" {
			if err := catalog.LoadSeed(cfg.CatalogSeedPath, mem); err != nil {
				log.Error("catalog seed load failed", "path", cfg.CatalogSeedPath, "error", err)
				os.Exit(1)
			}
			log.Info("catalog seeded", "path", cfg.CatalogSeedPath)
		} else {
			log.Warn("no catalog seed configured, registrations will fail reference checks")
		}
		units = unitstore.NewInMemory()
		intervals = intervalstore.NewInMemory()
		records = recordstore.NewInMemory()
		catStore, catReader = mem, mem
		txRunner = service.NopTxRunner{}
		log.Info("using in-memory storage")
	}

	// Audit trail.
	var auditStore audit.Store = audit.NewInMemoryStore()
	if len(cfg.KafkaBrokers) > 0 {
		kafkaStore, err := auditkafka.New(ctx, cfg.KafkaBrokers, cfg.AuditTopic)
		if err != nil {
			log.Error("kafka audit sink failed", "error", err)
			os.Exit(1)
		}
		defer kafkaStore.Close()
		checks["kafka"] = kafkaStore
		auditStore = kafkaStore
		log.Info("audit events published to kafka", "topic", cfg.AuditTopic)
	}
	auditor := audit.NewPublisher(auditStore)

	// Rollup cache.
	cache, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if cache != nil {
		defer cache.Close()
		checks["redis"] = cache
	}

	// Domain services.
	reportingOpts := []reporting.Option{reporting.WithLogger(log)}
	if cache != nil {
		reportingOpts = append(reportingOpts, reporting.WithCache(cache, cfg.RollupCacheTTL))
	}
	reportingSvc := reporting.New(units, catReader, reportingOpts...)

	tracker := history.New(intervals, history.WithLogger(log))
	registrySvc := service.New(units, tracker, catStore,
		service.WithLogger(log),
		service.WithMetrics(regmetrics.New()),
		service.WithAuditPublisher(auditor),
		service.WithTxRunner(txRunner),
		service.WithRollupInvalidator(reportingSvc),
	)
	generationSvc := generation.New(records, units,
		generation.WithLogger(log),
		generation.WithMetrics(genmetrics.New()),
		generation.WithAuditPublisher(auditor),
	)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger: log,
		Handlers: []httptransport.Registrar{
			handler.New(registrySvc, log),
			generationhandler.New(generationSvc, log),
			reporting.NewHandler(reportingSvc, log),
		},
		Checks: checks,
	})

	srv := httpserver.New(cfg.Addr, router)
	log.Info("starting atomfleet", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

type dbHealth struct{ db *sql.DB }

func (h dbHealth) Health(ctx context.Context) error {
	return h.db.PingContext(ctx)
}
