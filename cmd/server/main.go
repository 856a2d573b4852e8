// Command server runs the document vault API.
//
// With DOCVAULT_POSTGRES_DSN set it persists to Postgres and relays audit
// events from the outbox to Kafka; without it everything runs in memory,
// which is only suitable for local development.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	"docvault/internal/document/cache"
	documenthandler "docvault/internal/document/handler"
	"docvault/internal/document/lineage"
	documentmetrics "docvault/internal/document/metrics"
	"docvault/internal/document/retention"
	"docvault/internal/document/service"
	"docvault/internal/document/store"
	httpapi "docvault/internal/http"
	"docvault/internal/platform/config"
	"docvault/internal/platform/httpserver"
	"docvault/internal/platform/logger"
	"docvault/internal/platform/metrics"
	"docvault/internal/platform/postgres"
	platformredis "docvault/internal/platform/redis"
	"docvault/internal/token"
	"docvault/pkg/platform/audit"
	"docvault/pkg/platform/audit/publisher"
	"docvault/pkg/platform/audit/relay"
	auditmemory "docvault/pkg/platform/audit/store/memory"
	auditpostgres "docvault/pkg/platform/audit/store/postgres"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(context.Background(), cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		docStore   service.Store
		atomic     service.Atomic
		auditStore audit.Store
		db         *sql.DB
		auditRelay *relay.Relay
	)

	if cfg.Postgres.DSN != "" {
		var err error
		db, err = postgres.Open(ctx, cfg.Postgres.DSN)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := postgres.EnsureSchema(ctx, db, store.Schema, auditpostgres.Schema); err != nil {
			return err
		}

		pg := store.NewPostgres(db)
		docStore, atomic = pg, pg
		outbox := auditpostgres.New(db)
		auditStore = outbox

		if len(cfg.Kafka.Brokers) > 0 {
			kafkaClient, err := kgo.NewClient(kgo.SeedBrokers(cfg.Kafka.Brokers...))
			if err != nil {
				return err
			}
			defer kafkaClient.Close()

			auditRelay = relay.New(outbox, kafkaClient, cfg.Kafka.AuditTopic, log)
			if err := auditRelay.EnsureTopic(ctx, 1, 1); err != nil {
				return err
			}
		} else {
			log.Warn("no kafka brokers configured, audit events stay in the outbox")
		}
	} else {
		log.Warn("no postgres DSN configured, running on in-memory stores")
		mem := store.NewInMemory()
		docStore, atomic = mem, mem
		auditStore = auditmemory.NewInMemoryStore()
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	var historyCache lineage.HistoryCache
	if redisClient != nil {
		defer redisClient.Close()
		historyCache = cache.New(redisClient.Client, log)
	}

	documents := service.New(
		docStore,
		atomic,
		publisher.New(auditStore),
		retention.NewGuard(),
		historyCache,
		documentmetrics.New(),
		log,
	)

	jwtService := token.NewJWTService(cfg.JWT)
	handler := documenthandler.New(documents, log, metrics.New(), jwtService)
	srv := httpserver.New(cfg.Server.Addr, httpapi.NewRouter(handler, db))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting docvault", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if auditRelay != nil {
		g.Go(func() error {
			if err := auditRelay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("docvault stopped")
	return nil
}
