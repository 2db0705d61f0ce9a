// Command server runs the reconciliation core: the event ledger, reputation,
// alliances, verification, and the billing reconciler behind one HTTP
// surface. Wiring lives here; business logic stays in the internal packages.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"collabcore/internal/account"
	"collabcore/internal/alliance"
	alliancehandler "collabcore/internal/alliance/handler"
	"collabcore/internal/billing"
	billinghandler "collabcore/internal/billing/handler"
	"collabcore/internal/eventledger"
	"collabcore/internal/milestone"
	"collabcore/internal/notification"
	"collabcore/internal/platform/config"
	"collabcore/internal/platform/httpserver"
	"collabcore/internal/platform/logger"
	"collabcore/internal/platform/metrics"
	"collabcore/internal/platform/middleware"
	"collabcore/internal/platform/postgres"
	redisplatform "collabcore/internal/platform/redis"
	"collabcore/internal/reputation"
	reputationhandler "collabcore/internal/reputation/handler"
	httptransport "collabcore/internal/transport/http"
	"collabcore/internal/verification"
	verificationhandler "collabcore/internal/verification/handler"
	"collabcore/pkg/platform/audit"
	auditpublisher "collabcore/pkg/platform/audit/publisher"
	auditmemory "collabcore/pkg/platform/audit/store/memory"
	auditpostgres "collabcore/pkg/platform/audit/store/postgres"
	auditworker "collabcore/pkg/platform/audit/worker"
)

const purgeInterval = time.Hour

func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		log.Error("postgres connection failed", "error", err.Error())
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
		if err := postgres.Bootstrap(ctx, db); err != nil {
			log.Error("schema bootstrap failed", "error", err.Error())
			os.Exit(1)
		}
	} else {
		log.Warn("POSTGRES_DSN not set, using in-memory stores")
	}

	redisClient, err := redisplatform.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err.Error())
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Stores.
	var (
		accountStore      account.Store
		ledgerStore       eventledger.Store
		entryStore        reputation.EntryStore
		allianceStore     alliance.Store
		verificationStore verification.Store
		milestoneStore    milestone.Store
		subStore          billing.SubscriptionStore
		paymentStore      billing.PaymentStore
		auditStore        audit.Store
	)
	if db != nil {
		accountStore = account.NewPostgres(db)
		ledgerStore = eventledger.NewPostgres(db)
		entryStore = reputation.NewPostgres(db)
		allianceStore = alliance.NewPostgres(db)
		verificationStore = verification.NewPostgres(db)
		milestoneStore = milestone.NewPostgres(db)
		subStore = billing.NewPostgresSubscriptions(db)
		paymentStore = billing.NewPostgresPayments(db)
		auditStore = auditpostgres.New(db)
	} else {
		accountStore = account.NewInMemoryStore()
		ledgerStore = eventledger.NewInMemoryStore()
		entryStore = reputation.NewInMemoryEntryStore()
		allianceStore = alliance.NewInMemoryStore()
		verificationStore = verification.NewInMemoryStore()
		milestoneStore = milestone.NewInMemoryStore()
		subStore = billing.NewInMemorySubscriptionStore()
		paymentStore = billing.NewInMemoryPaymentStore()
		auditStore = auditmemory.New()
	}

	var notifier notification.Sink
	if redisClient != nil {
		notifier = notification.NewRedisSink(redisClient.Client)
	} else {
		notifier = notification.NewLogSink(log)
	}

	// Audit trail.
	recorder := audit.NewRecorder(1024, log)
	worker := auditworker.New(auditStore, recorder.Inbox(), log)
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPublisher, err := auditpublisher.NewKafka(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
		if err != nil {
			log.Error("kafka connection failed", "error", err.Error())
			os.Exit(1)
		}
		defer kafkaPublisher.Close()
		worker = worker.WithPublisher(kafkaPublisher)
	}

	// Services.
	directory := account.NewDirectory(accountStore)
	ledger := eventledger.New(ledgerStore, cfg.EventRetention, log)
	repService := reputation.NewService(entryStore, accountStore, log,
		reputation.WithMetrics(m))
	allianceService := alliance.NewService(allianceStore, repService, notifier, log,
		alliance.WithMetrics(m), alliance.WithAudit(recorder))
	verificationService := verification.NewService(verificationStore, accountStore, directory, repService, notifier, log)
	reconciler := billing.NewReconciler(ledger, subStore, paymentStore, directory, repService, milestoneStore, notifier, log,
		billing.WithMetrics(m), billing.WithAudit(recorder))

	// HTTP surface.
	checkers := map[string]httptransport.Checker{}
	if db != nil {
		checkers["postgres"] = dbChecker{db: db}
	}
	if redisClient != nil {
		checkers["redis"] = redisClient
	}
	router := httptransport.NewRouter(httptransport.Deps{
		Logger:       log,
		Metrics:      m,
		Validator:    middleware.NewHMACValidator(cfg.Server.JWTSigningKey),
		Alliances:    alliancehandler.New(allianceService, log),
		Verification: verificationhandler.New(verificationService, log),
		Reputation:   reputationhandler.New(repService, directory, log),
		Billing:      billinghandler.New(reconciler, subStore, cfg.Webhook.SigningSecret, cfg.Webhook.Tolerance, log),
		Checkers:     checkers,
	})
	srv := httpserver.New(cfg.Server.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		err := worker.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		ticker := time.NewTicker(purgeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if err := ledger.PurgeExpired(gctx); err != nil {
					log.Error("event ledger purge failed", "error", err.Error())
				}
			}
		}
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited", "error", err.Error())
		os.Exit(1)
	}
	log.Info("server stopped")
}

type dbChecker struct {
	db *sql.DB
}

func (c dbChecker) Health(ctx context.Context) error {
	return c.db.PingContext(ctx)
}
