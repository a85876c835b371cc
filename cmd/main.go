package main

import (
	"context"
	"encoding/json"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"gitlab.com/teranga/resolution/internal/cache"
	"gitlab.com/teranga/resolution/internal/casestore"
	"gitlab.com/teranga/resolution/internal/clients"
	"gitlab.com/teranga/resolution/internal/config"
	"gitlab.com/teranga/resolution/internal/db"
	"gitlab.com/teranga/resolution/internal/kafka"
	"gitlab.com/teranga/resolution/internal/logger"
	"gitlab.com/teranga/resolution/internal/orchestrator"
	"gitlab.com/teranga/resolution/internal/repository/postgresql"
	"gitlab.com/teranga/resolution/internal/scheduler"
	"gitlab.com/teranga/resolution/internal/server"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	lg := logger.New()
	defer func() { _ = lg.Sync() }()

	cfg := config.Load()

	database, err := db.NewDb(ctx, cfg.Postgres)
	if err != nil {
		lg.Fatal("database init", zap.Error(err))
	}
	defer database.GetPool().Close()

	returnRepo := postgresql.NewReturnCaseRepo(database)
	disputeRepo := postgresql.NewDisputeCaseRepo(database)
	eventRepo := postgresql.NewCaseEventRepo(database)
	messageRepo := postgresql.NewDisputeMessageRepo(database)
	outboxRepo := postgresql.NewOutboxTaskRepo(database)
	userRepo := postgresql.NewUserRepo(database)

	store := casestore.NewStore(database, returnRepo, disputeRepo, eventRepo, messageRepo, outboxRepo, lg)

	orders := cache.NewOrderLineCache(clients.NewOrderClient(cfg.OrderServiceURL))
	payments := clients.NewPaymentClient(cfg.PaymentURL)
	scoring := clients.NewScoringClient(cfg.ScoringURL)

	// The scheduler fires into the orchestrator, which in turn arms the
	// scheduler; the engine variable is bound before any timer can fire.
	var engine *orchestrator.Orchestrator
	deadlines := scheduler.New(func(ctx context.Context, caseID string) {
		engine.HandleDeadline(ctx, caseID)
	}, cfg.SchedulerWorkers, lg)

	engine = orchestrator.New(store, orders, payments, scoring, deadlines, cfg.Policy, cfg.Kafka.EventTopic, lg)

	var producer kafka.Producer
	if len(cfg.Kafka.Brokers) == 0 || cfg.Kafka.Brokers[0] == "" {
		lg.Warn("no kafka brokers configured, events go to stdout")
		producer = kafka.NewConsoleProducer(lg)
	} else {
		producer = kafka.NewSyncProducer(cfg.Kafka.Brokers)
	}

	publisher := kafka.NewPublisher(database, outboxRepo, producer, kafka.PublisherConfig{
		PollInterval: cfg.OutboxPollInterval,
		BatchSize:    cfg.OutboxBatchSize,
		MaxAttempts:  cfg.OutboxMaxAttempts,
	}, onPublished(engine, lg), lg)

	srv := server.New(engine, userRepo, lg)

	deadlines.Start(ctx)
	if err := engine.RearmDeadlines(ctx); err != nil {
		lg.Error("rearming deadlines", zap.Error(err))
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		publisher.Run(groupCtx)
		return nil
	})
	group.Go(func() error {
		return srv.Run(groupCtx, cfg.HTTPPort)
	})
	group.Go(func() error {
		<-groupCtx.Done()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			lg.Error("server shutdown", zap.Error(err))
		}
		publisher.Shutdown()
		deadlines.Shutdown()
		return nil
	})

	if err := group.Wait(); err != nil {
		lg.Fatal("engine stopped", zap.Error(err))
	}
	lg.Info("engine gracefully stopped")
}

// onPublished advances disputes that wait on notification delivery. The
// dispute moves out of Opened only once its open event is durably on the
// wire.
func onPublished(engine *orchestrator.Orchestrator, lg *zap.Logger) kafka.OnPublished {
	return func(ctx context.Context, topic string, payload []byte) {
		var evt struct {
			CaseID   string `json:"case_id"`
			CaseKind string `json:"case_kind"`
			Action   string `json:"action"`
		}
		if err := json.Unmarshal(payload, &evt); err != nil {
			lg.Warn("undecodable outbox payload", zap.String("topic", topic), zap.Error(err))
			return
		}
		if evt.CaseKind != "dispute" || evt.Action != "open" {
			return
		}
		if err := engine.MarkDisputeNotified(ctx, evt.CaseID); err != nil {
			lg.Warn("marking dispute notified", zap.String("case_id", evt.CaseID), zap.Error(err))
		}
	}
}
