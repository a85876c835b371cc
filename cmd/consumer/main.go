package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"gitlab.com/teranga/resolution/internal/config"
	"gitlab.com/teranga/resolution/internal/logger"
)

// caseEvent mirrors the envelope the outbox publisher emits. Publishing is
// at-least-once, so the consumer deduplicates on (case_id, seq).
type caseEvent struct {
	CaseID     string         `json:"case_id"`
	CaseKind   string         `json:"case_kind"`
	Seq        int            `json:"seq"`
	Action     string         `json:"action"`
	ActorRole  string         `json:"actor_role"`
	Status     string         `json:"status"`
	OccurredAt time.Time      `json:"occurred_at"`
	Data       map[string]any `json:"data,omitempty"`
}

type eventKey struct {
	caseID string
	seq    int
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	lg := logger.New()
	defer func() { _ = lg.Sync() }()

	cfg := config.Load()

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Kafka.Brokers,
		GroupID:        cfg.Kafka.GroupID,
		Topic:          cfg.Kafka.EventTopic,
		MinBytes:       10e3,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
		MaxWait:        3 * time.Second,
	})
	defer func() {
		if err := r.Close(); err != nil {
			lg.Error("closing kafka reader", zap.Error(err))
		}
	}()

	lg.Info("notification consumer connected",
		zap.String("topic", cfg.Kafka.EventTopic),
		zap.Strings("brokers", cfg.Kafka.Brokers))

	seen := make(map[eventKey]struct{})

	for {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				lg.Info("shutdown signal received, stopping consumer")
				return
			}
			lg.Error("reading message", zap.Error(err))
			time.Sleep(5 * time.Second)
			continue
		}

		var evt caseEvent
		if err := json.Unmarshal(m.Value, &evt); err != nil {
			lg.Warn("skipping undecodable event",
				zap.Int64("offset", m.Offset),
				zap.Error(err))
			continue
		}

		key := eventKey{caseID: evt.CaseID, seq: evt.Seq}
		if _, dup := seen[key]; dup {
			lg.Debug("duplicate delivery ignored",
				zap.String("case_id", evt.CaseID),
				zap.Int("seq", evt.Seq))
			continue
		}
		seen[key] = struct{}{}

		notify(evt)
	}
}

// notify stands in for the real notification fan-out. Each party-facing
// event is printed once per (case, seq) regardless of redelivery.
func notify(evt caseEvent) {
	fmt.Printf("NOTIFY [%s %s seq=%d] %s by %s -> status %s at %s\n",
		evt.CaseKind, evt.CaseID, evt.Seq,
		evt.Action, evt.ActorRole, evt.Status,
		evt.OccurredAt.Format(time.RFC3339))
}
