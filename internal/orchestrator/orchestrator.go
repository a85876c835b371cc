package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"gitlab.com/teranga/resolution/internal/cases"
	"gitlab.com/teranga/resolution/internal/casestore"
	"gitlab.com/teranga/resolution/internal/clients"
	"gitlab.com/teranga/resolution/internal/config"
)

// ErrOrderNotReturnable rejects a filing against an order line that was never
// delivered.
var ErrOrderNotReturnable = errors.New("order is not delivered, nothing to return")

type Store interface {
	CreateReturnCase(ctx context.Context, mut casestore.ReturnMutation) error
	UpdateReturnCase(ctx context.Context, mut casestore.ReturnMutation) error
	CreateDisputeCase(ctx context.Context, mut casestore.DisputeMutation) error
	UpdateDisputeCase(ctx context.Context, mut casestore.DisputeMutation) error
	GetReturnCase(ctx context.Context, id string) (*cases.ReturnCase, error)
	GetDisputeCase(ctx context.Context, id string) (*cases.DisputeCase, error)
	ListReturnsByParty(ctx context.Context, partyID string, page, limit int) ([]*cases.ReturnCase, error)
	ListDisputesByParty(ctx context.Context, partyID string, page, limit int) ([]*cases.DisputeCase, error)
	ListOpenDisputeDeadlines(ctx context.Context) ([]*cases.DisputeCase, error)
	ReplayReturnCase(ctx context.Context, id string) (*cases.ReturnCase, error)
	ReplayDisputeCase(ctx context.Context, id string) (*cases.DisputeCase, error)
}

type OrderService interface {
	GetOrderLine(ctx context.Context, orderID string) (*clients.OrderLine, error)
}

type PaymentService interface {
	ExecuteRefund(ctx context.Context, req clients.RefundRequest) error
}

type ScoringService interface {
	AdjustReputation(ctx context.Context, partyID string, delta int, reason string) error
}

type DeadlineScheduler interface {
	Arm(caseID string, at time.Time)
	Cancel(caseID string)
}

// Orchestrator sequences every case mutation: per-case serialization, role
// checks, the transition table, deadline timers and external side effects.
type Orchestrator struct {
	store     Store
	orders    OrderService
	payments  PaymentService
	scoring   ScoringService
	scheduler DeadlineScheduler
	validator *cases.Validator
	policy    config.Policy
	topic     string
	logger    *zap.Logger

	locks sync.Map
	now   func() time.Time
}

func New(
	store Store,
	orders OrderService,
	payments PaymentService,
	scoring ScoringService,
	scheduler DeadlineScheduler,
	policy config.Policy,
	topic string,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		store:     store,
		orders:    orders,
		payments:  payments,
		scoring:   scoring,
		scheduler: scheduler,
		validator: cases.NewValidator(policy.MaxMediationRounds, policy.EscalationWindow),
		policy:    policy,
		topic:     topic,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// lockCase serializes mutations per case id. A second mutation arriving while
// one is in flight is rejected immediately rather than queued, so the caller
// retries against a fresh snapshot.
func (o *Orchestrator) lockCase(caseID string) (func(), error) {
	v, _ := o.locks.LoadOrStore(caseID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	if !mu.TryLock() {
		return nil, cases.ErrConcurrentModification
	}
	return mu.Unlock, nil
}

func (o *Orchestrator) GetReturnCase(ctx context.Context, id string) (*cases.ReturnCase, error) {
	return o.store.GetReturnCase(ctx, id)
}

func (o *Orchestrator) GetDisputeCase(ctx context.Context, id string) (*cases.DisputeCase, error) {
	return o.store.GetDisputeCase(ctx, id)
}

func (o *Orchestrator) ListReturnsByParty(ctx context.Context, partyID string, page, limit int) ([]*cases.ReturnCase, error) {
	return o.store.ListReturnsByParty(ctx, partyID, page, limit)
}

func (o *Orchestrator) ListDisputesByParty(ctx context.Context, partyID string, page, limit int) ([]*cases.DisputeCase, error) {
	return o.store.ListDisputesByParty(ctx, partyID, page, limit)
}

// AuditResult compares the materialized projection against a pure replay of
// the event log.
type AuditResult struct {
	CaseID     string             `json:"case_id"`
	Consistent bool               `json:"consistent"`
	Stored     *cases.ReturnCase  `json:"stored,omitempty"`
	Replayed   *cases.ReturnCase  `json:"replayed,omitempty"`
	StoredD    *cases.DisputeCase `json:"stored_dispute,omitempty"`
	ReplayedD  *cases.DisputeCase `json:"replayed_dispute,omitempty"`
}

func (o *Orchestrator) AuditReturnCase(ctx context.Context, id string) (*AuditResult, error) {
	stored, err := o.store.GetReturnCase(ctx, id)
	if err != nil {
		return nil, err
	}
	replayed, err := o.store.ReplayReturnCase(ctx, id)
	if err != nil {
		return nil, err
	}
	consistent := stored.Status == replayed.Status &&
		stored.Amount == replayed.Amount &&
		stored.Escalated == replayed.Escalated &&
		len(stored.Timeline) == len(replayed.Timeline)
	return &AuditResult{CaseID: id, Consistent: consistent, Stored: stored, Replayed: replayed}, nil
}

func (o *Orchestrator) AuditDisputeCase(ctx context.Context, id string) (*AuditResult, error) {
	stored, err := o.store.GetDisputeCase(ctx, id)
	if err != nil {
		return nil, err
	}
	replayed, err := o.store.ReplayDisputeCase(ctx, id)
	if err != nil {
		return nil, err
	}
	consistent := stored.Status == replayed.Status &&
		stored.Amount == replayed.Amount &&
		stored.MediationRound == replayed.MediationRound &&
		len(stored.Timeline) == len(replayed.Timeline)
	return &AuditResult{CaseID: id, Consistent: consistent, StoredD: stored, ReplayedD: replayed}, nil
}

// RearmDeadlines restores every live deadline timer from storage. Called once
// on startup; deadlines already in the past fire immediately.
func (o *Orchestrator) RearmDeadlines(ctx context.Context) error {
	disputes, err := o.store.ListOpenDisputeDeadlines(ctx)
	if err != nil {
		return err
	}
	for _, dc := range disputes {
		at := dc.ResponseDeadline
		if dc.Status == cases.DisputeProposalSent && dc.Proposal != nil {
			deadline := dc.Proposal.ResponseDeadline
			at = &deadline
		}
		if at == nil {
			continue
		}
		o.scheduler.Arm(dc.ID, *at)
	}
	o.logger.Info("re-armed deadline timers", zap.Int("count", len(disputes)))
	return nil
}

func (o *Orchestrator) notify(data map[string]any) *casestore.OutboxEvent {
	return &casestore.OutboxEvent{Topic: o.topic, Data: data}
}
