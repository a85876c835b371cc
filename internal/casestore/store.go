package casestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"gitlab.com/teranga/resolution/internal/cases"
	"gitlab.com/teranga/resolution/internal/db"
	"gitlab.com/teranga/resolution/internal/repository"
)

type ReturnCaseRepository interface {
	CreateTx(ctx context.Context, tx db.Tx, row *repository.ReturnCaseRow) error
	UpdateTx(ctx context.Context, tx db.Tx, row *repository.ReturnCaseRow) error
	GetByID(ctx context.Context, id string) (*repository.ReturnCaseRow, error)
	GetByIDForUpdateTx(ctx context.Context, tx db.Tx, id string) (*repository.ReturnCaseRow, error)
	ListByParty(ctx context.Context, partyID string, page, limit int) ([]*repository.ReturnCaseRow, error)
}

type DisputeCaseRepository interface {
	CreateTx(ctx context.Context, tx db.Tx, row *repository.DisputeCaseRow) error
	UpdateTx(ctx context.Context, tx db.Tx, row *repository.DisputeCaseRow) error
	GetByID(ctx context.Context, id string) (*repository.DisputeCaseRow, error)
	GetByIDForUpdateTx(ctx context.Context, tx db.Tx, id string) (*repository.DisputeCaseRow, error)
	ListByParty(ctx context.Context, partyID string, page, limit int) ([]*repository.DisputeCaseRow, error)
	ListOpenDeadlines(ctx context.Context) ([]*repository.DisputeCaseRow, error)
}

type CaseEventRepository interface {
	CreateTx(ctx context.Context, tx db.Tx, ev *repository.CaseEventRow) error
	ListByCase(ctx context.Context, caseID string) ([]*repository.CaseEventRow, error)
}

type DisputeMessageRepository interface {
	CreateTx(ctx context.Context, tx db.Tx, msg *repository.DisputeMessageRow) error
	ListByCase(ctx context.Context, caseID string) ([]*repository.DisputeMessageRow, error)
}

type OutboxRepository interface {
	CreateTx(ctx context.Context, tx db.Tx, task *repository.OutboxTask) error
}

// Store persists cases as an append-only event log plus a materialized
// current-state projection. Every mutation commits the projection change, the
// event record and the outbound notification in one transaction.
type Store struct {
	db       db.DB
	returns  ReturnCaseRepository
	disputes DisputeCaseRepository
	events   CaseEventRepository
	messages DisputeMessageRepository
	outbox   OutboxRepository
	logger   *zap.Logger
}

func NewStore(
	database db.DB,
	returns ReturnCaseRepository,
	disputes DisputeCaseRepository,
	events CaseEventRepository,
	messages DisputeMessageRepository,
	outbox OutboxRepository,
	logger *zap.Logger,
) *Store {
	return &Store{
		db:       database,
		returns:  returns,
		disputes: disputes,
		events:   events,
		messages: messages,
		outbox:   outbox,
		logger:   logger,
	}
}

// Event describes the timeline record a mutation appends.
type Event struct {
	ActorID string
	Role    cases.ActorRole
	Action  cases.Action
	Detail  string
}

// OutboxEvent describes the notification enqueued alongside a mutation.
// Consumers deduplicate on (case_id, seq), so redelivery is harmless.
type OutboxEvent struct {
	Topic string
	Data  map[string]any
}

type eventEnvelope struct {
	CaseID     string         `json:"case_id"`
	CaseKind   string         `json:"case_kind"`
	Seq        int            `json:"seq"`
	Action     string         `json:"action"`
	ActorRole  string         `json:"actor_role"`
	Status     string         `json:"status"`
	OccurredAt time.Time      `json:"occurred_at"`
	Data       map[string]any `json:"data,omitempty"`
}

// ReturnMutation is one committed step of a return case.
type ReturnMutation struct {
	Case   *cases.ReturnCase
	Event  Event
	Notify *OutboxEvent
}

// DisputeMutation is one committed step of a dispute. Message, when set, is
// appended to the thread in the same transaction.
type DisputeMutation struct {
	Case    *cases.DisputeCase
	Event   Event
	Message *cases.DisputeMessage
	Notify  *OutboxEvent
}

func (s *Store) CreateReturnCase(ctx context.Context, mut ReturnMutation) error {
	row, err := returnRowFromCase(mut.Case)
	if err != nil {
		return err
	}

	return s.inTx(ctx, func(tx db.Tx) error {
		if err := s.returns.CreateTx(ctx, tx, row); err != nil {
			return fmt.Errorf("create return case: %w", err)
		}
		patch, err := diffReturn(nil, row)
		if err != nil {
			return err
		}
		seq, err := s.appendEvent(ctx, tx, mut.Case.ID, cases.KindReturn, mut.Event, patch)
		if err != nil {
			return err
		}
		return s.enqueue(ctx, tx, mut.Case.ID, cases.KindReturn, seq, mut.Event, string(mut.Case.Status), mut.Notify)
	})
}

func (s *Store) UpdateReturnCase(ctx context.Context, mut ReturnMutation) error {
	row, err := returnRowFromCase(mut.Case)
	if err != nil {
		return err
	}

	return s.inTx(ctx, func(tx db.Tx) error {
		old, err := s.returns.GetByIDForUpdateTx(ctx, tx, mut.Case.ID)
		if err != nil {
			if errors.Is(err, repository.ErrObjectNotFound) {
				return cases.ErrCaseNotFound
			}
			return err
		}
		if err := s.returns.UpdateTx(ctx, tx, row); err != nil {
			return fmt.Errorf("update return case: %w", err)
		}
		patch, err := diffReturn(old, row)
		if err != nil {
			return err
		}
		seq, err := s.appendEvent(ctx, tx, mut.Case.ID, cases.KindReturn, mut.Event, patch)
		if err != nil {
			return err
		}
		return s.enqueue(ctx, tx, mut.Case.ID, cases.KindReturn, seq, mut.Event, string(mut.Case.Status), mut.Notify)
	})
}

func (s *Store) CreateDisputeCase(ctx context.Context, mut DisputeMutation) error {
	row, err := disputeRowFromCase(mut.Case)
	if err != nil {
		return err
	}

	return s.inTx(ctx, func(tx db.Tx) error {
		if err := s.disputes.CreateTx(ctx, tx, row); err != nil {
			return fmt.Errorf("create dispute case: %w", err)
		}
		seq, err := s.appendEvent(ctx, tx, mut.Case.ID, cases.KindDispute, mut.Event, diffDispute(nil, row))
		if err != nil {
			return err
		}
		return s.enqueue(ctx, tx, mut.Case.ID, cases.KindDispute, seq, mut.Event, string(mut.Case.Status), mut.Notify)
	})
}

func (s *Store) UpdateDisputeCase(ctx context.Context, mut DisputeMutation) error {
	row, err := disputeRowFromCase(mut.Case)
	if err != nil {
		return err
	}

	return s.inTx(ctx, func(tx db.Tx) error {
		old, err := s.disputes.GetByIDForUpdateTx(ctx, tx, mut.Case.ID)
		if err != nil {
			if errors.Is(err, repository.ErrObjectNotFound) {
				return cases.ErrCaseNotFound
			}
			return err
		}
		if err := s.disputes.UpdateTx(ctx, tx, row); err != nil {
			return fmt.Errorf("update dispute case: %w", err)
		}
		if mut.Message != nil {
			if err := s.appendMessage(ctx, tx, mut.Case.ID, mut.Message); err != nil {
				return err
			}
		}
		seq, err := s.appendEvent(ctx, tx, mut.Case.ID, cases.KindDispute, mut.Event, diffDispute(old, row))
		if err != nil {
			return err
		}
		return s.enqueue(ctx, tx, mut.Case.ID, cases.KindDispute, seq, mut.Event, string(mut.Case.Status), mut.Notify)
	})
}

func (s *Store) GetReturnCase(ctx context.Context, id string) (*cases.ReturnCase, error) {
	row, err := s.returns.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			return nil, cases.ErrCaseNotFound
		}
		return nil, err
	}
	rc, err := returnCaseFromRow(row)
	if err != nil {
		return nil, err
	}
	events, err := s.events.ListByCase(ctx, id)
	if err != nil {
		return nil, err
	}
	rc.Timeline = timelineFromEvents(events)
	return rc, nil
}

func (s *Store) GetDisputeCase(ctx context.Context, id string) (*cases.DisputeCase, error) {
	row, err := s.disputes.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			return nil, cases.ErrCaseNotFound
		}
		return nil, err
	}
	dc, err := disputeCaseFromRow(row)
	if err != nil {
		return nil, err
	}

	events, err := s.events.ListByCase(ctx, id)
	if err != nil {
		return nil, err
	}
	dc.Timeline = timelineFromEvents(events)

	messageRows, err := s.messages.ListByCase(ctx, id)
	if err != nil {
		return nil, err
	}
	dc.Messages, err = messagesFromRows(messageRows)
	if err != nil {
		return nil, err
	}
	return dc, nil
}

func (s *Store) ListReturnsByParty(ctx context.Context, partyID string, page, limit int) ([]*cases.ReturnCase, error) {
	rows, err := s.returns.ListByParty(ctx, partyID, page, limit)
	if err != nil {
		return nil, err
	}
	result := make([]*cases.ReturnCase, 0, len(rows))
	for _, row := range rows {
		rc, err := returnCaseFromRow(row)
		if err != nil {
			return nil, err
		}
		result = append(result, rc)
	}
	return result, nil
}

func (s *Store) ListDisputesByParty(ctx context.Context, partyID string, page, limit int) ([]*cases.DisputeCase, error) {
	rows, err := s.disputes.ListByParty(ctx, partyID, page, limit)
	if err != nil {
		return nil, err
	}
	result := make([]*cases.DisputeCase, 0, len(rows))
	for _, row := range rows {
		dc, err := disputeCaseFromRow(row)
		if err != nil {
			return nil, err
		}
		result = append(result, dc)
	}
	return result, nil
}

// ListOpenDisputeDeadlines returns every dispute whose deadline timer must be
// live, for scheduler re-arming after a restart.
func (s *Store) ListOpenDisputeDeadlines(ctx context.Context) ([]*cases.DisputeCase, error) {
	rows, err := s.disputes.ListOpenDeadlines(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]*cases.DisputeCase, 0, len(rows))
	for _, row := range rows {
		dc, err := disputeCaseFromRow(row)
		if err != nil {
			return nil, err
		}
		result = append(result, dc)
	}
	return result, nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx db.Tx) error) error {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			s.logger.Error("rollback failed", zap.Error(rbErr))
		}
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) appendEvent(ctx context.Context, tx db.Tx, caseID string, kind cases.Kind, event Event, patch any) (int, error) {
	payload, err := json.Marshal(patch)
	if err != nil {
		return 0, fmt.Errorf("marshal event payload: %w", err)
	}
	ev := &repository.CaseEventRow{
		CaseID:    caseID,
		CaseKind:  string(kind),
		ActorID:   event.ActorID,
		ActorRole: string(event.Role),
		Action:    string(event.Action),
		Detail:    event.Detail,
		Payload:   payload,
	}
	if err := s.events.CreateTx(ctx, tx, ev); err != nil {
		return 0, err
	}
	return ev.Seq, nil
}

func (s *Store) appendMessage(ctx context.Context, tx db.Tx, caseID string, msg *cases.DisputeMessage) error {
	refs, err := json.Marshal(msg.EvidenceRefs)
	if err != nil {
		return fmt.Errorf("marshal evidence refs: %w", err)
	}
	return s.messages.CreateTx(ctx, tx, &repository.DisputeMessageRow{
		CaseID:       caseID,
		AuthorID:     msg.AuthorID,
		Role:         string(msg.Role),
		Body:         msg.Body,
		EvidenceRefs: refs,
		CreatedAt:    msg.Timestamp,
	})
}

func (s *Store) enqueue(ctx context.Context, tx db.Tx, caseID string, kind cases.Kind, seq int, event Event, status string, notify *OutboxEvent) error {
	if notify == nil {
		return nil
	}
	payload, err := json.Marshal(eventEnvelope{
		CaseID:     caseID,
		CaseKind:   string(kind),
		Seq:        seq,
		Action:     string(event.Action),
		ActorRole:  string(event.Role),
		Status:     status,
		OccurredAt: time.Now().UTC(),
		Data:       notify.Data,
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	return s.outbox.CreateTx(ctx, tx, &repository.OutboxTask{
		Topic:   notify.Topic,
		Payload: payload,
	})
}
