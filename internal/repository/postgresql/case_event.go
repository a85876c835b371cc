package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gitlab.com/teranga/resolution/internal/db"
	"gitlab.com/teranga/resolution/internal/repository"
)

type CaseEventRepo struct {
	db db.DB
}

func NewCaseEventRepo(db db.DB) *CaseEventRepo {
	return &CaseEventRepo{db: db}
}

// CreateTx appends one event to the case log. The sequence number is assigned
// inside the insert under the caller's transaction, so the per-case order is
// decided at the serialization point and never reordered.
func (r *CaseEventRepo) CreateTx(ctx context.Context, tx db.Tx, ev *repository.CaseEventRow) error {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	err := tx.ExecQueryRow(ctx, `
        INSERT INTO case_events (
            id, case_id, case_kind, seq, actor_id, actor_role, action, detail,
            payload, created_at
        )
        SELECT $1, $2, $3, COALESCE(MAX(seq), 0) + 1, $4, $5, $6, $7, $8, $9
        FROM case_events
        WHERE case_id = $2
        RETURNING seq
    `, ev.ID, ev.CaseID, ev.CaseKind, ev.ActorID, ev.ActorRole, ev.Action,
		ev.Detail, ev.Payload, ev.CreatedAt).Scan(&ev.Seq)
	if err != nil {
		return fmt.Errorf("append case event: %w", err)
	}
	return nil
}

func (r *CaseEventRepo) ListByCase(ctx context.Context, caseID string) ([]*repository.CaseEventRow, error) {
	var events []*repository.CaseEventRow
	err := r.db.Select(ctx, &events, `
        SELECT id, case_id, case_kind, seq, actor_id, actor_role, action,
               detail, payload, created_at
        FROM case_events
        WHERE case_id = $1
        ORDER BY seq ASC
    `, caseID)
	return events, err
}
