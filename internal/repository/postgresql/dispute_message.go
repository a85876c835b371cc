package postgresql

import (
	"context"
	"time"

	"gitlab.com/teranga/resolution/internal/db"
	"gitlab.com/teranga/resolution/internal/repository"
)

type DisputeMessageRepo struct {
	db db.DB
}

func NewDisputeMessageRepo(db db.DB) *DisputeMessageRepo {
	return &DisputeMessageRepo{db: db}
}

func (r *DisputeMessageRepo) CreateTx(ctx context.Context, tx db.Tx, msg *repository.DisputeMessageRow) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	_, err := tx.Exec(ctx, `
        INSERT INTO dispute_messages (case_id, author_id, role, body, evidence_refs, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, msg.CaseID, msg.AuthorID, msg.Role, msg.Body, msg.EvidenceRefs, msg.CreatedAt)
	return err
}

func (r *DisputeMessageRepo) ListByCase(ctx context.Context, caseID string) ([]*repository.DisputeMessageRow, error) {
	var messages []*repository.DisputeMessageRow
	err := r.db.Select(ctx, &messages, `
        SELECT id, case_id, author_id, role, body, evidence_refs, created_at
        FROM dispute_messages
        WHERE case_id = $1
        ORDER BY id ASC
    `, caseID)
	return messages, err
}
