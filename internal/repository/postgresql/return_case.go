package postgresql

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"gitlab.com/teranga/resolution/internal/db"
	"gitlab.com/teranga/resolution/internal/repository"
)

type ReturnCaseRepo struct {
	db db.DB
}

func NewReturnCaseRepo(db db.DB) *ReturnCaseRepo {
	return &ReturnCaseRepo{db: db}
}

const returnCaseColumns = `
    id, order_id, buyer_id, seller_id, amount, status, reason, description,
    evidence, proposed_refund, resolution_type, inspection_notes,
    rejection_reason, escalated, dispute_id, created_at, updated_at`

func (r *ReturnCaseRepo) CreateTx(ctx context.Context, tx db.Tx, row *repository.ReturnCaseRow) error {
	_, err := tx.Exec(ctx, `
        INSERT INTO return_cases (
            id, order_id, buyer_id, seller_id, amount, status, reason,
            description, evidence, proposed_refund, resolution_type,
            inspection_notes, rejection_reason, escalated, dispute_id,
            created_at, updated_at
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
    `, row.ID, row.OrderID, row.BuyerID, row.SellerID, row.Amount, row.Status,
		row.Reason, row.Description, row.Evidence, row.ProposedRefund,
		row.ResolutionType, row.InspectionNotes, row.RejectionReason,
		row.Escalated, row.DisputeID, row.CreatedAt, row.UpdatedAt)
	return err
}

func (r *ReturnCaseRepo) UpdateTx(ctx context.Context, tx db.Tx, row *repository.ReturnCaseRow) error {
	tag, err := tx.Exec(ctx, `
        UPDATE return_cases
        SET status = $2,
            proposed_refund = $3,
            resolution_type = $4,
            inspection_notes = $5,
            rejection_reason = $6,
            escalated = $7,
            dispute_id = $8,
            updated_at = $9
        WHERE id = $1
    `, row.ID, row.Status, row.ProposedRefund, row.ResolutionType,
		row.InspectionNotes, row.RejectionReason, row.Escalated, row.DisputeID,
		row.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrObjectNotFound
	}
	return nil
}

func (r *ReturnCaseRepo) GetByID(ctx context.Context, id string) (*repository.ReturnCaseRow, error) {
	var row repository.ReturnCaseRow
	err := r.db.Get(ctx, &row, `
        SELECT`+returnCaseColumns+`
        FROM return_cases
        WHERE id = $1
    `, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrObjectNotFound
		}
		return nil, err
	}
	return &row, nil
}

// GetByIDForUpdateTx takes the per-case row lock so concurrent mutations on
// the same case serialize at the store.
func (r *ReturnCaseRepo) GetByIDForUpdateTx(ctx context.Context, tx db.Tx, id string) (*repository.ReturnCaseRow, error) {
	var row repository.ReturnCaseRow
	err := tx.Get(ctx, &row, `
        SELECT`+returnCaseColumns+`
        FROM return_cases
        WHERE id = $1
        FOR UPDATE
    `, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrObjectNotFound
		}
		return nil, err
	}
	return &row, nil
}

func (r *ReturnCaseRepo) ListByParty(ctx context.Context, partyID string, page, limit int) ([]*repository.ReturnCaseRow, error) {
	offset := (page - 1) * limit

	var rows []*repository.ReturnCaseRow
	err := r.db.Select(ctx, &rows, `
        SELECT`+returnCaseColumns+`
        FROM return_cases
        WHERE buyer_id = $1 OR seller_id = $1
        ORDER BY created_at DESC
        LIMIT $2 OFFSET $3
    `, partyID, limit, offset)
	return rows, err
}
