package postgresql

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"gitlab.com/teranga/resolution/internal/db"
	"gitlab.com/teranga/resolution/internal/repository"
)

type DisputeCaseRepo struct {
	db db.DB
}

func NewDisputeCaseRepo(db db.DB) *DisputeCaseRepo {
	return &DisputeCaseRepo{db: db}
}

const disputeCaseColumns = `
    id, originating_return_case_id, order_id, plaintiff_id, respondent_id,
    mediator_id, amount, status, type, description, response_deadline,
    proposal, mediation_round, created_at, updated_at`

func (r *DisputeCaseRepo) CreateTx(ctx context.Context, tx db.Tx, row *repository.DisputeCaseRow) error {
	_, err := tx.Exec(ctx, `
        INSERT INTO dispute_cases (
            id, originating_return_case_id, order_id, plaintiff_id,
            respondent_id, mediator_id, amount, status, type, description,
            response_deadline, proposal, mediation_round, created_at, updated_at
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
    `, row.ID, row.OriginatingReturnCaseID, row.OrderID, row.PlaintiffID,
		row.RespondentID, row.MediatorID, row.Amount, row.Status, row.Type,
		row.Description, row.ResponseDeadline, row.Proposal, row.MediationRound,
		row.CreatedAt, row.UpdatedAt)
	return err
}

func (r *DisputeCaseRepo) UpdateTx(ctx context.Context, tx db.Tx, row *repository.DisputeCaseRow) error {
	tag, err := tx.Exec(ctx, `
        UPDATE dispute_cases
        SET status = $2,
            mediator_id = $3,
            response_deadline = $4,
            proposal = $5,
            mediation_round = $6,
            updated_at = $7
        WHERE id = $1
    `, row.ID, row.Status, row.MediatorID, row.ResponseDeadline, row.Proposal,
		row.MediationRound, row.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrObjectNotFound
	}
	return nil
}

func (r *DisputeCaseRepo) GetByID(ctx context.Context, id string) (*repository.DisputeCaseRow, error) {
	var row repository.DisputeCaseRow
	err := r.db.Get(ctx, &row, `
        SELECT`+disputeCaseColumns+`
        FROM dispute_cases
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

func (r *DisputeCaseRepo) GetByIDForUpdateTx(ctx context.Context, tx db.Tx, id string) (*repository.DisputeCaseRow, error) {
	var row repository.DisputeCaseRow
	err := tx.Get(ctx, &row, `
        SELECT`+disputeCaseColumns+`
        FROM dispute_cases
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

func (r *DisputeCaseRepo) ListByParty(ctx context.Context, partyID string, page, limit int) ([]*repository.DisputeCaseRow, error) {
	offset := (page - 1) * limit

	var rows []*repository.DisputeCaseRow
	err := r.db.Select(ctx, &rows, `
        SELECT`+disputeCaseColumns+`
        FROM dispute_cases
        WHERE plaintiff_id = $1 OR respondent_id = $1
        ORDER BY created_at DESC
        LIMIT $2 OFFSET $3
    `, partyID, limit, offset)
	return rows, err
}

// ListOpenDeadlines returns disputes whose deadline timer must be live. Used
// on startup to re-arm the scheduler after a restart.
func (r *DisputeCaseRepo) ListOpenDeadlines(ctx context.Context) ([]*repository.DisputeCaseRow, error) {
	var rows []*repository.DisputeCaseRow
	err := r.db.Select(ctx, &rows, `
        SELECT`+disputeCaseColumns+`
        FROM dispute_cases
        WHERE response_deadline IS NOT NULL
          AND status IN ('opened', 'awaiting_respondent_response', 'proposal_sent')
        ORDER BY response_deadline ASC
    `)
	return rows, err
}
