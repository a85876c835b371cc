package postgresql

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	mock_database "gitlab.com/teranga/resolution/internal/db/mocks"
	"gitlab.com/teranga/resolution/internal/repository"
)

func sampleReturnRow() *repository.ReturnCaseRow {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &repository.ReturnCaseRow{
		ID:          "ret-1",
		OrderID:     "ord-1",
		BuyerID:     "buyer-1",
		SellerID:    "seller-1",
		Amount:      75000,
		Status:      "requested",
		Reason:      "damaged",
		Description: "arrived cracked",
		Evidence:    []byte(`["photo-1"]`),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestReturnCaseRepo_CreateTx(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockDB := mock_database.NewMockDB(ctrl)
	mockTx := mock_database.NewMockTx(ctrl)
	repo := NewReturnCaseRepo(mockDB)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		row := sampleReturnRow()

		mockTx.EXPECT().
			Exec(gomock.Any(), gomock.Any(),
				gomock.Eq(row.ID), gomock.Eq(row.OrderID), gomock.Eq(row.BuyerID),
				gomock.Eq(row.SellerID), gomock.Eq(row.Amount), gomock.Eq(row.Status),
				gomock.Eq(row.Reason), gomock.Eq(row.Description), gomock.Eq(row.Evidence),
				gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(),
				gomock.Eq(false), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, nil)

		err := repo.CreateTx(ctx, mockTx, row)
		assert.NoError(t, err)
	})

	t.Run("Tx Error", func(t *testing.T) {
		dbErr := errors.New("database error")

		mockTx.EXPECT().
			Exec(gomock.Any(), gomock.Any(), anyArgs(17)...).
			Return(nil, dbErr)

		err := repo.CreateTx(ctx, mockTx, sampleReturnRow())
		assert.Error(t, err)
		assert.Equal(t, dbErr, err)
	})
}

func TestReturnCaseRepo_UpdateTx(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockDB := mock_database.NewMockDB(ctrl)
	mockTx := mock_database.NewMockTx(ctrl)
	repo := NewReturnCaseRepo(mockDB)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		row := sampleReturnRow()
		row.Status = "approved"

		mockTx.EXPECT().
			Exec(gomock.Any(), gomock.Any(), anyArgs(9)...).
			Return(pgconn.CommandTag("UPDATE 1"), nil)

		err := repo.UpdateTx(ctx, mockTx, row)
		assert.NoError(t, err)
	})

	t.Run("Missing Row", func(t *testing.T) {
		mockTx.EXPECT().
			Exec(gomock.Any(), gomock.Any(), anyArgs(9)...).
			Return(pgconn.CommandTag("UPDATE 0"), nil)

		err := repo.UpdateTx(ctx, mockTx, sampleReturnRow())
		assert.ErrorIs(t, err, repository.ErrObjectNotFound)
	})
}

func TestReturnCaseRepo_GetByID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockDB := mock_database.NewMockDB(ctrl)
	repo := NewReturnCaseRepo(mockDB)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		want := sampleReturnRow()

		mockDB.EXPECT().
			Get(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Eq("ret-1")).
			DoAndReturn(func(_ context.Context, dest any, _ string, _ ...any) error {
				*dest.(*repository.ReturnCaseRow) = *want
				return nil
			})

		got, err := repo.GetByID(ctx, "ret-1")
		assert.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("Not Found", func(t *testing.T) {
		mockDB.EXPECT().
			Get(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Eq("ret-missing")).
			Return(pgx.ErrNoRows)

		_, err := repo.GetByID(ctx, "ret-missing")
		assert.ErrorIs(t, err, repository.ErrObjectNotFound)
	})
}

func TestReturnCaseRepo_ListByParty(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockDB := mock_database.NewMockDB(ctrl)
	repo := NewReturnCaseRepo(mockDB)
	ctx := context.Background()

	// page 3 with limit 10 translates to offset 20
	mockDB.EXPECT().
		Select(gomock.Any(), gomock.Any(), gomock.Any(),
			gomock.Eq("buyer-1"), gomock.Eq(10), gomock.Eq(20)).
		Return(nil)

	_, err := repo.ListByParty(ctx, "buyer-1", 3, 10)
	assert.NoError(t, err)
}

// anyArgs builds a gomock.Any matcher per positional SQL argument.
func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = gomock.Any()
	}
	return args
}
