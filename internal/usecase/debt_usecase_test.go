package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iho/cartsplit/internal/domain"
	"github.com/iho/cartsplit/internal/infrastructure/metrics"
	"github.com/iho/cartsplit/internal/usecase"
	"github.com/iho/cartsplit/internal/usecase/mocks"
)

func unpaidDebt() *domain.Debt {
	return &domain.Debt{
		ID:        "debt-1",
		SessionID: "sess-1",
		OwedBy:    bob.Email,
		OwedTo:    alice.Email,
		Amount:    decimal.NewFromInt(6),
		CreatedAt: time.Now().Add(-time.Hour).UTC(),
	}
}

func TestDebtUseCase_ListDebts(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockDebtRepository(ctrl)
	uc := usecase.NewDebtUseCase(mocks.NewMockTransactionManager(), repo, nil, nil, nil)

	begin := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.EXPECT().ListUnpaid(gomock.Any(), domain.DebtFilter{Email: alice.Email, Begin: &begin}).
		Return(nil, []*domain.Debt{unpaidDebt()}, nil)

	list, err := uc.ListDebts(context.Background(), alice.Email, &begin, nil)
	require.NoError(t, err)

	assert.NotNil(t, list.OwedBy, "empty side must be an empty slice")
	assert.Empty(t, list.OwedBy)
	assert.Len(t, list.OwedTo, 1)
}

func TestDebtUseCase_GetDebt(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockDebtRepository(ctrl)
	uc := usecase.NewDebtUseCase(mocks.NewMockTransactionManager(), repo, nil, nil, nil)

	repo.EXPECT().GetByID(gomock.Any(), "debt-1").Return(unpaidDebt(), nil).Times(3)

	for _, email := range []string{alice.Email, bob.Email} {
		debt, err := uc.GetDebt(context.Background(), email, "debt-1")
		require.NoError(t, err)
		assert.Equal(t, "debt-1", debt.ID)
	}

	_, err := uc.GetDebt(context.Background(), carol.Email, "debt-1")
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestDebtUseCase_PatchDebt(t *testing.T) {
	past := time.Now().Add(-time.Minute).UTC()
	future := time.Now().Add(24 * time.Hour).UTC()

	tests := []struct {
		name       string
		caller     string
		patch      usecase.PatchDebtInput
		wantErr    error
		wantSettle bool
	}{
		{"owed party marks payed", alice.Email, usecase.PatchDebtInput{Payed: &past}, nil, true},
		{"owed party sets deadline", alice.Email, usecase.PatchDebtInput{Deadline: &future}, nil, false},
		{"debtor cannot patch", bob.Email, usecase.PatchDebtInput{Payed: &past}, domain.ErrForbidden, false},
		{"deadline in the past", alice.Email, usecase.PatchDebtInput{Deadline: &past}, domain.ErrInvalidValue, false},
		{"payment in the future", alice.Email, usecase.PatchDebtInput{Payed: &future}, domain.ErrInvalidValue, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			repo := mocks.NewMockDebtRepository(ctrl)
			txManager := mocks.NewMockTransactionManager()
			broadcaster := mocks.NewMockBroadcaster()
			m := metrics.New(prometheus.NewRegistry())
			uc := usecase.NewDebtUseCase(txManager, repo, &mocks.MockRetrier{Attempts: 1}, broadcaster, m)

			repo.EXPECT().GetByIDForUpdate(gomock.Any(), gomock.Any(), "debt-1").Return(unpaidDebt(), nil)
			if tt.wantErr == nil {
				repo.EXPECT().Update(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
			}

			input := tt.patch
			input.Caller, input.DebtID = tt.caller, "debt-1"
			debt, err := uc.PatchDebt(context.Background(), input)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Zero(t, txManager.Committed())
				assert.Empty(t, broadcaster.Notified())
				return
			}

			require.NoError(t, err)
			assert.Equal(t, 1, txManager.Committed())
			assert.Equal(t, [][]string{{bob.Email}}, broadcaster.Notified())
			assert.Equal(t, tt.wantSettle, debt.IsPayed())
			if tt.wantSettle {
				assert.Equal(t, float64(1), testutil.ToFloat64(m.DebtsSettled))
			}
		})
	}
}
