package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pushforge/pushforge/internal/domain/model"
	apperrors "github.com/pushforge/pushforge/internal/errors"
	"github.com/pushforge/pushforge/internal/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// newCreditService creates a mock ledger and service for testing.
func newCreditService(t *testing.T) (*mocks.MockCreditLedger, *CreditService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	ledger := mocks.NewMockCreditLedger(ctrl)
	service := MustNewCreditService(CreditServiceOptions{Ledger: ledger})
	return ledger, service
}

func TestCreditService_GetBalance(t *testing.T) {
	t.Parallel()
	ledger, service := newCreditService(t)

	ctx := context.Background()

	ledger.EXPECT().
		GetBalance(ctx, testUserID).
		Return(42, nil).
		Times(1)

	balance, err := service.GetBalance(ctx, testUserID)

	require.NoError(t, err)
	assert.Equal(t, 42, balance)
}

func TestCreditService_Grant_Purchase(t *testing.T) {
	t.Parallel()
	ledger, service := newCreditService(t)

	ctx := context.Background()
	expected := &model.Transaction{
		ID:           "txn-123",
		UserID:       testUserID,
		Amount:       100,
		BalanceAfter: 142,
		Type:         model.TransactionPurchase,
		CreatedAt:    time.Now(),
	}

	ledger.EXPECT().
		AdjustBalance(ctx, testUserID, 100, model.TransactionPurchase).
		Return(expected, nil).
		Times(1)

	txn, err := service.Grant(ctx, testUserID, 100, model.TransactionPurchase)

	require.NoError(t, err)
	assert.Equal(t, expected, txn)
}

func TestCreditService_Grant_RejectsNonPositiveAmount(t *testing.T) {
	t.Parallel()
	ledger, service := newCreditService(t)

	ctx := context.Background()

	ledger.EXPECT().AdjustBalance(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	for _, amount := range []int{0, -5} {
		txn, err := service.Grant(ctx, testUserID, amount, model.TransactionGrant)
		require.Error(t, err)
		assert.Nil(t, txn)
		assert.True(t, apperrors.IsValidation(err))
	}
}

func TestCreditService_Grant_RejectsSettlementTypes(t *testing.T) {
	t.Parallel()
	ledger, service := newCreditService(t)

	ctx := context.Background()

	// Consumption and refund belong to the settlement path, not to grants.
	ledger.EXPECT().AdjustBalance(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	for _, txType := range []model.TransactionType{model.TransactionConsumption, model.TransactionRefund} {
		txn, err := service.Grant(ctx, testUserID, 10, txType)
		require.Error(t, err)
		assert.Nil(t, txn)
		assert.True(t, apperrors.IsValidation(err))
	}
}

func TestCreditService_Grant_LedgerError(t *testing.T) {
	t.Parallel()
	ledger, service := newCreditService(t)

	ctx := context.Background()

	ledger.EXPECT().
		AdjustBalance(ctx, testUserID, 10, model.TransactionGrant).
		Return(nil, errors.New("database error")).
		Times(1)

	txn, err := service.Grant(ctx, testUserID, 10, model.TransactionGrant)

	require.Error(t, err)
	assert.Nil(t, txn)
}

func TestCreditService_Transactions(t *testing.T) {
	t.Parallel()
	ledger, service := newCreditService(t)

	ctx := context.Background()
	expected := []*model.Transaction{
		{ID: "txn-2", UserID: testUserID, Amount: -5, BalanceAfter: 95, Type: model.TransactionConsumption},
		{ID: "txn-1", UserID: testUserID, Amount: 100, BalanceAfter: 100, Type: model.TransactionPurchase},
	}

	ledger.EXPECT().
		ListTransactions(ctx, testUserID, 20).
		Return(expected, nil).
		Times(1)

	txns, err := service.Transactions(ctx, testUserID, 20)

	require.NoError(t, err)
	assert.Equal(t, expected, txns)
}
