package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionType_Valid(t *testing.T) {
	tests := []struct {
		typ  TransactionType
		want bool
	}{
		{TransactionPurchase, true},
		{TransactionConsumption, true},
		{TransactionGrant, true},
		{TransactionRefund, true},
		{TransactionType("escrow"), false},
		{TransactionType(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.typ.Valid())
		})
	}
}

func TestTransactionType_UnmarshalText(t *testing.T) {
	var typ TransactionType
	require.NoError(t, typ.UnmarshalText([]byte(" PURCHASE ")))
	assert.Equal(t, TransactionPurchase, typ)

	require.Error(t, typ.UnmarshalText([]byte("chargeback")))
}

func TestConsumeOutcome_Charged(t *testing.T) {
	assert.True(t, ConsumeApplied.Charged())
	assert.True(t, ConsumeAlreadySettled.Charged())
	assert.False(t, ConsumeInsufficientFunds.Charged())
}

func TestConsumeOutcome_String(t *testing.T) {
	assert.Equal(t, "applied", ConsumeApplied.String())
	assert.Equal(t, "already_settled", ConsumeAlreadySettled.String())
	assert.Equal(t, "insufficient_funds", ConsumeInsufficientFunds.String())
	assert.Equal(t, "unknown", ConsumeOutcome(99).String())
}
