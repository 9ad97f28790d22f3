package model

import (
	"fmt"
	"strings"
	"time"
)

// TransactionType categorizes the business reason for a balance mutation.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type TransactionType string

const (
	// TransactionPurchase credits bought through the external checkout flow.
	TransactionPurchase TransactionType = "purchase"
	// TransactionConsumption credits consumed by a successfully settled job.
	TransactionConsumption TransactionType = "consumption"
	// TransactionGrant credits added manually by an operator.
	TransactionGrant TransactionType = "grant"
	// TransactionRefund credits returned after a disputed settlement.
	TransactionRefund TransactionType = "refund"
)

// Valid returns true if the TransactionType is valid.
func (t TransactionType) Valid() bool {
	return t == TransactionPurchase || t == TransactionConsumption ||
		t == TransactionGrant || t == TransactionRefund
}

// UnmarshalText implements encoding.TextUnmarshaler for TransactionType.
func (t *TransactionType) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	tt := TransactionType(v)
	if tt.Valid() {
		*t = tt
		return nil
	}
	return fmt.Errorf("invalid TransactionType: %q", v)
}

// Transaction is an immutable audit record produced by every balance
// mutation. BalanceAfter carries the balance resulting from applying Amount,
// so the sequence of transactions for a user reconstructs the balance history.
type Transaction struct {
	ID           string          `json:"id"               db:"id"`
	UserID       string          `json:"user_id"          db:"user_id"`
	Amount       int             `json:"amount"           db:"amount"`
	BalanceAfter int             `json:"balance_after"    db:"balance_after"`
	Type         TransactionType `json:"type"             db:"type"`
	JobID        *string         `json:"job_id,omitempty" db:"job_id"`
	CreatedAt    time.Time       `json:"created_at"       db:"created_at"`
}

// ConsumeOutcome reports how an atomic consume attempt resolved.
type ConsumeOutcome int

const (
	// ConsumeInsufficientFunds means the balance was below the requested
	// amount and nothing was mutated.
	ConsumeInsufficientFunds ConsumeOutcome = iota
	// ConsumeApplied means the balance was decremented and a consumption
	// transaction was recorded.
	ConsumeApplied
	// ConsumeAlreadySettled means a consumption for the same job was already
	// recorded by a concurrent or earlier caller; nothing was mutated.
	ConsumeAlreadySettled
)

// String returns a human-readable name for the outcome.
func (o ConsumeOutcome) String() string {
	switch o {
	case ConsumeInsufficientFunds:
		return "insufficient_funds"
	case ConsumeApplied:
		return "applied"
	case ConsumeAlreadySettled:
		return "already_settled"
	default:
		return "unknown"
	}
}

// Charged reports whether the job may be considered paid for: either this
// call applied the charge or an earlier call already did.
func (o ConsumeOutcome) Charged() bool {
	return o == ConsumeApplied || o == ConsumeAlreadySettled
}
