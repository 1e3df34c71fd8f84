package models

import "time"

// TransactionType represents the type of transaction
type TransactionType string

const (
	TransactionTypeIncome   TransactionType = "income"
	TransactionTypeExpense  TransactionType = "expense"
	TransactionTypeTransfer TransactionType = "transfer"
)

// Transaction represents a bank transaction. A transfer is a single
// record holding both the source account and the destination account,
// not two linked rows; reversal logic relies on that shape.
type Transaction struct {
	Base
	OwnerID     string          `gorm:"type:uuid;not null;index" json:"owner_id"`
	AccountID   string          `gorm:"type:uuid;not null;index" json:"account_id"`
	Type        TransactionType `gorm:"not null" json:"type"`
	Amount      int64           `gorm:"type:bigint;not null" json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Date        time.Time       `gorm:"not null" json:"date"`

	// For transfers
	ToAccountID *string `gorm:"type:uuid" json:"to_account_id,omitempty"`

	// Relationships
	Account   Account  `gorm:"foreignKey:AccountID" json:"account"`
	ToAccount *Account `gorm:"foreignKey:ToAccountID" json:"to_account,omitempty"`
}

// SignedAmount returns the delta this transaction applies to its owning
// account: income adds, expense subtracts. Transfers are handled pairwise
// by the balance ledger and have no single signed amount.
func (t *Transaction) SignedAmount() int64 {
	if t.Type == TransactionTypeExpense {
		return -t.Amount
	}
	return t.Amount
}
