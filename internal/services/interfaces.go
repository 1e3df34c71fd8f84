package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"moneta/internal/intent"
	"moneta/internal/models"
	"moneta/internal/pagination"
)

// ReconcileReport describes the outcome of comparing an account's stored
// balance against the value recomputed from its live transactions.
type ReconcileReport struct {
	AccountID       string `json:"account_id"`
	StoredBalance   int64  `json:"stored_balance"`
	ComputedBalance int64  `json:"computed_balance"`
	Drift           int64  `json:"drift"`
	Repaired        bool   `json:"repaired"`
}

// AccountServicer defines account management plus the balance ledger:
// atomic signed-delta application for one account or a transfer pair.
// ApplyDelta and ApplyTransfer run against the caller's open database
// transaction so multi-step mutations commit or roll back as one unit.
type AccountServicer interface {
	CreateAccount(ctx context.Context, ownerID, name string, isInvestment bool, openingBalance int64) (*models.Account, error)
	GetAccountByID(ctx context.Context, ownerID, accountID string) (*models.Account, error)
	GetOwnerAccounts(ctx context.Context, ownerID string, page pagination.PageRequest) (*pagination.PageResponse[models.Account], error)
	DeactivateAccount(ctx context.Context, ownerID, accountID string) error
	ApplyDelta(tx *gorm.DB, ownerID, accountID string, delta int64) error
	ApplyTransfer(tx *gorm.DB, ownerID, fromAccountID, toAccountID string, amount int64) error
	Reconcile(ctx context.Context, ownerID, accountID string, repair bool) (*ReconcileReport, error)
	ReconcileAll(ctx context.Context, repair bool) ([]ReconcileReport, error)
}

// CreateTransactionInput holds the fields required to record a transaction.
type CreateTransactionInput struct {
	AccountID   string
	Type        models.TransactionType
	Amount      int64
	Category    string
	Description string
	Date        time.Time
	ToAccountID *string
}

// TransactionUpdateFields holds the mutable fields of a transaction.
// Nil pointers leave the current value untouched.
type TransactionUpdateFields struct {
	AccountID   *string
	Type        *models.TransactionType
	Amount      *int64
	Category    *string
	Description *string
	Date        *time.Time
	ToAccountID *string
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	FromDate  *time.Time
	ToDate    *time.Time
	Type      *models.TransactionType
	Category  *string
	MinAmount *int64
	MaxAmount *int64
}

// TransactionServicer defines the transaction store. Update and delete take
// the previously read version of the row: the engine does not look it up
// again on the caller's behalf, and a stale version is a conflict.
type TransactionServicer interface {
	CreateTransaction(ctx context.Context, ownerID string, in CreateTransactionInput) (*models.Transaction, error)
	CreateTransactionInTx(tx *gorm.DB, ownerID string, in CreateTransactionInput) (*models.Transaction, error)
	GetTransactionByID(ctx context.Context, ownerID, transactionID string) (*models.Transaction, error)
	GetAccountTransactions(ctx context.Context, ownerID, accountID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	UpdateTransaction(ctx context.Context, ownerID string, oldTx *models.Transaction, fields TransactionUpdateFields) (*models.Transaction, error)
	DeleteTransaction(ctx context.Context, ownerID string, oldTx *models.Transaction) error
}

// CardServicer defines credit card management and the invoice ledger:
// idempotent invoice resolution by (card, month, year), purchase amount
// aggregation, and payment transitions.
type CardServicer interface {
	CreateCard(ctx context.Context, ownerID, name string, creditLimit int64, closingDay, dueDay int) (*models.CreditCard, error)
	GetCardByID(ctx context.Context, ownerID, cardID string) (*models.CreditCard, error)
	GetOwnerCards(ctx context.Context, ownerID string, page pagination.PageRequest) (*pagination.PageResponse[models.CreditCard], error)
	GetInvoiceByID(ctx context.Context, ownerID, invoiceID string) (*models.CreditCardInvoice, error)
	GetCardInvoices(ctx context.Context, ownerID, cardID string, page pagination.PageRequest) (*pagination.PageResponse[models.CreditCardInvoice], error)
	GetOrCreateInvoice(ctx context.Context, ownerID, cardID string, month, year int) (*models.CreditCardInvoice, error)
	GetOrCreateInvoiceInTx(tx *gorm.DB, ownerID, cardID string, month, year int) (*models.CreditCardInvoice, error)
	AddPurchaseAmount(tx *gorm.DB, invoiceID string, amount int64) error
	RemovePurchaseAmount(tx *gorm.DB, invoiceID string, amount int64) error
	PayInvoice(ctx context.Context, ownerID, invoiceID, accountID string, amount int64) (*models.CreditCardInvoice, error)
	PartialPayInvoice(ctx context.Context, ownerID, invoiceID, accountID string, amount int64) (*models.CreditCardInvoice, error)
}

// PurchaseInput holds the fields required to record a card purchase.
type PurchaseInput struct {
	Amount       int64
	Installments int
	Category     string
	Description  string
	Date         time.Time
}

// PrepayResult describes the outcome of prepaying future installments.
type PrepayResult struct {
	InstallmentsPaid int                 `json:"installments_paid"`
	AmountPaid       int64               `json:"amount_paid"`
	Payment          *models.Transaction `json:"payment,omitempty"`
}

// InstallmentServicer defines the installment engine: purchase fan-out
// across monthly invoices, prepayment of future installments, and
// deletion of a single installment.
type InstallmentServicer interface {
	CreatePurchase(ctx context.Context, ownerID, cardID string, in PurchaseInput) ([]models.CreditCardTransaction, error)
	GetCardTransactionByID(ctx context.Context, ownerID, cardTransactionID string) (*models.CreditCardTransaction, error)
	GetInvoiceTransactions(ctx context.Context, ownerID, invoiceID string, page pagination.PageRequest) (*pagination.PageResponse[models.CreditCardTransaction], error)
	DeleteCardTransaction(ctx context.Context, ownerID, cardTransactionID string) error
	Prepay(ctx context.Context, ownerID, cardTransactionID, accountID string, installmentsToPay int) (*PrepayResult, error)
}

// BillingCycleReport counts the status transitions applied by one roll.
type BillingCycleReport struct {
	Closed  int `json:"closed"`
	Overdue int `json:"overdue"`
}

// BillingCycleServicer is the calendar-driven side of the invoice state
// machine. The engine never rolls statuses on its own; a periodic caller
// supplies the current time.
type BillingCycleServicer interface {
	RollStatuses(ctx context.Context, now time.Time) (*BillingCycleReport, error)
}

// IntentResult holds whichever records applying an intent produced.
type IntentResult struct {
	Transaction  *models.Transaction            `json:"transaction,omitempty"`
	Installments []models.CreditCardTransaction `json:"installments,omitempty"`
}

// IntentServicer validates a structured transaction intent and routes it
// to the transaction store or the installment engine.
type IntentServicer interface {
	Apply(ctx context.Context, ownerID string, in intent.TransactionIntent) (*IntentResult, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(ownerID, action, resourceType, resourceID string, changes map[string]any)
}
