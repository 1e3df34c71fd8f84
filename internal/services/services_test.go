package services

import (
	"testing"

	"gorm.io/gorm"

	"moneta/internal/pagination"
)

// testServices bundles the wired engine for tests.
type testServices struct {
	audit        AuditServicer
	accounts     AccountServicer
	transactions TransactionServicer
	cards        CardServicer
	installments InstallmentServicer
	billing      BillingCycleServicer
	intents      IntentServicer
}

func newTestServices(t *testing.T, db *gorm.DB) *testServices {
	t.Helper()

	audit := NewAuditService(db)
	accounts := NewAccountService(db, audit)
	transactions := NewTransactionService(db, accounts, audit)
	cards := NewCardService(db, transactions, audit)
	installments := NewInstallmentService(db, cards, transactions, audit)

	return &testServices{
		audit:        audit,
		accounts:     accounts,
		transactions: transactions,
		cards:        cards,
		installments: installments,
		billing:      NewBillingCycleService(db),
		intents:      NewIntentService(transactions, installments),
	}
}

func pageRequest(page, size int) pagination.PageRequest {
	return pagination.PageRequest{Page: page, PageSize: size}
}
