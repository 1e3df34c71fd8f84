package testutil

import (
	"fmt"
	"testing"
	"time"

	"moneta/internal/models"
	"moneta/internal/uuid"

	"gorm.io/gorm"
)

// NewOwnerID returns a fresh owner (user or group) identifier.
func NewOwnerID() string {
	return uuid.New()
}

// CreateTestAccount creates an active spendable account with zero balance.
func CreateTestAccount(t *testing.T, db *gorm.DB, ownerID string) *models.Account {
	t.Helper()
	return CreateTestAccountWithBalance(t, db, ownerID, 0)
}

// CreateTestAccountWithBalance creates an active account with the given
// balance (in minor units), without backing transactions.
func CreateTestAccountWithBalance(t *testing.T, db *gorm.DB, ownerID string, balance int64) *models.Account {
	t.Helper()

	account := &models.Account{
		OwnerID:  ownerID,
		Name:     fmt.Sprintf("Test Account %s", uuid.New()[:8]),
		Balance:  balance,
		IsActive: true,
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test account: %v", err)
	}
	return account
}

// CreateTestCard creates a credit card closing on day 5 and due on day 15.
func CreateTestCard(t *testing.T, db *gorm.DB, ownerID string) *models.CreditCard {
	t.Helper()
	return CreateTestCardWithDays(t, db, ownerID, 5, 15)
}

// CreateTestCardWithDays creates a credit card with the given closing and due days.
func CreateTestCardWithDays(t *testing.T, db *gorm.DB, ownerID string, closingDay, dueDay int) *models.CreditCard {
	t.Helper()

	card := &models.CreditCard{
		OwnerID:     ownerID,
		Name:        fmt.Sprintf("Test Card %s", uuid.New()[:8]),
		CreditLimit: 500000,
		ClosingDay:  closingDay,
		DueDay:      dueDay,
	}
	if err := db.Create(card).Error; err != nil {
		t.Fatalf("failed to create test card: %v", err)
	}
	return card
}

// CreateTestInvoice creates an invoice for the given card and period.
func CreateTestInvoice(t *testing.T, db *gorm.DB, cardID string, month, year int, status models.InvoiceStatus) *models.CreditCardInvoice {
	t.Helper()

	invoice := &models.CreditCardInvoice{
		CardID: cardID,
		Month:  month,
		Year:   year,
		Status: status,
	}
	if err := db.Create(invoice).Error; err != nil {
		t.Fatalf("failed to create test invoice: %v", err)
	}
	return invoice
}

// CreateTestTransaction creates a transaction of the given type and amount
// (in minor units) without touching the account balance.
func CreateTestTransaction(t *testing.T, db *gorm.DB, ownerID, accountID string, txType models.TransactionType, amount int64) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		OwnerID:   ownerID,
		AccountID: accountID,
		Type:      txType,
		Amount:    amount,
		Date:      time.Now(),
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}
