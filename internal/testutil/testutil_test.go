package testutil_test

import (
	"testing"

	"moneta/internal/models"
	"moneta/internal/testutil"
	"moneta/internal/uuid"
)

func TestSetupTestDB(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	// Verify all tables exist by doing a simple count query on each model.
	var count int64
	for _, table := range []string{"accounts", "transactions", "credit_cards", "credit_card_invoices", "credit_card_transactions", "audit_logs"} {
		if err := db.Table(table).Count(&count).Error; err != nil {
			t.Errorf("table %q should exist after migration: %v", table, err)
		}
	}
}

func TestFixtures(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	owner := testutil.NewOwnerID()
	if !uuid.IsValid(owner) {
		t.Fatalf("owner ID should be a valid UUID, got %q", owner)
	}

	account := testutil.CreateTestAccountWithBalance(t, db, owner, 5000)
	if account.ID == "" {
		t.Fatal("account should have a non-empty ID")
	}
	if account.Balance != 5000 {
		t.Errorf("expected balance 5000, got %d", account.Balance)
	}

	card := testutil.CreateTestCardWithDays(t, db, owner, 10, 20)
	if card.ClosingDay != 10 || card.DueDay != 20 {
		t.Errorf("expected closing/due 10/20, got %d/%d", card.ClosingDay, card.DueDay)
	}

	invoice := testutil.CreateTestInvoice(t, db, card.ID, 3, 2026, models.InvoiceStatusOpen)
	if invoice.Status != models.InvoiceStatusOpen {
		t.Errorf("expected open invoice, got %s", invoice.Status)
	}

	tx := testutil.CreateTestTransaction(t, db, owner, account.ID, models.TransactionTypeExpense, 1500)
	if tx.SignedAmount() != -1500 {
		t.Errorf("expected signed amount -1500, got %d", tx.SignedAmount())
	}
}
