package services

import (
	"context"
	"testing"

	"moneta/internal/models"
	"moneta/internal/pagination"
	"moneta/internal/testutil"
)

func TestCreateAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestServices(t, db)
		owner := testutil.NewOwnerID()

		account, err := svc.accounts.CreateAccount(ctx, owner, "Checking", false, 0)
		testutil.AssertNoError(t, err)
		if account.ID == "" {
			t.Fatal("expected non-empty account ID")
		}
		if account.Balance != 0 {
			t.Errorf("expected zero balance, got %d", account.Balance)
		}
		if !account.IsActive {
			t.Error("expected account to be active")
		}
	})

	t.Run("opening_balance_recorded_as_transaction", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestServices(t, db)
		owner := testutil.NewOwnerID()

		account, err := svc.accounts.CreateAccount(ctx, owner, "Savings", false, 150000)
		testutil.AssertNoError(t, err)
		if account.Balance != 150000 {
			t.Errorf("expected balance 150000, got %d", account.Balance)
		}

		// Opening balance must leave the account reconcilable.
		report, err := svc.accounts.Reconcile(ctx, owner, account.ID, false)
		testutil.AssertNoError(t, err)
		if report.Drift != 0 {
			t.Errorf("expected zero drift, got %d", report.Drift)
		}
	})

	t.Run("negative_opening_balance", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestServices(t, db)
		owner := testutil.NewOwnerID()

		account, err := svc.accounts.CreateAccount(ctx, owner, "Overdrawn", false, -5000)
		testutil.AssertNoError(t, err)
		if account.Balance != -5000 {
			t.Errorf("expected balance -5000, got %d", account.Balance)
		}

		report, err := svc.accounts.Reconcile(ctx, owner, account.ID, false)
		testutil.AssertNoError(t, err)
		if report.Drift != 0 {
			t.Errorf("expected zero drift, got %d", report.Drift)
		}
	})

	t.Run("missing_name", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestServices(t, db)

		_, err := svc.accounts.CreateAccount(ctx, testutil.NewOwnerID(), "", false, 0)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestGetOwnerAccounts(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := newTestServices(t, db)
	owner := testutil.NewOwnerID()
	other := testutil.NewOwnerID()

	for _, name := range []string{"Checking", "Savings", "Brokerage"} {
		_, err := svc.accounts.CreateAccount(ctx, owner, name, false, 0)
		testutil.AssertNoError(t, err)
	}
	_, err := svc.accounts.CreateAccount(ctx, other, "Elsewhere", false, 0)
	testutil.AssertNoError(t, err)

	page, err := svc.accounts.GetOwnerAccounts(ctx, owner, pagination.PageRequest{Page: 1, PageSize: 10})
	testutil.AssertNoError(t, err)
	if page.TotalItems != 3 {
		t.Errorf("expected 3 accounts, got %d", page.TotalItems)
	}
	for _, a := range page.Items {
		if a.OwnerID != owner {
			t.Errorf("listing leaked account %s owned by %s", a.ID, a.OwnerID)
		}
	}
}

func TestDeactivateAccount(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := newTestServices(t, db)
	owner := testutil.NewOwnerID()

	account, err := svc.accounts.CreateAccount(ctx, owner, "Old", false, 0)
	testutil.AssertNoError(t, err)

	testutil.AssertNoError(t, svc.accounts.DeactivateAccount(ctx, owner, account.ID))

	_, err = svc.accounts.GetAccountByID(ctx, owner, account.ID)
	testutil.AssertAppError(t, err, "ACCOUNT_NOT_FOUND")

	err = svc.accounts.DeactivateAccount(ctx, owner, account.ID)
	testutil.AssertAppError(t, err, "ACCOUNT_NOT_FOUND")
}

func TestApplyDelta(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := newTestServices(t, db)
	owner := testutil.NewOwnerID()
	account := testutil.CreateTestAccountWithBalance(t, db, owner, 1000)

	t.Run("accumulates", func(t *testing.T) {
		testutil.AssertNoError(t, svc.accounts.ApplyDelta(db, owner, account.ID, 500))
		testutil.AssertNoError(t, svc.accounts.ApplyDelta(db, owner, account.ID, -2000))

		var got models.Account
		testutil.AssertNoError(t, db.First(&got, "id = ?", account.ID).Error)
		if got.Balance != -500 {
			t.Errorf("expected balance -500, got %d", got.Balance)
		}
	})

	t.Run("missing_account", func(t *testing.T) {
		err := svc.accounts.ApplyDelta(db, owner, "00000000-0000-7000-8000-000000000000", 100)
		testutil.AssertAppError(t, err, "ACCOUNT_NOT_FOUND")
	})
}

func TestApplyTransfer(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := newTestServices(t, db)
	owner := testutil.NewOwnerID()

	t.Run("same_account_rejected", func(t *testing.T) {
		account := testutil.CreateTestAccountWithBalance(t, db, owner, 1000)
		err := svc.accounts.ApplyTransfer(db, owner, account.ID, account.ID, 100)
		testutil.AssertAppError(t, err, "SAME_ACCOUNT_TRANSFER")
	})

	t.Run("moves_amount", func(t *testing.T) {
		from := testutil.CreateTestAccountWithBalance(t, db, owner, 1000)
		to := testutil.CreateTestAccount(t, db, owner)

		testutil.AssertNoError(t, svc.accounts.ApplyTransfer(db, owner, from.ID, to.ID, 400))

		var src, dst models.Account
		testutil.AssertNoError(t, db.First(&src, "id = ?", from.ID).Error)
		testutil.AssertNoError(t, db.First(&dst, "id = ?", to.ID).Error)
		if src.Balance != 600 || dst.Balance != 400 {
			t.Errorf("expected 600/400, got %d/%d", src.Balance, dst.Balance)
		}
	})
}

func TestReconcile(t *testing.T) {
	ctx := context.Background()

	t.Run("no_drift", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestServices(t, db)
		owner := testutil.NewOwnerID()

		account, err := svc.accounts.CreateAccount(ctx, owner, "Checking", false, 100000)
		testutil.AssertNoError(t, err)
		_, err = svc.transactions.CreateTransaction(ctx, owner, CreateTransactionInput{
			AccountID: account.ID, Type: models.TransactionTypeExpense, Amount: 2500,
		})
		testutil.AssertNoError(t, err)

		report, err := svc.accounts.Reconcile(ctx, owner, account.ID, false)
		testutil.AssertNoError(t, err)
		if report.Drift != 0 {
			t.Errorf("expected zero drift, got %d", report.Drift)
		}
		if report.StoredBalance != 97500 || report.ComputedBalance != 97500 {
			t.Errorf("expected 97500/97500, got %d/%d", report.StoredBalance, report.ComputedBalance)
		}
	})

	t.Run("detects_drift_without_repair", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestServices(t, db)
		owner := testutil.NewOwnerID()

		account, err := svc.accounts.CreateAccount(ctx, owner, "Checking", false, 100000)
		testutil.AssertNoError(t, err)

		// Corrupt the stored balance behind the engine's back.
		testutil.AssertNoError(t, db.Model(&models.Account{}).Where("id = ?", account.ID).Update("balance", 123456).Error)

		_, err = svc.accounts.Reconcile(ctx, owner, account.ID, false)
		testutil.AssertAppError(t, err, "DRIFT_DETECTED")

		var got models.Account
		testutil.AssertNoError(t, db.First(&got, "id = ?", account.ID).Error)
		if got.Balance != 123456 {
			t.Errorf("expected stored balance untouched at 123456, got %d", got.Balance)
		}
	})

	t.Run("repairs_drift", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestServices(t, db)
		owner := testutil.NewOwnerID()

		account, err := svc.accounts.CreateAccount(ctx, owner, "Checking", false, 100000)
		testutil.AssertNoError(t, err)
		testutil.AssertNoError(t, db.Model(&models.Account{}).Where("id = ?", account.ID).Update("balance", 123456).Error)

		report, err := svc.accounts.Reconcile(ctx, owner, account.ID, true)
		testutil.AssertNoError(t, err)
		if !report.Repaired {
			t.Error("expected report to be marked repaired")
		}
		if report.ComputedBalance != 100000 {
			t.Errorf("expected computed balance 100000, got %d", report.ComputedBalance)
		}

		var got models.Account
		testutil.AssertNoError(t, db.First(&got, "id = ?", account.ID).Error)
		if got.Balance != 100000 {
			t.Errorf("expected repaired balance 100000, got %d", got.Balance)
		}
	})

	t.Run("counts_incoming_transfers", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestServices(t, db)
		owner := testutil.NewOwnerID()

		from, err := svc.accounts.CreateAccount(ctx, owner, "Checking", false, 10000)
		testutil.AssertNoError(t, err)
		to, err := svc.accounts.CreateAccount(ctx, owner, "Savings", false, 0)
		testutil.AssertNoError(t, err)

		_, err = svc.transactions.CreateTransaction(ctx, owner, CreateTransactionInput{
			AccountID: from.ID, Type: models.TransactionTypeTransfer, Amount: 4000, ToAccountID: &to.ID,
		})
		testutil.AssertNoError(t, err)

		for _, id := range []string{from.ID, to.ID} {
			report, err := svc.accounts.Reconcile(ctx, owner, id, false)
			testutil.AssertNoError(t, err)
			if report.Drift != 0 {
				t.Errorf("account %s: expected zero drift, got %d", id, report.Drift)
			}
		}
	})

	t.Run("missing_account", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestServices(t, db)

		_, err := svc.accounts.Reconcile(ctx, testutil.NewOwnerID(), "00000000-0000-7000-8000-000000000000", false)
		testutil.AssertAppError(t, err, "ACCOUNT_NOT_FOUND")
	})
}

func TestReconcileAll(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := newTestServices(t, db)
	owner := testutil.NewOwnerID()

	clean, err := svc.accounts.CreateAccount(ctx, owner, "Clean", false, 5000)
	testutil.AssertNoError(t, err)
	drifted, err := svc.accounts.CreateAccount(ctx, owner, "Drifted", false, 5000)
	testutil.AssertNoError(t, err)
	testutil.AssertNoError(t, db.Model(&models.Account{}).Where("id = ?", drifted.ID).Update("balance", 9999).Error)

	reports, err := svc.accounts.ReconcileAll(ctx, false)
	testutil.AssertNoError(t, err)

	var driftFindings int
	for _, r := range reports {
		if r.AccountID == clean.ID && r.Drift != 0 {
			t.Errorf("clean account reported drift %d", r.Drift)
		}
		if r.Drift != 0 {
			driftFindings++
		}
	}
	if driftFindings != 1 {
		t.Errorf("expected exactly 1 drift finding, got %d", driftFindings)
	}

	_, err = svc.accounts.ReconcileAll(ctx, true)
	testutil.AssertNoError(t, err)

	var got models.Account
	testutil.AssertNoError(t, db.First(&got, "id = ?", drifted.ID).Error)
	if got.Balance != 5000 {
		t.Errorf("expected repaired balance 5000, got %d", got.Balance)
	}
}
