package services

import (
	"context"
	"testing"
	"time"

	"moneta/internal/models"
	"moneta/internal/testutil"
)

func TestRollStatuses(t *testing.T) {
	ctx := context.Background()

	// Card closes on day 5 and is due on day 15 of the same month.
	t.Run("open_closes_after_closing_day", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestServices(t, db)
		card := testutil.CreateTestCard(t, db, testutil.NewOwnerID())
		invoice := testutil.CreateTestInvoice(t, db, card.ID, 3, 2026, models.InvoiceStatusOpen)

		// Still within the closing day: no transition.
		report, err := svc.billing.RollStatuses(ctx, time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC))
		testutil.AssertNoError(t, err)
		if report.Closed != 0 {
			t.Errorf("expected no closures, got %d", report.Closed)
		}

		report, err = svc.billing.RollStatuses(ctx, time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC))
		testutil.AssertNoError(t, err)
		if report.Closed != 1 {
			t.Errorf("expected 1 closure, got %d", report.Closed)
		}

		var got models.CreditCardInvoice
		testutil.AssertNoError(t, db.First(&got, "id = ?", invoice.ID).Error)
		if got.Status != models.InvoiceStatusClosed {
			t.Errorf("expected closed status, got %s", got.Status)
		}
	})

	t.Run("closed_goes_overdue_after_due_day", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestServices(t, db)
		card := testutil.CreateTestCard(t, db, testutil.NewOwnerID())
		invoice := testutil.CreateTestInvoice(t, db, card.ID, 3, 2026, models.InvoiceStatusClosed)

		report, err := svc.billing.RollStatuses(ctx, time.Date(2026, 3, 17, 0, 0, 0, 0, time.UTC))
		testutil.AssertNoError(t, err)
		if report.Overdue != 1 {
			t.Errorf("expected 1 overdue, got %d", report.Overdue)
		}

		var got models.CreditCardInvoice
		testutil.AssertNoError(t, db.First(&got, "id = ?", invoice.ID).Error)
		if got.Status != models.InvoiceStatusOverdue {
			t.Errorf("expected overdue status, got %s", got.Status)
		}
	})

	t.Run("partial_goes_overdue", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestServices(t, db)
		card := testutil.CreateTestCard(t, db, testutil.NewOwnerID())
		testutil.CreateTestInvoice(t, db, card.ID, 3, 2026, models.InvoiceStatusPartial)

		report, err := svc.billing.RollStatuses(ctx, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
		testutil.AssertNoError(t, err)
		if report.Overdue != 1 {
			t.Errorf("expected 1 overdue, got %d", report.Overdue)
		}
	})

	t.Run("open_skips_to_overdue_when_far_past", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestServices(t, db)
		card := testutil.CreateTestCard(t, db, testutil.NewOwnerID())
		invoice := testutil.CreateTestInvoice(t, db, card.ID, 1, 2026, models.InvoiceStatusOpen)

		_, err := svc.billing.RollStatuses(ctx, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
		testutil.AssertNoError(t, err)

		var got models.CreditCardInvoice
		testutil.AssertNoError(t, db.First(&got, "id = ?", invoice.ID).Error)
		if got.Status != models.InvoiceStatusOverdue {
			t.Errorf("expected overdue status, got %s", got.Status)
		}
	})

	t.Run("paid_invoices_never_roll", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestServices(t, db)
		card := testutil.CreateTestCard(t, db, testutil.NewOwnerID())
		invoice := testutil.CreateTestInvoice(t, db, card.ID, 1, 2026, models.InvoiceStatusPaid)

		report, err := svc.billing.RollStatuses(ctx, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
		testutil.AssertNoError(t, err)
		if report.Closed != 0 || report.Overdue != 0 {
			t.Errorf("expected no transitions, got %+v", report)
		}

		var got models.CreditCardInvoice
		testutil.AssertNoError(t, db.First(&got, "id = ?", invoice.ID).Error)
		if got.Status != models.InvoiceStatusPaid {
			t.Errorf("expected paid status preserved, got %s", got.Status)
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestServices(t, db)
		card := testutil.CreateTestCard(t, db, testutil.NewOwnerID())
		testutil.CreateTestInvoice(t, db, card.ID, 3, 2026, models.InvoiceStatusOpen)

		now := time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC)
		first, err := svc.billing.RollStatuses(ctx, now)
		testutil.AssertNoError(t, err)
		if first.Closed != 1 {
			t.Fatalf("expected 1 closure on the first roll, got %d", first.Closed)
		}

		second, err := svc.billing.RollStatuses(ctx, now)
		testutil.AssertNoError(t, err)
		if second.Closed != 0 || second.Overdue != 0 {
			t.Errorf("expected no transitions on the second roll, got %+v", second)
		}
	})

	t.Run("due_day_before_closing_day_pushes_to_next_month", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestServices(t, db)
		// Closes on the 25th, due on the 5th of the following month.
		card := testutil.CreateTestCardWithDays(t, db, testutil.NewOwnerID(), 25, 5)
		invoice := testutil.CreateTestInvoice(t, db, card.ID, 3, 2026, models.InvoiceStatusClosed)

		// Past the same-month due day but before next month's: not overdue.
		_, err := svc.billing.RollStatuses(ctx, time.Date(2026, 3, 28, 0, 0, 0, 0, time.UTC))
		testutil.AssertNoError(t, err)

		var got models.CreditCardInvoice
		testutil.AssertNoError(t, db.First(&got, "id = ?", invoice.ID).Error)
		if got.Status != models.InvoiceStatusClosed {
			t.Errorf("expected still closed, got %s", got.Status)
		}

		_, err = svc.billing.RollStatuses(ctx, time.Date(2026, 4, 7, 0, 0, 0, 0, time.UTC))
		testutil.AssertNoError(t, err)
		testutil.AssertNoError(t, db.First(&got, "id = ?", invoice.ID).Error)
		if got.Status != models.InvoiceStatusOverdue {
			t.Errorf("expected overdue, got %s", got.Status)
		}
	})

	t.Run("closing_day_clamps_to_short_month", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestServices(t, db)
		// Closing day 31 in February clamps to the 28th.
		card := testutil.CreateTestCardWithDays(t, db, testutil.NewOwnerID(), 31, 10)
		invoice := testutil.CreateTestInvoice(t, db, card.ID, 2, 2026, models.InvoiceStatusOpen)

		_, err := svc.billing.RollStatuses(ctx, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC))
		testutil.AssertNoError(t, err)

		var got models.CreditCardInvoice
		testutil.AssertNoError(t, db.First(&got, "id = ?", invoice.ID).Error)
		if got.Status != models.InvoiceStatusClosed {
			t.Errorf("expected closed after clamped closing day, got %s", got.Status)
		}
	})
}
