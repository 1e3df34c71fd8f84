package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	apperrors "moneta/internal/errors"
	"moneta/internal/logger"
	"moneta/internal/models"
)

// billingCycleService rolls calendar-driven invoice statuses. The contract:
// the caller supplies the current time; the card's closing day and due day
// decide the transitions. Payment transitions never happen here.
type billingCycleService struct {
	db *gorm.DB
}

// NewBillingCycleService creates a new BillingCycleServicer.
func NewBillingCycleService(db *gorm.DB) BillingCycleServicer {
	return &billingCycleService{db: db}
}

// RollStatuses closes every open invoice whose closing day has passed and
// marks closed or partially paid invoices overdue once past their due date.
// Idempotent: a second roll with the same clock changes nothing.
func (s *billingCycleService) RollStatuses(ctx context.Context, now time.Time) (*BillingCycleReport, error) {
	report := &BillingCycleReport{}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var invoices []models.CreditCardInvoice
		if err := tx.Preload("Card").
			Where("status IN ?", []models.InvoiceStatus{
				models.InvoiceStatusOpen,
				models.InvoiceStatusClosed,
				models.InvoiceStatusPartial,
			}).
			Find(&invoices).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrStorageFailure, err)
		}

		for i := range invoices {
			invoice := &invoices[i]
			next := nextInvoiceStatus(invoice, now)
			if next == invoice.Status {
				continue
			}

			if err := tx.Model(invoice).Update("status", next).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrStorageFailure, err)
			}

			switch next {
			case models.InvoiceStatusClosed:
				report.Closed++
			case models.InvoiceStatusOverdue:
				report.Overdue++
			}
			logger.Get().Infow("rolled invoice status",
				"invoice_id", invoice.ID,
				"card_id", invoice.CardID,
				"status", string(next),
			)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return report, nil
}

// nextInvoiceStatus computes the calendar transition for one invoice.
// The billing period closes at the end of the card's closing day within the
// invoice's (month, year); the due date is the card's due day in the same
// month, pushed to the next month when it does not fall after the closing
// day. Day values clamp to the month's length.
func nextInvoiceStatus(invoice *models.CreditCardInvoice, now time.Time) models.InvoiceStatus {
	month := time.Month(invoice.Month)
	closing := clampedDate(invoice.Year, month, invoice.Card.ClosingDay)

	due := clampedDate(invoice.Year, month, invoice.Card.DueDay)
	if !due.After(closing) {
		next := addMonths(closing, 1)
		due = clampedDate(next.Year(), next.Month(), invoice.Card.DueDay)
	}

	// Transitions fire strictly after the named calendar day ends.
	pastClosing := now.After(closing.AddDate(0, 0, 1))
	pastDue := now.After(due.AddDate(0, 0, 1))

	switch invoice.Status {
	case models.InvoiceStatusOpen:
		if pastDue {
			return models.InvoiceStatusOverdue
		}
		if pastClosing {
			return models.InvoiceStatusClosed
		}
	case models.InvoiceStatusClosed, models.InvoiceStatusPartial:
		if pastDue {
			return models.InvoiceStatusOverdue
		}
	}
	return invoice.Status
}
