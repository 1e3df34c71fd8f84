package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	apperrors "moneta/internal/errors"
	"moneta/internal/logger"
	"moneta/internal/models"
	"moneta/internal/pagination"
)

// cardService handles credit cards and the invoice ledger.
type cardService struct {
	db           *gorm.DB
	transactions TransactionServicer
	audit        AuditServicer
}

// NewCardService creates a new CardServicer.
func NewCardService(db *gorm.DB, transactions TransactionServicer, audit AuditServicer) CardServicer {
	return &cardService{db: db, transactions: transactions, audit: audit}
}

// CreateCard creates a new credit card for an owner.
func (s *cardService) CreateCard(ctx context.Context, ownerID, name string, creditLimit int64, closingDay, dueDay int) (*models.CreditCard, error) {
	if ownerID == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "owner ID is required")
	}
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "card name is required")
	}
	if creditLimit < 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "credit limit cannot be negative")
	}
	if closingDay < 1 || closingDay > 31 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "closing day must be between 1 and 31")
	}
	if dueDay < 1 || dueDay > 31 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "due day must be between 1 and 31")
	}

	card := &models.CreditCard{
		OwnerID:     ownerID,
		Name:        name,
		CreditLimit: creditLimit,
		ClosingDay:  closingDay,
		DueDay:      dueDay,
	}

	if err := s.db.WithContext(ctx).Create(card).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorageFailure, err)
	}

	s.audit.Log(ownerID, "create", "credit_card", card.ID, map[string]any{"name": name})
	return card, nil
}

// GetCardByID retrieves a credit card by ID for a specific owner.
func (s *cardService) GetCardByID(ctx context.Context, ownerID, cardID string) (*models.CreditCard, error) {
	var card models.CreditCard
	if err := s.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", cardID, ownerID).
		First(&card).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCardNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrStorageFailure, err)
	}
	return &card, nil
}

// GetOwnerCards retrieves a paginated list of cards for an owner.
func (s *cardService) GetOwnerCards(ctx context.Context, ownerID string, page pagination.PageRequest) (*pagination.PageResponse[models.CreditCard], error) {
	page.Defaults()

	base := s.db.WithContext(ctx).Model(&models.CreditCard{}).Where("owner_id = ?", ownerID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorageFailure, err)
	}

	var cards []models.CreditCard
	if err := base.Scopes(pagination.Paginate(page)).Order("created_at").Find(&cards).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorageFailure, err)
	}

	result := pagination.NewPageResponse(cards, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetInvoiceByID retrieves an invoice by ID, checking that its card belongs
// to the owner.
func (s *cardService) GetInvoiceByID(ctx context.Context, ownerID, invoiceID string) (*models.CreditCardInvoice, error) {
	return s.getOwnedInvoice(s.db.WithContext(ctx), ownerID, invoiceID)
}

// GetCardInvoices retrieves a paginated list of a card's invoices, newest
// billing period first.
func (s *cardService) GetCardInvoices(ctx context.Context, ownerID, cardID string, page pagination.PageRequest) (*pagination.PageResponse[models.CreditCardInvoice], error) {
	if _, err := s.GetCardByID(ctx, ownerID, cardID); err != nil {
		return nil, err
	}

	page.Defaults()

	base := s.db.WithContext(ctx).Model(&models.CreditCardInvoice{}).Where("card_id = ?", cardID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorageFailure, err)
	}

	var invoices []models.CreditCardInvoice
	if err := base.Scopes(pagination.Paginate(page)).
		Order("year DESC, month DESC").
		Find(&invoices).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorageFailure, err)
	}

	result := pagination.NewPageResponse(invoices, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetOrCreateInvoice resolves the invoice for a (card, month, year) key,
// creating an empty open invoice when none exists. Idempotent by key.
func (s *cardService) GetOrCreateInvoice(ctx context.Context, ownerID, cardID string, month, year int) (*models.CreditCardInvoice, error) {
	var invoice *models.CreditCardInvoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		invoice, txErr = s.GetOrCreateInvoiceInTx(tx, ownerID, cardID, month, year)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

// GetOrCreateInvoiceInTx is GetOrCreateInvoice against the caller's open
// database transaction, for use inside installment fan-out.
func (s *cardService) GetOrCreateInvoiceInTx(tx *gorm.DB, ownerID, cardID string, month, year int) (*models.CreditCardInvoice, error) {
	if month < 1 || month > 12 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "month must be between 1 and 12")
	}

	var card models.CreditCard
	if err := tx.Where("id = ? AND owner_id = ?", cardID, ownerID).First(&card).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCardNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrStorageFailure, err)
	}

	var invoice models.CreditCardInvoice
	err := tx.Where("card_id = ? AND month = ? AND year = ?", cardID, month, year).First(&invoice).Error
	if err == nil {
		return &invoice, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Wrap(apperrors.ErrStorageFailure, err)
	}

	invoice = models.CreditCardInvoice{
		CardID: cardID,
		Month:  month,
		Year:   year,
		Status: models.InvoiceStatusOpen,
	}
	if createErr := tx.Create(&invoice).Error; createErr != nil {
		// A concurrent caller may have won the unique (card, month, year)
		// race; fall back to reading the row it created.
		var existing models.CreditCardInvoice
		if readErr := tx.Where("card_id = ? AND month = ? AND year = ?", cardID, month, year).First(&existing).Error; readErr == nil {
			return &existing, nil
		}
		return nil, apperrors.Wrap(apperrors.ErrStorageFailure, createErr)
	}
	return &invoice, nil
}

// AddPurchaseAmount increments an invoice's running total by a purchase
// (or installment) amount. Relative update, same reasoning as ApplyDelta.
func (s *cardService) AddPurchaseAmount(tx *gorm.DB, invoiceID string, amount int64) error {
	if amount <= 0 {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}

	res := tx.Model(&models.CreditCardInvoice{}).
		Where("id = ?", invoiceID).
		Update("total_amount", gorm.Expr("total_amount + ?", amount))
	if res.Error != nil {
		return apperrors.Wrap(apperrors.ErrStorageFailure, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrInvoiceNotFound
	}
	return nil
}

// RemovePurchaseAmount decrements an invoice's running total. The total is
// clamped to a floor of zero as a rounding safety net; the clamp firing
// means totals and rows disagree, so it is logged loudly.
func (s *cardService) RemovePurchaseAmount(tx *gorm.DB, invoiceID string, amount int64) error {
	if amount <= 0 {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}

	res := tx.Model(&models.CreditCardInvoice{}).
		Where("id = ?", invoiceID).
		Update("total_amount", gorm.Expr("total_amount - ?", amount))
	if res.Error != nil {
		return apperrors.Wrap(apperrors.ErrStorageFailure, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrInvoiceNotFound
	}

	clamp := tx.Model(&models.CreditCardInvoice{}).
		Where("id = ? AND total_amount < 0", invoiceID).
		Update("total_amount", 0)
	if clamp.Error != nil {
		return apperrors.Wrap(apperrors.ErrStorageFailure, clamp.Error)
	}
	if clamp.RowsAffected > 0 {
		logger.Get().Warnw("clamped invoice total below zero",
			"invoice_id", invoiceID,
			"removed_amount", amount,
		)
	}
	return nil
}

// PayInvoice settles an invoice in full: the invoice transitions to paid and
// an expense transaction for the payment amount is recorded on the paying
// account, all in one atomic unit.
func (s *cardService) PayInvoice(ctx context.Context, ownerID, invoiceID, accountID string, amount int64) (*models.CreditCardInvoice, error) {
	if amount <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}

	var paid models.CreditCardInvoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.getOwnedInvoice(tx, ownerID, invoiceID)
		if err != nil {
			return err
		}
		if invoice.Status == models.InvoiceStatusPaid {
			return apperrors.ErrInvoiceAlreadyPaid
		}

		outstanding := invoice.TotalAmount - invoice.PaidAmount
		if amount > outstanding {
			// Overpayment is accepted and recorded as-is.
			logger.Get().Warnw("invoice overpayment",
				"invoice_id", invoiceID,
				"outstanding", outstanding,
				"amount", amount,
			)
		}

		now := time.Now()
		invoice.Status = models.InvoiceStatusPaid
		invoice.PaidAmount = amount
		invoice.PaidAt = &now
		invoice.PaymentAccountID = &accountID
		if err := tx.Save(invoice).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrStorageFailure, err)
		}

		if _, err := s.transactions.CreateTransactionInTx(tx, ownerID, CreateTransactionInput{
			AccountID:   accountID,
			Type:        models.TransactionTypeExpense,
			Amount:      amount,
			Category:    "credit_card",
			Description: fmt.Sprintf("Payment of invoice %02d/%d", invoice.Month, invoice.Year),
			Date:        now,
		}); err != nil {
			return err
		}

		paid = *invoice
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Log(ownerID, "pay", "invoice", invoiceID, map[string]any{"amount": amount, "account_id": accountID})
	return &paid, nil
}

// PartialPayInvoice applies a partial payment: paid_amount accumulates, the
// status becomes partial, or paid once the accumulated payments cover the
// total. paid_at is set only on the transition to paid.
func (s *cardService) PartialPayInvoice(ctx context.Context, ownerID, invoiceID, accountID string, amount int64) (*models.CreditCardInvoice, error) {
	if amount <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}

	var paid models.CreditCardInvoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.getOwnedInvoice(tx, ownerID, invoiceID)
		if err != nil {
			return err
		}
		if invoice.Status == models.InvoiceStatusPaid {
			return apperrors.ErrInvoiceAlreadyPaid
		}

		now := time.Now()
		newPaid := invoice.PaidAmount + amount
		invoice.PaidAmount = newPaid
		invoice.Status = models.InvoiceStatusPartial
		invoice.PaymentAccountID = &accountID
		if newPaid >= invoice.TotalAmount {
			invoice.Status = models.InvoiceStatusPaid
			invoice.PaidAt = &now
			if newPaid > invoice.TotalAmount {
				logger.Get().Warnw("invoice overpayment",
					"invoice_id", invoiceID,
					"total_amount", invoice.TotalAmount,
					"paid_amount", newPaid,
				)
			}
		}
		if err := tx.Save(invoice).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrStorageFailure, err)
		}

		if _, err := s.transactions.CreateTransactionInTx(tx, ownerID, CreateTransactionInput{
			AccountID:   accountID,
			Type:        models.TransactionTypeExpense,
			Amount:      amount,
			Category:    "credit_card",
			Description: fmt.Sprintf("Partial payment of invoice %02d/%d", invoice.Month, invoice.Year),
			Date:        now,
		}); err != nil {
			return err
		}

		paid = *invoice
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Log(ownerID, "pay_partial", "invoice", invoiceID, map[string]any{"amount": amount, "account_id": accountID})
	return &paid, nil
}

// getOwnedInvoice loads an invoice and verifies its card belongs to the
// owner. Ownership misses report INVOICE_NOT_FOUND rather than leaking
// that the invoice exists.
func (s *cardService) getOwnedInvoice(tx *gorm.DB, ownerID, invoiceID string) (*models.CreditCardInvoice, error) {
	var invoice models.CreditCardInvoice
	if err := tx.Where("id = ?", invoiceID).First(&invoice).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvoiceNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrStorageFailure, err)
	}

	var card models.CreditCard
	if err := tx.Where("id = ? AND owner_id = ?", invoice.CardID, ownerID).First(&card).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvoiceNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrStorageFailure, err)
	}

	return &invoice, nil
}
