package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	apperrors "moneta/internal/errors"
	"moneta/internal/models"
	"moneta/internal/pagination"
	"moneta/internal/uuid"
)

// installmentService fans card purchases out into dated installments and
// keeps invoice totals consistent when installments are removed or prepaid.
type installmentService struct {
	db           *gorm.DB
	cards        CardServicer
	transactions TransactionServicer
	audit        AuditServicer
}

// NewInstallmentService creates a new InstallmentServicer.
func NewInstallmentService(db *gorm.DB, cards CardServicer, transactions TransactionServicer, audit AuditServicer) InstallmentServicer {
	return &installmentService{db: db, cards: cards, transactions: transactions, audit: audit}
}

// CreatePurchase records a card purchase as N installment rows, one per
// month starting at the purchase date, each bound to the invoice of its
// scheduled month. The amount splits evenly in minor units; the remainder
// cents are absorbed into the last installment.
func (s *installmentService) CreatePurchase(ctx context.Context, ownerID, cardID string, in PurchaseInput) ([]models.CreditCardTransaction, error) {
	if in.Amount <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if in.Installments < 1 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "installment count must be at least 1")
	}
	if in.Date.IsZero() {
		in.Date = time.Now()
	}

	n := in.Installments
	perInstallment := in.Amount / int64(n)
	remainder := in.Amount % int64(n)

	// The first installment's id doubles as the purchase id: every sibling
	// (the first included) carries it as ParentTransactionID.
	firstID := uuid.New()

	rows := make([]models.CreditCardTransaction, 0, n)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := 0; i < n; i++ {
			due := addMonths(in.Date, i)
			invoice, err := s.cards.GetOrCreateInvoiceInTx(tx, ownerID, cardID, int(due.Month()), due.Year())
			if err != nil {
				return err
			}

			amount := perInstallment
			if i == n-1 {
				amount += remainder
			}

			id := firstID
			if i > 0 {
				id = uuid.New()
			}

			row := models.CreditCardTransaction{
				Base:                models.Base{ID: id},
				CardID:              cardID,
				InvoiceID:           invoice.ID,
				Amount:              amount,
				Category:            in.Category,
				Description:         in.Description,
				Date:                due,
				InstallmentNumber:   i + 1,
				TotalInstallments:   n,
				ParentTransactionID: firstID,
			}
			if err := tx.Create(&row).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrStorageFailure, err)
			}

			if err := s.cards.AddPurchaseAmount(tx, invoice.ID, amount); err != nil {
				return err
			}

			rows = append(rows, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Log(ownerID, "create", "card_purchase", firstID, map[string]any{"amount": in.Amount, "installments": n})
	return rows, nil
}

// GetCardTransactionByID retrieves one installment, checking card ownership.
func (s *installmentService) GetCardTransactionByID(ctx context.Context, ownerID, cardTransactionID string) (*models.CreditCardTransaction, error) {
	return s.getOwnedCardTransaction(s.db.WithContext(ctx), ownerID, cardTransactionID)
}

// GetInvoiceTransactions retrieves a paginated list of the installments
// assigned to an invoice, ordered by date.
func (s *installmentService) GetInvoiceTransactions(ctx context.Context, ownerID, invoiceID string, page pagination.PageRequest) (*pagination.PageResponse[models.CreditCardTransaction], error) {
	if _, err := s.cards.GetInvoiceByID(ctx, ownerID, invoiceID); err != nil {
		return nil, err
	}

	page.Defaults()

	base := s.db.WithContext(ctx).Model(&models.CreditCardTransaction{}).Where("invoice_id = ?", invoiceID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorageFailure, err)
	}

	var rows []models.CreditCardTransaction
	if err := base.Scopes(pagination.Paginate(page)).Order("date").Find(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorageFailure, err)
	}

	result := pagination.NewPageResponse(rows, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// DeleteCardTransaction removes a single installment and reverses its
// contribution to its invoice. Sibling installments are untouched.
func (s *installmentService) DeleteCardTransaction(ctx context.Context, ownerID, cardTransactionID string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := s.getOwnedCardTransaction(tx, ownerID, cardTransactionID)
		if err != nil {
			return err
		}

		if err := s.cards.RemovePurchaseAmount(tx, row.InvoiceID, row.Amount); err != nil {
			return err
		}

		if err := tx.Delete(row).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrStorageFailure, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.audit.Log(ownerID, "delete", "card_transaction", cardTransactionID, nil)
	return nil
}

// Prepay settles up to installmentsToPay future installments of the same
// purchase: each is removed from its invoice, and one expense transaction
// for their combined amount is recorded on the paying account today.
// Fewer remaining installments than requested is not an error; the count
// caps at what exists.
func (s *installmentService) Prepay(ctx context.Context, ownerID, cardTransactionID, accountID string, installmentsToPay int) (*PrepayResult, error) {
	if installmentsToPay < 1 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "installments to pay must be at least 1")
	}

	result := &PrepayResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		target, err := s.getOwnedCardTransaction(tx, ownerID, cardTransactionID)
		if err != nil {
			return err
		}

		var future []models.CreditCardTransaction
		if err := tx.Where("parent_transaction_id = ? AND installment_number > ?",
			target.ParentTransactionID, target.InstallmentNumber).
			Order("installment_number ASC").
			Limit(installmentsToPay).
			Find(&future).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrStorageFailure, err)
		}

		if len(future) == 0 {
			// Nothing left to collapse; valid and terminal.
			return nil
		}

		var amountToPay int64
		for i := range future {
			if err := s.cards.RemovePurchaseAmount(tx, future[i].InvoiceID, future[i].Amount); err != nil {
				return err
			}
			if err := tx.Delete(&future[i]).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrStorageFailure, err)
			}
			amountToPay += future[i].Amount
		}

		payment, err := s.transactions.CreateTransactionInTx(tx, ownerID, CreateTransactionInput{
			AccountID:   accountID,
			Type:        models.TransactionTypeExpense,
			Amount:      amountToPay,
			Category:    target.Category,
			Description: fmt.Sprintf("Prepayment of %d installment(s): %s", len(future), target.Description),
			Date:        time.Now(),
		})
		if err != nil {
			return err
		}

		result.InstallmentsPaid = len(future)
		result.AmountPaid = amountToPay
		result.Payment = payment
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.InstallmentsPaid > 0 {
		s.audit.Log(ownerID, "prepay", "card_transaction", cardTransactionID, map[string]any{
			"installments_paid": result.InstallmentsPaid,
			"amount_paid":       result.AmountPaid,
		})
	}
	return result, nil
}

// getOwnedCardTransaction loads an installment and verifies its card belongs
// to the owner.
func (s *installmentService) getOwnedCardTransaction(tx *gorm.DB, ownerID, cardTransactionID string) (*models.CreditCardTransaction, error) {
	var row models.CreditCardTransaction
	if err := tx.Where("id = ?", cardTransactionID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCardTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrStorageFailure, err)
	}

	var card models.CreditCard
	if err := tx.Where("id = ? AND owner_id = ?", row.CardID, ownerID).First(&card).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCardTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrStorageFailure, err)
	}

	return &row, nil
}
