package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "moneta/internal/errors"
	"moneta/internal/models"
	"moneta/internal/pagination"
)

// transactionService keeps account balances synchronized with the
// transaction lifecycle: create applies a signed delta, update reverses
// the old effect before applying the new one, delete reverses it.
type transactionService struct {
	db       *gorm.DB
	accounts AccountServicer
	audit    AuditServicer
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB, accounts AccountServicer, audit AuditServicer) TransactionServicer {
	return &transactionService{db: db, accounts: accounts, audit: audit}
}

// CreateTransaction validates, persists, and applies a new transaction
// as one atomic unit.
func (s *transactionService) CreateTransaction(ctx context.Context, ownerID string, in CreateTransactionInput) (*models.Transaction, error) {
	var result *models.Transaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		result, txErr = s.CreateTransactionInTx(tx, ownerID, in)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	s.audit.Log(ownerID, "create", "transaction", result.ID, map[string]any{"type": string(result.Type), "amount": result.Amount})
	return result, nil
}

// CreateTransactionInTx records a transaction against the caller's open
// database transaction. Used by invoice payment and installment prepayment,
// which must persist the expense in the same atomic unit.
func (s *transactionService) CreateTransactionInTx(tx *gorm.DB, ownerID string, in CreateTransactionInput) (*models.Transaction, error) {
	if err := validateTransactionInput(in); err != nil {
		return nil, err
	}
	if in.Date.IsZero() {
		in.Date = time.Now()
	}

	transaction := &models.Transaction{
		OwnerID:     ownerID,
		AccountID:   in.AccountID,
		Type:        in.Type,
		Amount:      in.Amount,
		Category:    in.Category,
		Description: in.Description,
		Date:        in.Date,
		ToAccountID: in.ToAccountID,
	}

	if err := tx.Create(transaction).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorageFailure, err)
	}

	if err := s.applyEffect(tx, ownerID, transaction, false); err != nil {
		return nil, err
	}

	return transaction, nil
}

// GetTransactionByID retrieves a transaction by ID for a specific owner.
func (s *transactionService) GetTransactionByID(ctx context.Context, ownerID, transactionID string) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := s.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", transactionID, ownerID).
		First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrStorageFailure, err)
	}
	return &transaction, nil
}

// GetAccountTransactions retrieves a paginated, filtered list of transactions
// for a specific account.
func (s *transactionService) GetAccountTransactions(ctx context.Context, ownerID, accountID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	if _, err := s.accounts.GetAccountByID(ctx, ownerID, accountID); err != nil {
		return nil, err
	}

	page.Defaults()

	base := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("owner_id = ? AND account_id = ?", ownerID, accountID)
	base = applyTransactionFilters(base, filter)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorageFailure, err)
	}

	var transactions []models.Transaction
	if err := base.Scopes(pagination.Paginate(page)).
		Order("date DESC").
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorageFailure, err)
	}

	result := pagination.NewPageResponse(transactions, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// UpdateTransaction reverses the old version's balance effect, persists the
// merged state, and applies the new effect, all in one atomic unit. oldTx is
// the version the caller last read; if the stored row has moved on since
// (or was deleted concurrently), the update fails with CONFLICT.
func (s *transactionService) UpdateTransaction(ctx context.Context, ownerID string, oldTx *models.Transaction, fields TransactionUpdateFields) (*models.Transaction, error) {
	if oldTx == nil || oldTx.ID == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "previous transaction version is required")
	}

	if fields.Type != nil {
		wasTransfer := oldTx.Type == models.TransactionTypeTransfer
		willBeTransfer := *fields.Type == models.TransactionTypeTransfer
		if wasTransfer != willBeTransfer {
			return nil, apperrors.ErrInvalidTypeChange
		}
	}

	var updated models.Transaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.Transaction
		if err := tx.Where("id = ? AND owner_id = ?", oldTx.ID, ownerID).First(&current).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// Raced with a delete of the same transaction.
				return apperrors.ErrConflict
			}
			return apperrors.Wrap(apperrors.ErrStorageFailure, err)
		}
		if !current.UpdatedAt.Equal(oldTx.UpdatedAt) {
			return apperrors.ErrConflict
		}

		merged := mergeTransactionFields(current, fields)
		if err := validateTransactionInput(CreateTransactionInput{
			AccountID:   merged.AccountID,
			Type:        merged.Type,
			Amount:      merged.Amount,
			ToAccountID: merged.ToAccountID,
		}); err != nil {
			return err
		}

		// Reverse the stored version's effect, then apply the merged one.
		// If the account reference changed, the reversal lands on the old
		// account and the new delta on the new account.
		if err := s.applyEffect(tx, ownerID, &current, true); err != nil {
			return err
		}

		if err := tx.Save(&merged).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrStorageFailure, err)
		}

		if err := s.applyEffect(tx, ownerID, &merged, false); err != nil {
			return err
		}

		updated = merged
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Log(ownerID, "update", "transaction", updated.ID, map[string]any{"type": string(updated.Type), "amount": updated.Amount})
	return &updated, nil
}

// DeleteTransaction reverses a transaction's balance effect and removes the
// row. oldTx is the version the caller last read; a stale version fails with
// CONFLICT, an already-deleted row with TRANSACTION_NOT_FOUND.
func (s *transactionService) DeleteTransaction(ctx context.Context, ownerID string, oldTx *models.Transaction) error {
	if oldTx == nil || oldTx.ID == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "previous transaction version is required")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.Transaction
		if err := tx.Where("id = ? AND owner_id = ?", oldTx.ID, ownerID).First(&current).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrTransactionNotFound
			}
			return apperrors.Wrap(apperrors.ErrStorageFailure, err)
		}
		if !current.UpdatedAt.Equal(oldTx.UpdatedAt) {
			return apperrors.ErrConflict
		}

		if err := s.applyEffect(tx, ownerID, &current, true); err != nil {
			return err
		}

		if err := tx.Delete(&current).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrStorageFailure, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.audit.Log(ownerID, "delete", "transaction", oldTx.ID, nil)
	return nil
}

// applyEffect applies (or reverses) a transaction's balance effect.
// Income: +amount. Expense: -amount. Transfer: -amount on the source and
// +amount on the destination. Reversal is the algebraic inverse.
func (s *transactionService) applyEffect(tx *gorm.DB, ownerID string, t *models.Transaction, reverse bool) error {
	if t.Type == models.TransactionTypeTransfer {
		if t.ToAccountID == nil {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "transfer is missing a destination account")
		}
		if reverse {
			return s.accounts.ApplyTransfer(tx, ownerID, *t.ToAccountID, t.AccountID, t.Amount)
		}
		return s.accounts.ApplyTransfer(tx, ownerID, t.AccountID, *t.ToAccountID, t.Amount)
	}

	delta := t.SignedAmount()
	if reverse {
		delta = -delta
	}
	return s.accounts.ApplyDelta(tx, ownerID, t.AccountID, delta)
}

func validateTransactionInput(in CreateTransactionInput) error {
	if in.Amount <= 0 {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if in.AccountID == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "account ID is required")
	}

	switch in.Type {
	case models.TransactionTypeIncome, models.TransactionTypeExpense:
		return nil
	case models.TransactionTypeTransfer:
		if in.ToAccountID == nil || *in.ToAccountID == "" {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "transfer requires a destination account")
		}
		if *in.ToAccountID == in.AccountID {
			return apperrors.ErrSameAccountTransfer
		}
		return nil
	default:
		return apperrors.ErrInvalidTransactionType
	}
}

func mergeTransactionFields(current models.Transaction, fields TransactionUpdateFields) models.Transaction {
	if fields.AccountID != nil {
		current.AccountID = *fields.AccountID
	}
	if fields.Type != nil {
		current.Type = *fields.Type
	}
	if fields.Amount != nil {
		current.Amount = *fields.Amount
	}
	if fields.Category != nil {
		current.Category = *fields.Category
	}
	if fields.Description != nil {
		current.Description = *fields.Description
	}
	if fields.Date != nil {
		current.Date = *fields.Date
	}
	if fields.ToAccountID != nil {
		current.ToAccountID = fields.ToAccountID
	}
	return current
}

func applyTransactionFilters(q *gorm.DB, f TransactionFilter) *gorm.DB {
	if f.FromDate != nil {
		q = q.Where("date >= ?", *f.FromDate)
	}
	if f.ToDate != nil {
		q = q.Where("date <= ?", *f.ToDate)
	}
	if f.Type != nil {
		q = q.Where("type = ?", *f.Type)
	}
	if f.Category != nil {
		q = q.Where("category = ?", *f.Category)
	}
	if f.MinAmount != nil {
		q = q.Where("amount >= ?", *f.MinAmount)
	}
	if f.MaxAmount != nil {
		q = q.Where("amount <= ?", *f.MaxAmount)
	}
	return q
}
