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

// accountService handles account management and balance bookkeeping.
type accountService struct {
	db    *gorm.DB
	audit AuditServicer
}

// NewAccountService creates a new AccountServicer.
func NewAccountService(db *gorm.DB, audit AuditServicer) AccountServicer {
	return &accountService{db: db, audit: audit}
}

// CreateAccount creates a new account for an owner. A non-zero opening
// balance is recorded as an income or expense transaction so the balance
// invariant (stored balance == sum of live signed deltas) holds from the start.
func (s *accountService) CreateAccount(ctx context.Context, ownerID, name string, isInvestment bool, openingBalance int64) (*models.Account, error) {
	if ownerID == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "owner ID is required")
	}
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "account name is required")
	}

	account := &models.Account{
		OwnerID:      ownerID,
		Name:         name,
		Balance:      openingBalance,
		IsInvestment: isInvestment,
		IsActive:     true,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(account).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrStorageFailure, err)
		}

		if openingBalance != 0 {
			txType := models.TransactionTypeIncome
			amount := openingBalance
			if openingBalance < 0 {
				txType = models.TransactionTypeExpense
				amount = -openingBalance
			}
			opening := &models.Transaction{
				OwnerID:     ownerID,
				AccountID:   account.ID,
				Type:        txType,
				Amount:      amount,
				Description: "Opening balance",
				Date:        time.Now(),
			}
			if err := tx.Create(opening).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrStorageFailure, err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Log(ownerID, "create", "account", account.ID, map[string]any{"name": name, "opening_balance": openingBalance})
	return account, nil
}

// GetAccountByID retrieves an active account by ID for a specific owner.
func (s *accountService) GetAccountByID(ctx context.Context, ownerID, accountID string) (*models.Account, error) {
	var account models.Account
	if err := s.db.WithContext(ctx).
		Where("id = ? AND owner_id = ? AND is_active = ?", accountID, ownerID, true).
		First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrStorageFailure, err)
	}
	return &account, nil
}

// GetOwnerAccounts retrieves a paginated list of active accounts for an owner.
func (s *accountService) GetOwnerAccounts(ctx context.Context, ownerID string, page pagination.PageRequest) (*pagination.PageResponse[models.Account], error) {
	page.Defaults()

	base := s.db.WithContext(ctx).Model(&models.Account{}).Where("owner_id = ? AND is_active = ?", ownerID, true)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorageFailure, err)
	}

	var accounts []models.Account
	if err := base.Scopes(pagination.Paginate(page)).Order("created_at").Find(&accounts).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorageFailure, err)
	}

	result := pagination.NewPageResponse(accounts, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// DeactivateAccount hides an account from the active set. Its transactions
// and balance are kept.
func (s *accountService) DeactivateAccount(ctx context.Context, ownerID, accountID string) error {
	res := s.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ? AND owner_id = ? AND is_active = ?", accountID, ownerID, true).
		Update("is_active", false)
	if res.Error != nil {
		return apperrors.Wrap(apperrors.ErrStorageFailure, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrAccountNotFound
	}

	s.audit.Log(ownerID, "deactivate", "account", accountID, nil)
	return nil
}

// ApplyDelta adds a signed amount to an account's stored balance. The update
// is relative (balance = balance + delta) so concurrent mutations of the same
// account serialize on the row and cannot lose increments. Overdraft is
// allowed: the resulting balance may go negative.
func (s *accountService) ApplyDelta(tx *gorm.DB, ownerID, accountID string, delta int64) error {
	res := tx.Model(&models.Account{}).
		Where("id = ? AND owner_id = ? AND is_active = ?", accountID, ownerID, true).
		Update("balance", gorm.Expr("balance + ?", delta))
	if res.Error != nil {
		return apperrors.Wrap(apperrors.ErrStorageFailure, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrAccountNotFound
	}
	return nil
}

// ApplyTransfer moves an amount between two accounts: -amount on the source,
// +amount on the destination. Both sides run against the caller's open
// transaction, so either both apply or neither does.
func (s *accountService) ApplyTransfer(tx *gorm.DB, ownerID, fromAccountID, toAccountID string, amount int64) error {
	if fromAccountID == toAccountID {
		return apperrors.ErrSameAccountTransfer
	}
	if err := s.ApplyDelta(tx, ownerID, fromAccountID, -amount); err != nil {
		return err
	}
	return s.ApplyDelta(tx, ownerID, toAccountID, amount)
}

// Reconcile recomputes an account's balance from its live transactions and
// compares it with the stored balance. With repair=false a mismatch is
// reported as DRIFT_DETECTED; with repair=true the stored balance is
// corrected to the computed value.
func (s *accountService) Reconcile(ctx context.Context, ownerID, accountID string, repair bool) (*ReconcileReport, error) {
	report := &ReconcileReport{AccountID: accountID}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var account models.Account
		if err := tx.Where("id = ? AND owner_id = ?", accountID, ownerID).First(&account).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrAccountNotFound
			}
			return apperrors.Wrap(apperrors.ErrStorageFailure, err)
		}

		computed, err := computeBalance(tx, accountID)
		if err != nil {
			return err
		}

		report.StoredBalance = account.Balance
		report.ComputedBalance = computed
		report.Drift = account.Balance - computed

		if report.Drift == 0 {
			return nil
		}

		if !repair {
			return apperrors.WithMessage(apperrors.ErrDriftDetected,
				fmt.Sprintf("account %s stored balance %d does not match computed balance %d", accountID, account.Balance, computed))
		}

		// Conditional on the balance we just read: if a concurrent mutation
		// moved it, the repair would overwrite a legitimate delta.
		res := tx.Model(&models.Account{}).
			Where("id = ? AND balance = ?", accountID, account.Balance).
			Update("balance", computed)
		if res.Error != nil {
			return apperrors.Wrap(apperrors.ErrStorageFailure, res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrConflict
		}

		report.Repaired = true
		logger.Get().Warnw("repaired account balance drift",
			"account_id", accountID,
			"stored_balance", account.Balance,
			"computed_balance", computed,
			"drift", report.Drift,
		)
		return nil
	})
	if err != nil {
		return report, err
	}

	if report.Repaired {
		s.audit.Log(ownerID, "reconcile", "account", accountID, map[string]any{
			"stored_balance":   report.StoredBalance,
			"computed_balance": report.ComputedBalance,
		})
	}
	return report, nil
}

// ReconcileAll reconciles every active account. Per-account failures are
// logged and skipped so one bad account does not stall the sweep.
func (s *accountService) ReconcileAll(ctx context.Context, repair bool) ([]ReconcileReport, error) {
	var accounts []models.Account
	if err := s.db.WithContext(ctx).
		Select("id", "owner_id").
		Where("is_active = ?", true).
		Find(&accounts).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorageFailure, err)
	}

	reports := make([]ReconcileReport, 0, len(accounts))
	for i := range accounts {
		if ctx.Err() != nil {
			return reports, apperrors.Wrap(apperrors.ErrStorageFailure, ctx.Err())
		}
		report, err := s.Reconcile(ctx, accounts[i].OwnerID, accounts[i].ID, repair)
		if err != nil {
			var appErr *apperrors.AppError
			if errors.As(err, &appErr) && appErr.Code == apperrors.ErrDriftDetected.Code {
				// Drift on a non-repair sweep is a finding, not a failure.
				reports = append(reports, *report)
				continue
			}
			logger.Get().Errorw("failed to reconcile account", "account_id", accounts[i].ID, "error", err)
			continue
		}
		reports = append(reports, *report)
	}
	return reports, nil
}

// computeBalance sums the signed effect of all live transactions touching
// the account: income adds, expense subtracts, transfers subtract on the
// source side and add on the destination side.
func computeBalance(tx *gorm.DB, accountID string) (int64, error) {
	var out struct{ Total int64 }
	if err := tx.Model(&models.Transaction{}).
		Select("COALESCE(SUM(CASE type WHEN 'expense' THEN -amount WHEN 'transfer' THEN -amount ELSE amount END), 0) AS total").
		Where("account_id = ?", accountID).
		Scan(&out).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrStorageFailure, err)
	}
	total := out.Total

	var in struct{ Total int64 }
	if err := tx.Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("to_account_id = ? AND type = ?", accountID, models.TransactionTypeTransfer).
		Scan(&in).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrStorageFailure, err)
	}
	return total + in.Total, nil
}
