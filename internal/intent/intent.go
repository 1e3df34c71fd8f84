// Package intent defines the structured transaction intent consumed from
// the assistant or the form layer. The shape is trusted, but referenced
// accounts and cards are still verified by the services that apply it.
package intent

import (
	"errors"
	"fmt"
	"time"

	validatorv10 "github.com/go-playground/validator/v10"

	apperrors "moneta/internal/errors"
	"moneta/internal/validator"
)

// TransactionIntent describes one requested ledger mutation.
// When Installments is set the intent is a credit card purchase and
// AccountID names the card; otherwise it names a bank account.
type TransactionIntent struct {
	Type                string    `json:"type" validate:"required,transaction_type"`
	Amount              int64     `json:"amount" validate:"required,gt=0"`
	Category            string    `json:"category"`
	Description         string    `json:"description"`
	AccountID           string    `json:"account_id" validate:"required,uuid"`
	Date                time.Time `json:"date"`
	Installments        *int      `json:"installments,omitempty" validate:"omitempty,min=1"`
	Recurrence          *string   `json:"recurrence,omitempty" validate:"omitempty,recurrence"`
	TransferToAccountID *string   `json:"transfer_to_account_id,omitempty" validate:"omitempty,uuid"`
}

// Validate checks the intent's shape before any mutation is attempted.
func (i *TransactionIntent) Validate() error {
	if err := validator.Get().Struct(i); err != nil {
		var fieldErrs validatorv10.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return apperrors.WithMessage(apperrors.ErrInvalidInput,
				fmt.Sprintf("invalid intent field %s (%s)", fe.Field(), fe.Tag()))
		}
		return apperrors.Wrap(apperrors.ErrInvalidInput, err)
	}

	if i.Type == "transfer" {
		if i.TransferToAccountID == nil {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "transfer intent requires transfer_to_account_id")
		}
		if *i.TransferToAccountID == i.AccountID {
			return apperrors.ErrSameAccountTransfer
		}
		if i.Installments != nil {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "transfers cannot be split into installments")
		}
	}

	if i.Installments != nil && i.Type != "expense" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "only expenses can be split into installments")
	}

	return nil
}
