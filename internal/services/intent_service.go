package services

import (
	"context"

	"moneta/internal/intent"
	"moneta/internal/models"
)

// intentService turns validated transaction intents into engine calls.
// The intent shape is trusted (it comes from the assistant or the form
// layer), but every referenced account or card is still verified by the
// service that applies it.
type intentService struct {
	transactions TransactionServicer
	installments InstallmentServicer
}

// NewIntentService creates a new IntentServicer.
func NewIntentService(transactions TransactionServicer, installments InstallmentServicer) IntentServicer {
	return &intentService{transactions: transactions, installments: installments}
}

// Apply validates the intent and routes it: intents with an installment
// count are card purchases (account_id names the card), everything else is
// a plain transaction or transfer. Recurrence scheduling belongs to the
// reminder module; the engine records only the first occurrence.
func (s *intentService) Apply(ctx context.Context, ownerID string, in intent.TransactionIntent) (*IntentResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	if in.Installments != nil {
		rows, err := s.installments.CreatePurchase(ctx, ownerID, in.AccountID, PurchaseInput{
			Amount:       in.Amount,
			Installments: *in.Installments,
			Category:     in.Category,
			Description:  in.Description,
			Date:         in.Date,
		})
		if err != nil {
			return nil, err
		}
		return &IntentResult{Installments: rows}, nil
	}

	transaction, err := s.transactions.CreateTransaction(ctx, ownerID, CreateTransactionInput{
		AccountID:   in.AccountID,
		Type:        models.TransactionType(in.Type),
		Amount:      in.Amount,
		Category:    in.Category,
		Description: in.Description,
		Date:        in.Date,
		ToAccountID: in.TransferToAccountID,
	})
	if err != nil {
		return nil, err
	}
	return &IntentResult{Transaction: transaction}, nil
}
