package models

import "time"

// CreditCardTransaction is one installment of a card purchase. A purchase
// with N installments fans out into N rows, each bound to the invoice of
// its scheduled month. Siblings share ParentTransactionID (the first
// installment's id, including on the first installment itself) and are
// ordered by InstallmentNumber.
type CreditCardTransaction struct {
	Base
	CardID      string    `gorm:"type:uuid;not null;index" json:"card_id"`
	InvoiceID   string    `gorm:"type:uuid;not null;index" json:"invoice_id"`
	Amount      int64     `gorm:"type:bigint;not null" json:"amount"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Date        time.Time `gorm:"not null" json:"date"`

	InstallmentNumber   int    `gorm:"not null" json:"installment_number"`
	TotalInstallments   int    `gorm:"not null" json:"total_installments"`
	ParentTransactionID string `gorm:"type:uuid;not null;index" json:"parent_transaction_id"`

	// Relationships
	Card    CreditCard        `gorm:"foreignKey:CardID" json:"card"`
	Invoice CreditCardInvoice `gorm:"foreignKey:InvoiceID" json:"invoice"`
}
