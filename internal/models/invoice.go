package models

import "time"

// InvoiceStatus represents the lifecycle state of a credit card invoice.
// open->closed and closed/partial->overdue are calendar-driven and rolled
// by the billing cycle job; payment transitions are applied on demand.
type InvoiceStatus string

const (
	InvoiceStatusOpen    InvoiceStatus = "open"
	InvoiceStatusClosed  InvoiceStatus = "closed"
	InvoiceStatusPartial InvoiceStatus = "partial"
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusOverdue InvoiceStatus = "overdue"
)

// CreditCardInvoice aggregates a card's purchases for one billing period.
// TotalAmount is always the sum of the amounts of the card transactions
// currently assigned to the invoice. At most one invoice exists per
// (card, month, year).
type CreditCardInvoice struct {
	Base
	CardID      string        `gorm:"type:uuid;not null;uniqueIndex:idx_invoice_period" json:"card_id"`
	Month       int           `gorm:"not null;uniqueIndex:idx_invoice_period" json:"month"`
	Year        int           `gorm:"not null;uniqueIndex:idx_invoice_period" json:"year"`
	TotalAmount int64         `gorm:"type:bigint;not null;default:0" json:"total_amount"`
	PaidAmount  int64         `gorm:"type:bigint;not null;default:0" json:"paid_amount"`
	Status      InvoiceStatus `gorm:"not null;default:'open'" json:"status"`

	PaidAt           *time.Time `json:"paid_at,omitempty"`
	PaymentAccountID *string    `gorm:"type:uuid" json:"payment_account_id,omitempty"`

	// Relationships
	Card         CreditCard              `gorm:"foreignKey:CardID" json:"card"`
	Transactions []CreditCardTransaction `gorm:"foreignKey:InvoiceID" json:"transactions,omitempty"`
}
