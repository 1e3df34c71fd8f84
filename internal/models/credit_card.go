package models

// CreditCard represents a credit card whose purchases are billed
// through monthly invoices.
type CreditCard struct {
	Base
	OwnerID     string `gorm:"type:uuid;not null;index" json:"owner_id"`
	Name        string `gorm:"not null" json:"name"`
	CreditLimit int64  `gorm:"type:bigint;not null" json:"credit_limit"`
	ClosingDay  int    `gorm:"not null" json:"closing_day"`
	DueDay      int    `gorm:"not null" json:"due_day"`

	// Relationships
	Invoices []CreditCardInvoice `gorm:"foreignKey:CardID" json:"invoices,omitempty"`
}
