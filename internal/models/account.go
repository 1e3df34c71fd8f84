package models

// Account represents a bank account whose balance is maintained
// incrementally: every transaction mutation applies a signed delta,
// and the stored balance is never recomputed in the happy path.
// Reconciliation against transaction history is a separate repair path.
type Account struct {
	Base
	OwnerID      string `gorm:"type:uuid;not null;index" json:"owner_id"`
	Name         string `gorm:"not null" json:"name"`
	Balance      int64  `gorm:"type:bigint;not null;default:0" json:"balance"`
	IsInvestment bool   `gorm:"default:false" json:"is_investment"`
	IsActive     bool   `gorm:"default:true" json:"is_active"`

	// Relationships
	Transactions []Transaction `gorm:"foreignKey:AccountID" json:"transactions,omitempty"`
}
