package models

import "time"

// Transaction is an append-only journal entry recording why a wallet balance
// changed. Rows are never updated or deleted; there is no UpdatedAt and no
// soft delete on purpose.
type Transaction struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	UserID             uint      `gorm:"not null;index" json:"user_id"`
	Type               string    `gorm:"size:30;not null;index" json:"type"` // payment_sent, payment_received, refund, withdrawal
	AmountMinor        int64     `gorm:"not null" json:"amount_minor"`       // signed: positive = credit, negative = debit
	Currency           string    `gorm:"size:3;default:'NGN'" json:"currency"`
	Status             string    `gorm:"size:20;not null" json:"status"`
	BalanceBeforeMinor int64     `gorm:"not null" json:"balance_before_minor"`
	BalanceAfterMinor  int64     `gorm:"not null" json:"balance_after_minor"`
	PaymentID          *uint     `gorm:"index" json:"payment_id,omitempty"`
	WithdrawalID       *uint     `gorm:"index" json:"withdrawal_id,omitempty"`
	Description        string    `gorm:"size:255" json:"description"`
	CreatedAt          time.Time `json:"created_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}
