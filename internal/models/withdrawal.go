package models

import (
	"time"

	"gorm.io/gorm"
)

// Withdrawal is a payout request against a wallet. The gross amount is
// reserved from the wallet at request time, not at completion.
type Withdrawal struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	UserID             uint           `gorm:"not null;index" json:"user_id"`
	Reference          string         `gorm:"size:64;uniqueIndex;not null" json:"reference"`
	AmountMinor        int64          `gorm:"not null" json:"amount_minor"`
	ProcessingFeeMinor int64          `gorm:"not null" json:"processing_fee_minor"`
	NetAmountMinor     int64          `gorm:"not null" json:"net_amount_minor"`
	Currency           string         `gorm:"size:3;default:'NGN'" json:"currency"`
	BankDetails        BankDetails    `gorm:"embedded;embeddedPrefix:bank_" json:"bank_details"`
	Status             string         `gorm:"size:20;not null;index" json:"status"` // pending, processing, completed, failed
	GatewayRef         string         `gorm:"size:128" json:"gateway_ref"`
	FailureReason      string         `gorm:"size:255" json:"failure_reason,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	CompletedAt        *time.Time     `json:"completed_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Withdrawal) TableName() string {
	return "withdrawals"
}
