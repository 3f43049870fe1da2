package models

import (
	"time"

	"gorm.io/gorm"
)

// BankDetails is the saved payout destination for a wallet or a withdrawal.
type BankDetails struct {
	AccountName   string `gorm:"size:128" json:"account_name"`
	AccountNumber string `gorm:"size:32" json:"account_number"`
	BankName      string `gorm:"size:128" json:"bank_name"`
	BankCode      string `gorm:"size:16" json:"bank_code"`
}

// Wallet is the per-user balance aggregate. BalanceMinor includes funds still
// held in escrow; the available balance is always derived, never stored.
type Wallet struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	UserID             uint           `gorm:"uniqueIndex;not null" json:"user_id"`
	BalanceMinor       int64          `gorm:"not null;default:0" json:"balance_minor"`
	EscrowMinor        int64          `gorm:"not null;default:0" json:"escrow_minor"`
	TotalEarningsMinor int64          `gorm:"not null;default:0" json:"total_earnings_minor"`
	TotalSpentMinor    int64          `gorm:"not null;default:0" json:"total_spent_minor"`
	Currency           string         `gorm:"size:3;default:'NGN'" json:"currency"`
	BankDetails        BankDetails    `gorm:"embedded;embeddedPrefix:bank_" json:"bank_details"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Wallet) TableName() string {
	return "wallets"
}

// AvailableMinor is the withdrawable portion of the balance. Derived on every
// read; writing it anywhere would be a bug.
func (w *Wallet) AvailableMinor() int64 {
	return w.BalanceMinor - w.EscrowMinor
}

// HasBankDetails reports whether a payout destination is saved.
func (w *Wallet) HasBankDetails() bool {
	return w.BankDetails.AccountNumber != "" && w.BankDetails.BankCode != ""
}
