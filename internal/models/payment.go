package models

import (
	"time"

	"gorm.io/gorm"
)

// Payment is one unit of money movement tied to a job, project or milestone.
// Reference doubles as the gateway transaction reference (tx_ref).
type Payment struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	Reference        string         `gorm:"size:64;uniqueIndex;not null" json:"reference"`
	PayerID          uint           `gorm:"not null;index" json:"payer_id"`
	PayeeID          uint           `gorm:"not null;index" json:"payee_id"`
	AmountMinor      int64          `gorm:"not null" json:"amount_minor"`
	PlatformFeeMinor int64          `gorm:"not null;default:0" json:"platform_fee_minor"`
	NetAmountMinor   int64          `gorm:"not null" json:"net_amount_minor"`
	Currency         string         `gorm:"size:3;default:'NGN'" json:"currency"`
	PaymentType      string         `gorm:"size:30;not null;index" json:"payment_type"`  // job_verification, milestone, full_payment
	Status           string         `gorm:"size:20;not null;index" json:"status"`        // pending, completed, failed, refunded
	EscrowStatus     string         `gorm:"size:20;not null;index" json:"escrow_status"` // none, held, released, refunded
	GatewayRef       string         `gorm:"size:128" json:"gateway_ref"`                 // provider-side transaction id
	JobRef           string         `gorm:"size:64;index" json:"job_ref"`
	ProjectRef       string         `gorm:"size:64;index" json:"project_ref"`
	MilestoneRef     string         `gorm:"size:64" json:"milestone_ref"`
	Description      string         `gorm:"size:255" json:"description"`
	PaidAt           *time.Time     `json:"paid_at"`
	ReleasedAt       *time.Time     `json:"released_at"`
	RefundedAt       *time.Time     `json:"refunded_at"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Payment) TableName() string {
	return "payments"
}

// Escrowed reports whether this payment type holds funds in escrow once charged.
// Job verification fees complete without touching any wallet.
func (p *Payment) Escrowed() bool {
	return p.PaymentType != "job_verification"
}
