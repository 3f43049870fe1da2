package repository

import (
	"time"

	"gigpay/internal/domain"
	"gigpay/internal/models"

	"gorm.io/gorm"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) WithTx(tx *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: tx}
}

func (r *PaymentRepository) Create(p *models.Payment) error {
	return r.db.Create(p).Error
}

func (r *PaymentRepository) GetByID(id uint) (*models.Payment, error) {
	var p models.Payment
	if err := r.db.First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) GetByReference(ref string) (*models.Payment, error) {
	var p models.Payment
	if err := r.db.Where("reference = ?", ref).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) Update(p *models.Payment) error {
	return r.db.Save(p).Error
}

// FindPendingForProject returns an open payment for the same project and pair,
// so re-initialising a checkout reuses the record instead of stacking duplicates.
func (r *PaymentRepository) FindPendingForProject(projectRef string, payerID, payeeID uint) (*models.Payment, error) {
	var p models.Payment
	err := r.db.Where("project_ref = ? AND status = ? AND payer_id = ? AND payee_id = ?",
		projectRef, domain.PaymentStatusPending, payerID, payeeID).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) ListForUser(userID uint, status, paymentType string, page, limit int) ([]models.Payment, int64, error) {
	q := r.db.Model(&models.Payment{}).Where("payer_id = ? OR payee_id = ?", userID, userID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if paymentType != "" {
		q = q.Where("payment_type = ?", paymentType)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var payments []models.Payment
	err := q.Order("created_at DESC").Limit(limit).Offset((page - 1) * limit).Find(&payments).Error
	return payments, total, err
}

func (r *PaymentRepository) ListAll(status string, page, limit int) ([]models.Payment, int64, error) {
	q := r.db.Model(&models.Payment{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var payments []models.Payment
	err := q.Order("created_at DESC").Limit(limit).Offset((page - 1) * limit).Find(&payments).Error
	return payments, total, err
}

// SumHeldNetForPayee is the ledger side of the escrow-sum invariant: the total
// net amount across this payee's held payments must equal wallet.EscrowMinor.
func (r *PaymentRepository) SumHeldNetForPayee(payeeID uint) (int64, error) {
	var sum int64
	err := r.db.Model(&models.Payment{}).
		Where("payee_id = ? AND escrow_status = ?", payeeID, domain.EscrowStatusHeld).
		Select("COALESCE(SUM(net_amount_minor), 0)").Scan(&sum).Error
	return sum, err
}

// ListStalePending returns pending payments older than the cutoff for the
// reconciliation sweep to re-verify against the gateway.
func (r *PaymentRepository) ListStalePending(olderThan time.Time, limit int) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.Where("status = ? AND created_at < ?", domain.PaymentStatusPending, olderThan).
		Order("created_at ASC").Limit(limit).Find(&payments).Error
	return payments, err
}
