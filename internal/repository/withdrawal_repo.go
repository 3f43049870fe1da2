package repository

import (
	"gigpay/internal/domain"
	"gigpay/internal/models"

	"gorm.io/gorm"
)

type WithdrawalRepository struct {
	db *gorm.DB
}

func NewWithdrawalRepository(db *gorm.DB) *WithdrawalRepository {
	return &WithdrawalRepository{db: db}
}

func (r *WithdrawalRepository) WithTx(tx *gorm.DB) *WithdrawalRepository {
	return &WithdrawalRepository{db: tx}
}

func (r *WithdrawalRepository) Create(w *models.Withdrawal) error {
	return r.db.Create(w).Error
}

func (r *WithdrawalRepository) GetByID(id uint) (*models.Withdrawal, error) {
	var w models.Withdrawal
	if err := r.db.First(&w, id).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *WithdrawalRepository) GetByReference(ref string) (*models.Withdrawal, error) {
	var w models.Withdrawal
	if err := r.db.Where("reference = ?", ref).First(&w).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *WithdrawalRepository) Update(w *models.Withdrawal) error {
	return r.db.Save(w).Error
}

func (r *WithdrawalRepository) ListByStatus(statuses []string, page, limit int) ([]models.Withdrawal, int64, error) {
	q := r.db.Model(&models.Withdrawal{})
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var ws []models.Withdrawal
	err := q.Order("created_at DESC").Limit(limit).Offset((page - 1) * limit).Find(&ws).Error
	return ws, total, err
}

func (r *WithdrawalRepository) ListForUser(userID uint, page, limit int) ([]models.Withdrawal, int64, error) {
	q := r.db.Model(&models.Withdrawal{}).Where("user_id = ?", userID)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var ws []models.Withdrawal
	err := q.Order("created_at DESC").Limit(limit).Offset((page - 1) * limit).Find(&ws).Error
	return ws, total, err
}

// ListInFlight returns processing withdrawals for the reconciliation sweep.
// Their outcome at the gateway is unknown; only a status query may settle them.
func (r *WithdrawalRepository) ListInFlight(limit int) ([]models.Withdrawal, error) {
	var ws []models.Withdrawal
	err := r.db.Where("status = ?", domain.WithdrawalStatusProcessing).
		Order("created_at ASC").Limit(limit).Find(&ws).Error
	return ws, err
}
