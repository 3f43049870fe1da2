package repository

import (
	"gigpay/internal/models"

	"gorm.io/gorm"
)

// TransactionRepository appends to the journal. There are deliberately no
// update or delete methods: the journal is the audit trail of record.
type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) WithTx(tx *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: tx}
}

func (r *TransactionRepository) Create(t *models.Transaction) error {
	return r.db.Create(t).Error
}

func (r *TransactionRepository) ListForUser(userID uint, txType string, page, limit int) ([]models.Transaction, int64, error) {
	q := r.db.Model(&models.Transaction{}).Where("user_id = ?", userID)
	if txType != "" {
		q = q.Where("type = ?", txType)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var txs []models.Transaction
	err := q.Order("created_at DESC").Limit(limit).Offset((page - 1) * limit).Find(&txs).Error
	return txs, total, err
}
