package repository

import (
	"gigpay/internal/models"

	"gorm.io/gorm"
)

type WalletRepository struct {
	db *gorm.DB
}

func NewWalletRepository(db *gorm.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *WalletRepository) WithTx(tx *gorm.DB) *WalletRepository {
	return &WalletRepository{db: tx}
}

func (r *WalletRepository) GetByUserID(userID uint) (*models.Wallet, error) {
	var w models.Wallet
	if err := r.db.Where("user_id = ?", userID).First(&w).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

// GetOrCreate is the single wallet-creation path. Wallets are created lazily
// on the first financial event for a user and never deleted.
func (r *WalletRepository) GetOrCreate(userID uint) (*models.Wallet, error) {
	w, err := r.GetByUserID(userID)
	if err == nil {
		return w, nil
	}
	w = &models.Wallet{UserID: userID, Currency: "NGN"}
	if err := r.db.Create(w).Error; err != nil {
		// Lost a create race; the row exists now.
		if existing, err2 := r.GetByUserID(userID); err2 == nil {
			return existing, nil
		}
		return nil, err
	}
	return w, nil
}

// ApplyDeltas mutates the balance aggregate in one write. Callers must hold
// the per-user wallet lock so the read-modify-write cannot interleave.
// Returns the wallet before and after the mutation.
func (r *WalletRepository) ApplyDeltas(userID uint, balanceDelta, escrowDelta, earningsDelta, spentDelta int64) (before, after *models.Wallet, err error) {
	w, err := r.GetOrCreate(userID)
	if err != nil {
		return nil, nil, err
	}
	prev := *w

	w.BalanceMinor += balanceDelta
	w.EscrowMinor += escrowDelta
	w.TotalEarningsMinor += earningsDelta
	w.TotalSpentMinor += spentDelta

	err = r.db.Model(w).Updates(map[string]interface{}{
		"balance_minor":        w.BalanceMinor,
		"escrow_minor":         w.EscrowMinor,
		"total_earnings_minor": w.TotalEarningsMinor,
		"total_spent_minor":    w.TotalSpentMinor,
	}).Error
	if err != nil {
		return nil, nil, err
	}
	return &prev, w, nil
}

func (r *WalletRepository) SaveBankDetails(userID uint, bd models.BankDetails) (*models.Wallet, error) {
	w, err := r.GetOrCreate(userID)
	if err != nil {
		return nil, err
	}
	w.BankDetails = bd
	if err := r.db.Model(w).Updates(map[string]interface{}{
		"bank_account_name":   bd.AccountName,
		"bank_account_number": bd.AccountNumber,
		"bank_bank_name":      bd.BankName,
		"bank_bank_code":      bd.BankCode,
	}).Error; err != nil {
		return nil, err
	}
	return w, nil
}

func (r *WalletRepository) ListAll(page, limit int) ([]models.Wallet, int64, error) {
	var wallets []models.Wallet
	var total int64
	if err := r.db.Model(&models.Wallet{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := r.db.Order("updated_at DESC").Limit(limit).Offset((page - 1) * limit).Find(&wallets).Error
	return wallets, total, err
}
