package wallet

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/localkart/localkart-backend/pkg/db"
	"github.com/localkart/localkart-backend/pkg/db/models"
	"github.com/localkart/localkart-backend/pkg/enums"
)

// Repository handles wallet persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindForUpdate(ctx context.Context, ownerID uuid.UUID, role enums.WalletRole) (*models.Wallet, error)
	Find(ctx context.Context, ownerID uuid.UUID, role enums.WalletRole) (*models.Wallet, error)
	UpdateBalance(ctx context.Context, wallet *models.Wallet) error
	CreateTransaction(ctx context.Context, txn *models.WalletTransaction) error
	ListTransactions(ctx context.Context, ownerID uuid.UUID, role enums.WalletRole, limit int) ([]models.WalletTransaction, error)
	FindPayoutBank(ctx context.Context, ownerID uuid.UUID) (*models.VendorPayoutBank, error)
	SavePayoutBank(ctx context.Context, bank *models.VendorPayoutBank) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a wallet repository bound to the provided database.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindForUpdate locks the wallet row for the owner/role pair, creating a
// zero-balance wallet when none exists yet.
func (r *repository) FindForUpdate(ctx context.Context, ownerID uuid.UUID, role enums.WalletRole) (*models.Wallet, error) {
	var wallet models.Wallet
	err := db.ForUpdate(r.db.WithContext(ctx)).
		Where("owner_id = ? AND role = ?", ownerID, role).
		First(&wallet).Error
	if err == gorm.ErrRecordNotFound {
		wallet = models.Wallet{
			OwnerID: ownerID,
			Role:    role,
			Balance: decimal.Zero,
		}
		if createErr := r.db.WithContext(ctx).Create(&wallet).Error; createErr != nil {
			return nil, createErr
		}
		return &wallet, nil
	}
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *repository) Find(ctx context.Context, ownerID uuid.UUID, role enums.WalletRole) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.db.WithContext(ctx).
		Where("owner_id = ? AND role = ?", ownerID, role).
		First(&wallet).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &wallet, nil
}

func (r *repository) UpdateBalance(ctx context.Context, wallet *models.Wallet) error {
	return r.db.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("id = ?", wallet.ID).
		Update("balance", wallet.Balance).Error
}

func (r *repository) CreateTransaction(ctx context.Context, txn *models.WalletTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) ListTransactions(ctx context.Context, ownerID uuid.UUID, role enums.WalletRole, limit int) ([]models.WalletTransaction, error) {
	if limit <= 0 {
		limit = 50
	}
	var txns []models.WalletTransaction
	if err := r.db.WithContext(ctx).
		Where("owner_id = ? AND role = ?", ownerID, role).
		Order("created_at DESC").
		Limit(limit).
		Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}

func (r *repository) FindPayoutBank(ctx context.Context, ownerID uuid.UUID) (*models.VendorPayoutBank, error) {
	var bank models.VendorPayoutBank
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		First(&bank).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &bank, nil
}

func (r *repository) SavePayoutBank(ctx context.Context, bank *models.VendorPayoutBank) error {
	return r.db.WithContext(ctx).Save(bank).Error
}
