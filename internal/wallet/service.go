package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/localkart/localkart-backend/pkg/db/models"
	"github.com/localkart/localkart-backend/pkg/enums"
	pkgerrors "github.com/localkart/localkart-backend/pkg/errors"
	"github.com/localkart/localkart-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams groups dependencies for the wallet service.
type ServiceParams struct {
	Repo    Repository
	Tx      txRunner
	Metrics *metrics.OrderMetrics
}

// Service is the wallet ledger. Adjust is the single money-movement
// primitive; every balance change goes through it and records an immutable
// transaction row in the same database transaction.
type Service struct {
	repo    Repository
	tx      txRunner
	metrics *metrics.OrderMetrics
}

// NewService builds a wallet service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Tx == nil {
		return nil, errors.New("tx runner is required")
	}
	return &Service{repo: params.Repo, tx: params.Tx, metrics: params.Metrics}, nil
}

// AdjustInput describes one balance movement.
type AdjustInput struct {
	OwnerID   uuid.UUID
	Role      enums.WalletRole
	Delta     decimal.Decimal
	Type      enums.WalletTxnType
	Reference string
	Source    *string
}

// Adjust applies a signed delta to a wallet inside the caller's transaction.
// The wallet row is locked for the duration, a zero-balance wallet is created
// on first use, and a delta that would take the balance below zero fails with
// an insufficient-funds error. Adjust never commits; the caller owns the
// transaction boundary.
func (s *Service) Adjust(ctx context.Context, tx *gorm.DB, input AdjustInput) (*models.Wallet, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "wallet adjust requires a transaction")
	}
	if input.OwnerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wallet owner id required")
	}
	if !input.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid wallet role %q", input.Role))
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid wallet transaction type %q", input.Type))
	}
	if input.Delta.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wallet delta must be non-zero")
	}

	repo := s.repo.WithTx(tx)

	wallet, err := repo.FindForUpdate(ctx, input.OwnerID, input.Role)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "locking wallet")
	}

	newBalance := wallet.Balance.Add(input.Delta)
	if newBalance.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientFunds, "insufficient wallet balance")
	}

	wallet.Balance = newBalance
	if err := repo.UpdateBalance(ctx, wallet); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating wallet balance")
	}

	txn := &models.WalletTransaction{
		OwnerID:   input.OwnerID,
		Role:      input.Role,
		Amount:    input.Delta.Abs(),
		Type:      input.Type,
		Reference: input.Reference,
		Status:    models.WalletTxnStatusSuccess,
		Source:    input.Source,
	}
	if err := repo.CreateTransaction(ctx, txn); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recording wallet transaction")
	}

	s.metrics.IncWalletAdjustment(string(input.Type))
	return wallet, nil
}

// GetBalance returns the current balance, zero when the wallet does not exist yet.
func (s *Service) GetBalance(ctx context.Context, ownerID uuid.UUID, role enums.WalletRole) (decimal.Decimal, error) {
	if ownerID == uuid.Nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "wallet owner id required")
	}
	wallet, err := s.repo.Find(ctx, ownerID, role)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading wallet")
	}
	if wallet == nil {
		return decimal.Zero, nil
	}
	return wallet.Balance, nil
}

// ListTransactions returns the most recent ledger entries for a wallet.
func (s *Service) ListTransactions(ctx context.Context, ownerID uuid.UUID, role enums.WalletRole, limit int) ([]models.WalletTransaction, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wallet owner id required")
	}
	txns, err := s.repo.ListTransactions(ctx, ownerID, role, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing wallet transactions")
	}
	return txns, nil
}

// Recharge credits an externally funded top-up to the wallet.
func (s *Service) Recharge(ctx context.Context, ownerID uuid.UUID, role enums.WalletRole, amount decimal.Decimal) (*models.Wallet, error) {
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recharge amount must be positive")
	}
	var wallet *models.Wallet
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var adjErr error
		wallet, adjErr = s.Adjust(ctx, tx, AdjustInput{
			OwnerID:   ownerID,
			Role:      role,
			Delta:     amount,
			Type:      enums.WalletTxnTypeRecharge,
			Reference: "wallet_recharge",
		})
		return adjErr
	})
	if err != nil {
		return nil, err
	}
	return wallet, nil
}

// Withdraw debits a vendor wallet for payout. A payout bank account must be
// on file before any withdrawal is accepted.
func (s *Service) Withdraw(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal) (*models.Wallet, error) {
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "withdrawal amount must be positive")
	}

	bank, err := s.repo.FindPayoutBank(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading payout bank")
	}
	if bank == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payout bank account not configured")
	}

	var wallet *models.Wallet
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var adjErr error
		wallet, adjErr = s.Adjust(ctx, tx, AdjustInput{
			OwnerID:   ownerID,
			Role:      enums.WalletRoleVendor,
			Delta:     amount.Neg(),
			Type:      enums.WalletTxnTypeWithdrawal,
			Reference: "wallet_withdrawal",
		})
		return adjErr
	})
	if err != nil {
		return nil, err
	}
	return wallet, nil
}

// SavePayoutBank stores or replaces the vendor's payout bank account.
func (s *Service) SavePayoutBank(ctx context.Context, ownerID uuid.UUID, accountName, accountNumber, ifsc string) (*models.VendorPayoutBank, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	accountName = strings.TrimSpace(accountName)
	accountNumber = strings.TrimSpace(accountNumber)
	ifsc = strings.TrimSpace(ifsc)
	if accountName == "" || accountNumber == "" || ifsc == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account name, number and ifsc are required")
	}

	bank, err := s.repo.FindPayoutBank(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading payout bank")
	}
	if bank == nil {
		bank = &models.VendorPayoutBank{OwnerID: ownerID}
	}
	bank.AccountName = accountName
	bank.AccountNumber = accountNumber
	bank.IFSC = ifsc

	if err := s.repo.SavePayoutBank(ctx, bank); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving payout bank")
	}
	return bank, nil
}

// GetPayoutBank returns the vendor's payout bank account, nil when unset.
func (s *Service) GetPayoutBank(ctx context.Context, ownerID uuid.UUID) (*models.VendorPayoutBank, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	bank, err := s.repo.FindPayoutBank(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading payout bank")
	}
	return bank, nil
}
