package wallet

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/localkart/localkart-backend/pkg/db/models"
	"github.com/localkart/localkart-backend/pkg/enums"
	pkgerrors "github.com/localkart/localkart-backend/pkg/errors"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r *gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func setupWalletTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:wallet_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&models.Wallet{},
		&models.WalletTransaction{},
		&models.VendorPayoutBank{},
	))
	return conn
}

func newWalletService(t *testing.T, conn *gorm.DB) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo: NewRepository(conn),
		Tx:   &gormTxRunner{db: conn},
	})
	require.NoError(t, err)
	return svc
}

func TestAdjust_CreatesWalletOnFirstUse(t *testing.T) {
	conn := setupWalletTestDB(t)
	svc := newWalletService(t, conn)
	ctx := context.Background()
	owner := uuid.New()

	err := conn.Transaction(func(tx *gorm.DB) error {
		wallet, adjErr := svc.Adjust(ctx, tx, AdjustInput{
			OwnerID:   owner,
			Role:      enums.WalletRoleConsumer,
			Delta:     decimal.NewFromInt(100),
			Type:      enums.WalletTxnTypeCredit,
			Reference: "test_credit",
		})
		require.NoError(t, adjErr)
		assert.True(t, wallet.Balance.Equal(decimal.NewFromInt(100)))
		return nil
	})
	require.NoError(t, err)

	balance, err := svc.GetBalance(ctx, owner, enums.WalletRoleConsumer)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(100)))

	txns, err := svc.ListTransactions(ctx, owner, enums.WalletRoleConsumer, 10)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, enums.WalletTxnTypeCredit, txns[0].Type)
	assert.True(t, txns[0].Amount.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, models.WalletTxnStatusSuccess, txns[0].Status)
}

func TestAdjust_DebitRecordsAbsoluteAmount(t *testing.T) {
	conn := setupWalletTestDB(t)
	svc := newWalletService(t, conn)
	ctx := context.Background()
	owner := uuid.New()

	err := conn.Transaction(func(tx *gorm.DB) error {
		if _, adjErr := svc.Adjust(ctx, tx, AdjustInput{
			OwnerID: owner, Role: enums.WalletRoleConsumer,
			Delta: decimal.NewFromInt(200), Type: enums.WalletTxnTypeRecharge,
			Reference: "top_up",
		}); adjErr != nil {
			return adjErr
		}
		wallet, adjErr := svc.Adjust(ctx, tx, AdjustInput{
			OwnerID: owner, Role: enums.WalletRoleConsumer,
			Delta: decimal.NewFromInt(-75), Type: enums.WalletTxnTypeDebit,
			Reference: "order_payment",
		})
		require.NoError(t, adjErr)
		assert.True(t, wallet.Balance.Equal(decimal.NewFromInt(125)))
		return nil
	})
	require.NoError(t, err)

	txns, err := svc.ListTransactions(ctx, owner, enums.WalletRoleConsumer, 10)
	require.NoError(t, err)
	require.Len(t, txns, 2)
	for _, txn := range txns {
		assert.False(t, txn.Amount.IsNegative(), "ledger entries store absolute amounts")
	}
}

func TestAdjust_InsufficientFundsRollsBack(t *testing.T) {
	conn := setupWalletTestDB(t)
	svc := newWalletService(t, conn)
	ctx := context.Background()
	owner := uuid.New()

	_, err := svc.Recharge(ctx, owner, enums.WalletRoleConsumer, decimal.NewFromInt(50))
	require.NoError(t, err)

	err = conn.Transaction(func(tx *gorm.DB) error {
		_, adjErr := svc.Adjust(ctx, tx, AdjustInput{
			OwnerID: owner, Role: enums.WalletRoleConsumer,
			Delta: decimal.NewFromInt(-80), Type: enums.WalletTxnTypeDebit,
			Reference: "order_payment",
		})
		return adjErr
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientFunds))

	balance, err := svc.GetBalance(ctx, owner, enums.WalletRoleConsumer)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(50)), "failed debit must not move the balance")

	txns, err := svc.ListTransactions(ctx, owner, enums.WalletRoleConsumer, 10)
	require.NoError(t, err)
	assert.Len(t, txns, 1, "failed debit must not append a ledger entry")
}

func TestAdjust_Validation(t *testing.T) {
	conn := setupWalletTestDB(t)
	svc := newWalletService(t, conn)
	ctx := context.Background()

	err := conn.Transaction(func(tx *gorm.DB) error {
		_, adjErr := svc.Adjust(ctx, tx, AdjustInput{
			OwnerID: uuid.Nil, Role: enums.WalletRoleConsumer,
			Delta: decimal.NewFromInt(10), Type: enums.WalletTxnTypeCredit,
		})
		assert.True(t, pkgerrors.IsCode(adjErr, pkgerrors.CodeValidation))

		_, adjErr = svc.Adjust(ctx, tx, AdjustInput{
			OwnerID: uuid.New(), Role: enums.WalletRoleConsumer,
			Delta: decimal.Zero, Type: enums.WalletTxnTypeCredit,
		})
		assert.True(t, pkgerrors.IsCode(adjErr, pkgerrors.CodeValidation))

		_, adjErr = svc.Adjust(ctx, tx, AdjustInput{
			OwnerID: uuid.New(), Role: enums.WalletRole("ghost"),
			Delta: decimal.NewFromInt(10), Type: enums.WalletTxnTypeCredit,
		})
		assert.True(t, pkgerrors.IsCode(adjErr, pkgerrors.CodeValidation))
		return nil
	})
	require.NoError(t, err)

	_, err = svc.Adjust(ctx, nil, AdjustInput{
		OwnerID: uuid.New(), Role: enums.WalletRoleConsumer,
		Delta: decimal.NewFromInt(10), Type: enums.WalletTxnTypeCredit,
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInternal))
}

func TestWalletsAreIsolatedPerRole(t *testing.T) {
	conn := setupWalletTestDB(t)
	svc := newWalletService(t, conn)
	ctx := context.Background()
	owner := uuid.New()

	_, err := svc.Recharge(ctx, owner, enums.WalletRoleConsumer, decimal.NewFromInt(30))
	require.NoError(t, err)
	_, err = svc.Recharge(ctx, owner, enums.WalletRoleVendor, decimal.NewFromInt(70))
	require.NoError(t, err)

	consumer, err := svc.GetBalance(ctx, owner, enums.WalletRoleConsumer)
	require.NoError(t, err)
	vendor, err := svc.GetBalance(ctx, owner, enums.WalletRoleVendor)
	require.NoError(t, err)
	assert.True(t, consumer.Equal(decimal.NewFromInt(30)))
	assert.True(t, vendor.Equal(decimal.NewFromInt(70)))
}

func TestWithdraw_RequiresPayoutBank(t *testing.T) {
	conn := setupWalletTestDB(t)
	svc := newWalletService(t, conn)
	ctx := context.Background()
	owner := uuid.New()

	_, err := svc.Recharge(ctx, owner, enums.WalletRoleVendor, decimal.NewFromInt(500))
	require.NoError(t, err)

	_, err = svc.Withdraw(ctx, owner, decimal.NewFromInt(100))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	_, err = svc.SavePayoutBank(ctx, owner, "Vendor One", "000111222", "LKRT0001")
	require.NoError(t, err)

	wallet, err := svc.Withdraw(ctx, owner, decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.True(t, wallet.Balance.Equal(decimal.NewFromInt(400)))

	txns, err := svc.ListTransactions(ctx, owner, enums.WalletRoleVendor, 10)
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, enums.WalletTxnTypeWithdrawal, txns[0].Type)
}

func TestGetBalance_MissingWalletIsZero(t *testing.T) {
	conn := setupWalletTestDB(t)
	svc := newWalletService(t, conn)

	balance, err := svc.GetBalance(context.Background(), uuid.New(), enums.WalletRoleConsumer)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}
