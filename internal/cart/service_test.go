package cart

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

	"github.com/localkart/localkart-backend/internal/inventory"
	"github.com/localkart/localkart-backend/pkg/db/models"
	pkgerrors "github.com/localkart/localkart-backend/pkg/errors"
)

func setupCartTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:cart_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.CartItem{}, &models.Item{}))
	return conn
}

func newCartService(t *testing.T, conn *gorm.DB) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:  NewRepository(conn),
		Items: inventory.NewRepository(conn),
	})
	require.NoError(t, err)
	return svc
}

func seedCatalogItem(t *testing.T, conn *gorm.DB, shopID uuid.UUID, price int64, available bool) models.Item {
	t.Helper()
	item := models.Item{
		ShopID:      shopID,
		Title:       "Catalog Item",
		Unit:        "pc",
		Price:       decimal.NewFromInt(price),
		IsAvailable: available,
		IsActive:    true,
	}
	require.NoError(t, conn.Create(&item).Error)
	return item
}

func TestAddItem_SnapshotsPriceAndMergesLines(t *testing.T) {
	conn := setupCartTestDB(t)
	svc := newCartService(t, conn)
	ctx := context.Background()
	buyer := uuid.New()
	shop := uuid.New()
	item := seedCatalogItem(t, conn, shop, 40, true)

	line, err := svc.AddItem(ctx, buyer, item.ID, 2)
	require.NoError(t, err)
	require.NotNil(t, line.PriceAtAddition)
	assert.True(t, line.PriceAtAddition.Equal(decimal.NewFromInt(40)))
	assert.Equal(t, shop, line.ShopID)

	line, err = svc.AddItem(ctx, buyer, item.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, line.Quantity)

	lines, err := svc.List(ctx, buyer)
	require.NoError(t, err)
	assert.Len(t, lines, 1)
}

func TestAddItem_RejectsUnavailable(t *testing.T) {
	conn := setupCartTestDB(t)
	svc := newCartService(t, conn)
	item := seedCatalogItem(t, conn, uuid.New(), 10, false)

	_, err := svc.AddItem(context.Background(), uuid.New(), item.ID, 1)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	_, err = svc.AddItem(context.Background(), uuid.New(), uuid.New(), 1)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestUpdateQuantity_ZeroRemovesLine(t *testing.T) {
	conn := setupCartTestDB(t)
	svc := newCartService(t, conn)
	ctx := context.Background()
	buyer := uuid.New()
	item := seedCatalogItem(t, conn, uuid.New(), 10, true)

	_, err := svc.AddItem(ctx, buyer, item.ID, 2)
	require.NoError(t, err)

	require.NoError(t, svc.UpdateQuantity(ctx, buyer, item.ID, 0))

	lines, err := svc.List(ctx, buyer)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestSnapshot_UsesCurrentCatalogPrice(t *testing.T) {
	conn := setupCartTestDB(t)
	svc := newCartService(t, conn)
	ctx := context.Background()
	buyer := uuid.New()
	shop := uuid.New()
	item := seedCatalogItem(t, conn, shop, 40, true)

	_, err := svc.AddItem(ctx, buyer, item.ID, 2)
	require.NoError(t, err)

	// price changes after the line was added
	require.NoError(t, conn.Model(&models.Item{}).Where("id = ?", item.ID).
		Update("price", decimal.NewFromInt(55)).Error)

	snapshot, err := svc.Snapshot(ctx, conn, buyer, shop)
	require.NoError(t, err)
	require.Len(t, snapshot, 1)
	assert.True(t, snapshot[0].Item.Price.Equal(decimal.NewFromInt(55)))
	assert.Equal(t, 2, snapshot[0].Quantity)
}

func TestSnapshot_EmptyCartRejected(t *testing.T) {
	conn := setupCartTestDB(t)
	svc := newCartService(t, conn)

	_, err := svc.Snapshot(context.Background(), conn, uuid.New(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestClear_OnlyDropsShopLines(t *testing.T) {
	conn := setupCartTestDB(t)
	svc := newCartService(t, conn)
	ctx := context.Background()
	buyer := uuid.New()
	shopA := uuid.New()
	shopB := uuid.New()
	itemA := seedCatalogItem(t, conn, shopA, 10, true)
	itemB := seedCatalogItem(t, conn, shopB, 20, true)

	_, err := svc.AddItem(ctx, buyer, itemA.ID, 1)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, buyer, itemB.ID, 1)
	require.NoError(t, err)

	require.NoError(t, svc.Clear(ctx, conn, buyer, shopA))

	lines, err := svc.List(ctx, buyer)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, shopB, lines[0].ShopID)
}
