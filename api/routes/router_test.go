package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/localkart/localkart-backend/internal/cart"
	"github.com/localkart/localkart-backend/internal/inventory"
	"github.com/localkart/localkart-backend/internal/lifecycle"
	"github.com/localkart/localkart-backend/internal/orders"
	"github.com/localkart/localkart-backend/internal/wallet"
	pkgAuth "github.com/localkart/localkart-backend/pkg/auth"
	"github.com/localkart/localkart-backend/pkg/config"
	"github.com/localkart/localkart-backend/pkg/db/models"
	"github.com/localkart/localkart-backend/pkg/enums"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type gormTxRunner struct {
	db *gorm.DB
}

func (r *gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type routerFixture struct {
	conn    *gorm.DB
	handler http.Handler
	cfg     *config.Config
	wallets *wallet.Service
	carts   *cart.Service
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:router_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&models.Shop{},
		&models.Item{},
		&models.CartItem{},
		&models.Wallet{},
		&models.WalletTransaction{},
		&models.VendorPayoutBank{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderStatusLog{},
		&models.OrderActionLog{},
		&models.OrderMessage{},
		&models.OrderReturn{},
		&models.OrderRating{},
		&models.OrderIssue{},
	))

	runner := &gormTxRunner{db: conn}
	wallets, err := wallet.NewService(wallet.ServiceParams{
		Repo: wallet.NewRepository(conn),
		Tx:   runner,
	})
	require.NoError(t, err)
	guard, err := inventory.NewGuard(inventory.NewRepository(conn))
	require.NoError(t, err)
	carts, err := cart.NewService(cart.ServiceParams{
		Repo:  cart.NewRepository(conn),
		Items: inventory.NewRepository(conn),
	})
	require.NoError(t, err)
	svc, err := lifecycle.NewService(lifecycle.ServiceParams{
		Orders: orders.NewRepository(conn),
		Wallet: wallets,
		Stock:  guard,
		Cart:   carts,
		Tx:     runner,
	})
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.App.Env = "dev"
	cfg.JWT = config.JWTConfig{Secret: "router-test-secret", Issuer: "localkart-test", ExpirationMinutes: 30}

	handler := NewRouter(cfg, nil, stubPinger{}, nil, nil, svc, wallets, carts)

	return &routerFixture{conn: conn, handler: handler, cfg: cfg, wallets: wallets, carts: carts}
}

func (f *routerFixture) token(t *testing.T, role enums.ActorRole, userID uuid.UUID, shopID *uuid.UUID) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(f.cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: userID,
		Role:   role,
		ShopID: shopID,
		JTI:    uuid.NewString(),
	})
	require.NoError(t, err)
	return token
}

func (f *routerFixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		payload = bytes.NewBuffer(raw)
	} else {
		payload = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, payload)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *routerFixture) seedItem(t *testing.T, shopID uuid.UUID, price int64, stock int) models.Item {
	t.Helper()
	item := models.Item{
		ShopID:          shopID,
		Title:           "Milk 500ml",
		Unit:            "pc",
		Price:           decimal.NewFromInt(price),
		QuantityInStock: &stock,
		IsAvailable:     true,
		IsActive:        true,
	}
	require.NoError(t, f.conn.Create(&item).Error)
	return item
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, dest))
}

func TestHealthLive(t *testing.T) {
	f := newRouterFixture(t)
	rec := f.do(t, http.MethodGet, "/health/live", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthReady(t *testing.T) {
	f := newRouterFixture(t)
	rec := f.do(t, http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIRequiresAuth(t *testing.T) {
	f := newRouterFixture(t)
	rec := f.do(t, http.MethodGet, "/api/v1/orders", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestVendorRoutesRejectConsumers(t *testing.T) {
	f := newRouterFixture(t)
	token := f.token(t, enums.ActorRoleConsumer, uuid.New(), nil)
	rec := f.do(t, http.MethodGet, "/api/v1/vendor/orders", token, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCheckoutFlowOverHTTP(t *testing.T) {
	f := newRouterFixture(t)

	buyerID := uuid.New()
	vendorID := uuid.New()
	shopID := uuid.New()
	item := f.seedItem(t, shopID, 40, 10)

	_, err := f.wallets.Recharge(context.Background(), buyerID, enums.WalletRoleConsumer, decimal.NewFromInt(100))
	require.NoError(t, err)

	consumerToken := f.token(t, enums.ActorRoleConsumer, buyerID, nil)
	vendorToken := f.token(t, enums.ActorRoleVendor, vendorID, &shopID)

	rec := f.do(t, http.MethodPost, "/api/v1/cart", consumerToken, map[string]any{
		"item_id":  item.ID,
		"quantity": 2,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/api/v1/checkout", consumerToken, map[string]any{
		"shop_id":      shopID,
		"payment_mode": "wallet",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var order struct {
		ID            uuid.UUID `json:"id"`
		Status        string    `json:"status"`
		PaymentStatus string    `json:"payment_status"`
		TotalAmount   string    `json:"total_amount"`
	}
	decodeData(t, rec, &order)
	require.Equal(t, "pending", order.Status)
	require.Equal(t, "paid", order.PaymentStatus)

	// wallet reflects the debit
	var balance struct {
		Balance string `json:"balance"`
	}
	rec = f.do(t, http.MethodGet, "/api/v1/wallet", consumerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &balance)
	require.Equal(t, "20", balance.Balance)

	// vendor sees the order and delivers it
	rec = f.do(t, http.MethodGet, "/api/v1/vendor/orders", vendorToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/vendor/orders/"+order.ID.String()+"/status", vendorToken, map[string]any{
		"status": "delivered",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var delivered struct {
		Status string `json:"status"`
	}
	decodeData(t, rec, &delivered)
	require.Equal(t, "delivered", delivered.Status)

	// delivery settled the vendor wallet
	rec = f.do(t, http.MethodGet, "/api/v1/vendor/wallet", vendorToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &balance)
	require.Equal(t, "80", balance.Balance)

	// buyer complaint shows up on the vendor's issue list
	rec = f.do(t, http.MethodPost, "/api/v1/orders/"+order.ID.String()+"/issues", consumerToken, map[string]any{
		"issue_type":  "damaged_item",
		"description": "box was crushed",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/api/v1/vendor/orders/"+order.ID.String()+"/issues", vendorToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var issues []struct {
		IssueType string `json:"issue_type"`
		Status    string `json:"status"`
	}
	decodeData(t, rec, &issues)
	require.Len(t, issues, 1)
	require.Equal(t, "damaged_item", issues[0].IssueType)
	require.Equal(t, "raised", issues[0].Status)
}

func TestOrderCancelRefundsOverHTTP(t *testing.T) {
	f := newRouterFixture(t)

	buyerID := uuid.New()
	shopID := uuid.New()
	item := f.seedItem(t, shopID, 25, 5)

	_, err := f.wallets.Recharge(context.Background(), buyerID, enums.WalletRoleConsumer, decimal.NewFromInt(50))
	require.NoError(t, err)

	token := f.token(t, enums.ActorRoleConsumer, buyerID, nil)

	rec := f.do(t, http.MethodPost, "/api/v1/cart", token, map[string]any{
		"item_id":  item.ID,
		"quantity": 1,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/checkout", token, map[string]any{
		"shop_id":      shopID,
		"payment_mode": "wallet",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var order struct {
		ID uuid.UUID `json:"id"`
	}
	decodeData(t, rec, &order)

	rec = f.do(t, http.MethodPost, "/api/v1/orders/"+order.ID.String()+"/cancel", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var balance struct {
		Balance string `json:"balance"`
	}
	rec = f.do(t, http.MethodGet, "/api/v1/wallet", token, nil)
	decodeData(t, rec, &balance)
	require.Equal(t, "50", balance.Balance)
}

func TestUnknownOrderReturns404(t *testing.T) {
	f := newRouterFixture(t)
	token := f.token(t, enums.ActorRoleConsumer, uuid.New(), nil)
	rec := f.do(t, http.MethodGet, "/api/v1/orders/"+uuid.NewString(), token, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
