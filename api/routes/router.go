package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/localkart/localkart-backend/api/controllers"
	"github.com/localkart/localkart-backend/api/middleware"
	"github.com/localkart/localkart-backend/internal/cart"
	"github.com/localkart/localkart-backend/internal/lifecycle"
	"github.com/localkart/localkart-backend/internal/wallet"
	"github.com/localkart/localkart-backend/pkg/config"
	"github.com/localkart/localkart-backend/pkg/db"
	"github.com/localkart/localkart-backend/pkg/enums"
	"github.com/localkart/localkart-backend/pkg/logger"
	"github.com/localkart/localkart-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	registry *prometheus.Registry,
	lifecycleService *lifecycle.Service,
	walletService *wallet.Service,
	cartService *cart.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	// Redis-backed middlewares degrade to no-ops when no client is wired.
	var redisPinger redis.Pinger
	idempotency := func(next http.Handler) http.Handler { return next }
	rateLimit := func(string, int, time.Duration) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler { return next }
	}
	if redisClient != nil {
		redisPinger = redisClient
		idempotency = middleware.Idempotency(redisClient, logg)
		rateLimit = func(name string, limit int, window time.Duration) func(http.Handler) http.Handler {
			return middleware.RateLimit(name, limit, window, redisClient, logg)
		}
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisPinger))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(idempotency)

		r.Route("/cart", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.ActorRoleConsumer), logg))
			r.Get("/", controllers.CartList(cartService, logg))
			r.Post("/", controllers.CartAdd(cartService, logg))
			r.Patch("/{itemID}", controllers.CartUpdate(cartService, logg))
			r.Delete("/{itemID}", controllers.CartRemove(cartService, logg))
		})

		r.With(
			middleware.RequireRole(string(enums.ActorRoleConsumer), logg),
			rateLimit("checkout", cfg.RateLimit.CheckoutLimit, cfg.RateLimit.CheckoutWindow),
		).Post("/checkout", controllers.Checkout(lifecycleService, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrderList(lifecycleService, logg))
			r.Route("/{orderID}", func(r chi.Router) {
				r.Get("/", controllers.OrderDetail(lifecycleService, logg))
				r.Get("/history", controllers.OrderHistory(lifecycleService, logg))
				r.Get("/messages", controllers.OrderListMessages(lifecycleService, logg))
				r.Post("/messages", controllers.OrderSendMessage(lifecycleService, logg))

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRole(string(enums.ActorRoleConsumer), logg))
					r.Post("/confirm-modification", controllers.OrderConfirmModification(lifecycleService, logg))
					r.Post("/cancel", controllers.OrderCancel(lifecycleService, logg))
					r.Post("/returns", controllers.OrderRequestReturn(lifecycleService, logg))
					r.Post("/rating", controllers.OrderRate(lifecycleService, logg))
					r.Post("/issues", controllers.OrderRaiseIssue(lifecycleService, logg))
				})
			})
		})

		r.Route("/wallet", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.ActorRoleConsumer), logg))
			r.Use(rateLimit("wallet", cfg.RateLimit.WalletLimit, cfg.RateLimit.WalletWindow))
			r.Get("/", controllers.WalletBalance(walletService, enums.WalletRoleConsumer, logg))
			r.Get("/transactions", controllers.WalletTransactions(walletService, enums.WalletRoleConsumer, logg))
			r.Post("/recharge", controllers.WalletRecharge(walletService, enums.WalletRoleConsumer, logg))
		})

		r.Route("/vendor", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.ActorRoleVendor), logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.VendorOrderList(lifecycleService, logg))
				r.Route("/{orderID}", func(r chi.Router) {
					r.Get("/issues", controllers.VendorOrderIssues(lifecycleService, logg))
					r.Post("/status", controllers.VendorOrderStatus(lifecycleService, logg))
					r.Post("/modify", controllers.VendorOrderModify(lifecycleService, logg))
					r.Post("/cancel", controllers.VendorOrderCancel(lifecycleService, logg))
					r.Post("/returns", controllers.VendorOrderInitiateReturn(lifecycleService, logg))
					r.Post("/returns/accept", controllers.VendorReturnAccept(lifecycleService, logg))
					r.Post("/returns/reject", controllers.VendorReturnReject(lifecycleService, logg))
					r.Post("/returns/complete", controllers.VendorReturnComplete(lifecycleService, logg))
				})
			})

			r.Route("/wallet", func(r chi.Router) {
				r.Use(rateLimit("wallet", cfg.RateLimit.WalletLimit, cfg.RateLimit.WalletWindow))
				r.Get("/", controllers.WalletBalance(walletService, enums.WalletRoleVendor, logg))
				r.Get("/transactions", controllers.WalletTransactions(walletService, enums.WalletRoleVendor, logg))
				r.Post("/withdraw", controllers.WalletWithdraw(walletService, logg))
				r.Get("/payout-bank", controllers.PayoutBankGet(walletService, logg))
				r.Put("/payout-bank", controllers.PayoutBankSave(walletService, logg))
			})
		})
	})

	return r
}
