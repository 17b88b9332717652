package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/teahouse-backend/api/controllers"
	ordercontrollers "github.com/angelmondragon/teahouse-backend/api/controllers/orders"
	"github.com/angelmondragon/teahouse-backend/api/middleware"
	"github.com/angelmondragon/teahouse-backend/internal/auth"
	"github.com/angelmondragon/teahouse-backend/internal/orders"
	product "github.com/angelmondragon/teahouse-backend/internal/products"
	"github.com/angelmondragon/teahouse-backend/internal/profiles"
	"github.com/angelmondragon/teahouse-backend/internal/reviews"
	"github.com/angelmondragon/teahouse-backend/pkg/auth/session"
	"github.com/angelmondragon/teahouse-backend/pkg/config"
	"github.com/angelmondragon/teahouse-backend/pkg/enums"
	"github.com/angelmondragon/teahouse-backend/pkg/logger"
	"github.com/angelmondragon/teahouse-backend/pkg/metrics"
	"github.com/angelmondragon/teahouse-backend/pkg/payments"
	pkgredis "github.com/angelmondragon/teahouse-backend/pkg/redis"
	"github.com/google/uuid"
)

type paymentSheetCreator interface {
	CreatePaymentSheet(ctx context.Context, userID uuid.UUID, req payments.IntentRequest) (payments.Handle, error)
}

type rateCounter interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

type redisStore interface {
	pkgredis.IdempotencyStore
	rateCounter
	Ping(ctx context.Context) error
}

// Dependencies are the collaborators the HTTP surface is wired to. Nil
// services produce 500s on their routes rather than panics.
type Dependencies struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          controllers.Pinger
	Redis       redisStore
	Sessions    session.AccessSessionChecker
	HTTPMetrics *metrics.HTTPMetrics
	// MetricsHandler serves the Prometheus scrape endpoint when set.
	MetricsHandler http.Handler

	Auth         auth.Service
	Products     product.Service
	Reviews      reviews.Service
	Profiles     profiles.Service
	Orders       orders.Service
	PaymentSheet paymentSheetCreator
	Shoppers     controllers.SessionProvider
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	var (
		rateStore rateCounter
		idemStore pkgredis.IdempotencyStore
		readiness = map[string]controllers.Pinger{}
	)
	if deps.Redis != nil {
		rateStore = deps.Redis
		idemStore = deps.Redis
		readiness["redis"] = deps.Redis
	}
	if deps.DB != nil {
		readiness["db"] = deps.DB
	}
	idempotent := middleware.Idempotency(idemStore, logg)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	signupPolicy := middleware.NewAuthRateLimitPolicy(
		"signup",
		cfg.AuthRateLimit.SignupWindow,
		cfg.AuthRateLimit.SignupIPLimit,
		cfg.AuthRateLimit.SignupEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, readiness, logg))
	})
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	requireAuth := middleware.Auth(cfg.JWT, deps.Sessions, logg)

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(signupPolicy, rateStore, logg), idempotent).Post("/signup", controllers.AuthSignUp(deps.Auth, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, rateStore, logg)).Post("/login", controllers.AuthLogin(deps.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(deps.Auth, logg))
		r.With(requireAuth).Get("/session", controllers.AuthSession(deps.Auth, logg))
	})

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ProductList(deps.Products, logg))
		r.Get("/{productId}", controllers.ProductGet(deps.Products, logg))
		r.Get("/{productId}/reviews", controllers.ProductReviews(deps.Reviews, logg))
	})

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)

		r.With(idempotent).Post("/api/payment-sheet", controllers.PaymentSheet(deps.PaymentSheet, logg))

		r.Route("/api/v1/profile", func(r chi.Router) {
			r.Get("/", controllers.ProfileGet(deps.Profiles, logg))
			r.Put("/address", controllers.ProfileUpdateAddress(deps.Profiles, logg))
		})

		r.Route("/api/v1/cart", func(r chi.Router) {
			r.Get("/", controllers.CartGet(deps.Shoppers, logg))
			r.Delete("/", controllers.CartClear(deps.Shoppers, logg))
			r.Post("/items", controllers.CartAddItem(deps.Shoppers, deps.Products, logg))
			r.Delete("/items/{itemId}", controllers.CartRemoveItem(deps.Shoppers, logg))
			r.Post("/items/{itemId}/increment", controllers.CartIncrementItem(deps.Shoppers, logg))
			r.Post("/items/{itemId}/decrement", controllers.CartDecrementItem(deps.Shoppers, logg))
		})

		r.Route("/api/v1/checkout", func(r chi.Router) {
			r.Get("/", controllers.CheckoutGet(deps.Shoppers, logg))
			r.Delete("/", controllers.CheckoutReset(deps.Shoppers, logg))
			r.Post("/prepare", controllers.CheckoutPrepare(deps.Shoppers, logg))
			r.With(idempotent).Post("/pay", controllers.CheckoutPay(deps.Shoppers, logg))
		})

		r.Route("/api/v1/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.List(deps.Orders, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(deps.Orders, logg))
		})

		r.Route("/api/admin/v1", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.UserRoleAdmin, logg))
			r.Route("/products", func(r chi.Router) {
				r.Get("/", controllers.AdminProductList(deps.Products, logg))
				r.With(idempotent).Post("/", controllers.AdminProductCreate(deps.Products, logg))
				r.Put("/{productId}", controllers.AdminProductUpdate(deps.Products, logg))
				r.Delete("/{productId}", controllers.AdminProductDelete(deps.Products, logg))
				r.Patch("/{productId}/status", controllers.AdminProductSetStatus(deps.Products, logg))
			})
			r.Route("/orders", func(r chi.Router) {
				r.Get("/", ordercontrollers.AdminList(deps.Orders, logg))
				r.Patch("/{orderId}/status", ordercontrollers.AdminUpdateStatus(deps.Orders, logg))
			})
		})
	})

	return r
}
