package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	appLogger "github.com/FACorreiaa/secondhand-market/app/logger"
	appMiddleware "github.com/FACorreiaa/secondhand-market/app/middleware"
	"github.com/FACorreiaa/secondhand-market/internal/api/auth"
	"github.com/FACorreiaa/secondhand-market/internal/api/category"
	"github.com/FACorreiaa/secondhand-market/internal/api/order"
	"github.com/FACorreiaa/secondhand-market/internal/api/product"
	"github.com/FACorreiaa/secondhand-market/internal/api/user"
)

// Config contains dependencies needed for the router setup
type Config struct {
	Logger          *slog.Logger
	AuthHandler     auth.Handler
	UserHandler     user.Handler
	CategoryHandler category.Handler
	ProductHandler  product.Handler
	OrderHandler    order.Handler

	// AuthenticateMiddleware rejects requests without a valid access token.
	AuthenticateMiddleware func(http.Handler) http.Handler
	// OptionalAuthMiddleware attaches the user when a valid token is present.
	OptionalAuthMiddleware func(http.Handler) http.Handler
	// Metrics is optional per-route request instrumentation.
	Metrics func(http.Handler) http.Handler

	AllowedOrigins   []string
	RequestTimeout   time.Duration
	AuthRateRequests int
	AuthRateWindow   time.Duration
}

// SetupRouter builds the full application router including server-wide middleware.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(appLogger.StructuredLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}
	r.Use(middleware.Compress(5, "application/json"))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics)
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Location"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	})
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	rateRequests, rateWindow := cfg.AuthRateRequests, cfg.AuthRateWindow
	if rateRequests <= 0 {
		rateRequests = 10
	}
	if rateWindow <= 0 {
		rateWindow = time.Minute
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Auth
		r.Route("/auth", func(r chi.Router) {
			r.Use(appMiddleware.NoStore)

			r.Group(func(r chi.Router) {
				r.Use(appMiddleware.RateLimitByIP(rateRequests, rateWindow))
				r.Post("/send-code", cfg.AuthHandler.SendVerificationCode)
				r.Post("/verify-code", cfg.AuthHandler.VerifyCode)
				r.Post("/register", cfg.AuthHandler.Register)
				r.Post("/login", cfg.AuthHandler.Login)
				r.Post("/google", cfg.AuthHandler.GoogleTokenLogin)
			})
			r.Post("/refresh", cfg.AuthHandler.RefreshSession)
			r.Post("/logout", cfg.AuthHandler.Logout)
			r.Get("/google/login", cfg.AuthHandler.GoogleLogin)
			r.Get("/google/callback", cfg.AuthHandler.GoogleCallback)

			r.Group(func(r chi.Router) {
				r.Use(cfg.AuthenticateMiddleware)
				r.Get("/me", cfg.AuthHandler.Me)
				r.Put("/password", cfg.AuthHandler.ChangePassword)
			})
		})

		// Catalogue
		r.Get("/categories", cfg.CategoryHandler.ListCategories)

		r.Route("/products", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(cfg.OptionalAuthMiddleware)
				r.Get("/", cfg.ProductHandler.ListProducts)
				r.Get("/{productID}", cfg.ProductHandler.GetProduct)
			})
			r.Group(func(r chi.Router) {
				r.Use(cfg.AuthenticateMiddleware)
				r.Post("/", cfg.ProductHandler.CreateProduct)
				r.Put("/{productID}", cfg.ProductHandler.UpdateProduct)
				r.Patch("/{productID}/status", cfg.ProductHandler.UpdateStatus)
				r.Delete("/{productID}", cfg.ProductHandler.DeleteProduct)
			})
		})

		// Users
		r.Route("/users", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(cfg.AuthenticateMiddleware)
				r.Get("/me", cfg.UserHandler.GetUserProfile)
				r.Put("/me", cfg.UserHandler.UpdateUserProfile)
				r.Get("/me/products", cfg.UserHandler.ListMyProducts)
			})
			r.Get("/{userID}", cfg.UserHandler.GetPublicProfile)
			r.Get("/{userID}/products", cfg.UserHandler.ListUserProducts)
		})

		// Orders
		r.Route("/orders", func(r chi.Router) {
			r.Use(cfg.AuthenticateMiddleware)
			r.Post("/", cfg.OrderHandler.PlaceOrder)
			r.Get("/", cfg.OrderHandler.ListPurchases)
			r.Get("/sales", cfg.OrderHandler.ListSales)
			r.Get("/{orderID}", cfg.OrderHandler.GetOrder)
			r.Post("/{orderID}/cancel", cfg.OrderHandler.CancelOrder)
			r.Post("/{orderID}/complete", cfg.OrderHandler.CompleteOrder)
		})
	})

	return r
}
