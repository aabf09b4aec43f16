package container

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	database "github.com/FACorreiaa/secondhand-market/app/db"
	"github.com/FACorreiaa/secondhand-market/app/mailer"
	"github.com/FACorreiaa/secondhand-market/config"
	"github.com/FACorreiaa/secondhand-market/internal/api/auth"
	"github.com/FACorreiaa/secondhand-market/internal/api/category"
	"github.com/FACorreiaa/secondhand-market/internal/api/order"
	"github.com/FACorreiaa/secondhand-market/internal/api/product"
	"github.com/FACorreiaa/secondhand-market/internal/api/user"
)

// Container holds all application dependencies
type Container struct {
	Config          *config.Config
	Logger          *slog.Logger
	Pool            *pgxpool.Pool
	Tokens          *auth.TokenManager
	AuthHandler     *auth.HandlerImpl
	UserHandler     *user.HandlerImpl
	CategoryHandler *category.HandlerImpl
	ProductHandler  *product.HandlerImpl
	OrderHandler    *order.HandlerImpl
}

// NewContainer opens the pool and wires repositories, services and handlers.
func NewContainer(cfg *config.Config, logger *slog.Logger) (*Container, error) {
	dbConfig, err := database.NewDatabaseConfig(cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		return nil, err
	}

	pool, err := database.Init(dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.Any("error", err))
		return nil, err
	}

	c := New(cfg, pool, logger)
	c.Pool = pool
	return c, nil
}

// New wires the application on top of an existing Querier.
func New(cfg *config.Config, db database.Querier, logger *slog.Logger) *Container {
	secureCookies := !cfg.IsDevelopment()
	googleEnabled := auth.SetupGoogleProvider(cfg.OAuth.Google, secureCookies)
	if !googleEnabled {
		logger.Warn("Google OAuth client not configured, web redirect login disabled")
	}

	tokens := auth.NewTokenManager(cfg.JWT)

	// auth
	authRepo := auth.NewPostgresAuthRepo(db, logger)
	authService := auth.NewAuthService(authRepo, tokens,
		mailer.New(cfg.SMTP, logger),
		auth.NewGoogleTokenVerifier(cfg.OAuth.Google.UserInfoURL, logger),
		cfg.Verification, logger)
	authHandler := auth.NewHandlerImpl(authService, logger, auth.HandlerOptions{
		SecureCookies:      secureCookies,
		RefreshTTL:         tokens.RefreshTTL(),
		GoogleEnabled:      googleEnabled,
		SuccessRedirectURL: cfg.OAuth.Google.SuccessRedirectURL,
	})

	// categories
	categoryRepo := category.NewPostgresCategoryRepo(db, logger)
	categoryService := category.NewCategoryService(categoryRepo, cfg.Cache.CategoryTTL, logger)
	categoryHandler := category.NewHandlerImpl(categoryService, logger)

	// products
	productRepo := product.NewPostgresProductRepo(db, logger)
	productService := product.NewProductService(productRepo, categoryService, logger)
	productHandler := product.NewHandlerImpl(productService, logger)

	// users
	userRepo := user.NewPostgresUserRepo(db, logger)
	userService := user.NewUserService(userRepo, logger)
	userHandler := user.NewHandlerImpl(userService, productService, logger)

	// orders
	orderRepo := order.NewPostgresOrderRepo(db, logger)
	orderService := order.NewOrderService(orderRepo, logger)
	orderHandler := order.NewHandlerImpl(orderService, logger)

	return &Container{
		Config:          cfg,
		Logger:          logger,
		Tokens:          tokens,
		AuthHandler:     authHandler,
		UserHandler:     userHandler,
		CategoryHandler: categoryHandler,
		ProductHandler:  productHandler,
		OrderHandler:    orderHandler,
	}
}

// Close releases all resources held by the container
func (c *Container) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
}

// WaitForDB waits for the database to be ready
func (c *Container) WaitForDB(ctx context.Context) bool {
	return database.WaitForDB(ctx, c.Pool, c.Logger)
}
