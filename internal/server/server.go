package server

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"spice-store/internal/assets"
	"spice-store/internal/config"
	custommiddleware "spice-store/internal/middleware"
	"spice-store/internal/notification"
	"spice-store/internal/repository"
	"spice-store/internal/service"
	"spice-store/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	db     *sql.DB
	redis  *redis.Client
}

func NewServer(cfg *config.Config, logger *zap.Logger, db *sql.DB) *Server {
	// Create router
	router := chi.NewRouter()

	isDevelopment := cfg.Server.Env == "development"

	// Add basic middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.Recovery(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins, isDevelopment))

	// Health check endpoint
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Redis backs the checkout rate limiter only.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	checkoutLimiter := custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
		RequestsPerWindow: cfg.Store.CheckoutPerMin,
		Window:            time.Minute,
		KeyPrefix:         "checkout",
	}, logger)

	// Initialize repositories
	productRepo := repository.NewProductRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	adminRepo := repository.NewAdminRepository(db)
	refreshTokenRepo := repository.NewRefreshTokenRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)

	// Initialize services
	cleaner := assets.NewClient(cfg.Assets, logger)
	store := notification.Store{
		Name:     cfg.Store.Name,
		Currency: cfg.Store.Currency,
		Contact:  cfg.Store.WhatsAppContact,
	}
	orderService := service.NewOrderService(orderRepo, productRepo, store)
	catalogService := service.NewCatalogService(productRepo, categoryRepo, orderRepo, cleaner)
	categoryService := service.NewCategoryService(categoryRepo, productRepo, cleaner)
	adminService := service.NewAdminService(adminRepo, refreshTokenRepo, cfg.JWT.Secret, cfg.JWT.AccessExpiry, cfg.JWT.RefreshExpiry)
	analyticsService := service.NewAnalyticsService(analyticsRepo, orderRepo, cfg.Store.LowStockLevel)

	// Initialize handlers
	orderHandler := transport.NewOrderHandler(orderService, logger)
	productHandler := transport.NewProductHandler(catalogService, logger)
	categoryHandler := transport.NewCategoryHandler(categoryService, logger)
	adminHandler := transport.NewAdminHandler(adminService, logger)
	analyticsHandler := transport.NewAnalyticsHandler(analyticsService, logger)

	// Create auth middleware
	authMiddleware := custommiddleware.AuthMiddleware(cfg.JWT.Secret, logger)
	requireManager := custommiddleware.RequireManager(logger)
	requireSuperAdmin := custommiddleware.RequireSuperAdmin(logger)

	// Public storefront routes
	productHandler.RegisterPublicRoutes(router)
	categoryHandler.RegisterPublicRoutes(router)
	orderHandler.RegisterPublicRoutes(router, checkoutLimiter)
	adminHandler.RegisterAuthRoutes(router)

	// Authenticated back-office routes
	router.Route("/api/admin", func(r chi.Router) {
		r.Use(authMiddleware)

		adminHandler.RegisterProfileRoutes(r)
		orderHandler.RegisterAdminRoutes(r, requireManager)
		productHandler.RegisterAdminRoutes(r)
		categoryHandler.RegisterAdminRoutes(r)
		analyticsHandler.RegisterAdminRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(requireSuperAdmin)
			adminHandler.RegisterManagementRoutes(r)
		})
	})

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config: cfg,
		logger: logger,
		db:     db,
		redis:  redisClient,
	}

	return server
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis connection", zap.Error(err))
		}
	}

	// Close database connection
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
