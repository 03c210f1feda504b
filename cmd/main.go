package main

import (
	"bizdesk/internal/caching"
	"bizdesk/internal/config"
	"bizdesk/internal/handlers"
	"bizdesk/internal/metrics"
	"bizdesk/internal/middleware"
	"bizdesk/internal/repositories"
	"bizdesk/internal/services"
	"bizdesk/pkg/database"
	"bizdesk/pkg/logger"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	if err := logger.InitLogger(cfg.Log.Level, cfg.Server.Env); err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	defer log.Sync()
	log.Info("starting bizdesk", zap.String("environment", cfg.Server.Env))

	pool, err := database.NewPool(cfg.DB.DSN())
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()
	log.Info("database connection established")

	cacheSvc := caching.NewRedisCacheService(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)

	metrics.InitMetrics()

	// Repositories
	userRepo := repositories.NewUserRepo(pool)
	companyRepo := repositories.NewCompanyRepo(pool)

	// Services
	tokenSvc := services.NewTokenService(cfg.JWT)
	authSvc := services.NewAuthService(pool, userRepo, companyRepo, tokenSvc, cacheSvc, cfg.Token, log)
	companySvc := services.NewCompanyService(userRepo, companyRepo, tokenSvc, cfg.Token)
	userSvc := services.NewUserService(userRepo, companyRepo, cfg.Token)

	// Handlers
	authHandlers := handlers.NewAuthHandlers(authSvc)
	companyHandlers := handlers.NewCompanyHandlers(companySvc)
	userHandlers := handlers.NewUserHandlers(userSvc)
	healthHandlers := handlers.NewHealthHandlers(pool, cacheSvc)

	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(echomiddleware.RequestID())
	e.Use(logger.Middleware())
	e.Use(metrics.MetricsMiddleware())

	// Probes and metrics
	e.GET("/health", healthHandlers.HealthCheck)
	e.GET("/health/live", healthHandlers.LivenessCheck)
	e.GET("/metrics", metrics.Handler())

	// Public auth surface
	auth := e.Group("/auth")
	auth.POST("/register", authHandlers.Register)
	auth.POST("/login", authHandlers.Login)
	auth.POST("/refresh", authHandlers.Refresh)
	auth.POST("/forgot-password", authHandlers.ForgotPassword)
	auth.POST("/reset-password", authHandlers.ResetPassword)
	auth.POST("/logout", authHandlers.Logout)

	// Public invitation surface
	invitations := e.Group("/companies/invitation")
	invitations.POST("/check", companyHandlers.CheckInvitation)
	invitations.POST("/accept", companyHandlers.AcceptInvitation)

	authRequired := middleware.JWTMiddleware(tokenSvc, cacheSvc)

	// Self-service profile
	users := e.Group("/users", authRequired)
	users.GET("/me", userHandlers.GetProfile)
	users.PUT("/me", userHandlers.UpdateProfile)
	users.POST("/me/password", userHandlers.ChangePassword)

	// Company management, owner only
	owner := e.Group("/companies/my", authRequired, middleware.RequireCompanyOwner())
	owner.GET("", companyHandlers.GetMyCompany)
	owner.PUT("", companyHandlers.UpdateMyCompany)
	owner.GET("/employees", companyHandlers.GetEmployees)
	owner.POST("/employees", companyHandlers.InviteEmployee)
	owner.DELETE("/employees/:id", companyHandlers.RemoveEmployee)

	log.Info("starting server", zap.String("port", cfg.Server.Port))
	if err := e.Start(":" + cfg.Server.Port); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
