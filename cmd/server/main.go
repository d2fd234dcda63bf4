package main

import (
	"fmt"
	"log"
	"net/http"

	"roadassist/internal/config"
	"roadassist/internal/handlers"
	"roadassist/internal/middleware"
	"roadassist/internal/repositories/mongodb"
	"roadassist/internal/services"
	"roadassist/internal/utils"
	"roadassist/pkg/cache"
	"roadassist/pkg/database"
	"roadassist/pkg/logger"
	"roadassist/routes"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := logger.NewLogger(&logger.Config{
		Level:  logger.LogLevel(cfg.App.LogLevel),
		Format: cfg.App.LogFormat,
		Output: "stdout",
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	db, err := database.NewMongoDB(&database.DatabaseConfig{
		URI:            cfg.Database.URI,
		Database:       cfg.Database.Database,
		MaxPoolSize:    cfg.Database.MaxPoolSize,
		MinPoolSize:    cfg.Database.MinPoolSize,
		ConnectTimeout: cfg.Database.ConnectTimeout,
		SocketTimeout:  cfg.Database.SocketTimeout,
	})
	if err != nil {
		appLogger.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer db.Close()

	if err := database.NewMigrator(db.Database).Up(); err != nil {
		appLogger.Fatalf("Failed to run migrations: %v", err)
	}

	// Redis is an optimization, not a dependency; run uncached if absent.
	var cacheService mongodb.CacheService
	redisCache, err := cache.NewRedisCache(&cache.RedisConfig{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		appLogger.WithError(err).Warn("Redis unavailable, continuing without cache")
	} else {
		cacheService = redisCache
		defer redisCache.Close()
	}

	requestRepo := mongodb.NewRequestRepository(db.Database, cacheService)
	providerRepo := mongodb.NewProviderRepository(db.Database, cacheService)
	bookingRepo := mongodb.NewBookingRepository(db.Database)

	dispatchService := services.NewDispatchService(requestRepo, providerRepo, bookingRepo, cfg.Dispatch, appLogger)
	locatorService := services.NewLocatorService(providerRepo, cfg.Dispatch, appLogger)

	assistHandler := handlers.NewAssistHandler(dispatchService, locatorService)

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RequestIDMiddleware())

	v1 := router.Group("/api/v1")
	{
		routes.SetupAssistRoutes(v1, assistHandler, cfg.Security.JWTSecret)
	}

	router.GET("/health", func(c *gin.Context) {
		status := "healthy"
		code := http.StatusOK
		if err := db.Ping(); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":  status,
			"version": utils.AppVersion,
		})
	})

	addr := fmt.Sprintf(":%d", cfg.App.Port)
	appLogger.Infof("Starting %s on %s", cfg.App.Name, addr)
	if err := http.ListenAndServe(addr, router); err != nil {
		appLogger.Fatalf("Server stopped: %v", err)
	}
}
