package main

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"accessgate-backend/cache"
	"accessgate-backend/config"
	"accessgate-backend/controllers"
	"accessgate-backend/database"
	"accessgate-backend/middlewares"
	"accessgate-backend/routes"
	"accessgate-backend/services"
)

func main() {
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer logger.Sync()

	// ---- Database
	if err := database.Connect(cfg); err != nil {
		logger.Fatal("database connect failed", zap.Error(err))
	}
	if err := database.AutoMigrate(); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}
	store := database.NewStore(database.DB)
	writer := database.NewWriter(database.DB)

	// ---- Cache + rate limit backends (Redis when configured, local otherwise)
	var permCache cache.PermissionCache
	var windowStore middlewares.WindowStore
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		permCache = cache.NewRedisCache(rdb, cfg.PermissionCacheTTL, logger)
		windowStore = middlewares.NewRedisWindowStore(rdb)
		logger.Info("using redis backends", zap.String("addr", cfg.RedisAddr))
	} else {
		permCache = cache.NewLocalCache(cfg.PermissionCacheTTL, logger)
		windowStore = middlewares.NewLocalWindowStore()
		logger.Info("using in-process backends")
	}

	// ---- Services
	audit := services.NewAuditRecorder(logger, database.DB)
	classifier := services.NewAPIKeyClassifier(cfg, store, audit)
	issuer := services.NewTokenIssuer(cfg.PrivateKeyPath, cfg.TokenIssuer, cfg.TokenAudience, cfg.TokenLifetime)
	resolver := services.NewPermissionResolver(store, permCache, audit)

	// ---- Fiber app with global error handler
	app := fiber.New(fiber.Config{
		ErrorHandler: middlewares.ErrorHandler,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowCredentials: false, // using Bearer tokens, not cookies
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-API-Key",
	}))

	app.Use(middlewares.NewRateLimiter(cfg, windowStore, logger).Handle())

	// ---- Routes
	routes.Register(app, routes.Deps{
		Cfg: cfg,
		Auth: &controllers.AuthController{
			DB: writer, Store: store, Issuer: issuer, Resolver: resolver, Audit: audit,
		},
		Permission: &controllers.PermissionController{Resolver: resolver},
		Admin:      &controllers.AdminController{DB: writer, Cache: permCache, Audit: audit},
		Classifier: classifier,
	})

	// ---- Start
	logger.Info("starting API server", zap.String("port", cfg.Port))
	if err := app.Listen(":" + cfg.Port); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
