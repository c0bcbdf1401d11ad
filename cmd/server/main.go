package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/retailpos/backoffice/internal/application/dashboard"
	"github.com/retailpos/backoffice/internal/domain/analytics"
	"github.com/retailpos/backoffice/internal/infrastructure/cache"
	"github.com/retailpos/backoffice/internal/infrastructure/config"
	"github.com/retailpos/backoffice/internal/infrastructure/logger"
	"github.com/retailpos/backoffice/internal/infrastructure/persistence"
	"github.com/retailpos/backoffice/internal/interfaces/http/handler"
	"github.com/retailpos/backoffice/internal/interfaces/http/middleware"
	"github.com/retailpos/backoffice/internal/interfaces/http/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting back-office dashboard",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port))

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	results, err := cache.NewResultCache(cfg, log)
	if err != nil {
		log.Fatal("Failed to create result cache", zap.Error(err))
	}
	defer results.Stop()

	loc := cfg.Dashboard.Location()

	salesFeed := persistence.NewSalesFeedRepository(db.DB, cfg.Dashboard.FetchPageSize)
	groupDir := persistence.NewCustomerGroupRepository(db.DB)
	queries := persistence.NewDashboardQueryRepository(db.DB, loc)

	service := dashboard.NewService(queries, salesFeed, groupDir, results, log, dashboard.ServiceConfig{
		TTL:          cfg.Cache.TTL,
		TopN:         cfg.Dashboard.TopN,
		RecentOrders: cfg.Dashboard.RecentOrders,
		Location:     loc,
	})

	// Keep the default unfiltered views warm so the landing page never
	// waits for a cold fetch.
	refresher := dashboard.NewRefresher(service, log, cfg.Dashboard.RefreshInterval,
		dashboard.Query{Range: analytics.DateRange{Kind: analytics.RangeToday}},
		dashboard.Query{Range: analytics.DateRange{Kind: analytics.RangeCurrentMonth}},
	)
	refresher.Start()
	defer refresher.Stop()

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	engine.Use(
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.RequestID(),
		middleware.CORSWithConfig(middleware.DefaultCORSConfig()),
	)

	handler.NewSystemHandler(db).RegisterGlobal(engine)
	router.NewRouter(engine).
		Register(handler.NewDashboardHandler(service, loc, log)).
		Setup()

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}
	log.Info("Server exited gracefully")
}
