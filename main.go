package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gamification-system/config"
	"gamification-system/handlers"
	"gamification-system/middleware"
	"gamification-system/models"
	"gamification-system/services"
	"gamification-system/utils"
	"gamification-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config:", err)
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := services.NewHub()
	members := services.NewMemberService(db)
	ledger := services.NewLedgerService(db, cfg.Levels, cfg.FirstTimeBonus, hub)
	badges := services.NewBadgeService(db, ledger, cfg.Badges, hub)
	progression := services.NewProgressionService(db, ledger, badges)
	activity := services.NewActivityService(db, progression, cfg.BasePoints)
	claims := services.NewClaimService(db)

	var cache services.LeaderboardCache = services.NewMemoryCache()
	if cfg.SharedCache {
		cache = services.NewDBCache(db)
	}
	boards := services.NewLeaderboardService(services.NewRankingEngine(db, cfg.Weights), cache, cfg.CacheTTLs)

	var archiver services.SnapshotArchiver
	if cfg.R2.Configured() {
		r2, err := utils.NewR2Archiver(ctx, cfg.R2)
		if err != nil {
			log.Fatal("failed to initialize R2 client:", err)
		}
		archiver = r2
	} else {
		log.Println("⚠️  R2 not configured, leaderboard snapshots will not be archived")
	}

	sched, err := services.StartScheduler(cfg.Scheduler, ledger, boards, archiver)
	if err != nil {
		log.Fatal("failed to start scheduler:", err)
	}

	if cfg.SyncServiceURL != "" {
		workers.NewMemberSyncWorker(db, cfg.SyncServiceURL, cfg.SyncServiceToken, cfg.SyncInterval).Start(ctx)
		go workers.PollContent(ctx, workers.NewContentSyncClient(db, cfg.SyncServiceURL, cfg.SyncServiceToken), cfg.SyncInterval)
	} else {
		log.Println("⚠️  SYNC_SERVICE_URL not set, members and content are only written through the API")
	}

	app := fiber.New()

	// 🔐❗ GLOBAL: Only Gateway requests allowed, no exceptions
	app.Use(middleware.GatewayAuthMiddleware(cfg.GatewayToken))

	allowedOrigins := strings.Join(cfg.AllowedOrigins, ",")
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     "GET,POST,DELETE,OPTIONS,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, Cache-Control, X-User-ID, X-User-Roles",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	handlers.SetupLeaderboardRoutes(app, boards)
	handlers.SetupEventRoutes(app, hub)
	handlers.SetupProgressionRoutes(app, progression)
	handlers.SetupPoolRoutes(app, claims)
	handlers.SetupActivityRoutes(app, activity)
	handlers.SetupAdminRoutes(app, handlers.AdminDeps{
		Ledger:   ledger,
		Claims:   claims,
		Activity: activity,
		Members:  members,
	})

	go func() {
		if err := app.Listen(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%d", cfg.Port)
	log.Println("✅ GatewayAuthMiddleware enforced globally, all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOrigins)

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := sched.Shutdown(); err != nil {
		log.Printf("scheduler shutdown: %v", err)
	}
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("server shutdown: %v", err)
	}
}
