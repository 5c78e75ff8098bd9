package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"loyalty-points-system/handlers"
	"loyalty-points-system/middleware"
	"loyalty-points-system/models"
	"loyalty-points-system/services"
	"loyalty-points-system/utils"
	"loyalty-points-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024, // 10MB — badge icon uploads only
	})

	// 🔐❗ GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-User-ID, X-User-Roles",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	// TranslateError so the badge unique-constraint guard surfaces as
	// gorm.ErrDuplicatedKey.
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.LoyaltyAccount{},
		&models.LoyaltyTransaction{},
		&models.Badge{},
		&models.AccountBadge{},
		&models.Streak{},
		&models.Referral{},
		&models.Reward{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	ledgerService := services.NewLedgerService(db)
	badgeService := services.NewBadgeService(db, ledgerService)
	streakService := services.NewStreakService(db, ledgerService)
	referralService := services.NewReferralService(db, ledgerService)
	orderEventService := services.NewOrderEventService(db, ledgerService, streakService, badgeService, referralService)

	if err := badgeService.SeedDefaultBadges(); err != nil {
		log.Fatal("failed to seed badge catalog:", err)
	}

	referralTTL := 90 * 24 * time.Hour
	if v := os.Getenv("REFERRAL_PENDING_TTL_DAYS"); v != "" {
		if days, parseErr := strconv.Atoi(v); parseErr == nil && days > 0 {
			referralTTL = time.Duration(days) * 24 * time.Hour
		}
	}
	services.StartMaintenanceScheduler(ledgerService, referralService, referralTTL)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	auditor := workers.NewLedgerAuditor(db, ledgerService)
	go workers.PollLedgerAudits(ctx, auditor, 5*time.Minute)

	// ✅ Setup routes — enforced Gateway auth + consistent /s/ prefix
	handlers.SetupLoyaltyRoutes(app, ledgerService, orderEventService)
	handlers.SetupBadgeRoutes(app, badgeService)
	handlers.SetupReferralRoutes(app, referralService)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ Ledger audit polling running (every 5m)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
}
