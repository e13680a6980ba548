package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/craftora/affiliate_backend/config"
	"github.com/craftora/affiliate_backend/controllers"
	"github.com/craftora/affiliate_backend/middleware"
	"github.com/craftora/affiliate_backend/repositories"
	"github.com/craftora/affiliate_backend/routes"
	"github.com/craftora/affiliate_backend/services"
)

// CustomValidator is a custom validator for Echo
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates the request body
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func main() {
	// Load .env file
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found")
	}

	// Connect to Redis
	redisClient := config.ConnectRedis()

	// Connect to database
	client := config.ConnectDB()
	db := config.GetDatabase(client)

	defaultRate := 0.10
	if rateStr := os.Getenv("DEFAULT_COMMISSION_RATE"); rateStr != "" {
		if rate, err := strconv.ParseFloat(rateStr, 64); err == nil {
			defaultRate = rate
		}
	}
	linkBase := os.Getenv("REFERRAL_LINK_BASE")
	if linkBase == "" {
		linkBase = "https://craftora.com/shop"
	}

	// Initialize repositories
	txnRunner := repositories.NewMongoTxnRunner(client)
	affiliateRepo := repositories.NewMongoAffiliateRepository(db)
	clickRepo := repositories.NewMongoClickRepository(db)
	referralRepo := repositories.NewMongoReferralRepository(db)
	competitionRepo := repositories.NewMongoCompetitionRepository(db)
	participantRepo := repositories.NewMongoParticipantRepository(db)
	payoutRepo := repositories.NewMongoPayoutRepository(db)
	auditRepo := repositories.NewMongoAuditRepository(db)

	// Initialize services
	leaderboardCache := services.NewLeaderboardCache(redisClient, 0)
	affiliateService := services.NewAffiliateService(affiliateRepo, referralRepo, auditRepo, defaultRate, linkBase)
	clickService := services.NewClickService(clickRepo, affiliateRepo)
	referralService := services.NewReferralService(txnRunner, referralRepo, affiliateRepo, clickRepo, competitionRepo, participantRepo)
	competitionService := services.NewCompetitionService(competitionRepo, participantRepo, affiliateRepo, leaderboardCache)
	payoutService := services.NewPayoutService(txnRunner, payoutRepo, referralRepo, affiliateRepo)

	// Initialize controllers
	affiliateController := controllers.NewAffiliateController(affiliateService)
	clickController := controllers.NewClickController(clickService)
	referralController := controllers.NewReferralController(referralService)
	competitionController := controllers.NewCompetitionController(competitionService)
	payoutController := controllers.NewPayoutController(payoutService)

	// Create a new Echo instance
	e := echo.New()

	// Initialize custom validator
	customValidator := &CustomValidator{validator: validator.New()}
	e.Validator = customValidator

	// Initialize rate limiter
	rateLimiter := middleware.NewRateLimiter()

	// Middleware
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(rateLimiter.RateLimit())
	e.Use(middleware.SecurityHeaders())

	e.Match([]string{"GET", "HEAD"}, "/", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":  "OK",
			"message": "Craftora Affiliate Backend is running",
			"version": "1.0",
		})
	})

	e.Match([]string{"GET", "HEAD"}, "/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":   "healthy",
			"database": "connected",
		})
	})

	// Register routes
	routes.RegisterAffiliateRoutes(e, affiliateController)
	routes.RegisterReferralRoutes(e, clickController, referralController)
	routes.RegisterCompetitionRoutes(e, competitionController)
	routes.RegisterPayoutRoutes(e, payoutController)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	go func() {
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server error:", err)
		}
	}()

	// Wait for an interrupt, then drain connections and close the stores.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	config.CloseRedis()
	if err := client.Disconnect(ctx); err != nil {
		log.Printf("MongoDB disconnect error: %v", err)
	}
}
