package main

import (
	"log"
	"net/http"

	"tably-server/config"
	"tably-server/database"
	"tably-server/handlers"
	"tably-server/services"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
)

func main() {
	// Load configuration
	if err := config.Load(); err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Connect to database
	db, err := database.Connect(config.AppConfig.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	// Initialize tables
	if err := db.InitializeTables(); err != nil {
		log.Fatal("Failed to initialize tables:", err)
	}

	// Redis is optional; without it restaurant lookups hit the database directly
	var rdb *redis.Client
	if config.AppConfig.RedisURL != "" {
		opts, err := redis.ParseURL(config.AppConfig.RedisURL)
		if err != nil {
			log.Fatal("Invalid REDIS_URL:", err)
		}
		rdb = redis.NewClient(opts)
		log.Printf("Restaurant cache enabled via Redis")
	}

	// Kafka is optional; without a broker check-in events are not published
	var events services.CheckinEventPublisher
	if config.AppConfig.KafkaBroker != "" {
		publisher := services.NewKafkaCheckinPublisher(config.AppConfig.KafkaBroker)
		defer publisher.Close()
		events = publisher
		log.Printf("Check-in events enabled via Kafka at %s", config.AppConfig.KafkaBroker)
	}

	// Wire services
	settingsCache := services.NewSettingsCache(db, rdb)
	notifier := services.NewWhatsappNotifier(services.NewWhatsappClient(), db)
	rewardService := services.NewRewardService(db, db, db, notifier)
	checkinService := services.NewCheckinService(settingsCache, db, db, db, db, rewardService, db, events)

	// Set Gin mode
	if config.AppConfig.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create Gin router
	router := gin.Default()

	// Add CORS middleware
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"}, // Configure this properly for production
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "Tably Server is running",
		})
	})

	// Initialize handlers
	handlers.InitializeHandlers(db, settingsCache, checkinService, rewardService, notifier)

	// API routes
	api := router.Group("/api/v1")
	{
		// Authentication routes
		auth := api.Group("/auth")
		{
			auth.POST("/login", handlers.LoginUser)
			auth.POST("/register", handlers.RegisterUser)
		}

		// Public routes reached through the restaurant slug (no auth)
		public := api.Group("/public/:slug")
		{
			public.GET("/", handlers.GetRestaurant)
			public.GET("/qrcode", handlers.CheckinQRCode)
			public.POST("/checkin", handlers.PublicCheckin)
			public.POST("/spin", handlers.SpinWheel)
		}

		// Check-in routes (staff)
		checkins := api.Group("/checkins")
		checkins.Use(handlers.AuthMiddleware())
		{
			checkins.POST("/", handlers.RecordCheckin)
			checkins.GET("/active", handlers.GetActiveCheckins)
			checkins.PUT("/:id/checkout", handlers.CheckoutCheckin)
			checkins.GET("/analytics", handlers.GetCheckinAnalytics)
		}

		// Reward routes (staff)
		rewards := api.Group("/rewards")
		rewards.Use(handlers.AuthMiddleware())
		{
			rewards.GET("/", handlers.ListRewards)
			rewards.GET("/analytics", handlers.GetRewardsAnalytics)
			rewards.GET("/:id", handlers.GetReward)
			rewards.POST("/", handlers.CreateReward)
			rewards.PUT("/:id", handlers.UpdateReward)
			rewards.DELETE("/:id", handlers.DeleteReward)
		}

		// Coupon routes (staff)
		coupons := api.Group("/coupons")
		coupons.Use(handlers.AuthMiddleware())
		{
			coupons.GET("/validate/:code", handlers.ValidateCoupon)
			coupons.PUT("/:id/redeem", handlers.RedeemCoupon)
		}

		// Customer routes (staff)
		customers := api.Group("/customers")
		customers.Use(handlers.AuthMiddleware())
		{
			customers.GET("/", handlers.ListCustomers)
			customers.POST("/", handlers.CreateCustomer)
			customers.GET("/:id", handlers.GetCustomer)
			customers.PUT("/:id", handlers.UpdateCustomer)
			customers.GET("/:id/coupons", handlers.ListCustomerCoupons)
			customers.POST("/:id/message", handlers.SendCustomerMessage)
		}

		// Settings routes (staff)
		settings := api.Group("/settings")
		settings.Use(handlers.AuthMiddleware())
		{
			settings.GET("/checkin", handlers.GetCheckinSettings)
			settings.PUT("/checkin", handlers.UpdateCheckinSettings)
		}
	}

	// Start server
	log.Printf("Starting Tably Server on 0.0.0.0:%s", config.AppConfig.ServerPort)
	log.Fatal(http.ListenAndServe("0.0.0.0:"+config.AppConfig.ServerPort, c.Handler(router)))
}
