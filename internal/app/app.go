package app

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"

	"memberbase/internal/config"
	"memberbase/internal/handlers"
	"memberbase/internal/middleware"
	"memberbase/internal/repositories"
	"memberbase/internal/routes"
	"memberbase/internal/services"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "memberbase/docs"
)

func Run() {
	cfg, err := config.Load("config/config.yaml")
	if err != nil {
		log.Fatal("config: ", err)
	}

	// === DB ===
	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		log.Fatal("database connection: ", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("database close: %v", err)
		}
	}()
	if err := db.Ping(); err != nil {
		log.Fatal("database ping: ", err)
	}

	middleware.SetSigningKey(cfg.JWT.Secret)

	// === Repos ===
	userRepo := repositories.NewUserRepository(db)
	resetRepo := repositories.NewPasswordResetRepository(db)

	// === Services ===
	authService := services.NewAuthService(cfg.JWT.Secret)
	emailService, err := services.NewEmailService(cfg)
	if err != nil {
		log.Fatal("email service: ", err)
	}

	var notifier services.Notifier
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != 0 {
		notifier, err = services.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			// signup notifications are best-effort; run without them
			log.Printf("telegram notifier disabled: %v", err)
			notifier = nil
		}
	}

	userService := services.NewUserService(userRepo, emailService, authService, notifier)
	resetService := services.NewPasswordResetService(userRepo, resetRepo, emailService, authService)

	// === Handlers ===
	authHandler := handlers.NewAuthHandler(userService, authService, cfg.IsProduction())
	verifyHandler := handlers.NewVerifyHandler(userService)
	userHandler := handlers.NewUserHandler(userService)
	resetHandler := handlers.NewPasswordResetHandler(resetService)

	// === Gin ===
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	router.Use(middleware.RequestID())
	router.Use(corsMiddleware(cfg.App.FrontendURL))

	// Swagger
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	routes.SetupRoutes(router, authHandler, verifyHandler, userHandler, resetHandler)

	// === Run ===
	listenAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("listening on %s (env=%s)", listenAddr, cfg.App.Env)
	if err := router.Run(listenAddr); err != nil {
		log.Fatal("server: ", err)
	}
}

// The SPA runs on its own origin and sends the auth cookie, so the allowed
// origin must be explicit, not "*".
func corsMiddleware(frontendURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if frontendURL != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", frontendURL)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
