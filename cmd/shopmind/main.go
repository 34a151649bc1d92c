package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"shopmind/internal/api"
	"shopmind/internal/api/handlers"
	"shopmind/internal/repository"
	"shopmind/internal/service"
	"shopmind/pkg/auth"
	"shopmind/pkg/config"
	"shopmind/pkg/logger"
	"shopmind/pkg/postgres"

	"go.uber.org/zap"
)

// @title Shopmind Assistant API
// @version 1.0
// @description Semantic knowledge retrieval and continuous-learning answer engine for the storefront shopping assistant

// @contact.name API Support
// @contact.email support@shopmind.dev

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	if err := logger.Init(cfg.Logger.Level); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	appLogger := logger.Get()
	appLogger.Info("Starting shopmind assistant service")

	// Initialize database
	ctx := context.Background()
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Initialize repositories
	userRepo := repository.NewUserRepository(db, appLogger)
	productRepo := repository.NewProductRepository(db, appLogger)
	qaRepo := repository.NewQARepository(db, appLogger)

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(cfg.JWT.SecretKey, cfg.JWT.Expiration, cfg.JWT.RefreshExp)

	// Initialize services
	authService := service.NewAuthService(userRepo, jwtManager, appLogger)

	embeddingService := service.NewEmbeddingService(embedderFactory(&cfg.Embedding), appLogger)
	knowledgeService := service.NewKnowledgeService(productRepo, embeddingService, &cfg.Assistant, appLogger)
	learningService := service.NewLearningService(qaRepo, embeddingService, &cfg.Assistant, appLogger)
	assistantService := service.NewAssistantService(embeddingService, knowledgeService, learningService, &cfg.Assistant, appLogger)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, appLogger)
	assistantHandler := handlers.NewAssistantHandler(assistantService, learningService, appLogger)

	// Setup router
	app := api.SetupRouter(authHandler, assistantHandler, jwtManager, appLogger)

	// Start server
	go func() {
		addr := ":" + cfg.Server.Port
		appLogger.Info("Server starting", zap.String("address", addr))
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	if err := app.Shutdown(); err != nil {
		appLogger.Error("Server shutdown error", zap.Error(err))
	}
}

// embedderFactory defers backend construction until the assistant first
// needs a vector; a misconfigured backend disables the assistant instead
// of failing startup.
func embedderFactory(cfg *config.EmbeddingConfig) service.EmbedderFactory {
	return func() (service.Embedder, error) {
		switch strings.ToLower(cfg.Provider) {
		case "local":
			return service.NewLocalEmbedder(cfg.Dimensions)
		default:
			return service.NewOpenAIEmbedder(cfg)
		}
	}
}
