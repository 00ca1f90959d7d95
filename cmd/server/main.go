package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"core/internal/config"
	"core/internal/handler"
	"core/internal/memory"
	"core/internal/repository"
	"core/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Print version info
	log.Printf("Shopping Assistant")
	log.Printf("Version: %s", Version)
	log.Printf("Build Time: %s", BuildTime)
	log.Printf("Git Commit: %s", GitCommit)
	log.Println("")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set Gin mode
	gin.SetMode(cfg.Server.GinMode)

	// Initialize OpenAI-compatible client (shared by intent extraction and
	// reply composition)
	aiClient := service.NewOpenAIClient(&cfg.OpenAI)
	if cfg.OpenAI.Enabled {
		log.Printf("✅ AI client initialized")
		log.Printf("   - API Base: %s", cfg.OpenAI.APIBase)
		log.Printf("   - Chat model: %s", cfg.OpenAI.ChatModel)
		log.Printf("   - Embedding model: %s", cfg.OpenAI.EmbeddingModel)
	} else {
		log.Println("⚠️  AI is disabled - intent extraction and replies will use safe defaults")
		log.Println("   Set OPENAI_API_KEY environment variable to enable AI features")
	}

	// Initialize product search provider
	var searcher service.ProductSearcher
	var repo *repository.ProductRepository
	switch cfg.Search.Provider {
	case config.ProviderCatalog:
		repo, err = repository.NewProductRepository(
			cfg.GetPostgreSQLDSN(),
			cfg.PostgreSQL.MaxConnections,
			cfg.PostgreSQL.MaxIdleConnections,
		)
		if err != nil {
			log.Fatalf("Failed to connect to catalog database: %v", err)
		}
		defer repo.Close()
		searcher = service.NewCatalogSearcher(repo, aiClient)
		log.Println("✅ Connected to PostgreSQL product catalog")
	default:
		searcher = service.NewSerpAPISearcher(&cfg.SerpAPI)
		if cfg.SerpAPI.Enabled {
			log.Printf("✅ SerpAPI product search initialized (engine: %s)", cfg.SerpAPI.Engine)
		} else {
			log.Println("⚠️  SerpAPI is disabled - product search will return nothing")
			log.Println("   Set SERPAPI_KEY environment variable to enable product search")
		}
	}

	// Initialize services
	sessions := memory.NewStore()
	assistant := service.NewAssistant(
		sessions,
		service.NewLLMExtractor(aiClient),
		searcher,
		service.NewLLMReplier(aiClient),
		cfg.Search.MaxResults,
	)

	log.Println("✅ Services initialized")

	// Initialize handlers
	chatHandler := handler.NewChatHandler(assistant)

	// Setup Gin router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Server.AllowedOrigins}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Authorization"}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":     "healthy",
			"service":    "shopping-assistant",
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})

	// Version endpoint
	router.GET("/version", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})

	// API routes
	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/chat", chatHandler.Chat)

		// Embedding maintenance only applies to the local catalog provider
		if repo != nil {
			embeddingHandler := handler.NewEmbeddingHandler(repo, cfg.OpenAI.EmbeddingDimensions)
			apiV1.POST("/embeddings/batch", embeddingHandler.BatchUpdate)
		}
	}

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("🚀 Starting server on %s", addr)
	log.Printf("📝 Chat endpoint: http://localhost:%d/api/v1/chat", cfg.Server.Port)

	// Graceful shutdown
	go func() {
		if err := router.Run(addr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	log.Println("✅ Server stopped")
}
