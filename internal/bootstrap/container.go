package bootstrap

import (
	"context"
	"log"
	"time"

	"accident-advisor-be/internal/config"
	"accident-advisor-be/internal/controller"
	"accident-advisor-be/internal/pkg/logger"
	"accident-advisor-be/internal/repository/unitofwork"
	"accident-advisor-be/internal/service"
	"accident-advisor-be/pkg/advisor"
	"accident-advisor-be/pkg/advisor/classify"
	"accident-advisor-be/pkg/advisor/retrieval"
	"accident-advisor-be/pkg/advisor/session"
	"accident-advisor-be/pkg/embedding"
	"accident-advisor-be/pkg/llm/factory"

	pktNats "accident-advisor-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ChatController     controller.IChatController
	DocumentController controller.IDocumentController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. AI Providers
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.EmbeddingModel,
			cfg.Ai.EmbeddingDimensions,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.EmbeddingModel)
	} else {
		embeddingProvider = embedding.NewOpenAIProvider(cfg.Ai.OpenAIAPIKey, cfg.Ai.EmbeddingModel)
		log.Printf("[INFO] Using Embedding Provider: OPENAI")
	}

	llmProvider, err := factory.NewLLMProvider(factory.Config{
		Provider:  cfg.Ai.LLMProvider,
		Model:     cfg.Ai.LLMModel,
		APIKey:    cfg.Ai.OpenAIAPIKey,
		OllamaURL: cfg.Ai.OllamaBaseURL,
	})
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 4. Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}

	// Session store. Redis keeps sessions across restarts, memory is the
	// single-instance default.
	var sessionStore session.Store
	if cfg.Advisor.SessionStore == "redis" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{
				Addr: cfg.App.RedisURL,
			}
		}
		rdb := redis.NewClient(opt)
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
		}
		sessionStore = session.NewRedisStore(rdb, cfg.Advisor.SessionTTL)
		log.Printf("[INFO] Using Session Store: REDIS")
	} else {
		sessionStore = session.NewMemoryStore()
		log.Printf("[INFO] Using Session Store: MEMORY")
	}

	// 5. Advisory Pipeline
	classifier := classify.NewClassifier(
		classify.DefaultTable(),
		classify.DefaultConfig(),
		llmProvider,
		nil,
	)

	documentIndex := service.NewDocumentIndex(uowFactory, cfg.Advisor.MinSimilarity)

	retrievalConfig := retrieval.DefaultConfig()
	retrievalConfig.TopK = cfg.Advisor.RetrievalK
	retrievalConfig.MaxResults = cfg.Advisor.MaxResults
	retrievalConfig.MinSimilarity = cfg.Advisor.MinSimilarity
	engine := retrieval.NewEngine(documentIndex, embeddingProvider, retrievalConfig, nil)

	memoryConfig := session.DefaultConfig()
	memoryConfig.Capacity = cfg.Advisor.SessionCapacity
	memoryConfig.MaxEntities = cfg.Advisor.SessionMaxEntities
	memoryConfig.TTL = cfg.Advisor.SessionTTL
	sessionMemory := session.NewMemory(sessionStore, memoryConfig, nil)

	orchestratorConfig := advisor.DefaultConfig()
	orchestratorConfig.MaxHistory = cfg.Advisor.MaxHistory
	orchestratorConfig.MaxConcurrentGenerations = int64(cfg.Advisor.MaxConcurrentGenerations)
	orchestratorConfig.GenerationTimeout = time.Duration(cfg.Advisor.GenerationTimeoutSec) * time.Second
	orchestrator := advisor.NewOrchestrator(
		classifier,
		engine,
		sessionMemory,
		llmProvider,
		orchestratorConfig,
		nil,
	)

	// 6. Services
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Advisor.IngestTopic,
		uowFactory,
		embeddingProvider,
	)
	ingestService := service.NewIngestService(pubSub, cfg.Advisor.IngestTopic)

	var eventPublisher service.EventPublisher
	if natsPub != nil {
		eventPublisher = natsPub
	}

	chatService := service.NewChatService(
		uowFactory,
		orchestrator,
		eventPublisher,
		sysLogger,
	)

	// Background maintenance and analytics
	maintenanceService := service.NewMaintenanceService(sessionMemory, cfg.Advisor.SweepInterval, eventPublisher, sysLogger)
	maintenanceService.Start(context.Background())

	if natsSub != nil {
		// Analytics is chatty, keep it out of the main log.
		analyticsLogger := logger.NewIsolatedLogger("logs/analytics.log")
		analyticsService := service.NewAnalyticsService(natsSub, analyticsLogger)
		if err := analyticsService.Start(); err != nil {
			log.Printf("[WARN] Failed to start analytics consumer: %v", err)
		}
	}

	// 7. Controllers
	return &Container{
		ChatController:     controller.NewChatController(chatService),
		DocumentController: controller.NewDocumentController(ingestService),

		ConsumerService: consumerService,
	}
}
