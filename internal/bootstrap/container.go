package bootstrap

import (
	"context"
	"log"
	"time"

	"ai-mail-workspace-be/internal/config"
	"ai-mail-workspace-be/internal/controller"
	"ai-mail-workspace-be/internal/handler"
	"ai-mail-workspace-be/internal/pkg/logger"
	"ai-mail-workspace-be/internal/pkg/wsticket"
	"ai-mail-workspace-be/internal/repository/memory"
	"ai-mail-workspace-be/internal/repository/unitofwork"
	"ai-mail-workspace-be/internal/service"
	"ai-mail-workspace-be/internal/websocket"
	"ai-mail-workspace-be/pkg/llm/factory"
	"ai-mail-workspace-be/pkg/mailbox/gmail"
	"ai-mail-workspace-be/pkg/searchagent"

	pktNats "ai-mail-workspace-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// tokenCacheTTL caps how long a Google access token is served from memory;
// the token service also checks the token's own expiry.
const tokenCacheTTL = 50 * time.Minute

type Container struct {
	// Controllers
	AuthController controller.IAuthController
	MailController controller.IMailController
	AIController   controller.IAIController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// WebSockets
	WsHandler    *handler.WsHandler
	WebSocketHub *websocket.Hub

	Logger  logger.ILogger
	closers []func()
}

// NewContainer wires every component. sysLogger is shared with the database
// layer so SQL tracing lands in the same log.
func NewContainer(db *gorm.DB, cfg *config.Config, sysLogger logger.ILogger) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	if sysLogger == nil {
		sysLogger = logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	}
	wsLogger := logger.NewIsolatedLogger(cfg.App.WsLogFilePath)

	// 2. Event Bus
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermill.NewStdLogger(false, false),
	)

	// 3. Infrastructure
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}

	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{Addr: cfg.App.RedisURL}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	wsHub := websocket.NewHub(rdb, wsLogger)

	// 4. Google
	googleConf := service.NewGoogleOAuthConfig(cfg.Google)
	tokenCache := memory.NewTokenCache(tokenCacheTTL)
	tokenService := service.NewTokenService(uowFactory, googleConf, tokenCache, sysLogger)

	location, err := time.LoadLocation(cfg.App.MailTimezone)
	if err != nil {
		log.Printf("[WARN] Unknown MAIL_TIMEZONE %q, using UTC", cfg.App.MailTimezone)
		location = time.UTC
	}
	gmailClient := gmail.NewClient(tokenService, location)

	// 5. Services
	authService := service.NewAuthService(uowFactory, googleConf, cfg.Auth, tokenCache, sysLogger)
	mailService := service.NewMailService(gmailClient, wsHub, sysLogger)
	memoryService := service.NewMemoryService(uowFactory, sysLogger)

	agent := searchagent.NewAgent(
		factory.NewClientFactory(factory.Settings{
			GeminiAPIKey:  cfg.Ai.GeminiAPIKey,
			GeminiModel:   cfg.Ai.GeminiModel,
			GeminiBaseURL: cfg.Ai.GeminiBaseURL,
			GroqAPIKey:    cfg.Ai.GroqAPIKey,
			GroqModel:     cfg.Ai.GroqModel,
			GroqBaseURL:   cfg.Ai.GroqBaseURL,
			Temperature:   cfg.Ai.Temperature,
			MaxTokens:     cfg.Ai.MaxTokens,
			MaxToolRounds: cfg.Ai.MaxToolRounds,
		}),
		mailService,
		searchagent.Config{
			DefaultProvider: cfg.Ai.DefaultModel,
			Tools: searchagent.ToolConfig{
				SearchToolName: cfg.Ai.SearchToolName,
				TopKDefault:    cfg.Ai.TopKDefault,
				TopKMax:        cfg.Ai.TopKMax,
			},
		},
		sysLogger,
	)

	publisherService := service.NewPublisherService(cfg.Events.ChatCompletedTopic, pubSub)
	aiChatService := service.NewAIChatService(agent, memoryService, publisherService, cfg.Ai.MemoryLimit, sysLogger)

	var eventPublisher service.EventPublisher
	if natsPub != nil {
		eventPublisher = natsPub
	}
	consumerService := service.NewConsumerService(pubSub, cfg.Events.ChatCompletedTopic, eventPublisher, sysLogger)

	// 6. Handlers & Controllers
	wsHandler := handler.NewWsHandler(
		wsHub,
		wsticket.NewIssuer(cfg.Auth.WsTokenSecret, cfg.Auth.WsTokenTTL),
		aiChatService,
		cfg.Auth.JwtSecret,
		wsLogger,
	)

	c := &Container{
		AuthController:  controller.NewAuthController(authService),
		MailController:  controller.NewMailController(mailService),
		AIController:    controller.NewAIController(aiChatService),
		ConsumerService: consumerService,
		WsHandler:       wsHandler,
		WebSocketHub:    wsHub,
		Logger:          sysLogger,
	}
	c.closers = append(c.closers, func() { _ = pubSub.Close() }, func() { _ = rdb.Close() })
	if natsPub != nil {
		c.closers = append(c.closers, natsPub.Close)
	}
	return c
}

// Close releases the bus and broker connections.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}
