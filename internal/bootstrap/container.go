package bootstrap

import (
	"context"
	"log"

	"companion-be/internal/catalog"
	"companion-be/internal/config"
	"companion-be/internal/controller"
	"companion-be/internal/handler"
	"companion-be/internal/pkg/logger"
	"companion-be/internal/pkg/mailer"
	"companion-be/internal/repository/contract"
	"companion-be/internal/repository/implementation"
	"companion-be/internal/repository/memory"
	"companion-be/internal/repository/store"
	"companion-be/internal/repository/unitofwork"
	"companion-be/internal/service"
	"companion-be/internal/websocket"
	"companion-be/pkg/council/orchestrator"
	"companion-be/pkg/council/prompt"
	"companion-be/pkg/council/turnlock"
	"companion-be/pkg/events"
	"companion-be/pkg/llm"
	"companion-be/pkg/llm/factory"
	"companion-be/pkg/llm/structured"

	pktNats "companion-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ChatController      controller.IChatController
	CharacterController controller.ICharacterController
	HealthController    controller.IHealthController

	// Nil in memory mode: these need the relational schema.
	UserController      controller.IUserController
	NotificationHandler *handler.NotificationHandler

	// Background Services (started by Start)
	EventRelay          service.IConsumerService
	NotificationService *service.NotificationService
	ReminderScheduler   *service.ReminderScheduler
	WebSocketHub        *websocket.Hub

	Logger logger.ILogger

	closers []func()
}

// NewContainer wires the application. db is nil when cfg.Database.Driver is "memory".
func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	llmLogger := logger.NewIsolatedLogger(cfg.App.LLMLogFilePath)
	c := &Container{Logger: sysLogger}

	var uowFactory unitofwork.RepositoryFactory
	var chatStore contract.ChatStore
	if db == nil {
		chatStore = newMemoryStore(cfg.App.CatalogPath, sysLogger)
		log.Printf("[INFO] Using storage driver: MEMORY")
	} else {
		uowFactory = unitofwork.NewRepositoryFactory(db)
		chatStore = store.NewGormChatStore(uowFactory)
		log.Printf("[INFO] Using storage driver: POSTGRES")
	}

	// 2. Event Bus
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermill.NewStdLogger(false, false),
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })
	bus := events.NewBus(pubSub, events.ChatTopic)

	// 2.5 Infrastructure
	// NATS
	var forward events.Publisher = events.Discard{}
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v (events stay in-process)", err)
	} else {
		forward = natsPub
		c.closers = append(c.closers, natsPub.Close)
	}
	c.EventRelay = service.NewChatEventRelay(pubSub, events.ChatTopic, forward, sysLogger)

	// Redis
	rdb := newRedis(cfg.App.RedisURL)
	if rdb != nil {
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}

	// 3. Chat Domain
	provider, moderator, err := factory.NewLLMProvider(context.Background(), llmFactoryConfig(cfg))
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	var chatModerator llm.Moderator = llm.NoopModerator{}
	if cfg.Ai.ModerationEnabled && moderator != nil {
		chatModerator = llm.NewFailOpenModerator(moderator, sysLogger)
	}

	orch := orchestrator.New(
		chatStore,
		structured.NewClient(provider, cfg.Ai.StructuredOutput, llmLogger),
		prompt.NewBuilder(cfg.Chat.Locale, cfg.Chat.PromptHistoryTurns),
		orchestrator.Config{
			HistoryLimit: cfg.Chat.HistoryLimit,
			Temperature:  cfg.Ai.Temperature,
			MaxTokens:    cfg.Ai.MaxTokens,
			Model:        cfg.Ai.LLMModel,
		},
		sysLogger,
	)

	chatService := service.NewChatService(
		chatStore,
		orch,
		chatModerator,
		newTurnLocker(cfg, rdb, sysLogger),
		bus,
		service.ChatServiceConfig{
			DefaultPageSize: cfg.Chat.DefaultPageSize,
			MaxPageSize:     cfg.Chat.MaxPageSize,
		},
		sysLogger,
	)
	characterService := service.NewCharacterService(chatStore, cfg.Chat.CharacterCacheTTL, sysLogger)

	c.ChatController = controller.NewChatController(chatService, sysLogger)
	c.CharacterController = controller.NewCharacterController(characterService)

	// 4. User & Notification Domain
	var scheduler controller.SchedulerStatusProvider
	if uowFactory != nil {
		c.UserController = controller.NewUserController(service.NewUserService(uowFactory, sysLogger))

		wsLogger := logger.NewIsolatedLogger("logs/notification.log")
		c.WebSocketHub = websocket.NewHub(rdb, wsLogger)

		emailService := mailer.NewEmailService(
			cfg.SMTP.Host,
			cfg.SMTP.Port,
			cfg.SMTP.Email,
			cfg.SMTP.Password,
			cfg.SMTP.SenderName+" <"+cfg.SMTP.Email+">",
			cfg.App.ClientURL,
			wsLogger,
		)

		natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Subscriber: %v (notifications disabled)", err)
		} else {
			c.closers = append(c.closers, natsSub.Close)
			c.NotificationService = service.NewNotificationService(
				implementation.NewNotificationRepository(db),
				natsSub,
				c.WebSocketHub, // Hub implements NotificationDelivery
				emailService,
				wsLogger,
			)
			c.NotificationHandler = handler.NewNotificationHandler(c.NotificationService, c.WebSocketHub, wsLogger)
		}

		if cfg.Scheduler.Enabled {
			c.ReminderScheduler = service.NewReminderScheduler(uowFactory, bus, cfg.Scheduler.Interval, sysLogger)
			scheduler = c.ReminderScheduler
		}
	}

	c.HealthController = controller.NewHealthController(cfg.Database.Driver, scheduler)
	return c
}

// Start launches the background services; they stop when ctx is done.
func (c *Container) Start(ctx context.Context) error {
	if err := c.EventRelay.Consume(ctx); err != nil {
		return err
	}
	if c.WebSocketHub != nil {
		go c.WebSocketHub.Run(ctx)
	}
	if c.NotificationService != nil {
		if err := c.NotificationService.Start(); err != nil {
			c.Logger.Error("Bootstrap", "Notification worker failed to start", map[string]interface{}{"error": err.Error()})
		}
	}
	if c.ReminderScheduler != nil {
		if err := c.ReminderScheduler.Start(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (c *Container) Close() {
	if c.ReminderScheduler != nil {
		c.ReminderScheduler.Stop()
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}

func llmFactoryConfig(cfg *config.Config) factory.Config {
	fc := factory.Config{
		Provider:        cfg.Ai.LLMProvider,
		Model:           cfg.Ai.LLMModel,
		ModerationModel: cfg.Ai.ModerationModel,
		Timeout:         cfg.Ai.RequestTimeout,
	}
	switch cfg.Ai.LLMProvider {
	case "openai":
		fc.APIKey, fc.BaseURL = cfg.Keys.OpenAI, cfg.Ai.OpenAIBaseURL
	case "huggingface":
		fc.APIKey, fc.BaseURL = cfg.Keys.HuggingFace, cfg.Ai.HuggingFaceURL
	case "ollama":
		fc.BaseURL, fc.KeepAlive = cfg.Ai.OllamaBaseURL, cfg.Ai.OllamaKeepAlive
	case "gemini":
		fc.APIKey = cfg.Keys.GoogleGemini
	}
	return fc
}

func newRedis(url string) redis.UniversalClient {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v (cluster fan-out disabled)", err)
		_ = rdb.Close()
		return nil
	}
	return rdb
}

func newTurnLocker(cfg *config.Config, rdb redis.UniversalClient, sysLogger logger.ILogger) turnlock.Locker {
	if cfg.Chat.TurnLockDriver == "redis" {
		if rdb != nil {
			return turnlock.NewRedisLocker(rdb, cfg.Chat.TurnLockTTL, sysLogger)
		}
		sysLogger.Warn("Bootstrap", "Redis unavailable, falling back to in-process turn lock", nil)
	}
	return turnlock.NewMemoryLocker(cfg.Chat.TurnLockTTL)
}

func newMemoryStore(catalogPath string, sysLogger logger.ILogger) *memory.ChatStore {
	s := memory.NewChatStore()
	cat, err := catalog.Load(catalogPath)
	if err != nil {
		sysLogger.Warn("Bootstrap", "Catalog not loaded, memory store has no characters", map[string]interface{}{"error": err.Error()})
		return s
	}
	for _, ch := range cat.Entities() {
		s.PutCharacter(ch)
	}
	return s
}
