package bootstrap

import (
	"context"
	"log"
	"time"

	"discovery-client/internal/config"
	"discovery-client/internal/controller"
	"discovery-client/internal/entity"
	"discovery-client/internal/handler"
	"discovery-client/internal/pkg/logger"
	"discovery-client/internal/repository/contract"
	"discovery-client/internal/repository/implementation"
	"discovery-client/internal/repository/memory"
	"discovery-client/internal/service"
	"discovery-client/internal/websocket"
	"discovery-client/pkg/device"
	"discovery-client/pkg/events"
	"discovery-client/pkg/matchapi"
	pktNats "discovery-client/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Where the demo GPS pretends to be.
var demoOrigin = entity.Coordinates{Latitude: 52.5200, Longitude: 13.4050}

type Container struct {
	// Controllers
	SessionController controller.ISessionController
	ProfileController controller.IProfileController
	DeviceController  controller.IDeviceController // nil in demo mode

	// WebSockets
	SessionStreamHandler *handler.SessionStreamHandler
	WebSocketHub         *websocket.Hub

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
	NatsRelay       *pktNats.Relay // nil without NATS_URL

	SessionService service.ISessionService

	// Demo collaborators, nil outside demo mode
	DemoAPI    *matchapi.MockAPI
	DemoDevice *device.MockLocationProvider

	Logger logger.ILogger

	cancel  context.CancelFunc
	closers []func()
}

func NewContainer(cfg *config.Config, sysLogger logger.ILogger) *Container {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Container{Logger: sysLogger, cancel: cancel}
	instanceID := uuid.NewString()

	// 1. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)
	c.closers = append(c.closers, func() { pubSub.Close() })
	bus := events.NewBus(pubSub, sysLogger)

	// 2. Storage
	kv := newKeyValueRepository(cfg, c)
	coordsRepo := implementation.NewCoordinatesRepository(kv)
	searchRepo := implementation.NewSearchParametersRepository(kv)

	// 3. Remote matching service and device
	var (
		api      matchapi.API
		provider device.LocationProvider
	)
	if cfg.Discovery.DemoMode {
		c.DemoAPI = matchapi.NewMockAPI(matchapi.DemoPool(40), 10)
		c.DemoAPI.SetLatency(300 * time.Millisecond)
		c.DemoDevice = device.NewMockLocationProvider(demoOrigin, 1500*time.Millisecond)
		api, provider = c.DemoAPI, c.DemoDevice
		log.Printf("[INFO] Demo mode: in-memory matching service and simulated GPS")
	} else {
		bridge := device.NewBridgeLocationProvider(2 * cfg.Discovery.LocationLongTimeout)
		c.DeviceController = controller.NewDeviceController(bridge)
		api, provider = matchapi.NewClient(cfg.Remote.BaseURL, cfg.Remote.Token, cfg.Remote.Timeout), bridge
		log.Printf("[INFO] Using matching service at %s", cfg.Remote.BaseURL)
	}

	// 4. Services
	validate := validator.New()
	publisherService := service.NewPublisherService(pubSub, service.TopicDecisionCommands)
	consumerService := service.NewConsumerService(pubSub, service.TopicDecisionCommands, api, sysLogger)

	locationService := service.NewLocationService(provider, coordsRepo, cfg.Discovery, sysLogger)
	hintService := service.NewHintService(kv, sysLogger)
	profileService := service.NewProfileService(api, searchRepo, sysLogger)
	decisionService := service.NewDecisionService(
		publisherService,
		bus,
		validate,
		cfg.Discovery.ComplimentMaxLength,
		instanceID,
		sysLogger,
	)

	sessionRepo := memory.NewSessionRepository(cfg.Discovery.SessionIdleTTL)
	sessionService := service.NewSessionService(
		locationService,
		hintService,
		profileService,
		decisionService,
		api,
		bus,
		sessionRepo,
		cfg.Discovery.SafetyReportThreshold,
		sysLogger,
	)

	// 5. NATS (optional)
	if cfg.App.NatsURL != "" {
		c.NatsRelay = newRelay(cfg, instanceID, bus, sysLogger, c)
	}

	// 6. WebSocket Hub
	wsHub := websocket.NewHub(sessionService, sysLogger)
	go wsHub.Run(ctx)

	c.SessionController = controller.NewSessionController(sessionService)
	c.ProfileController = controller.NewProfileController(decisionService, profileService)
	c.SessionStreamHandler = handler.NewSessionStreamHandler(sessionService, wsHub, sysLogger)
	c.WebSocketHub = wsHub
	c.ConsumerService = consumerService
	c.SessionService = sessionService

	return c
}

func newKeyValueRepository(cfg *config.Config, c *Container) contract.KeyValueRepository {
	if cfg.Storage.Driver == config.StorageDriverRedis {
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
		c.closers = append(c.closers, func() { rdb.Close() })
		return implementation.NewRedisKeyValueRepository(rdb, "discovery:")
	}

	kv, err := memory.NewKeyValueRepository(cfg.Storage.SnapshotPath)
	if err != nil {
		log.Printf("[WARN] %v. Starting with an empty store", err)
		kv, _ = memory.NewKeyValueRepository("")
	}
	return kv
}

func newRelay(cfg *config.Config, instanceID string, bus *events.Bus, sysLogger logger.ILogger, c *Container) *pktNats.Relay {
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		return nil
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL, sysLogger)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
		natsPub.Close()
		return nil
	}
	c.closers = append(c.closers, natsSub.Close, natsPub.Close)
	return pktNats.NewRelay(instanceID, bus, natsPub, natsSub, sysLogger)
}

// Close stops the hub and releases connections, newest first.
func (c *Container) Close() {
	c.cancel()
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.Logger.Sync()
}
