package app

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/nekogravitycat/studio-booking-backend/internal/api"
	"github.com/nekogravitycat/studio-booking-backend/internal/auth"
	"github.com/nekogravitycat/studio-booking-backend/internal/availability"
	"github.com/nekogravitycat/studio-booking-backend/internal/config"
	"github.com/nekogravitycat/studio-booking-backend/internal/grid"
	"github.com/nekogravitycat/studio-booking-backend/internal/metrics"
	"github.com/nekogravitycat/studio-booking-backend/internal/notify"
	"github.com/nekogravitycat/studio-booking-backend/internal/payment"
	"github.com/nekogravitycat/studio-booking-backend/internal/pkg/logging"
	"github.com/nekogravitycat/studio-booking-backend/internal/pkg/ratelimit"
	"github.com/nekogravitycat/studio-booking-backend/internal/professional"
	"github.com/nekogravitycat/studio-booking-backend/internal/reminder"
	"github.com/nekogravitycat/studio-booking-backend/internal/reservation"
)

// Container holds the initialized components that are needed externally.
type Container struct {
	Router     *gin.Engine
	JWTManager *auth.JWTManager
	Gateway    reservation.PaymentGateway

	async     *notify.Async
	publisher *notify.QueuePublisher
	redis     *redis.Client
}

// NewGrid builds the studio's slot grid from configuration.
func NewGrid(cfg *config.Config) (*grid.Grid, error) {
	g, err := grid.New(cfg.SlotGranularity, cfg.BusinessHours, grid.WithLocation(cfg.Location))
	if err != nil {
		return nil, fmt.Errorf("invalid slot grid: %w", err)
	}
	return g, nil
}

// NewWhatsAppNotifier builds the synchronous notification service. cmd/notifier uses it too.
func NewWhatsAppNotifier(cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) *notify.Service {
	sender := notify.NewZAPI(notify.ZAPIConfig{
		BaseURL:     cfg.ZAPIBaseURL,
		InstanceID:  cfg.ZAPIInstanceID,
		Token:       cfg.ZAPIToken,
		ClientToken: cfg.ZAPIClientToken,
		Timeout:     cfg.NotifyTimeout,
	}, logger)
	return notify.NewService(sender, notify.Config{
		StudioName:     cfg.StudioName,
		StudioWhatsApp: cfg.StudioWhatsApp,
	}, logger, m)
}

func newGateway(cfg *config.Config, logger *zap.Logger) reservation.PaymentGateway {
	if cfg.PaymentProvider == config.PaymentProviderFake {
		logger.Warn("using the fake payment gateway")
		return payment.NewFake(cfg.PublicAppURL)
	}
	return payment.NewMercadoPago(payment.MercadoPagoConfig{
		AccessToken:     cfg.MercadoPagoAccessToken,
		BaseURL:         cfg.MercadoPagoBaseURL,
		PublicAppURL:    cfg.PublicAppURL,
		NotificationURL: cfg.MercadoPagoNotificationURL,
		Currency:        cfg.BookingCurrency,
		Expiry:          cfg.PaymentExpiry,
	}, logger)
}

// NewContainer initializes all modules and returns the container.
func NewContainer(cfg *config.Config, pool *pgxpool.Pool, logger *zap.Logger) (*Container, error) {
	logger = logging.OrNop(logger)
	c := &Container{}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// Init Components
	g, err := NewGrid(cfg)
	if err != nil {
		return nil, err
	}
	passwordHasher := auth.NewBcryptPasswordHasherWithCost(cfg.BcryptCost)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTAccessTokenTTL)
	c.JWTManager = jwtManager

	// Professional Module
	proRepo := professional.NewPgxRepository(pool)
	proService := professional.NewService(proRepo, passwordHasher)

	// Availability Module
	availRepo := availability.NewPgxRepository(pool)
	resRepo := reservation.NewPgxRepository(pool)
	resolver := availability.NewResolver(g, availRepo, resRepo, cfg.LeadMinutes)
	availService := availability.NewService(availRepo, resolver, proService)

	// Notifications: queued through RabbitMQ when configured, sent in-process otherwise
	// or while the broker is unreachable.
	// Either way the booking and webhook paths never wait on delivery.
	whatsapp := NewWhatsAppNotifier(cfg, logger, m)
	var downstream reservation.Notifier = whatsapp
	if cfg.RabbitMQURL != "" {
		publisher, err := notify.NewQueuePublisher(cfg.RabbitMQURL, cfg.NotifyQueue, whatsapp, logger)
		if err != nil {
			return nil, fmt.Errorf("connect notification queue: %w", err)
		}
		c.publisher = publisher
		downstream = publisher
	}
	c.async = notify.NewAsync(downstream, cfg.NotifyTimeout, logger)

	// Reservation Module
	c.Gateway = newGateway(cfg, logger)
	lifecycle := reservation.NewLifecycle(resRepo, c.async, logger, m)
	resService := reservation.NewService(reservation.Deps{
		Repo:         resRepo,
		Guard:        reservation.NewGuard(resolver, resRepo),
		Lifecycle:    lifecycle,
		Gateway:      c.Gateway,
		Notifier:     c.async,
		Professional: proService,
		Grid:         g,
		Logger:       logger,
		Metrics:      m,
	}, reservation.Config{
		FeeCents:     cfg.BookingFeeCents,
		Currency:     cfg.BookingCurrency,
		StudioPixKey: cfg.StudioPixKey,
	})

	// Reminder Module: sends synchronously so the run can report what was delivered.
	reminderService := reminder.NewService(resRepo, whatsapp, g, logger)

	// Rate limiting
	var limiter *ratelimit.Limiter
	if cfg.RateLimitEnabled && cfg.RedisAddr != "" {
		c.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		limiter = ratelimit.New(c.redis, ratelimit.Config{
			Enabled:        true,
			Prefix:         "studio:rl",
			Capacity:       cfg.RateLimitCapacity,
			RefillTokens:   cfg.RateLimitRefillTokens,
			RefillInterval: cfg.RateLimitRefillInterval,
		}, logger)
	}

	// API Router Config
	c.Router = api.NewRouter(api.Config{
		IsProduction:        cfg.IsProduction,
		ProdOrigins:         cfg.ProdOrigins,
		Logger:              logger,
		Metrics:             m,
		Gatherer:            registry,
		Limiter:             limiter,
		Ping:                pool.Ping,
		JWTManager:          jwtManager,
		AdminSecret:         cfg.AdminSecret,
		CronSecret:          cfg.CronSecret,
		WebhookSecret:       cfg.MercadoPagoWebhookSecret,
		ProfessionalService: proService,
		AvailabilityService: availService,
		ReservationService:  resService,
		ReminderService:     reminderService,
	})

	return c, nil
}

// Close waits for in-flight notifications and releases external connections.
func (c *Container) Close() {
	if c.async != nil {
		c.async.Wait()
	}
	if c.publisher != nil {
		_ = c.publisher.Close()
	}
	if c.redis != nil {
		_ = c.redis.Close()
	}
}
