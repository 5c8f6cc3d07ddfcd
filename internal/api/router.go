package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/nekogravitycat/studio-booking-backend/internal/auth"
	"github.com/nekogravitycat/studio-booking-backend/internal/availability"
	availabilityHttp "github.com/nekogravitycat/studio-booking-backend/internal/availability/http"
	"github.com/nekogravitycat/studio-booking-backend/internal/metrics"
	paymentHttp "github.com/nekogravitycat/studio-booking-backend/internal/payment/http"
	"github.com/nekogravitycat/studio-booking-backend/internal/pkg/logging"
	"github.com/nekogravitycat/studio-booking-backend/internal/pkg/ratelimit"
	"github.com/nekogravitycat/studio-booking-backend/internal/professional"
	professionalHttp "github.com/nekogravitycat/studio-booking-backend/internal/professional/http"
	"github.com/nekogravitycat/studio-booking-backend/internal/reminder"
	reminderHttp "github.com/nekogravitycat/studio-booking-backend/internal/reminder/http"
	"github.com/nekogravitycat/studio-booking-backend/internal/reservation"
	reservationHttp "github.com/nekogravitycat/studio-booking-backend/internal/reservation/http"
)

// Config holds the dependencies required to build the router.
type Config struct {
	IsProduction bool
	ProdOrigins  string
	Logger       *zap.Logger
	Metrics      *metrics.Metrics
	Gatherer     prometheus.Gatherer
	Limiter      *ratelimit.Limiter
	// Ping reports database health for /healthz. Nil means always healthy.
	Ping func(ctx context.Context) error

	JWTManager    *auth.JWTManager
	AdminSecret   string
	CronSecret    string
	WebhookSecret string

	ProfessionalService professional.Service
	AvailabilityService availability.Service
	ReservationService  reservation.Service
	ReminderService     *reminder.Service
}

// NewRouter initializes the HTTP router engine.
// It is responsible for assembling middleware (CORS, Logger, Auth) and registering routes for various modules.
func NewRouter(cfg Config) *gin.Engine {
	logger := logging.OrNop(cfg.Logger)

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
	})
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	// Global Middleware:
	// - RequestLogger: one structured line per request, with X-Request-ID.
	// - Recovery: Captures panics to prevent server crashes and returns a 500 error.
	r.Use(RequestLogger(logger), gin.Recovery(), RequestMetrics(cfg.Metrics))

	// Configure CORS (Cross-Origin Resource Sharing).
	corsConfig := cors.DefaultConfig()
	if cfg.IsProduction {
		corsConfig.AllowOrigins = splitOrigins(cfg.ProdOrigins)
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Admin-Secret", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Retry-After"}
	if len(corsConfig.AllowOrigins) > 0 || corsConfig.AllowAllOrigins {
		r.Use(cors.New(corsConfig))
	}

	r.GET("/healthz", healthHandler(cfg.Ping))
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	// authMiddleware: Validates if the request contains a valid professional JWT.
	authMiddleware := auth.AuthRequired(cfg.JWTManager)
	// adminMiddleware: studio staff actions, authenticated by the shared admin secret.
	adminMiddleware := auth.RequireAdminSecret(cfg.AdminSecret)
	// cronMiddleware: scheduler-triggered jobs.
	cronMiddleware := auth.RequireBearerSecret(cfg.CronSecret)

	// Initialize HTTP Handlers for each module (injecting Service dependencies).
	professionalHandler := professionalHttp.NewHandler(cfg.ProfessionalService, cfg.JWTManager)
	availabilityHandler := availabilityHttp.NewHandler(cfg.AvailabilityService)
	reservationHandler := reservationHttp.NewHandler(cfg.ReservationService)
	webhookHandler := paymentHttp.NewHandler(cfg.ReservationService, cfg.WebhookSecret, logger, cfg.Metrics)

	// Routes live at the root: the payment gateway and the booking widget call these exact paths.
	professionalHttp.RegisterRoutes(r, professionalHandler, cfg.Limiter.Middleware("login"))
	availabilityHttp.RegisterRoutes(r, availabilityHandler, authMiddleware)
	reservationHttp.RegisterRoutes(r, reservationHandler, adminMiddleware, cfg.Limiter.Middleware("bookings"))
	paymentHttp.RegisterRoutes(r, webhookHandler)
	reminderHttp.RegisterRoutes(r, reminderHttp.NewHandler(cfg.ReminderService), cronMiddleware)

	return r
}

func healthHandler(ping func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func splitOrigins(s string) []string {
	var origins []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
