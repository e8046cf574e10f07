// Package bootstrap wires configuration into the running assistant.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/healthylife-gp-assistant/internal/api/router"
	"github.com/wolfman30/healthylife-gp-assistant/internal/appointments"
	appconfig "github.com/wolfman30/healthylife-gp-assistant/internal/config"
	"github.com/wolfman30/healthylife-gp-assistant/internal/conversation"
	"github.com/wolfman30/healthylife-gp-assistant/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/healthylife-gp-assistant/internal/http/middleware"
	"github.com/wolfman30/healthylife-gp-assistant/internal/llm"
	"github.com/wolfman30/healthylife-gp-assistant/internal/observability/metrics"
	"github.com/wolfman30/healthylife-gp-assistant/internal/surgery"
	"github.com/wolfman30/healthylife-gp-assistant/internal/tools"
	"github.com/wolfman30/healthylife-gp-assistant/internal/webchat"
	"github.com/wolfman30/healthylife-gp-assistant/pkg/logging"
)

// Deps carries the external pieces Build cannot create from config alone.
type Deps struct {
	Logger *logging.Logger

	// LoadAWS is called only when Bedrock or DynamoDB is configured.
	LoadAWS AWSConfigLoader

	// Registry receives the assistant metrics. Nil means a fresh registry.
	Registry *prometheus.Registry

	// LLMClient overrides provider wiring when set.
	LLMClient llm.Client

	// Redis overrides the client built from REDIS_ADDR when set.
	Redis *redis.Client
}

// App is the assembled assistant and its supporting services.
type App struct {
	Config       *appconfig.Config
	Logger       *logging.Logger
	Policy       surgery.Policy
	Directory    *surgery.Directory
	Schedule     appointments.Schedule
	Appointments appointments.Store
	Dispatcher   *tools.Dispatcher
	Assistant    *conversation.Assistant
	Metrics      *metrics.AssistantMetrics
	Registry     *prometheus.Registry

	closers []func()
}

// Build assembles the assistant from cfg. Call Close when done.
func Build(ctx context.Context, cfg *appconfig.Config, deps Deps) (*App, error) {
	if cfg == nil {
		return nil, errors.New("bootstrap: config is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.Default()
	}
	registry := deps.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	app := &App{
		Config:    cfg,
		Logger:    logger,
		Policy:    surgery.DefaultPolicy(),
		Directory: surgery.DefaultDirectory(),
		Registry:  registry,
	}

	schedule, err := appointments.ScheduleFromPolicy(app.Policy)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: surgery schedule: %w", err)
	}
	app.Schedule = schedule

	redisClient := deps.Redis
	if redisClient == nil && NeedsRedis(cfg) {
		redisClient = BuildRedisClient(ctx, cfg, logger, true)
		if redisClient == nil {
			return nil, fmt.Errorf("bootstrap: redis at %q is unreachable", cfg.RedisAddr)
		}
		app.closers = append(app.closers, func() { _ = redisClient.Close() })
	}

	store, closeStore, err := BuildAppointmentStore(ctx, cfg, redisClient, deps.LoadAWS, logger)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.closers = append(app.closers, closeStore)
	app.Appointments = store

	sessions, err := BuildSessionStore(cfg, redisClient)
	if err != nil {
		app.Close()
		return nil, err
	}

	client := deps.LLMClient
	if client == nil {
		var closeClient func()
		client, closeClient, err = BuildLLMClient(ctx, cfg, deps.LoadAWS, logger)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.closers = append(app.closers, closeClient)
	}

	app.Metrics = metrics.NewAssistantMetrics(registry)
	app.Dispatcher = tools.NewDispatcher(store, app.Directory, schedule,
		tools.WithLogger(logger.Component("tools")),
		tools.WithMetrics(app.Metrics),
		tools.WithStrictGPResolution(cfg.StrictGPNames),
	)

	prompt := conversation.BuildSystemPrompt(app.Policy, app.Directory, schedule)
	// Model stays empty so each provider in a fallback chain uses its own id.
	app.Assistant = conversation.NewAssistant(client, app.Dispatcher, sessions, app.Policy, prompt,
		conversation.Options{
			MaxTokens:     int32(cfg.ModelMaxTokens),
			Temperature:   float32(cfg.ModelTemperature),
			ModelTimeout:  cfg.ModelTimeout,
			MaxToolRounds: cfg.MaxToolRounds,
			MaxHistory:    cfg.MaxHistory,
		},
		conversation.WithLogger(logger.Component("conversation")),
		conversation.WithMetrics(app.Metrics),
	)

	logger.Info("assistant ready",
		"appointment_store", cfg.AppointmentStore,
		"session_store", cfg.SessionStore,
		"llm_provider", cfg.LLMProvider,
	)
	return app, nil
}

// Handler returns the HTTP surface: REST sessions, the sidebar, the web chat socket and metrics.
func (a *App) Handler() http.Handler {
	var limiter *httpmiddleware.RateLimiter
	if a.Config.RateLimitRPS > 0 {
		limiter = httpmiddleware.NewRateLimiter(a.Config.RateLimitRPS, a.Config.RateLimitBurst)
	}
	return router.New(&router.Config{
		Logger:              a.Logger,
		ConversationHandler: conversation.NewHandler(a.Assistant, a.Logger),
		SidebarHandler:      handlers.NewSidebarHandler(a.Dispatcher, a.Directory, a.Policy, a.Logger.Component("sidebar")),
		WebChatHandler:      webchat.NewHandler(a.Assistant, a.Logger.Component("webchat")),
		MetricsHandler:      promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins:  a.Config.CORSAllowedOrigins,
		MessageLimiter:      limiter,
	})
}

// Close releases backend connections in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
