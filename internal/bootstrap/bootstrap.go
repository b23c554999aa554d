// Package bootstrap builds the shared dependency graph from configuration.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"loan-assistant/internal/api"
	"loan-assistant/internal/chat"
	awsclient "loan-assistant/internal/common/aws"
	"loan-assistant/internal/common/config"
	"loan-assistant/internal/common/database"
	"loan-assistant/internal/common/logger"
	"loan-assistant/internal/common/observability"
	"loan-assistant/internal/models"
	"loan-assistant/internal/store"
	classifyintent "loan-assistant/internal/workers/ai-conversation/classify-intent"
	llmfallback "loan-assistant/internal/workers/ai-conversation/llm-fallback"
	lookupcustomer "loan-assistant/internal/workers/customer/lookup-customer"
	onboardcustomer "loan-assistant/internal/workers/customer/onboard-customer"
	evaluateeligibility "loan-assistant/internal/workers/loan/evaluate-eligibility"
	generatesanctionletter "loan-assistant/internal/workers/loan/generate-sanction-letter"
	publishsanctionevent "loan-assistant/internal/workers/loan/publish-sanction-event"
	recorddecision "loan-assistant/internal/workers/loan/record-decision"
)

// Deps holds everything a process entry point needs. Optional backends are
// nil when not configured.
type Deps struct {
	Config *config.Config
	Logger logger.Logger
	Obs    *observability.Observability

	Store    *store.CustomerStore
	Postgres *database.PostgresClient
	Redis    *database.RedisClient

	Classify    *classifyintent.Handler
	Lookup      *lookupcustomer.Handler
	Onboard     *onboardcustomer.Handler
	Eligibility *evaluateeligibility.Handler
	Letters     *generatesanctionletter.Handler
	LLM         *llmfallback.Handler
	Recorder    *recorddecision.Handler
	Events      *publishsanctionevent.Handler

	eventsEnabled bool
}

// Build opens the customer store and connects the optional backends.
// Backends that are configured but unreachable are logged and skipped.
func Build(ctx context.Context, cfg *config.Config, log logger.Logger, serviceName string) (*Deps, error) {
	d := &Deps{
		Config: cfg,
		Logger: log,
		Obs:    observability.New(serviceName),
	}

	s, err := store.Open(cfg.Store.CustomersPath, log)
	if err != nil {
		return nil, fmt.Errorf("open customer store: %w", err)
	}
	d.Store = s

	d.connectPostgres(ctx)
	d.connectRedis(ctx)

	d.Classify = classifyintent.NewHandler(classifyintent.LoadConfig(), log)
	d.Lookup = lookupcustomer.NewHandler(lookupcustomer.LoadConfig(), s, log)
	d.Onboard = onboardcustomer.NewHandler(onboardcustomer.LoadConfig(), s, log)
	d.Eligibility = evaluateeligibility.NewHandler(eligibilityConfig(cfg), log)
	d.Letters = generatesanctionletter.NewHandler(letterConfig(cfg), log)
	d.LLM = llmfallback.NewHandler(llmConfig(cfg), &LLMLoggerAdapter{log})

	d.Recorder = recorddecision.NewHandler(recorddecision.LoadConfig(), d.sqlDB(), log)

	eventsCfg := publishsanctionevent.LoadConfig()
	eventsCfg.TopicARN = cfg.Integrations.AWS.SNS.TopicARN
	eventsCfg.Source = cfg.App.Name
	var snsSvc publishsanctionevent.SNSService
	if eventsCfg.TopicARN != "" {
		snsClient, err := awsclient.NewSNSClient(ctx, cfg.Integrations.AWS.Region, cfg.Integrations.AWS.SNS.Endpoint)
		if err != nil {
			log.Warn("sns unavailable, sanction events disabled", map[string]interface{}{"error": err.Error()})
		} else {
			snsSvc = snsClient
		}
	}
	d.Events = publishsanctionevent.NewHandler(eventsCfg, snsSvc, log)
	d.eventsEnabled = snsSvc != nil

	return d, nil
}

func (d *Deps) connectPostgres(ctx context.Context) {
	pgCfg := d.Config.Database.Postgres
	if !pgCfg.Enabled() {
		d.Logger.Info("postgres not configured, decision audit disabled", nil)
		return
	}
	pg, err := database.ConnectPostgres(ctx, pgCfg)
	if err != nil {
		d.Logger.Warn("postgres unavailable, decision audit disabled", map[string]interface{}{"error": err.Error()})
		return
	}
	if err := pg.Migrate(ctx); err != nil {
		d.Logger.Warn("postgres migration failed, decision audit disabled", map[string]interface{}{"error": err.Error()})
		_ = pg.Close()
		return
	}
	d.Postgres = pg
	d.Logger.Info("PostgreSQL connected successfully", nil)
}

func (d *Deps) connectRedis(ctx context.Context) {
	if !d.Config.Database.Redis.Enabled() {
		return
	}
	rc, err := database.ConnectRedis(ctx, d.Config.Database.Redis)
	if err != nil {
		d.Logger.Warn("redis unavailable, llm rate limit disabled", map[string]interface{}{"error": err.Error()})
		return
	}
	d.Redis = rc
	d.Logger.Info("Redis connected successfully", nil)
}

// Engine assembles a chat engine over the built handlers.
func (d *Deps) Engine() *chat.Engine {
	opts := chat.Options{
		Brand:         d.Config.App.Brand,
		DefaultModel:  d.Config.LLM.DefaultModel,
		AllowedModels: d.Config.LLM.AllowedModels,
		Lookup:        d.Lookup,
		Onboard:       d.Onboard,
		Eligibility:   d.Eligibility,
		Letters:       d.Letters,
		LLM:           d.LLM,
		Metrics:       d.Obs,
	}
	if d.Postgres != nil {
		opts.Recorder = d.Recorder
	}
	if d.eventsEnabled {
		opts.Events = d.Events
	}
	if d.Redis != nil {
		opts.Limiter = chat.NewRedisLimiter(d.Redis.Client, d.Config.LLM.RateLimitPerSession,
			config.GetDuration(d.Config.LLM.RateLimitWindow), d.Logger)
	}
	return chat.NewEngine(opts, d.Logger)
}

// ReadinessChecks returns a probe per connected backend.
func (d *Deps) ReadinessChecks() map[string]api.ReadinessCheck {
	checks := map[string]api.ReadinessCheck{}
	if d.Postgres != nil {
		checks["postgres"] = d.Postgres.Ping
	}
	if d.Redis != nil {
		checks["redis"] = d.Redis.Ping
	}
	return checks
}

func (d *Deps) Close() {
	if d.Postgres != nil {
		_ = d.Postgres.Close()
	}
	if d.Redis != nil {
		_ = d.Redis.Close()
	}
	d.Obs.Shutdown()
}

func (d *Deps) sqlDB() *sql.DB {
	if d.Postgres == nil {
		return nil
	}
	return d.Postgres.DB
}

func eligibilityConfig(cfg *config.Config) *evaluateeligibility.Config {
	c := evaluateeligibility.LoadConfig()
	c.UseCustomerProfile = cfg.Eligibility.UseCustomerProfile
	c.Fixture = models.LoanApplication{
		Amount:       cfg.Eligibility.DefaultAmount,
		TenureMonths: cfg.Eligibility.DefaultTenureMonths,
		Salary:       cfg.Eligibility.DefaultSalary,
		ExistingEMI:  cfg.Eligibility.DefaultEMI,
	}
	return c
}

func letterConfig(cfg *config.Config) *generatesanctionletter.Config {
	c := generatesanctionletter.LoadConfig()
	c.OutputDir = cfg.Letters.OutputDir
	c.AnnualInterestRate = cfg.Letters.AnnualInterestRate
	c.Brand = cfg.App.Brand
	return c
}

func llmConfig(cfg *config.Config) *llmfallback.Config {
	c := llmfallback.LoadConfig()
	c.BaseURL = cfg.LLM.BaseURL
	c.APIKey = cfg.LLM.APIKey
	c.DefaultModel = cfg.LLM.DefaultModel
	c.AllowedModels = cfg.LLM.AllowedModels
	c.SystemPrompt = cfg.LLM.SystemPrompt
	c.Timeout = time.Duration(cfg.LLM.Timeout) * time.Millisecond
	c.Title = cfg.App.Name
	return c
}

// LLMLoggerAdapter lets the shared logger satisfy the llm-fallback Logger.
type LLMLoggerAdapter struct {
	logger.Logger
}

func (a *LLMLoggerAdapter) With(fields map[string]interface{}) llmfallback.Logger {
	return &LLMLoggerAdapter{a.Logger.With(fields)}
}
