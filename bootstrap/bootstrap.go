// Package bootstrap wires all dependencies and starts the application.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/gatewaylabs/creditmeter/adapters/clock"
	"github.com/gatewaylabs/creditmeter/adapters/idgen"
	"github.com/gatewaylabs/creditmeter/adapters/ledger"
	"github.com/gatewaylabs/creditmeter/adapters/memory"
	"github.com/gatewaylabs/creditmeter/adapters/metrics"
	"github.com/gatewaylabs/creditmeter/adapters/sqlite"
	"github.com/gatewaylabs/creditmeter/adapters/tokenizer"
	"github.com/gatewaylabs/creditmeter/app"
	"github.com/gatewaylabs/creditmeter/config"
	"github.com/gatewaylabs/creditmeter/domain/model"
	"github.com/gatewaylabs/creditmeter/ports"
	"github.com/gatewaylabs/creditmeter/web"
)

// App represents the running application.
type App struct {
	Logger     zerolog.Logger
	Config     *config.Config
	DB         *sqlite.DB
	HTTPServer *http.Server
	Metrics    *metrics.Collector

	Meter       *app.Meter
	UsageLimits *app.UsageLimitsService
	Messages    *app.MessageLimitService
	Limits      ports.LimitStore
	Usage       ports.UsageStore

	holder  *config.Holder
	janitor *app.Janitor
}

// New creates and initializes the application.
func New(cfg *config.Config) (*App, error) {
	logger := setupLogger(cfg.Logging)

	logger.Info().Msg("initializing creditmeter")

	a := &App{
		Logger: logger,
		Config: cfg,
	}

	if err := a.initDatabase(); err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}

	if cfg.Metrics.Enabled {
		a.Metrics = metrics.New()
		logger.Info().Msg("prometheus metrics enabled")
	}

	if err := a.initServices(); err != nil {
		a.DB.Close()
		return nil, fmt.Errorf("init services: %w", err)
	}

	a.initHTTPServer()
	return a, nil
}

// NewWithHotReload creates the application with config file hot reload.
// Only logging fields take effect on reload; the rest require a restart.
func NewWithHotReload(path string) (*App, error) {
	logger := setupLogger(config.LoggingConfig{Level: "info", Format: "json"})

	holder, err := config.NewHolder(path, logger)
	if err != nil {
		return nil, err
	}

	a, err := New(holder.Get())
	if err != nil {
		holder.Stop()
		return nil, err
	}
	a.holder = holder

	holder.OnChange(func(cfg *config.Config) {
		applyLogLevel(cfg.Logging.Level)
	})
	if err := holder.WatchFile(); err != nil {
		a.Logger.Warn().Err(err).Msg("config file watch unavailable")
	}
	holder.WatchSignals()

	return a, nil
}

func (a *App) initDatabase() error {
	db, err := sqlite.Open(a.Config.Database.DSN)
	if err != nil {
		return err
	}

	if err := db.Migrate(); err != nil {
		db.Close()
		return fmt.Errorf("migrate: %w", err)
	}

	a.DB = db
	a.Logger.Info().Str("dsn", a.Config.Database.DSN).Msg("database initialized")
	return nil
}

func (a *App) initServices() error {
	creditLedger, err := a.buildLedger()
	if err != nil {
		return err
	}

	realClock := clock.Real{}
	usageStore := sqlite.NewUsageStore(a.DB)
	limitStore := sqlite.NewLimitStore(a.DB)
	userStore := sqlite.NewUserStore(a.DB)
	chatStore := sqlite.NewChatStore(a.DB)
	catalog := memory.NewCatalog(a.catalogModels()...)

	a.Usage = usageStore
	a.Limits = limitStore

	a.UsageLimits = app.NewUsageLimitsService(app.UsageLimitsDeps{
		Usage:   usageStore,
		Limits:  limitStore,
		Clock:   realClock,
		Logger:  a.Logger,
		Metrics: a.Metrics,
	}, a.Config.Caches.SnapshotTTL)

	a.Messages = app.NewMessageLimitService(app.MessageLimitDeps{
		Ledger:  creditLedger,
		Users:   userStore,
		Chats:   chatStore,
		Clock:   realClock,
		Logger:  a.Logger,
		Metrics: a.Metrics,
	}, a.Config.Caches.MessageTTL)

	credits := app.NewCreditService(app.CreditServiceDeps{
		Ledger:  creditLedger,
		Users:   userStore,
		Logger:  a.Logger,
		Metrics: a.Metrics,
	})

	a.Meter = app.NewMeter(app.MeterDeps{
		Credits:     credits,
		Messages:    a.Messages,
		UsageLimits: a.UsageLimits,
		Usage:       usageStore,
		Ledger:      creditLedger,
		Catalog:     catalog,
		Clock:       realClock,
		Logger:      a.Logger,
		Metrics:     a.Metrics,
	})

	a.janitor = app.NewJanitor(a.Logger)
	a.janitor.Add("snapshot", a.UsageLimits)
	a.janitor.Add("message_limit", a.Messages)
	if err := a.janitor.Start(a.Config.Caches.SweepSchedule); err != nil {
		return fmt.Errorf("start janitor: %w", err)
	}

	return nil
}

// catalogModels maps configured models into catalog entries. Unknown models
// still evaluate at the cheapest tier, so an empty catalog is legal.
func (a *App) catalogModels() []model.Info {
	infos := make([]model.Info, 0, len(a.Config.Models))
	for _, m := range a.Config.Models {
		infos = append(infos, model.Info{
			ID:             m.ID,
			Provider:       m.Provider,
			Premium:        m.Premium,
			InputPerToken:  m.InputPerToken,
			OutputPerToken: m.OutputPerToken,
		})
	}
	if len(infos) > 0 {
		a.Logger.Info().Int("count", len(infos)).Msg("model catalog loaded from config")
	}
	return infos
}

func (a *App) buildLedger() (ports.CreditLedger, error) {
	switch a.Config.Ledger.Provider {
	case "stripe":
		a.Logger.Info().Msg("using stripe credit ledger")
		return ledger.NewStripeLedger(ledger.StripeConfig{
			SecretKey: a.Config.Ledger.Stripe.SecretKey,
		}), nil
	case "remote":
		a.Logger.Info().Str("url", a.Config.Ledger.Remote.URL).Msg("using remote credit ledger")
		return ledger.NewRemoteLedger(ledger.RemoteConfig{
			BaseURL: a.Config.Ledger.Remote.URL,
			APIKey:  a.Config.Ledger.Remote.APIKey,
			Timeout: a.Config.Ledger.Remote.Timeout,
		}), nil
	case "static":
		a.Logger.Info().Msg("using static credit ledger")
		return ledger.NewStatic(), nil
	default:
		return nil, fmt.Errorf("unknown ledger provider %q", a.Config.Ledger.Provider)
	}
}

func (a *App) initHTTPServer() {
	metricsPath := ""
	if a.Config.Metrics.Enabled {
		metricsPath = a.Config.Metrics.Path
	}

	handler := web.NewHandler(web.Deps{
		Meter:       a.Meter,
		Usage:       a.Usage,
		Estimator:   tokenizer.New(),
		Clock:       clock.Real{},
		IDs:         idgen.UUID{},
		Logger:      a.Logger,
		MetricsPath: metricsPath,
	})

	a.HTTPServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", a.Config.Server.Host, a.Config.Server.Port),
		Handler:      handler.Router(),
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	}
}

// Run starts the HTTP server and blocks until shutdown.
func (a *App) Run() error {
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the application.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if a.holder != nil {
		a.holder.Stop()
	}

	if a.janitor != nil {
		a.janitor.Stop()
	}

	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
		}
	}

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("database close error")
		}
	}

	a.Logger.Info().Msg("shutdown complete")
	return nil
}

func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	applyLogLevel(cfg.Level)

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func applyLogLevel(levelStr string) {
	if levelStr == "" {
		levelStr = "info"
	}
	level, err := zerolog.ParseLevel(levelStr)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}
