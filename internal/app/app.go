// Package app assembles the gateway components from configuration. Every
// binary under cmd/ builds its dependencies here.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/marcelsud/sumit-gateway/config"
	"github.com/marcelsud/sumit-gateway/connector"
	"github.com/marcelsud/sumit-gateway/metrics"
	"github.com/marcelsud/sumit-gateway/notify"
	"github.com/marcelsud/sumit-gateway/redact"
	"github.com/marcelsud/sumit-gateway/routes"
	"github.com/marcelsud/sumit-gateway/sidechannel"
	"github.com/marcelsud/sumit-gateway/sumit"
	"github.com/marcelsud/sumit-gateway/webhook"
	"github.com/marcelsud/sumit-gateway/webhook/dispatch"
	"github.com/marcelsud/sumit-gateway/webhook/memory"
	wbredis "github.com/marcelsud/sumit-gateway/webhook/redis"
	"github.com/rs/zerolog"
)

// App holds the assembled components
type App struct {
	Config     *config.Config
	Logger     zerolog.Logger
	Routes     *routes.Loader
	Store      webhook.Repository
	Redis      *wbredis.Repository // nil with the memory store
	Runner     *sidechannel.Runner
	Hub        *notify.Hub
	Exporter   *metrics.OTelExporter
	Collector  *metrics.StoreCollector
	Gateway    *sumit.Client
	Dispatcher *dispatch.HTTPDispatcher
	Webhooks   *webhook.Service
}

// New builds every component. out receives the JSON log stream; nil means stdout.
func New(ctx context.Context, cfg *config.Config, out io.Writer) (*App, error) {
	if out == nil {
		out = os.Stdout
	}
	a := &App{
		Config: cfg,
		Logger: zerolog.New(out).Level(cfg.Level()).With().Timestamp().Logger(),
	}

	a.Routes = routes.NewLoader()
	if err := a.Routes.Load(cfg.RoutesFile); err != nil {
		return nil, fmt.Errorf("loading routes: %w", err)
	}

	if err := a.initStore(); err != nil {
		return nil, err
	}

	var sink sidechannel.Sink = sidechannel.NewLogSink(a.Logger)
	if a.Redis != nil {
		sink = sidechannel.MultiSink{sink, sidechannel.NewRedisSink(a.Redis.GetClient(), "", cfg.DeadLetterMax)}
	}
	a.Runner = sidechannel.New(sink, sidechannel.Options{}, a.Logger)
	a.Hub = notify.NewHub(a.Runner, a.Logger)
	a.Hub.SubscribeAll("log", notify.LogHandler(a.Logger))
	if a.Redis != nil {
		a.Hub.SubscribeAll("redis", notify.RedisPublisher(a.Redis.GetClient(), ""))
	}

	var heartbeats metrics.HeartbeatSource
	if a.Redis != nil {
		heartbeats = a.Redis
	}
	a.Collector = metrics.NewStoreCollector(a.Store, heartbeats, a.Routes)
	exporter, err := metrics.NewOTelExporter(a.Collector)
	if err != nil {
		_ = a.Store.Close(ctx)
		return nil, fmt.Errorf("creating metrics exporter: %w", err)
	}
	a.Exporter = exporter
	a.Hub.SubscribeAll("metrics", a.Exporter.CountNotification)

	if err := a.initGateway(); err != nil {
		_ = a.Store.Close(ctx)
		return nil, err
	}
	a.initWebhooks()
	return a, nil
}

func (a *App) initStore() error {
	switch a.Config.Store {
	case "memory":
		a.Store = memory.NewRepository()
	default:
		repo, err := wbredis.NewRepository(a.Config.RedisAddr, a.Config.RedisPassword, a.Config.RedisDB, a.Config.SentTTL())
		if err != nil {
			return fmt.Errorf("creating redis store: %w", err)
		}
		a.Redis = repo
		a.Store = repo
	}
	return nil
}

func (a *App) initGateway() error {
	cfg := a.Config
	env, err := cfg.Environment()
	if err != nil {
		return fmt.Errorf("gateway environment: %w", err)
	}

	opts := connector.Options{
		Timeout:            cfg.SumitTimeout(),
		MaxAttempts:        cfg.SumitMaxAttempts,
		RetryInterval:      cfg.SumitRetryInterval(),
		InsecureSkipVerify: !cfg.SumitVerifySSL,
		Redactor:           redact.New(),
		Observer:           a.Hub,
		Recorder:           a.Exporter,
	}
	if cfg.SumitLoggingEnabled {
		opts.Tracer = connector.NewLogTracer(a.Logger, cfg.SumitLogChannel)
	}
	if opts.InsecureSkipVerify && env == sumit.Production {
		a.Logger.Warn().Msg("TLS verification disabled against the production gateway")
	}

	client, err := sumit.New(connector.New(opts), sumit.Options{
		Environment:                 env,
		Credentials:                 cfg.Credentials(),
		Locale:                      cfg.SumitLocale,
		ClientID:                    cfg.SumitClientID,
		MerchantNumber:              cfg.SumitMerchantNumber,
		SubscriptionsMerchantNumber: cfg.SumitSubscriptionsMerchantNumber,
		Policies:                    a.Routes,
	})
	if err != nil {
		return fmt.Errorf("creating gateway client: %w", err)
	}
	a.Gateway = client
	return nil
}

func (a *App) initWebhooks() {
	cfg := a.Config
	opts := connector.Options{
		Timeout:     cfg.WebhookTimeout(),
		MaxAttempts: 1,
		Redactor:    redact.New().WithContainers("data"),
		Recorder:    a.Exporter,
	}
	if cfg.SumitLoggingEnabled {
		opts.Tracer = connector.NewLogTracer(a.Logger, "webhook")
	}

	a.Dispatcher = dispatch.New(connector.New(opts), a.Routes, dispatch.Options{
		Timeout: cfg.WebhookTimeout(),
		Rate:    cfg.WebhookDispatchRate,
	}, a.Logger)

	a.Webhooks = webhook.NewService(a.Store, a.Dispatcher,
		webhook.Options{
			RetryCeiling: cfg.WebhookRetryCeiling,
			Concurrency:  cfg.WebhookSweepConcurrency,
			BatchSize:    cfg.WebhookSweepBatchSize,
		},
		webhook.WithNotifier(a.Hub),
		webhook.WithLogger(a.Logger),
	)
}

// Health pings the store when it is remote
func (a *App) Health(ctx context.Context) error {
	if a.Redis == nil {
		return nil
	}
	return a.Redis.GetClient().Ping(ctx).Err()
}

// Close drains side-channel work, then releases the exporter and the store
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if err := a.Runner.Wait(ctx); err != nil {
		errs = append(errs, fmt.Errorf("draining side channel: %w", err))
	}
	if err := a.Exporter.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutting down metrics: %w", err))
	}
	if err := a.Store.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("closing store: %w", err))
	}
	return errors.Join(errs...)
}
