package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/memohai/storefront/internal/assistant"
	"github.com/memohai/storefront/internal/catalog"
	"github.com/memohai/storefront/internal/config"
	"github.com/memohai/storefront/internal/handlers"
	"github.com/memohai/storefront/internal/llm"
	"github.com/memohai/storefront/internal/logger"
	"github.com/memohai/storefront/internal/metrics"
	"github.com/memohai/storefront/internal/server"
	"github.com/memohai/storefront/internal/version"
)

const storeOpenTimeout = 15 * time.Second

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			app := newApp(cfg)
			if err := app.Err(); err != nil {
				return err
			}
			app.Run()
			return nil
		},
	}
}

func newApp(cfg config.Config, extra ...fx.Option) *fx.App {
	options := []fx.Option{
		fx.Supply(cfg),
		fx.Provide(
			provideLogger,
			provideRegistry,
			provideMetrics,
			provideStore,
			provideCache,
			provideWarmer,
			provideGenerator,
			provideAssistant,

			provideServerHandler(handlers.NewPingHandler),
			provideServerHandler(handlers.NewAssistantHandler),
			provideServerHandler(handlers.NewProductsHandler),
			provideServerHandler(provideMetricsHandler),

			provideServer,
		),
		fx.Invoke(
			startWarmer,
			startServer,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	}
	return fx.New(append(options, extra...)...)
}

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

func provideLogger(cfg config.Config) *slog.Logger {
	return logger.Init(cfg.Log.Level, cfg.Log.Format)
}

func provideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func provideMetrics(reg *prometheus.Registry) *metrics.Metrics {
	return metrics.MustNew(reg)
}

func provideMetricsHandler(reg *prometheus.Registry) *handlers.MetricsHandler {
	return handlers.NewMetricsHandler(reg)
}

func provideStore(lc fx.Lifecycle, log *slog.Logger, cfg config.Config) (catalog.Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), storeOpenTimeout)
	defer cancel()

	store, closeStore, err := openStore(ctx, log, cfg)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			closeStore()
			return nil
		},
	})
	return store, nil
}

func provideCache(log *slog.Logger, store catalog.Store, m *metrics.Metrics, cfg config.Config) *catalog.Cache {
	return catalog.NewCache(log, store, cfg.Catalog.CacheSize, cfg.Catalog.TTL(), catalog.WithLookupObserver(m.ObserveCacheLookup))
}

func provideWarmer(log *slog.Logger, cache *catalog.Cache, cfg config.Config) *catalog.Warmer {
	return catalog.NewWarmer(log, cache, cfg.Catalog.RefreshSpec)
}

func provideGenerator(log *slog.Logger, cfg config.Config) (llm.Generator, error) {
	client, err := llm.NewClient(log, cfg.LLM)
	if err != nil {
		return nil, err
	}
	if cfg.LLM.APIKey == "" {
		log.Warn("llm api key is empty; requests go out unauthenticated", slog.String("base_url", cfg.LLM.BaseURL))
	}
	return client, nil
}

func provideAssistant(log *slog.Logger, cache *catalog.Cache, store catalog.Store, gen llm.Generator, m *metrics.Metrics, cfg config.Config) *assistant.Service {
	return assistant.NewService(log, cache, store, gen, m, cfg.Assistant)
}

type serverParams struct {
	fx.In

	Logger         *slog.Logger
	Config         config.Config
	ServerHandlers []server.Handler `group:"server_handlers"`
}

func provideServer(params serverParams) *server.Server {
	return server.NewServer(params.Logger, params.Config.Server.Addr, params.ServerHandlers...)
}

func startWarmer(lc fx.Lifecycle, warmer *catalog.Warmer) {
	lc.Append(fx.Hook{
		OnStart: warmer.Start,
		OnStop:  warmer.Stop,
	})
}

func startServer(lc fx.Lifecycle, log *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner) {
	log.Info("starting storefront", slog.String("version", version.Get().String()))

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil {
					log.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Stop(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}
