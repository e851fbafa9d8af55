package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/angeloszaimis/inverse-config/config"
	"github.com/angeloszaimis/inverse-config/internal/handler"
	"github.com/angeloszaimis/inverse-config/internal/httpserver"
	"github.com/angeloszaimis/inverse-config/internal/identity"
	"github.com/angeloszaimis/inverse-config/internal/language"
	"github.com/angeloszaimis/inverse-config/internal/metrics"
	"github.com/angeloszaimis/inverse-config/internal/properties"
	"github.com/angeloszaimis/inverse-config/internal/webconfig"
	"github.com/angeloszaimis/inverse-config/pkg/logger"
)

func main() {
	flags := pflag.NewFlagSet("inverse-config", pflag.ExitOnError)
	configPath := flags.String("config", "", "path to a YAML config file")
	propertiesPath := flags.String("properties", "", "path to the YAML properties file, overrides properties.file")
	_ = flags.Parse(os.Args[1:])

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}
	if *propertiesPath != "" {
		cfg.Properties.File = *propertiesPath
	}

	log := logger.New(cfg.Logging.Level, true, cfg.Server.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	collector := metrics.NewCollector(cfg.Metrics.BufferSize, log)
	collector.Start(ctx)

	var watchers sync.WaitGroup
	store, err := initializeProperties(ctx, cfg, log, collector, &watchers)
	if err != nil {
		log.Error("Failed to load properties", slog.Any("err", err))
		os.Exit(1)
	}

	assembler := newAssembler(cfg, store)
	configHandler := handler.NewConfigHandler(log, assembler, collector, cfg.Server.TrustProxyHeaders)
	router := setupRouter(log, configHandler, collector, assembler.ContextRoot(), cfg.Web.RootDir)

	srv, err := httpserver.New(cfg.Server.Address, router,
		httpserver.WithTLS(cfg.Server.TLSCert, cfg.Server.TLSKey))
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		os.Exit(1)
	}

	log.Info("Starting inVerse config service",
		slog.String("address", srv.Addr()),
		slog.Bool("tls", srv.TLS()),
		slog.String("config_path", "/"+assembler.ContextRoot()+"/config"),
		slog.String("properties", store.File()))

	srvErrCh := make(chan error, 1)

	go func() {
		srvErrCh <- srv.Start()
	}()

	exitCode := 0
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
		}
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Error starting server", slog.Any("err", err))
			exitCode = 1
		}
	}

	cancel()
	watchers.Wait()
	collector.Wait()

	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

// initializeProperties opens the settings store and, when enabled, keeps it
// in sync with the file until ctx is done. Reloads are reported to collector.
// The watch goroutine is tracked by watchers.
func initializeProperties(ctx context.Context, cfg *config.Config, log *slog.Logger, collector *metrics.Collector, watchers *sync.WaitGroup) (*properties.Properties, error) {
	store, err := properties.New(cfg.Properties.File,
		properties.WithLogger(log),
		properties.WithReloadHook(func(err error) {
			collector.Emit(metrics.MetricEvent{
				Type:   metrics.EventPropertiesReloaded,
				Failed: err != nil,
			})
		}))
	if err != nil {
		return nil, err
	}

	if cfg.Properties.Watch {
		watchers.Add(1)
		go func() {
			defer watchers.Done()
			if err := store.Watch(ctx); err != nil {
				log.Error("Failed to watch properties", slog.Any("err", err))
			}
		}()
	}

	return store, nil
}

func newAssembler(cfg *config.Config, store properties.Store) *webconfig.Assembler {
	id := identity.NewStoreProvider(store, cfg.XMPP.Domain, cfg.XMPP.InbandRegistration)
	lang := language.NewStoreResolver(store, cfg.Web.Language)

	return webconfig.NewAssembler(store, id, lang, cfg.Web.ContextRoot)
}
