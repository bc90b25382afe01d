package main

import (
	"context"
	"expvar"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"pixhooks/internal"
	"pixhooks/pkg/normalize"
	"pixhooks/pkg/storage"
	"pixhooks/pkg/storage/events"
	"pixhooks/pkg/storage/projections"
	"pixhooks/pkg/verify"
	"pixhooks/webhook"
)

func main() {
	logger := internal.NewLogger("server")
	configPath := flag.String("config", "config.yaml", "Path to config file")
	flag.Parse()

	config, err := internal.LoadConfig(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	ruleEngine, err := internal.NewRuleEngine(internal.RulesConfig{
		Rules:  config.Rules,
		Strict: config.RulesStrict,
		Logger: logger,
	})
	if err != nil {
		logger.Fatalf("compile rules: %v", err)
	}

	publisher, err := internal.NewPublisher(config.Watermill)
	if err != nil {
		logger.Fatalf("publisher: %v", err)
	}
	defer publisher.Close()

	ledger, err := openLedger(config.Ledger)
	if err != nil {
		logger.Fatalf("ledger: %v", err)
	}
	defer ledger.Close()

	projectionStore, err := openProjections(config.Storage)
	if err != nil {
		logger.Fatalf("projections: %v", err)
	}
	defer projectionStore.Close()

	pipeline := webhook.NewPipeline(ledger, projectionStore, ruleEngine, publisher, logger)

	mux := http.NewServeMux()

	if config.Providers.Woovi.Enabled {
		verifier, err := verify.New(
			config.Providers.Woovi.Secrets,
			config.Providers.Woovi.DefaultSecret,
			config.Providers.Woovi.AllowUnverified,
			normalize.WooviEventTypes(),
		)
		if err != nil {
			logger.Fatalf("woovi verifier: %v", err)
		}
		handler := webhook.NewWooviHandler(verifier, config.Providers.Woovi, pipeline, logger)
		mux.Handle(config.Providers.Woovi.Path, handler)
		logger.Printf("woovi webhook enabled on %s", config.Providers.Woovi.Path)
	}

	if config.Providers.Efi.Enabled {
		handler := webhook.NewEfiHandler(config.Providers.Efi, pipeline, logger)
		mux.Handle(config.Providers.Efi.Path, handler)
		logger.Printf("efi webhook enabled on %s", config.Providers.Efi.Path)
	}

	if config.Server.MetricsEnabled {
		mux.Handle(config.Server.MetricsPath, expvar.Handler())
		logger.Printf("metrics enabled on %s", config.Server.MetricsPath)
	}

	var handler http.Handler = mux
	if config.Server.MaxBodyBytes > 0 {
		handler = maxBodyHandler(handler, config.Server.MaxBodyBytes)
	}
	if config.Server.RateLimitRPS > 0 {
		handler = internal.NewRateLimitHandler(handler, config.Server.RateLimitRPS, config.Server.RateLimitBurst, time.Minute)
	}

	addr := ":" + strconv.Itoa(config.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       time.Duration(config.Server.ReadTimeoutMS) * time.Millisecond,
		WriteTimeout:      time.Duration(config.Server.WriteTimeoutMS) * time.Millisecond,
		IdleTimeout:       time.Duration(config.Server.IdleTimeoutMS) * time.Millisecond,
		ReadHeaderTimeout: time.Duration(config.Server.ReadHeaderMS) * time.Millisecond,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Printf("listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("listen: %v", err)
		}
	}()

	<-shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Printf("shutdown: %v", err)
	}
}

func openLedger(cfg internal.LedgerConfig) (storage.EventLedger, error) {
	switch strings.ToLower(cfg.Driver) {
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return events.OpenRedis(ctx, events.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      time.Duration(cfg.Redis.TTLHours) * time.Hour,
		})
	case "memory":
		return events.NewMemoryLedger(), nil
	default:
		return events.Open(events.Config{
			Driver:      cfg.Driver,
			DSN:         cfg.DSN,
			Dialect:     cfg.Dialect,
			Table:       cfg.Table,
			AutoMigrate: cfg.AutoMigrate,
		})
	}
}

func openProjections(cfg internal.StorageConfig) (storage.ProjectionStore, error) {
	if strings.ToLower(cfg.Driver) == "memory" {
		return projections.NewMemoryStore(), nil
	}
	return projections.Open(projections.Config{
		Driver:             cfg.Driver,
		DSN:                cfg.DSN,
		Dialect:            cfg.Dialect,
		ChargesTable:       cfg.ChargesTable,
		SubscriptionsTable: cfg.SubscriptionsTable,
		AutoMigrate:        cfg.AutoMigrate,
	})
}

func maxBodyHandler(next http.Handler, limit int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
		next.ServeHTTP(w, r)
	})
}
