package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/livefire2015/ez-solar-ledger/src/api"
	"github.com/livefire2015/ez-solar-ledger/src/config"
	"github.com/livefire2015/ez-solar-ledger/src/events"
	"github.com/livefire2015/ez-solar-ledger/src/insights"
	"github.com/livefire2015/ez-solar-ledger/src/logging"
	"github.com/livefire2015/ez-solar-ledger/src/models"
	"github.com/livefire2015/ez-solar-ledger/src/repository"
	"github.com/livefire2015/ez-solar-ledger/src/services"
	"go.uber.org/zap"
)

type store interface {
	repository.BillRepository
	repository.TenantRepository
}

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", ".", "Path to the configuration directory")
	flag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx := context.Background()

	// Storage
	var st store
	switch cfg.Storage.Driver {
	case "postgres":
		pg, err := repository.OpenPostgres(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer pg.Close()
		if err := pg.Migrate(ctx); err != nil {
			logger.Fatal("Failed to migrate database", zap.Error(err))
		}
		st = pg
	default:
		fs, err := repository.NewFileStore(cfg.Storage.Dir)
		if err != nil {
			logger.Fatal("Failed to open data directory", zap.Error(err), zap.String("dir", cfg.Storage.Dir))
		}
		st = fs
	}
	logger.Info("Storage ready", zap.String("driver", cfg.Storage.Driver))

	// Events
	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.Kafka.Enabled {
		kp, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		if err != nil {
			logger.Fatal("Failed to create Kafka producer", zap.Error(err))
		}
		defer kp.Close()
		publisher = kp
	}

	// Insights
	var provider insights.TextInsightProvider = insights.StaticProvider{}
	if cfg.Insights.Enabled {
		provider = insights.NewGeminiProvider(insights.GeminiConfig{
			Endpoint:      cfg.Insights.Endpoint,
			APIKey:        cfg.Insights.APIKey,
			Model:         cfg.Insights.Model,
			Timeout:       cfg.Insights.Timeout,
			RatePerSecond: cfg.Insights.RatePerSecond,
		}, logger)
	}

	// Services
	rateTable, _ := cfg.RateTable() // validated by LoadConfig
	baseline, _ := cfg.BaselineReading()

	rates, err := services.NewRateService(rateTable, logger)
	if err != nil {
		logger.Fatal("Invalid rate table", zap.Error(err))
	}

	tenants := services.NewTenantDirectory(st, logger)
	var seed []models.Tenant
	if cfg.Storage.SeedDemoTenants {
		seed = services.DemoTenants(time.Now().UTC())
	}
	if err := tenants.Load(ctx, seed); err != nil {
		logger.Fatal("Failed to load tenants", zap.Error(err))
	}

	ledger := services.NewLedgerService(services.LedgerConfig{
		Repository:      st,
		Publisher:       publisher,
		Logger:          logger,
		Options:         services.CalculatorOptions{IncludeFixedCharge: cfg.Billing.IncludeFixedCharge},
		BaselineReading: &baseline,
	})
	if err := ledger.Load(ctx); err != nil {
		logger.Fatal("Failed to load bills", zap.Error(err))
	}

	handler := api.NewHandler(ledger, rates, tenants, provider, logger)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("Ledger server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during HTTP server shutdown", zap.Error(err))
	}
	logger.Info("Server exited")
}
