package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gartstein/companies/internal/company/config"
	"github.com/gartstein/companies/internal/company/controller"
	"github.com/gartstein/companies/internal/company/db"
	"github.com/gartstein/companies/internal/company/events"
	"github.com/gartstein/companies/internal/company/handlers"
	"github.com/gartstein/companies/internal/company/openapi"
	"github.com/gartstein/companies/internal/company/registry"
	"github.com/gartstein/companies/internal/company/scheduler"
	"github.com/gartstein/companies/internal/company/tracing"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	auditQueueSize  = 1000
	flushTimeout    = 5 * time.Second
	localDocsFormat = "http://localhost:%d%s"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:           "company",
	Short:         "In-memory company registry REST service",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logger, err := initLogger(cfg.LogDevelopment)
		if err != nil {
			return fmt.Errorf("failed to build logger: %w", err)
		}
		defer func() { _ = logger.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return run(ctx, cfg, logger)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: "+config.DefaultPath+" when present)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initLogger initializes a Zap production logger, or a development one
// when asked to.
func initLogger(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// run assembles the service and blocks until ctx is done or a server fails.
func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	tp, err := tracing.NewProvider(cfg.Tracing())
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), flushTimeout)
		defer cancel()
		if err := tp.Shutdown(flushCtx); err != nil {
			logger.Error("Failed to flush traces", zap.Error(err))
		}
	}()

	var sinks events.Fanout

	if cfg.AuditEnabled() {
		repo, err := db.NewRepository(&cfg.DB, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer func() {
			if err := repo.Close(); err != nil {
				logger.Error("Failed to close database", zap.Error(err))
			}
		}()
		audit := events.NewAsync(repo, auditQueueSize, logger)
		defer audit.Close()
		sinks = append(sinks, audit)
		logger.Info("Audit trail enabled", zap.String("driver", cfg.DB.Driver))
	}

	if len(cfg.KafkaBrokers) > 0 {
		producer, err := events.NewProducer(cfg.KafkaBrokers, logger, cfg.Topic)
		if err != nil {
			return fmt.Errorf("failed to initialize Kafka producer: %w", err)
		}
		defer producer.Close()
		sinks = append(sinks, producer)
		logger.Info("Publishing company events", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.Topic))
	}

	var producer controller.EventProducer = events.Noop{}
	if len(sinks) > 0 {
		producer = sinks
	}

	companySvc := controller.NewCompanyService(registry.New(), producer, logger,
		controller.WithTracer(tp.Tracer()))

	docs, err := openapi.Load()
	if err != nil {
		return fmt.Errorf("failed to load API document: %w", err)
	}

	httpHandler, err := handlers.NewHTTPHandler(handlers.NewCompanyHandler(companySvc, docs, logger), cfg.JWTSecret, logger)
	if err != nil {
		return fmt.Errorf("failed to build HTTP routes: %w", err)
	}

	server := handlers.NewServer(cfg.HTTPEndpoint(), cfg.GRPCEndpoint(), logger)
	server.RegisterHTTPHandler(httpHandler)
	if err := server.Start(); err != nil {
		return fmt.Errorf("failed to start servers: %w", err)
	}
	logger.Info("Company service listening",
		zap.Int("port", cfg.Port),
		zap.String("docs", fmt.Sprintf(localDocsFormat, cfg.Port, openapi.DocsPath)),
		zap.Bool("auth", cfg.JWTSecret != ""),
	)

	resetTask := scheduler.NewResetTask(companySvc, cfg.ResetInterval, logger)
	if err := resetTask.Start(ctx); err != nil {
		server.Stop()
		return fmt.Errorf("failed to schedule reset: %w", err)
	}

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case serveErr = <-server.Errors():
		logger.Error("Server failed", zap.Error(serveErr))
	}

	resetTask.Stop()
	server.Stop()
	logger.Info("Servers stopped properly")

	return serveErr
}
