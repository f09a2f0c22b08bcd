package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cordigram/directory/internal/directory/auth"
	"github.com/cordigram/directory/internal/directory/config"
	"github.com/cordigram/directory/internal/directory/controller"
	"github.com/cordigram/directory/internal/directory/db"
	"github.com/cordigram/directory/internal/directory/events"
	"github.com/cordigram/directory/internal/directory/handlers"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const connectTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gRPC and HTTP servers",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger := initLogger()
	defer syncLogger(logger)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := connectDatabase(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer repo.Close()

	var producer controller.EventProducer = events.Discard{}
	if len(cfg.KafkaBrokers) > 0 {
		p, err := connectProducer(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer p.Close()
		producer = p
	} else {
		logger.Warn("No Kafka brokers configured, events are discarded")
	}

	companySvc := controller.NewCompanyService(repo, producer, logger)
	profileSvc := controller.NewProfileService(repo, companySvc, producer, logger)
	reportSvc := controller.NewReportService(repo, producer, logger, cfg.ReportCooldown)

	if cfg.ReconcileOnEvents && len(cfg.KafkaBrokers) > 0 {
		reconciler := controller.NewMemberCountReconciler(repo, logger)
		consumer := events.NewConsumer(cfg.KafkaBrokers, cfg.ConsumerGroup, cfg.Topic, logger)
		consumer.RegisterHandler(reconciler.HandleEvent)
		consumer.Start(ctx)
		defer func() {
			stop()
			consumer.Wait()
			consumer.Close()
		}()
	}

	limiter := rate.NewLimiter(rate.Limit(cfg.SearchRPS), cfg.SearchBurst)
	api := handlers.NewAPI(companySvc, profileSvc, reportSvc, limiter, logger)

	authInterceptor := auth.NewAuthInterceptor(cfg.JWTSecret)
	server := handlers.NewServer(cfg.GRPCPort, cfg.HTTPPort, logger, grpc.UnaryInterceptor(authInterceptor.Unary()))
	if err := server.RegisterHTTPGateway(
		[]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())},
		cfg.JWTSecret,
		api,
	); err != nil {
		return fmt.Errorf("failed to register HTTP gateway: %w", err)
	}

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	logger.Info("Servers stopped properly")
	return nil
}

// connectDatabase opens the repository, retrying while the database comes up.
func connectDatabase(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*db.Repository, error) {
	var repo *db.Repository
	err := retry(ctx, logger, "database", func() error {
		var err error
		repo, err = db.NewRepository(cfg.Database())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return repo, nil
}

// connectProducer creates the Kafka producer, retrying while the brokers
// come up.
func connectProducer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*events.Producer, error) {
	var producer *events.Producer
	err := retry(ctx, logger, "kafka", func() error {
		var err error
		producer, err = events.NewProducer(cfg.KafkaBrokers, logger, cfg.Topic)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Kafka producer: %w", err)
	}
	return producer, nil
}

func retry(ctx context.Context, logger *zap.Logger, what string, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = connectTimeout
	return backoff.RetryNotify(op, backoff.WithContext(b, ctx), func(err error, next time.Duration) {
		logger.Warn("Connection attempt failed",
			zap.String("target", what),
			zap.Error(err),
			zap.Duration("retry_in", next),
		)
	})
}
