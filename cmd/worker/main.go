package main

import (
	"context"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/imrishuroy/masterclass-checkout/internal/aws"
	"github.com/imrishuroy/masterclass-checkout/internal/config"
	"github.com/imrishuroy/masterclass-checkout/internal/fulfillment"
	applog "github.com/imrishuroy/masterclass-checkout/internal/logger"
	"github.com/imrishuroy/masterclass-checkout/internal/purchases"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := applog.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	var store purchases.Store
	if cfg.StoreDriver == config.StoreDriverDynamoDB {
		clients, err := aws.NewAWSClients(ctx, cfg.AWSRegion, cfg.AWSEndpointOverride)
		if err != nil {
			logger.Fatal("failed to init aws clients", zap.Error(err))
		}
		store = purchases.NewDynamoStore(clients.DynamoDB, cfg.PurchasesTable, cfg.ProductFilesTable)
	} else {
		// the api applies migrations; the worker only reads
		pool, err := purchases.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer pool.Close()
		store = purchases.NewPostgresStore(pool)
	}

	var notifier fulfillment.Notifier
	if cfg.SMTPEnabled() {
		notifier = fulfillment.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)
	} else {
		logger.Warn("SMTP_HOST not set, confirmation emails are disabled")
	}

	processor := fulfillment.NewProcessor(store, notifier, logger)

	// If RUN_LOCAL=true, process a single simulated SQS event and exit.
	if cfg.RunLocal {
		body := os.Getenv("LOCAL_SQS_BODY")
		if body == "" {
			logger.Fatal("LOCAL_SQS_BODY is required when RUN_LOCAL=true")
		}
		event := events.SQSEvent{Records: []events.SQSMessage{{MessageId: "local-1", Body: body}}}
		resp, err := processor.Handle(ctx, event)
		if err != nil {
			logger.Fatal("local handler error", zap.Error(err))
		}
		if len(resp.BatchItemFailures) > 0 {
			logger.Fatal("local message failed", zap.String("message_id", resp.BatchItemFailures[0].ItemIdentifier))
		}
		return
	}

	lambda.Start(processor.Handle)
}
