package main

import (
	"context"
	"io/fs"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	masterclass "github.com/imrishuroy/masterclass-checkout"
	"github.com/imrishuroy/masterclass-checkout/internal/aws"
	"github.com/imrishuroy/masterclass-checkout/internal/checkout"
	"github.com/imrishuroy/masterclass-checkout/internal/config"
	"github.com/imrishuroy/masterclass-checkout/internal/gateway"
	"github.com/imrishuroy/masterclass-checkout/internal/handlers"
	"github.com/imrishuroy/masterclass-checkout/internal/idempotency"
	applog "github.com/imrishuroy/masterclass-checkout/internal/logger"
	"github.com/imrishuroy/masterclass-checkout/internal/metrics"
	"github.com/imrishuroy/masterclass-checkout/internal/purchases"
	"github.com/imrishuroy/masterclass-checkout/internal/ratelimit"
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

	clients, err := aws.NewAWSClients(ctx, cfg.AWSRegion, cfg.AWSEndpointOverride)
	if err != nil {
		logger.Fatal("failed to init aws clients", zap.Error(err))
	}

	store, closeStore := openStore(ctx, cfg, clients, logger)
	defer closeStore()

	opts := checkout.Options{
		Store:         store,
		Gateway:       gateway.New(cfg.RazorpayKeyID, cfg.RazorpayKeySecret),
		Metrics:       metrics.NewRecorder(clients.CloudWatch, cfg.MetricsNamespace, logger),
		MaterialsLink: cfg.MaterialsDownloadLink,
		Logger:        logger,
	}
	if cfg.FulfillmentQueueURL != "" {
		opts.Publisher = aws.NewPublisher(clients.SQS, cfg.FulfillmentQueueURL)
	}

	hcfg := handlers.HandlerConfig{
		Checkout: checkout.NewService(opts),
		Logger:   logger,
	}
	if cfg.IdempotencyTable != "" {
		hcfg.Idempotency = idempotency.NewStore(clients.DynamoDB, cfg.IdempotencyTable, cfg.IdempotencyTTL)
	}
	if cfg.RedisAddr != "" {
		rdb := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer func() { _ = rdb.Close() }()
		hcfg.Limiter = ratelimit.NewLimiter(rdb, cfg.RateLimit, cfg.RateWindow)
	}

	r := handlers.NewRouter(hcfg)

	if cfg.RunLocal {
		logger.Info("running local server", zap.String("addr", cfg.HTTPAddr))
		if err := r.Run(cfg.HTTPAddr); err != nil {
			logger.Fatal("failed to run local server", zap.Error(err))
		}
		return
	}

	adapter := ginadapter.New(r)
	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}

// openStore returns the purchase store selected by STORE_DRIVER and a cleanup func.
func openStore(ctx context.Context, cfg *config.Config, clients *aws.AWSClients, logger *zap.Logger) (purchases.Store, func()) {
	if cfg.StoreDriver == config.StoreDriverDynamoDB {
		return purchases.NewDynamoStore(clients.DynamoDB, cfg.PurchasesTable, cfg.ProductFilesTable), func() {}
	}

	migrations, err := fs.Sub(masterclass.MigrationsFS, "migrations")
	if err != nil {
		logger.Fatal("failed to open embedded migrations", zap.Error(err))
	}
	version, err := purchases.RunMigrations(cfg.DatabaseURL, migrations)
	if err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	logger.Info("database schema ready", zap.Uint("version", version))

	pool, err := purchases.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	return purchases.NewPostgresStore(pool), pool.Close
}
