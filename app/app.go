// Package app wires configuration, storage, services and the HTTP surface. It
// is shared by the long-running server and the Lambda entrypoint.
package app

import (
	"context"
	"fmt"

	"mock-assessment-service/config"
	"mock-assessment-service/handlers"
	"mock-assessment-service/logger"
	"mock-assessment-service/middleware"
	"mock-assessment-service/monitoring"
	"mock-assessment-service/services"
	"mock-assessment-service/store"
	"mock-assessment-service/utils"
	"mock-assessment-service/workers"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// App is a fully wired service instance.
type App struct {
	Fiber  *fiber.App
	Log    *zap.Logger
	Store  store.Store
	Tables store.Tables

	Progress    *services.ProgressionService
	Leaderboard *services.LeaderboardService
	Sync        *workers.LeaderboardSyncWorker
}

// Deps overrides collaborators, mostly for tests. Zero fields are built from
// the config.
type Deps struct {
	Log     *zap.Logger
	Clock   clockwork.Clock
	Store   store.Store
	Objects services.ObjectStore
}

func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	return BuildWith(ctx, cfg, Deps{})
}

func BuildWith(ctx context.Context, cfg *config.Config, deps Deps) (*App, error) {
	log := deps.Log
	if log == nil {
		log = logger.New(cfg.Log, cfg.Server.Mode)
	}
	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	st := deps.Store
	if st == nil {
		var err error
		if st, err = OpenStore(ctx, cfg.Store, log); err != nil {
			return nil, err
		}
	}

	objects := deps.Objects
	if objects == nil {
		r2, err := utils.NewR2Client(ctx, cfg.Storage)
		if err != nil {
			return nil, err
		}
		if !r2.Enabled() {
			log.Info("R2_BUCKET_NAME not set, logo uploads disabled")
		}
		objects = r2
	}

	tables := store.DefaultTables(cfg.Store.TablePrefix)
	lb := services.NewLeaderboardService(st, tables, clock, log.Named("leaderboard"))
	progress := services.NewProgressionService(st, tables, lb, clock, log.Named("progress"))
	challenges := services.NewChallengeService(progress)
	assessments := services.NewAssessmentService(st, tables, objects, clock, log.Named("assessments"))

	f := fiber.New(fiber.Config{
		AppName:      "mock-assessment-service",
		BodyLimit:    4 * 1024 * 1024,
		ErrorHandler: handlers.ErrorHandler(log),
	})
	f.Use(middleware.Recover(log))
	f.Use(middleware.RequestLogger(log.Named("http")))
	f.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	f.Use(monitoring.MetricsMiddleware())

	handlers.SetupHealthRoutes(f)
	f.Get("/metrics", monitoring.PrometheusHandler())

	api := f.Group("/", middleware.GatewayAuthMiddleware(cfg.Server.GatewayToken, log))
	handlers.SetupProgressionRoutes(api, handlers.NewHandler(progress, lb, challenges, assessments, log.Named("handlers")))

	return &App{
		Fiber:       f,
		Log:         log,
		Store:       st,
		Tables:      tables,
		Progress:    progress,
		Leaderboard: lb,
		Sync:        workers.NewLeaderboardSyncWorker(lb, cfg.Leaderboard.SyncInterval, clock, log.Named("sync")),
	}, nil
}

// OpenStore connects the configured store driver.
func OpenStore(ctx context.Context, cfg config.StoreConfig, log *zap.Logger) (store.Store, error) {
	switch cfg.Driver {
	case "memory":
		log.Warn("using in-memory store, data is lost on restart")
		return store.NewMemoryStore(), nil

	case "dynamodb":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, fmt.Errorf("load AWS config: %w", err)
		}
		client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
			if cfg.DynamoEndpoint != "" {
				o.BaseEndpoint = aws.String(cfg.DynamoEndpoint)
			}
		})
		log.Info("using DynamoDB store", zap.String("region", cfg.AWSRegion), zap.String("table_prefix", cfg.TablePrefix))
		return store.NewDynamoStore(client), nil

	case "postgres":
		db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		log.Info("using Postgres store")
		return store.NewGormStore(db)

	default:
		return nil, &config.InvalidError{Key: "STORE_DRIVER", Value: cfg.Driver}
	}
}
