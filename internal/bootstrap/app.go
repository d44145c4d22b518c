package bootstrap

import (
	"context"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"ragapi/internal/ai"
	"ragapi/internal/app"
	"ragapi/internal/auth"
	"ragapi/internal/cache"
	"ragapi/internal/config"
	"ragapi/internal/model"
	mysqlClient "ragapi/internal/platform/mysql"
	rabbitmqClient "ragapi/internal/platform/rabbitmq"
	redisClient "ragapi/internal/platform/redis"
	"ragapi/internal/repository"
	"ragapi/internal/vectorstore/qdrant"
	"ragapi/internal/worker"
)

type App struct {
	Config        *config.Config
	MySQL         *gorm.DB
	Redis         *redis.Client
	MQConn        *amqp.Connection
	KeyManager    *auth.KeyManager
	RateLimiter   *auth.RateLimiter
	Embedder      *ai.EmbeddingClient
	VectorStore   *qdrant.Store
	IngestService *app.IngestService
	SearchService *app.SearchService
	IngestWorker  *worker.IngestWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN())
	if err != nil {
		return nil, err
	}
	if err := mysqlDB.AutoMigrate(&model.Document{}); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
	if err != nil {
		return nil, err
	}

	keyManager, err := auth.NewKeyManager(cfg.Auth.KeysFile)
	if err != nil {
		return nil, err
	}
	if cfg.Auth.BootstrapAdmin && keyManager.Count() == 0 {
		adminKey, err := keyManager.GenerateKey("admin", auth.RoleAdmin, 0)
		if err != nil {
			return nil, fmt.Errorf("bootstrap admin key failed: %w", err)
		}
		// Shown exactly once; only the digest is persisted.
		log.Printf("bootstrap admin API key: %s", adminKey)
	}

	embedder := ai.NewEmbeddingClient(
		cfg.Embedding.BaseURL,
		cfg.Embedding.Model,
		time.Duration(cfg.Embedding.TimeoutSeconds)*time.Second,
	)

	vectorStore := qdrant.NewStore(qdrant.Config{
		URL:        cfg.Qdrant.URL,
		APIKey:     cfg.Qdrant.APIKey,
		Collection: cfg.Qdrant.Collection,
		Timeout:    time.Duration(cfg.Qdrant.TimeoutSeconds) * time.Second,
	})
	// A dimension mismatch between config and an existing collection must
	// surface here, not as garbage similarity scores at query time.
	if err := vectorStore.EnsureCollection(ctx, cfg.Embedding.Dimension); err != nil {
		return nil, fmt.Errorf("ensure vector collection failed: %w", err)
	}

	embCache := cache.NewEmbeddingCache(
		redisCli,
		cfg.Embedding.Model,
		time.Duration(cfg.Redis.EmbedCacheTTLSeconds)*time.Second,
	)

	documentRepo := repository.NewDocumentRepository(mysqlDB)
	publisher := rabbitmqClient.NewIngestPublisher(mqConn, cfg.RabbitMQ.IngestQueue)

	ingestService := app.NewIngestService(
		documentRepo,
		vectorStore,
		embedder,
		publisher,
		embCache,
		cfg.Storage.UploadDir,
		cfg.Embedding.Dimension,
	)
	searchService := app.NewSearchService(embedder, vectorStore, cfg.Embedding.Dimension)

	ingestWorker := worker.NewIngestWorker(mqConn, ingestService, cfg.RabbitMQ.IngestQueue)
	if err := ingestWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start ingest worker failed: %w", err)
	}

	return &App{
		Config:        cfg,
		MySQL:         mysqlDB,
		Redis:         redisCli,
		MQConn:        mqConn,
		KeyManager:    keyManager,
		RateLimiter:   auth.NewRateLimiter(),
		Embedder:      embedder,
		VectorStore:   vectorStore,
		IngestService: ingestService,
		SearchService: searchService,
		IngestWorker:  ingestWorker,
		StartedAt:     time.Now(),
	}, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.IngestWorker != nil {
		a.IngestWorker.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
