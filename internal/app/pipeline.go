package app

import (
	"context"
	"time"

	config "github.com/collinlucke/baphomet-server/internal/cfg"
	"github.com/collinlucke/baphomet-server/internal/infrastructure/imaging"
	"github.com/collinlucke/baphomet-server/internal/infrastructure/source"
	"github.com/collinlucke/baphomet-server/internal/repository/memory"
	minioRepo "github.com/collinlucke/baphomet-server/internal/repository/minio"
	"github.com/collinlucke/baphomet-server/internal/repository/pgdb"
	pgdbConv "github.com/collinlucke/baphomet-server/internal/repository/pgdb/converter"
	"github.com/collinlucke/baphomet-server/internal/repository/r2"
	"github.com/collinlucke/baphomet-server/internal/repository/redis"
	redisConv "github.com/collinlucke/baphomet-server/internal/repository/redis/converter"
	"github.com/collinlucke/baphomet-server/internal/usecase"
	"github.com/collinlucke/baphomet-server/pkg/clients"
	"github.com/collinlucke/baphomet-server/pkg/closer"
	"github.com/collinlucke/baphomet-server/pkg/e"
	"github.com/collinlucke/baphomet-server/pkg/logger"
	"github.com/collinlucke/baphomet-server/pkg/metrics"
	"github.com/collinlucke/baphomet-server/pkg/postgres"
	"github.com/collinlucke/baphomet-server/pkg/sigv4"
	"github.com/jimlawless/whereami"
)

// Pipeline - собранный конвейер изображений без транспортного слоя.
// Используется и сервером, и imagectl.
type Pipeline struct {
	UC     *usecase.ImageUseCase
	DB     *postgres.PgDatabase // nil, если журнал выключен
	Closer *closer.Closer
}

// NewPipeline поднимает хранилище, кэш и, если настроен PostgreSQL, журнал обработки.
// Все открытые ресурсы регистрируются в Closer.
func NewPipeline(cfg *config.Config, logger logger.Logger, m metrics.Observer) (*Pipeline, error) {
	cl := closer.NewCloser(0)

	store, err := initStore(cfg, logger, m)
	if err != nil {
		return nil, err
	}

	cache, err := initCache(cfg, logger, cl)
	if err != nil {
		_ = cl.Close(context.Background())
		return nil, err
	}

	uc := usecase.NewImageUC(
		store,
		imaging.NewResizer(imaging.DefaultQuality),
		source.NewDownloader(cfg.Source, logger),
		cache,
		m,
		logger,
	)

	p := &Pipeline{UC: uc, Closer: cl}

	if cfg.Db != nil {
		db, err := initPGDB(logger, cfg)
		if err != nil {
			_ = cl.Close(context.Background())
			return nil, err
		}
		cl.Add("postgres", func(context.Context) error {
			db.Close()
			return nil
		})

		uc.WithLedger(
			db.Pool,
			pgdb.NewProcessedImageRepo(db.Pool, pgdbConv.ProcessedImageConv{}),
			pgdb.NewOutboxEventRepo(db.Pool, pgdbConv.OutboxEventConv{}),
		)
		p.DB = db
		logger.Infof("processing ledger enabled (postgres %s/%s)", cfg.Db.Host, cfg.Db.DBName)
	}

	return p, nil
}

func initStore(cfg *config.Config, logger logger.Logger, m metrics.Observer) (usecase.ObjectStore, error) {
	switch cfg.Storage.Provider {
	case config.ProviderMinIO:
		minioClient, err := clients.NewMinIOClient(cfg)
		if err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		created, err := clients.EnsureBucket(ctx, minioClient, cfg.Storage.BucketName)
		if err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		if created {
			logger.Infof("bucket %s created", cfg.Storage.BucketName)
		}

		logger.Infof("object store: minio %s/%s", cfg.Minio.MinioEndpoint, cfg.Storage.BucketName)
		return minioRepo.NewImageRepo(minioClient, cfg.Storage, m, logger), nil
	default:
		signer, err := sigv4.New(sigv4.Config{
			AccessKeyID:     cfg.Storage.AccessKeyID,
			SecretAccessKey: cfg.Storage.SecretAccessKey,
			Endpoint:        cfg.Storage.Endpoint,
		})
		if err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		logger.Infof("object store: r2 %s", cfg.Storage.Endpoint)
		return r2.NewImageRepo(signer, nil, cfg.Storage, m, logger), nil
	}
}

func initCache(cfg *config.Config, logger logger.Logger, cl *closer.Closer) (usecase.VariantCache, error) {
	if cfg.Redis == nil {
		logger.Infof("variant cache: in-memory lru, size %d", cfg.Cache.Size)
		return memory.NewCacheRepo(cfg.Cache), nil
	}

	redisClient, err := clients.ConnectRedis(context.Background(), cfg.Redis, 5*time.Second)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	cl.Add("redis", func(context.Context) error {
		return redisClient.Close()
	})

	logger.Infof("variant cache: redis %s", cfg.Redis.Addr)
	return redis.NewCacheRepo(redisClient, redisConv.NewConverter(), cfg.Cache, logger), nil
}

func initPGDB(logger logger.Logger, cfg *config.Config) (*postgres.PgDatabase, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.Db)
	if err != nil {
		logger.Errorf(err, "failed to connect to database")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if err := db.RunMigrations(logger); err != nil {
		db.Close()
		logger.Errorf(err, "failed to run migrations")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	logger.Infof("processing ledger: postgres %s:%s/%s, max conns %d", cfg.Db.Host, cfg.Db.Port, cfg.Db.DBName, cfg.Db.MaxConns)
	return db, nil
}
