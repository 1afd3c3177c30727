package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/target/fuzzysearch/config"
	"github.com/target/fuzzysearch/internal/adapters/queue"
	"github.com/target/fuzzysearch/internal/adapters/s3"
	"github.com/target/fuzzysearch/internal/core"
	"github.com/target/fuzzysearch/internal/data"
	httpx "github.com/target/fuzzysearch/internal/http"
)

// JobStore is the full surface of every Job Store backend: the transitions
// used by dispatcher and worker plus the reaper's maintenance operations.
type JobStore interface {
	core.JobStore
	core.JobReaperStore
}

// Infrastructure holds shared connections. Fields are nil when no configured
// backend needs them.
type Infrastructure struct {
	DB    *sql.DB
	Redis redis.UniversalClient
	AMQP  *amqp.Connection
}

// Connect opens only the connections the configured backends need and runs
// migrations when enabled.
func Connect(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (*Infrastructure, error) {
	infra := &Infrastructure{}
	dbCfg := DatabaseConfig{DBConfig: cfg.Postgres, RedisConfig: cfg.Redis, Logger: logger}

	if cfg.NeedsPostgres() {
		db, err := ConnectDB(ctx, dbCfg)
		if err != nil {
			return nil, fmt.Errorf("connect db: %w", err)
		}
		infra.DB = db
		if cfg.Postgres.RunMigrationsOnStart {
			if err := RunMigrations(ctx, db, logger); err != nil {
				return nil, errors.Join(err, infra.Close())
			}
		} else {
			logger.InfoContext(ctx, "skipping database migrations on startup", "reason", "disabled via config")
		}
	}

	if cfg.NeedsRedis() {
		client, err := ConnectRedis(ctx, dbCfg)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("connect redis: %w", err), infra.Close())
		}
		infra.Redis = client
	}

	if cfg.Queue.Backend == config.QueueBackendAMQP {
		conn, err := ConnectAMQP(ctx, cfg.Queue.AMQPURL, logger)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("connect amqp: %w", err), infra.Close())
		}
		infra.AMQP = conn
	}

	return infra, nil
}

// HealthProbes returns a /healthz check for each open connection.
func (i *Infrastructure) HealthProbes() []httpx.HealthProbe {
	if i == nil {
		return nil
	}
	var probes []httpx.HealthProbe
	if i.DB != nil {
		probes = append(probes, httpx.HealthProbe{Name: "postgres", Check: i.DB.PingContext})
	}
	if i.Redis != nil {
		probes = append(probes, httpx.HealthProbe{Name: "redis", Check: func(ctx context.Context) error {
			return i.Redis.Ping(ctx).Err()
		}})
	}
	if i.AMQP != nil {
		probes = append(probes, httpx.HealthProbe{Name: "amqp", Check: func(context.Context) error {
			if i.AMQP.IsClosed() {
				return amqp.ErrClosed
			}
			return nil
		}})
	}
	return probes
}

// Close releases every open connection.
func (i *Infrastructure) Close() error {
	if i == nil {
		return nil
	}
	var errs []error
	if i.AMQP != nil {
		if err := i.AMQP.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, fmt.Errorf("close amqp: %w", err))
		}
	}
	if i.Redis != nil {
		if err := i.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if i.DB != nil {
		if err := i.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return errors.Join(errs...)
}

// BuildJobStore selects the Job Store backend.
//
//nolint:ireturn // backend is chosen at runtime.
func BuildJobStore(cfg config.JobStoreConfig, infra *Infrastructure, logger *slog.Logger) (JobStore, error) {
	switch cfg.Backend {
	case config.JobStoreBackendMemory, "":
		return data.NewMemoryJobStore(nil), nil
	case config.JobStoreBackendRedis:
		if infra == nil || infra.Redis == nil {
			return nil, errors.New("redis job store requires a redis connection")
		}
		return data.NewRedisJobStore(infra.Redis, data.RedisJobStoreOptions{
			Prefix:    cfg.KeyPrefix,
			RecordTTL: cfg.RecordTTL,
		}), nil
	case config.JobStoreBackendPostgres:
		if infra == nil || infra.DB == nil {
			return nil, errors.New("postgres job store requires a database connection")
		}
		return data.NewJobRepo(infra.DB, data.RepoConfig{Logger: logger}), nil
	default:
		return nil, fmt.Errorf("unsupported job store backend %q", cfg.Backend)
	}
}

// BuildQueue selects the job queue substrate.
//
//nolint:ireturn // backend is chosen at runtime.
func BuildQueue(cfg config.QueueConfig, infra *Infrastructure, logger *slog.Logger) (core.JobQueue, error) {
	switch cfg.Backend {
	case config.QueueBackendMemory, "":
		return queue.NewMemory(), nil
	case config.QueueBackendRedis:
		if infra == nil || infra.Redis == nil {
			return nil, errors.New("redis queue requires a redis connection")
		}
		consumer := cfg.Consumer
		if consumer == "" {
			host, err := os.Hostname()
			if err != nil {
				return nil, fmt.Errorf("redis queue consumer: %w", err)
			}
			consumer = host
		}
		return queue.NewRedis(infra.Redis, cfg.Name, consumer), nil
	case config.QueueBackendAMQP:
		if infra == nil || infra.AMQP == nil {
			return nil, errors.New("amqp queue requires an amqp connection")
		}
		q, err := queue.NewAMQP(infra.AMQP, queue.AMQPOptions{
			Exchange:     cfg.AMQPExchange,
			RoutingKey:   cfg.AMQPRoutingKey,
			Queue:        cfg.Name,
			PollInterval: cfg.PollInterval,
			Logger:       logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create amqp queue: %w", err)
		}
		return q, nil
	default:
		return nil, fmt.Errorf("unsupported queue backend %q", cfg.Backend)
	}
}

// BuildCorpora selects corpus storage. The S3 bucket is created on demand.
//
//nolint:ireturn // backend is chosen at runtime.
func BuildCorpora(ctx context.Context, cfg config.CorpusConfig, infra *Infrastructure) (core.CorpusRepository, error) {
	switch cfg.Backend {
	case config.CorpusBackendMemory, "":
		return data.NewMemoryCorpusStore(nil), nil
	case config.CorpusBackendPostgres:
		if infra == nil || infra.DB == nil {
			return nil, errors.New("postgres corpus store requires a database connection")
		}
		return data.NewCorpusRepo(infra.DB), nil
	case config.CorpusBackendS3:
		store, err := s3.NewCorpusStore(s3.Options{
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			UseSSL:    cfg.S3.UseSSL,
		})
		if err != nil {
			return nil, err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported corpus backend %q", cfg.Backend)
	}
}

// requeuer is implemented by queues that park reserved ids in a processing
// list and can return them after a crash.
type requeuer interface {
	RequeueInFlight(ctx context.Context) (int, error)
}

var _ requeuer = (*queue.Redis)(nil)
