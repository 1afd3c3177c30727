package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the pgx database/sql driver
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/target/fuzzysearch/config"
	"github.com/target/fuzzysearch/internal/migrate"
)

const connectTimeout = 5 * time.Second

// DatabaseConfig contains configuration for database connections.
type DatabaseConfig struct {
	DBConfig    config.DBConfig
	RedisConfig config.RedisConfig
	Logger      *slog.Logger
}

// PostgresDSN builds a connection URL, escaping credentials.
func PostgresDSN(cfg config.DBConfig) string {
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   "/" + cfg.Name,
	}
	q := u.Query()
	q.Set("sslmode", cfg.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// ConnectDB establishes a connection to the PostgreSQL database.
func ConnectDB(ctx context.Context, cfg DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("pgx", PostgresDSN(cfg.DBConfig))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.DBConfig.MaxOpenConns)
	db.SetMaxIdleConns(cfg.DBConfig.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.DBConfig.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if pingErr := db.PingContext(pingCtx); pingErr != nil {
		if closeErr := db.Close(); closeErr != nil {
			pingErr = errors.Join(pingErr, fmt.Errorf("close database connection: %w", closeErr))
		}
		return nil, fmt.Errorf("ping database: %w", pingErr)
	}

	if cfg.Logger != nil {
		cfg.Logger.InfoContext(ctx, "database connected",
			"host", cfg.DBConfig.Host,
			"port", cfg.DBConfig.Port,
			"database", cfg.DBConfig.Name,
		)
	}
	return db, nil
}

// RedisOptions maps configuration onto go-redis universal options. The
// resulting client is a cluster client, a sentinel failover client or a
// single-node client depending on which fields are set.
func RedisOptions(cfg config.RedisConfig) (*redis.UniversalOptions, error) {
	switch {
	case cfg.UseCluster:
		addrs := normalizeAddrs(cfg.ClusterNodes)
		opts := &redis.UniversalOptions{Password: cfg.Password, IsClusterMode: true}
		if len(addrs) == 0 && isRedisURL(cfg.URI) {
			parsed, err := redis.ParseURL(strings.TrimSpace(cfg.URI))
			if err != nil {
				return nil, fmt.Errorf("parse redis cluster url: %w", err)
			}
			addrs = []string{parsed.Addr}
			opts.Username = parsed.Username
			if parsed.Password != "" {
				opts.Password = parsed.Password
			}
			opts.TLSConfig = parsed.TLSConfig
		} else if len(addrs) == 0 && strings.TrimSpace(cfg.URI) != "" {
			addrs = []string{strings.TrimSpace(cfg.URI)}
		}
		if len(addrs) == 0 {
			return nil, errors.New("redis cluster configuration requires at least one address")
		}
		opts.Addrs = addrs
		return opts, nil

	case cfg.UseSentinel:
		nodes := normalizeAddrs(cfg.SentinelNodes)
		if len(nodes) == 0 {
			return nil, errors.New("redis sentinel configuration requires at least one sentinel node")
		}
		return &redis.UniversalOptions{
			Addrs:            nodes,
			MasterName:       cfg.SentinelMasterName,
			Password:         cfg.Password,
			SentinelPassword: cfg.SentinelPassword,
		}, nil
	}

	uri := strings.TrimSpace(cfg.URI)
	if uri == "" {
		return nil, errors.New("redis direct configuration requires a URI")
	}
	if !isRedisURL(uri) {
		return &redis.UniversalOptions{Addrs: []string{uri}, Password: cfg.Password}, nil
	}
	parsed, err := redis.ParseURL(uri)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &redis.UniversalOptions{
		Addrs:     []string{parsed.Addr},
		Username:  parsed.Username,
		Password:  parsed.Password,
		DB:        parsed.DB,
		TLSConfig: parsed.TLSConfig,
	}, nil
}

// ConnectRedis establishes a connection to Redis.
//
//nolint:ireturn // returning redis.UniversalClient lets us pick single, sentinel, or cluster clients at runtime.
func ConnectRedis(ctx context.Context, cfg DatabaseConfig) (redis.UniversalClient, error) {
	opts, err := RedisOptions(cfg.RedisConfig)
	if err != nil {
		return nil, err
	}
	client := redis.NewUniversalClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if pingErr := client.Ping(pingCtx).Err(); pingErr != nil {
		if closeErr := client.Close(); closeErr != nil {
			pingErr = errors.Join(pingErr, fmt.Errorf("close redis client: %w", closeErr))
		}
		return nil, fmt.Errorf("ping redis: %w", pingErr)
	}

	if cfg.Logger != nil {
		mode := "direct"
		switch {
		case opts.IsClusterMode:
			mode = "cluster"
		case opts.MasterName != "":
			mode = "sentinel"
		}
		// Addresses never carry credentials once parsed.
		cfg.Logger.InfoContext(ctx, "redis connected", "mode", mode, "addrs", opts.Addrs)
	}
	return client, nil
}

// ConnectAMQP dials the broker and logs the host without credentials.
func ConnectAMQP(ctx context.Context, rawURL string, logger *slog.Logger) (*amqp.Connection, error) {
	conn, err := amqp.DialConfig(rawURL, amqp.Config{
		Dial:      amqp.DefaultDial(connectTimeout),
		Heartbeat: 10 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	if logger != nil {
		host := ""
		if uri, parseErr := amqp.ParseURI(rawURL); parseErr == nil {
			host = net.JoinHostPort(uri.Host, strconv.Itoa(uri.Port))
		}
		logger.InfoContext(ctx, "amqp connected", "host", host)
	}
	return conn, nil
}

func normalizeAddrs(raw []string) []string {
	result := make([]string, 0, len(raw))
	for _, addr := range raw {
		if trimmed := strings.TrimSpace(addr); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func isRedisURL(value string) bool {
	value = strings.TrimSpace(value)
	return strings.HasPrefix(value, "redis://") || strings.HasPrefix(value, "rediss://")
}

// RunMigrations runs database migrations.
func RunMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	if err := migrate.Run(ctx, db); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	if logger != nil {
		logger.InfoContext(ctx, "database migrations completed")
	}
	return nil
}
