// Package bootstrap wires the configured transport and store for the mains.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/draftoverlay/go/internal/broadcast"
	"github.com/mcdev12/draftoverlay/go/internal/config"
	"github.com/mcdev12/draftoverlay/go/internal/snapshot"
)

// LoadConfig reads .env (if any), then the config file, and sets up logging.
func LoadConfig() (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	cfg, err := config.Load(config.Path())
	if err != nil {
		return nil, err
	}
	SetupLogging(cfg.LogLevel)
	return cfg, nil
}

// SetupLogging switches the global logger to console output at level.
func SetupLogging(level string) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

// Runtime holds the shared connections of one process.
type Runtime struct {
	Config    *config.Config
	Transport broadcast.Transport
	Store     *snapshot.Store

	redis *redis.Client
	pool  *pgxpool.Pool
}

// Open connects whatever cfg asks for. Close releases it.
func Open(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	rt := &Runtime{Config: cfg}

	if cfg.Broadcast.Transport == config.TransportRedis || cfg.Store.Backend == config.StoreRedis {
		rt.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rt.redis.Ping(ctx).Err(); err != nil {
			rt.Close(ctx)
			return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Redis.Addr, err)
		}
		log.Info().Str("addr", cfg.Redis.Addr).Int("db", cfg.Redis.DB).Msg("connected to redis")
	}

	transport, err := rt.openTransport()
	if err != nil {
		rt.Close(ctx)
		return nil, err
	}
	rt.Transport = transport

	backend, err := rt.openBackend(ctx)
	if err != nil {
		rt.Close(ctx)
		return nil, err
	}
	rt.Store = snapshot.NewStore(backend)

	log.Info().
		Str("transport", cfg.Broadcast.Transport).
		Str("channel", cfg.Broadcast.Channel).
		Str("store", cfg.Store.Backend).
		Str("namespace", cfg.Store.Namespace).
		Msg("runtime ready")
	return rt, nil
}

func (rt *Runtime) openTransport() (broadcast.Transport, error) {
	cfg := rt.Config
	switch cfg.Broadcast.Transport {
	case config.TransportNATS:
		return broadcast.NewNATSTransport(cfg.NATSConfig())
	case config.TransportRedis:
		return broadcast.NewRedisTransport(rt.redis, cfg.Store.Namespace), nil
	default:
		// Only surfaces inside this process can hear each other.
		return broadcast.NewBus(), nil
	}
}

func (rt *Runtime) openBackend(ctx context.Context) (snapshot.Backend, error) {
	cfg := rt.Config
	switch cfg.Store.Backend {
	case config.StoreRedis:
		return snapshot.NewRedisBackend(rt.redis, cfg.Store.Namespace), nil
	case config.StorePostgres:
		poolCfg, err := pgxpool.ParseConfig(cfg.Database.DSN())
		if err != nil {
			return nil, fmt.Errorf("failed to parse database config: %w", err)
		}
		if cfg.Database.MaxConns > 0 {
			poolCfg.MaxConns = cfg.Database.MaxConns
		}
		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create database pool: %w", err)
		}
		rt.pool = pool
		if err := pool.Ping(ctx); err != nil {
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		backend := snapshot.NewPostgresBackend(pool, cfg.Store.Namespace)
		if err := backend.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		log.Info().Str("database", cfg.Database.Database).Msg("connected to database")
		return backend, nil
	default:
		return snapshot.NewMemoryBackend(), nil
	}
}

// OpenChannel opens a handle on the configured channel name.
func (rt *Runtime) OpenChannel(ctx context.Context) (broadcast.Channel, error) {
	ch, err := rt.Transport.Open(ctx, rt.Config.Broadcast.Channel)
	if err != nil {
		return nil, fmt.Errorf("failed to open channel %q: %w", rt.Config.Broadcast.Channel, err)
	}
	return ch, nil
}

// Close flushes the store and closes connections in reverse order of opening.
func (rt *Runtime) Close(ctx context.Context) {
	if rt.Store != nil {
		rt.Store.Close(ctx)
	}
	if rt.Transport != nil {
		if err := rt.Transport.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close broadcast transport")
		}
	}
	if rt.pool != nil {
		rt.pool.Close()
	}
	if rt.redis != nil {
		if err := rt.redis.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close redis client")
		}
	}
}
