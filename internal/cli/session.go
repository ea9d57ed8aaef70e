package cli

import (
	"context"
	"io"
	"log/slog"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"

	"github.com/roach88/fieldsync/internal/config"
	"github.com/roach88/fieldsync/internal/engine"
	"github.com/roach88/fieldsync/internal/identity"
	"github.com/roach88/fieldsync/internal/store"
)

// session is an open database with the engine optionally attached.
type session struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *store.Store
	engine *engine.Engine
	redis  *redis.Client
	detach func()
}

// loadConfig reads the config file and applies the --db override.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Database != "" {
		cfg.Database.Path = opts.Database
	}
	return cfg, nil
}

// newLogger builds the slog logger the config asks for. --verbose forces
// debug level.
func newLogger(cfg *config.Config, verbose bool, w io.Writer) *slog.Logger {
	level := cfg.LogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	hopts := &slog.HandlerOptions{Level: level}
	if cfg.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}

// openSession opens the configured database. With attach set the sync
// engine is built from config and subscribed to the store.
func openSession(cmd *cobra.Command, opts *RootOptions, attach bool) (*session, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	logger := newLogger(cfg, opts.Verbose, cmd.ErrOrStderr())

	logger.Debug("opening database", "path", cfg.Database.Path)
	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	s := &session{cfg: cfg, logger: logger, store: st}
	if !attach {
		return s, nil
	}

	engOpts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithLocationTypes(cfg.Sync.BillingLocationType, cfg.Sync.ShippingLocationType),
		engine.WithPhoneType(cfg.Sync.PhoneType, cfg.Sync.PhoneLocationType),
	}

	if cfg.Cache.Backend == config.CacheRedis {
		backend, err := s.redisBackend(commandContext(cmd))
		if err != nil {
			s.Close()
			return nil, err
		}
		cache := identity.New(st, st,
			identity.WithBackend(backend),
			identity.WithLogger(logger),
		)
		engOpts = append(engOpts, engine.WithCache(cache))
	}

	s.engine = engine.New(st, st, st, st, engOpts...)
	s.detach = s.engine.Attach()
	return s, nil
}

// redisBackend connects to the configured Redis and verifies it answers.
func (s *session) redisBackend(ctx context.Context) (*identity.RedisBackend, error) {
	rc := s.cfg.Cache.Redis
	s.redis = redis.NewClient(&redis.Options{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
	})
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to connect to redis at "+rc.Addr, err)
	}
	s.logger.Debug("identity cache backend", "backend", config.CacheRedis, "addr", rc.Addr)
	return identity.NewRedisBackend(s.redis, rc.Prefix, rc.TTL), nil
}

// Close detaches the engine and releases the store and Redis client.
func (s *session) Close() {
	if s.detach != nil {
		s.detach()
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("error closing redis client", "error", err)
		}
	}
	if err := s.store.Close(); err != nil {
		s.logger.Error("error closing database", "error", err)
	}
}

// commandContext returns cmd's context, or Background when it has none.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
