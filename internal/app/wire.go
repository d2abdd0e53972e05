// Package app wires configuration into the shared components used by both
// binaries.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"multitimer/internal/mirror"
	"multitimer/internal/notify"
	"multitimer/internal/pkg/config"
	"multitimer/internal/pkg/logging"
	"multitimer/internal/store"
)

// Logging builds the logger described by the log.* keys and follows level
// changes on config reload. When toFile is false the logger writes to out.
func Logging(cfg config.Config, service string, toFile bool, out io.Writer) (*slog.Logger, io.Closer, error) {
	opts := logging.Options{
		Level:   cfg.GetString("log.level"),
		Out:     out,
		Service: service,
	}
	if toFile {
		opts.File = cfg.GetString("log.file")
	}

	logger, level, closer, err := logging.New(opts)
	if err != nil {
		return nil, nil, err
	}
	cfg.OnChange(func() {
		level.Set(logging.ParseLevel(cfg.GetString("log.level")))
	})
	return logger, closer, nil
}

func StoreOptions(cfg config.Config) store.FactoryOptions {
	return store.FactoryOptions{
		SQLitePath: cfg.GetString("store.sqlite.path"),
		Redis: store.RedisOptions{
			URL:    cfg.GetString("store.redis.url"),
			Prefix: cfg.GetString("store.redis.prefix"),
		},
		PostgresDSN: cfg.GetString("store.postgres.dsn"),
		HTTP: store.HTTPOptions{
			BaseURL: cfg.GetString("store.http.base_url"),
			Timeout: cfg.GetMillisecond("store.http.timeout_ms"),
		},
	}
}

// Store opens the configured backend. A nil Repository means persistence is
// off.
func Store(ctx context.Context, cfg config.Config) (store.Repository, error) {
	driver := cfg.GetString("store.driver")
	repo, err := store.NewFromDriver(ctx, driver, StoreOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", driver, err)
	}
	return repo, nil
}

func MirrorOptions(cfg config.Config, logger *slog.Logger, onError func(error)) mirror.Options {
	return mirror.Options{
		QueueSize:  cfg.GetInt("mirror.queue_size"),
		MaxRetries: cfg.GetUint64("mirror.max_retries"),
		RetryBase:  cfg.GetMillisecond("mirror.retry_base_ms"),
		OpTimeout:  cfg.GetMillisecond("mirror.op_timeout_ms"),
		Logger:     logger,
		OnError:    onError,
	}
}

// NATS connects the event publisher when notify.nats.url is set.
func NATS(cfg config.Config, name string) (*notify.NATS, error) {
	url := cfg.GetString("notify.nats.url")
	if url == "" {
		return nil, nil
	}
	return notify.NewNATS(notify.NATSOptions{
		URL:           url,
		SubjectPrefix: cfg.GetString("notify.nats.subject_prefix"),
		AllEvents:     cfg.GetBool("notify.nats.all_events"),
		Options: []nats.Option{
			nats.Name(name),
			nats.Timeout(2 * time.Second),
		},
	})
}
