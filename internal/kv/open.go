package kv

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/sirupsen/logrus"
)

type Options struct {
	Backend     string
	RedisURL    string
	Namespace   string
	DatabaseURL string
	SQLitePath  string
	// ConnectTimeout bounds the startup retry loop for network backends.
	ConnectTimeout time.Duration
}

// Open builds the configured backend. Network backends are retried with
// exponential backoff until ConnectTimeout; this happens at startup only,
// request handling never retries.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return OpenSQLite(ctx, opts.SQLitePath)
	case "redis":
		return connectWithRetry(opts, func() (Store, error) {
			return NewRedisStore(opts.RedisURL, opts.Namespace)
		})
	case "postgres":
		return connectWithRetry(opts, func() (Store, error) {
			return OpenPostgres(ctx, opts.DatabaseURL)
		})
	default:
		return nil, fmt.Errorf("unknown kv backend %q", opts.Backend)
	}
}

func connectWithRetry(opts Options, connect func() (Store, error)) (Store, error) {
	var store Store
	operation := func() error {
		s, err := connect()
		if err != nil {
			logrus.WithField("backend", opts.Backend).WithError(err).Warn("kv backend not reachable yet")
			return err
		}
		store = s
		return nil
	}
	if err := backoff.Retry(operation, connectBackoff(opts.ConnectTimeout)); err != nil {
		return nil, fmt.Errorf("connect %s: %w", opts.Backend, err)
	}
	return store, nil
}

func connectBackoff(timeout time.Duration) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	b.MaxElapsedTime = timeout
	return b
}
