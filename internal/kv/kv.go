// Package kv is a flat string key-value store abstraction. Repositories build
// explicit index keys on top of it since backends offer no secondary indexes
// and no multi-key transactions.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("key not found")

// Page is one slice of a prefix scan. Cursor is opaque and only meaningful
// to the store that produced it.
type Page struct {
	Keys     []string
	Cursor   string
	Complete bool
}

type Store interface {
	// Get returns ErrNotFound when key is absent.
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key, value string) error
	// Delete is a no-op for absent keys.
	Delete(ctx context.Context, key string) error
	// List returns up to limit keys starting with prefix, resuming after cursor.
	// Stores may return fewer keys than limit without being complete.
	List(ctx context.Context, prefix, cursor string, limit int) (Page, error)
	Ping(ctx context.Context) error
	Close() error
}

// GetJSON decodes the value at key into target. It reports false when the
// key is absent or holds an empty value.
func GetJSON(ctx context.Context, s Store, key string, target any) (bool, error) {
	raw, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if raw == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), target); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func PutJSON(ctx context.Context, s Store, key string, value any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Put(ctx, key, string(encoded))
}

// ListAll pages through every key under prefix until the store reports the
// scan complete. Keys repeated across pages are returned once.
func ListAll(ctx context.Context, s Store, prefix string, pageSize int) ([]string, error) {
	if pageSize <= 0 {
		pageSize = 100
	}
	seen := make(map[string]struct{})
	var keys []string
	cursor := ""
	for {
		page, err := s.List(ctx, prefix, cursor, pageSize)
		if err != nil {
			return nil, fmt.Errorf("list %s*: %w", prefix, err)
		}
		for _, key := range page.Keys {
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
		if page.Complete {
			return keys, nil
		}
		cursor = page.Cursor
	}
}
