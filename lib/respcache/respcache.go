// Package respcache is a TTL-bounded cache for raw API responses,
// keyed by (endpoint, request payload) and backed by badger so that
// entries survive restarts and can be inspected or cleared
// independently.
package respcache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"advisor-backend/lib/timezone"

	"github.com/dgraph-io/badger/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("respcache")

var ErrNotFound = errors.New("respcache: entry not found")

type entry struct {
	Data      []byte
	CreatedAt int64
	ExpiresAt int64
}

type Cache struct {
	db *badger.DB
}

func New(db *badger.DB) Cache {
	return Cache{db: db}
}

// OpenDB opens the badger store backing a cache, or an in-memory
// store when dir is empty (used by tests and --no-cache-dir runs).
func OpenDB(dir string) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	return badger.Open(opts)
}

// the key is content-addressed: two requests with the same endpoint
// and an identical (canonically marshaled) payload share one entry
func (c Cache) key(endpoint string, payload any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(append([]byte(endpoint+":"), body...))
	return endpoint + ":" + hex.EncodeToString(sum[:]), nil
}

// Get returns the cached response for (endpoint, payload) if its age
// is within ttl. A miss and an expired entry are indistinguishable,
// both return ErrNotFound; expired entries are deleted on read.
func (c Cache) Get(ctx context.Context, endpoint string, payload any, ttl time.Duration) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "get")
	defer span.End()

	key, err := c.key(endpoint, payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create cache key")
		return nil, err
	}
	span.SetAttributes(attribute.KeyValue{
		Key:   "cache_key",
		Value: attribute.StringValue(key),
	})

	tx := c.db.NewTransaction(false)
	defer tx.Discard()
	item, err := tx.Get([]byte(key))
	if err == badger.ErrKeyNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read item from badger")
		return nil, err
	}
	serialized, err := item.ValueCopy(nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to copy cached item")
		return nil, err
	}

	var cached entry
	decoder := gob.NewDecoder(bytes.NewBuffer(serialized))
	err = decoder.Decode(&cached)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to deserialize cached item")
		return nil, err
	}

	now := timezone.Now().UnixNano()
	expired := ttl <= 0 ||
		now-cached.CreatedAt >= ttl.Nanoseconds() ||
		now >= cached.ExpiresAt
	if expired {
		span.AddEvent("delete expired cache key", trace.WithAttributes(attribute.KeyValue{
			Key:   "key",
			Value: attribute.StringValue(key),
		}))

		wtx := c.db.NewTransaction(true)
		defer wtx.Commit()

		err = wtx.Delete([]byte(key))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to delete expired key")
		}

		span.SetStatus(codes.Ok, "CACHE EXPIRED")
		return nil, ErrNotFound
	}

	span.AddEvent("cache hit", trace.WithAttributes(attribute.KeyValue{
		Key:   "contentlength",
		Value: attribute.IntValue(len(cached.Data)),
	}))

	return cached.Data, nil
}

// Set stores a response with its write timestamp.
func (c Cache) Set(ctx context.Context, endpoint string, payload any, data []byte, ttl time.Duration) error {
	ctx, span := tracer.Start(ctx, "set")
	defer span.End()

	key, err := c.key(endpoint, payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create cache key")
		return err
	}
	span.SetAttributes(attribute.KeyValue{
		Key:   "cache_key",
		Value: attribute.StringValue(key),
	})

	now := timezone.Now().UnixNano()
	serialized := bytes.NewBuffer(nil)
	encoder := gob.NewEncoder(serialized)
	err = encoder.Encode(entry{
		Data:      data,
		CreatedAt: now,
		ExpiresAt: now + ttl.Nanoseconds(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to serialize entry")
		return err
	}

	tx := c.db.NewTransaction(true)
	defer tx.Commit()

	err = tx.Set([]byte(key), serialized.Bytes())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to set badger item")
		return err
	}

	return nil
}

// Clear removes all cached entries.
func (c Cache) Clear() error {
	return c.db.DropAll()
}
