// Package rediskv keeps storage values in Redis and announces writes on a
// pub/sub channel so that every client sharing the prefix can resync.
package rediskv

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/xenking/storefront/internal/storage"
)

var (
	_ storage.KV       = (*Store)(nil)
	_ storage.Notifier = (*Store)(nil)
)

// Store is a Redis-backed storage.KV.
type Store struct {
	client *redis.Client
	prefix string
	origin string
}

// New returns a Store using keys of the form "<prefix>:<key>". Each Store gets
// its own origin id so it can ignore its own change announcements.
func New(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = "storefront"
	}
	return &Store{
		client: client,
		prefix: prefix,
		origin: uuid.NewString(),
	}
}

// Dial connects to addr and verifies the connection.
func Dial(ctx context.Context, addr, prefix string) (*Store, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "ping redis %s", addr)
	}
	return New(client, prefix), nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) key(k string) string {
	return s.prefix + ":" + k
}

func (s *Store) channel() string {
	return s.prefix + ":changes"
}

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "get %s", key)
	}
	return v, true, nil
}

// Set stores value and announces the write.
func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, s.key(key), value, 0)
		p.Publish(ctx, s.channel(), s.origin+"|"+key)
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "set %s", key)
	}
	return nil
}

// Remove deletes key and announces the removal.
func (s *Store) Remove(ctx context.Context, key string) error {
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, s.key(key))
		p.Publish(ctx, s.channel(), s.origin+"|"+key)
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "remove %s", key)
	}
	return nil
}

// Changes subscribes to write announcements from other stores.
func (s *Store) Changes(ctx context.Context) (<-chan string, error) {
	sub := s.client.Subscribe(ctx, s.channel())
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, errors.Wrap(err, "subscribe to changes")
	}

	out := make(chan string)
	go func() {
		defer close(out)
		defer func() { _ = sub.Close() }()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				origin, key, ok := parseAnnouncement(msg.Payload)
				if !ok || origin == s.origin {
					continue
				}
				select {
				case out <- key:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func parseAnnouncement(payload string) (origin, key string, ok bool) {
	origin, key, ok = strings.Cut(payload, "|")
	if !ok || key == "" {
		return "", "", false
	}
	return origin, key, true
}
