package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cv-builder/internal/model"

	"github.com/redis/go-redis/v9"
)

const (
	photoSlot    = "photo"
	documentSlot = "document"
)

// RedisProvider stores session slots as plain keys: <prefix><session>:photo
// and <prefix><session>:document. Every write refreshes the TTL.
type RedisProvider struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisProvider(client *redis.Client, prefix string, ttl time.Duration) *RedisProvider {
	if prefix == "" {
		prefix = "cv:"
	}
	return &RedisProvider{client: client, prefix: prefix, ttl: ttl}
}

func (p *RedisProvider) Slots(sessionID string) Slots {
	return &RedisSlots{client: p.client, key: p.prefix + sessionID + ":", ttl: p.ttl}
}

type RedisSlots struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func (s *RedisSlots) LoadImage(ctx context.Context) (string, error) {
	val, err := s.client.Get(ctx, s.key+photoSlot).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get photo: %w", err)
	}
	return val, nil
}

func (s *RedisSlots) SaveImage(ctx context.Context, dataURI string) error {
	if err := s.client.Set(ctx, s.key+photoSlot, dataURI, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set photo: %w", err)
	}
	return nil
}

func (s *RedisSlots) LoadDocument(ctx context.Context) (*model.CVDocument, error) {
	raw, err := s.client.Get(ctx, s.key+documentSlot).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get document: %w", err)
	}
	var doc model.CVDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode stored document: %w", err)
	}
	return &doc, nil
}

func (s *RedisSlots) SaveDocument(ctx context.Context, doc *model.CVDocument) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if err := s.client.Set(ctx, s.key+documentSlot, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set document: %w", err)
	}
	return nil
}
