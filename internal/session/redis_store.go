package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const defaultSessionTTL = 24 * time.Hour

// RedisStore shares sessions across API replicas. Every save refreshes the TTL.
type RedisStore struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

func NewRedisStore(client *redis.Client, ttl time.Duration, tracer trace.Tracer) *RedisStore {
	if client == nil {
		panic("session: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	if tracer == nil {
		tracer = otel.Tracer("calendar-agent.internal.session")
	}
	return &RedisStore{redis: client, ttl: ttl, tracer: tracer}
}

func (s *RedisStore) Load(ctx context.Context, id string) (*Session, error) {
	id = NormalizeID(id)
	ctx, span := s.tracer.Start(ctx, "session.load", trace.WithAttributes(attribute.String("session.id", id)))
	defer span.End()

	data, err := s.redis.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("session: failed to load %s: %w", id, err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("session: failed to decode %s: %w", id, err)
	}
	return &sess, nil
}

func (s *RedisStore) Save(ctx context.Context, sess *Session) error {
	if sess == nil {
		return errors.New("session: cannot save nil session")
	}
	id := NormalizeID(sess.ID)
	ctx, span := s.tracer.Start(ctx, "session.save", trace.WithAttributes(attribute.String("session.id", id)))
	defer span.End()

	data, err := json.Marshal(sess)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: failed to marshal %s: %w", id, err)
	}
	if err := s.redis.Set(ctx, sessionKey(id), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: failed to persist %s: %w", id, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	id = NormalizeID(id)
	ctx, span := s.tracer.Start(ctx, "session.delete")
	defer span.End()

	if err := s.redis.Del(ctx, sessionKey(id)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: failed to delete %s: %w", id, err)
	}
	return nil
}

func sessionKey(id string) string {
	return fmt.Sprintf("session:%s", id)
}
