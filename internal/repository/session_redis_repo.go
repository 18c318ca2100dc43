package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/pitch-review/internal/models"
)

const maxSessionUpdateAttempts = 8

type redisSessionRepository struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisSessionRepository stores sessions in Redis. Updates use optimistic WATCH/MULTI transactions.
func NewRedisSessionRepository(client *redis.Client, prefix string, ttl time.Duration) SessionRepository {
	if prefix == "" {
		prefix = "pitch:review"
	}
	return &redisSessionRepository{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		now:    time.Now,
	}
}

func (r *redisSessionRepository) sessionKey(id string) string {
	return fmt.Sprintf("%s:session:%s", r.prefix, id)
}

func (r *redisSessionRepository) audioKey(id string) string {
	return fmt.Sprintf("%s:session:%s:audio", r.prefix, id)
}

func (r *redisSessionRepository) Create(ctx context.Context, session models.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}

	created, err := r.client.SetNX(ctx, r.sessionKey(session.ID), payload, r.ttl).Result()
	if err != nil {
		return err
	}
	if !created {
		return ErrSessionExists
	}
	return nil
}

func (r *redisSessionRepository) Get(ctx context.Context, id string) (models.Session, error) {
	raw, err := r.client.Get(ctx, r.sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.Session{}, ErrSessionNotFound
		}
		return models.Session{}, err
	}

	var session models.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return models.Session{}, fmt.Errorf("decode session %s: %w", id, err)
	}
	return session, nil
}

func (r *redisSessionRepository) Update(ctx context.Context, id string, mutate SessionMutator) (models.Session, error) {
	key := r.sessionKey(id)

	for attempt := 0; attempt < maxSessionUpdateAttempts; attempt++ {
		var updated models.Session
		err := r.client.Watch(ctx, func(tx *redis.Tx) error {
			raw, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					return ErrSessionNotFound
				}
				return err
			}

			if err := json.Unmarshal(raw, &updated); err != nil {
				return fmt.Errorf("decode session %s: %w", id, err)
			}
			if err := mutate(&updated); err != nil {
				return err
			}
			updated.UpdatedAt = r.now().UTC()

			payload, err := json.Marshal(updated)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, payload, r.ttl)
				pipe.Expire(ctx, r.audioKey(id), r.ttl)
				return nil
			})
			return err
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return models.Session{}, err
		}
		return updated, nil
	}

	return models.Session{}, fmt.Errorf("update session %s: %w", id, redis.TxFailedErr)
}

func (r *redisSessionRepository) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, r.sessionKey(id), r.audioKey(id)).Err()
}

func (r *redisSessionRepository) PutAudio(ctx context.Context, id string, data []byte) error {
	exists, err := r.client.Exists(ctx, r.sessionKey(id)).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return ErrSessionNotFound
	}
	return r.client.Set(ctx, r.audioKey(id), data, r.ttl).Err()
}

func (r *redisSessionRepository) GetAudio(ctx context.Context, id string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.audioKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrAudioNotFound
		}
		return nil, err
	}
	return data, nil
}
