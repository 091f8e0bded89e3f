package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"rollcall/internal/apperr"
	"rollcall/internal/model"
)

const defaultSessionPrefix = "attendance:session:"

// KEYS[1] teacher key, KEYS[2] token key for the candidate.
// ARGV[1] candidate token, ARGV[2] encoded principal.
var getOrCreateScript = redis.NewScript(`
local existing = redis.call('GET', KEYS[1])
if existing then
	return existing
end
redis.call('SET', KEYS[1], ARGV[1])
redis.call('SET', KEYS[2], ARGV[2])
return ARGV[1]
`)

// KEYS[1] teacher key. ARGV[1] token key prefix.
var revokeScript = redis.NewScript(`
local token = redis.call('GET', KEYS[1])
if token then
	redis.call('DEL', ARGV[1] .. token)
end
return redis.call('DEL', KEYS[1])
`)

// RedisSessionStore keeps opaque tokens in Redis. Both keys of a session are
// written and removed by Lua scripts, so concurrent logins see one token.
type RedisSessionStore struct {
	client *redis.Client
	prefix string
}

// NewRedisSessionStore creates a Redis-backed session store. An empty prefix
// uses "attendance:session:".
func NewRedisSessionStore(client *redis.Client, prefix string) *RedisSessionStore {
	if prefix == "" {
		prefix = defaultSessionPrefix
	}
	return &RedisSessionStore{client: client, prefix: prefix}
}

func (s *RedisSessionStore) teacherKey(id uuid.UUID) string { return s.prefix + "teacher:" + id.String() }
func (s *RedisSessionStore) tokenPrefix() string           { return s.prefix + "token:" }

// GetOrCreate returns the stored token or stores candidate.
func (s *RedisSessionStore) GetOrCreate(ctx context.Context, p model.Principal, candidate string) (string, error) {
	encoded, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	keys := []string{s.teacherKey(p.ID), s.tokenPrefix() + candidate}
	token, err := getOrCreateScript.Run(ctx, s.client, keys, candidate, encoded).Text()
	if err != nil {
		return "", fmt.Errorf("redis get-or-create: %w", err)
	}
	return token, nil
}

// Lookup resolves a token to its teacher.
func (s *RedisSessionStore) Lookup(ctx context.Context, token string) (model.Principal, error) {
	raw, err := s.client.Get(ctx, s.tokenPrefix()+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Principal{}, apperr.NotFound("Session")
	}
	if err != nil {
		return model.Principal{}, err
	}
	var p model.Principal
	if err := json.Unmarshal(raw, &p); err != nil {
		return model.Principal{}, fmt.Errorf("decode session: %w", err)
	}
	return p, nil
}

// DeleteByTeacher removes the teacher's token.
func (s *RedisSessionStore) DeleteByTeacher(ctx context.Context, teacherID uuid.UUID) error {
	return revokeScript.Run(ctx, s.client, []string{s.teacherKey(teacherID)}, s.tokenPrefix()).Err()
}
