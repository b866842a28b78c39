// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package redisstore keeps password reset tokens in Redis.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/holomush/accounts/internal/account"
	"github.com/holomush/accounts/internal/store"
)

// DefaultPrefix namespaces every key written by TokenStore.
const DefaultPrefix = "accounts:reset"

type tokenRecord struct {
	Email     string    `json:"email"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenStore implements account.TokenStore on Redis.
//
// Each token lives under its hash with a TTL matching its expiry, so Redis
// purges expired tokens itself. A per-email set indexes the hashes.
type TokenStore struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// Option configures a TokenStore.
type Option func(*TokenStore)

// WithPrefix overrides DefaultPrefix.
func WithPrefix(prefix string) Option {
	return func(s *TokenStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// NewTokenStore creates a TokenStore using client.
func NewTokenStore(client redis.UniversalClient, opts ...Option) (*TokenStore, error) {
	if client == nil {
		return nil, oops.Code("REDIS_CLIENT_REQUIRED").Errorf("redis client is required")
	}
	s := &TokenStore{client: client, prefix: DefaultPrefix, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *TokenStore) tokenKey(hash string) string {
	return s.prefix + ":token:" + hash
}

func (s *TokenStore) emailKey(email string) string {
	return s.prefix + ":email:" + strings.ToLower(strings.TrimSpace(email))
}

// Add stores token until it expires. Tokens already expired are rejected.
func (s *TokenStore) Add(ctx context.Context, token *account.PasswordResetToken) error {
	if token == nil || token.Token == "" {
		return oops.Code("REDIS_RESET_TOKEN_INVALID").Errorf("token cannot be empty")
	}
	ttl := token.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return oops.Code("REDIS_RESET_TOKEN_EXPIRED").
			With("email", token.Email).
			With("expires_at", token.ExpiresAt).
			Errorf("token already expired")
	}

	data, err := json.Marshal(tokenRecord{
		Email:     strings.TrimSpace(token.Email),
		IssuedAt:  token.IssuedAt,
		ExpiresAt: token.ExpiresAt,
	})
	if err != nil {
		return oops.Code("REDIS_RESET_TOKEN_ENCODE_FAILED").Wrap(err)
	}

	hash := store.HashResetToken(token.Token)
	indexKey := s.emailKey(token.Email)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.tokenKey(hash), data, ttl)
		pipe.SAdd(ctx, indexKey, hash)
		pipe.Expire(ctx, indexKey, ttl)
		return nil
	})
	if err != nil {
		return oops.Code("REDIS_RESET_TOKEN_ADD_FAILED").
			With("operation", "store reset token").
			With("email", token.Email).
			Wrap(err)
	}
	return nil
}

// FindByEmail returns the live tokens issued to email, newest first. Each
// token's Token field holds its stored hash.
func (s *TokenStore) FindByEmail(ctx context.Context, email string) ([]*account.PasswordResetToken, error) {
	indexKey := s.emailKey(email)
	hashes, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, oops.Code("REDIS_RESET_TOKEN_FIND_FAILED").
			With("operation", "read email index").
			With("email", email).
			Wrap(err)
	}
	if len(hashes) == 0 {
		return nil, nil
	}

	keys := make([]string, len(hashes))
	for i, h := range hashes {
		keys[i] = s.tokenKey(h)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, oops.Code("REDIS_RESET_TOKEN_FIND_FAILED").
			With("operation", "read tokens").
			With("email", email).
			Wrap(err)
	}

	var (
		tokens []*account.PasswordResetToken
		stale  []any
	)
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			stale = append(stale, hashes[i])
			continue
		}
		var rec tokenRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, oops.Code("REDIS_RESET_TOKEN_DECODE_FAILED").
				With("hash", hashes[i]).
				Wrap(err)
		}
		tokens = append(tokens, &account.PasswordResetToken{
			Email:     rec.Email,
			Token:     hashes[i],
			IssuedAt:  rec.IssuedAt,
			ExpiresAt: rec.ExpiresAt,
		})
	}

	if len(stale) > 0 {
		_ = s.client.SRem(ctx, indexKey, stale...).Err() //nolint:errcheck // index cleanup is best effort
	}

	slices.SortFunc(tokens, func(a, b *account.PasswordResetToken) int {
		return b.IssuedAt.Compare(a.IssuedAt)
	})
	return tokens, nil
}

// RemoveByEmail deletes every token issued to email.
func (s *TokenStore) RemoveByEmail(ctx context.Context, email string) error {
	indexKey := s.emailKey(email)
	hashes, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return oops.Code("REDIS_RESET_TOKEN_REMOVE_FAILED").
			With("operation", "read email index").
			With("email", email).
			Wrap(err)
	}

	keys := make([]string, 0, len(hashes)+1)
	for _, h := range hashes {
		keys = append(keys, s.tokenKey(h))
	}
	keys = append(keys, indexKey)

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return oops.Code("REDIS_RESET_TOKEN_REMOVE_FAILED").
			With("operation", "delete tokens").
			With("email", email).
			Wrap(err)
	}
	return nil
}

var _ account.TokenStore = (*TokenStore)(nil)
