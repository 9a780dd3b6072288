// Package redis provides a Redis-backed credential store.
//
// Each (user, app) record is a hash under "campusbridge:credentials:<app>:<user>",
// with both components query-escaped so neither can contain the separator.
// HSET replaces every field at once, so concurrent puts of the same refreshed
// token leave the same record behind.
package redis

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/custodia-labs/campusbridge/internal/core/domain"
	"github.com/custodia-labs/campusbridge/internal/core/ports/driven"
)

// KeyPrefix namespaces every key written by the store.
const KeyPrefix = "campusbridge:credentials:"

// Ensure CredentialStore implements the interface.
var _ driven.CredentialStore = (*CredentialStore)(nil)

// CredentialStore keeps credential records in Redis hashes.
type CredentialStore struct {
	redis  *redis.Client
	logger *zap.Logger
}

// New connects to Redis at addr and verifies the connection.
func New(ctx context.Context, addr string, db int, logger *zap.Logger) (*CredentialStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	store := NewWithClient(redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	}), logger)
	if err := store.HealthCheck(pingCtx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// NewWithClient wraps an existing client.
func NewWithClient(rdb *redis.Client, logger *zap.Logger) *CredentialStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CredentialStore{redis: rdb, logger: logger}
}

// Get retrieves the record for a user and app.
func (s *CredentialStore) Get(ctx context.Context, userID, appID string) (*domain.CredentialRecord, error) {
	fields, err := s.redis.HGetAll(ctx, key(userID, appID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis get credentials: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	rec := &domain.CredentialRecord{
		UserID:       userID,
		AppID:        appID,
		AccessToken:  fields["access_token"],
		RefreshToken: fields["refresh_token"],
	}
	if v := fields["expires_at"]; v != "" && v != "0" {
		secs, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse expires_at: %w", err)
		}
		rec.Expiry = time.Unix(secs, 0).UTC()
	}
	if v := fields["updated_at"]; v != "" {
		nanos, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			s.logger.Warn("credentials.updated_at_invalid", zap.String("user", userID), zap.String("app", appID))
		} else {
			rec.UpdatedAt = time.Unix(0, nanos).UTC()
		}
	}
	return rec, nil
}

// Put stores or updates a record.
func (s *CredentialStore) Put(ctx context.Context, rec domain.CredentialRecord) error {
	if rec.UserID == "" || rec.AppID == "" {
		return domain.ErrInvalidInput
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}

	var expiresAt int64
	if !rec.Expiry.IsZero() {
		expiresAt = rec.Expiry.Unix()
	}

	err := s.redis.HSet(ctx, key(rec.UserID, rec.AppID),
		"access_token", rec.AccessToken,
		"refresh_token", rec.RefreshToken,
		"expires_at", expiresAt,
		"updated_at", rec.UpdatedAt.UnixNano(),
	).Err()
	if err != nil {
		return fmt.Errorf("redis put credentials: %w", err)
	}
	return nil
}

// Delete removes the record for a user and app.
func (s *CredentialStore) Delete(ctx context.Context, userID, appID string) error {
	if err := s.redis.Del(ctx, key(userID, appID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis delete credentials: %w", err)
	}
	return nil
}

// HealthCheck pings Redis.
func (s *CredentialStore) HealthCheck(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close closes the client.
func (s *CredentialStore) Close() error {
	return s.redis.Close()
}

func key(userID, appID string) string {
	return KeyPrefix + url.QueryEscape(appID) + ":" + url.QueryEscape(userID)
}
