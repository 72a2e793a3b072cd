package authz

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"caseflow/internal/lifecycle"
	"caseflow/internal/models"
)

// Service resolves capability grants from Postgres with a bounded-TTL Redis
// cache in front. Capability answers are cached per (actor, namespace,
// token) and invalidated explicitly when grants change; there is no
// per-object caching anywhere else in the module.
type Service struct {
	db     *sqlx.DB
	cache  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewService creates the authorization service. cache may be nil, in which
// case every lookup goes to Postgres.
func NewService(db *sqlx.DB, cache *redis.Client, ttl time.Duration, logger *zap.Logger) *Service {
	return &Service{
		db:     db,
		cache:  cache,
		ttl:    ttl,
		logger: logger.Named("authz"),
	}
}

// HasCapability reports whether the actor's role grants the capability token
// within the entity namespace.
func (s *Service) HasCapability(ctx context.Context, actor uuid.UUID, namespace models.EntityKind, cap lifecycle.Capability) (bool, error) {
	key := capKey(actor, namespace, cap)
	if s.cache != nil {
		if v, err := s.cache.Get(ctx, key).Result(); err == nil {
			return v == "1", nil
		} else if err != redis.Nil {
			s.logger.Warn("capability cache read failed", zap.Error(err))
		}
	}

	var granted bool
	err := s.db.GetContext(ctx, &granted, `
		SELECT EXISTS (
			SELECT 1
			FROM personnel p
			JOIN role_capabilities rc ON rc.role = p.role
			WHERE p.id = $1 AND rc.namespace = $2 AND rc.capability = $3
		)`, actor, namespace, cap)
	if err != nil {
		return false, errors.Wrap(err, "failed to resolve capability")
	}

	if s.cache != nil {
		v := "0"
		if granted {
			v = "1"
		}
		if err := s.cache.Set(ctx, key, v, s.ttl).Err(); err != nil {
			s.logger.Warn("capability cache write failed", zap.Error(err))
		}
	}
	return granted, nil
}

// RoleOf resolves the actor's role name.
func (s *Service) RoleOf(ctx context.Context, actor uuid.UUID) (models.Role, error) {
	key := roleKey(actor)
	if s.cache != nil {
		if v, err := s.cache.Get(ctx, key).Result(); err == nil {
			return models.Role(v), nil
		} else if err != redis.Nil {
			s.logger.Warn("role cache read failed", zap.Error(err))
		}
	}

	var role models.Role
	err := s.db.GetContext(ctx, &role, `SELECT role FROM personnel WHERE id = $1`, actor)
	if err == sql.ErrNoRows {
		return "", lifecycle.NewNotFound("personnel", actor)
	}
	if err != nil {
		return "", errors.Wrap(err, "failed to resolve role")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, string(role), s.ttl).Err(); err != nil {
			s.logger.Warn("role cache write failed", zap.Error(err))
		}
	}
	return role, nil
}

// Invalidate drops every cached answer for one actor. Call it whenever the
// actor's role or grants change.
func (s *Service) Invalidate(ctx context.Context, actor uuid.UUID) error {
	if s.cache == nil {
		return nil
	}

	pattern := fmt.Sprintf("caseflow:cap:%s:*", actor)
	iter := s.cache.Scan(ctx, 0, pattern, 0).Iterator()
	keys := []string{roleKey(actor)}
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return errors.Wrap(err, "failed to scan capability cache")
	}
	if err := s.cache.Del(ctx, keys...).Err(); err != nil {
		return errors.Wrap(err, "failed to invalidate capability cache")
	}
	s.logger.Info("capability cache invalidated",
		zap.String("actor", actor.String()),
		zap.Int("keys", len(keys)))
	return nil
}

func capKey(actor uuid.UUID, ns models.EntityKind, cap lifecycle.Capability) string {
	return fmt.Sprintf("caseflow:cap:%s:%s:%s", actor, ns, cap)
}

func roleKey(actor uuid.UUID) string {
	return fmt.Sprintf("caseflow:role:%s", actor)
}
