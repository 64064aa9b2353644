// Package identity maps an authenticated email to the ledger's user id.
// The mapping never changes once a user exists, so it is cached in an LRU.
package identity

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"

	"github.com/gitgud-app/gitgud/internal/domain"
	"github.com/gitgud-app/gitgud/internal/infra/metrics"
)

// DefaultCacheSize bounds the email → id cache when none is configured.
const DefaultCacheSize = 1024

// Resolver resolves emails to user ids, optionally creating unknown users.
type Resolver struct {
	store         domain.Reader
	cache         *lru.Cache
	autoProvision bool
	log           *slog.Logger
}

// NewResolver creates a resolver over store.
func NewResolver(store domain.Reader, cacheSize int, autoProvision bool, logger *slog.Logger) (*Resolver, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("identity cache: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		store:         store,
		cache:         cache,
		autoProvision: autoProvision,
		log:           logger.With(slog.String("component", "identity")),
	}, nil
}

// Normalize lower-cases and trims an email.
func Normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Resolve returns the user id for email.
func (r *Resolver) Resolve(ctx context.Context, email string) (string, error) {
	email = Normalize(email)
	if email == "" {
		return "", domain.ErrUnauthenticated
	}

	if v, ok := r.cache.Get(email); ok {
		metrics.IdentityCache.WithLabelValues("hit").Inc()
		return v.(string), nil
	}
	metrics.IdentityCache.WithLabelValues("miss").Inc()

	u, err := r.store.GetUserByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("lookup user: %w", err)
	}
	if u == nil {
		if !r.autoProvision {
			return "", domain.ErrUserNotFound
		}
		if u, err = r.provision(ctx, email); err != nil {
			return "", err
		}
	}

	r.cache.Add(email, u.ID)
	return u.ID, nil
}

// provision creates a user for email. A concurrent creation wins; the
// stored row is re-read either way.
func (r *Resolver) provision(ctx context.Context, email string) (*domain.User, error) {
	name, _, _ := strings.Cut(email, "@")
	err := r.store.CreateUser(ctx, domain.User{
		ID:    uuid.NewString(),
		Email: email,
		Name:  name,
		Level: 1,
	})
	if err != nil {
		return nil, err
	}
	u, err := r.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("lookup provisioned user: %w", err)
	}
	if u == nil {
		return nil, domain.ErrUserNotFound
	}
	r.log.InfoContext(ctx, "provisioned user", slog.String("user_id", u.ID), slog.String("email", email))
	return u, nil
}
