package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/jobboard-messaging/internal/model"
	"github.com/jwalitptl/jobboard-messaging/internal/repository"
)

type profileRepository struct {
	BaseRepository
}

func NewProfileRepository(base BaseRepository) repository.ProfileRepository {
	return &profileRepository{base}
}

func (r *profileRepository) Get(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	query := `SELECT id, full_name, role, avatar_url FROM profiles WHERE id = $1`

	var p model.Profile
	if err := sqlx.GetContext(ctx, r.conn(ctx), &p, query, id); err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", notFound(err))
	}
	return &p, nil
}

// CachedProfileRepository keeps display profiles in memory for ttl. Sender
// names are looked up on every message, and profiles rarely change.
type CachedProfileRepository struct {
	next  repository.ProfileRepository
	cache *cache.Cache
}

func NewCachedProfileRepository(next repository.ProfileRepository, ttl time.Duration) *CachedProfileRepository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedProfileRepository{
		next:  next,
		cache: cache.New(ttl, 2*ttl),
	}
}

func (r *CachedProfileRepository) Get(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	key := id.String()
	if v, ok := r.cache.Get(key); ok {
		p := *v.(*model.Profile)
		return &p, nil
	}

	p, err := r.next.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	stored := *p
	r.cache.SetDefault(key, &stored)
	return p, nil
}

// Invalidate drops a cached profile.
func (r *CachedProfileRepository) Invalidate(id uuid.UUID) {
	r.cache.Delete(id.String())
}
