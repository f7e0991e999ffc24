package store

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/blueberrycongee/llmcoach/pkg/types"
)

// CachedProfiles decorates a ProfileStore with an in-memory read cache.
// Writes go through to the inner store and invalidate the cached entry.
type CachedProfiles struct {
	inner ProfileStore
	cache *cache.Cache
}

// NewCachedProfiles creates a cached profile store. ttl is the expiration
// time of cached profiles.
func NewCachedProfiles(inner ProfileStore, ttl time.Duration) *CachedProfiles {
	return &CachedProfiles{
		inner: inner,
		cache: cache.New(ttl, ttl*2),
	}
}

// GetProfile returns the cached profile or loads it from the inner store.
// Missing profiles are not cached.
func (p *CachedProfiles) GetProfile(ctx context.Context, userID string) (types.UserProfile, error) {
	if val, found := p.cache.Get(userID); found {
		if profile, ok := val.(types.UserProfile); ok {
			return profile, nil
		}
	}

	profile, err := p.inner.GetProfile(ctx, userID)
	if err != nil {
		return types.UserProfile{}, err
	}

	p.cache.Set(userID, profile, cache.DefaultExpiration)
	return profile, nil
}

// UpsertProfile writes through and drops the cached copy.
func (p *CachedProfiles) UpsertProfile(ctx context.Context, profile types.UserProfile) error {
	if err := p.inner.UpsertProfile(ctx, profile); err != nil {
		return err
	}
	p.cache.Delete(profile.UserID)
	return nil
}

// Invalidate drops the cached profile of userID.
func (p *CachedProfiles) Invalidate(userID string) {
	p.cache.Delete(userID)
}
