package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/NordCoder/Homeroom/internal/domain"
	"github.com/NordCoder/Homeroom/internal/domain/auth"

	"github.com/google/uuid"
)

var _ auth.RefreshTokenRepo = (*RefreshTokenRepo)(nil)

type RefreshTokenRepo struct {
	mu     sync.RWMutex
	byID   map[uuid.UUID]*auth.RefreshToken
	byHash map[string]uuid.UUID
	byJTI  map[string]uuid.UUID
}

func NewRefreshTokenRepo() *RefreshTokenRepo {
	return &RefreshTokenRepo{
		byID:   map[uuid.UUID]*auth.RefreshToken{},
		byHash: map[string]uuid.UUID{},
		byJTI:  map[string]uuid.UUID{},
	}
}

func (r *RefreshTokenRepo) Create(_ context.Context, t *auth.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byHash[t.TokenHash]; ok {
		return domain.ErrConflict
	}
	if _, ok := r.byJTI[t.JTI]; ok {
		return domain.ErrConflict
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	c := *t
	c.RevokedAt = cloneTime(t.RevokedAt)
	r.byID[t.ID] = &c
	r.byHash[t.TokenHash] = t.ID
	r.byJTI[t.JTI] = t.ID
	return nil
}

func (r *RefreshTokenRepo) FindActive(_ context.Context, tokenHash string, now time.Time) (*auth.RefreshToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byHash[tokenHash]
	if !ok {
		return nil, domain.ErrNotFound
	}
	t := r.byID[id]
	if !t.Active(now) {
		return nil, domain.ErrNotFound
	}
	c := *t
	return &c, nil
}

func (r *RefreshTokenRepo) Revoke(_ context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.byID[id]; ok && t.RevokedAt == nil {
		v := at
		t.RevokedAt = &v
	}
	return nil
}

func (r *RefreshTokenRepo) RevokeAllForPrincipal(_ context.Context, principalID uuid.UUID, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, t := range r.byID {
		if t.PrincipalID == principalID && t.RevokedAt == nil {
			v := at
			t.RevokedAt = &v
			n++
		}
	}
	return n, nil
}

func (r *RefreshTokenRepo) DeleteStale(_ context.Context, before time.Time, limit int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stale := make([]*auth.RefreshToken, 0)
	for _, t := range r.byID {
		if t.ExpiresAt.Before(before) || (t.RevokedAt != nil && t.RevokedAt.Before(before)) {
			stale = append(stale, t)
		}
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i].ExpiresAt.Before(stale[j].ExpiresAt) })
	if limit > 0 && len(stale) > limit {
		stale = stale[:limit]
	}
	for _, t := range stale {
		delete(r.byID, t.ID)
		delete(r.byHash, t.TokenHash)
		delete(r.byJTI, t.JTI)
	}
	return int64(len(stale)), nil
}

// ListForPrincipal is a test helper; it is not part of the repository port.
func (r *RefreshTokenRepo) ListForPrincipal(principalID uuid.UUID) []auth.RefreshToken {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []auth.RefreshToken
	for _, t := range r.byID {
		if t.PrincipalID == principalID {
			c := *t
			c.RevokedAt = cloneTime(t.RevokedAt)
			out = append(out, c)
		}
	}
	return out
}
