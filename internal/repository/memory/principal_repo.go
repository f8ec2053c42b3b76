// Package memory holds mutex-guarded in-process implementations of the repository
// ports. Uniqueness rules mirror the Postgres indexes.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/NordCoder/Homeroom/internal/domain"
	"github.com/NordCoder/Homeroom/internal/domain/principal"

	"github.com/google/uuid"
)

var _ principal.Repo = (*PrincipalRepo)(nil)

type PrincipalRepo struct {
	mu  sync.RWMutex
	now func() time.Time

	byID     map[uuid.UUID]*principal.Principal
	byEmail  map[string]uuid.UUID
	byReset  map[string]uuid.UUID
	byVerify map[string]uuid.UUID
}

func NewPrincipalRepo(now func() time.Time) *PrincipalRepo {
	if now == nil {
		now = time.Now
	}
	return &PrincipalRepo{
		now:      now,
		byID:     map[uuid.UUID]*principal.Principal{},
		byEmail:  map[string]uuid.UUID{},
		byReset:  map[string]uuid.UUID{},
		byVerify: map[string]uuid.UUID{},
	}
}

func (r *PrincipalRepo) Create(_ context.Context, p *principal.Principal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(p.Email)
	if _, ok := r.byEmail[key]; ok {
		return domain.ErrConflict
	}
	if p.EmailVerificationToken != nil {
		if _, ok := r.byVerify[*p.EmailVerificationToken]; ok {
			return domain.ErrConflict
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if _, ok := r.byID[p.ID]; ok {
		return domain.ErrConflict
	}
	now := r.now()
	p.CreatedAt, p.UpdatedAt = now, now

	stored := clonePrincipal(p)
	r.byID[p.ID] = stored
	r.byEmail[key] = p.ID
	if p.EmailVerificationToken != nil {
		r.byVerify[*p.EmailVerificationToken] = p.ID
	}
	return nil
}

func (r *PrincipalRepo) GetByID(_ context.Context, id uuid.UUID) (*principal.Principal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.get(id)
}

func (r *PrincipalRepo) GetByEmail(_ context.Context, email string) (*principal.Principal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookup(r.byEmail, strings.ToLower(email))
}

func (r *PrincipalRepo) GetByPasswordResetToken(_ context.Context, tokenHash string) (*principal.Principal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookup(r.byReset, tokenHash)
}

func (r *PrincipalRepo) GetByVerificationToken(_ context.Context, tokenHash string) (*principal.Principal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookup(r.byVerify, tokenHash)
}

func (r *PrincipalRepo) SetPassword(_ context.Context, id uuid.UUID, passwordHash string) (*principal.Principal, error) {
	return r.update(id, func(p *principal.Principal) error {
		p.PasswordHash = passwordHash
		return nil
	})
}

func (r *PrincipalRepo) SetActive(_ context.Context, id uuid.UUID, active bool) (*principal.Principal, error) {
	return r.update(id, func(p *principal.Principal) error {
		p.IsActive = active
		return nil
	})
}

func (r *PrincipalRepo) SetPasswordResetToken(_ context.Context, id uuid.UUID, tokenHash string, requestedAt time.Time) (*principal.Principal, error) {
	return r.update(id, func(p *principal.Principal) error {
		if other, ok := r.byReset[tokenHash]; ok && other != id {
			return domain.ErrConflict
		}
		r.dropReset(p)
		h, at := tokenHash, requestedAt
		p.PasswordResetToken, p.PasswordResetRequestedAt = &h, &at
		r.byReset[tokenHash] = id
		return nil
	})
}

func (r *PrincipalRepo) ClearPasswordResetToken(_ context.Context, id uuid.UUID) (*principal.Principal, error) {
	return r.update(id, func(p *principal.Principal) error {
		r.dropReset(p)
		return nil
	})
}

func (r *PrincipalRepo) SetVerificationToken(_ context.Context, id uuid.UUID, tokenHash string) (*principal.Principal, error) {
	return r.update(id, func(p *principal.Principal) error {
		if other, ok := r.byVerify[tokenHash]; ok && other != id {
			return domain.ErrConflict
		}
		if p.EmailVerificationToken != nil {
			delete(r.byVerify, *p.EmailVerificationToken)
		}
		h := tokenHash
		p.EmailVerificationToken = &h
		r.byVerify[tokenHash] = id
		return nil
	})
}

func (r *PrincipalRepo) ConsumePasswordReset(_ context.Context, id uuid.UUID, tokenHash, passwordHash string) (*principal.Principal, error) {
	return r.update(id, func(p *principal.Principal) error {
		if p.PasswordResetToken == nil || *p.PasswordResetToken != tokenHash {
			return domain.ErrNotFound
		}
		r.dropReset(p)
		p.PasswordHash = passwordHash
		return nil
	})
}

func (r *PrincipalRepo) MarkEmailVerified(_ context.Context, id uuid.UUID, tokenHash string, at time.Time) (*principal.Principal, error) {
	return r.update(id, func(p *principal.Principal) error {
		if p.EmailVerificationToken == nil || *p.EmailVerificationToken != tokenHash {
			return domain.ErrNotFound
		}
		delete(r.byVerify, tokenHash)
		v := at
		p.EmailVerificationToken, p.EmailVerifiedAt = nil, &v
		return nil
	})
}

func (r *PrincipalRepo) ClearStalePasswordResets(_ context.Context, requestedBefore time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, p := range r.byID {
		if p.PasswordResetRequestedAt != nil && p.PasswordResetRequestedAt.Before(requestedBefore) {
			r.dropReset(p)
			p.UpdatedAt = r.now()
			n++
		}
	}
	return n, nil
}

func (r *PrincipalRepo) update(id uuid.UUID, fn func(p *principal.Principal) error) (*principal.Principal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if err := fn(p); err != nil {
		return nil, err
	}
	p.UpdatedAt = r.now()
	return clonePrincipal(p), nil
}

func (r *PrincipalRepo) dropReset(p *principal.Principal) {
	if p.PasswordResetToken != nil {
		delete(r.byReset, *p.PasswordResetToken)
	}
	p.PasswordResetToken, p.PasswordResetRequestedAt = nil, nil
}

func (r *PrincipalRepo) lookup(index map[string]uuid.UUID, key string) (*principal.Principal, error) {
	id, ok := index[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r.get(id)
}

func (r *PrincipalRepo) get(id uuid.UUID) (*principal.Principal, error) {
	p, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clonePrincipal(p), nil
}

func clonePrincipal(p *principal.Principal) *principal.Principal {
	c := *p
	c.EmailVerifiedAt = cloneTime(p.EmailVerifiedAt)
	c.PasswordResetRequestedAt = cloneTime(p.PasswordResetRequestedAt)
	c.EmailVerificationToken = cloneString(p.EmailVerificationToken)
	c.PasswordResetToken = cloneString(p.PasswordResetToken)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
