// Package service implements account management with rank-based visibility
// and seniority checks.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"asset-console/backend/internal/account/domain"
	"asset-console/backend/internal/account/repository"
	"asset-console/backend/internal/rank"
	"asset-console/backend/internal/security"
	sessiondomain "asset-console/backend/internal/session/domain"
)

var (
	ErrNotFound      = errors.New("account not found")
	ErrNotVisible    = errors.New("account not visible at this rank")
	ErrNotManageable = errors.New("account rank not manageable at this rank")
	ErrEmailTaken    = errors.New("email already registered")
	ErrWeakPassword  = errors.New("password does not meet the minimum length")
)

// minPasswordLength is enforced on account creation only; existing hashes are
// never re-checked.
const minPasswordLength = 10

// SessionRevoker ends the sessions of a deleted account.
type SessionRevoker interface {
	InvalidateAllForUser(ctx context.Context, userID, reason string) (int, error)
}

// Service manages accounts.
type Service struct {
	repo     repository.Repository
	hasher   *security.Hasher
	sessions SessionRevoker
	nowF     func() time.Time
}

func NewService(repo repository.Repository, hasher *security.Hasher, sessions SessionRevoker) *Service {
	return &Service{
		repo:     repo,
		hasher:   hasher,
		sessions: sessions,
		nowF:     func() time.Time { return time.Now().UTC() },
	}
}

// List returns the accounts the given rank may see, per the visibility table.
func (s *Service) List(ctx context.Context, viewer rank.Rank) ([]*domain.Account, error) {
	visible := rank.VisibleRanks(viewer)
	if len(visible) == 0 {
		return nil, nil
	}
	return s.repo.ListByRanks(ctx, visible)
}

// Get returns one account if the viewer's rank may see it. Invisible and
// missing accounts are indistinguishable to the caller.
func (s *Service) Get(ctx context.Context, viewer rank.Rank, id string) (*domain.Account, error) {
	acct, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, ErrNotFound
	}
	if !rank.CanSee(viewer, acct.Rank) {
		return nil, ErrNotVisible
	}
	return acct, nil
}

// Create registers a new account. The actor must strictly outrank the new
// account's rank, so nobody can mint peers or superiors.
func (s *Service) Create(ctx context.Context, actor rank.Rank, email, password string, newRank rank.Rank) (*domain.Account, error) {
	if !rank.CanManage(actor, newRank) {
		return nil, ErrNotManageable
	}
	if len(password) < minPasswordLength {
		return nil, ErrWeakPassword
	}
	email = strings.ToLower(strings.TrimSpace(email))
	existing, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}
	hash, err := s.hasher.Hash([]byte(password))
	if err != nil {
		return nil, err
	}
	now := s.nowF()
	acct := &domain.Account{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		Rank:         newRank,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := acct.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, acct); err != nil {
		return nil, err
	}
	return acct, nil
}

// Update is the requested change to an account; nil fields are left as is.
type Update struct {
	Rank     *rank.Rank
	Password *string
}

// ApplyUpdate edits an account the actor strictly outranks. A rank change
// also requires the actor to outrank the new rank, so nobody can promote a
// junior into a peer or superior. A password change invalidates every session
// of the account.
func (s *Service) ApplyUpdate(ctx context.Context, actor rank.Rank, id string, up Update) (*domain.Account, error) {
	acct, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, ErrNotFound
	}
	if !rank.CanManage(actor, acct.Rank) {
		return nil, ErrNotManageable
	}
	if up.Rank != nil && *up.Rank != acct.Rank {
		if !rank.CanManage(actor, *up.Rank) {
			return nil, ErrNotManageable
		}
		if err := s.repo.UpdateRank(ctx, id, *up.Rank); err != nil {
			return nil, err
		}
		acct.Rank = *up.Rank
	}
	if up.Password != nil {
		if len(*up.Password) < minPasswordLength {
			return nil, ErrWeakPassword
		}
		hash, err := s.hasher.Hash([]byte(*up.Password))
		if err != nil {
			return nil, err
		}
		if err := s.repo.UpdatePasswordHash(ctx, id, hash); err != nil {
			return nil, err
		}
		acct.PasswordHash = hash
		if _, err := s.sessions.InvalidateAllForUser(ctx, id, sessiondomain.ReasonForcedLogout); err != nil {
			return nil, err
		}
	}
	return acct, nil
}

// Delete removes an account the actor strictly outranks and ends all of its
// sessions.
func (s *Service) Delete(ctx context.Context, actor rank.Rank, id string) error {
	acct, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if acct == nil {
		return ErrNotFound
	}
	if !rank.CanManage(actor, acct.Rank) {
		return ErrNotManageable
	}
	if _, err := s.sessions.InvalidateAllForUser(ctx, id, sessiondomain.ReasonForcedLogout); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
