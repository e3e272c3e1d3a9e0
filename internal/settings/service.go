// Package settings serves and updates the console session configuration.
package settings

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"asset-console/backend/internal/session"
	"asset-console/backend/internal/settings/domain"
	"asset-console/backend/internal/settings/repository"
	"asset-console/backend/internal/telemetry"
	telemetrydomain "asset-console/backend/internal/telemetry/domain"
)

// cacheTTL bounds how stale a served settings copy may be. Session creation
// reads settings on every login, so the row is cached briefly.
const cacheTTL = 30 * time.Second

// Service reads and writes the session settings, falling back to defaults
// when nothing was saved yet or the store is unreachable.
type Service struct {
	repo   repository.Repository
	events telemetry.EventEmitter // may be nil

	mu        sync.Mutex
	cached    *domain.Settings
	fetchedAt time.Time

	nowF func() time.Time
}

func NewService(repo repository.Repository, events telemetry.EventEmitter) *Service {
	return &Service{
		repo:   repo,
		events: events,
		nowF:   func() time.Time { return time.Now().UTC() },
	}
}

// Current returns the effective settings. Store errors are logged and the
// defaults served, so a database hiccup cannot block logins.
func (s *Service) Current(ctx context.Context) domain.Settings {
	s.mu.Lock()
	if s.cached != nil && s.nowF().Sub(s.fetchedAt) < cacheTTL {
		out := *s.cached
		s.mu.Unlock()
		return out
	}
	s.mu.Unlock()

	stored, err := s.repo.Get(ctx)
	if err != nil {
		log.Printf("settings: load failed, serving defaults: %v", err)
		return domain.Defaults()
	}
	out := domain.Defaults()
	if stored != nil {
		out = *stored
	}
	s.mu.Lock()
	s.cached = &out
	s.fetchedAt = s.nowF()
	s.mu.Unlock()
	return out
}

// Update validates and persists new settings. The change applies to sessions
// created afterwards; existing sessions keep their original expiry.
func (s *Service) Update(ctx context.Context, in domain.Settings, updatedBy string) (domain.Settings, error) {
	if err := in.Validate(); err != nil {
		return domain.Settings{}, err
	}
	in.UpdatedAt = s.nowF()
	if err := s.repo.Upsert(ctx, &in); err != nil {
		return domain.Settings{}, err
	}
	s.mu.Lock()
	s.cached = &in
	s.fetchedAt = s.nowF()
	s.mu.Unlock()

	telemetry.EmitAsync(s.events, &telemetrydomain.SecurityEvent{
		ID:        uuid.New().String(),
		EventType: telemetrydomain.EventSettingsChanged,
		UserID:    updatedBy,
		CreatedAt: in.UpdatedAt,
	})
	return in, nil
}

// SessionLimits makes the service a session.LimitSource. Single-device mode
// caps active sessions at one regardless of the configured maximum.
func (s *Service) SessionLimits(ctx context.Context) session.Limits {
	cur := s.Current(ctx)
	max := cur.MaxActiveSessions
	if cur.EnforceSingleDeviceLogin {
		max = 1
	}
	return session.Limits{TimeoutDays: cur.SessionTimeoutDays, MaxActiveSessions: max}
}
