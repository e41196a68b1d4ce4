package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tesfahiwot/portal/internal/apperror"
)

// Recorder is the narrow interface other packages depend on to report
// security events. Kept to a single method so the auth service and route
// gate can take it without dragging the listing API along.
type Recorder interface {
	Record(ctx context.Context, ev Event)
}

// Service records and lists security events.
type Service struct {
	repo EventRepository
}

// NewService creates an audit service on the given repository.
func NewService(repo EventRepository) *Service {
	return &Service{repo: repo}
}

// Record persists a security event. Fire-and-forget: the event gets a
// timestamp if it lacks one, and an insert failure is logged, not returned.
// Audit trouble must never block a login or a request.
func (s *Service) Record(ctx context.Context, ev Event) {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	if err := s.repo.Insert(ctx, &ev); err != nil {
		slog.Warn("failed to record security event",
			slog.String("event_type", ev.EventType),
			slog.Any("error", err),
		)
	}
}

// List returns a page of security events for the dashboard, newest first.
func (s *Service) List(ctx context.Context, offset, limit int) ([]Event, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	events, total, err := s.repo.List(ctx, offset, limit)
	if err != nil {
		return nil, 0, apperror.NewInternal(fmt.Errorf("listing security events: %w", err))
	}
	return events, total, nil
}
