package audit

import (
	"context"
	"database/sql"
	"fmt"
)

// EventRepository defines the data access contract for security events.
// All SQL lives in the concrete implementation -- no SQL leaks out.
type EventRepository interface {
	Insert(ctx context.Context, ev *Event) error
	List(ctx context.Context, offset, limit int) ([]Event, int, error)
}

// eventRepository implements EventRepository with hand-written MariaDB queries.
type eventRepository struct {
	db *sql.DB
}

// NewEventRepository creates an event repository backed by the given DB pool.
func NewEventRepository(db *sql.DB) EventRepository {
	return &eventRepository{db: db}
}

// Insert appends a security event row.
func (r *eventRepository) Insert(ctx context.Context, ev *Event) error {
	query := `INSERT INTO security_events (event_type, account_id, email, ip_address, user_agent, detail, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		ev.EventType,
		nullable(ev.AccountID),
		nullable(ev.Email),
		ev.IPAddress,
		nullable(ev.UserAgent),
		nullable(ev.Detail),
		ev.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting security event: %w", err)
	}
	return nil
}

// List returns a page of events, newest first, plus the total count for
// pagination.
func (r *eventRepository) List(ctx context.Context, offset, limit int) ([]Event, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM security_events`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting security events: %w", err)
	}

	query := `SELECT id, event_type, COALESCE(account_id, ''), COALESCE(email, ''),
	                 ip_address, COALESCE(user_agent, ''), COALESCE(detail, ''), created_at
	          FROM security_events ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing security events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		if err := rows.Scan(
			&ev.ID, &ev.EventType, &ev.AccountID, &ev.Email,
			&ev.IPAddress, &ev.UserAgent, &ev.Detail, &ev.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scanning security event row: %w", err)
		}
		events = append(events, ev)
	}

	return events, total, rows.Err()
}

// nullable maps "" to NULL so empty optional fields don't clutter the table.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
