package audit

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository reads audit events back out of audit_events.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository returns a repository over the given pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// TimelineWindow returns events matching the filters, newest first.
func (r *PostgresRepository) TimelineWindow(ctx context.Context, filters TimelineFilters, limit, offset int) ([]Event, error) {
	const query = `
		SELECT id, kind, subject_id, resource, action, outcome, reason,
		       origin_ip, origin_user_agent, origin_path, occurred_at
		FROM audit_events
		WHERE ($1::timestamptz IS NULL OR occurred_at >= $1)
		  AND ($2::timestamptz IS NULL OR occurred_at <= $2)
		  AND ($3::text IS NULL OR subject_id = $3)
		  AND ($4::text IS NULL OR kind = $4)
		ORDER BY occurred_at DESC
		LIMIT $5 OFFSET $6`

	rows, err := r.pool.Query(ctx, query,
		optionalTime(filters.From), optionalTime(filters.To),
		optionalText(filters.SubjectID), optionalText(filters.Kind),
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows pgx.Rows) ([]Event, error) {
	var events []Event
	for rows.Next() {
		var (
			event      Event
			kind       string
			outcome    string
			reason     string
			occurredAt pgtype.Timestamptz
		)
		if err := rows.Scan(&event.ID, &kind, &event.SubjectID, &event.Resource,
			&event.Action, &outcome, &reason,
			&event.Origin.IP, &event.Origin.UserAgent, &event.Origin.Path,
			&occurredAt); err != nil {
			return nil, err
		}
		event.Kind = Kind(kind)
		event.Outcome = Outcome(outcome)
		event.Reason = Reason(reason)
		if occurredAt.Valid {
			event.At = occurredAt.Time
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func optionalTime(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func optionalText(value string) pgtype.Text {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: trimmed, Valid: true}
}
