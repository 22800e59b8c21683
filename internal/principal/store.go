package principal

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrSubjectNotFound indicates the referenced subject no longer exists.
var ErrSubjectNotFound = errors.New("principal: subject not found")

// SubjectStore provides read access to live subject records. The resolver
// re-reads on every request; there is no in-process caching, so a
// deactivation takes effect on the next resolution.
type SubjectStore interface {
	FindByID(ctx context.Context, id string) (Subject, error)
	// TouchLastActivity is best-effort; callers do not await it.
	TouchLastActivity(ctx context.Context, id string) error
}

// PostgresStore is the pgx-backed SubjectStore.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore returns a store over the given pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// FindByID fetches the subject row.
func (s *PostgresStore) FindByID(ctx context.Context, id string) (Subject, error) {
	const query = `
		SELECT id, roles, discipline, active, last_active_at
		FROM subjects WHERE id = $1`

	var (
		subject      Subject
		roles        []string
		lastActiveAt pgtype.Timestamptz
	)
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&subject.ID, &roles, &subject.Discipline, &subject.Active, &lastActiveAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Subject{}, ErrSubjectNotFound
		}
		return Subject{}, fmt.Errorf("principal: find subject: %w", err)
	}
	subject.Roles = make([]Role, 0, len(roles))
	for _, r := range roles {
		subject.Roles = append(subject.Roles, Role(r))
	}
	if lastActiveAt.Valid {
		subject.LastActiveAt = lastActiveAt.Time
	}
	return subject, nil
}

// TouchLastActivity stamps the subject's last activity to now.
func (s *PostgresStore) TouchLastActivity(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE subjects SET last_active_at = NOW() WHERE id = $1`, id)
	return err
}
