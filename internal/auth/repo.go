package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinsim/clinsim/internal/shared"
)

// Repository provides account lookup for login.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (Account, error)
}

// PostgresRepository reads accounts from the subjects table.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a Postgres-backed repository.
func NewRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// FindByEmail fetches the account row for the email.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (Account, error) {
	const query = `
		SELECT id, email, password_hash, active, created_at
		FROM subjects WHERE email = $1`

	var account Account
	err := r.pool.QueryRow(ctx, query, email).Scan(
		&account.ID, &account.Email, &account.PasswordHash,
		&account.Active, &account.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.ErrNotFound
		}
		return Account{}, fmt.Errorf("auth: find account: %w", err)
	}
	return account, nil
}
