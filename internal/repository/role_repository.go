package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/session-service/internal/domain"
)

// RoleRecord is a stored role row.
type RoleRecord struct {
	ID   int32
	Name domain.Role
}

// RoleRepository manages the fixed role table.
type RoleRepository interface {
	FindByName(ctx context.Context, name domain.Role) (*RoleRecord, error)
	ExistsByName(ctx context.Context, name domain.Role) (bool, error)
	Save(ctx context.Context, name domain.Role) (*RoleRecord, error)
}

type roleRepository struct {
	pool *pgxpool.Pool
}

// NewRoleRepository returns a Postgres-backed implementation.
func NewRoleRepository(pool *pgxpool.Pool) RoleRepository {
	return &roleRepository{pool: pool}
}

func (r *roleRepository) FindByName(ctx context.Context, name domain.Role) (*RoleRecord, error) {
	const query = `SELECT id, name FROM roles WHERE name=$1`

	var record RoleRecord
	if err := r.pool.QueryRow(ctx, query, string(name)).Scan(&record.ID, &record.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

func (r *roleRepository) ExistsByName(ctx context.Context, name domain.Role) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM roles WHERE name=$1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, string(name)).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *roleRepository) Save(ctx context.Context, name domain.Role) (*RoleRecord, error) {
	// ON CONFLICT keeps the bootstrap idempotent across concurrent startups.
	const query = `
        INSERT INTO roles (name) VALUES ($1)
        ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
        RETURNING id, name`

	var record RoleRecord
	if err := r.pool.QueryRow(ctx, query, string(name)).Scan(&record.ID, &record.Name); err != nil {
		return nil, err
	}
	return &record, nil
}
