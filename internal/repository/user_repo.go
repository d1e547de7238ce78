package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"harmonia/internal/domain"
)

// UserRepository define el contrato de persistencia para usuarios.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByUsername(ctx context.Context, username string) (domain.User, error)
	SetCalibrationComplete(ctx context.Context, id string, at time.Time) error
	SetPsychometricComplete(ctx context.Context, id string, at time.Time) error
}

// PgUserRepository implementa UserRepository usando pgxpool.
type PgUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

const userColumns = `id, email, username, password_hash, gender, preference_target,
	calibration_complete, psychometric_complete, created_at, updated_at`

func (r *PgUserRepository) Create(ctx context.Context, user domain.User) error {
	const query = `
		INSERT INTO users (id, email, username, password_hash, gender, preference_target,
			calibration_complete, psychometric_complete, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Email,
		user.Username,
		user.PasswordHash,
		user.Gender,
		user.PreferenceTarget,
		user.CalibrationComplete,
		user.PsychometricComplete,
		user.CreatedAt,
		user.UpdatedAt,
	)
	return err
}

func (r *PgUserRepository) getBy(ctx context.Context, where string, arg any) (domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where
	var u domain.User
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&u.ID,
		&u.Email,
		&u.Username,
		&u.PasswordHash,
		&u.Gender,
		&u.PreferenceTarget,
		&u.CalibrationComplete,
		&u.PsychometricComplete,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, err
	}
	return u, err
}

func (r *PgUserRepository) GetByID(ctx context.Context, id string) (domain.User, error) {
	return r.getBy(ctx, "id = $1", id)
}

func (r *PgUserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.getBy(ctx, "email = $1", email)
}

func (r *PgUserRepository) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	return r.getBy(ctx, "username = $1", username)
}

func (r *PgUserRepository) SetCalibrationComplete(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE users SET calibration_complete = TRUE, updated_at = $2 WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id, at)
	return err
}

func (r *PgUserRepository) SetPsychometricComplete(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE users SET psychometric_complete = TRUE, updated_at = $2 WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id, at)
	return err
}
