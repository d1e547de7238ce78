package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"harmonia/internal/domain"
)

// PsychometricRepository guarda respuestas del cuestionario y los rasgos
// agregados que se derivan de ellas.
type PsychometricRepository interface {
	CreateResponse(ctx context.Context, response domain.PsychometricResponse) error
	CountByUser(ctx context.Context, userID string) (int, error)
	UpsertTrait(ctx context.Context, trait domain.Trait) error
	FindTraitsByUser(ctx context.Context, userID string) ([]domain.Trait, error)
}

type PgPsychometricRepository struct {
	pool *pgxpool.Pool
}

func NewPgPsychometricRepository(pool *pgxpool.Pool) *PgPsychometricRepository {
	return &PgPsychometricRepository{pool: pool}
}

func (r *PgPsychometricRepository) CreateResponse(ctx context.Context, response domain.PsychometricResponse) error {
	const query = `
		INSERT INTO psychometric_responses (id, user_id, question_id, selected_option_id, traits_extracted, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.pool.Exec(ctx, query,
		response.ID,
		response.UserID,
		response.QuestionID,
		response.SelectedOptionID,
		response.TraitsExtracted,
		response.CreatedAt,
	)
	return err
}

func (r *PgPsychometricRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	const query = `
		SELECT COUNT(DISTINCT question_id)
		FROM psychometric_responses
		WHERE user_id = $1
	`
	var count int
	err := r.pool.QueryRow(ctx, query, userID).Scan(&count)
	return count, err
}

func (r *PgPsychometricRepository) UpsertTrait(ctx context.Context, trait domain.Trait) error {
	const query = `
		INSERT INTO traits (id, user_id, category, trait, value, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, category, trait)
		DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.pool.Exec(ctx, query,
		trait.ID,
		trait.UserID,
		trait.Category,
		trait.Trait,
		trait.Value,
		trait.CreatedAt,
		trait.UpdatedAt,
	)
	return err
}

func (r *PgPsychometricRepository) FindTraitsByUser(ctx context.Context, userID string) ([]domain.Trait, error) {
	const query = `
		SELECT id, user_id, category, trait, value, created_at, updated_at
		FROM traits
		WHERE user_id = $1
		ORDER BY category, trait
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var traits []domain.Trait
	for rows.Next() {
		var t domain.Trait
		if err := rows.Scan(
			&t.ID,
			&t.UserID,
			&t.Category,
			&t.Trait,
			&t.Value,
			&t.CreatedAt,
			&t.UpdatedAt,
		); err != nil {
			return nil, err
		}
		traits = append(traits, t)
	}
	return traits, rows.Err()
}
