package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"harmonia/internal/domain"
)

// ProfileRepository persiste los perfiles de preferencia visual: el documento
// completo mas columnas vectoriales para busqueda por similitud.
type ProfileRepository interface {
	Upsert(ctx context.Context, profile domain.PreferenceProfile) error
	GetByUserID(ctx context.Context, userID string) (domain.PreferenceProfile, error)
	Nearest(ctx context.Context, ideal pgvector.Vector, excludeUserID string, k int) ([]domain.PreferenceProfile, error)
}

type PgProfileRepository struct {
	pool *pgxpool.Pool
}

func NewPgProfileRepository(pool *pgxpool.Pool) *PgProfileRepository {
	return &PgProfileRepository{pool: pool}
}

func (r *PgProfileRepository) Upsert(ctx context.Context, profile domain.PreferenceProfile) error {
	doc, err := json.Marshal(profile.Document)
	if err != nil {
		return fmt.Errorf("marshal profile document: %w", err)
	}
	// Una calibracion nueva reemplaza el perfil anterior del usuario.
	const query = `
		INSERT INTO preference_profiles (id, user_id, document, embedding, ideal, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id)
		DO UPDATE SET
			document = EXCLUDED.document,
			embedding = EXCLUDED.embedding,
			ideal = EXCLUDED.ideal,
			created_at = EXCLUDED.created_at
	`
	_, err = r.pool.Exec(ctx, query,
		profile.ID,
		profile.UserID,
		doc,
		profile.Embedding,
		profile.Ideal,
		profile.CreatedAt,
	)
	return err
}

func (r *PgProfileRepository) GetByUserID(ctx context.Context, userID string) (domain.PreferenceProfile, error) {
	const query = `
		SELECT id, user_id, document, embedding, ideal, created_at
		FROM preference_profiles
		WHERE user_id = $1
	`
	var (
		profile domain.PreferenceProfile
		doc     []byte
	)
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&profile.ID,
		&profile.UserID,
		&doc,
		&profile.Embedding,
		&profile.Ideal,
		&profile.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.PreferenceProfile{}, err
	}
	if err != nil {
		return domain.PreferenceProfile{}, err
	}
	if err := json.Unmarshal(doc, &profile.Document); err != nil {
		return domain.PreferenceProfile{}, fmt.Errorf("unmarshal profile document: %w", err)
	}
	return profile, nil
}

// Nearest busca los perfiles cuyo embedding propio esta mas cerca del vector
// ideal dado (distancia coseno), excluyendo al propio usuario.
func (r *PgProfileRepository) Nearest(ctx context.Context, ideal pgvector.Vector, excludeUserID string, k int) ([]domain.PreferenceProfile, error) {
	if k <= 0 {
		k = 5
	}
	const query = `
		SELECT id, user_id, document, embedding, ideal, created_at
		FROM preference_profiles
		WHERE user_id <> $1
		ORDER BY embedding <=> $2
		LIMIT $3
	`
	rows, err := r.pool.Query(ctx, query, excludeUserID, ideal, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []domain.PreferenceProfile
	for rows.Next() {
		var (
			profile domain.PreferenceProfile
			doc     []byte
		)
		if err := rows.Scan(
			&profile.ID,
			&profile.UserID,
			&doc,
			&profile.Embedding,
			&profile.Ideal,
			&profile.CreatedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(doc, &profile.Document); err != nil {
			return nil, fmt.Errorf("unmarshal profile document: %w", err)
		}
		profiles = append(profiles, profile)
	}
	return profiles, rows.Err()
}
