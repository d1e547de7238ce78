package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"harmonia/internal/domain"
)

// RatingRepository persiste las puntuaciones de calibracion de cada usuario.
type RatingRepository interface {
	CreateBatch(ctx context.Context, ratings []domain.Rating) error
	ListByUser(ctx context.Context, userID string) ([]domain.Rating, error)
}

type PgRatingRepository struct {
	pool *pgxpool.Pool
}

func NewPgRatingRepository(pool *pgxpool.Pool) *PgRatingRepository {
	return &PgRatingRepository{pool: pool}
}

func (r *PgRatingRepository) CreateBatch(ctx context.Context, ratings []domain.Rating) error {
	if len(ratings) == 0 {
		return nil
	}
	const query = `
		INSERT INTO calibration_ratings (id, user_id, image_id, stars, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	batch := &pgx.Batch{}
	for _, rating := range ratings {
		batch.Queue(query,
			rating.ID,
			rating.UserID,
			rating.ImageID,
			rating.Stars,
			rating.CreatedAt,
		)
	}
	return r.pool.SendBatch(ctx, batch).Close()
}

func (r *PgRatingRepository) ListByUser(ctx context.Context, userID string) ([]domain.Rating, error) {
	const query = `
		SELECT id, user_id, image_id, stars, created_at
		FROM calibration_ratings
		WHERE user_id = $1
		ORDER BY created_at, image_id
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ratings []domain.Rating
	for rows.Next() {
		var rating domain.Rating
		if err := rows.Scan(
			&rating.ID,
			&rating.UserID,
			&rating.ImageID,
			&rating.Stars,
			&rating.CreatedAt,
		); err != nil {
			return nil, err
		}
		ratings = append(ratings, rating)
	}
	return ratings, rows.Err()
}
