package images

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements Repository on top of a pgx pool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

var _ Repository = (*PostgresRepository)(nil)

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const imageColumns = `id, user_id, name, content_type, size, original_path, optimized_path, processing_status, width, height, created_at, updated_at`

func (r *PostgresRepository) Create(ctx context.Context, img *Image) error {
	if img.ID == uuid.Nil {
		img.ID = uuid.New()
	}
	img.Status = StatusPending

	query := `
		INSERT INTO images (id, user_id, name, content_type, size, original_path, processing_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		img.ID, img.UserID, img.Name, img.ContentType, img.Size, img.OriginalPath, img.Status,
	).Scan(&img.CreatedAt, &img.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert image: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (*Image, error) {
	query := `SELECT ` + imageColumns + ` FROM images WHERE id = $1`

	img, err := scanImage(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get image: %w", err)
	}
	return img, nil
}

func (r *PostgresRepository) LatestByUser(ctx context.Context, userID string) (*Image, error) {
	query := `SELECT ` + imageColumns + ` FROM images WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1`

	img, err := scanImage(r.pool.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("latest image for user: %w", err)
	}
	return img, nil
}

// Claim uses a conditional update so only one worker can move a record
// out of PENDING even under concurrent redelivery.
func (r *PostgresRepository) Claim(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE images
		SET processing_status = $1, updated_at = now()
		WHERE id = $2 AND processing_status = $3`

	tag, err := r.pool.Exec(ctx, query, StatusProcessing, id, StatusPending)
	if err != nil {
		return fmt.Errorf("claim image: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
		return ErrNotClaimed
	}
	return nil
}

func (r *PostgresRepository) Complete(ctx context.Context, id uuid.UUID, result CompletionResult) error {
	query := `
		UPDATE images
		SET processing_status = $1, optimized_path = $2, width = $3, height = $4, updated_at = now()
		WHERE id = $5 AND processing_status = $6`

	tag, err := r.pool.Exec(ctx, query,
		StatusCompleted, result.OptimizedPath, result.Width, result.Height, id, StatusProcessing)
	if err != nil {
		return fmt.Errorf("complete image: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
		return ErrNotClaimed
	}
	return nil
}

func (r *PostgresRepository) Fail(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE images
		SET processing_status = $1, updated_at = now()
		WHERE id = $2 AND processing_status != $3`

	tag, err := r.pool.Exec(ctx, query, StatusFailed, id, StatusCompleted)
	if err != nil {
		return fmt.Errorf("fail image: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
		return ErrNotClaimed
	}
	return nil
}

func (r *PostgresRepository) RequeueStuck(ctx context.Context, olderThan time.Time, limit int) ([]uuid.UUID, error) {
	query := `
		UPDATE images
		SET processing_status = $1, updated_at = now()
		WHERE id IN (
			SELECT id FROM images
			WHERE processing_status = $2 AND updated_at < $3
			ORDER BY updated_at
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id`

	rows, err := r.pool.Query(ctx, query, StatusPending, StatusProcessing, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("requeue stuck images: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan requeued id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate requeued ids: %w", err)
	}
	return ids, nil
}

func scanImage(row pgx.Row) (*Image, error) {
	var img Image
	err := row.Scan(
		&img.ID, &img.UserID, &img.Name, &img.ContentType, &img.Size,
		&img.OriginalPath, &img.OptimizedPath, &img.Status,
		&img.Width, &img.Height, &img.CreatedAt, &img.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &img, nil
}
