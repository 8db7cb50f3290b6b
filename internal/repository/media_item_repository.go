package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/simplifika/postline/internal/models"
)

type MediaItemRepository interface {
	Create(ctx context.Context, tx *sql.Tx, item *models.MediaItem) (int64, error)
	ListByPostID(ctx context.Context, postID int64) ([]*models.MediaItem, error)
	RemoveByPostID(ctx context.Context, postID int64) error
}

type mediaItemRepository struct {
	db *sql.DB
}

func NewMediaItemRepository(db *sql.DB) MediaItemRepository {
	return &mediaItemRepository{db: db}
}

func (r *mediaItemRepository) Create(ctx context.Context, tx *sql.Tx, item *models.MediaItem) (int64, error) {
	query := `
		INSERT INTO media_items (post_id, storage_url, mime_type, display_order)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	var id int64
	var err error

	if tx != nil {
		err = tx.QueryRowContext(ctx, query, item.PostID, item.StorageURL, item.MimeType, item.DisplayOrder).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, item.PostID, item.StorageURL, item.MimeType, item.DisplayOrder).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *mediaItemRepository) ListByPostID(ctx context.Context, postID int64) ([]*models.MediaItem, error) {
	query := `SELECT id, post_id, storage_url, mime_type, display_order, created_at
		FROM media_items WHERE post_id = $1 ORDER BY display_order ASC`

	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var items []*models.MediaItem
	for rows.Next() {
		var item models.MediaItem
		err := rows.Scan(&item.ID, &item.PostID, &item.StorageURL, &item.MimeType, &item.DisplayOrder, &item.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		items = append(items, &item)
	}
	return items, nil
}

func (r *mediaItemRepository) RemoveByPostID(ctx context.Context, postID int64) error {
	query := `DELETE FROM media_items WHERE post_id = $1`
	_, err := r.db.ExecContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
