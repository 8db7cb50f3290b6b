package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/simplifika/postline/internal/models"
)

// UsageRepository tracks per-period consumption. The AI counters are written
// by the content tools sharing this store; this service only increments the
// post counter and reads the rest back for the subscription info view.
type UsageRepository interface {
	Get(ctx context.Context, userID int64, period string) (*models.UsageTracker, error)
	IncrementPostCount(ctx context.Context, userID int64, period string) error
}

type usageRepository struct {
	db *sql.DB
}

func NewUsageRepository(db *sql.DB) UsageRepository {
	return &usageRepository{db: db}
}

func (r *usageRepository) Get(ctx context.Context, userID int64, period string) (*models.UsageTracker, error) {
	query := `SELECT id, user_id, period, post_count, ai_text_count, ai_image_count, created_at
		FROM usage_trackers WHERE user_id = $1 AND period = $2`

	var tracker models.UsageTracker
	err := r.db.QueryRowContext(ctx, query, userID, period).Scan(&tracker.ID, &tracker.UserID,
		&tracker.Period, &tracker.PostCount, &tracker.AiTextCount, &tracker.AiImageCount, &tracker.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &tracker, nil
}

// Trackers are created lazily on first increment of a billing period.
func (r *usageRepository) increment(ctx context.Context, userID int64, period, column string) error {
	query := `
		INSERT INTO usage_trackers (user_id, period, ` + column + `)
		VALUES ($1, $2, 1)
		ON CONFLICT (user_id, period) DO UPDATE
		SET ` + column + ` = usage_trackers.` + column + ` + 1
	`
	_, err := r.db.ExecContext(ctx, query, userID, period)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *usageRepository) IncrementPostCount(ctx context.Context, userID int64, period string) error {
	return r.increment(ctx, userID, period, "post_count")
}
