package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/simplifika/postline/internal/models"
)

type SubscriptionRepository interface {
	Create(ctx context.Context, sub *models.Subscription) (int64, error)
	GetLatestByUserID(ctx context.Context, userID int64) (*models.Subscription, error)
	UpdateTier(ctx context.Context, id int64, packageTier int, hasAiAddon bool) error
}

type subscriptionRepository struct {
	db *sql.DB
}

func NewSubscriptionRepository(db *sql.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) Create(ctx context.Context, sub *models.Subscription) (int64, error) {
	query := `
		INSERT INTO subscriptions (user_id, package_tier, has_ai_addon, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, sub.UserID, sub.PackageTier, sub.HasAiAddon, sub.Status).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *subscriptionRepository) GetLatestByUserID(ctx context.Context, userID int64) (*models.Subscription, error) {
	query := `SELECT id, user_id, package_tier, has_ai_addon, status, created_at, updated_at
		FROM subscriptions WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1`

	var sub models.Subscription
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&sub.ID, &sub.UserID, &sub.PackageTier,
		&sub.HasAiAddon, &sub.Status, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &sub, nil
}

func (r *subscriptionRepository) UpdateTier(ctx context.Context, id int64, packageTier int, hasAiAddon bool) error {
	query := `
		UPDATE subscriptions
		SET package_tier = $1,
			has_ai_addon = $2,
			updated_at = $3
		WHERE id = $4
	`
	_, err := r.db.ExecContext(ctx, query, packageTier, hasAiAddon, time.Now(), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
