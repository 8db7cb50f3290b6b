package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/simplifika/postline/internal/models"
	"github.com/simplifika/postline/internal/repository"
	"github.com/simplifika/postline/internal/transfer"
)

// keepOnDowngrade is how many scheduled posts survive a drop to the free
// tier. The earliest-scheduled ones are kept.
const keepOnDowngrade = 5

type SubscriptionService interface {
	Info(ctx context.Context, userID int64) (*transfer.SubscriptionInfo, error)
	Update(ctx context.Context, userID int64, input *transfer.SubscriptionUpdateInput) error
	Downgrade(ctx context.Context, userID int64) (int, error)
}

type subscriptionService struct {
	users         repository.UserRepository
	subscriptions repository.SubscriptionRepository
	posts         repository.PostRepository
	usage         UsageService
	notifier      Notifier
}

func NewSubscriptionService(
	users repository.UserRepository,
	subscriptions repository.SubscriptionRepository,
	posts repository.PostRepository,
	usage UsageService,
	notifier Notifier,
) SubscriptionService {
	return &subscriptionService{
		users:         users,
		subscriptions: subscriptions,
		posts:         posts,
		usage:         usage,
		notifier:      notifier,
	}
}

func (s *subscriptionService) Info(ctx context.Context, userID int64) (*transfer.SubscriptionInfo, error) {
	sub, err := s.subscriptions.GetLatestByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		sub = &models.Subscription{UserID: userID, PackageTier: models.TierFreemium, Status: "active"}
	}

	usage, err := s.usage.CurrentUsage(ctx, userID)
	if err != nil {
		return nil, err
	}

	limits, err := s.usage.LimitsFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &transfer.SubscriptionInfo{
		Subscription: sub,
		Usage:        usage,
		Limits:       limits,
	}, nil
}

func (s *subscriptionService) Update(ctx context.Context, userID int64, input *transfer.SubscriptionUpdateInput) error {
	if input == nil || input.PackageTier < 0 {
		err := errors.New("invalid subscription update")
		slog.Info(err.Error())
		return err
	}

	sub, err := s.subscriptions.GetLatestByUserID(ctx, userID)
	if err != nil {
		return err
	}

	if sub == nil {
		_, err = s.subscriptions.Create(ctx, &models.Subscription{
			UserID:      userID,
			PackageTier: input.PackageTier,
			HasAiAddon:  input.HasAiAddon,
			Status:      "active",
		})
		return err
	}

	return s.subscriptions.UpdateTier(ctx, sub.ID, input.PackageTier, input.HasAiAddon)
}

// Downgrade drops the user to the free tier and deactivates every scheduled
// post beyond the free allowance, earliest-scheduled kept. Returns how many
// posts were deactivated.
func (s *subscriptionService) Downgrade(ctx context.Context, userID int64) (int, error) {
	scheduled, err := s.posts.ListScheduledByUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	deactivated := 0
	for i, post := range scheduled {
		if i < keepOnDowngrade {
			continue
		}
		// Conditional write: a post that published or failed while the
		// downgrade ran is left alone.
		changed, err := s.posts.UpdateStatusIf(ctx, post.ID, models.PostStatusScheduled, models.PostStatusInactive)
		if err != nil {
			return deactivated, fmt.Errorf("error deactivating post %d: %w", post.ID, err)
		}
		if changed {
			deactivated++
		}
	}

	if deactivated > 0 {
		user, found, err := s.users.GetByID(ctx, userID)
		if err == nil && found {
			s.notifier.SendDowngradeNotice(user.Email, deactivated)
		}
	}

	sub, err := s.subscriptions.GetLatestByUserID(ctx, userID)
	if err != nil {
		return deactivated, err
	}
	if sub != nil && sub.PackageTier != models.TierFreemium {
		if err := s.subscriptions.UpdateTier(ctx, sub.ID, models.TierFreemium, false); err != nil {
			return deactivated, err
		}
	}

	return deactivated, nil
}
