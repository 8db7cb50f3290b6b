package service

import (
	"context"
	"errors"
	"time"

	"github.com/simplifika/postline/internal/models"
	"github.com/simplifika/postline/internal/repository"
	"github.com/simplifika/postline/internal/transfer"
)

var ErrQuotaExceeded = errors.New("monthly post limit reached")

// FreemiumLimits applies to tier 0 and to anyone whose account is not in good
// standing. Paid tiers are unmetered.
var FreemiumLimits = transfer.PackageLimits{
	Posts:    10,
	AiTexts:  5,
	AiImages: 3,
}

type UsageService interface {
	CheckPostLimit(ctx context.Context, userID int64) error
	RecordPostCreation(ctx context.Context, userID int64) error
	CurrentUsage(ctx context.Context, userID int64) (*models.UsageTracker, error)
	LimitsFor(ctx context.Context, userID int64) (*transfer.PackageLimits, error)
}

type usageService struct {
	users         repository.UserRepository
	subscriptions repository.SubscriptionRepository
	usage         repository.UsageRepository
	now           func() time.Time
}

func NewUsageService(
	users repository.UserRepository,
	subscriptions repository.SubscriptionRepository,
	usage repository.UsageRepository,
) UsageService {
	return &usageService{
		users:         users,
		subscriptions: subscriptions,
		usage:         usage,
		now:           time.Now,
	}
}

func (s *usageService) period() string {
	return s.now().Format("2006-01")
}

// metered reports whether the freemium limits apply to the user. Anyone not
// active on a paid tier is metered, which quietly covers defaulted and
// blocked accounts too.
func (s *usageService) metered(ctx context.Context, userID int64) (bool, error) {
	user, found, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	if !found || user.Status != models.UserStatusActive {
		return true, nil
	}

	sub, err := s.subscriptions.GetLatestByUserID(ctx, userID)
	if err != nil {
		return false, err
	}
	if sub == nil || sub.PackageTier == models.TierFreemium {
		return true, nil
	}
	return false, nil
}

func (s *usageService) CheckPostLimit(ctx context.Context, userID int64) error {
	metered, err := s.metered(ctx, userID)
	if err != nil {
		return err
	}
	if !metered {
		return nil
	}

	tracker, err := s.usage.Get(ctx, userID, s.period())
	if err != nil {
		return err
	}
	if tracker != nil && tracker.PostCount >= FreemiumLimits.Posts {
		return ErrQuotaExceeded
	}
	return nil
}

func (s *usageService) RecordPostCreation(ctx context.Context, userID int64) error {
	return s.usage.IncrementPostCount(ctx, userID, s.period())
}

func (s *usageService) CurrentUsage(ctx context.Context, userID int64) (*models.UsageTracker, error) {
	tracker, err := s.usage.Get(ctx, userID, s.period())
	if err != nil {
		return nil, err
	}
	if tracker == nil {
		tracker = &models.UsageTracker{UserID: userID, Period: s.period()}
	}
	return tracker, nil
}

// LimitsFor returns the limits in force for the user, nil when unmetered.
func (s *usageService) LimitsFor(ctx context.Context, userID int64) (*transfer.PackageLimits, error) {
	metered, err := s.metered(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !metered {
		return nil, nil
	}
	limits := FreemiumLimits
	return &limits, nil
}
