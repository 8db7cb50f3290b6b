package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/redis/go-redis/v9"

	cfg "github.com/simplifika/postline/configs"
	"github.com/simplifika/postline/internal/models"
	"github.com/simplifika/postline/internal/repository"
	"github.com/simplifika/postline/pkg/utils"
)

const (
	verificationCodeTTL = 15 * time.Minute
	sessionDuration     = 30 * 24 * time.Hour
)

var ErrInvalidCode = errors.New("invalid or expired verification code")

type AuthService interface {
	RequestCode(ctx context.Context, email string) error
	Verify(ctx context.Context, email, code string) (string, error)
}

type authService struct {
	cfg      *cfg.Config
	users    repository.UserRepository
	rdb      *redis.Client
	notifier Notifier
}

func NewAuthService(c *cfg.Config, users repository.UserRepository, rdb *redis.Client, notifier Notifier) AuthService {
	return &authService{
		cfg:      c,
		users:    users,
		rdb:      rdb,
		notifier: notifier,
	}
}

func codeKey(email string) string {
	return "verification_code:" + email
}

// RequestCode generates a short numeric code, stores it with a TTL, and
// emails it. Requesting again replaces the previous code.
func (s *authService) RequestCode(ctx context.Context, email string) error {
	if email == "" {
		err := errors.New("email cannot be empty")
		slog.Info(err.Error())
		return err
	}

	code, err := gonanoid.Generate("0123456789", 6)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	if err := s.rdb.Set(ctx, codeKey(email), code, verificationCodeTTL).Err(); err != nil {
		slog.Info(err.Error())
		return fmt.Errorf("error storing verification code: %w", err)
	}

	s.notifier.SendVerificationCode(email, code)
	return nil
}

// Verify checks the code, creates the user on first login, and returns a
// signed session token. The code is single-use.
func (s *authService) Verify(ctx context.Context, email, code string) (string, error) {
	stored, err := s.rdb.Get(ctx, codeKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrInvalidCode
		}
		slog.Info(err.Error())
		return "", err
	}

	if stored != code {
		return "", ErrInvalidCode
	}

	if err := s.rdb.Del(ctx, codeKey(email)).Err(); err != nil {
		slog.Info(err.Error())
	}

	user, isExist, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("fetching user by email failed: %w", err)
	}

	var userID int64
	if !isExist {
		userID, err = s.users.Create(ctx, nil, &models.User{
			Email:  email,
			Status: models.UserStatusActive,
		})
		if err != nil {
			return "", err
		}
	} else {
		if user.Status == models.UserStatusBlocked {
			return "", errors.New("account is blocked")
		}
		userID = user.ID
	}

	return utils.GenerateToken(s.cfg.SecretKey, strconv.FormatInt(userID, 10), sessionDuration)
}
