// Package credentials resolves publish-ready tokens for connected accounts,
// refreshing expired ones through the owning adapter when the platform
// supports it. Tokens are always read through and written back to the store;
// nothing is cached in memory.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/simplifika/postline/internal/models"
	"github.com/simplifika/postline/internal/platform"
	"github.com/simplifika/postline/internal/repository"
	"github.com/simplifika/postline/pkg/utils"
)

var ErrTokenExpired = errors.New("access token expired and no refresh token available")

type Manager struct {
	accounts  repository.ConnectedAccountRepository
	registry  *platform.Registry
	secretKey []byte
	now       func() time.Time
}

func NewManager(accounts repository.ConnectedAccountRepository, registry *platform.Registry, secretKey string) *Manager {
	return &Manager{
		accounts:  accounts,
		registry:  registry,
		secretKey: []byte(secretKey),
		now:       time.Now,
	}
}

// EnsureValidToken returns decrypted credentials for the account, refreshing
// and persisting them first if the stored token has expired. The store is
// updated before the token is handed to any adapter, so a crash between
// refresh and publish leaves a usable token behind.
func (m *Manager) EnsureValidToken(ctx context.Context, acc *models.ConnectedAccount) (platform.Credentials, error) {
	accessToken, err := utils.Decrypt(acc.AccessToken, m.secretKey)
	if err != nil {
		return platform.Credentials{}, fmt.Errorf("error decrypting access token: %w", err)
	}

	// No recorded expiry means the platform issued a non-expiring token.
	if acc.TokenExpiresAt.IsZero() || m.now().Before(acc.TokenExpiresAt) {
		return platform.Credentials{AccountID: acc.AccountID, AccessToken: accessToken}, nil
	}

	if acc.RefreshToken == "" {
		return platform.Credentials{}, ErrTokenExpired
	}

	refreshed, err := m.refresh(ctx, acc)
	if err != nil {
		return platform.Credentials{}, err
	}

	return platform.Credentials{AccountID: acc.AccountID, AccessToken: refreshed}, nil
}

func (m *Manager) refresh(ctx context.Context, acc *models.ConnectedAccount) (string, error) {
	pub, ok := m.registry.Lookup(acc.Platform)
	if !ok {
		return "", fmt.Errorf("unknown platform %q", acc.Platform)
	}

	refresher, ok := pub.(platform.TokenRefresher)
	if !ok {
		return "", fmt.Errorf("%s: %w", acc.Platform, platform.ErrRefreshUnsupported)
	}

	refreshToken, err := utils.Decrypt(acc.RefreshToken, m.secretKey)
	if err != nil {
		return "", fmt.Errorf("error decrypting refresh token: %w", err)
	}

	token, err := refresher.RefreshToken(ctx, refreshToken)
	if err != nil {
		return "", err
	}

	encryptedAccess, err := utils.Encrypt([]byte(token.AccessToken), m.secretKey)
	if err != nil {
		return "", err
	}

	var encryptedRefresh string
	if token.RefreshToken != "" && token.RefreshToken != refreshToken {
		encryptedRefresh, err = utils.Encrypt([]byte(token.RefreshToken), m.secretKey)
		if err != nil {
			return "", err
		}
	}

	if err := m.accounts.SetToken(ctx, acc.ID, encryptedAccess, encryptedRefresh, token.ExpiresAt); err != nil {
		return "", fmt.Errorf("error persisting refreshed token: %w", err)
	}

	slog.Info("refreshed platform token", "platform", acc.Platform, "account_id", acc.ID)

	acc.AccessToken = encryptedAccess
	acc.TokenExpiresAt = token.ExpiresAt

	return token.AccessToken, nil
}
