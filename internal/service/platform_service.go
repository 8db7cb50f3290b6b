package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	cfg "github.com/simplifika/postline/configs"
	"github.com/simplifika/postline/internal/models"
	"github.com/simplifika/postline/internal/platform"
	"github.com/simplifika/postline/internal/repository"
	"github.com/simplifika/postline/internal/transfer"
	"github.com/simplifika/postline/pkg/utils"
)

const (
	metaAuthURL     = "https://www.facebook.com/v21.0/dialog/oauth"
	metaGraphAPI    = "https://graph.facebook.com/v21.0"
	youtubeDataAPI  = "https://www.googleapis.com/youtube/v3"
	stateTTL        = 10 * time.Minute
	callbackTimeout = 30 * time.Second
)

// PlatformService runs the account connect flows: consent redirect out,
// code-for-token exchange back, and the connected-account bookkeeping.
type PlatformService interface {
	GetAuthURL(ctx context.Context, platformName string, userID int64) (string, error)
	HandleCallback(ctx context.Context, platformName, code, state string) error
	List(ctx context.Context, userID int64) ([]*models.ConnectedAccount, error)
	Delete(ctx context.Context, userID, accountID int64) error
}

type platformService struct {
	cfg      *cfg.Config
	accounts repository.ConnectedAccountRepository
	client   *http.Client
}

func NewPlatformService(c *cfg.Config, accounts repository.ConnectedAccountRepository) PlatformService {
	return &platformService{
		cfg:      c,
		accounts: accounts,
		client:   &http.Client{Timeout: callbackTimeout},
	}
}

func (s *platformService) googleOAuth() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     s.cfg.GoogleClientID,
		ClientSecret: s.cfg.GoogleClientSecret,
		RedirectURL:  s.cfg.GoogleRedirectURI,
		Scopes:       []string{"https://www.googleapis.com/auth/youtube.upload", "https://www.googleapis.com/auth/youtube.readonly"},
		Endpoint:     google.Endpoint,
	}
}

func (s *platformService) GetAuthURL(ctx context.Context, platformName string, userID int64) (string, error) {
	// The state carries the initiating user through the provider roundtrip,
	// signed so the callback can trust it.
	state, err := utils.GenerateToken(s.cfg.SecretKey, strconv.FormatInt(userID, 10), stateTTL)
	if err != nil {
		return "", err
	}

	switch platformName {
	case platform.Facebook:
		params := url.Values{}
		params.Add("client_id", s.cfg.MetaAppID)
		params.Add("redirect_uri", s.cfg.MetaRedirectURI)
		params.Add("response_type", "code")
		params.Add("scope", "pages_manage_posts,pages_read_engagement,instagram_content_publish")
		params.Add("state", state)
		return fmt.Sprintf("%s?%s", metaAuthURL, params.Encode()), nil

	case platform.Youtube:
		return s.googleOAuth().AuthCodeURL(state,
			oauth2.AccessTypeOffline,
			oauth2.SetAuthURLParam("prompt", "consent"),
		), nil

	default:
		return "", fmt.Errorf("unsupported platform %q", platformName)
	}
}

func (s *platformService) HandleCallback(ctx context.Context, platformName, code, state string) error {
	claims, err := utils.ValidateToken(s.cfg.SecretKey, state)
	if err != nil {
		return errors.New("invalid state")
	}
	userID, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil || userID == 0 {
		return errors.New("invalid state")
	}

	switch platformName {
	case platform.Facebook:
		return s.connectFacebook(ctx, userID, code)
	case platform.Youtube:
		return s.connectYoutube(ctx, userID, code)
	default:
		return fmt.Errorf("unsupported platform %q", platformName)
	}
}

// connectFacebook exchanges the code for a user token, then stores the first
// managed page together with its page token. Page tokens don't expire, so no
// expiry is recorded.
func (s *platformService) connectFacebook(ctx context.Context, userID int64, code string) error {
	tokenURL := fmt.Sprintf("%s/oauth/access_token?%s", metaGraphAPI, url.Values{
		"client_id":     {s.cfg.MetaAppID},
		"client_secret": {s.cfg.MetaAppSecret},
		"redirect_uri":  {s.cfg.MetaRedirectURI},
		"code":          {code},
	}.Encode())

	var token transfer.MetaTokenResponse
	if err := s.getJSON(ctx, tokenURL, "", &token); err != nil {
		return fmt.Errorf("facebook token exchange failed: %w", err)
	}
	if token.AccessToken == "" {
		return errors.New("facebook returned no access token")
	}

	pagesURL := fmt.Sprintf("%s/me/accounts?access_token=%s", metaGraphAPI, url.QueryEscape(token.AccessToken))
	var pages transfer.MetaPagesResponse
	if err := s.getJSON(ctx, pagesURL, "", &pages); err != nil {
		return fmt.Errorf("error listing facebook pages: %w", err)
	}
	if len(pages.Data) == 0 {
		return errors.New("no facebook pages available for this account")
	}
	page := pages.Data[0]

	encrypted, err := utils.Encrypt([]byte(page.AccessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	_, err = s.accounts.Upsert(ctx, &models.ConnectedAccount{
		UserID:      userID,
		Platform:    platform.Facebook,
		AccountID:   page.ID,
		AccountName: page.Name,
		AccessToken: encrypted,
	})
	return err
}

func (s *platformService) connectYoutube(ctx context.Context, userID int64, code string) error {
	token, err := s.googleOAuth().Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("google token exchange failed: %w", err)
	}

	channelsURL := youtubeDataAPI + "/channels?part=snippet&mine=true"
	var channels transfer.YoutubeChannelsResponse
	if err := s.getJSON(ctx, channelsURL, token.AccessToken, &channels); err != nil {
		return fmt.Errorf("error fetching youtube channel: %w", err)
	}
	if len(channels.Items) == 0 {
		return errors.New("no youtube channel for this account")
	}
	channel := channels.Items[0]

	encryptedAccess, err := utils.Encrypt([]byte(token.AccessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	var encryptedRefresh string
	if token.RefreshToken != "" {
		encryptedRefresh, err = utils.Encrypt([]byte(token.RefreshToken), []byte(s.cfg.SecretKey))
		if err != nil {
			return err
		}
	}

	_, err = s.accounts.Upsert(ctx, &models.ConnectedAccount{
		UserID:         userID,
		Platform:       platform.Youtube,
		AccountID:      channel.ID,
		AccountName:    channel.Snippet.Title,
		AccessToken:    encryptedAccess,
		RefreshToken:   encryptedRefresh,
		TokenExpiresAt: token.Expiry,
	})
	return err
}

func (s *platformService) getJSON(ctx context.Context, endpoint, bearer string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func (s *platformService) List(ctx context.Context, userID int64) ([]*models.ConnectedAccount, error) {
	if userID == 0 {
		err := errors.New("user id is not valid")
		slog.Info(err.Error())
		return nil, err
	}

	accounts, err := s.accounts.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting connected accounts: %w", err)
	}
	return accounts, nil
}

func (s *platformService) Delete(ctx context.Context, userID, accountID int64) error {
	if userID == 0 || accountID == 0 {
		err := errors.New("invalid account or user id")
		slog.Info(err.Error())
		return err
	}

	isOwner, err := s.accounts.CheckByUserID(ctx, accountID, userID)
	if err != nil {
		return err
	}
	if !isOwner {
		err = errors.New("connected account doesn't exist")
		slog.Info(err.Error())
		return err
	}

	if err := s.accounts.Remove(ctx, accountID); err != nil {
		return fmt.Errorf("error removing connected account: %w", err)
	}
	return nil
}
