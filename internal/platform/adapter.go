// Package platform holds one publishing adapter per social network. Adapters
// share a single capability contract so the orchestrator can stay free of
// per-platform branching; new networks are added by registering another
// Publisher, not by editing callers.
package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	Facebook  = "facebook"
	Instagram = "instagram"
	Youtube   = "youtube"
	Tiktok    = "tiktok"
)

var (
	ErrNotImplemented     = errors.New("publishing not implemented for this platform")
	ErrMediaRequired      = errors.New("platform requires media for publication")
	ErrRefreshUnsupported = errors.New("token refresh not supported; re-authorization required")
)

// Credentials is the decrypted, publish-ready token material for one
// connected account.
type Credentials struct {
	AccountID   string
	AccessToken string
}

type PublishRequest struct {
	Content     string
	MediaURLs   []string
	PostKind    string
	ScheduledAt time.Time
}

type PublishResult struct {
	ExternalID string
}

type Publisher interface {
	Name() string
	Publish(ctx context.Context, creds Credentials, req *PublishRequest) (*PublishResult, error)
}

type RefreshedToken struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// TokenRefresher is implemented by adapters whose platform offers a refresh
// exchange. The others require the user to re-authorize out of band.
type TokenRefresher interface {
	RefreshToken(ctx context.Context, refreshToken string) (*RefreshedToken, error)
}

type Registry struct {
	publishers map[string]Publisher
}

func NewRegistry(publishers ...Publisher) *Registry {
	r := &Registry{publishers: make(map[string]Publisher)}
	for _, p := range publishers {
		r.Register(p)
	}
	return r
}

func (r *Registry) Register(p Publisher) {
	r.publishers[p.Name()] = p
}

func (r *Registry) Lookup(name string) (Publisher, bool) {
	p, ok := r.publishers[name]
	return p, ok
}

// postForm sends an urlencoded POST and decodes the JSON response. A status
// of 400 or above is a failure and the raw body is embedded in the error so
// the publication log keeps enough detail to diagnose the rejection.
func postForm(ctx context.Context, client *http.Client, endpoint string, data url.Values, out any) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return doJSON(client, req, out)
}

func doJSON(client *http.Client, req *http.Request, out any) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return body, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return body, fmt.Errorf("error parsing response %q: %w", string(body), err)
		}
	}
	return body, nil
}
