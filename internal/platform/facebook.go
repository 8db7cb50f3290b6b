package platform

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const metaGraphURL = "https://graph.facebook.com/v21.0"

// FacebookPublisher posts to a page feed with a single Graph API call:
// message plus an optional picture URL.
type FacebookPublisher struct {
	BaseURL string
	Client  *http.Client
}

func NewFacebookPublisher() *FacebookPublisher {
	return &FacebookPublisher{
		BaseURL: metaGraphURL,
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *FacebookPublisher) Name() string {
	return Facebook
}

func (p *FacebookPublisher) Publish(ctx context.Context, creds Credentials, req *PublishRequest) (*PublishResult, error) {
	endpoint := fmt.Sprintf("%s/%s/feed", p.BaseURL, creds.AccountID)

	data := url.Values{}
	data.Set("message", req.Content)
	data.Set("access_token", creds.AccessToken)
	if len(req.MediaURLs) > 0 {
		data.Set("picture", req.MediaURLs[0])
	}

	var result struct {
		ID string `json:"id"`
	}
	body, err := postForm(ctx, p.Client, endpoint, data, &result)
	if err != nil {
		return nil, fmt.Errorf("facebook publish failed: %w", err)
	}
	if result.ID == "" {
		return nil, fmt.Errorf("facebook returned no post id: %s", string(body))
	}

	return &PublishResult{ExternalID: result.ID}, nil
}
