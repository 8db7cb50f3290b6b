package platform

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// InstagramPublisher runs the two-step Graph flow: create a media container
// from an image URL and caption, then publish the container by id. A failed
// container creation short-circuits; the publish step is never attempted.
type InstagramPublisher struct {
	BaseURL string
	Client  *http.Client
}

func NewInstagramPublisher() *InstagramPublisher {
	return &InstagramPublisher{
		BaseURL: metaGraphURL,
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *InstagramPublisher) Name() string {
	return Instagram
}

func (p *InstagramPublisher) Publish(ctx context.Context, creds Credentials, req *PublishRequest) (*PublishResult, error) {
	if len(req.MediaURLs) == 0 {
		return nil, fmt.Errorf("instagram: %w", ErrMediaRequired)
	}

	containerID, err := p.createContainer(ctx, creds, req.MediaURLs[0], req.Content)
	if err != nil {
		return nil, err
	}

	return p.publishContainer(ctx, creds, containerID)
}

func (p *InstagramPublisher) createContainer(ctx context.Context, creds Credentials, imageURL, caption string) (string, error) {
	endpoint := fmt.Sprintf("%s/%s/media", p.BaseURL, creds.AccountID)

	data := url.Values{}
	data.Set("image_url", imageURL)
	data.Set("caption", caption)
	data.Set("access_token", creds.AccessToken)

	var result struct {
		ID string `json:"id"`
	}
	body, err := postForm(ctx, p.Client, endpoint, data, &result)
	if err != nil {
		return "", fmt.Errorf("instagram container creation failed: %w", err)
	}
	if result.ID == "" {
		return "", fmt.Errorf("instagram returned no container id: %s", string(body))
	}

	return result.ID, nil
}

func (p *InstagramPublisher) publishContainer(ctx context.Context, creds Credentials, containerID string) (*PublishResult, error) {
	endpoint := fmt.Sprintf("%s/%s/media_publish", p.BaseURL, creds.AccountID)

	data := url.Values{}
	data.Set("creation_id", containerID)
	data.Set("access_token", creds.AccessToken)

	var result struct {
		ID string `json:"id"`
	}
	body, err := postForm(ctx, p.Client, endpoint, data, &result)
	if err != nil {
		return nil, fmt.Errorf("instagram publish failed: %w", err)
	}
	if result.ID == "" {
		return nil, fmt.Errorf("instagram returned no media id: %s", string(body))
	}

	return &PublishResult{ExternalID: result.ID}, nil
}
