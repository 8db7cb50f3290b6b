package platform

import (
	"context"
	"fmt"
)

// TiktokPublisher is registered so the platform shows up as a valid target,
// but the content posting API integration is still pending.
// TODO: implement the direct-post flow (creator_info query + content init).
type TiktokPublisher struct{}

func NewTiktokPublisher() *TiktokPublisher {
	return &TiktokPublisher{}
}

func (p *TiktokPublisher) Name() string {
	return Tiktok
}

func (p *TiktokPublisher) Publish(ctx context.Context, creds Credentials, req *PublishRequest) (*PublishResult, error) {
	return nil, fmt.Errorf("tiktok: %w", ErrNotImplemented)
}
