package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/youtube/v3"
)

const (
	youtubeUploadURL   = "https://www.googleapis.com/upload/youtube/v3"
	defaultVideoTitle  = "Untitled video"
	youtubeCategoryID  = "22" // People & Blogs
	videoUploadTimeout = 5 * time.Minute
)

// YoutubePublisher uploads a video in a single multipart/related request: a
// JSON metadata part followed by the binary video part. It is also the one
// adapter with a refresh exchange, via the Google OAuth endpoint.
type YoutubePublisher struct {
	BaseURL string
	Client  *http.Client
	oauth   oauth2.Config
}

func NewYoutubePublisher(clientID, clientSecret string) *YoutubePublisher {
	return &YoutubePublisher{
		BaseURL: youtubeUploadURL,
		Client:  &http.Client{Timeout: videoUploadTimeout},
		oauth: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Scopes:       []string{"https://www.googleapis.com/auth/youtube.upload"},
			Endpoint:     google.Endpoint,
		},
	}
}

func (p *YoutubePublisher) Name() string {
	return Youtube
}

// SplitContent derives video metadata from post content: the first line is
// the title (with a default when empty), the remainder the description.
func SplitContent(content string) (title, description string) {
	title, description, _ = strings.Cut(content, "\n")
	title = strings.TrimSpace(title)
	if title == "" {
		title = defaultVideoTitle
	}
	return title, description
}

func (p *YoutubePublisher) Publish(ctx context.Context, creds Credentials, req *PublishRequest) (*PublishResult, error) {
	if len(req.MediaURLs) == 0 {
		return nil, fmt.Errorf("youtube: %w", ErrMediaRequired)
	}

	title, description := SplitContent(req.Content)

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       title,
			Description: description,
			CategoryId:  youtubeCategoryID,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus: "private",
		},
	}
	if !req.ScheduledAt.IsZero() {
		video.Status.PublishAt = req.ScheduledAt.UTC().Format(time.RFC3339)
	}

	metadata, err := json.Marshal(video)
	if err != nil {
		return nil, fmt.Errorf("error marshalling video metadata: %w", err)
	}

	body, contentType, err := p.buildUploadBody(ctx, metadata, req.MediaURLs[0])
	if err != nil {
		return nil, err
	}

	endpoint := p.BaseURL + "/videos?part=snippet,status&uploadType=multipart"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	httpReq.Header.Set("Content-Type", contentType)

	var result struct {
		ID string `json:"id"`
	}
	respBody, err := doJSON(p.Client, httpReq, &result)
	if err != nil {
		return nil, fmt.Errorf("youtube upload failed: %w", err)
	}
	if result.ID == "" {
		return nil, fmt.Errorf("youtube returned no video id: %s", string(respBody))
	}

	return &PublishResult{ExternalID: result.ID}, nil
}

// buildUploadBody assembles the multipart/related payload: JSON metadata
// first, then the video bytes pulled from blob storage, joined with the
// writer's generated boundary.
func (p *YoutubePublisher) buildUploadBody(ctx context.Context, metadata []byte, videoURL string) (*bytes.Buffer, string, error) {
	videoReq, err := http.NewRequestWithContext(ctx, http.MethodGet, videoURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("error creating media request: %w", err)
	}

	videoResp, err := p.Client.Do(videoReq)
	if err != nil {
		return nil, "", fmt.Errorf("error downloading video: %w", err)
	}
	defer videoResp.Body.Close()

	if videoResp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("unexpected status %d downloading video", videoResp.StatusCode)
	}

	mimeType := videoResp.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "video/mp4"
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	metaPart, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"application/json; charset=UTF-8"},
	})
	if err != nil {
		return nil, "", fmt.Errorf("error creating metadata part: %w", err)
	}
	if _, err := metaPart.Write(metadata); err != nil {
		return nil, "", fmt.Errorf("error writing metadata part: %w", err)
	}

	mediaPart, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {mimeType},
		"Content-Transfer-Encoding": {"binary"},
	})
	if err != nil {
		return nil, "", fmt.Errorf("error creating media part: %w", err)
	}
	if _, err := io.Copy(mediaPart, videoResp.Body); err != nil {
		return nil, "", fmt.Errorf("error copying video content: %w", err)
	}

	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("error finalizing upload body: %w", err)
	}

	return &buf, "multipart/related; boundary=" + mw.Boundary(), nil
}

func (p *YoutubePublisher) RefreshToken(ctx context.Context, refreshToken string) (*RefreshedToken, error) {
	source := p.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})

	token, err := source.Token()
	if err != nil {
		return nil, fmt.Errorf("youtube token refresh failed: %w", err)
	}

	return &RefreshedToken{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
	}, nil
}
