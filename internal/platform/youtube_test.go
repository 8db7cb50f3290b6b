package platform

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/youtube/v3"
)

func TestSplitContent(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		title       string
		description string
	}{
		{
			name:        "title and description",
			content:     "My Title\nLine two\nLine three",
			title:       "My Title",
			description: "Line two\nLine three",
		},
		{
			name:    "single line",
			content: "Just a title",
			title:   "Just a title",
		},
		{
			name:        "empty first line gets default",
			content:     "\nsome description",
			title:       "Untitled video",
			description: "some description",
		},
		{
			name:  "empty content gets default",
			title: "Untitled video",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, description := SplitContent(tt.content)
			assert.Equal(t, tt.title, title)
			assert.Equal(t, tt.description, description)
		})
	}
}

func TestYoutubePublishMultipartUpload(t *testing.T) {
	videoBytes := []byte("fake-video-bytes")
	scheduledAt := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	var gotAuth string
	var gotVideo youtube.Video
	var gotMedia []byte

	mux := http.NewServeMux()
	mux.HandleFunc("/media/clip.mp4", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		w.Write(videoBytes)
	})
	mux.HandleFunc("/videos", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")

		mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		require.NoError(t, err)
		require.Equal(t, "multipart/related", mediaType)
		require.NotEmpty(t, params["boundary"])

		mr := multipart.NewReader(r.Body, params["boundary"])

		metaPart, err := mr.NextPart()
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(metaPart.Header.Get("Content-Type"), "application/json"))
		require.NoError(t, json.NewDecoder(metaPart).Decode(&gotVideo))

		mediaPart, err := mr.NextPart()
		require.NoError(t, err)
		assert.Equal(t, "video/mp4", mediaPart.Header.Get("Content-Type"))
		gotMedia, err = io.ReadAll(mediaPart)
		require.NoError(t, err)

		w.Write([]byte(`{"id":"video_abc"}`))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	p := NewYoutubePublisher("client-id", "client-secret")
	p.BaseURL = server.URL
	p.Client = server.Client()

	result, err := p.Publish(context.Background(), Credentials{AccountID: "chan-1", AccessToken: "yt-token"}, &PublishRequest{
		Content:     "My Title\nA longer description",
		MediaURLs:   []string{server.URL + "/media/clip.mp4"},
		ScheduledAt: scheduledAt,
	})
	require.NoError(t, err)

	assert.Equal(t, "video_abc", result.ExternalID)
	assert.Equal(t, "Bearer yt-token", gotAuth)
	assert.Equal(t, videoBytes, gotMedia)

	require.NotNil(t, gotVideo.Snippet)
	assert.Equal(t, "My Title", gotVideo.Snippet.Title)
	assert.Equal(t, "A longer description", gotVideo.Snippet.Description)

	require.NotNil(t, gotVideo.Status)
	assert.Equal(t, "private", gotVideo.Status.PrivacyStatus)
	assert.Equal(t, scheduledAt.Format(time.RFC3339), gotVideo.Status.PublishAt)
}

func TestYoutubePublishRequiresMedia(t *testing.T) {
	p := NewYoutubePublisher("client-id", "client-secret")

	_, err := p.Publish(context.Background(), Credentials{AccessToken: "tok"}, &PublishRequest{Content: "title"})
	assert.ErrorIs(t, err, ErrMediaRequired)
}

func TestYoutubePublishErrorEmbedsBody(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/media/clip.mp4", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("bytes"))
	})
	mux.HandleFunc("/videos", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"message":"quotaExceeded"}}`))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	p := NewYoutubePublisher("client-id", "client-secret")
	p.BaseURL = server.URL
	p.Client = server.Client()

	_, err := p.Publish(context.Background(), Credentials{AccessToken: "tok"}, &PublishRequest{
		Content:   "title",
		MediaURLs: []string{server.URL + "/media/clip.mp4"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quotaExceeded")
}
