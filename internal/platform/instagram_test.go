package platform

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInstagramTestServer(t *testing.T, handler http.HandlerFunc) *InstagramPublisher {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	p := NewInstagramPublisher()
	p.BaseURL = server.URL
	p.Client = server.Client()
	return p
}

func TestInstagramPublishTwoStep(t *testing.T) {
	var paths []string

	p := newInstagramTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		require.NoError(t, r.ParseForm())

		switch r.URL.Path {
		case "/ig-1/media":
			assert.Equal(t, "https://cdn.example.com/a.jpg", r.PostFormValue("image_url"))
			assert.Equal(t, "caption text", r.PostFormValue("caption"))
			w.Write([]byte(`{"id":"container_5"}`))
		case "/ig-1/media_publish":
			assert.Equal(t, "container_5", r.PostFormValue("creation_id"))
			w.Write([]byte(`{"id":"media_77"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	result, err := p.Publish(context.Background(), Credentials{AccountID: "ig-1", AccessToken: "tok"}, &PublishRequest{
		Content:   "caption text",
		MediaURLs: []string{"https://cdn.example.com/a.jpg"},
	})
	require.NoError(t, err)

	assert.Equal(t, "media_77", result.ExternalID)
	assert.Equal(t, []string{"/ig-1/media", "/ig-1/media_publish"}, paths)
}

func TestInstagramContainerFailureShortCircuits(t *testing.T) {
	calls := 0

	p := newInstagramTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"Invalid image URL"}}`))
	})

	_, err := p.Publish(context.Background(), Credentials{AccountID: "ig-1", AccessToken: "tok"}, &PublishRequest{
		Content:   "caption",
		MediaURLs: []string{"https://cdn.example.com/broken.jpg"},
	})
	require.Error(t, err)

	// The publish step must never run after a failed container creation.
	assert.Equal(t, 1, calls)
	assert.Contains(t, err.Error(), "container creation failed")
	assert.Contains(t, err.Error(), "Invalid image URL")
}

func TestInstagramRequiresMedia(t *testing.T) {
	p := NewInstagramPublisher()

	_, err := p.Publish(context.Background(), Credentials{AccountID: "ig-1", AccessToken: "tok"}, &PublishRequest{
		Content: "text only",
	})
	assert.ErrorIs(t, err, ErrMediaRequired)
}
