package platform

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFacebookTestServer(t *testing.T, handler http.HandlerFunc) (*FacebookPublisher, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	p := NewFacebookPublisher()
	p.BaseURL = server.URL
	p.Client = server.Client()
	return p, server
}

func TestFacebookPublish(t *testing.T) {
	var gotPath string
	var gotForm map[string]string

	p, _ := newFacebookTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{
			"message":      r.PostFormValue("message"),
			"access_token": r.PostFormValue("access_token"),
			"picture":      r.PostFormValue("picture"),
		}
		w.Write([]byte(`{"id":"page_post_99"}`))
	})

	result, err := p.Publish(context.Background(), Credentials{AccountID: "page-1", AccessToken: "tok"}, &PublishRequest{
		Content:   "hello world",
		MediaURLs: []string{"https://cdn.example.com/a.jpg"},
	})
	require.NoError(t, err)

	assert.Equal(t, "page_post_99", result.ExternalID)
	assert.Equal(t, "/page-1/feed", gotPath)
	assert.Equal(t, map[string]string{
		"message":      "hello world",
		"access_token": "tok",
		"picture":      "https://cdn.example.com/a.jpg",
	}, gotForm)
}

func TestFacebookPublishTextOnly(t *testing.T) {
	p, _ := newFacebookTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Empty(t, r.PostFormValue("picture"))
		w.Write([]byte(`{"id":"page_post_1"}`))
	})

	_, err := p.Publish(context.Background(), Credentials{AccountID: "page-1", AccessToken: "tok"}, &PublishRequest{
		Content: "no media",
	})
	require.NoError(t, err)
}

func TestFacebookPublishErrorEmbedsBody(t *testing.T) {
	p, _ := newFacebookTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"Invalid OAuth access token"}}`))
	})

	_, err := p.Publish(context.Background(), Credentials{AccountID: "page-1", AccessToken: "bad"}, &PublishRequest{Content: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid OAuth access token")
}

func TestFacebookPublishMissingID(t *testing.T) {
	p, _ := newFacebookTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true}`))
	})

	_, err := p.Publish(context.Background(), Credentials{AccountID: "page-1", AccessToken: "tok"}, &PublishRequest{Content: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no post id")
}
