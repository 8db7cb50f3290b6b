package platform

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryLookup(t *testing.T) {
	registry := NewRegistry(
		NewFacebookPublisher(),
		NewInstagramPublisher(),
		NewTiktokPublisher(),
	)

	for _, name := range []string{Facebook, Instagram, Tiktok} {
		p, ok := registry.Lookup(name)
		require.True(t, ok, name)
		assert.Equal(t, name, p.Name())
	}

	_, ok := registry.Lookup("myspace")
	assert.False(t, ok)
}

func TestTiktokNotImplemented(t *testing.T) {
	p := NewTiktokPublisher()

	_, err := p.Publish(context.Background(), Credentials{AccessToken: "tok"}, &PublishRequest{Content: "x"})
	assert.ErrorIs(t, err, ErrNotImplemented)
}
