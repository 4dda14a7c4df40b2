package router

import (
	"testing"

	"exstream/pkg/exception"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yanun0323/errors"
)

func TestHubKeepsOneClientPerURL(t *testing.T) {
	h := NewHub()
	builds := 0
	build := func(url string) *Client {
		builds++
		return NewClient(url, &fakeTransport{})
	}

	a := h.Client("wss://a", build)
	assert.Same(t, a, h.Client("wss://a", build))
	b := h.Client("wss://b", build)
	assert.NotSame(t, a, b)
	assert.Equal(t, 2, builds)

	got, ok := h.Lookup("wss://b")
	require.True(t, ok)
	assert.Same(t, b, got)
}

func TestHubRemoveTearsDown(t *testing.T) {
	h := NewHub()
	c := h.Client("wss://a", func(url string) *Client { return NewClient(url, &fakeTransport{}) })
	p, err := c.Subscribe(t.Context(), Request{Topic: TopicTrades, Hashes: []string{"h"}})
	require.NoError(t, err)

	h.Remove("wss://a", exception.ErrConnectionClosed)
	_, err = p.Wait(t.Context())
	assert.True(t, errors.Is(err, exception.ErrConnectionClosed))
	_, ok := h.Lookup("wss://a")
	assert.False(t, ok)
}
