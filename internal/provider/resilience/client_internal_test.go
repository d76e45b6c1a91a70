package resilience

import (
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

type trackedBody struct {
	io.Reader
	closed bool
}

func (b *trackedBody) Close() error {
	b.closed = true
	return nil
}

func TestDo_ClosesSupersededResponseBodies(t *testing.T) {
	var bodies []*trackedBody

	client := NewClient(ClientConfig{
		Name:            "test",
		MaxRetries:      2,
		InitialInterval: time.Millisecond,
	})
	client.httpClient.Transport = roundTripFunc(func(*http.Request) (*http.Response, error) {
		b := &trackedBody{Reader: strings.NewReader("bad gateway")}
		bodies = append(bodies, b)
		return &http.Response{StatusCode: http.StatusBadGateway, Body: b}, nil
	})

	req, err := http.NewRequest(http.MethodGet, "http://upstream.test/feed", http.NoBody)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()

	require.Len(t, bodies, 3)
	assert.True(t, bodies[0].closed, "superseded retry bodies must be closed")
	assert.True(t, bodies[1].closed, "superseded retry bodies must be closed")
	assert.False(t, bodies[2].closed, "the returned response stays open for the caller")
}
