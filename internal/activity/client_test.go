package activity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchReturnsRawActivity(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{name: "string", body: `{"activity":"running"}`, want: `"running"`},
		{name: "object", body: `{"activity":{"type":"swim","minutes":30},"key":"1"}`, want: `{"type":"swim","minutes":30}`},
		{name: "null", body: `{"activity":null}`, want: `null`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newServer(t, http.StatusOK, tc.body)
			got, err := NewClient(srv.URL, 0).Fetch(context.Background())
			require.NoError(t, err)
			assert.JSONEq(t, tc.want, string(got))
		})
	}
}

func TestFetchMalformedResponse(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{name: "missing field", body: `{"type":"running"}`},
		{name: "not json", body: `<html>oops</html>`},
		{name: "not an object", body: `["running"]`},
		{name: "empty", body: ``},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newServer(t, http.StatusOK, tc.body)
			_, err := NewClient(srv.URL, 0).Fetch(context.Background())
			require.Error(t, err)
			assert.True(t, IsMalformedResponse(err))
			assert.False(t, IsNetworkError(err))
		})
	}
}

func TestFetchNonSuccessStatusIsNetworkError(t *testing.T) {
	srv := newServer(t, http.StatusServiceUnavailable, `{"activity":"running"}`)

	_, err := NewClient(srv.URL, 0).Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, IsNetworkError(err))

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, http.StatusServiceUnavailable, fe.Status)
}

func TestFetchConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, 0).Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, IsNetworkError(err))
}

func TestFetchTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	defer close(release)

	_, err := NewClient(srv.URL, 50*time.Millisecond).Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, IsNetworkError(err))
}

func TestNewClientDefaultsEndpoint(t *testing.T) {
	c := NewClient("  ", 0)
	assert.Equal(t, DefaultEndpoint, c.endpoint)
	assert.Zero(t, c.httpClient.Timeout)
}
