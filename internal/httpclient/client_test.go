package httpclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPost_JSONBody(t *testing.T) {
	var got map[string]any
	var contentType, token string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		token = r.Header.Get("X-Token")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client, err := NewInstrumentedClient(
		WithProviderName("test"),
		WithHeaders(map[string]string{"X-Token": "secret"}),
	)
	require.NoError(t, err)

	resp, err := client.NewRequest(FailOnNon2xx()).
		SetBody(map[string]any{"type": "opportunity"}).
		Post(context.Background(), server.URL)
	require.NoError(t, err)

	assert.True(t, resp.IsSuccess())
	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, "secret", token)
	assert.Equal(t, "opportunity", got["type"])
}

func TestPost_Non2xxIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer server.Close()

	client, err := NewInstrumentedClient()
	require.NoError(t, err)

	resp, err := client.NewRequest(FailOnNon2xx()).SetBody("x").Post(context.Background(), server.URL)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, err.Error(), "502")
}

func TestGet_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client, err := NewInstrumentedClient(WithRequestTimeout(20 * time.Millisecond))
	require.NoError(t, err)

	_, err = client.NewRequest().Get(context.Background(), server.URL)
	assert.Error(t, err)
}
