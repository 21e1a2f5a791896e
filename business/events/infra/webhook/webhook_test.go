package webhook

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

	"github.com/fd1az/flashloan-arb/business/events/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
)

func TestPoster_PostsJSON(t *testing.T) {
	var (
		gotBody        map[string]any
		gotContentType string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		gotContentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	p, err := New(server.URL, time.Second)
	require.NoError(t, err)

	e := domain.NewEvent(domain.EventExecution, map[string]bool{"success": true}, time.Unix(0, 0).UTC())
	require.NoError(t, p.Send(context.Background(), e))

	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, e.ID, gotBody["id"])
	assert.Equal(t, "execution", gotBody["type"])
}

func TestPoster_Non2xxFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer server.Close()

	p, err := New(server.URL, time.Second)
	require.NoError(t, err)

	err = p.Send(context.Background(), domain.NewEvent(domain.EventOpportunity, nil, time.Now()))
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeSubscriberSendFailed))
}

func TestPoster_TransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	p, err := New(url, time.Second)
	require.NoError(t, err)

	assert.Error(t, p.Send(context.Background(), domain.NewEvent(domain.EventOpportunity, nil, time.Now())))
}
