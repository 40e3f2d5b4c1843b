package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSearchMockFallbackWhenNoKey(t *testing.T) {
	client := NewSearchClient("", zap.NewNop())

	resp := client.Search(context.Background(), "quantum computing", 3, true)

	require.True(t, resp.Success)
	assert.Equal(t, "mock", resp.Source)
	require.Len(t, resp.Results, 3)
	assert.Equal(t, "Mock Result 1: quantum computing", resp.Results[0].Title)
	assert.Equal(t, "Mock Result 3: quantum computing", resp.Results[2].Title)
	assert.Equal(t, 3, resp.TotalResults)
}

func TestSearchMockResultsCapped(t *testing.T) {
	client := NewSearchClient("", zap.NewNop())

	resp := client.Search(context.Background(), "ai news", 100, true)

	require.True(t, resp.Success)
	assert.Len(t, resp.Results, 5)
}

func TestSearchNoKeyNoFallback(t *testing.T) {
	client := NewSearchClient("", zap.NewNop())

	resp := client.Search(context.Background(), "ai news", 3, false)

	assert.False(t, resp.Success)
	assert.Equal(t, "brave", resp.Source)
	assert.Empty(t, resp.Results)
	assert.Contains(t, resp.Error, "not configured")
}

func TestSearchBraveSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("X-Subscription-Token"))
		assert.Equal(t, "go releases", r.URL.Query().Get("q"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"web":{"results":[
			{"title":"Go 1.24 Released","url":"https://go.dev/blog","description":"Release notes"},
			{"title":"Go Weekly","url":"https://golangweekly.com","description":"Newsletter"}
		]}}`))
	}))
	defer srv.Close()

	client := NewSearchClient("test-key", zap.NewNop())
	client.baseURL = srv.URL

	resp := client.Search(context.Background(), "go releases", 2, false)

	require.True(t, resp.Success)
	assert.Equal(t, "brave", resp.Source)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "Go 1.24 Released", resp.Results[0].Title)
	assert.Equal(t, 2, resp.TotalResults)
}

func TestSearchBraveErrorFallsBackToMock(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewSearchClient("test-key", zap.NewNop())
	client.baseURL = srv.URL

	resp := client.Search(context.Background(), "ai news", 2, true)

	require.True(t, resp.Success)
	assert.Equal(t, "mock", resp.Source)
	assert.Len(t, resp.Results, 2)
}

func TestSearchBraveErrorNoFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewSearchClient("test-key", zap.NewNop())
	client.baseURL = srv.URL

	resp := client.Search(context.Background(), "ai news", 2, false)

	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "429")
}
