package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClientGetNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]any{"found": false})
	}))
	defer srv.Close()

	c := New(srv.URL, 0)
	_, err := c.Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestClientGetFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/get", r.URL.Path)
		require.Equal(t, "k", r.URL.Query().Get("key"))
		json.NewEncoder(w).Encode(map[string]any{"found": true, "value": "v"})
	}))
	defer srv.Close()

	c := New(srv.URL, 0)
	v, err := c.Get(context.Background(), "k")
	require.NoError(t, err)
	require.Equal(t, "v", v)
}

func TestClientSetSendsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/set", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "k", body["key"])
		require.Equal(t, "v", body["value"])
		require.NotContains(t, body, "debug_flaky")
		json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	c := New(srv.URL, 0)
	require.NoError(t, c.Set(context.Background(), "k", "v", 0))
}

func TestClientAPIErrorOnNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]any{"error": "not primary"})
	}))
	defer srv.Close()

	c := New(srv.URL, 0)
	err := c.Set(context.Background(), "k", "v", 0)
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusServiceUnavailable, apiErr.Status)
	require.Equal(t, "not primary", apiErr.Message)
}

func TestClientBulkSet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/bulk_set", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		items, ok := body["items"].([]any)
		require.True(t, ok)
		require.Len(t, items, 2)
		json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	c := New(srv.URL, 0)
	err := c.BulkSet(context.Background(), []BulkSetItem{
		{Key: "a", Value: "1"},
		{Key: "b", Value: "2"},
	}, 0)
	require.NoError(t, err)
}

func TestClientSearchAndSearchSimilar(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search":
			json.NewEncoder(w).Encode(map[string]any{"keys": []string{"a", "b"}})
		case "/search_similar":
			require.Equal(t, "3", r.URL.Query().Get("top_k"))
			json.NewEncoder(w).Encode(map[string]any{
				"results": []map[string]any{{"key": "a", "score": 0.9}},
			})
		}
	}))
	defer srv.Close()

	c := New(srv.URL, 0)
	keys, err := c.Search(context.Background(), "q")
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, keys)

	scored, err := c.SearchSimilar(context.Background(), "q", 3)
	require.NoError(t, err)
	require.Equal(t, []Scored{{Key: "a", Score: 0.9}}, scored)
}

func TestClientStatusAndPromote(t *testing.T) {
	promoted := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/status":
			json.NewEncoder(w).Encode(Status{Role: "primary", Primary: promoted})
		case "/promote_to_primary":
			promoted = true
			json.NewEncoder(w).Encode(map[string]any{"ok": true})
		}
	}))
	defer srv.Close()

	c := New(srv.URL, 0)
	st, err := c.Status(context.Background())
	require.NoError(t, err)
	require.False(t, st.Primary)

	require.NoError(t, c.Promote(context.Background()))

	st, err = c.Status(context.Background())
	require.NoError(t, err)
	require.True(t, st.Primary)
}
