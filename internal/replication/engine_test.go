package replication

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"durablekv/internal/store"
)

func newTestEngine(t *testing.T, role Role, peers []string) *Engine {
	t.Helper()
	s, err := store.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return New(s, role, peers, nil, nil)
}

func TestSecondaryRejectsWrites(t *testing.T) {
	e := newTestEngine(t, RoleSecondary, nil)

	require.ErrorIs(t, e.Set("k", "v", 0), ErrNotPrimary)
	require.ErrorIs(t, e.Delete("k", 0), ErrNotPrimary)
	require.ErrorIs(t, e.BulkSet([]store.Pair{{Key: "k", Value: "v"}}, 0), ErrNotPrimary)
}

func TestSecondaryAcceptsReplicatedWrites(t *testing.T) {
	e := newTestEngine(t, RoleSecondary, nil)

	require.NoError(t, e.ApplyReplicateSet("k", "v"))
	v, ok := e.Get("k")
	require.True(t, ok)
	require.Equal(t, "v", v)

	require.NoError(t, e.ApplyReplicateDelete("k"))
	_, ok = e.Get("k")
	require.False(t, ok)

	require.NoError(t, e.ApplyReplicateBulkSet([]store.Pair{{Key: "a", Value: "1"}}))
	v, ok = e.Get("a")
	require.True(t, ok)
	require.Equal(t, "1", v)
}

func TestPromoteAndDemoteAreIdempotent(t *testing.T) {
	e := newTestEngine(t, RoleSecondary, nil)
	require.Equal(t, RoleSecondary, e.Role())

	e.PromoteToPrimary()
	e.PromoteToPrimary()
	require.Equal(t, RolePrimary, e.Role())

	e.DemoteToSecondary([]string{"http://peer"})
	e.DemoteToSecondary([]string{"http://peer"})
	require.Equal(t, RoleSecondary, e.Role())
	require.Equal(t, []string{"http://peer"}, e.Peers())
}

func TestPrimaryFansOutSetToPeers(t *testing.T) {
	var received int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/replicate/set", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "k", body["key"])
		atomic.AddInt32(&received, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	e := newTestEngine(t, RolePrimary, []string{srv.URL})
	require.NoError(t, e.Set("k", "v", 0))
	require.Equal(t, int32(1), atomic.LoadInt32(&received))
}

func TestFanoutToDeadPeerDoesNotFailTheWrite(t *testing.T) {
	e := newTestEngine(t, RolePrimary, []string{"http://127.0.0.1:1"})
	require.NoError(t, e.Set("k", "v", 0))
	v, ok := e.Get("k")
	require.True(t, ok)
	require.Equal(t, "v", v)
}

func TestFanoutMetricsCounted(t *testing.T) {
	var ok, fail int32
	metrics := &Metrics{
		FanoutOK:   func(string) { atomic.AddInt32(&ok, 1) },
		FanoutFail: func(string) { atomic.AddInt32(&fail, 1) },
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s, err := store.Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	e := New(s, RolePrimary, []string{srv.URL, "http://127.0.0.1:1"}, nil, metrics)
	require.NoError(t, e.Set("k", "v", 0))
	require.Equal(t, int32(1), atomic.LoadInt32(&ok))
	require.Equal(t, int32(1), atomic.LoadInt32(&fail))
}
