package store

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetGetRoundTrip(t *testing.T) {
	e, err := Open(t.TempDir())
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.Set("k1", "v1", 0))
	v, ok := e.Get("k1")
	require.True(t, ok)
	require.Equal(t, "v1", v)

	require.NoError(t, e.Set("k2", float64(42), 0))
	v, ok = e.Get("k2")
	require.True(t, ok)
	require.Equal(t, float64(42), v)

	require.NoError(t, e.Set("k3", map[string]any{"a": float64(1)}, 0))
	v, ok = e.Get("k3")
	require.True(t, ok)
	require.Equal(t, map[string]any{"a": float64(1)}, v)
}

func TestOverwrite(t *testing.T) {
	e, err := Open(t.TempDir())
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.Set("o", "first", 0))
	require.NoError(t, e.Set("o", "second", 0))
	v, ok := e.Get("o")
	require.True(t, ok)
	require.Equal(t, "second", v)
}

func TestSetDeleteGet(t *testing.T) {
	e, err := Open(t.TempDir())
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.Set("k", "v", 0))
	require.NoError(t, e.Delete("k", 0))
	_, ok := e.Get("k")
	require.False(t, ok)
}

func TestDeleteMissingIsNotError(t *testing.T) {
	e, err := Open(t.TempDir())
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.Delete("nope", 0))
}

func TestBulkSetRoundTrip(t *testing.T) {
	e, err := Open(t.TempDir())
	require.NoError(t, err)
	defer e.Close()

	items := []Pair{{Key: "a", Value: "1"}, {Key: "b", Value: "2"}}
	require.NoError(t, e.BulkSet(items, 0))

	for _, it := range items {
		v, ok := e.Get(it.Key)
		require.True(t, ok)
		require.Equal(t, it.Value, v)
	}
}

func TestBulkSetEmptyIsNoop(t *testing.T) {
	e, err := Open(t.TempDir())
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.BulkSet(nil, 0))
}

// TestGracefulRestart covers scenario 3: set, close, reopen, get.
func TestGracefulRestart(t *testing.T) {
	dir := t.TempDir()

	e, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, e.Set("persist", "survives", 0))
	require.NoError(t, e.Close())

	e2, err := Open(dir)
	require.NoError(t, err)
	defer e2.Close()

	v, ok := e2.Get("persist")
	require.True(t, ok)
	require.Equal(t, "survives", v)
}

// TestReplayEquivalence: opening the same WAL twice produces identical maps.
func TestReplayEquivalence(t *testing.T) {
	dir := t.TempDir()

	e, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, e.Set("a", "1", 0))
	require.NoError(t, e.Set("b", "2", 0))
	require.NoError(t, e.Delete("a", 0))
	require.NoError(t, e.BulkSet([]Pair{{Key: "c", Value: "3"}}, 0))
	require.NoError(t, e.Close())

	e1, err := Open(dir)
	require.NoError(t, err)
	defer e1.Close()

	e2, err := Open(dir)
	require.NoError(t, err)
	defer e2.Close()

	require.Equal(t, e1.Snapshot(), e2.Snapshot())
}

// TestBulkAtomicityAfterAbandonedHandle simulates a SIGKILL by abandoning
// the engine handle without Close() right after a bulk_set — the WAL file
// descriptor is simply dropped, as a killed process would leave it. On
// reopen either all 30 keys are present or none are (I3).
func TestBulkAtomicityAfterAbandonedHandle(t *testing.T) {
	dir := t.TempDir()

	e, err := Open(dir)
	require.NoError(t, err)

	items := make([]Pair, 30)
	for i := range items {
		k := "atomic_" + strconv.Itoa(i)
		items[i] = Pair{Key: k, Value: "v_" + k}
	}
	require.NoError(t, e.BulkSet(items, 0))
	// No Close(): simulates the process dying right after the fsync'd
	// bulk_set returned success to the caller.

	e2, err := Open(dir)
	require.NoError(t, err)
	defer e2.Close()

	present := 0
	for _, it := range items {
		if _, ok := e2.Get(it.Key); ok {
			present++
		}
	}
	require.Contains(t, []int{0, 30}, present)
}

// TestFlakySetRecovery covers scenario 5: debug_flaky=1.0 may hide the
// write from an immediate Get, but it is durable and survives reopen.
func TestFlakySetRecovery(t *testing.T) {
	dir := t.TempDir()

	e, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, e.Set("flaky_key", "flaky_value", 1.0))
	require.NoError(t, e.Close())

	e2, err := Open(dir)
	require.NoError(t, err)
	defer e2.Close()

	v, ok := e2.Get("flaky_key")
	require.True(t, ok)
	require.Equal(t, "flaky_value", v)
}
