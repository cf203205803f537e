// Package replication wraps a store.Engine with primary/secondary roles.
//
// Big idea:
//
// A primary commits a write locally first — WAL fsync, then map apply —
// and only after that succeeds does it fan the same write out to its
// peers. Fanout is best-effort: no retries, no backoff, no queue. A peer
// that's down or slow just misses the write and stays behind; nothing
// re-sends it later, and promotion does not re-sync a node. That's a
// deliberate simplicity trade, not an oversight — see DESIGN.md.
//
// Secondaries reject client writes outright (ErrNotPrimary) but always
// accept ApplyReplicate* calls, regardless of role, since those originate
// from a primary that already decided the write is durable.
package replication

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"durablekv/internal/store"
)

// Role is the engine's current position in a primary/secondary pair.
type Role string

const (
	RolePrimary   Role = "primary"
	RoleSecondary Role = "secondary"
)

const fanoutTimeout = 5 * time.Second

// Engine embeds *store.Engine (composition, not inheritance — same shape
// the teacher's design notes call for) and adds the role gate plus
// best-effort fanout to peers on every mutating call.
type Engine struct {
	*store.Engine

	mu    sync.RWMutex
	role  Role
	peers []string

	httpClient *http.Client
	logger     *zap.Logger
	metrics    *Metrics
}

// Metrics are the Prometheus counters the engine increments on fanout.
// Kept as an interface-shaped struct of funcs so the api package can wire
// real collectors in without this package importing the metrics registry
// directly.
type Metrics struct {
	FanoutOK   func(target string)
	FanoutFail func(target string)
}

// New wraps eng as role with the given initial peer URLs.
func New(eng *store.Engine, role Role, peers []string, logger *zap.Logger, metrics *Metrics) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = &Metrics{FanoutOK: func(string) {}, FanoutFail: func(string) {}}
	}
	return &Engine{
		Engine:     eng,
		role:       role,
		peers:      append([]string(nil), peers...),
		httpClient: &http.Client{Timeout: fanoutTimeout},
		logger:     logger,
		metrics:    metrics,
	}
}

// Role returns the engine's current role.
func (e *Engine) Role() Role {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.role
}

// Set commits locally then fans out to peers. Rejected on a secondary.
func (e *Engine) Set(key string, value any, debugFlaky float64) error {
	if !e.requirePrimary() {
		return ErrNotPrimary
	}
	if err := e.Engine.Set(key, value, debugFlaky); err != nil {
		return err
	}
	e.replicate("/replicate/set", map[string]any{"key": key, "value": value})
	return nil
}

// Delete commits locally then fans out to peers. Rejected on a secondary.
func (e *Engine) Delete(key string, debugFlaky float64) error {
	if !e.requirePrimary() {
		return ErrNotPrimary
	}
	if err := e.Engine.Delete(key, debugFlaky); err != nil {
		return err
	}
	e.replicate("/replicate/delete", map[string]any{"key": key})
	return nil
}

// BulkSet commits locally then fans out to peers. Rejected on a secondary.
func (e *Engine) BulkSet(items []store.Pair, debugFlaky float64) error {
	if !e.requirePrimary() {
		return ErrNotPrimary
	}
	if err := e.Engine.BulkSet(items, debugFlaky); err != nil {
		return err
	}
	pairs := make([][2]any, len(items))
	for i, it := range items {
		pairs[i] = [2]any{it.Key, it.Value}
	}
	e.replicate("/replicate/bulk_set", map[string]any{"items": pairs})
	return nil
}

// ApplyReplicateSet applies a replicated SET. Accepted regardless of role:
// a secondary takes it from its primary, and a primary mid-promotion may
// still receive one in flight.
func (e *Engine) ApplyReplicateSet(key string, value any) error {
	return e.Engine.Set(key, value, 0)
}

// ApplyReplicateDelete applies a replicated DEL.
func (e *Engine) ApplyReplicateDelete(key string) error {
	return e.Engine.Delete(key, 0)
}

// ApplyReplicateBulkSet applies a replicated BULK_SET.
func (e *Engine) ApplyReplicateBulkSet(items []store.Pair) error {
	return e.Engine.BulkSet(items, 0)
}

// PromoteToPrimary flips the role to primary. Idempotent.
func (e *Engine) PromoteToPrimary() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.role = RolePrimary
	e.logger.Info("promoted to primary")
}

// DemoteToSecondary flips the role to secondary and replaces the peer
// list (the new primary's other secondaries, typically). Idempotent.
func (e *Engine) DemoteToSecondary(peers []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.role = RoleSecondary
	e.peers = append([]string(nil), peers...)
	e.logger.Info("demoted to secondary", zap.Strings("peers", peers))
}

// Peers returns a copy of the current peer URL list.
func (e *Engine) Peers() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]string(nil), e.peers...)
}

func (e *Engine) requirePrimary() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.role == RolePrimary
}

// replicate fans body out to every peer concurrently. Each send gets its
// own timeout and its own failure path; one slow or dead peer never
// blocks or fails the others, and none of it blocks the caller's response
// beyond the fanout itself completing (fanout is not fire-and-forget in a
// background goroutine: replicate returns only after every send finished
// or timed out).
func (e *Engine) replicate(path string, body any) {
	peers := e.Peers()
	if len(peers) == 0 {
		return
	}
	payload, err := json.Marshal(body)
	if err != nil {
		e.logger.Error("replication payload encode failed", zap.Error(err))
		return
	}

	var wg sync.WaitGroup
	for _, peer := range peers {
		wg.Add(1)
		go func(peer string) {
			defer wg.Done()
			e.sendOne(peer, path, payload)
		}(peer)
	}
	wg.Wait()
}

func (e *Engine) sendOne(peer, path string, payload []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), fanoutTimeout)
	defer cancel()

	url := fmt.Sprintf("%s%s", peer, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		e.metrics.FanoutFail(peer)
		e.logger.Warn("replication request build failed", zap.String("peer", peer), zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		e.metrics.FanoutFail(peer)
		e.logger.Warn("replication fanout failed", zap.String("peer", peer), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		e.metrics.FanoutFail(peer)
		e.logger.Warn("replication fanout rejected", zap.String("peer", peer), zap.Int("status", resp.StatusCode))
		return
	}
	e.metrics.FanoutOK(peer)
}
