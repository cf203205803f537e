package index

import "durablekv/internal/store"

// Engine wraps a store.KV with a full-text index and a similarity index,
// keeping both in sync with every mutation that passes through it —
// including replicated mutations applied via ApplyReplicateSet/Delete/
// BulkSet, not just the client-facing Set/Delete/BulkSet. Errors from the
// underlying store are returned as-is; index maintenance itself never
// fails the call — see fulltext.go / similarity.go.
type Engine struct {
	store.KV
	fullText   *FullText
	similarity *Similarity
}

// New wraps kv and rebuilds both indexes from its current snapshot — the
// cold-start path after a WAL replay.
func New(kv store.KV) *Engine {
	e := &Engine{KV: kv, fullText: NewFullText(), similarity: NewSimilarity()}
	for k, v := range kv.Snapshot() {
		e.fullText.IndexValue(k, v)
		e.similarity.IndexValue(k, v)
	}
	return e
}

func (e *Engine) Set(key string, value any, debugFlaky float64) error {
	if err := e.KV.Set(key, value, debugFlaky); err != nil {
		return err
	}
	e.fullText.IndexValue(key, value)
	e.similarity.IndexValue(key, value)
	return nil
}

func (e *Engine) Delete(key string, debugFlaky float64) error {
	if err := e.KV.Delete(key, debugFlaky); err != nil {
		return err
	}
	e.fullText.RemoveKey(key)
	e.similarity.RemoveKey(key)
	return nil
}

func (e *Engine) BulkSet(items []store.Pair, debugFlaky float64) error {
	if err := e.KV.BulkSet(items, debugFlaky); err != nil {
		return err
	}
	for _, it := range items {
		e.fullText.IndexValue(it.Key, it.Value)
		e.similarity.IndexValue(it.Key, it.Value)
	}
	return nil
}

// SearchFullText returns keys whose value contains every token in query.
func (e *Engine) SearchFullText(query string) []string {
	return e.fullText.Search(query)
}

// SearchSimilar returns up to topK keys ranked by TF-IDF cosine similarity
// to query.
func (e *Engine) SearchSimilar(query string, topK int) []Scored {
	return e.similarity.Search(query, topK)
}

// replicatedKV is implemented by *replication.Engine. Declared locally
// (rather than importing the replication package) so Engine can delegate
// to it when present without coupling this package to replication's types.
type replicatedKV interface {
	ApplyReplicateSet(key string, value any) error
	ApplyReplicateDelete(key string) error
	ApplyReplicateBulkSet(items []store.Pair) error
}

// ApplyReplicateSet applies a replicated SET through the wrapped engine
// and reindexes it. Lets /replicate/* traffic land on the same index this
// engine's own Set keeps in sync, instead of bypassing it — without this,
// a cluster node with both replication and search enabled would have its
// index silently diverge from its own live data on every replicated write.
func (e *Engine) ApplyReplicateSet(key string, value any) error {
	rkv, ok := e.KV.(replicatedKV)
	if !ok {
		return e.Set(key, value, 0)
	}
	if err := rkv.ApplyReplicateSet(key, value); err != nil {
		return err
	}
	e.fullText.IndexValue(key, value)
	e.similarity.IndexValue(key, value)
	return nil
}

// ApplyReplicateDelete applies a replicated DEL through the wrapped engine
// and reindexes it.
func (e *Engine) ApplyReplicateDelete(key string) error {
	rkv, ok := e.KV.(replicatedKV)
	if !ok {
		return e.Delete(key, 0)
	}
	if err := rkv.ApplyReplicateDelete(key); err != nil {
		return err
	}
	e.fullText.RemoveKey(key)
	e.similarity.RemoveKey(key)
	return nil
}

// ApplyReplicateBulkSet applies a replicated BULK_SET through the wrapped
// engine and reindexes it.
func (e *Engine) ApplyReplicateBulkSet(items []store.Pair) error {
	rkv, ok := e.KV.(replicatedKV)
	if !ok {
		return e.BulkSet(items, 0)
	}
	if err := rkv.ApplyReplicateBulkSet(items); err != nil {
		return err
	}
	for _, it := range items {
		e.fullText.IndexValue(it.Key, it.Value)
		e.similarity.IndexValue(it.Key, it.Value)
	}
	return nil
}
