// Package index provides optional, volatile search layers over a KV
// engine's values: an inverted-index full-text search and a TF-IDF
// cosine-similarity search. Both are rebuilt entirely in memory — there
// is no persisted index file, no compaction, nothing durable about either
// of them. If the process restarts, they rebuild from a fresh
// store.KV.Snapshot() the moment the index engine is constructed.
package index

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

func tokenize(value any) []string {
	text := strings.ToLower(fmt.Sprint(value))
	return tokenPattern.FindAllString(text, -1)
}

// FullText is an inverted index: token -> set of keys whose value
// contains that token. Search is AND-semantics across query tokens.
type FullText struct {
	mu          sync.RWMutex
	tokenToKeys map[string]map[string]struct{}
	keyToTokens map[string]map[string]struct{}
}

// NewFullText returns an empty full-text index.
func NewFullText() *FullText {
	return &FullText{
		tokenToKeys: make(map[string]map[string]struct{}),
		keyToTokens: make(map[string]map[string]struct{}),
	}
}

// IndexValue (re)indexes key under value's tokens, replacing whatever it
// was previously indexed under.
func (f *FullText) IndexValue(key string, value any) {
	tokens := tokenize(value)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.removeLocked(key)

	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		set[tok] = struct{}{}
		bucket, ok := f.tokenToKeys[tok]
		if !ok {
			bucket = make(map[string]struct{})
			f.tokenToKeys[tok] = bucket
		}
		bucket[key] = struct{}{}
	}
	f.keyToTokens[key] = set
}

// RemoveKey drops key from the index entirely.
func (f *FullText) RemoveKey(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removeLocked(key)
}

func (f *FullText) removeLocked(key string) {
	old, ok := f.keyToTokens[key]
	if !ok {
		return
	}
	for tok := range old {
		bucket := f.tokenToKeys[tok]
		delete(bucket, key)
		if len(bucket) == 0 {
			delete(f.tokenToKeys, tok)
		}
	}
	delete(f.keyToTokens, key)
}

// Search returns keys whose value contains every token in query
// (lowercased, alphanumeric tokens), in no particular order. An empty or
// all-punctuation query matches nothing.
func (f *FullText) Search(query string) []string {
	tokens := tokenize(query)
	if len(tokens) == 0 {
		return nil
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	var result map[string]struct{}
	for _, tok := range tokens {
		bucket, ok := f.tokenToKeys[tok]
		if !ok {
			return nil
		}
		if result == nil {
			result = make(map[string]struct{}, len(bucket))
			for k := range bucket {
				result[k] = struct{}{}
			}
			continue
		}
		for k := range result {
			if _, ok := bucket[k]; !ok {
				delete(result, k)
			}
		}
	}

	keys := make([]string, 0, len(result))
	for k := range result {
		keys = append(keys, k)
	}
	return keys
}
