package index

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"gonum.org/v1/gonum/mat"
)

// Scored is one similarity search hit.
type Scored struct {
	Key   string
	Score float64
}

// Similarity is a TF-IDF cosine-similarity index over a key/value set. It
// rebuilds its whole document-term matrix on every IndexValue/RemoveKey
// call rather than updating incrementally — values change rarely enough
// relative to reads that this keeps the math simple, and it mirrors the
// eager-refit behavior this index design is based on.
type Similarity struct {
	mu        sync.RWMutex
	values    map[string]any
	keysOrder []string
	vocab     map[string]int
	idf       []float64
	docs      *mat.Dense // rows = keysOrder, cols = vocab, L2-normalized
}

// NewSimilarity returns an empty similarity index.
func NewSimilarity() *Similarity {
	return &Similarity{values: make(map[string]any)}
}

// IndexValue sets key's value and rebuilds the TF-IDF matrix.
func (s *Similarity) IndexValue(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	s.rebuildLocked()
}

// RemoveKey drops key and rebuilds the TF-IDF matrix.
func (s *Similarity) RemoveKey(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	s.rebuildLocked()
}

func (s *Similarity) rebuildLocked() {
	s.keysOrder = make([]string, 0, len(s.values))
	for k := range s.values {
		s.keysOrder = append(s.keysOrder, k)
	}
	sort.Strings(s.keysOrder) // deterministic row order

	if len(s.keysOrder) == 0 {
		s.vocab, s.idf, s.docs = nil, nil, nil
		return
	}

	docsTokens := make([][]string, len(s.keysOrder))
	vocab := make(map[string]int)
	for i, k := range s.keysOrder {
		toks := tokenize(s.values[k])
		docsTokens[i] = toks
		for _, t := range toks {
			if _, ok := vocab[t]; !ok {
				vocab[t] = len(vocab)
			}
		}
	}
	if len(vocab) == 0 {
		s.vocab, s.idf, s.docs = nil, nil, nil
		return
	}

	n, d := len(s.keysOrder), len(vocab)
	tf := mat.NewDense(n, d, nil)
	df := make([]float64, d)
	for i, toks := range docsTokens {
		counts := make(map[int]float64)
		for _, t := range toks {
			counts[vocab[t]]++
		}
		seen := make(map[int]bool, len(counts))
		for col, c := range counts {
			tf.Set(i, col, c)
			if !seen[col] {
				df[col]++
				seen[col] = true
			}
		}
	}

	idf := make([]float64, d)
	for j, dfj := range df {
		idf[j] = math.Log(float64(n+1)/(dfj+1)) + 1
	}

	docs := mat.NewDense(n, d, nil)
	for i := 0; i < n; i++ {
		row := make([]float64, d)
		var norm float64
		for j := 0; j < d; j++ {
			v := tf.At(i, j) * idf[j]
			row[j] = v
			norm += v * v
		}
		norm = math.Sqrt(norm) + 1e-9
		for j := 0; j < d; j++ {
			docs.Set(i, j, row[j]/norm)
		}
	}

	s.vocab, s.idf, s.docs = vocab, idf, docs
}

// Search returns up to topK keys most similar to query by cosine
// similarity, descending, excluding non-positive scores. Any internal
// failure (empty index, query with no known vocabulary overlap) yields an
// empty result rather than an error.
func (s *Similarity) Search(query string, topK int) []Scored {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.docs == nil || len(s.vocab) == 0 {
		return nil
	}

	qvec, err := s.vectorizeLocked(query)
	if err != nil {
		return nil
	}

	n, _ := s.docs.Dims()
	scores := make([]Scored, 0, n)
	for i := 0; i < n; i++ {
		row := s.docs.RawRowView(i)
		score := dot(row, qvec)
		if score > 0 {
			scores = append(scores, Scored{Key: s.keysOrder[i], Score: score})
		}
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })
	if topK > 0 && len(scores) > topK {
		scores = scores[:topK]
	}
	return scores
}

func (s *Similarity) vectorizeLocked(query string) ([]float64, error) {
	toks := tokenize(query)
	if len(toks) == 0 {
		return nil, fmt.Errorf("index: empty query")
	}
	counts := make(map[int]float64)
	for _, t := range toks {
		if col, ok := s.vocab[t]; ok {
			counts[col]++
		}
	}
	if len(counts) == 0 {
		return nil, fmt.Errorf("index: query shares no vocabulary with indexed values")
	}

	vec := make([]float64, len(s.vocab))
	var norm float64
	for col, c := range counts {
		v := c * s.idf[col]
		vec[col] = v
		norm += v * v
	}
	norm = math.Sqrt(norm) + 1e-9
	for i := range vec {
		vec[i] /= norm
	}
	return vec, nil
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
