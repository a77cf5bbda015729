package pipeline

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
)

// TokenCounter counts token occurrences across a corpus. It is safe for
// concurrent use. The stats command fills one per corpus and can compare it
// with a gob snapshot of an earlier run.
type TokenCounter struct {
	counts map[string]int
	total  int64 // sum of all counts, kept alongside the map
	mu     sync.RWMutex
}

// NewTokenCounter creates an empty counter.
func NewTokenCounter() *TokenCounter {
	return &TokenCounter{counts: make(map[string]int)}
}

// Add counts one occurrence of every token. Empty tokens are ignored.
func (tc *TokenCounter) Add(tokens []string) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	for _, token := range tokens {
		if token == "" {
			continue
		}
		tc.counts[token]++
		atomic.AddInt64(&tc.total, 1)
	}
}

// Count returns the occurrences of token.
func (tc *TokenCounter) Count(token string) int {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.counts[token]
}

// Len returns the number of distinct tokens.
func (tc *TokenCounter) Len() int {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return len(tc.counts)
}

// Counts returns a copy of all counts.
func (tc *TokenCounter) Counts() map[string]int {
	tc.mu.RLock()
	defer tc.mu.RUnlock()

	snapshot := make(map[string]int, len(tc.counts))
	for token, count := range tc.counts {
		snapshot[token] = count
	}
	return snapshot
}

// Total returns the sum of all counts in O(1).
func (tc *TokenCounter) Total() int {
	return int(atomic.LoadInt64(&tc.total))
}

// Top returns the n most frequent tokens.
func (tc *TokenCounter) Top(n int) []TokenCount {
	return TopTokens(tc.Counts(), n)
}

// SetCounts replaces the counts wholesale, recomputing the total.
func (tc *TokenCounter) SetCounts(counts map[string]int) {
	var total int64
	for _, count := range counts {
		total += int64(count)
	}

	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.counts = counts
	atomic.StoreInt64(&tc.total, total)
}

// SaveToFile writes a gob snapshot of the counts.
func (tc *TokenCounter) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", filename, err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(tc.Counts()); err != nil {
		return fmt.Errorf("failed to encode counts to %s: %w", filename, err)
	}
	return nil
}

// LoadFromFile replaces the counts with a snapshot written by SaveToFile.
func (tc *TokenCounter) LoadFromFile(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", filename, err)
	}
	defer file.Close()

	var counts map[string]int
	if err := gob.NewDecoder(file).Decode(&counts); err != nil {
		return fmt.Errorf("failed to decode counts from %s: %w", filename, err)
	}
	if counts == nil {
		counts = make(map[string]int)
	}
	tc.SetCounts(counts)
	return nil
}
