package filter

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"
)

// WordFilter holds a set of words used as a stop list or a whitelist.
type WordFilter struct {
	words map[string]bool
	mu    sync.RWMutex
}

// NewWordFilter creates a new empty WordFilter
func NewWordFilter() *WordFilter {
	return &WordFilter{
		words: make(map[string]bool),
	}
}

// LoadWordFilter is a convenience wrapper returning an empty filter for an
// empty path, so optional stop/whitelist files need no special casing.
func LoadWordFilter(path string) (*WordFilter, error) {
	wf := NewWordFilter()
	if path == "" {
		return wf, nil
	}
	if err := wf.LoadFromFile(path); err != nil {
		return nil, err
	}
	return wf, nil
}

// LoadFromFile loads words from a file.
// Each line holds one word, lines starting with # are comments. Words are
// stripped the same way tweet text is, so "don't" in the list matches the
// tokens "don" and "t" after cleaning.
func (wf *WordFilter) LoadFromFile(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open filter file %s: %w", filename, err)
	}
	defer file.Close()

	wf.mu.Lock()
	defer wf.mu.Unlock()

	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		for _, word := range strings.Fields(StripSpecialCharacters(line)) {
			wf.words[word] = true
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading filter file %s at line %d: %w", filename, lineNum, err)
	}

	return nil
}

// Contains reports whether token is in the set.
func (wf *WordFilter) Contains(token string) bool {
	wf.mu.RLock()
	defer wf.mu.RUnlock()
	return wf.words[strings.ToLower(token)]
}

// Len returns the number of words in the filter
func (wf *WordFilter) Len() int {
	wf.mu.RLock()
	defer wf.mu.RUnlock()
	return len(wf.words)
}

// AddWord adds a single word to the filter.
func (wf *WordFilter) AddWord(word string) {
	wf.mu.Lock()
	defer wf.mu.Unlock()
	wf.words[strings.ToLower(word)] = true
}

// Clone returns an independent copy of the filter.
func (wf *WordFilter) Clone() *WordFilter {
	if wf == nil {
		return NewWordFilter()
	}
	wf.mu.RLock()
	defer wf.mu.RUnlock()
	words := make(map[string]bool, len(wf.words))
	for w := range wf.words {
		words[w] = true
	}
	return &WordFilter{words: words}
}
