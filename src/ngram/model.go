package ngram

import (
	"errors"
	"sort"
)

var (
	// ErrEmptyModel is returned when an operation needs at least one label.
	ErrEmptyModel = errors.New("model has no labels")
	// ErrNoSamples is returned when validation is asked to score nothing.
	ErrNoSamples = errors.New("no samples to validate against")
	// ErrInvalidOrder is returned for a max order below 1.
	ErrInvalidOrder = errors.New("max order must be at least 1")
)

// GramTable is one label's probability table for one gram order.
// Probabilities[g] approximates occurrences of g divided by TotalSamples,
// the number of texts the table was trained on.
type GramTable struct {
	TotalSamples  int
	Probabilities map[string]float64
}

// NewGramTable returns an empty table.
func NewGramTable() *GramTable {
	return &GramTable{Probabilities: make(map[string]float64)}
}

// Clone returns a deep copy of the table.
func (t *GramTable) Clone() *GramTable {
	if t == nil {
		return NewGramTable()
	}
	probs := make(map[string]float64, len(t.Probabilities))
	for g, p := range t.Probabilities {
		probs[g] = p
	}
	return &GramTable{TotalSamples: t.TotalSamples, Probabilities: probs}
}

// LabelTables maps each label to its table for a single order.
type LabelTables map[string]*GramTable

// Labels returns the labels in ascending order. Every scan over labels goes
// through this so ties resolve the same way on every run.
func (lt LabelTables) Labels() []string {
	labels := make([]string, 0, len(lt))
	for label := range lt {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// Clone returns a deep copy.
func (lt LabelTables) Clone() LabelTables {
	out := make(LabelTables, len(lt))
	for label, table := range lt {
		out[label] = table.Clone()
	}
	return out
}

// Model holds one LabelTables per gram order. Orders[0] is unigrams.
type Model struct {
	Orders []LabelTables
}

// NewModel returns an empty model with maxOrder orders.
func NewModel(maxOrder int) (*Model, error) {
	if maxOrder < 1 {
		return nil, ErrInvalidOrder
	}
	m := &Model{Orders: make([]LabelTables, maxOrder)}
	for i := range m.Orders {
		m.Orders[i] = make(LabelTables)
	}
	return m, nil
}

// MaxOrder returns the longest gram length the model holds.
func (m *Model) MaxOrder() int {
	return len(m.Orders)
}

// Clone returns a deep copy of the model. It implements workers.Cloner.
func (m *Model) Clone() *Model {
	if m == nil {
		return nil
	}
	out := &Model{Orders: make([]LabelTables, len(m.Orders))}
	for i, lt := range m.Orders {
		out.Orders[i] = lt.Clone()
	}
	return out
}

// Labels returns every label known to the model, sorted.
func (m *Model) Labels() []string {
	seen := make(map[string]bool)
	var labels []string
	for _, lt := range m.Orders {
		for label := range lt {
			if !seen[label] {
				seen[label] = true
				labels = append(labels, label)
			}
		}
	}
	sort.Strings(labels)
	return labels
}

// Empty reports whether the model has no orders or no labels.
func (m *Model) Empty() bool {
	return m == nil || len(m.Orders) == 0 || len(m.Labels()) == 0
}

// Size returns the number of (label, gram) entries per order.
func (m *Model) Size() []int {
	sizes := make([]int, len(m.Orders))
	for i, lt := range m.Orders {
		for _, table := range lt {
			sizes[i] += len(table.Probabilities)
		}
	}
	return sizes
}

// TotalEntries sums Size over every order.
func (m *Model) TotalEntries() int {
	total := 0
	for _, n := range m.Size() {
		total += n
	}
	return total
}

// Words returns the distinct unigrams across all labels, sorted.
func (m *Model) Words() []string {
	if len(m.Orders) == 0 {
		return nil
	}
	seen := make(map[string]bool)
	for _, table := range m.Orders[0] {
		for g := range table.Probabilities {
			seen[g] = true
		}
	}
	words := make([]string, 0, len(seen))
	for w := range seen {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}

// normalizeLabels makes every label present in every order. A label missing
// from an order gets an empty table carrying the sample count seen for that
// label elsewhere, since all orders are trained from the same texts.
func (m *Model) normalizeLabels() {
	totals := make(map[string]int)
	for _, lt := range m.Orders {
		for label, table := range lt {
			if table.TotalSamples > totals[label] {
				totals[label] = table.TotalSamples
			}
		}
	}
	for _, lt := range m.Orders {
		for label, total := range totals {
			if _, ok := lt[label]; !ok {
				lt[label] = &GramTable{TotalSamples: total, Probabilities: make(map[string]float64)}
			}
		}
	}
}
