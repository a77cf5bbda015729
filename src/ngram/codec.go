package ngram

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// The model file is line oriented:
//
//	file    = section *( SEP LF section )
//	section = *( record LF )
//	record  = label "," total "|" *( DQUOTE gram DQUOTE prob )
//	label   = 1*( any byte except "," CR LF )
//	total   = decimal integer >= 0
//	gram    = 1*( any byte except DQUOTE CR LF )
//	prob    = finite float in strconv.ParseFloat syntax
//	SEP     = "<<GRAM>>"
//
// Section i holds the tables of gram order i+1. Blank lines are ignored and a
// separator at the very end of the file closes the last section rather than
// opening an empty one.

// GramSeparator is the line written between the sections of two orders.
const GramSeparator = "<<GRAM>>"

// ErrEmptyFile is returned when a model file has no records.
var ErrEmptyFile = errors.New("model file is empty")

// ParseError locates a malformed model record.
type ParseError struct {
	Line   int
	Column int
	Msg    string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("model line %d, column %d: %s: %v", e.Line, e.Column, e.Msg, e.Err)
	}
	return fmt.Sprintf("model line %d, column %d: %s", e.Line, e.Column, e.Msg)
}

func (e *ParseError) Unwrap() error { return e.Err }

// EncodeError reports a value the flat format cannot represent.
type EncodeError struct {
	Label string
	Gram  string
	Msg   string
}

func (e *EncodeError) Error() string {
	if e.Gram != "" {
		return fmt.Sprintf("cannot encode label %q gram %q: %s", e.Label, e.Gram, e.Msg)
	}
	return fmt.Sprintf("cannot encode label %q: %s", e.Label, e.Msg)
}

func checkLabel(label string) string {
	switch {
	case label == "":
		return "empty label"
	case strings.ContainsAny(label, ",\r\n"):
		return "label contains ',' or a line break"
	}
	return ""
}

func checkGram(gram string) string {
	switch {
	case gram == "":
		return "empty gram"
	case strings.ContainsAny(gram, "\"\r\n"):
		return "gram contains '\"' or a line break"
	}
	return ""
}

func finite(p float64) bool {
	return !math.IsNaN(p) && !math.IsInf(p, 0)
}

// Encode writes m in the flat model format. Labels and grams are written in
// ascending order so equal models produce identical files.
func Encode(w io.Writer, m *Model) error {
	if m.Empty() {
		return ErrEmptyModel
	}

	labels := m.Labels()
	totals := m.labelTotals()
	bw := bufio.NewWriter(w)

	for i, lt := range m.Orders {
		if i > 0 {
			bw.WriteString(GramSeparator)
			bw.WriteByte('\n')
		}
		for _, label := range labels {
			if msg := checkLabel(label); msg != "" {
				return &EncodeError{Label: label, Msg: msg}
			}
			table, ok := lt[label]
			if !ok {
				table = &GramTable{TotalSamples: totals[label]}
			}
			if table.TotalSamples < 0 {
				return &EncodeError{Label: label, Msg: "negative total samples"}
			}

			bw.WriteString(label)
			bw.WriteByte(',')
			bw.WriteString(strconv.Itoa(table.TotalSamples))
			bw.WriteByte('|')

			grams := make([]string, 0, len(table.Probabilities))
			for g := range table.Probabilities {
				grams = append(grams, g)
			}
			sort.Strings(grams)
			for _, g := range grams {
				if msg := checkGram(g); msg != "" {
					return &EncodeError{Label: label, Gram: g, Msg: msg}
				}
				p := table.Probabilities[g]
				if !finite(p) {
					return &EncodeError{Label: label, Gram: g, Msg: "probability is not finite"}
				}
				bw.WriteByte('"')
				bw.WriteString(g)
				bw.WriteByte('"')
				bw.WriteString(strconv.FormatFloat(p, 'g', -1, 64))
			}
			bw.WriteByte('\n')
		}
	}
	return bw.Flush()
}

func (m *Model) labelTotals() map[string]int {
	totals := make(map[string]int)
	for _, lt := range m.Orders {
		for label, table := range lt {
			if table.TotalSamples > totals[label] {
				totals[label] = table.TotalSamples
			}
		}
	}
	return totals
}

// Decode reads a model written by Encode. Any malformed record fails the
// whole load with a *ParseError; there is no partial recovery.
func Decode(r io.Reader) (*Model, error) {
	br := bufio.NewReader(r)
	m := &Model{Orders: []LabelTables{make(LabelTables)}}
	lineNo := 0
	sawContent := false

	for {
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("failed to read model: %w", err)
		}
		if line != "" {
			lineNo++
			line = strings.TrimSuffix(line, "\n")
			line = strings.TrimSuffix(line, "\r")
			switch line {
			case "":
			case GramSeparator:
				m.Orders = append(m.Orders, make(LabelTables))
				sawContent = true
			default:
				label, table, perr := parseRecord(line, lineNo)
				if perr != nil {
					return nil, perr
				}
				m.Orders[len(m.Orders)-1][label] = table
				sawContent = true
			}
		}
		if err == io.EOF {
			break
		}
	}

	if !sawContent {
		return nil, ErrEmptyFile
	}
	if n := len(m.Orders); n > 1 && len(m.Orders[n-1]) == 0 {
		m.Orders = m.Orders[:n-1]
	}
	if m.Empty() {
		return nil, ErrEmptyModel
	}
	m.normalizeLabels()
	return m, nil
}

type recordState int

const (
	stateLabel recordState = iota // reading label, until ','
	stateTotal                    // reading total, until '|'
	stateOpen                     // expecting '"' or end of line
	stateGram                     // inside quotes, until '"'
	stateProb                     // reading probability, until '"' or end of line
)

// parseRecord runs the record state machine over one line.
func parseRecord(line string, lineNo int) (string, *GramTable, error) {
	fail := func(col int, msg string, err error) error {
		return &ParseError{Line: lineNo, Column: col + 1, Msg: msg, Err: err}
	}

	state := stateLabel
	mark := 0
	label := ""
	gram := ""
	table := NewGramTable()

	addProb := func(end int) error {
		s := line[mark:end]
		if s == "" {
			return fail(mark, fmt.Sprintf("missing probability for gram %q", gram), nil)
		}
		p, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fail(mark, "invalid probability", err)
		}
		if !finite(p) {
			return fail(mark, "probability is not finite", nil)
		}
		table.Probabilities[gram] = p
		return nil
	}

	for i := 0; i < len(line); i++ {
		c := line[i]
		if c == '\r' {
			return "", nil, fail(i, "unexpected carriage return", nil)
		}
		switch state {
		case stateLabel:
			if c == ',' {
				label = line[:i]
				if label == "" {
					return "", nil, fail(i, "empty label", nil)
				}
				state = stateTotal
				mark = i + 1
			}
		case stateTotal:
			if c == '|' {
				n, err := strconv.Atoi(line[mark:i])
				if err != nil {
					return "", nil, fail(mark, "invalid total samples", err)
				}
				if n < 0 {
					return "", nil, fail(mark, "negative total samples", nil)
				}
				table.TotalSamples = n
				state = stateOpen
			}
		case stateOpen:
			if c != '"' {
				return "", nil, fail(i, "expected '\"' to open a gram", nil)
			}
			state = stateGram
			mark = i + 1
		case stateGram:
			if c == '"' {
				gram = line[mark:i]
				if gram == "" {
					return "", nil, fail(i, "empty gram", nil)
				}
				state = stateProb
				mark = i + 1
			}
		case stateProb:
			if c == '"' {
				if err := addProb(i); err != nil {
					return "", nil, err
				}
				state = stateGram
				mark = i + 1
			}
		}
	}

	switch state {
	case stateLabel:
		return "", nil, fail(len(line), "missing ',' after label", nil)
	case stateTotal:
		return "", nil, fail(len(line), "missing '|' after total samples", nil)
	case stateGram:
		return "", nil, fail(len(line), "unterminated gram", nil)
	case stateProb:
		if err := addProb(len(line)); err != nil {
			return "", nil, err
		}
	}
	return label, table, nil
}

// SaveFile writes the model to path, replacing it atomically.
func SaveFile(path string, m *Model) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("failed to create file in %s: %w", dir, err)
	}
	defer os.Remove(tmp.Name())

	if err := Encode(tmp, m); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode model to %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// LoadFile reads a model from path.
func LoadFile(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open model %s: %w", path, err)
	}
	defer f.Close()

	m, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load model %s: %w", path, err)
	}
	return m, nil
}
