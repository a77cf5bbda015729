package tweets

import (
	"bufio"
	"compress/gzip"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// CSVOptions selects the columns holding the label and the tweet text.
// The defaults match the twitter sentiment dumps: id, entity, sentiment, text.
type CSVOptions struct {
	LabelColumn int
	TextColumn  int
	HasHeader   bool
}

// DefaultCSVOptions returns the column layout of the sentiment CSV files.
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{LabelColumn: 2, TextColumn: 3, HasHeader: true}
}

// openMaybeGzip opens path and transparently decompresses it when the name
// ends in .gz.
func openMaybeGzip(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to open gzip %s: %w", path, err)
	}
	return &gzipFile{Reader: gz, file: f}, nil
}

type gzipFile struct {
	*gzip.Reader
	file *os.File
}

func (g *gzipFile) Close() error {
	g.Reader.Close()
	return g.file.Close()
}

// LoadSamples reads labelled rows from a CSV (or gzipped CSV) file.
func LoadSamples(path string, opts CSVOptions) (Samples, error) {
	rc, err := openMaybeGzip(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	samples, err := ReadSamples(rc, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to read samples from %s: %w", path, err)
	}
	return samples, nil
}

// ReadSamples parses labelled rows from r. Rows too short to hold both
// columns are skipped with a warning rather than failing the load.
func ReadSamples(r io.Reader, opts CSVOptions) (Samples, error) {
	if opts.LabelColumn < 0 || opts.TextColumn < 0 {
		return nil, fmt.Errorf("invalid column indices: label=%d text=%d", opts.LabelColumn, opts.TextColumn)
	}
	need := opts.LabelColumn
	if opts.TextColumn > need {
		need = opts.TextColumn
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var samples Samples
	row := 0
	skipped := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row+1, err)
		}
		row++
		if row == 1 && opts.HasHeader {
			continue
		}
		if len(record) <= need {
			skipped++
			continue
		}
		samples = append(samples, Sample{
			Label: strings.TrimSpace(record[opts.LabelColumn]),
			Text:  record[opts.TextColumn],
		})
	}

	if skipped > 0 {
		slog.Warn("Skipped short CSV rows", "skipped", skipped, "rows", row)
	}
	return samples, nil
}

// LoadLines reads one sentence per line, keeping blank lines so output
// lines stay aligned with input lines.
func LoadLines(path string) ([]string, error) {
	rc, err := openMaybeGzip(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var lines []string
	scanner := bufio.NewScanner(rc)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return lines, nil
}
