package tweets

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleCSV = `id,entity,sentiment,text
1,Borderlands,Positive,"im getting on borderlands and i will murder you all"
2,Borderlands,Negative,"this game is broken"
3,Borderlands
4,Borderlands,Neutral,"patch notes are out, ""finally"""
`

func TestReadSamples(t *testing.T) {
	samples, err := ReadSamples(strings.NewReader(sampleCSV), DefaultCSVOptions())
	if err != nil {
		t.Fatalf("ReadSamples failed: %v", err)
	}
	if len(samples) != 3 {
		t.Fatalf("Expected 3 samples (header and short row skipped), got %d", len(samples))
	}
	if samples[0].Label != "Positive" {
		t.Errorf("Expected first label Positive, got %q", samples[0].Label)
	}
	if samples[1].Text != "this game is broken" {
		t.Errorf("Unexpected text: %q", samples[1].Text)
	}
	if samples[2].Text != `patch notes are out, "finally"` {
		t.Errorf("Quoted text not unescaped: %q", samples[2].Text)
	}
}

func TestReadSamplesCustomColumns(t *testing.T) {
	data := "Positive,good game\nNegative,bad game\n"
	samples, err := ReadSamples(strings.NewReader(data), CSVOptions{LabelColumn: 0, TextColumn: 1})
	if err != nil {
		t.Fatalf("ReadSamples failed: %v", err)
	}
	if len(samples) != 2 || samples[1].Label != "Negative" {
		t.Errorf("Unexpected samples: %+v", samples)
	}
}

func TestLoadSamplesGzip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "training.csv.gz")

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}
	gz := gzip.NewWriter(f)
	if _, err := gz.Write([]byte(sampleCSV)); err != nil {
		t.Fatalf("Failed to write gzip: %v", err)
	}
	gz.Close()
	f.Close()

	samples, err := LoadSamples(path, DefaultCSVOptions())
	if err != nil {
		t.Fatalf("LoadSamples failed: %v", err)
	}
	if len(samples) != 3 {
		t.Errorf("Expected 3 samples, got %d", len(samples))
	}
}

func TestLoadSamplesMissingFile(t *testing.T) {
	if _, err := LoadSamples(filepath.Join(t.TempDir(), "nope.csv"), DefaultCSVOptions()); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestLoadLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.txt")
	if err := os.WriteFile(path, []byte("good game\n\nbad game\n"), 0644); err != nil {
		t.Fatalf("Failed to write input: %v", err)
	}
	lines, err := LoadLines(path)
	if err != nil {
		t.Fatalf("LoadLines failed: %v", err)
	}
	if len(lines) != 3 || lines[1] != "" {
		t.Errorf("Unexpected lines: %q", lines)
	}
}

func TestSamplesCloneAndLabels(t *testing.T) {
	s := Samples{{Label: "a", Text: "x"}, {Label: "b", Text: "y"}, {Label: "a", Text: "z"}}
	c := s.Clone()
	c[0].Label = "changed"
	if s[0].Label != "a" {
		t.Error("Clone shares backing array with original")
	}
	labels := s.Labels()
	if labels["a"] != 2 || labels["b"] != 1 {
		t.Errorf("Unexpected label counts: %v", labels)
	}
}
