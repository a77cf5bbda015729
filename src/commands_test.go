package main

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"tweet-classifier/src/filter"
	"tweet-classifier/src/ngram"
	"tweet-classifier/src/pipeline"
	"tweet-classifier/src/tweets"
)

const trainingCSV = `id,entity,sentiment,text
1,game,Positive,"Love this game, best patch!"
2,game,Positive,I love the new patch
3,game,Negative,"Hate this patch, servers broken"
4,game,Negative,I hate the servers
5,game,Neutral,Servers restart at noon
6,game,Neutral,Patch notes at noon
`

// withCommandState installs cfg and flag values for one test and restores
// the previous ones afterwards.
func withCommandState(t *testing.T, cfg *Config) {
	t.Helper()
	oldConfig, oldModel, oldData, oldInput, oldAppend := config, modelPath, dataPath, trainInput, trainAppend
	t.Cleanup(func() {
		config, modelPath, dataPath, trainInput, trainAppend = oldConfig, oldModel, oldData, oldInput, oldAppend
	})
	config = cfg
	modelPath, dataPath, trainInput, trainAppend = "", "", "", false
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

// TestTrainValidateClassify tests the file-based commands end to end.
//
// Rationale: train, learn, validate and classify share the same cleaning and
// model file; a mismatch between them only shows up when they run in sequence.
func TestTrainValidateClassify(t *testing.T) {
	dir := t.TempDir()
	cfg := defaultConfig()
	cfg.LogDir = filepath.Join(dir, "logs")
	cfg.MaxOrder = 2
	cfg.Workers = 3
	cfg.TrainingFile = writeFile(t, dir, "train.csv", trainingCSV)
	cfg.ValidationFile = cfg.TrainingFile
	cfg.ModelFile = filepath.Join(dir, "models", "model.txt")
	cfg.StopWordsFile = writeFile(t, dir, "stop.txt", "# stop words\nthe\nat\n")
	cfg.LearnConfig = writeFile(t, dir, "learn.json", `{"count": {"min_count": 0}}`)
	withCommandState(t, &cfg)

	if err := runTrain(trainCmd, nil); err != nil {
		t.Fatalf("train failed: %v", err)
	}
	m, err := ngram.LoadFile(cfg.ModelFile)
	if err != nil {
		t.Fatalf("Model not saved: %v", err)
	}
	if got := m.Labels(); !reflect.DeepEqual(got, []string{"Negative", "Neutral", "Positive"}) {
		t.Errorf("Unexpected labels %v", got)
	}
	if _, ok := m.Orders[0]["Neutral"].Probabilities["the"]; ok {
		t.Errorf("Stop word 'the' should not be in the model")
	}

	if err := runValidate(validateCmd, nil); err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if err := runLearn(learnCmd, nil); err != nil {
		t.Fatalf("learn failed: %v", err)
	}

	input := writeFile(t, dir, "input.txt", "I love this game\n\nservers broken, hate it\n")
	output := filepath.Join(dir, "labels.txt")
	if err := runClassify(classifyCmd, []string{input, output}); err != nil {
		t.Fatalf("classify failed: %v", err)
	}
	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("Output not written: %v", err)
	}
	want := "Positive\n" + ngram.Inconclusive + "\nNegative\n"
	if string(data) != want {
		t.Errorf("Expected labels %q, got %q", want, string(data))
	}
}

// TestTrainAppend tests that --append merges into the saved model.
func TestTrainAppend(t *testing.T) {
	dir := t.TempDir()
	cfg := defaultConfig()
	cfg.LogDir = filepath.Join(dir, "logs")
	cfg.MaxOrder = 1
	cfg.TrainingFile = writeFile(t, dir, "train.csv", trainingCSV)
	cfg.ModelFile = filepath.Join(dir, "model.txt")
	withCommandState(t, &cfg)

	if err := runTrain(trainCmd, nil); err != nil {
		t.Fatalf("train failed: %v", err)
	}
	trainInput = writeFile(t, dir, "more.csv", "id,entity,sentiment,text\n7,game,Positive,love love love\n")
	trainAppend = true
	if err := runTrain(trainCmd, nil); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	m, err := ngram.LoadFile(cfg.ModelFile)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if got := m.Orders[0]["Positive"].TotalSamples; got != 3 {
		t.Errorf("Expected 3 Positive samples after append, got %d", got)
	}
}

func TestClassifyLines(t *testing.T) {
	m, err := ngram.Train([]tweets.Sample{
		{Label: "Positive", Text: "love"},
		{Label: "Negative", Text: "hate"},
	}, 1)
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	p, err := ngram.NewPredictor(m, 0)
	if err != nil {
		t.Fatalf("NewPredictor failed: %v", err)
	}

	stop := filter.NewWordFilter()
	stop.AddWord("love")
	labels, err := classifyLines(p, filter.Cleaner{Stop: stop}, []string{"HATE!", "love", ""}, 2)
	if err != nil {
		t.Fatalf("classifyLines failed: %v", err)
	}
	want := []string{"Negative", ngram.Inconclusive, ngram.Inconclusive}
	if !reflect.DeepEqual(labels, want) {
		t.Errorf("Expected %v, got %v", want, labels)
	}
}

func TestLabelTokenTotals(t *testing.T) {
	samples := tweets.Samples{
		{Label: "Positive", Text: "love love game"},
		{Label: "Negative", Text: "hate game"},
		{Label: "", Text: "ignored words"},
	}
	totals, err := labelTokenTotals(samples, 4)
	if err != nil {
		t.Fatalf("labelTokenTotals failed: %v", err)
	}
	if totals["Positive"]["love"] != 2 || totals["Negative"]["game"] != 1 {
		t.Errorf("Unexpected totals %v", totals)
	}
	if _, ok := totals[""]; ok {
		t.Errorf("Empty label should be skipped")
	}
	if got := sortedKeys(totals); !reflect.DeepEqual(got, []string{"Negative", "Positive"}) {
		t.Errorf("Unexpected key order %v", got)
	}
}

func TestPercent(t *testing.T) {
	testCases := []struct {
		in   float64
		want float64
	}{
		{in: 0, want: 0},
		{in: 1, want: 100},
		{in: 0.71234, want: 71.24},
		{in: 0.5, want: 50},
	}
	for _, tc := range testCases {
		if got := percent(tc.in); got != tc.want {
			t.Errorf("percent(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestPick(t *testing.T) {
	if got, _ := pick("flag", "cfg", "x"); got != "flag" {
		t.Errorf("Expected flag to win, got %q", got)
	}
	if got, _ := pick("", "cfg", "x"); got != "cfg" {
		t.Errorf("Expected config fallback, got %q", got)
	}
	if _, err := pick("", "", "model_file"); err == nil || !strings.Contains(err.Error(), "model_file") {
		t.Errorf("Expected error naming model_file, got %v", err)
	}
}

// TestTokenDriftFromSnapshot tests comparing corpus counts with a saved
// snapshot.
//
// Rationale: stats --load reads the gob file stats --save wrote, so the
// snapshot must round-trip and tokens absent from it must show zero.
func TestTokenDriftFromSnapshot(t *testing.T) {
	old := pipeline.NewTokenCounter()
	old.Add([]string{"game", "game", "patch"})
	snapshot := filepath.Join(t.TempDir(), "counts.gob")
	if err := old.SaveToFile(snapshot); err != nil {
		t.Fatalf("SaveToFile failed: %v", err)
	}

	previous := pipeline.NewTokenCounter()
	if err := previous.LoadFromFile(snapshot); err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	current := pipeline.NewTokenCounter()
	current.Add([]string{"game", "game", "game", "servers", "servers", "patch"})

	want := "game(3/2) servers(2/0)"
	if got := tokenDrift(current, previous, 2); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestNewCleanerInlineWords(t *testing.T) {
	dir := t.TempDir()
	cfg := defaultConfig()
	cfg.StopWordsFile = writeFile(t, dir, "stop.txt", "the\n")
	cfg.StopWords = []string{"At"}

	cleaner, err := newCleaner(&cfg)
	if err != nil {
		t.Fatalf("newCleaner failed: %v", err)
	}
	if got := cleaner.Clean("The servers restart AT noon"); got != "servers restart noon" {
		t.Errorf("Unexpected cleaned text: %q", got)
	}

	cfg.Whitelist = []string{"noon"}
	cleaner, err = newCleaner(&cfg)
	if err != nil {
		t.Fatalf("newCleaner failed: %v", err)
	}
	if got := cleaner.Clean("The servers restart at noon"); got != "noon" {
		t.Errorf("Whitelist not applied: %q", got)
	}
}
