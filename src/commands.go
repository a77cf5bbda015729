package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tweet-classifier/src/filter"
	"tweet-classifier/src/learn"
	"tweet-classifier/src/metrics"
	"tweet-classifier/src/ngram"
	"tweet-classifier/src/pipeline"
	"tweet-classifier/src/tweets"
)

var (
	trainInput  string
	trainAppend bool
	modelPath   string
	dataPath    string
	statsTop    int
	statsSave   string
	statsLoad   string
	serveFlush  time.Duration

	trainCmd = &cobra.Command{
		Use:   "train",
		Short: "Train n-gram tables from a labelled CSV and save the model",
		RunE:  runTrain,
	}
	learnCmd = &cobra.Command{
		Use:   "learn",
		Short: "Prune and tune a saved model against the validation set",
		RunE:  runLearn,
	}
	validateCmd = &cobra.Command{
		Use:   "validate",
		Short: "Report the accuracy of a saved model on a labelled CSV",
		RunE:  runValidate,
	}
	classifyCmd = &cobra.Command{
		Use:   "classify <input> <output>",
		Short: "Write one predicted label per input line",
		Args:  cobra.ExactArgs(2),
		RunE:  runClassify,
	}
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Classify tweets from RabbitMQ and publish the predictions",
		RunE:  runServe,
	}
	statsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Show label distribution, top tokens per label and model size",
		RunE:  runStats,
	}
)

func init() {
	trainCmd.Flags().StringVar(&trainInput, "input", "", "Training CSV (overrides training_file)")
	trainCmd.Flags().BoolVar(&trainAppend, "append", false, "Merge into the existing model instead of starting fresh")
	for _, c := range []*cobra.Command{trainCmd, learnCmd, validateCmd, classifyCmd, serveCmd, statsCmd} {
		c.Flags().StringVar(&modelPath, "model", "", "Model file (overrides model_file)")
	}
	for _, c := range []*cobra.Command{learnCmd, validateCmd, statsCmd} {
		c.Flags().StringVar(&dataPath, "data", "", "Labelled CSV (overrides validation_file, or training_file for stats)")
	}
	statsCmd.Flags().IntVar(&statsTop, "top", 10, "Tokens to show per label")
	statsCmd.Flags().StringVar(&statsSave, "save", "", "Write a gob snapshot of corpus token counts to this file")
	statsCmd.Flags().StringVar(&statsLoad, "load", "", "Compare corpus token counts with a snapshot written by --save")
	serveCmd.Flags().DurationVar(&serveFlush, "flush", 500*time.Millisecond, "Flush a partial batch after this long")

	rootCmd.AddCommand(trainCmd, learnCmd, validateCmd, classifyCmd, serveCmd, statsCmd)
}

func pick(flag, fallback, name string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if fallback == "" {
		return "", fmt.Errorf("no %s given: set it in the config or pass a flag", name)
	}
	return fallback, nil
}

// newCleaner loads the optional stop list and whitelist.
func newCleaner(cfg *Config) (filter.Cleaner, error) {
	stop, err := filter.LoadWordFilter(cfg.StopWordsFile)
	if err != nil {
		return filter.Cleaner{}, fmt.Errorf("failed to load stop words: %w", err)
	}
	allow, err := filter.LoadWordFilter(cfg.WhitelistFile)
	if err != nil {
		return filter.Cleaner{}, fmt.Errorf("failed to load whitelist: %w", err)
	}
	for _, w := range cfg.StopWords {
		stop.AddWord(w)
	}
	for _, w := range cfg.Whitelist {
		allow.AddWord(w)
	}
	slog.Info("Word filters loaded", "stop_words", stop.Len(), "whitelist", allow.Len())
	return filter.Cleaner{Stop: stop, Allow: allow}, nil
}

// loadSamples reads and cleans a labelled CSV.
func loadSamples(cfg *Config, path string, cleaner filter.Cleaner) (tweets.Samples, error) {
	raw, err := tweets.LoadSamples(path, cfg.CSVOptions())
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%s holds no samples", path)
	}
	samples, err := filter.CleanSamples(raw, cleaner, cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("failed to clean %s: %w", path, err)
	}
	slog.Info("Samples loaded", "path", path, "samples", len(samples))
	return samples, nil
}

// validateWithProgress scores m and prints running accuracy.
func validateWithProgress(cfg *Config, m *ngram.Model, samples tweets.Samples) (float64, error) {
	fmt.Println("[Validate] Testing accuracy...")
	acc, err := ngram.Evaluate(m, samples, cfg.Workers, func(p ngram.Progress) {
		fmt.Printf("[Validate] %.2f%% correct, %.0f%% complete, %d processed records\n",
			percent(p.Accuracy()), p.Complete()*100, p.Done)
	})
	if err != nil {
		return 0, err
	}
	fmt.Printf("[Validate] Accuracy: %.2f%%\n", percent(acc))
	return acc, nil
}

// tune runs the optimizer when a learn config is set.
func tune(cfg *Config, m *ngram.Model, cleaner filter.Cleaner) (*ngram.Model, error) {
	lcfg, err := learn.LoadConfig(cfg.LearnConfig)
	if err != nil {
		return nil, err
	}
	if !lcfg.Selection.Any() {
		fmt.Println("[Learn] No strategy selected, model left unchanged")
		return m, nil
	}
	validationFile, err := pick(dataPath, cfg.ValidationFile, "validation_file")
	if err != nil {
		return nil, err
	}
	samples, err := loadSamples(cfg, validationFile, cleaner)
	if err != nil {
		return nil, err
	}

	fmt.Printf("[Learn] Running learning procedure on %d inputs\n", len(samples))
	tuned, report, err := learn.Learn(m, samples, lcfg)
	if err != nil {
		return nil, err
	}
	fmt.Printf("[Learn] Baseline accuracy: %.2f%%\n", percent(report.Baseline))
	for _, s := range report.Stages {
		fmt.Printf("[Learn] %-11s accuracy %.2f%%, %d entries, %s\n",
			s.Strategy, percent(s.Accuracy), s.Entries, s.Duration.Round(time.Millisecond))
	}
	return tuned, nil
}

func runTrain(cmd *cobra.Command, args []string) error {
	cfg := config
	input, err := pick(trainInput, cfg.TrainingFile, "training_file")
	if err != nil {
		return err
	}
	out, err := pick(modelPath, cfg.ModelFile, "model_file")
	if err != nil {
		return err
	}
	cleaner, err := newCleaner(cfg)
	if err != nil {
		return err
	}
	samples, err := loadSamples(cfg, input, cleaner)
	if err != nil {
		return err
	}

	var m *ngram.Model
	if trainAppend {
		if m, err = ngram.LoadFile(out); err != nil {
			return err
		}
		if m.MaxOrder() != cfg.MaxOrder {
			return fmt.Errorf("model %s has max order %d, config asks for %d", out, m.MaxOrder(), cfg.MaxOrder)
		}
		m.Train(samples)
	} else if m, err = ngram.Train(samples, cfg.MaxOrder); err != nil {
		return err
	}
	if m.Empty() {
		return fmt.Errorf("%s: %w", input, ngram.ErrEmptyModel)
	}
	fmt.Printf("[Train] %d samples, %d labels, grams per order %v\n", len(samples), len(m.Labels()), m.Size())

	if cfg.LearnConfig != "" {
		if m, err = tune(cfg, m, cleaner); err != nil {
			return err
		}
	}

	if err := ngram.SaveFile(out, m); err != nil {
		return err
	}
	fmt.Printf("[Train] Model saved to %s\n", out)
	return nil
}

func runLearn(cmd *cobra.Command, args []string) error {
	cfg := config
	if cfg.LearnConfig == "" {
		return errors.New("learn_config must be set to run the optimizer")
	}
	path, err := pick(modelPath, cfg.ModelFile, "model_file")
	if err != nil {
		return err
	}
	m, err := ngram.LoadFile(path)
	if err != nil {
		return err
	}
	cleaner, err := newCleaner(cfg)
	if err != nil {
		return err
	}
	tuned, err := tune(cfg, m, cleaner)
	if err != nil {
		return err
	}
	if err := ngram.SaveFile(path, tuned); err != nil {
		return err
	}
	fmt.Printf("[Learn] Model saved to %s\n", path)
	return nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg := config
	path, err := pick(modelPath, cfg.ModelFile, "model_file")
	if err != nil {
		return err
	}
	data, err := pick(dataPath, cfg.ValidationFile, "validation_file")
	if err != nil {
		return err
	}
	m, err := ngram.LoadFile(path)
	if err != nil {
		return err
	}
	cleaner, err := newCleaner(cfg)
	if err != nil {
		return err
	}
	samples, err := loadSamples(cfg, data, cleaner)
	if err != nil {
		return err
	}
	_, err = validateWithProgress(cfg, m, samples)
	return err
}

func runClassify(cmd *cobra.Command, args []string) error {
	cfg := config
	path, err := pick(modelPath, cfg.ModelFile, "model_file")
	if err != nil {
		return err
	}
	m, err := ngram.LoadFile(path)
	if err != nil {
		return err
	}
	predictor, err := ngram.NewPredictor(m, cfg.CacheSize)
	if err != nil {
		return err
	}
	cleaner, err := newCleaner(cfg)
	if err != nil {
		return err
	}

	lines, err := tweets.LoadLines(args[0])
	if err != nil {
		return err
	}
	labels, err := classifyLines(predictor, cleaner, lines, cfg.Workers)
	if err != nil {
		return err
	}
	if err := writeLines(args[1], labels); err != nil {
		return err
	}
	fmt.Printf("[Classify] %d lines labelled, written to %s\n", len(labels), args[1])
	return nil
}

// classifyLines cleans and classifies every line, keeping line order.
func classifyLines(predictor *ngram.Predictor, cleaner filter.Cleaner, lines []string, numWorkers int) ([]string, error) {
	cleaned := make([]string, len(lines))
	for i, line := range lines {
		cleaned[i] = cleaner.Clean(line)
	}
	return predictor.PredictBatch(cleaned, numWorkers)
}

func writeLines(path string, lines []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	w := bufio.NewWriter(f)
	for _, line := range lines {
		w.WriteString(line)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config
	path, err := pick(modelPath, cfg.ModelFile, "model_file")
	if err != nil {
		return err
	}
	m, err := ngram.LoadFile(path)
	if err != nil {
		return err
	}
	predictor, err := ngram.NewPredictor(m, cfg.CacheSize)
	if err != nil {
		return err
	}
	cleaner, err := newCleaner(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: metrics.Handler()}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Metrics listener failed", "error", err)
			}
		}()
		defer srv.Close()
		slog.Info("Metrics listener started", "addr", cfg.MetricsAddr)
	}

	mq, err := NewRabbitMQ(cfg.RabbitMQConfig())
	if err != nil {
		return err
	}
	defer mq.Close()

	msgs, err := mq.Consume()
	if err != nil {
		return err
	}
	waiting, err := mq.QueueDepth()
	if err != nil {
		return err
	}
	slog.Info("Connected to RabbitMQ. Waiting for messages...",
		"queue", cfg.MQQueue,
		"output", cfg.MQOutputQueue,
		"waiting", waiting,
		"labels", len(m.Labels()),
		"vocabulary", predictor.Vocabulary().Len())
	fmt.Printf("[Serve] Consuming %s (%d waiting), publishing to %s\n", cfg.MQQueue, waiting, cfg.MQOutputQueue)

	batcher := NewBatcher(predictor, cleaner, mq, cfg.BatchSize, cfg.Workers)
	batcher.SetBacklog(mq.QueueDepth)
	return batcher.Run(ctx, msgs, serveFlush)
}

// labelTokenTotals counts label -> token occurrences over samples.
func labelTokenTotals(samples tweets.Samples, numWorkers int) (pipeline.StateTotals, error) {
	var pairs []pipeline.Pair
	for _, s := range samples {
		if s.Label == "" {
			continue
		}
		for _, tok := range ngram.Tokenize(s.Text) {
			pairs = append(pairs, pipeline.Pair{From: s.Label, To: tok})
		}
	}
	return pipeline.FeedTotalsMulti(pairs, nil, numWorkers)
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg := config
	data, err := pick(dataPath, cfg.TrainingFile, "training_file")
	if err != nil {
		return err
	}
	cleaner, err := newCleaner(cfg)
	if err != nil {
		return err
	}
	samples, err := loadSamples(cfg, data, cleaner)
	if err != nil {
		return err
	}

	fmt.Printf("\n--- Corpus Stats: %s ---\n", data)
	fmt.Printf("Samples: %d\n", len(samples))
	labelCounts := samples.Labels()
	for _, lc := range pipeline.TopTokens(labelCounts, 0) {
		name := lc.Token
		if name == "" {
			name = "(empty, discarded by training)"
		}
		fmt.Printf("  %-30s %d\n", name, lc.Count)
	}

	counter := pipeline.NewTokenCounter()
	for _, s := range samples {
		counter.Add(ngram.Tokenize(s.Text))
	}
	fmt.Printf("Tokens: %d total, %d distinct\n", counter.Total(), counter.Len())

	if statsLoad != "" {
		previous := pipeline.NewTokenCounter()
		if err := previous.LoadFromFile(statsLoad); err != nil {
			return err
		}
		fmt.Printf("Snapshot %s: %d total, %d distinct\n", statsLoad, previous.Total(), previous.Len())
		fmt.Printf("Top tokens vs snapshot: %s\n", tokenDrift(counter, previous, statsTop))
	}

	totals, err := labelTokenTotals(samples, cfg.Workers)
	if err != nil {
		return err
	}
	for _, label := range sortedKeys(totals) {
		var parts []string
		for _, tc := range pipeline.TopTokens(totals[label], statsTop) {
			parts = append(parts, fmt.Sprintf("%s(%d)", tc.Token, tc.Count))
		}
		fmt.Printf("Top tokens %s: %s\n", label, strings.Join(parts, " "))
	}

	if statsSave != "" {
		if err := counter.SaveToFile(statsSave); err != nil {
			return err
		}
		fmt.Printf("Token counts saved to %s\n", statsSave)
	}

	path := modelPath
	if path == "" {
		path = cfg.ModelFile
	}
	if path != "" {
		if m, err := ngram.LoadFile(path); err == nil {
			fmt.Printf("Model %s: max order %d, %d labels, grams per order %v\n",
				path, m.MaxOrder(), len(m.Labels()), m.Size())
		} else {
			slog.Warn("Model not loaded for stats", "path", path, "error", err)
		}
	}
	fmt.Printf("----------------------\n")
	return nil
}

// tokenDrift lists the n most frequent current tokens as token(now/before).
func tokenDrift(current, previous *pipeline.TokenCounter, n int) string {
	var parts []string
	for _, tc := range current.Top(n) {
		parts = append(parts, fmt.Sprintf("%s(%d/%d)", tc.Token, tc.Count, previous.Count(tc.Token)))
	}
	return strings.Join(parts, " ")
}

func sortedKeys(totals pipeline.StateTotals) []string {
	keys := make([]string, 0, len(totals))
	for k := range totals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
