package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// createTempConfigFile writes content to a config file under t.TempDir.
func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write temp config: %v", err)
	}
	return path
}

// TestLoadConfigValid tests loading a complete configuration file.
//
// Rationale: This is the happy path test that ensures every key reaches its
// struct field.
func TestLoadConfigValid(t *testing.T) {
	path := createTempConfigFile(t, `
log_dir: ../logs
max_order: 4
training_file: data/train.csv
validation_file: data/validation.csv
model_file: models/ngram.txt
learn_config: learn.json
stop_words_file: stop.txt
whitelist_file: allow.txt
label_column: 1
text_column: 5
has_header: false
workers: 8
mq_host: rabbit
mq_port: 5673
mq_user: classifier
mq_password: secret
mq_queue: tweets
mq_output_queue: labels
batch: 32
cache_size: 100
metrics_addr: ":9100"
`)

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("Expected no error loading valid config, got: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Expected valid config, got: %v", err)
	}

	if cfg.LogDir != "../logs" {
		t.Errorf("Expected LogDir '../logs', got '%s'", cfg.LogDir)
	}
	if cfg.MaxOrder != 4 {
		t.Errorf("Expected MaxOrder 4, got %d", cfg.MaxOrder)
	}
	if cfg.ModelFile != "models/ngram.txt" {
		t.Errorf("Expected ModelFile 'models/ngram.txt', got '%s'", cfg.ModelFile)
	}
	opts := cfg.CSVOptions()
	if opts.LabelColumn != 1 || opts.TextColumn != 5 || opts.HasHeader {
		t.Errorf("Unexpected CSV options: %+v", opts)
	}
	mq := cfg.RabbitMQConfig()
	if mq.Host != "rabbit" || mq.Port != 5673 || mq.Username != "classifier" || mq.Queue != "tweets" || mq.OutputQueue != "labels" || mq.Prefetch != 32 {
		t.Errorf("Unexpected RabbitMQ config: %+v", mq)
	}
	if cfg.CacheSize != 100 || cfg.MetricsAddr != ":9100" {
		t.Errorf("Unexpected serve settings: cache=%d metrics=%q", cfg.CacheSize, cfg.MetricsAddr)
	}
}

// TestLoadConfigDefaults tests that omitted keys keep their defaults.
//
// Rationale: a minimal config with only log_dir must be enough to train with
// the standard CSV layout.
func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(createTempConfigFile(t, "log_dir: logs\n"))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Expected defaults to validate, got: %v", err)
	}
	if cfg.MaxOrder != 3 {
		t.Errorf("Expected default MaxOrder 3, got %d", cfg.MaxOrder)
	}
	if cfg.LabelColumn != 2 || cfg.TextColumn != 3 || !cfg.HasHeader {
		t.Errorf("Expected default columns 2/3 with header, got %d/%d header=%v", cfg.LabelColumn, cfg.TextColumn, cfg.HasHeader)
	}
	if cfg.Workers != 16 {
		t.Errorf("Expected 16 workers, got %d", cfg.Workers)
	}
	if cfg.BatchSize != 64 || cfg.CacheSize != 4096 {
		t.Errorf("Expected batch 64 and cache 4096, got %d and %d", cfg.BatchSize, cfg.CacheSize)
	}
}

// TestConfigValidate tests that invalid settings are rejected.
//
// Rationale: log_dir is required and cannot be empty, and a bad order or
// column layout would otherwise surface as a confusing training result.
func TestConfigValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "MissingLogDir", mutate: func(c *Config) { c.LogDir = "" }, wantErr: "log_dir"},
		{name: "ZeroOrder", mutate: func(c *Config) { c.MaxOrder = 0 }, wantErr: "max_order"},
		{name: "HugeOrder", mutate: func(c *Config) { c.MaxOrder = 17 }, wantErr: "max_order"},
		{name: "NegativeColumn", mutate: func(c *Config) { c.TextColumn = -1 }, wantErr: "negative"},
		{name: "SameColumn", mutate: func(c *Config) { c.TextColumn = c.LabelColumn }, wantErr: "both"},
		{name: "NoWorkers", mutate: func(c *Config) { c.Workers = 0 }, wantErr: "workers"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.LogDir = "logs"
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("Expected error containing %q", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

// TestLoadConfigInvalidYAML tests that malformed YAML fails to load.
func TestLoadConfigInvalidYAML(t *testing.T) {
	path := createTempConfigFile(t, "log_dir: [unclosed\nmax_order: three\n")
	if _, err := loadConfig(path); err == nil {
		t.Errorf("Expected error for malformed YAML")
	}
}

// TestLoadConfigMissingFile tests loading a config that does not exist.
func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Errorf("Expected error for missing config file")
	}
}

// TestSetupLogger tests that the logger writes into log_dir.
//
// Rationale: every command logs to <log_dir>/classifier.log; the directory
// must be created on first use.
func TestSetupLogger(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")
	logger, f, err := setupLogger(dir)
	if err != nil {
		t.Fatalf("setupLogger failed: %v", err)
	}
	logger.Info("hello", "key", "value")
	f.Close()

	data, err := os.ReadFile(filepath.Join(dir, "classifier.log"))
	if err != nil {
		t.Fatalf("Log file not written: %v", err)
	}
	if !strings.Contains(string(data), "msg=hello") || !strings.Contains(string(data), "key=value") {
		t.Errorf("Unexpected log content: %s", data)
	}

	if _, _, err := setupLogger(""); err == nil {
		t.Errorf("Expected error for empty log dir")
	}
}
