package main

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"tweet-classifier/src/ngram"
	"tweet-classifier/src/tweets"
)

// Config struct for the YAML config file. log_dir is required.
type Config struct {
	LogDir         string `yaml:"log_dir"`
	MaxOrder       int    `yaml:"max_order"`
	TrainingFile   string `yaml:"training_file"`
	ValidationFile string `yaml:"validation_file"`
	ModelFile      string `yaml:"model_file"`
	LearnConfig    string `yaml:"learn_config"`
	StopWordsFile  string   `yaml:"stop_words_file"`
	StopWords      []string `yaml:"stop_words"` // added to the file's words
	WhitelistFile  string   `yaml:"whitelist_file"`
	Whitelist      []string `yaml:"whitelist"`
	LabelColumn    int    `yaml:"label_column"`
	TextColumn     int    `yaml:"text_column"`
	HasHeader      bool   `yaml:"has_header"`
	Workers        int    `yaml:"workers"`

	MQHost        string `yaml:"mq_host"`
	MQPort        int    `yaml:"mq_port"`
	MQUser        string `yaml:"mq_user"`
	MQPassword    string `yaml:"mq_password"`
	MQQueue       string `yaml:"mq_queue"`
	MQOutputQueue string `yaml:"mq_output_queue"`
	BatchSize     int    `yaml:"batch"`
	CacheSize     int    `yaml:"cache_size"`
	MetricsAddr   string `yaml:"metrics_addr"`
}

const maxSupportedOrder = 16

// defaultConfig holds the values used for keys the file leaves out.
func defaultConfig() Config {
	csv := tweets.DefaultCSVOptions()
	return Config{
		MaxOrder:      3,
		LabelColumn:   csv.LabelColumn,
		TextColumn:    csv.TextColumn,
		HasHeader:     csv.HasHeader,
		Workers:       ngram.ValidateWorkers,
		MQHost:        "localhost",
		MQPort:        5672,
		MQUser:        "guest",
		MQPassword:    "guest",
		MQQueue:       "tweet_in",
		MQOutputQueue: "tweet_labels",
		BatchSize:     64,
		CacheSize:     ngram.DefaultCacheSize,
	}
}

// loadConfig loads the YAML config file into a Config struct. Keys missing
// from the file keep their defaults; nothing is validated here.
func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings every command relies on.
func (c *Config) Validate() error {
	if c.LogDir == "" {
		return errors.New("'log_dir' must be defined in the config file and cannot be empty")
	}
	if c.MaxOrder < 1 || c.MaxOrder > maxSupportedOrder {
		return fmt.Errorf("max_order must be between 1 and %d, got %d", maxSupportedOrder, c.MaxOrder)
	}
	if c.LabelColumn < 0 || c.TextColumn < 0 {
		return errors.New("label_column and text_column must not be negative")
	}
	if c.LabelColumn == c.TextColumn {
		return fmt.Errorf("label_column and text_column are both %d", c.LabelColumn)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	return nil
}

// CSVOptions returns the column layout for LoadSamples.
func (c *Config) CSVOptions() tweets.CSVOptions {
	return tweets.CSVOptions{
		LabelColumn: c.LabelColumn,
		TextColumn:  c.TextColumn,
		HasHeader:   c.HasHeader,
	}
}

// RabbitMQConfig returns the broker settings used by serve.
func (c *Config) RabbitMQConfig() RabbitMQConfig {
	return RabbitMQConfig{
		Host:        c.MQHost,
		Port:        c.MQPort,
		Username:    c.MQUser,
		Password:    c.MQPassword,
		Queue:       c.MQQueue,
		OutputQueue: c.MQOutputQueue,
		Prefetch:    c.BatchSize,
	}
}
