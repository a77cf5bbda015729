package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"tweet-classifier/src/filter"
	"tweet-classifier/src/metrics"
	"tweet-classifier/src/ngram"
	"tweet-classifier/src/pipeline"
	"tweet-classifier/src/tweets"
)

// RabbitMQConfig holds RabbitMQ connection configuration
type RabbitMQConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	Queue       string // tweets to classify
	OutputQueue string // predictions
	Prefetch    int
}

// Validate rejects settings that cannot produce a working connection.
func (c RabbitMQConfig) Validate() error {
	switch {
	case c.Host == "":
		return errors.New("rabbitmq: empty host")
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("rabbitmq: invalid port %d", c.Port)
	case c.Queue == "":
		return errors.New("rabbitmq: empty queue name")
	case c.OutputQueue == "":
		return errors.New("rabbitmq: empty output queue name")
	case c.Queue == c.OutputQueue:
		return fmt.Errorf("rabbitmq: input and output queue are both %q", c.Queue)
	}
	return nil
}

// URL returns the AMQP dial URL.
func (c RabbitMQConfig) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/", c.Username, c.Password, c.Host, c.Port)
}

// RabbitMQ consumes tweets from one queue and publishes predictions to another.
type RabbitMQ struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   amqp.Queue
	output  amqp.Queue
	config  RabbitMQConfig
}

func declareQueue(ch *amqp.Channel, name string) (amqp.Queue, error) {
	return ch.QueueDeclare(
		name,  // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
}

// NewRabbitMQ connects and declares both queues.
func NewRabbitMQ(config RabbitMQConfig) (*RabbitMQ, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	conn, err := amqp.Dial(config.URL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	in, err := declareQueue(ch, config.Queue)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", config.Queue, err)
	}
	out, err := declareQueue(ch, config.OutputQueue)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", config.OutputQueue, err)
	}

	// Prefetch one batch so a slow classifier does not pile up unacked messages.
	if err := ch.Qos(max(config.Prefetch, 1), 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	return &RabbitMQ{
		conn:    conn,
		channel: ch,
		queue:   in,
		output:  out,
		config:  config,
	}, nil
}

// Consume starts a manual-ack consumer on the input queue.
func (r *RabbitMQ) Consume() (<-chan amqp.Delivery, error) {
	msgs, err := r.channel.Consume(
		r.queue.Name, // queue
		"",           // consumer
		false,        // auto-ack
		false,        // exclusive
		false,        // no-local
		false,        // no-wait
		nil,          // args
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register a consumer: %w", err)
	}
	return msgs, nil
}

// Publish sends one JSON message to the output queue.
func (r *RabbitMQ) Publish(ctx context.Context, body []byte) error {
	return r.channel.PublishWithContext(ctx,
		"",            // exchange
		r.output.Name, // routing key
		false,         // mandatory
		false,         // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		})
}

// Close closes the RabbitMQ connection
func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

// QueueDepth returns the number of messages waiting on the input queue.
func (r *RabbitMQ) QueueDepth() (int, error) {
	queue, err := r.channel.QueueDeclarePassive(
		r.config.Queue, // name
		true,           // durable
		false,          // delete when unused
		false,          // exclusive
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return 0, fmt.Errorf("failed to inspect queue %s: %w", r.config.Queue, err)
	}
	return queue.Messages, nil
}

// Prediction is the message published for every classified tweet.
type Prediction struct {
	IDStr string `json:"id_str,omitempty"`
	Text  string `json:"text"`
	Label string `json:"label"`
}

// decodeTweet accepts either a JSON tweet or the raw tweet text.
func decodeTweet(body []byte) tweets.Tweet {
	var tweet tweets.Tweet
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "{") && json.Unmarshal(body, &tweet) == nil && tweet.Text != "" {
		return tweet
	}
	return tweets.Tweet{Text: trimmed}
}

type publisher interface {
	Publish(ctx context.Context, body []byte) error
}

// Batcher classifies deliveries in batches and publishes one Prediction per
// delivery. A delivery is acked only after its prediction is published.
type Batcher struct {
	queue     *pipeline.Queue[amqp.Delivery]
	cleaner   filter.Cleaner
	predictor *ngram.Predictor
	out       publisher
	backlog   func() (int, error) // optional input queue depth
	batchSize int
	workers   int
}

// NewBatcher creates a Batcher that flushes every batchSize deliveries.
func NewBatcher(predictor *ngram.Predictor, cleaner filter.Cleaner, out publisher, batchSize, numWorkers int) *Batcher {
	return &Batcher{
		queue:     pipeline.NewQueue[amqp.Delivery](),
		cleaner:   cleaner,
		predictor: predictor,
		out:       out,
		batchSize: max(batchSize, 1),
		workers:   max(numWorkers, 1),
	}
}

// Add queues a delivery and reports whether a full batch is waiting.
func (b *Batcher) Add(d amqp.Delivery) bool {
	b.queue.Enqueue(d)
	return b.queue.Len() >= b.batchSize
}

// SetBacklog installs the input queue depth reported in progress lines.
func (b *Batcher) SetBacklog(depth func() (int, error)) {
	b.backlog = depth
}

// Pending returns the number of queued deliveries.
func (b *Batcher) Pending() int {
	return b.queue.Len()
}

// Flush classifies and publishes up to one batch. It returns how many
// deliveries were acked.
func (b *Batcher) Flush(ctx context.Context) (int, error) {
	batch := b.queue.Drain(b.batchSize)
	if len(batch) == 0 {
		return 0, nil
	}

	parsed := make([]tweets.Tweet, len(batch))
	cleaned := make([]string, len(batch))
	for i, d := range batch {
		parsed[i] = decodeTweet(d.Body)
		cleaned[i] = b.cleaner.Clean(parsed[i].Text)
	}

	labels, err := b.predictor.PredictBatch(cleaned, b.workers)
	if err != nil {
		for _, d := range batch {
			nack(d)
		}
		return 0, fmt.Errorf("failed to classify batch: %w", err)
	}

	coverage := b.coverage(cleaned)
	metrics.VocabularyCoverage.Observe(coverage)
	slog.Info("Batch classified", "size", len(batch), "coverage", coverage)

	acked := 0
	for i, d := range batch {
		body, err := json.Marshal(Prediction{IDStr: parsed[i].IDStr, Text: parsed[i].Text, Label: labels[i]})
		if err == nil {
			err = b.out.Publish(ctx, body)
		}
		if err != nil {
			slog.Error("Failed to publish prediction", "error", err, "delivery_tag", d.DeliveryTag)
			nack(d)
			continue
		}
		if err := d.Ack(false); err != nil {
			slog.Error("Failed to ack delivery", "error", err, "delivery_tag", d.DeliveryTag)
			continue
		}
		acked++
	}
	return acked, nil
}

// nack requeues d, logging a failure the same way a failed ack is logged.
func nack(d amqp.Delivery) {
	if err := d.Nack(false, true); err != nil {
		slog.Error("Failed to nack delivery", "error", err, "delivery_tag", d.DeliveryTag)
	}
}

// coverage is the mean vocabulary coverage of sentences.
func (b *Batcher) coverage(sentences []string) float64 {
	if len(sentences) == 0 {
		return 0
	}
	vocab := b.predictor.Vocabulary()
	sum := 0.0
	for _, s := range sentences {
		sum += vocab.Coverage(s)
	}
	return sum / float64(len(sentences))
}

// progress formats the [Serve] line, adding the input backlog when known.
func (b *Batcher) progress(total int) string {
	line := fmt.Sprintf("[Serve] %d tweets classified", total)
	if b.backlog == nil {
		return line
	}
	waiting, err := b.backlog()
	if err != nil {
		slog.Warn("Queue depth unavailable", "error", err)
		return line
	}
	metrics.QueueBacklog.Set(float64(waiting))
	return fmt.Sprintf("%s, %d waiting", line, waiting)
}

// Run pulls deliveries until msgs closes or ctx is done, flushing on a full
// batch or every flushInterval. Deliveries still queued at shutdown are
// flushed before returning.
func (b *Batcher) Run(ctx context.Context, msgs <-chan amqp.Delivery, flushInterval time.Duration) error {
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	total := 0
	flush := func(all bool) error {
		for b.Pending() > 0 {
			n, err := b.Flush(ctx)
			if err != nil {
				return err
			}
			if n > 0 {
				total += n
				fmt.Println(b.progress(total))
			}
			if !all {
				break
			}
		}
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return flush(true)
		case d, ok := <-msgs:
			if !ok {
				return flush(true)
			}
			if b.Add(d) {
				if err := flush(false); err != nil {
					return err
				}
			}
		case <-ticker.C:
			if err := flush(true); err != nil {
				return err
			}
		}
	}
}
