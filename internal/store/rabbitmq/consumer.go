package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/suPer8Hu/chat-history/internal/logger"
)

const attemptHeader = "x-attempt"

// HandlerFunc processes one message body. A returned error schedules a retry.
type HandlerFunc func(ctx context.Context, body []byte) error

// PermanentError marks a message that must not be retried.
type PermanentError struct{ Err error }

func (e PermanentError) Error() string { return e.Err.Error() }
func (e PermanentError) Unwrap() error { return e.Err }

type ConsumerConfig struct {
	URL         string
	Queue       string
	Concurrency int
	MaxAttempts int
	RetryDelay  time.Duration
}

// Consume runs a worker pool over the queue until ctx is done. Failed
// messages go through the retry queue MaxAttempts times, then to the DLQ.
func Consume(ctx context.Context, cfg ConsumerConfig, handle HandlerFunc, log *logger.Logger) error {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 2
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 5 * time.Second
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return fmt.Errorf("rabbit dial: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbit channel: %w", err)
	}
	defer ch.Close()

	if err := DeclareTopology(ch, cfg.Queue); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	if err := ch.Qos(cfg.Concurrency, 0, false); err != nil {
		return fmt.Errorf("qos: %w", err)
	}
	msgs, err := ch.Consume(cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	retry := &Publisher{conn: conn, ch: ch, queue: cfg.Queue}
	log.Info("worker started", "queue", cfg.Queue, "concurrency", cfg.Concurrency)

	jobs := make(chan amqp.Delivery, cfg.Concurrency*2)
	var wg sync.WaitGroup
	wg.Add(cfg.Concurrency)
	for i := 0; i < cfg.Concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range jobs {
				process(ctx, d, cfg, handle, retry, log.With("worker", workerID))
			}
		}(i)
	}

	defer func() {
		close(jobs)
		wg.Wait()
	}()
	for {
		select {
		case <-ctx.Done():
			log.Info("worker shutting down")
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}
			jobs <- d
		}
	}
}

func process(ctx context.Context, d amqp.Delivery, cfg ConsumerConfig, handle HandlerFunc, retry *Publisher, log *logger.Logger) {
	start := time.Now()
	err := handle(ctx, d.Body)
	if err == nil {
		if ackErr := d.Ack(false); ackErr != nil {
			log.Warn("ack failed", "message_id", d.MessageId, "error", ackErr)
		}
		return
	}

	attempt := Attempt(d.Headers)
	var permanent PermanentError
	if errors.As(err, &permanent) || attempt >= cfg.MaxAttempts {
		log.Error("message dead-lettered", "message_id", d.MessageId, "attempt", attempt, "cost", time.Since(start), "error", err)
		_ = d.Nack(false, false)
		return
	}

	headers := amqp.Table{}
	for k, v := range d.Headers {
		headers[k] = v
	}
	headers[attemptHeader] = int32(attempt + 1)
	pubErr := retry.publish(ctx, RetryQueue(cfg.Queue), amqp.Publishing{
		ContentType:  d.ContentType,
		DeliveryMode: amqp.Persistent,
		MessageId:    d.MessageId,
		Type:         d.Type,
		Timestamp:    d.Timestamp,
		Headers:      headers,
		Expiration:   strconv.FormatInt(cfg.RetryDelay.Milliseconds(), 10),
		Body:         d.Body,
	})
	if pubErr != nil {
		log.Error("retry publish failed", "message_id", d.MessageId, "error", pubErr)
		_ = d.Nack(false, true)
		return
	}
	log.Warn("message scheduled for retry", "message_id", d.MessageId, "attempt", attempt+1, "error", err)
	_ = d.Ack(false)
}

// Attempt reads the delivery attempt counter; first deliveries are attempt 1.
func Attempt(h amqp.Table) int {
	switch v := h[attemptHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	}
	return 1
}
