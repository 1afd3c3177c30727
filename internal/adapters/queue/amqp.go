package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/target/fuzzysearch/internal/core"
	"github.com/target/fuzzysearch/internal/domain/model"
)

// AMQPOptions configure an AMQP queue.
type AMQPOptions struct {
	Exchange     string
	RoutingKey   string
	Queue        string
	PollInterval time.Duration
	Logger       *slog.Logger
}

// AMQP publishes job ids to a durable topic exchange and pulls them from a
// bound durable queue with manual acknowledgement.
type AMQP struct {
	mu      sync.Mutex
	channel *amqp.Channel
	opts    AMQPOptions
	logger  *slog.Logger
}

type envelope struct {
	JobID string `json:"job_id"`
}

// NewAMQP opens a channel on conn and declares the exchange, queue and binding.
func NewAMQP(conn *amqp.Connection, opts AMQPOptions) (*AMQP, error) {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 500 * time.Millisecond
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	if err := declareTopology(ch, opts); err != nil {
		_ = ch.Close()
		return nil, err
	}

	return &AMQP{channel: ch, opts: opts, logger: logger.With("component", "amqp_queue")}, nil
}

func declareTopology(ch *amqp.Channel, opts AMQPOptions) error {
	if err := ch.ExchangeDeclare(opts.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", opts.Exchange, err)
	}
	if _, err := ch.QueueDeclare(opts.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", opts.Queue, err)
	}
	if err := ch.QueueBind(opts.Queue, opts.RoutingKey, opts.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", opts.Queue, err)
	}
	return nil
}

func (q *AMQP) Enqueue(ctx context.Context, jobID string) error {
	body, err := json.Marshal(envelope{JobID: jobID})
	if err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	err = q.channel.PublishWithContext(ctx, q.opts.Exchange, q.opts.RoutingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    jobID,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish job %s: %w", jobID, err)
	}
	return nil
}

func (q *AMQP) Reserve(_ context.Context) (*core.Delivery, error) {
	for {
		q.mu.Lock()
		msg, ok, err := q.channel.Get(q.opts.Queue, false)
		q.mu.Unlock()
		if err != nil {
			if errors.Is(err, amqp.ErrClosed) {
				return nil, ErrClosed
			}
			return nil, fmt.Errorf("get from %s: %w", q.opts.Queue, err)
		}
		if !ok {
			return nil, model.ErrNoJobsAvailable
		}

		jobID, err := decodeEnvelope(msg.Body)
		if err != nil {
			q.logger.Warn("dropping malformed message", "delivery_tag", msg.DeliveryTag, "error", err)
			_ = msg.Nack(false, false)
			continue
		}

		return &core.Delivery{
			JobID: jobID,
			Ack:   func(context.Context) error { return msg.Ack(false) },
			Nack:  func(context.Context) error { return msg.Nack(false, true) },
		}, nil
	}
}

func decodeEnvelope(body []byte) (string, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return "", fmt.Errorf("decode job message: %w", err)
	}
	if env.JobID == "" {
		return "", errors.New("job message has no job_id")
	}
	return env.JobID, nil
}

// WaitForNotification polls the queue depth; basic.get has no wake-up signal.
func (q *AMQP) WaitForNotification(ctx context.Context) error {
	ticker := time.NewTicker(q.opts.PollInterval)
	defer ticker.Stop()

	for {
		q.mu.Lock()
		state, err := q.channel.QueueDeclarePassive(q.opts.Queue, true, false, false, false, nil)
		q.mu.Unlock()
		if err != nil {
			return fmt.Errorf("inspect queue %s: %w", q.opts.Queue, err)
		}
		if state.Messages > 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (q *AMQP) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.channel.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		return err
	}
	return nil
}

var _ core.JobQueue = (*AMQP)(nil)
