package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// RabbitDispatcher publishes stage jobs to a durable queue and feeds consumed jobs to a local
// worker, so stages survive an API restart.
type RabbitDispatcher struct {
	conn        *amqp.Connection
	channel     *amqp.Channel
	queue       amqp.Queue
	logger      *zap.Logger
	fullBackoff time.Duration
}

func NewRabbitDispatcher(url, queueName string, logger *zap.Logger) (*RabbitDispatcher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	q, err := ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	logger.Info("connected to RabbitMQ", zap.String("queue", q.Name))

	return &RabbitDispatcher{conn: conn, channel: ch, queue: q, logger: logger, fullBackoff: time.Second}, nil
}

func (r *RabbitDispatcher) Dispatch(ctx context.Context, job StageJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return r.channel.PublishWithContext(
		ctx,
		"",           // exchange
		r.queue.Name, // routing key
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    job.ID.String(),
			Timestamp:    job.EnqueuedAt,
			Body:         body,
		},
	)
}

// Consume forwards deliveries to target until ctx is done. A message is acked once the local
// worker has accepted it.
func (r *RabbitDispatcher) Consume(ctx context.Context, target Dispatcher) error {
	msgs, err := r.channel.Consume(
		r.queue.Name,
		"",
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-msgs:
				if !ok {
					return
				}
				r.handle(ctx, d, target)
			}
		}
	}()
	return nil
}

func (r *RabbitDispatcher) handle(ctx context.Context, d amqp.Delivery, target Dispatcher) {
	var job StageJob
	if err := json.Unmarshal(d.Body, &job); err != nil {
		r.logger.Warn("dropping invalid stage message", zap.Error(err))
		d.Nack(false, false)
		return
	}
	if err := r.dispatchWhenFree(ctx, job, target); err != nil {
		r.logger.Warn("failed to hand stage to worker", zap.String("job_id", job.ID.String()), zap.Error(err))
		d.Nack(false, true)
		return
	}
	d.Ack(false)
}

// dispatchWhenFree holds the delivery while the local worker queue is full, so the broker keeps
// the backlog instead of redelivering in a tight loop.
func (r *RabbitDispatcher) dispatchWhenFree(ctx context.Context, job StageJob, target Dispatcher) error {
	for {
		err := target.Dispatch(ctx, job)
		if !errors.Is(err, ErrQueueFull) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.fullBackoff):
		}
	}
}

func (r *RabbitDispatcher) Close() error {
	if err := r.channel.Close(); err != nil {
		r.conn.Close()
		return err
	}
	return r.conn.Close()
}
