package rabbit

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const (
	contentTypeJSON = "application/json"
	syncTaskType    = "checkin.sync"
)

type Config struct {
	URL      string
	Exchange string
	Queue    string
	// Prefetch bounds unacked deliveries per consumer. Defaults to 1.
	Prefetch int
}

// Client publishes sync tasks to a durable queue and consumes them. It
// satisfies queue.Queue.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	cfg     Config
	log     *zerolog.Logger

	wg        sync.WaitGroup
	closeOnce sync.Once
}

func NewRabbit(cfg Config, log *zerolog.Logger) (*Client, error) {
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 1
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}

	c := &Client{conn: conn, channel: ch, cfg: cfg, log: log}
	if err := c.declareTopology(); err != nil {
		c.Close()
		return nil, err
	}

	log.Info().Str("exchange", cfg.Exchange).Str("queue", cfg.Queue).Msg("RabbitMQ initialized")
	return c, nil
}

// declareTopology binds one durable queue to a direct exchange, keyed by the
// queue name.
func (c *Client) declareTopology() error {
	if err := c.channel.ExchangeDeclare(c.cfg.Exchange, amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", c.cfg.Exchange, err)
	}
	if _, err := c.channel.QueueDeclare(c.cfg.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", c.cfg.Queue, err)
	}
	if err := c.channel.QueueBind(c.cfg.Queue, c.cfg.Queue, c.cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", c.cfg.Queue, err)
	}
	if err := c.channel.Qos(c.cfg.Prefetch, 0, false); err != nil {
		return fmt.Errorf("set prefetch: %w", err)
	}
	return nil
}

func (c *Client) Publish(ctx context.Context, message []byte) error {
	err := c.channel.PublishWithContext(ctx, c.cfg.Exchange, c.cfg.Queue, false, false, amqp.Publishing{
		ContentType:  contentTypeJSON,
		Type:         syncTaskType,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         message,
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", c.cfg.Queue, err)
	}
	c.log.Debug().Str("queue", c.cfg.Queue).Int("bytes", len(message)).Msg("sync task published")
	return nil
}

// Consume acks handled deliveries. A delivery whose handler fails is
// rejected without requeue; the handler owns its own retries.
func (c *Client) Consume(handler func([]byte) error) error {
	deliveries, err := c.channel.Consume(c.cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.cfg.Queue, err)
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for d := range deliveries {
			if err := handler(d.Body); err != nil {
				c.log.Warn().Err(err).Uint64("delivery_tag", d.DeliveryTag).Msg("sync task rejected")
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
		c.log.Info().Str("queue", c.cfg.Queue).Msg("RabbitMQ deliveries channel closed")
	}()

	c.log.Info().Str("queue", c.cfg.Queue).Msg("Started consuming from RabbitMQ")
	return nil
}

// Close closes the channel, which ends the consumer loop, and then the
// connection.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		if c.channel != nil {
			_ = c.channel.Close()
		}
		c.wg.Wait()
		if c.conn != nil {
			_ = c.conn.Close()
		}
		c.log.Info().Msg("RabbitMQ connection closed")
	})
}
