package rabbitmq

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/streadway/amqp"
)

const (
	// ArticleExchange is the topic exchange article events are published to.
	ArticleExchange = "articles"
	// ArticleQueue receives every article.* event.
	ArticleQueue = "article_events"
)

// Channel is the subset of *amqp.Channel used by Client.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn    *amqp.Connection
	channel Channel
	mu      sync.Mutex // amqp channels are not safe for concurrent publishing
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL string
}

// NewClient connects to RabbitMQ, opens a channel and declares the article topology.
func NewClient(cfg Config) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	client, err := NewClientWithChannel(ch)
	if err != nil {
		conn.Close()
		return nil, err
	}
	client.conn = conn
	return client, nil
}

// NewClientWithChannel declares the article exchange and queue on ch.
func NewClientWithChannel(ch Channel) (*Client, error) {
	if err := declareTopology(ch); err != nil {
		ch.Close()
		return nil, err
	}
	slog.Info("RabbitMQ client connected", "exchange", ArticleExchange, "queue", ArticleQueue)
	return &Client{channel: ch}, nil
}

func declareTopology(ch Channel) error {
	if err := ch.ExchangeDeclare(
		ArticleExchange, // name
		"topic",         // kind
		true,            // durable
		false,           // auto-deleted
		false,           // internal
		false,           // no-wait
		nil,             // arguments
	); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", ArticleExchange, err)
	}

	if _, err := ch.QueueDeclare(
		ArticleQueue, // name
		true,         // durable
		false,        // delete when unused
		false,        // exclusive
		false,        // no-wait
		nil,          // arguments
	); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", ArticleQueue, err)
	}

	if err := ch.QueueBind(ArticleQueue, "article.*", ArticleExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", ArticleQueue, err)
	}
	return nil
}

// Close closes the RabbitMQ channel and connection.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Publish sends a persistent JSON message to the article exchange.
func (c *Client) Publish(routingKey string, body []byte) error {
	if c.channel == nil {
		return errors.New("RabbitMQ channel is not available")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.channel.Publish(
		ArticleExchange, // exchange
		routingKey,      // routing key
		false,           // mandatory
		false,           // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	slog.Debug("published article event", "routing_key", routingKey)
	return nil
}

// ConsumeArticleEvents delivers messages from the article queue to handler
// in a background goroutine. A nil handler result acks; an error nacks
// without requeueing so poison messages are dropped.
func (c *Client) ConsumeArticleEvents(handler func(msg amqp.Delivery) error) error {
	if c.channel == nil {
		return errors.New("RabbitMQ channel is not available for consumption")
	}

	msgs, err := c.channel.Consume(
		ArticleQueue, // queue
		"",           // consumer tag
		false,        // auto-ack
		false,        // exclusive
		false,        // no-local
		false,        // no-wait
		nil,          // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	go func() {
		for msg := range msgs {
			if err := handler(msg); err != nil {
				slog.Warn("failed to process article event", "delivery_tag", msg.DeliveryTag, "err", err)
				if nackErr := msg.Nack(false, false); nackErr != nil {
					slog.Error("failed to nack message", "delivery_tag", msg.DeliveryTag, "err", nackErr)
				}
				continue
			}
			if ackErr := msg.Ack(false); ackErr != nil {
				slog.Error("failed to ack message", "delivery_tag", msg.DeliveryTag, "err", ackErr)
			}
		}
	}()

	return nil
}

// LogArticleEvent is a consumer handler that records each event in the log.
func LogArticleEvent(msg amqp.Delivery) error {
	slog.Info("article event received", "routing_key", msg.RoutingKey, "body", string(msg.Body))
	return nil
}
