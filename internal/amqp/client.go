// Package amqp connects the ledger to RabbitMQ: the API publishes a
// message per mutation and the sync worker consumes them.
package amqp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return client, nil
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Routing key matches the queue name on a direct exchange.
	err = c.channel.QueueBind(c.queueName, c.queueName, c.exchangeName, false, nil)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// PublishRecordSync publishes a record sync message.
func (c *Client) PublishRecordSync(ctx context.Context, id string, version int64) error {
	msg := NewRecordSyncMessage(id, version)
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := c.publish(ctx, TypeRecordSync, body); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Published record sync message",
		"id", id,
		"version", version,
		"exchange", c.exchangeName,
		"queue", c.queueName)
	return nil
}

// PublishRecordDelete publishes a record delete message.
func (c *Client) PublishRecordDelete(ctx context.Context, id string) error {
	msg := NewRecordDeleteMessage(id)
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := c.publish(ctx, TypeRecordDelete, body); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Published record delete message",
		"id", id,
		"exchange", c.exchangeName,
		"queue", c.queueName)
	return nil
}

func (c *Client) publish(ctx context.Context, msgType string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			Type:         msgType,
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

// ConsumeMessages consumes record messages until ctx is done,
// dispatching to the handlers by message type. Handler failures nack
// with requeue; undecodable messages are dropped.
func (c *Client) ConsumeMessages(
	ctx context.Context,
	syncHandler func(context.Context, *RecordSyncMessage) error,
	deleteHandler func(context.Context, *RecordDeleteMessage) error,
) error {
	msgs, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack (we want manual ack)
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming record messages", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}

			handler, err := decodeHandler(delivery, syncHandler, deleteHandler)
			if err != nil {
				slog.ErrorContext(ctx, "Dropping undecodable message",
					"type", delivery.Type,
					"error", err)
				delivery.Nack(false, false) // reject and don't requeue
				continue
			}

			if err := handler(ctx); err != nil {
				slog.ErrorContext(ctx, "Failed to handle message",
					"type", delivery.Type,
					"error", err)
				delivery.Nack(false, true) // reject and requeue
				continue
			}

			delivery.Ack(false)
		}
	}
}

// decodeHandler decodes the delivery by its type and binds it to the
// matching handler.
func decodeHandler(
	delivery amqp091.Delivery,
	syncHandler func(context.Context, *RecordSyncMessage) error,
	deleteHandler func(context.Context, *RecordDeleteMessage) error,
) (func(context.Context) error, error) {
	switch delivery.Type {
	case TypeRecordSync:
		msg, err := RecordSyncMessageFromJSON(delivery.Body)
		if err != nil {
			return nil, fmt.Errorf("unmarshal sync message: %w", err)
		}
		return func(ctx context.Context) error { return syncHandler(ctx, msg) }, nil
	case TypeRecordDelete:
		msg, err := RecordDeleteMessageFromJSON(delivery.Body)
		if err != nil {
			return nil, fmt.Errorf("unmarshal delete message: %w", err)
		}
		return func(ctx context.Context) error { return deleteHandler(ctx, msg) }, nil
	default:
		return nil, fmt.Errorf("unknown message type %q", delivery.Type)
	}
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
