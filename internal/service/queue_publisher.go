// Package service provides functions to publish domain events to RabbitMQ.
// Errors are logged and returned to allow callers to ignore failures without
// interrupting the main request flow.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/product-catalog/internal/model"
	q "github.com/iliyamo/product-catalog/internal/queue"
)

// AMQPPublisher publishes product events to a durable queue on the default
// exchange.  Each call opens and closes its own connection, which keeps the
// publisher stateless at the cost of a dial per event.
type AMQPPublisher struct {
	URL   string
	Queue string
	now   func() time.Time
}

func NewAMQPPublisher(url, queue string) *AMQPPublisher {
	return &AMQPPublisher{URL: url, Queue: queue, now: time.Now}
}

// PublishProductCreated sends a persistent ProductCreatedEvent for p.
func (pub *AMQPPublisher) PublishProductCreated(ctx context.Context, p model.Product) error {
	msg, err := pub.publishing(p)
	if err != nil {
		return err
	}

	conn, err := amqp.DialConfig(pub.URL, amqp.Config{Dial: amqp.DefaultDial(5 * time.Second)})
	if err != nil {
		return fmt.Errorf("rabbitmq: dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq: channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// Durable so messages survive broker restarts; declaring is idempotent.
	if _, err := ch.QueueDeclare(pub.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq: queue declare: %w", err)
	}

	if err := ch.PublishWithContext(ctx,
		"",        // default exchange
		pub.Queue, // routing key = queue name
		false,     // mandatory
		false,     // immediate
		msg,
	); err != nil {
		return fmt.Errorf("rabbitmq: publish: %w", err)
	}
	return nil
}

func (pub *AMQPPublisher) publishing(p model.Product) (amqp.Publishing, error) {
	now := time.Now
	if pub.now != nil {
		now = pub.now
	}
	at := now().UTC()
	body, err := json.Marshal(q.NewProductCreatedEvent(p, at))
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("rabbitmq: marshal event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Type:         "product.created",
		Timestamp:    at,
		Body:         body,
	}, nil
}
