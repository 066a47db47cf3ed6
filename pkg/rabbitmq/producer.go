/**
 * @description
 * This package publishes subscription lifecycle events to RabbitMQ so that
 * other services (email, analytics) can react to billing changes without
 * talking to Stripe themselves.
 *
 * Key features:
 * - Manages the AMQP connection and channel.
 * - Declares a durable topic exchange once, on first publish.
 * - Routes each change by state, e.g. "subscription.active".
 *
 * @dependencies
 * - github.com/rabbitmq/amqp091-go: The official Go client for RabbitMQ.
 */
package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/adityagupta7711/Meal-planner/internal/domain"
)

// Channel is the subset of *amqp091.Channel the producer uses.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// EventProducer is a client for publishing events to RabbitMQ.
type EventProducer struct {
	conn    *amqp091.Connection
	channel Channel
	logger  *zap.Logger

	mu       sync.Mutex
	declared map[string]bool
}

// SanitizeAMQPURL trims quotes and whitespace that often leak in from .env
// files and checks the scheme.
func SanitizeAMQPURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	if !strings.HasSuffix(clean, "/") {
		clean += "/"
	}
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}

// NewEventProducer dials RabbitMQ and opens a channel.
func NewEventProducer(amqpURL string, logger *zap.Logger) (*EventProducer, error) {
	cleanURL, err := SanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}

	conn, err := amqp091.Dial(cleanURL)
	if err != nil {
		return nil, err
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	producer := NewEventProducerWithChannel(channel, logger)
	producer.conn = conn
	return producer, nil
}

// NewEventProducerWithChannel wraps an already open channel.
func NewEventProducerWithChannel(channel Channel, logger *zap.Logger) *EventProducer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventProducer{
		channel:  channel,
		logger:   logger,
		declared: make(map[string]bool),
	}
}

// Publish marshals body to JSON and sends it to exchange with routingKey.
func (p *EventProducer) Publish(ctx context.Context, exchange, routingKey string, body interface{}) error {
	if err := p.declare(exchange); err != nil {
		return err
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return err
	}

	err = p.channel.PublishWithContext(ctx,
		exchange,   // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         jsonBody,
		})
	if err != nil {
		return err
	}

	p.logger.Debug("published message",
		zap.String("exchange", exchange),
		zap.String("routing_key", routingKey),
	)
	return nil
}

func (p *EventProducer) declare(exchange string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.declared[exchange] {
		return nil
	}
	err := p.channel.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	p.declared[exchange] = true
	return nil
}

// Close gracefully closes the channel and connection.
func (p *EventProducer) Close() {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}

// SubscriptionNotifier publishes domain.SubscriptionChanged messages.
type SubscriptionNotifier struct {
	producer *EventProducer
	exchange string
}

// NewSubscriptionNotifier creates a notifier that publishes to exchange.
func NewSubscriptionNotifier(producer *EventProducer, exchange string) *SubscriptionNotifier {
	return &SubscriptionNotifier{producer: producer, exchange: exchange}
}

// RoutingKey returns the routing key for a state, e.g. "subscription.past_due".
func RoutingKey(state domain.SubscriptionState) string {
	return "subscription." + string(state)
}

// NotifySubscriptionChanged implements the app notifier port.
func (n *SubscriptionNotifier) NotifySubscriptionChanged(ctx context.Context, change domain.SubscriptionChanged) error {
	return n.producer.Publish(ctx, n.exchange, RoutingKey(change.State), change)
}
