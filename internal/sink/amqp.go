package sink

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// Message is the JSON body published for every event
type Message struct {
	Type      string      `json:"type"`
	Topology  string      `json:"topology,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
	Published time.Time   `json:"published"`
}

// AMQPPublisher publishes change events to a durable-less work queue
type AMQPPublisher struct {
	mu     sync.Mutex
	conn   *amqp.Connection
	ch     *amqp.Channel
	queue  amqp.Queue
	logger *zap.Logger
}

// NewAMQPPublisher dials the broker and declares the queue
func NewAMQPPublisher(url, queue string, logger *zap.Logger) (*AMQPPublisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}

	q, err := ch.QueueDeclare(
		queue, // name
		false, // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}

	logger.Info("amqp event sink connected", zap.String("queue", q.Name))
	return &AMQPPublisher{conn: conn, ch: ch, queue: q, logger: logger}, nil
}

// Publish sends one event. Calls are serialized on the single channel.
func (p *AMQPPublisher) Publish(eventType, topology string, payload interface{}) error {
	body, err := encodeMessage(eventType, topology, payload, time.Now().UTC())
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.Publish(
		"",           // exchange
		p.queue.Name, // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	p.logger.Debug("event published", zap.String("type", eventType))
	return nil
}

// Close shuts down the channel and connection
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ch.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}

func encodeMessage(eventType, topology string, payload interface{}, at time.Time) ([]byte, error) {
	body, err := json.Marshal(Message{
		Type:      eventType,
		Topology:  topology,
		Payload:   payload,
		Published: at,
	})
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", eventType, err)
	}
	return body, nil
}
