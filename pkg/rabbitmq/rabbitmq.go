package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"valuedrive/internal/models"

	amqp "github.com/streadway/amqp"
	"go.uber.org/zap"
)

// ListingQueue receives every listing event.
const ListingQueue = "listing_events"

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	mu      sync.Mutex // amqp channels are not safe for concurrent publishing
	logger  *zap.SugaredLogger
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL string
}

// NewClient connects to RabbitMQ, opens a channel and declares ListingQueue.
func NewClient(cfg Config, logger *zap.SugaredLogger) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if _, err := declareQueue(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare %s: %w", ListingQueue, err)
	}

	logger.Infof("RabbitMQ client connected and %s declared", ListingQueue)
	return &Client{
		conn:    conn,
		channel: ch,
		logger:  logger,
	}, nil
}

func declareQueue(ch *amqp.Channel) (amqp.Queue, error) {
	return ch.QueueDeclare(
		ListingQueue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
}

// Close closes the RabbitMQ connection and channel.
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
	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred during RabbitMQ client close: %v", errs)
	}
	return nil
}

// Publishing builds the persistent JSON message for a listing event.
func Publishing(ev models.ListingEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal listing event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		Type:         ev.Type,
		MessageId:    ev.ListingID,
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
	}, nil
}

// PublishListingEvent publishes ev to ListingQueue.
func (c *Client) PublishListingEvent(_ context.Context, ev models.ListingEvent) error {
	if c == nil || c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available")
	}
	msg, err := Publishing(ev)
	if err != nil {
		return err
	}

	c.mu.Lock()
	err = c.channel.Publish("", ListingQueue, false, false, msg)
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	c.logger.Debugw("listing event sent", "type", ev.Type, "listing", ev.ListingID)
	return nil
}

// DecodeListingEvent parses a delivery body.
func DecodeListingEvent(body []byte) (models.ListingEvent, error) {
	var ev models.ListingEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return ev, fmt.Errorf("malformed listing event: %w", err)
	}
	return ev, nil
}

// ConsumeListingEvents delivers every event of ListingQueue to handler until
// ctx is done. Messages are acked on success; malformed ones are dropped and
// failed ones requeued.
func (c *Client) ConsumeListingEvents(ctx context.Context, handler func(context.Context, models.ListingEvent) error) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available for consumption")
	}
	queue, err := declareQueue(c.channel)
	if err != nil {
		return fmt.Errorf("failed to declare queue for consuming: %w", err)
	}

	msgs, err := c.channel.Consume(
		queue.Name,
		"",    // consumer tag
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
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				c.handle(ctx, msg, handler)
			}
		}
	}()
	return nil
}

func (c *Client) handle(ctx context.Context, msg amqp.Delivery, handler func(context.Context, models.ListingEvent) error) {
	ev, err := DecodeListingEvent(msg.Body)
	if err != nil {
		c.logger.Warnw("dropping message", "tag", msg.DeliveryTag, "error", err)
		if nackErr := msg.Nack(false, false); nackErr != nil {
			c.logger.Errorw("error nacking message", "tag", msg.DeliveryTag, "error", nackErr)
		}
		return
	}
	if err := handler(ctx, ev); err != nil {
		c.logger.Warnw("error processing message", "tag", msg.DeliveryTag, "error", err)
		if nackErr := msg.Nack(false, true); nackErr != nil {
			c.logger.Errorw("error nacking message", "tag", msg.DeliveryTag, "error", nackErr)
		}
		return
	}
	if ackErr := msg.Ack(false); ackErr != nil {
		c.logger.Errorw("error acking message", "tag", msg.DeliveryTag, "error", ackErr)
	}
}

// LogListingEvent is the default consumer handler: it records cleanup
// failures reported by mutations.
func LogListingEvent(logger *zap.SugaredLogger) func(context.Context, models.ListingEvent) error {
	return func(_ context.Context, ev models.ListingEvent) error {
		failed := 0
		for _, c := range ev.Cleanup {
			if !c.Removed {
				failed++
			}
		}
		logger.Infow("listing event", "type", ev.Type, "listing", ev.ListingID, "car_number", ev.CarNumber, "cleanup_failed", failed)
		return nil
	}
}
