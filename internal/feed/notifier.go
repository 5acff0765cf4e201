package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"

	"portfolio/internal/logging"
)

// Change describes one write to the collection.
type Change struct {
	Op string `json:"op"` // add, update, delete
	ID string `json:"id"`
}

type Notifier interface {
	Notify(ctx context.Context, c Change) error
}

// Local refreshes the hub in-process. It is used when no broker is
// configured, so a single server instance still pushes live snapshots.
type Local struct {
	hub *Hub
}

func NewLocal(hub *Hub) *Local {
	return &Local{hub: hub}
}

func (l *Local) Notify(ctx context.Context, _ Change) error {
	return l.hub.Refresh(ctx)
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Kafka publishes changes to a topic so that every server instance
// refreshes its own hub.
type Kafka struct {
	writer messageWriter
}

// changePartition carries every change so that group-less readers on each
// instance see all of them in order.
const changePartition = 0

func NewKafka(broker, topic string) *Kafka {
	return &Kafka{writer: &kafka.Writer{
		Addr:                   kafka.TCP(broker),
		Topic:                  topic,
		Balancer:               kafka.BalancerFunc(func(kafka.Message, ...int) int { return changePartition }),
		AllowAutoTopicCreation: true,
	}}
}

func (k *Kafka) Notify(ctx context.Context, c Change) error {
	const op = "feed.Kafka.Notify"

	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := k.writer.WriteMessages(ctx, kafka.Message{Key: []byte(c.ID), Value: payload}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}

// Consumer reads the change topic and refreshes the hub for each message.
type Consumer struct {
	reader messageReader
	hub    *Hub
	log    logging.Logger
}

// NewConsumer reads the change partition directly, without a consumer group,
// starting from the newest offset. Nothing is committed on the broker, so a
// restarted instance leaves no state behind.
func NewConsumer(broker, topic string, hub *Hub, log logging.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   []string{broker},
		Topic:     topic,
		Partition: changePartition,
	})
	if err := r.SetOffset(kafka.LastOffset); err != nil {
		log.Warn(context.Background(), "could not seek to newest change", "err", err)
	}
	return &Consumer{reader: r, hub: hub, log: log}
}

// Run blocks until ctx is done.
func (c *Consumer) Run(ctx context.Context) {
	defer c.reader.Close()

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			c.log.Error(ctx, "error reading change", "err", err)
			continue
		}

		var change Change
		if err := json.Unmarshal(msg.Value, &change); err != nil {
			c.log.Warn(ctx, "malformed change message", "err", err, "offset", msg.Offset)
		}
		if err := c.hub.Refresh(ctx); err != nil {
			c.log.Error(ctx, "error refreshing snapshot", "err", err, "op", change.Op, "id", change.ID)
		}
	}
}
