package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/types"
)

// Kafka produces each task as JSON to a topic, keyed by entity id so all
// notices for one record stay ordered on a partition.
type Kafka struct {
	client *kgo.Client
	topic  string
}

func NewKafka(brokers []string, topic string, opts ...kgo.Opt) (*Kafka, error) {
	if topic == "" {
		topic = "registrar.notifications"
	}
	all := append([]kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	}, opts...)

	client, err := kgo.NewClient(all...)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}
	return &Kafka{client: client, topic: topic}, nil
}

func (k *Kafka) Dispatch(ctx context.Context, task types.NotificationTask) error {
	if strings.TrimSpace(task.Target) == "" {
		return fmt.Errorf("task %s: %w", task.ID, ErrNoTarget)
	}
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encode task %s: %w", task.ID, err)
	}
	rec := &kgo.Record{Key: []byte(task.EntityID), Value: data}
	if err := k.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("%w: kafka produce: %v", ErrChannelDown, err)
	}
	return nil
}

func (k *Kafka) Reconnect(ctx context.Context) bool {
	return k.client.Ping(ctx) == nil
}

func (k *Kafka) Close() { k.client.Close() }
