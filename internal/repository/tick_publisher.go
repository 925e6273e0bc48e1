package repository

import (
	"context"

	"OTCFeed/internal/domain/models"
	domrepo "OTCFeed/internal/domain/repository"
	pkgkafka "OTCFeed/pkg/kafka"

	"github.com/google/uuid"
)

// batchProducer is the part of pkg/kafka.Producer the publisher uses.
type batchProducer interface {
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
	Close() error
}

// KafkaTickPublisher publishes ticks as JSON keyed by symbol, so each
// symbol stays ordered within its partition.
type KafkaTickPublisher struct {
	producer batchProducer
	topic    string
}

var _ domrepo.TickPublisher = (*KafkaTickPublisher)(nil)

func NewKafkaTickPublisher(producer *pkgkafka.Producer, topic string) *KafkaTickPublisher {
	return &KafkaTickPublisher{producer: producer, topic: topic}
}

func (p *KafkaTickPublisher) Publish(ctx context.Context, t *models.Tick) error {
	return p.PublishBatch(ctx, []*models.Tick{t})
}

func (p *KafkaTickPublisher) PublishBatch(ctx context.Context, ticks []*models.Tick) error {
	if len(ticks) == 0 {
		return nil
	}
	trace := uuid.NewString()
	msgs := make([]pkgkafka.Message, len(ticks))
	for i, t := range ticks {
		msgs[i] = pkgkafka.Message{
			Key:     []byte(t.Symbol),
			Value:   t,
			Headers: map[string]string{"trace_id": trace},
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaTickPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
