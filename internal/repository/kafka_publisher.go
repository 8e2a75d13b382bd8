package repository

import (
	"context"

	"FinCache/internal/domain/models"
	"FinCache/internal/domain/repository"
	pkgkafka "FinCache/pkg/kafka"
)

// KafkaPublisher emits ingest events so downstream consumers can react
// to freshly merged data without polling the store.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) repository.Publisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) PublishIngest(ctx context.Context, ev *models.IngestEvent) error {
	// Key by identity so events for one ticker or query stay ordered
	// within a partition.
	return p.producer.Publish(ctx, p.topic, []byte(ev.Kind+":"+ev.Identity), ev)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
