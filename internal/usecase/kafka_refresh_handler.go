package usecase

import (
	"context"
	"encoding/json"

	domrepo "FinCache/internal/domain/repository"
	pkgkafka "FinCache/pkg/kafka"
)

// KafkaRefreshHandler consumes refresh requests from a Kafka topic and
// feeds them into the same refresh path as the scheduler.
type KafkaRefreshHandler struct {
	topic   string
	job     *RefreshJob
	metrics domrepo.Metrics
}

func NewKafkaRefreshHandler(topic string, job *RefreshJob, m domrepo.Metrics) *KafkaRefreshHandler {
	return &KafkaRefreshHandler{topic: topic, job: job, metrics: m}
}

func (h *KafkaRefreshHandler) Topic() string { return h.topic }

func (h *KafkaRefreshHandler) Handle(ctx context.Context, b []byte) error {
	var req RefreshRequest
	if err := json.Unmarshal(b, &req); err != nil {
		h.metrics.RecordError("refresh_unmarshal")
		return err
	}
	if err := h.job.Run(ctx, &req); err != nil {
		h.metrics.RecordError("refresh_run")
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaRefreshHandler)(nil)
