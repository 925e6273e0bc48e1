package usecase

import (
	"context"
	"encoding/json"

	"OTCFeed/internal/domain/models"
	domrepo "OTCFeed/internal/domain/repository"
	mid "OTCFeed/internal/middleware"
	pkgkafka "OTCFeed/pkg/kafka"
)

// KafkaReferenceHandler feeds reference quotes published by an external
// system into the pipeline. Messages are JSON encoded models.ReferenceQuote.
type KafkaReferenceHandler struct {
	topic   string
	pipe    mid.Proc
	metrics domrepo.Metrics
}

func NewKafkaReferenceHandler(topic string, pipe mid.Proc, metrics domrepo.Metrics) *KafkaReferenceHandler {
	return &KafkaReferenceHandler{topic: topic, pipe: pipe, metrics: metrics}
}

func (h *KafkaReferenceHandler) Topic() string { return h.topic }

func (h *KafkaReferenceHandler) Handle(ctx context.Context, b []byte) error {
	var q models.ReferenceQuote
	if err := json.Unmarshal(b, &q); err != nil {
		h.metrics.RecordError("reference_unmarshal")
		return err
	}
	return h.pipe.Process(ctx, &q)
}

var _ pkgkafka.MessageHandler = (*KafkaReferenceHandler)(nil)
