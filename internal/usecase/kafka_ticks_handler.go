package usecase

import (
	"context"
	"fmt"
	"time"

	"OTCFeed/internal/domain/models"
	domrepo "OTCFeed/internal/domain/repository"
	pkgkafka "OTCFeed/pkg/kafka"

	"github.com/valyala/fastjson"
)

// KafkaTicksHandler sinks the published tick topic into storage. The consumer
// runs several workers, so parsers come from a pool.
type KafkaTicksHandler struct {
	topic   string
	storage domrepo.TickStorage
	metrics domrepo.Metrics
	parsers fastjson.ParserPool
}

var _ pkgkafka.MessageHandler = (*KafkaTicksHandler)(nil)

func NewKafkaTicksHandler(topic string, storage domrepo.TickStorage, metrics domrepo.Metrics) *KafkaTicksHandler {
	return &KafkaTicksHandler{topic: topic, storage: storage, metrics: metrics}
}

func (h *KafkaTicksHandler) Topic() string { return h.topic }

func (h *KafkaTicksHandler) Handle(ctx context.Context, b []byte) error {
	t, err := h.decode(b)
	if err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if t.Symbol == "" || t.Timestamp <= 0 || t.Price <= 0 {
		h.metrics.RecordError("consumer_invalid")
		return fmt.Errorf("invalid tick: %+v", t)
	}
	h.metrics.RecordLatency("ingest_e2e", time.Since(t.Time()).Seconds())

	start := time.Now()
	err = h.storage.Store(ctx, &t)
	h.metrics.RecordLatency("ch_insert", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return fmt.Errorf("store %s: %w", t.Symbol, err)
	}
	h.metrics.RecordTick(BackendClickHouse, t.Symbol)
	return nil
}

// decode reads the JSON form of models.Tick.
func (h *KafkaTicksHandler) decode(b []byte) (models.Tick, error) {
	p := h.parsers.Get()
	defer h.parsers.Put(p)

	v, err := p.ParseBytes(b)
	if err != nil {
		return models.Tick{}, fmt.Errorf("decode tick: %w", err)
	}
	return models.Tick{
		Symbol:    string(v.GetStringBytes("symbol")),
		Price:     v.GetFloat64("price"),
		Timestamp: v.GetInt64("timestamp"),
	}, nil
}
