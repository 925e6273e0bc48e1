// Package fake provides in-memory implementations of the domain repository
// interfaces for tests.
package fake

import (
	"context"
	"sort"
	"sync"
	"time"

	"OTCFeed/internal/domain/models"
	"OTCFeed/internal/domain/repository"
)

var (
	_ repository.Metrics       = (*Metrics)(nil)
	_ repository.TickPublisher = (*TickSink)(nil)
	_ repository.TickStorage   = (*TickSink)(nil)
	_ repository.TickCache     = (*TickCache)(nil)
)

// Metrics counts every call.
type Metrics struct {
	mu        sync.Mutex
	Ticks     map[string]int // backend/symbol
	Errors    map[string]int
	LastPrice map[string]float64
	Reference map[string]float64
	Variance  map[string]float64
	Latencies map[string]int
}

func NewMetrics() *Metrics {
	return &Metrics{
		Ticks:     map[string]int{},
		Errors:    map[string]int{},
		LastPrice: map[string]float64{},
		Reference: map[string]float64{},
		Variance:  map[string]float64{},
		Latencies: map[string]int{},
	}
}

func (m *Metrics) RecordTick(backend, symbol string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Ticks[backend+"/"+symbol]++
}

func (m *Metrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors[kind]++
}

func (m *Metrics) RecordLastPrice(symbol string, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastPrice[symbol] = price
}

func (m *Metrics) RecordReferencePrice(symbol string, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reference[symbol] = price
}

func (m *Metrics) RecordVariance(symbol string, variance float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Variance[symbol] = variance
}

func (m *Metrics) RecordLatency(op string, _ float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Latencies[op]++
}

// ErrorCount returns how many errors of kind were recorded.
func (m *Metrics) ErrorCount(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Errors[kind]
}

// TickCount returns how many ticks were recorded for backend and symbol.
func (m *Metrics) TickCount(backend, symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Ticks[backend+"/"+symbol]
}

// TickSink implements TickPublisher and TickStorage.
type TickSink struct {
	mu     sync.Mutex
	ticks  []*models.Tick
	Err    error
	closed bool
}

func (s *TickSink) Publish(_ context.Context, t *models.Tick) error {
	return s.add(t)
}

func (s *TickSink) PublishBatch(_ context.Context, ticks []*models.Tick) error {
	return s.add(ticks...)
}

func (s *TickSink) Store(_ context.Context, t *models.Tick) error {
	return s.add(t)
}

func (s *TickSink) StoreBatch(_ context.Context, ticks []*models.Tick) error {
	return s.add(ticks...)
}

func (s *TickSink) add(ticks ...*models.Tick) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	for _, t := range ticks {
		cp := *t
		s.ticks = append(s.ticks, &cp)
	}
	return nil
}

// Query returns stored ticks for symbol in [from, to], newest first.
func (s *TickSink) Query(_ context.Context, symbol string, from, to time.Time, limit int) ([]*models.Tick, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []*models.Tick
	for _, t := range s.ticks {
		ts := t.Time()
		if t.Symbol == symbol && !ts.Before(from) && !ts.After(to) {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *TickSink) Health(context.Context) error { return s.Err }

func (s *TickSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Ticks returns a copy of everything received.
func (s *TickSink) Ticks() []models.Tick {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Tick, len(s.ticks))
	for i, t := range s.ticks {
		out[i] = *t
	}
	return out
}

func (s *TickSink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// TickCache keeps the last tick per symbol in a map.
type TickCache struct {
	mu   sync.Mutex
	last map[string]models.Tick
	Err  error
}

func NewTickCache() *TickCache {
	return &TickCache{last: map[string]models.Tick{}}
}

func (c *TickCache) SaveLast(_ context.Context, t *models.Tick) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	c.last[t.Symbol] = *t
	return nil
}

func (c *TickCache) LastMany(_ context.Context, symbols []string) (map[string]models.Tick, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	out := map[string]models.Tick{}
	for _, s := range symbols {
		if t, ok := c.last[s]; ok {
			out[s] = t
		}
	}
	return out, nil
}

func (c *TickCache) Forget(_ context.Context, symbol string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.last, symbol)
	return c.Err
}

func (c *TickCache) Last(_ context.Context, symbol string) (*models.Tick, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	t, ok := c.last[symbol]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}
