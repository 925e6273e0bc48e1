package usecase

import (
	"context"

	"OTCFeed/internal/domain/models"
	drepo "OTCFeed/internal/domain/repository"
	mid "OTCFeed/internal/middleware"
	applogger "OTCFeed/pkg/logger"
)

// ReferenceCollector feeds a reference stream through the pipeline into the updater.
type ReferenceCollector struct {
	stream  drepo.ReferenceStream
	pipe    mid.Proc
	metrics drepo.Metrics
	l       *applogger.Logger
	done    chan struct{}
}

func NewReferenceCollector(stream drepo.ReferenceStream, pipe mid.Proc, metrics drepo.Metrics, l *applogger.Logger) *ReferenceCollector {
	if l == nil {
		l = applogger.Nop()
	}
	return &ReferenceCollector{stream: stream, pipe: pipe, metrics: metrics, l: l}
}

// IsConnected returns true if the reference stream is connected.
func (c *ReferenceCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

// Track subscribes the stream to a base symbol added after startup.
func (c *ReferenceCollector) Track(ctx context.Context, base string) error {
	if base == "" {
		return nil
	}
	return c.stream.SubscribeSymbol(ctx, base)
}

func (c *ReferenceCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	c.done = make(chan struct{})
	go c.run(ctx)
	return nil
}

func (c *ReferenceCollector) run(ctx context.Context) {
	defer close(c.done)
	for {
		quotes, errs := c.stream.Read(ctx)
		c.consume(ctx, quotes, errs)
		if ctx.Err() != nil {
			return
		}
		c.metrics.RecordError("stream")
		for {
			err := c.stream.Reconnect(ctx)
			if err == nil {
				break
			}
			if ctx.Err() != nil {
				return
			}
			c.l.Warn("reference stream reconnect failed", applogger.Error(err))
		}
		c.l.Info("reference stream reconnected")
	}
}

// consume returns once the stream reports an error or closes.
func (c *ReferenceCollector) consume(ctx context.Context, quotes <-chan *models.ReferenceQuote, errs <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errs:
			if ok && err != nil {
				c.l.Warn("reference stream error", applogger.Error(err))
				return
			}
			if !ok {
				errs = nil
			}
		case q, ok := <-quotes:
			if !ok {
				return
			}
			if q == nil {
				continue
			}
			if err := c.pipe.Process(ctx, q); err != nil {
				c.l.Debug("reference quote rejected", applogger.String("symbol", q.Symbol), applogger.Error(err))
			}
		}
	}
}

// Shutdown closes the stream and waits for the read loop.
func (c *ReferenceCollector) Shutdown(ctx context.Context) error {
	err := c.stream.Close()
	if c.done == nil {
		return err
	}
	select {
	case <-c.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return err
}
