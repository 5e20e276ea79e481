// Package sink forwards every device-state change to external systems.
package sink

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/synheart/synheart-stress/internal/encoding"
	"github.com/synheart/synheart-stress/internal/models"
)

// DefaultPublishTimeout bounds one publish to one sink.
const DefaultPublishTimeout = 2 * time.Second

// Sink publishes encoded snapshots.
type Sink interface {
	Name() string
	Publish(ctx context.Context, payload []byte, snap models.Snapshot) error
	Close() error
}

// Forwarder drains a subscriber channel into a set of sinks. A failing sink
// is logged and skipped; it never holds back the others.
type Forwarder struct {
	sinks   []Sink
	encoder encoding.Encoder
	timeout time.Duration
	logger  *zap.Logger
}

// NewForwarder creates a forwarder. Snapshots are JSON encoded.
func NewForwarder(logger *zap.Logger, sinks ...Sink) *Forwarder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Forwarder{
		sinks:   sinks,
		encoder: encoding.NewJSONEncoder(),
		timeout: DefaultPublishTimeout,
		logger:  logger,
	}
}

// Run blocks until ctx is cancelled or snaps closes.
func (f *Forwarder) Run(ctx context.Context, snaps <-chan models.Snapshot) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snap, ok := <-snaps:
			if !ok {
				return nil
			}
			f.forward(ctx, snap)
		}
	}
}

func (f *Forwarder) forward(ctx context.Context, snap models.Snapshot) {
	payload, err := f.encoder.Encode(snap)
	if err != nil {
		f.logger.Error("encode snapshot", zap.Error(err))
		return
	}
	for _, s := range f.sinks {
		pctx, cancel := context.WithTimeout(ctx, f.timeout)
		if err := s.Publish(pctx, payload, snap); err != nil {
			f.logger.Warn("sink publish failed", zap.String("sink", s.Name()), zap.Error(err))
		}
		cancel()
	}
}

// Close closes every sink.
func (f *Forwarder) Close() error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
