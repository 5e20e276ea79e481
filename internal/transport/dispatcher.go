package transport

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/synheart/synheart-stress/internal/models"
)

// Dispatcher copies snapshots from the device-state change feed to multiple
// subscribers. When a subscriber's buffer is full the snapshot is dropped for
// that subscriber so a slow client never stalls ingestion.
type Dispatcher struct {
	source       <-chan models.Snapshot
	subscribers  []chan models.Snapshot
	bufferSize   int
	mu           sync.Mutex
	droppedTotal atomic.Int64
	logger       *zap.Logger
}

func NewDispatcher(source <-chan models.Snapshot, bufferSize int, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		source:      source,
		subscribers: make([]chan models.Snapshot, 0),
		bufferSize:  bufferSize,
		logger:      logger,
	}
}

// Subscribe returns a channel that receives copies of all source snapshots.
// Subscribers should be added before calling Run() to see every snapshot.
func (d *Dispatcher) Subscribe() <-chan models.Snapshot {
	ch := make(chan models.Snapshot, d.bufferSize)
	d.mu.Lock()
	d.subscribers = append(d.subscribers, ch)
	d.mu.Unlock()
	return ch
}

// GetSubscriberCount returns the current number of subscribers.
func (d *Dispatcher) GetSubscriberCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.subscribers)
}

// GetDroppedCount returns the total number of snapshots dropped because a
// subscriber buffer was full.
func (d *Dispatcher) GetDroppedCount() int64 {
	return d.droppedTotal.Load()
}

// Run blocks until ctx is cancelled or source closes
func (d *Dispatcher) Run(ctx context.Context) {
	defer d.closeSubscribers()

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-d.source:
			if !ok {
				return
			}
			d.dispatch(ctx, snap)
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, snap models.Snapshot) {
	d.mu.Lock()
	subs := d.subscribers
	d.mu.Unlock()

	dropped := 0
	for _, sub := range subs {
		select {
		case sub <- snap:
		case <-ctx.Done():
			return
		default:
			dropped++
			d.droppedTotal.Add(1)
		}
	}

	if dropped > 0 {
		d.logger.Warn("dropped snapshot (buffer full)",
			zap.String("reading_id", snap.ReadingID),
			zap.Int("subscribers", dropped))
	}
}

func (d *Dispatcher) closeSubscribers() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, sub := range d.subscribers {
		close(sub)
	}
}
