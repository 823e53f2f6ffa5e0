package results

import (
	"context"

	"github.com/RyanBlaney/phrasebound/logging"
)

// Aggregator is the single writer in front of a Sink. Workers submit
// entries over a channel and one goroutine performs every write. Entries
// whose write failed stay in a backlog and are retried with the next write
// and on Close.
type Aggregator struct {
	ctx  context.Context
	sink Sink
	in   chan SongEntry
	done chan struct{}

	// owned by the run goroutine until done is closed
	backlog []SongEntry
	written int
	lastErr error
}

// NewAggregator starts the writer goroutine. ctx is used for every sink
// write.
func NewAggregator(ctx context.Context, sink Sink, buffer int) *Aggregator {
	a := &Aggregator{
		ctx:  ctx,
		sink: sink,
		in:   make(chan SongEntry, max(buffer, 0)),
		done: make(chan struct{}),
	}
	go a.run()
	return a
}

// Submit queues an entry. It must not be called after Close.
func (a *Aggregator) Submit(ctx context.Context, entry SongEntry) error {
	select {
	case a.in <- entry:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Aggregator) run() {
	defer close(a.done)
	logger := logging.WithContext(a.ctx).WithFields(logging.Fields{
		"component": "results_aggregator",
	})

	for entry := range a.in {
		a.flush(logger, append(a.backlog, entry))
	}
	if len(a.backlog) > 0 {
		a.flush(logger, a.backlog)
	}
}

func (a *Aggregator) flush(logger logging.Logger, batch []SongEntry) {
	if err := a.sink.Append(a.ctx, batch...); err != nil {
		a.backlog = batch
		a.lastErr = err
		logger.Error(err, "Results write failed, keeping entries in backlog", logging.Fields{
			"backlog": len(batch),
		})
		return
	}
	a.written += len(batch)
	a.backlog = nil
	a.lastErr = nil
}

// Close stops accepting entries, waits for pending writes and returns the
// entries that could not be written along with the last sink error
func (a *Aggregator) Close() ([]SongEntry, error) {
	close(a.in)
	<-a.done
	return a.backlog, a.lastErr
}

// Written waits for the writer goroutine to finish and returns the number of
// entries persisted
func (a *Aggregator) Written() int {
	<-a.done
	return a.written
}
