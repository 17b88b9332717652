package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/angelmondragon/teahouse-backend/pkg/logger"
)

const writeTimeout = 5 * time.Second

// ErrWriterClosed is returned by Flush after Close.
var ErrWriterClosed = errors.New("cart writer closed")

type writeOp struct {
	remove  bool
	payload string
}

func (op writeOp) name() string {
	if op.remove {
		return "remove"
	}
	return "set"
}

// writer drains a single-slot mailbox on its own goroutine. A newer op
// replaces an unwritten older one, so storage only ever moves forward.
type writer struct {
	kv       KV
	key      string
	logg     *logger.Logger
	observer PersistObserver

	mu      sync.Mutex
	pending *writeOp
	waiters []chan error
	closed  bool

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

func newWriter(kv KV, key string, logg *logger.Logger, observer PersistObserver) *writer {
	w := &writer{
		kv:       kv,
		key:      key,
		logg:     logg,
		observer: observer,
		wake:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *writer) schedule(op writeOp) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.pending = &op
	w.mu.Unlock()
	w.signal()
}

// flush returns once every op scheduled before the call has been attempted.
// The error is the outcome of the last write attempted in that cycle.
func (w *writer) flush(ctx context.Context) error {
	ch := make(chan error, 1)
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrWriterClosed
	}
	w.waiters = append(w.waiters, ch)
	w.mu.Unlock()
	w.signal()

	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *writer) close(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()
	close(w.stop)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *writer) signal() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *writer) run() {
	defer close(w.done)
	for {
		select {
		case <-w.wake:
			w.drain()
		case <-w.stop:
			w.drain()
			return
		}
	}
}

func (w *writer) drain() {
	for {
		w.mu.Lock()
		op := w.pending
		waiters := w.waiters
		w.pending = nil
		w.waiters = nil
		w.mu.Unlock()

		if op == nil && len(waiters) == 0 {
			return
		}

		var err error
		if op != nil {
			err = w.write(*op)
		}
		for _, ch := range waiters {
			ch <- err
		}
	}
}

func (w *writer) write(op writeOp) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	var err error
	if op.remove {
		err = w.kv.Remove(ctx, w.key)
	} else {
		err = w.kv.Set(ctx, w.key, op.payload)
	}
	if w.observer != nil {
		w.observer.ObserveCartPersist(op.name(), err)
	}
	if err != nil {
		w.logg.Warn(w.logg.WithFields(ctx, map[string]any{
			"storage_key": w.key,
			"op":          op.name(),
			"error":       err.Error(),
		}), "cart.storage.write_failed")
	}
	return err
}
