package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/talking/chat-server/internal/api/metrics"
	"github.com/talking/chat-server/internal/core/domain"
	"github.com/talking/chat-server/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// Dispatcher persists relayed messages off the delivery path. Messages are
// routed to a fixed set of workers by consistent hashing on the conversation
// key, so each conversation is written in the order it was relayed.
type Dispatcher struct {
	workers []chan domain.Message
	store   ports.MessageRepository
	log     zerolog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, store ports.MessageRepository, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.Message, numWorkers),
		store:   store,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.Message, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. ctx belongs to the dispatcher, not to
// any connection, so a client hanging up never cancels a pending write.
// Workers exit when ctx is cancelled or after Drain.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Persist enqueues msg on the worker responsible for its conversation and
// never blocks. A message is dropped when that worker's buffer is full, which
// happens while the store stalls, and after Drain.
func (d *Dispatcher) Persist(msg domain.Message) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.log.Warn().Str("from", msg.From).Str("to", msg.To).Msg("dispatcher drained, message not persisted")
		metrics.MessagesPersistedTotal.WithLabelValues("dropped").Inc()
		return
	}

	idx := d.shardIndex(domain.ConversationKey(msg.From, msg.To))
	select {
	case d.workers[idx] <- msg:
		metrics.PersistQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
	default:
		metrics.MessagesPersistedTotal.WithLabelValues("dropped").Inc()
		d.log.Error().
			Str("from", msg.From).
			Str("to", msg.To).
			Int("worker_id", idx).
			Msg("persistence queue full, message not persisted")
	}
}

// Drain stops accepting messages and waits until the workers have written
// everything already queued.
func (d *Dispatcher) Drain() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, ch := range d.workers {
		close(ch)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

// shardIndex maps a conversation key deterministically to a worker index.
func (d *Dispatcher) shardIndex(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.Message) {
	defer d.wg.Done()
	workerLabel := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			metrics.PersistQueueDepth.WithLabelValues(workerLabel).Set(float64(len(ch)))
			d.write(ctx, id, msg)
		}
	}
}

func (d *Dispatcher) write(ctx context.Context, id int, msg domain.Message) {
	start := time.Now()
	err := d.store.Append(ctx, &msg)
	metrics.PersistDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.MessagesPersistedTotal.WithLabelValues("error").Inc()
		d.log.Error().Err(err).
			Str("from", msg.From).
			Str("to", msg.To).
			Int("worker_id", id).
			Msg("message persistence failed")
		return
	}
	metrics.MessagesPersistedTotal.WithLabelValues("ok").Inc()
}
