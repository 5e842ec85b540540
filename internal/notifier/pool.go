package notifier

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"

	rtsup "wifimgr/internal/runtime/supervisor"
	logx "wifimgr/pkg/logx"
)

var (
	ErrQueueFull = errors.New("notifier queue full")
	ErrStopped   = errors.New("notifier stopped")
)

// job is one remote send. key pins it to a worker.
type job struct {
	key string
	run func(ctx context.Context)
}

// pool is a fixed set of sender workers, each with its own queue.
// Jobs with the same key always land on the same worker, so they run in
// submission order.
type pool struct {
	log logx.Logger

	mu        sync.Mutex
	accepting bool
	sendWG    sync.WaitGroup

	queues []chan job
	// lanes pins each known key to its own worker.
	lanes map[string]int
	sup   *rtsup.Supervisor
}

// newPool starts at least workers loops and one more for every lane key
// beyond that, so a stalled destination only holds up its own queue. Keys
// that are not lanes share workers by hash.
func newPool(ctx context.Context, workers, queueSize int, log logx.Logger, lanes ...string) *pool {
	if workers <= 0 {
		workers = 2
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	perWorker := max(queueSize/workers, 1)

	p := &pool{log: log, accepting: true, lanes: make(map[string]int, len(lanes))}
	for _, k := range lanes {
		if _, ok := p.lanes[k]; !ok {
			p.lanes[k] = len(p.lanes)
		}
	}
	workers = max(workers, len(p.lanes))
	p.sup = rtsup.New(ctx,
		rtsup.WithLogger(log),
		// a failed send must not take anything else down.
		rtsup.WithCancelOnError(false),
	)
	p.queues = make([]chan job, workers)
	for i := range p.queues {
		q := make(chan job, perWorker)
		p.queues[i] = q
		p.sup.GoRestart(fmt.Sprintf("sender.%d", i), func(c context.Context) error {
			return p.workerLoop(c, q)
		})
	}
	return p
}

// submit queues j without blocking.
func (p *pool) submit(j job) error {
	p.mu.Lock()
	if !p.accepting {
		p.mu.Unlock()
		return ErrStopped
	}
	q := p.queues[p.index(j.key)]
	p.sendWG.Add(1)
	p.mu.Unlock()
	defer p.sendWG.Done()

	select {
	case q <- j:
		return nil
	default:
		return ErrQueueFull
	}
}

func (p *pool) index(key string) int {
	if i, ok := p.lanes[key]; ok {
		return i
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(p.queues)))
}

// workerLoop returns nil when its queue is closed. A panic inside a job
// surfaces as an error and the supervisor restarts the loop.
func (p *pool) workerLoop(ctx context.Context, q <-chan job) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case j, ok := <-q:
			if !ok {
				return nil
			}
			j.run(ctx)
		}
	}
}

// stop closes intake and lets workers drain until ctx is done, then
// cancels whatever is still in flight.
func (p *pool) stop(ctx context.Context) {
	p.mu.Lock()
	if !p.accepting {
		p.mu.Unlock()
		return
	}
	p.accepting = false
	p.mu.Unlock()

	// No submit is between Add and its channel send once this returns.
	p.sendWG.Wait()
	for _, q := range p.queues {
		close(q)
	}
	if err := p.sup.Wait(ctx); err != nil && ctx.Err() != nil {
		p.log.Debug("sender pool drain abandoned", logx.Err(err))
	}
	p.sup.Cancel()
}
