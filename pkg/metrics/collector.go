package metrics

import (
	"time"

	"github.com/cuemby/promptrelay/pkg/types"
)

// QueueSampler is the subset of pkg/scheduler.Scheduler the Collector needs.
// Defined here rather than imported so pkg/metrics never depends on
// pkg/scheduler or pkg/store — pkg/store depends on pkg/metrics instead.
type QueueSampler interface {
	PriorityCounts() map[types.Priority]int
}

// ThreadSampler is the subset of pkg/store.Store the Collector needs.
type ThreadSampler interface {
	ThreadCount() int
}

// Collector periodically samples gauge-shaped state (queue depth, thread
// count) that isn't naturally updated at the point of mutation.
type Collector struct {
	queue   QueueSampler
	threads ThreadSampler
	stopCh  chan struct{}
}

// NewCollector builds a Collector sampling queue and threads every interval.
func NewCollector(queue QueueSampler, threads ThreadSampler) *Collector {
	return &Collector{
		queue:   queue,
		threads: threads,
		stopCh:  make(chan struct{}),
	}
}

// Start begins periodic sampling in a background goroutine.
func (c *Collector) Start(interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop halts sampling. Idempotent is not guaranteed; call once.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	counts := c.queue.PriorityCounts()
	QueueDepth.WithLabelValues(string(types.PriorityHigh)).Set(float64(counts[types.PriorityHigh]))
	QueueDepth.WithLabelValues(string(types.PriorityNormal)).Set(float64(counts[types.PriorityNormal]))
	QueueDepth.WithLabelValues(string(types.PriorityLow)).Set(float64(counts[types.PriorityLow]))

	ThreadsTotal.Set(float64(c.threads.ThreadCount()))
}
