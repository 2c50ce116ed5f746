package util

import (
    "sync/atomic"

    . "github.com/PelionIoT/historiandb/data"
)

// BoundedQueue is a bounded MPMC queue of data point batches. Producers never
// block: Push reports failure when every slot is taken. Consumers block in
// Pop until a batch or a shutdown marker arrives.
//
// A nil batch is a shutdown marker. Flush inserts one marker per consumer so
// that each draining worker observes exactly one.
type BoundedQueue struct {
    batches chan []DataPoint
    size int64
}

func NewBoundedQueue(numSlots int) *BoundedQueue {
    return &BoundedQueue{
        batches: make(chan []DataPoint, numSlots),
    }
}

// Push enqueues a batch without blocking. It returns false if the queue is
// full and the batch was not enqueued.
func (queue *BoundedQueue) Push(points []DataPoint) bool {
    if len(points) == 0 {
        return true
    }

    select {
    case queue.batches <- points:
        atomic.AddInt64(&queue.size, int64(len(points)))

        return true
    default:
        return false
    }
}

// Pop blocks until at least one batch is available, then feeds data points to
// the visitor one at a time. A popped batch is always visited in full. After
// each batch Pop keeps draining additional batches without blocking for as
// long as the visitor keeps returning true.
//
// The returned flag is false once a shutdown marker was consumed. The count
// is the number of data points visited, which can be non-zero even on
// shutdown if batches were drained before the marker.
func (queue *BoundedQueue) Pop(visitor func(dp DataPoint) bool) (bool, int) {
    var count int = 0

    batch, keepRunning := <-queue.batches, true

    for {
        if batch == nil {
            return false, count
        }

        atomic.AddInt64(&queue.size, -int64(len(batch)))

        var wantMore bool = true

        for _, dp := range batch {
            if !visitor(dp) {
                wantMore = false
            }

            count++
        }

        if !wantMore {
            return keepRunning, count
        }

        select {
        case batch = <-queue.batches:
        default:
            return keepRunning, count
        }
    }
}

// Flush posts n shutdown markers, blocking until each one is accepted. Any
// batches already queued are drained by the consumers before they observe a
// marker since the queue is FIFO.
func (queue *BoundedQueue) Flush(n int) {
    for i := 0; i < n; i++ {
        queue.batches <- nil
    }
}

// Size returns the number of data points currently buffered.
func (queue *BoundedQueue) Size() int {
    return int(atomic.LoadInt64(&queue.size))
}
