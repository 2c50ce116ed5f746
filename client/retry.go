package client

import (
    "sync/atomic"
    "time"

    . "github.com/PelionIoT/historiandb/data"
    . "github.com/PelionIoT/historiandb/logging"
    "github.com/PelionIoT/historiandb/stats"
    "github.com/PelionIoT/historiandb/util"
)

// RetryOperation is one failed batch waiting to be sent again. An operation
// with no data points is a shutdown marker for a retry thread.
type RetryOperation struct {
    client NetworkClient
    dataPoints []DataPoint
    retryTime time.Time
}

// retryWorker re-sends failed batches after their delay elapses. The retry
// queue is strict FIFO with a constant delay, so the head operation always
// has the earliest deadline and sleeping on it never starves a later one.
func (client *Client) retryWorker() {
    for {
        op := <-client.retryQueue

        pending := atomic.AddInt64(&client.retryPendingCount, -int64(len(op.dataPoints)))
        stats.SetRetryQueueSize(int(pending))

        if len(op.dataPoints) == 0 {
            Log.Infof("Shutting down retry thread")

            break
        }

        batchID := util.UUID64()

        if time.Now().Sub(op.retryTime) > retryThreshold {
            Log.Warningf("Skipping retry batch %016x: data points are too old", batchID)
            client.logDroppedDataPoints(op.client, len(op.dataPoints), "data points are too old")

            continue
        }

        if wait := time.Until(op.retryTime); wait > 0 {
            // Sleeping is fine because it's a FIFO queue with a constant
            // delay.
            time.Sleep(wait)
        }

        // Rebuild the per-host requests. The shard cache may have moved
        // some keys since the original attempt.
        requests := PutRequestMap{}
        totalDropped := 0

        for _, dp := range op.dataPoints {
            _, dropped := op.client.AddDataPointToRequest(dp, requests)

            if dropped {
                totalDropped++
            }
        }

        dropped := client.putWithStats(op.client, len(op.dataPoints) - totalDropped, requests)
        totalDropped += len(dropped)

        // No recursive retries: whatever the second attempt drops is gone.
        if totalDropped > 0 {
            Log.Warningf("Retry batch %016x still dropped %d points", batchID, totalDropped)
            client.logDroppedDataPoints(op.client, totalDropped, "retry send failed")
        }
    }
}
