package client

import (
    "sync/atomic"
    "time"

    . "github.com/PelionIoT/historiandb/data"
    . "github.com/PelionIoT/historiandb/logging"
    "github.com/PelionIoT/historiandb/stats"
)

// writeDataPointsForever drains one write queue until a shutdown marker is
// observed. Several writer threads may drain the same queue concurrently:
// batches stay atomic but points are not globally ordered across threads.
func (client *Client) writeDataPointsForever(writeClient *WriteClient) {
    keepWriting := true

    for keepWriting {
        requests := PutRequestMap{}
        var droppedDataPoints []DataPoint

        keepRunning, count := writeClient.Queue.Pop(func(dp DataPoint) bool {
            // Add each popped data point to the right per-host request.
            addMorePoints, dropped := writeClient.Client.AddDataPointToRequest(dp, requests)

            if dropped {
                droppedDataPoints = append(droppedDataPoints, dp)
            }

            return addMorePoints && len(droppedDataPoints) < maxRetryBatchSize
        })

        if !keepRunning {
            Log.Warningf("Shutting down writer thread for service %s", writeClient.Client.ServiceName())

            keepWriting = false
        }

        if count == 0 {
            continue
        }

        // Send all the popped data points.
        dropped := client.putWithStats(writeClient.Client, count - len(droppedDataPoints), requests)

        if len(dropped) > 0 {
            droppedDataPoints = append(droppedDataPoints, dropped...)
        }

        if len(droppedDataPoints) > 0 {
            // Retry the failed data points in another thread after a delay
            // to allow the server to come back up if it's down.
            droppedCount := len(droppedDataPoints)

            op := RetryOperation{
                client: writeClient.Client,
                dataPoints: droppedDataPoints,
                retryTime: time.Now().Add(client.config.RetryDelay),
            }

            if !client.enqueueRetry(op) {
                client.logDroppedDataPoints(writeClient.Client, droppedCount, "retry queue is full")
                stats.AddRetryQueueWriteFailure()
            } else {
                stats.AddPutRetry(writeClient.Client.ServiceName(), droppedCount)
            }
        }

        queueSize := writeClient.Queue.Size()
        stats.SetQueueSize(writeClient.Client.ServiceName(), queueSize)

        // Wait for a bit if there isn't much in the queue.
        if queueSize < client.config.MinQueueSize {
            time.Sleep(client.config.SleepPerPut)
        }
    }
}

func (client *Client) enqueueRetry(op RetryOperation) bool {
    droppedCount := int64(len(op.dataPoints))

    if atomic.LoadInt64(&client.retryPendingCount) + droppedCount >= int64(client.config.RetryQueueCapacity) {
        return false
    }

    select {
    case client.retryQueue <- op:
        pending := atomic.AddInt64(&client.retryPendingCount, droppedCount)
        stats.SetRetryQueueSize(int(pending))

        return true
    default:
        return false
    }
}

func (client *Client) putWithStats(networkClient NetworkClient, points int, requests PutRequestMap) []DataPoint {
    start := time.Now()
    dropped := networkClient.PerformPut(requests)

    stats.ObservePutMicros(networkClient.ServiceName(), time.Since(start).Microseconds())
    stats.AddPut(networkClient.ServiceName(), points - len(dropped))

    return dropped
}

func (client *Client) logDroppedDataPoints(networkClient NetworkClient, dropped int, msg string) {
    Log.Warningf("Dropping %d data points for service %s because %s", dropped, networkClient.ServiceName(), msg)
    stats.AddPutDropped(networkClient.ServiceName(), dropped)
}
