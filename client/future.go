package client

import (
    "context"
    "sync"
    "time"

    "github.com/google/uuid"

    . "github.com/PelionIoT/historiandb/data"
    . "github.com/PelionIoT/historiandb/logging"
)

// GetOutcome is the settled value of a FutureGet.
type GetOutcome struct {
    Result GetResult
    Err error
}

// ScanShardOutcome is the settled value of a FutureScanShard.
type ScanShardOutcome struct {
    Result ScanShardResult
    Err error
}

// futureContext carries the per-operation state shared by the parallel read
// paths: the service snapshot, the "one full copy arrived" signal and the
// set of in-flight subrequests.
type futureContext struct {
    operationID string
    readClients []NetworkClient
    clientNames []string

    oneComplete chan struct{}
    completeOnce sync.Once

    subrequests sync.WaitGroup
}

func (client *Client) newFutureContext(parallel bool, serviceOverride string) (*futureContext, error) {
    // For non-parallel operation take all clients and truncate. Not worth
    // micro-optimizing a separate single-service snapshot outside the
    // normal path.
    readClients, err := client.getAllReadClients(serviceOverride)

    if err != nil {
        return nil, err
    }

    if !parallel && len(readClients) > 1 {
        readClients = readClients[:1]
    }

    clientNames := make([]string, len(readClients))

    for i, readClient := range readClients {
        clientNames[i] = readClient.ServiceName()
    }

    return &futureContext{
        operationID: uuid.New().String(),
        readClients: readClients,
        clientNames: clientNames,
        oneComplete: make(chan struct{}),
    }, nil
}

func (fc *futureContext) signalOneComplete() {
    fc.completeOnce.Do(func() {
        close(fc.oneComplete)
    })
}

// graceWindow is how long a read keeps waiting for better copies after the
// first full copy arrived: one RPC deadline, so a straggler that would have
// answered anyway still can, but a dead service can't stall the read.
func (fc *futureContext) graceWindow() time.Duration {
    window := time.Duration(0)

    for _, readClient := range fc.readClients {
        if timeout := readClient.Timeout(); timeout > window {
            window = timeout
        }
    }

    if window == 0 {
        window = defaultRPCTimeout
    }

    return window
}

// awaitFinalize blocks until every subrequest settled, or one full copy
// arrived and the grace window elapsed, whichever happens first.
func (fc *futureContext) awaitFinalize(ctx context.Context) {
    allDone := make(chan struct{})

    go func() {
        fc.subrequests.Wait()
        close(allDone)
    }()

    select {
    case <-allDone:
    case <-ctx.Done():
    case <-fc.oneComplete:
        timer := time.NewTimer(fc.graceWindow())
        defer timer.Stop()

        select {
        case <-allDone:
        case <-timer.C:
        case <-ctx.Done():
        }
    }
}

// FutureGet fans the read out to every active read service in parallel and
// returns a channel that settles with the merged result. The read completes
// as soon as one full copy of the data exists and the grace window passed,
// or when every subrequest settled. Late responses are discarded.
func (client *Client) FutureGet(ctx context.Context, request GetDataRequest, serviceOverride string) <-chan GetOutcome {
    out := make(chan GetOutcome, 1)

    go func() {
        fc, err := client.newFutureContext(true, serviceOverride)

        if err != nil {
            out <- GetOutcome{ Err: err }

            return
        }

        collector := NewGetResultCollector(len(request.Keys), len(fc.readClients), request.Begin, request.End)

        rpcCtx, cancelRPCs := context.WithCancel(ctx)
        defer cancelRPCs()

        for clientIndex, readClient := range fc.readClients {
            // Partition the key set into per-host subrequests using this
            // service's shard cache.
            requests := MultiGetRequestMap{}

            for keyIndex, key := range request.Keys {
                readClient.AddKeyToMultiGetRequest(keyIndex, key, requests)
            }

            for host, entry := range requests {
                entry.Request.Begin = request.Begin
                entry.Request.End = request.End

                fc.subrequests.Add(1)

                go func(readClient NetworkClient, clientIndex int, host string, entry *MultiGetRequestEntry) {
                    defer fc.subrequests.Done()

                    result, err := readClient.PerformGetAtHost(rpcCtx, host, entry.Request)

                    if err != nil {
                        Log.Errorf("Read %s: get from host %s of service %s failed: %v", fc.operationID, host, readClient.ServiceName(), err.Error())

                        return
                    }

                    if collector.AddResults(result, entry.KeyIndices, clientIndex) {
                        fc.signalOneComplete()
                    }
                }(readClient, clientIndex, host, entry)
            }
        }

        fc.awaitFinalize(ctx)

        // Whatever is still in flight lands in a finalized collector and
        // has no effect on the returned value.
        result, err := collector.Finalize(client.config.StrictReads, fc.clientNames)

        out <- GetOutcome{ Result: result, Err: err }
    }()

    return out
}

// Get is the blocking form of FutureGet.
func (client *Client) Get(ctx context.Context, request GetDataRequest, serviceOverride string) (GetResult, error) {
    outcome := <-client.FutureGet(ctx, request, serviceOverride)

    return outcome.Result, outcome.Err
}
