package client

import (
    "context"
    "sync"

    . "github.com/PelionIoT/historiandb/data"
    . "github.com/PelionIoT/historiandb/errors"
    . "github.com/PelionIoT/historiandb/logging"
)

// ScanShardResultCollector tracks per-service results for one whole-shard
// scan. A scan needs a single service to answer fully, so the "one full
// copy" signal is simply the first OK result.
type ScanShardResultCollector struct {
    mu sync.Mutex
    request ScanShardRequest
    results []*ScanShardResult
    signaled bool
    finalized bool
}

func NewScanShardResultCollector(numServices int, request ScanShardRequest) *ScanShardResultCollector {
    return &ScanShardResultCollector{
        request: request,
        results: make([]*ScanShardResult, numServices),
    }
}

func (collector *ScanShardResultCollector) AddResult(result ScanShardResult, service int) bool {
    collector.mu.Lock()
    defer collector.mu.Unlock()

    if collector.finalized {
        return false
    }

    if result.Status == StatusBucketNotFinalized {
        Log.Criticalf("Received BUCKET_NOT_FINALIZED scanning shard %d", collector.request.ShardID)

        panic("protocol violation: BUCKET_NOT_FINALIZED on the client read path")
    }

    collector.results[service] = &result

    if result.Status == StatusOK && !collector.signaled {
        collector.signaled = true

        return true
    }

    return false
}

func (collector *ScanShardResultCollector) Finalize(strict bool, serviceNames []string) (ScanShardResult, error) {
    collector.mu.Lock()
    defer collector.mu.Unlock()

    collector.finalized = true

    for _, result := range collector.results {
        if result != nil && result.Status == StatusOK {
            return *result, nil
        }
    }

    Log.Warningf("Scan of shard %d finalized without a full copy across services %v", collector.request.ShardID, serviceNames)

    if strict {
        return ScanShardResult{ Status: StatusRPCFail }, EReadFailed
    }

    // Best effort: hand back the first response we do have.
    for _, result := range collector.results {
        if result != nil {
            return *result, nil
        }
    }

    return ScanShardResult{ Status: StatusRPCFail }, nil
}

// FutureScanShard scans one whole shard. With ParallelScanShard enabled the
// scan fans out to every read service and completes on the first full
// answer plus a grace window; otherwise only the first service is asked.
func (client *Client) FutureScanShard(ctx context.Context, request ScanShardRequest, serviceOverride string) <-chan ScanShardOutcome {
    out := make(chan ScanShardOutcome, 1)

    go func() {
        fc, err := client.newFutureContext(client.config.ParallelScanShard, serviceOverride)

        if err != nil {
            out <- ScanShardOutcome{ Err: err }

            return
        }

        collector := NewScanShardResultCollector(len(fc.readClients), request)

        rpcCtx, cancelRPCs := context.WithCancel(ctx)
        defer cancelRPCs()

        for clientIndex, readClient := range fc.readClients {
            host, ok := readClient.HostForScanShard(request)

            if !ok {
                Log.Errorf("Scan %s: no host owns shard %d in service %s", fc.operationID, request.ShardID, readClient.ServiceName())

                continue
            }

            fc.subrequests.Add(1)

            go func(readClient NetworkClient, clientIndex int, host string) {
                defer fc.subrequests.Done()

                result, err := readClient.PerformScanShardAtHost(rpcCtx, host, request)

                if err != nil {
                    Log.Errorf("Scan %s: shard %d from host %s of service %s failed: %v", fc.operationID, request.ShardID, host, readClient.ServiceName(), err.Error())

                    return
                }

                if collector.AddResult(result, clientIndex) {
                    fc.signalOneComplete()
                }
            }(readClient, clientIndex, host)
        }

        fc.awaitFinalize(ctx)

        result, err := collector.Finalize(client.config.StrictReads, fc.clientNames)

        out <- ScanShardOutcome{ Result: result, Err: err }
    }()

    return out
}

// ScanShard is the blocking form of FutureScanShard.
func (client *Client) ScanShard(ctx context.Context, request ScanShardRequest, serviceOverride string) (ScanShardResult, error) {
    outcome := <-client.FutureScanShard(ctx, request, serviceOverride)

    return outcome.Result, outcome.Err
}
