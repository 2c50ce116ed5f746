package client

import (
    "context"
    "time"

    . "github.com/PelionIoT/historiandb/data"
)

// PutRequestMap groups outgoing data points by the host that owns their
// shard. Keys are host addresses in host:port form.
type PutRequestMap map[string][]DataPoint

type GetRequestEntry struct {
    Request GetDataRequest
    Result GetDataResult
}

// GetRequestMap is a per-host breakdown of one logical read.
type GetRequestMap map[string]*GetRequestEntry

type MultiGetRequestEntry struct {
    Request GetDataRequest
    // KeyIndices[i] is the position of Request.Keys[i] in the originating
    // request, so responses can be routed back to the right collector slot.
    KeyIndices []int
}

type MultiGetRequestMap map[string]*MultiGetRequestEntry

// NetworkClient is the per-service transport handle. It owns shard-to-host
// routing (with a shard cache that may override a key's advisory shard id),
// request batching limits and the RPC deadline. Implementations live outside
// this package; the suites in this package use mocks.
type NetworkClient interface {
    ServiceName() string
    IsCorrespondingService(serviceName string) bool
    NumShards() int64
    Timeout() time.Duration

    AddKeyToGetRequest(key Key, requests GetRequestMap)
    AddKeyToMultiGetRequest(keyIndex int, key Key, requests MultiGetRequestMap)

    // AddDataPointToRequest places dp into the per-host request map. The
    // first return value is false once the current request cannot take more
    // points. dropped reports that dp could not be placed at all (unknown
    // shard, batch limit) and should go to the retry queue.
    AddDataPointToRequest(dp DataPoint, requests PutRequestMap) (bool, bool)

    // PerformGet executes every per-host request in the map and fills in
    // the paired results.
    PerformGet(requests GetRequestMap)

    // PerformGetAtHost executes a single per-host request. Used by the
    // parallel read path which runs one goroutine per host.
    PerformGetAtHost(ctx context.Context, host string, request GetDataRequest) (GetDataResult, error)

    // PerformPut sends every per-host request and returns the data points
    // the servers refused.
    PerformPut(requests PutRequestMap) []DataPoint

    HostForScanShard(request ScanShardRequest) (string, bool)
    PerformScanShardAtHost(ctx context.Context, host string, request ScanShardRequest) (ScanShardResult, error)

    GetLastUpdateTimes(minLastUpdateTime int64, maxKeysPerRequest int, timeout time.Duration, callback func(keys []KeyUpdateTime) bool)

    InvalidateCache(shardIDs map[int64]bool)
    StopRequests()
}

// DirectoryAdapter lists the services holding copies of the data set and
// validates service names.
type DirectoryAdapter interface {
    ReadServices() ([]string, error)
    WriteServices() ([]string, error)
    ShadowServices() ([]string, error)
    IsValidReadService(serviceName string) bool
    NearestReadService() (string, error)
}

// NetworkClientFactory builds the transport handle for a service. The
// refresher calls it whenever the directory announces a new read service.
type NetworkClientFactory func(serviceName string, shadow bool) (NetworkClient, error)
