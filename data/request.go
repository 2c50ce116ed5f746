package data

type GetDataRequest struct {
    Begin int64
    End int64
    Keys []Key
}

type ResultEntry struct {
    Status StatusCode
    Blocks []Block
}

type GetDataResult struct {
    Results []ResultEntry
}

// GetResult is a finalized read. Results[i] holds the blocks for the ith key
// of the originating request and Statuses[i] the status of the best replica
// that served it.
type GetResult struct {
    Results [][]Block
    Statuses []StatusCode
    AllSuccess bool
}

type ScanShardRequest struct {
    ShardID int64
    Begin int64
    End int64
    SubShard int64
    NumSubShards int64
}

type ScanShardResult struct {
    Status StatusCode
    Keys []string
    Blocks [][]Block
}
