package data

// Key identifies one time series. ShardID is advisory: the network layer
// may route by a cached shard assignment instead, but callers always see
// their original ShardID preserved on retried requests.
type Key struct {
    Name string
    ShardID int64
}

type DataPoint struct {
    Key Key
    UnixTime int64
    Value float64
}

// Block is an encoded time-series block. Decoding is the codec's concern,
// the client runtime only moves blocks around.
type Block struct {
    Count int32
    Data []byte
}

type KeyUpdateTime struct {
    Key string
    ShardID int64
    UpdateTime int64
}
