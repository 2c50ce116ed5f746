package client

import (
    . "github.com/PelionIoT/historiandb/data"
    . "github.com/PelionIoT/historiandb/errors"
    . "github.com/PelionIoT/historiandb/logging"
    "github.com/PelionIoT/historiandb/stats"
)

// getWithClient runs one read against one service and buckets every response
// key by what should happen to it next. Found keys are appended to foundKeys
// in response order, so the caller's key list ends up aligned with the
// result entries. Keys that failed transiently go to failedKeys. Shards that
// are still loading (or known to have gaps) go to inProgressKeys or
// partialDataKeys when the caller provided them; with a nil destination they
// count as success if the response carried any data.
func (client *Client) getWithClient(readClient NetworkClient, request GetDataRequest, result *GetDataResult, foundKeys *[]Key, failedKeys *[]Key, inProgressKeys *[]Key, partialDataKeys *[]Key) {
    requests := GetRequestMap{}

    // Break this up into requests per host.
    for _, key := range request.Keys {
        readClient.AddKeyToGetRequest(key, requests)
    }

    for _, entry := range requests {
        entry.Request.Begin = request.Begin
        entry.Request.End = request.End
    }

    readClient.PerformGet(requests)

    for _, entry := range requests {
        req := &entry.Request
        res := &entry.Result

        // A server returning fewer keys than asked for is not retried.
        // This should not happen.
        if len(req.Keys) != len(res.Results) {
            Log.Errorf("Mismatch between number of request keys: %d and result size: %d", len(req.Keys), len(res.Results))
        }

        n := len(res.Results)

        if len(req.Keys) < n {
            n = len(req.Keys)
        }

        for i := 0; i < n; i++ {
            switch res.Results[i].Status {
            case StatusOK:
                result.Results = append(result.Results, res.Results[i])
                *foundKeys = append(*foundKeys, req.Keys[i])
            case StatusKeyMissing:
                // Don't retry on a missing key
            case StatusRPCFail, StatusStorageFail, StatusDontOwnShard:
                *failedKeys = append(*failedKeys, req.Keys[i])
            case StatusShardInProgress:
                if inProgressKeys != nil {
                    *inProgressKeys = append(*inProgressKeys, req.Keys[i])
                } else if len(res.Results[i].Blocks) > 0 {
                    // The caller doesn't want in progress keys. Treat the
                    // result as success if there was any data.
                    result.Results = append(result.Results, res.Results[i])
                    *foundKeys = append(*foundKeys, req.Keys[i])
                }
            case StatusMissingTooMuchData:
                stats.AddRedirectForMissingData()

                if partialDataKeys != nil {
                    Log.Infof("Another service holds a more complete copy of %s, will retry", req.Keys[i].Name)

                    *partialDataKeys = append(*partialDataKeys, req.Keys[i])
                } else {
                    Log.Infof("Another service holds a more complete copy of %s, nonzero data treated as success: %v", req.Keys[i].Name, len(res.Results[i].Blocks) > 0)

                    if len(res.Results[i].Blocks) > 0 {
                        result.Results = append(result.Results, res.Results[i])
                        *foundKeys = append(*foundKeys, req.Keys[i])
                    }
                }
            case StatusBucketNotFinalized:
                // A server can only report this for streaming reads which
                // never reach this path. Seeing it here means the protocol
                // is broken.
                Log.Criticalf("Received BUCKET_NOT_FINALIZED for key %s", req.Keys[i].Name)

                panic("protocol violation: BUCKET_NOT_FINALIZED on the client read path")
            }
        }
    }
}

// GetData reads request.Keys from the active read services one service at a
// time, failing over when keys remain unresolved. request.Keys is replaced by
// the keys that succeeded, aligned with the returned result entries. In strict mode an error is
// returned when the last service still left keys unresolved; otherwise the
// result silently contains only the keys that succeeded.
func (client *Client) GetData(request *GetDataRequest, serviceOverride string) (GetDataResult, error) {
    var result GetDataResult

    readClientCopies, err := client.getAllReadClients(serviceOverride)

    if err != nil {
        return result, err
    }

    // Capture the advisory shard ids so they can be restored before trying
    // the next service: the previous service's shard cache may have
    // overwritten them.
    keyShards := make(map[string]int64, len(request.Keys))

    for _, key := range request.Keys {
        keyShards[key.Name] = key.ShardID
    }

    // Reads run against a copy of the request. The caller's key list is
    // cleared and refilled in response order as keys succeed.
    clientRequest := GetDataRequest{
        Begin: request.Begin,
        End: request.End,
        Keys: request.Keys,
    }

    request.Keys = nil

    for i, readClient := range readClientCopies {
        var failedKeys []Key
        var partialKeys []Key

        if i > 0 {
            stats.AddReadFailover()
            Log.Infof("Retrying to other failure service: %s", readClient.ServiceName())
        }

        // On the last service, shards with partial data count as success.
        // In strict mode they keep counting as failures so the call can
        // report them.
        lastIteration := i == len(readClientCopies) - 1

        var inProgressKeys *[]Key
        var partialDataKeys *[]Key

        if client.config.StrictReads || !lastIteration {
            inProgressKeys = &partialKeys
            partialDataKeys = &partialKeys
        }

        client.getWithClient(readClient, clientRequest, &result, &request.Keys, &failedKeys, inProgressKeys, partialDataKeys)

        if len(failedKeys) == 0 && len(partialKeys) == 0 {
            break
        }

        // Do one retry within the service by invalidating the cached
        // shards. Shards that are merely in progress keep their cache
        // entries, they will be read from another service.
        if len(failedKeys) > 0 {
            invalidShardIDs := make(map[int64]bool, len(failedKeys))

            for _, key := range failedKeys {
                invalidShardIDs[key.ShardID] = true
            }

            readClient.InvalidateCache(invalidShardIDs)

            clientRequest.Keys = failedKeys
            failedKeys = nil

            client.getWithClient(readClient, clientRequest, &result, &request.Keys, &failedKeys, inProgressKeys, partialDataKeys)
        }

        if len(failedKeys) == 0 && len(partialKeys) == 0 {
            break
        }

        if lastIteration && client.config.StrictReads {
            return result, EReadFailed
        }

        // Merge the residuals, restore the original shard ids and move on
        // to the next service.
        clientRequest.Keys = append(failedKeys, partialKeys...)

        for j := range clientRequest.Keys {
            if shardID, ok := keyShards[clientRequest.Keys[j].Name]; ok {
                clientRequest.Keys[j].ShardID = shardID
            }
        }
    }

    return result, nil
}
