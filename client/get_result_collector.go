package client

import (
    "sync"

    . "github.com/PelionIoT/historiandb/data"
    . "github.com/PelionIoT/historiandb/errors"
    . "github.com/PelionIoT/historiandb/logging"
    "github.com/PelionIoT/historiandb/stats"
)

type slotState int8

const (
    slotEmpty slotState = iota

    // A definitive answer: data, or a key the service permanently lacks.
    slotFilled

    // Data with known holes, usable when nothing better arrives.
    slotPartial

    // A transient failure. Never used for data, only for status reporting.
    slotError
)

type resultSlot struct {
    state slotState
    status StatusCode
    blocks []Block
}

// GetResultCollector accumulates per-key results from several services for
// one parallel read. AddResults reports true exactly once: the first time
// every key of the request has a definitive answer from some combination of
// services. Results landing after Finalize are ignored, which is how
// abandoned RPCs are cancelled.
type GetResultCollector struct {
    mu sync.Mutex
    begin int64
    end int64
    numServices int

    // slots[keyIndex][serviceIndex]
    slots [][]resultSlot
    keyComplete []bool
    numCompleteKeys int

    signaled bool
    finalized bool
}

func NewGetResultCollector(numKeys int, numServices int, begin int64, end int64) *GetResultCollector {
    slots := make([][]resultSlot, numKeys)

    for i := range slots {
        slots[i] = make([]resultSlot, numServices)
    }

    return &GetResultCollector{
        begin: begin,
        end: end,
        numServices: numServices,
        slots: slots,
        keyComplete: make([]bool, numKeys),
    }
}

// AddResults stores one per-host response. keyIndices maps the response's
// entries back to positions in the originating request. Callers must not
// hold other locks: the collector takes its own.
func (collector *GetResultCollector) AddResults(result GetDataResult, keyIndices []int, service int) bool {
    collector.mu.Lock()
    defer collector.mu.Unlock()

    if collector.finalized {
        return false
    }

    for i, entry := range result.Results {
        if i >= len(keyIndices) {
            Log.Errorf("Received more results than requested keys from service index %d", service)

            break
        }

        keyIndex := keyIndices[i]

        if keyIndex < 0 || keyIndex >= len(collector.slots) {
            continue
        }

        slot := &collector.slots[keyIndex][service]

        switch entry.Status {
        case StatusOK:
            slot.state = slotFilled
            slot.status = StatusOK
            slot.blocks = entry.Blocks
        case StatusKeyMissing:
            // Permanent absence is as definitive as data.
            slot.state = slotFilled
            slot.status = StatusKeyMissing
            slot.blocks = nil
        case StatusShardInProgress, StatusMissingTooMuchData:
            if entry.Status == StatusMissingTooMuchData {
                stats.AddRedirectForMissingData()
            }

            if slot.state != slotFilled {
                slot.state = slotPartial
                slot.status = entry.Status
                slot.blocks = entry.Blocks
            }
        case StatusRPCFail, StatusStorageFail, StatusDontOwnShard:
            if slot.state == slotEmpty {
                slot.state = slotError
                slot.status = entry.Status
            }
        case StatusBucketNotFinalized:
            Log.Criticalf("Received BUCKET_NOT_FINALIZED from service index %d", service)

            panic("protocol violation: BUCKET_NOT_FINALIZED on the client read path")
        }

        if slot.state == slotFilled && !collector.keyComplete[keyIndex] {
            collector.keyComplete[keyIndex] = true
            collector.numCompleteKeys++
        }
    }

    if collector.numCompleteKeys == len(collector.slots) && !collector.signaled {
        collector.signaled = true

        return true
    }

    return false
}

// Finalize merges the best available copy of every key: the first service in
// declaration order with a definitive answer wins, partial data fills in for
// keys with nothing better. In strict mode any key without a full copy
// fails the read.
func (collector *GetResultCollector) Finalize(strict bool, serviceNames []string) (GetResult, error) {
    collector.mu.Lock()
    defer collector.mu.Unlock()

    collector.finalized = true

    result := GetResult{
        Results: make([][]Block, len(collector.slots)),
        Statuses: make([]StatusCode, len(collector.slots)),
        AllSuccess: true,
    }

    for keyIndex := range collector.slots {
        filledService := -1
        partialService := -1
        errorService := -1

        for service := 0; service < collector.numServices; service++ {
            switch collector.slots[keyIndex][service].state {
            case slotFilled:
                if filledService == -1 {
                    filledService = service
                }
            case slotPartial:
                if partialService == -1 {
                    partialService = service
                }
            case slotError:
                if errorService == -1 {
                    errorService = service
                }
            }
        }

        switch {
        case filledService >= 0:
            slot := &collector.slots[keyIndex][filledService]
            result.Results[keyIndex] = slot.blocks
            result.Statuses[keyIndex] = slot.status
        case partialService >= 0:
            slot := &collector.slots[keyIndex][partialService]
            result.Results[keyIndex] = slot.blocks
            result.Statuses[keyIndex] = slot.status

            if strict || len(slot.blocks) == 0 {
                result.AllSuccess = false
            }
        case errorService >= 0:
            result.Statuses[keyIndex] = collector.slots[keyIndex][errorService].status
            result.AllSuccess = false
        default:
            result.Statuses[keyIndex] = StatusRPCFail
            result.AllSuccess = false
        }
    }

    if !result.AllSuccess {
        Log.Warningf("Read finalized without a full copy across services %v", serviceNames)

        if strict {
            return result, EReadFailed
        }
    }

    return result, nil
}
