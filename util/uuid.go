package util

import (
    "crypto/rand"
    "encoding/binary"
)

// UUID64 produces a random identifier for correlating log lines about one
// batch or operation.
func UUID64() uint64 {
    randomBytes := make([]byte, 8)
    rand.Read(randomBytes)

    return binary.BigEndian.Uint64(randomBytes[:8])
}
