package client

import (
    . "github.com/PelionIoT/historiandb/util"
)

// WriteClient pairs a service's network client with the bounded queue its
// writer threads drain. There is exactly one WriteClient per write service,
// shadow services included.
type WriteClient struct {
    Client NetworkClient
    Queue *BoundedQueue
}

func NewWriteClient(networkClient NetworkClient, queueSize int) *WriteClient {
    return &WriteClient{
        Client: networkClient,
        Queue: NewBoundedQueue(queueSize),
    }
}
