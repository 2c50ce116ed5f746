package client

import (
    "sync"
    "sync/atomic"
    "time"

    . "github.com/PelionIoT/historiandb/data"
    . "github.com/PelionIoT/historiandb/errors"
    . "github.com/PelionIoT/historiandb/logging"
    "github.com/PelionIoT/historiandb/shared"
    "github.com/PelionIoT/historiandb/stats"
)

const (
    // Age past its scheduled retry time after which a batch is no longer
    // worth sending.
    retryThreshold = 30 * time.Second

    // The batches can be a lot smaller in the retry queue.
    retryQueueCapacitySizeRatio = 100

    minQueueSlots = 10

    // Cap on locally dropped points accumulated during a single drain.
    maxRetryBatchSize = 10000

    // Grace window fallback when no read client reports an RPC deadline.
    defaultRPCTimeout = 30 * time.Second
)

// Client is the runtime between application code and the HistorianDB
// storage services. A writer client owns one bounded queue and a set of
// writer threads per write service plus a shared retry pipeline. A reader
// client holds a periodically refreshed set of read services and
// coordinates reads across them.
type Client struct {
    config shared.ClientConfig
    directory DirectoryAdapter
    createNetworkClient NetworkClientFactory

    maxNumShards int64

    writeClients []*WriteClient
    writerThreadsPerClient int
    writersWG sync.WaitGroup

    retryQueue chan RetryOperation
    retryPendingCount int64
    retryWritersWG sync.WaitGroup

    readClientLock sync.RWMutex
    readClients []NetworkClient
    currentReadServices []string

    refreshStop chan struct{}
}

// NewClient builds a reader or a writer client depending on
// config.WriterThreadsPerService. In production clients are either readers
// or writers, never both.
func NewClient(config shared.ClientConfig, directory DirectoryAdapter, createNetworkClient NetworkClientFactory) (*Client, error) {
    if directory == nil || createNetworkClient == nil {
        return nil, EEmpty
    }

    client := &Client{
        config: config,
        directory: directory,
        createNetworkClient: createNetworkClient,
        retryQueue: make(chan RetryOperation, retryQueueSlots(config.RetryQueueCapacity)),
    }

    writerThreads := config.WriterThreadsPerService

    if writerThreads == shared.NoWriterThreads {
        writerThreads = 0
    }

    queueSize := queueSlots(config.QueueCapacity, config.QueueCapacitySizeRatio)

    if writerThreads == 0 {
        // If the directory fails here, just assume there are no services
        // yet. The refresher will pick them up.
        client.updateReadServices()

        if config.ReadServicesUpdateInterval > 0 {
            client.refreshStop = make(chan struct{})

            go client.readServicesUpdateLoop(config.ReadServicesUpdateInterval, client.refreshStop)
        }
    } else {
        writeServices, err := directory.WriteServices()

        if err != nil {
            return nil, err
        }

        for _, service := range writeServices {
            networkClient, err := createNetworkClient(service, false)

            if err != nil {
                return nil, err
            }

            client.writeClients = append(client.writeClients, NewWriteClient(networkClient, queueSize))
        }

        atomic.StoreInt64(&client.maxNumShards, maxNumShardsOfWriteClients(client.writeClients))

        shadowServices, err := directory.ShadowServices()

        if err != nil {
            return nil, err
        }

        for _, service := range shadowServices {
            networkClient, err := createNetworkClient(service, true)

            if err != nil {
                return nil, err
            }

            client.writeClients = append(client.writeClients, NewWriteClient(networkClient, queueSize))
        }
    }

    client.startWriterThreads(writerThreads)

    stats.SetRetryQueueSize(0)

    for _, writeClient := range client.writeClients {
        stats.SetQueueSize(writeClient.Client.ServiceName(), 0)
    }

    return client, nil
}

// NewTestClient wires a client directly to pre-built network clients,
// bypassing the directory. Used by this package's own suites and by
// integration harnesses.
func NewTestClient(config shared.ClientConfig, readers []NetworkClient, writers []NetworkClient) *Client {
    client := &Client{
        config: config,
        retryQueue: make(chan RetryOperation, retryQueueSlots(config.RetryQueueCapacity)),
    }

    queueSize := queueSlots(config.QueueCapacity, config.QueueCapacitySizeRatio)

    client.readClients = append(client.readClients, readers...)

    for _, networkClient := range writers {
        client.writeClients = append(client.writeClients, NewWriteClient(networkClient, queueSize))
    }

    atomic.StoreInt64(&client.maxNumShards, maxNumShardsOfWriteClients(client.writeClients))

    client.startWriterThreads(len(writers))

    return client
}

func queueSlots(queueCapacity int, sizeRatio int) int {
    if sizeRatio <= 0 {
        sizeRatio = shared.DefaultQueueCapacitySizeRatio
    }

    slots := queueCapacity / sizeRatio

    if slots < minQueueSlots {
        slots = minQueueSlots
    }

    return slots
}

func retryQueueSlots(retryQueueCapacity int) int {
    slots := retryQueueCapacity / retryQueueCapacitySizeRatio

    if slots < minQueueSlots {
        slots = minQueueSlots
    }

    return slots
}

func maxNumShardsOfWriteClients(writeClients []*WriteClient) int64 {
    var max int64 = 0

    for _, writeClient := range writeClients {
        if numShards := writeClient.Client.NumShards(); numShards > max {
            max = numShards
        }
    }

    return max
}

func maxNumShardsOfClients(clients []NetworkClient) int64 {
    var max int64 = 0

    for _, networkClient := range clients {
        if numShards := networkClient.NumShards(); numShards > max {
            max = numShards
        }
    }

    return max
}

func (client *Client) startWriterThreads(numWriterThreads int) {
    if numWriterThreads <= 0 {
        return
    }

    client.writerThreadsPerClient = numWriterThreads

    for _, writeClient := range client.writeClients {
        for i := 0; i < numWriterThreads; i++ {
            client.writersWG.Add(1)

            go func(writeClient *WriteClient) {
                defer client.writersWG.Done()

                client.writeDataPointsForever(writeClient)
            }(writeClient)
        }
    }

    for i := 0; i < client.config.RetryThreadCount; i++ {
        client.retryWritersWG.Add(1)

        go func() {
            defer client.retryWritersWG.Done()

            client.retryWorker()
        }()
    }
}

func (client *Client) stopWriterThreads() {
    if client.writerThreadsPerClient == 0 {
        return
    }

    for _, writeClient := range client.writeClients {
        writeClient.Queue.Flush(client.writerThreadsPerClient)
    }

    client.writersWG.Wait()

    for i := 0; i < client.config.RetryThreadCount; i++ {
        // An empty data point batch stops a retry thread.
        client.retryQueue <- RetryOperation{}
    }

    client.retryWritersWG.Wait()
}

// FlushQueue blocks until every data point accepted so far has been
// attempted at least once, then restarts the writer threads.
func (client *Client) FlushQueue() {
    writerThreadsPerClient := client.writerThreadsPerClient

    client.stopWriterThreads()
    client.startWriterThreads(writerThreadsPerClient)
}

// Stop shuts the write pipeline and the refresher down. The client cannot
// be restarted afterwards.
func (client *Client) Stop() {
    client.stopWriterThreads()
    client.writerThreadsPerClient = 0

    if client.refreshStop != nil {
        close(client.refreshStop)
        client.refreshStop = nil
    }
}

// PutDataPoints enqueues one batch for every write service. It returns true
// if at least one service accepted the batch. Send failures past this point
// surface through metrics and the retry pipeline, never through Put.
func (client *Client) PutDataPoints(values []DataPoint) bool {
    numPoints := len(values)

    if numPoints == 0 {
        Log.Errorf("Empty request")

        return true
    }

    allPushedToAnyScope := false

    for i, writeClient := range client.writeClients {
        var success bool

        if i < len(client.writeClients) - 1 {
            // The last iteration hands the caller's slice over directly,
            // every other service gets its own copy.
            valuesCopy := make([]DataPoint, numPoints)
            copy(valuesCopy, values)
            success = writeClient.Queue.Push(valuesCopy)
        } else {
            success = writeClient.Queue.Push(values)
        }

        service := writeClient.Client.ServiceName()

        if success {
            stats.AddEnqueued(service, numPoints)
            allPushedToAnyScope = true
        } else {
            stats.AddEnqueueDropped(service, numPoints)
        }

        stats.SetQueueSize(service, writeClient.Queue.Size())
    }

    return allPushedToAnyScope
}

// GetLastUpdateTimes streams the last write time of keys updated after
// minLastUpdateTime from the first read service. The callback returns false
// to stop the stream.
func (client *Client) GetLastUpdateTimes(minLastUpdateTime int64, maxKeysPerRequest int, timeout time.Duration, callback func(keys []KeyUpdateTime) bool) {
    readClientCopy := client.getReadClientCopy()

    if readClientCopy == nil {
        return
    }

    readClientCopy.GetLastUpdateTimes(minLastUpdateTime, maxKeysPerRequest, timeout, callback)
}

// StopRequests aborts outstanding RPCs on the first read service.
func (client *Client) StopRequests() {
    readClientCopy := client.getReadClientCopy()

    if readClientCopy == nil {
        return
    }

    readClientCopy.StopRequests()
}

func (client *Client) GetMaxNumShards() int64 {
    return atomic.LoadInt64(&client.maxNumShards)
}

func (client *Client) GetNumShardsFromWriteClient() int64 {
    if len(client.writeClients) == 0 {
        return 0
    }

    return client.writeClients[0].Client.NumShards()
}

// WriteQueueSizes reports the number of data points buffered per write
// service. Exposed for status endpoints.
func (client *Client) WriteQueueSizes() map[string]int {
    sizes := make(map[string]int, len(client.writeClients))

    for _, writeClient := range client.writeClients {
        sizes[writeClient.Client.ServiceName()] = writeClient.Queue.Size()
    }

    return sizes
}

// ReadServiceNames reports the services in the active read set.
func (client *Client) ReadServiceNames() []string {
    client.readClientLock.RLock()
    defer client.readClientLock.RUnlock()

    names := make([]string, 0, len(client.readClients))

    for _, readClient := range client.readClients {
        names = append(names, readClient.ServiceName())
    }

    return names
}

func (client *Client) readServicesUpdateLoop(interval time.Duration, stop chan struct{}) {
    ticker := time.NewTicker(interval)
    defer ticker.Stop()

    for {
        select {
        case <-ticker.C:
            client.updateReadServices()
        case <-stop:
            return
        }
    }
}

func (client *Client) updateReadServices() {
    readServices, err := client.directory.ReadServices()

    if err != nil {
        Log.Errorf("Unable to list read services: %v", err.Error())

        return
    }

    if len(readServices) == 0 || stringSlicesEqual(readServices, client.currentReadServices) {
        return
    }

    readClients := client.initNetworkClients(readServices)
    maxNumShards := maxNumShardsOfClients(readClients)

    client.currentReadServices = readServices
    atomic.StoreInt64(&client.maxNumShards, maxNumShards)

    client.readClientLock.Lock()
    client.readClients = readClients
    client.readClientLock.Unlock()
}

func (client *Client) initNetworkClients(readServices []string) []NetworkClient {
    var clients []NetworkClient

    for _, readService := range readServices {
        if !client.directory.IsValidReadService(readService) {
            stats.AddBadReadService()

            continue
        }

        networkClient, err := client.createNetworkClient(readService, false)

        if err != nil {
            Log.Errorf("Unable to create a network client for service %s: %v", readService, err.Error())
            stats.AddBadReadService()

            continue
        }

        clients = append(clients, networkClient)
    }

    // Just call the nearest service if no valid ones were found.
    if len(clients) == 0 {
        nearestReadService, err := client.directory.NearestReadService()

        if err != nil {
            Log.Errorf("Unable to determine the nearest read service: %v", err.Error())

            return clients
        }

        networkClient, err := client.createNetworkClient(nearestReadService, false)

        if err != nil {
            Log.Errorf("Unable to create a network client for service %s: %v", nearestReadService, err.Error())

            return clients
        }

        clients = append(clients, networkClient)
    }

    return clients
}

// getAllReadClients snapshots the active read service set. The snapshot is
// immutable for the duration of a read: a concurrent refresh swaps the
// active list but never mutates a handed-out copy.
func (client *Client) getAllReadClients(serviceOverride string) ([]NetworkClient, error) {
    client.readClientLock.RLock()
    readClientCopies := make([]NetworkClient, len(client.readClients))
    copy(readClientCopies, client.readClients)
    client.readClientLock.RUnlock()

    if len(serviceOverride) != 0 {
        for _, readClient := range readClientCopies {
            if readClient.IsCorrespondingService(serviceOverride) {
                return []NetworkClient{ readClient }, nil
            }
        }

        // The service wasn't on the list. Try making a temporary client
        // for it. It is never added to the active set so normal queries
        // won't use the overridden service.
        if client.directory == nil || !client.directory.IsValidReadService(serviceOverride) {
            stats.AddBadReadService()
        } else {
            overrideClient, err := client.createNetworkClient(serviceOverride, false)

            if err != nil {
                return nil, err
            }

            return []NetworkClient{ overrideClient }, nil
        }
    }

    return readClientCopies, nil
}

func (client *Client) getReadClientCopy() NetworkClient {
    client.readClientLock.RLock()
    defer client.readClientLock.RUnlock()

    if len(client.readClients) == 0 {
        Log.Errorf("No read services enabled for this client")

        return nil
    }

    return client.readClients[0]
}

func stringSlicesEqual(a []string, b []string) bool {
    if len(a) != len(b) {
        return false
    }

    for i := range a {
        if a[i] != b[i] {
            return false
        }
    }

    return true
}
