package shared

import (
    "errors"
    "fmt"
    "io/ioutil"
    "time"

    "gopkg.in/yaml.v2"

    . "github.com/PelionIoT/historiandb/logging"
)

const (
    // NoWriterThreads configures a client with no write pipeline at all.
    // Zero writer threads means a reader client.
    NoWriterThreads int = -1

    // NoReadServicesUpdates disables the periodic read service refresh.
    NoReadServicesUpdates time.Duration = -1

    DefaultQueueCapacity int = 1
    DefaultQueueCapacitySizeRatio int = 500
    DefaultMinQueueSize int = 100
    DefaultSleepPerPut time.Duration = 100 * time.Millisecond
    DefaultRetryQueueCapacity int = 10000
    DefaultRetryDelay time.Duration = 55 * time.Second
    DefaultRetryThreadCount int = 4
    DefaultReadServicesUpdateInterval time.Duration = 15 * time.Second
)

// ClientConfig carries every tunable of the client runtime. The zero value
// is not usable, start from DefaultClientConfig.
type ClientConfig struct {
    // Number of threads concurrently writing to each service. Zero makes
    // this a reader client, NoWriterThreads disables writers entirely.
    WriterThreadsPerService int

    // Data points buffered per write queue.
    QueueCapacity int

    // Divisor applied to QueueCapacity to obtain the number of queue
    // slots. Needed because the queue stores batches, not points.
    QueueCapacitySizeRatio int

    // Writers sleep between puts while a queue holds fewer points than
    // this, trading latency for bigger batches under low load.
    MinQueueSize int
    SleepPerPut time.Duration

    // Upper bound on data points waiting in the retry queue.
    RetryQueueCapacity int

    // Delay before a failed batch is sent again. Keeping this under one
    // minute still lets points arrive within their minute bucket.
    RetryDelay time.Duration
    RetryThreadCount int

    ReadServicesUpdateInterval time.Duration

    // Fan scan-shard operations out to every read service in parallel.
    ParallelScanShard bool

    // Strict mode: reads raise an error on residual transient failures
    // instead of returning partial data.
    StrictReads bool
}

func DefaultClientConfig() ClientConfig {
    return ClientConfig{
        WriterThreadsPerService: 0,
        QueueCapacity: DefaultQueueCapacity,
        QueueCapacitySizeRatio: DefaultQueueCapacitySizeRatio,
        MinQueueSize: DefaultMinQueueSize,
        SleepPerPut: DefaultSleepPerPut,
        RetryQueueCapacity: DefaultRetryQueueCapacity,
        RetryDelay: DefaultRetryDelay,
        RetryThreadCount: DefaultRetryThreadCount,
        ReadServicesUpdateInterval: DefaultReadServicesUpdateInterval,
        ParallelScanShard: false,
        StrictReads: false,
    }
}

type YAMLClientConfig struct {
    WriterThreadsPerService int `yaml:"writerThreadsPerService"`
    QueueCapacity int `yaml:"queueCapacity"`
    QueueCapacitySizeRatio int `yaml:"queueCapacitySizeRatio"`
    MinQueueSize int `yaml:"minQueueSize"`
    SleepPerPutUS int `yaml:"sleepPerPutUS"`
    RetryQueueCapacity int `yaml:"retryQueueCapacity"`
    RetryDelaySeconds int `yaml:"retryDelaySeconds"`
    RetryThreadCount int `yaml:"retryThreadCount"`
    ReadServicesUpdateIntervalSeconds int `yaml:"readServicesUpdateIntervalSeconds"`
    ParallelScanShard bool `yaml:"parallelScanShard"`
    StrictReads bool `yaml:"strictReads"`
    LogLevel string `yaml:"logLevel"`
}

func (ycc *YAMLClientConfig) LoadFromFile(file string) error {
    rawConfig, err := ioutil.ReadFile(file)

    if err != nil {
        return err
    }

    err = yaml.Unmarshal(rawConfig, ycc)

    if err != nil {
        return err
    }

    if ycc.WriterThreadsPerService < -1 {
        return errors.New(fmt.Sprintf("%d is an invalid writer thread count", ycc.WriterThreadsPerService))
    }

    if ycc.QueueCapacity < 0 {
        return errors.New(fmt.Sprintf("%d is an invalid write queue capacity", ycc.QueueCapacity))
    }

    if ycc.QueueCapacitySizeRatio < 0 {
        return errors.New(fmt.Sprintf("%d is an invalid queue capacity size ratio", ycc.QueueCapacitySizeRatio))
    }

    if ycc.RetryQueueCapacity < 0 {
        return errors.New(fmt.Sprintf("%d is an invalid retry queue capacity", ycc.RetryQueueCapacity))
    }

    if ycc.RetryDelaySeconds < 0 {
        return errors.New(fmt.Sprintf("%d is an invalid retry delay", ycc.RetryDelaySeconds))
    }

    if ycc.RetryDelaySeconds >= 60 {
        Log.Warningf("A retry delay of %d seconds will reorder data points across their minute buckets", ycc.RetryDelaySeconds)
    }

    if ycc.RetryThreadCount < 0 {
        return errors.New(fmt.Sprintf("%d is an invalid retry thread count", ycc.RetryThreadCount))
    }

    if len(ycc.LogLevel) != 0 && !LogLevelIsValid(ycc.LogLevel) {
        return errors.New(fmt.Sprintf("%s is not a valid log level", ycc.LogLevel))
    }

    SetLoggingLevel(ycc.LogLevel)

    return nil
}

// ToClientConfig fills in defaults for any knob left at zero. A negative
// readServicesUpdateIntervalSeconds disables the refresher.
func (ycc *YAMLClientConfig) ToClientConfig() ClientConfig {
    config := DefaultClientConfig()

    config.WriterThreadsPerService = ycc.WriterThreadsPerService
    config.ParallelScanShard = ycc.ParallelScanShard
    config.StrictReads = ycc.StrictReads

    if ycc.QueueCapacity != 0 {
        config.QueueCapacity = ycc.QueueCapacity
    }

    if ycc.QueueCapacitySizeRatio != 0 {
        config.QueueCapacitySizeRatio = ycc.QueueCapacitySizeRatio
    }

    if ycc.MinQueueSize != 0 {
        config.MinQueueSize = ycc.MinQueueSize
    }

    if ycc.SleepPerPutUS != 0 {
        config.SleepPerPut = time.Duration(ycc.SleepPerPutUS) * time.Microsecond
    }

    if ycc.RetryQueueCapacity != 0 {
        config.RetryQueueCapacity = ycc.RetryQueueCapacity
    }

    if ycc.RetryDelaySeconds != 0 {
        config.RetryDelay = time.Duration(ycc.RetryDelaySeconds) * time.Second
    }

    if ycc.RetryThreadCount != 0 {
        config.RetryThreadCount = ycc.RetryThreadCount
    }

    if ycc.ReadServicesUpdateIntervalSeconds < 0 {
        config.ReadServicesUpdateInterval = NoReadServicesUpdates
    } else if ycc.ReadServicesUpdateIntervalSeconds != 0 {
        config.ReadServicesUpdateInterval = time.Duration(ycc.ReadServicesUpdateIntervalSeconds) * time.Second
    }

    return config
}
