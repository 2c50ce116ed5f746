package stats

import (
    "github.com/prometheus/client_golang/prometheus"
)

// Counter and gauge surface for the client runtime. Per-service metrics are
// labeled with the storage service name they refer to.

var enqueued = prometheus.NewCounterVec(prometheus.CounterOpts{
    Namespace: "historiandb",
    Subsystem: "client",
    Name: "enqueued",
    Help: "Data points accepted into a write queue",
}, []string{ "service" })

var enqueueDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
    Namespace: "historiandb",
    Subsystem: "client",
    Name: "enqueue_dropped",
    Help: "Data points rejected because a write queue was full",
}, []string{ "service" })

var put = prometheus.NewCounterVec(prometheus.CounterOpts{
    Namespace: "historiandb",
    Subsystem: "client",
    Name: "put",
    Help: "Data points written to a service",
}, []string{ "service" })

var putDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
    Namespace: "historiandb",
    Subsystem: "client",
    Name: "put_dropped",
    Help: "Data points dropped permanently after send failures",
}, []string{ "service" })

var putRetry = prometheus.NewCounterVec(prometheus.CounterOpts{
    Namespace: "historiandb",
    Subsystem: "client",
    Name: "put_retry",
    Help: "Data points handed to the retry queue",
}, []string{ "service" })

var usPerPut = prometheus.NewSummaryVec(prometheus.SummaryOpts{
    Namespace: "historiandb",
    Subsystem: "client",
    Name: "us_per_put",
    Help: "Microseconds spent in each put RPC round",
}, []string{ "service" })

var queueSize = prometheus.NewGaugeVec(prometheus.GaugeOpts{
    Namespace: "historiandb",
    Subsystem: "client",
    Name: "queue_size",
    Help: "Data points currently buffered in a write queue",
}, []string{ "service" })

var retryQueueSize = prometheus.NewGauge(prometheus.GaugeOpts{
    Namespace: "historiandb",
    Subsystem: "client",
    Name: "retry_queue_size",
    Help: "Data points currently waiting in the retry queue",
})

var retryQueueWriteFailures = prometheus.NewCounter(prometheus.CounterOpts{
    Namespace: "historiandb",
    Subsystem: "client",
    Name: "retry_queue_write_failures",
    Help: "Batches dropped because the retry queue was full",
})

var readFailover = prometheus.NewCounter(prometheus.CounterOpts{
    Namespace: "historiandb",
    Subsystem: "client",
    Name: "read_failover",
    Help: "Reads that failed over to another replica service",
})

var badReadServices = prometheus.NewCounter(prometheus.CounterOpts{
    Namespace: "historiandb",
    Subsystem: "client",
    Name: "bad_read_services",
    Help: "Invalid or unusable read service names reported by the directory",
})

var redirectForMissingData = prometheus.NewCounter(prometheus.CounterOpts{
    Namespace: "historiandb",
    Subsystem: "client",
    Name: "redirect_for_missing_data",
    Help: "Responses indicating another service holds a more complete copy",
})

func init() {
    prometheus.MustRegister(enqueued)
    prometheus.MustRegister(enqueueDropped)
    prometheus.MustRegister(put)
    prometheus.MustRegister(putDropped)
    prometheus.MustRegister(putRetry)
    prometheus.MustRegister(usPerPut)
    prometheus.MustRegister(queueSize)
    prometheus.MustRegister(retryQueueSize)
    prometheus.MustRegister(retryQueueWriteFailures)
    prometheus.MustRegister(readFailover)
    prometheus.MustRegister(badReadServices)
    prometheus.MustRegister(redirectForMissingData)
}

func AddEnqueued(service string, points int) {
    enqueued.WithLabelValues(service).Add(float64(points))
}

func AddEnqueueDropped(service string, points int) {
    enqueueDropped.WithLabelValues(service).Add(float64(points))
}

func AddPut(service string, points int) {
    put.WithLabelValues(service).Add(float64(points))
}

func AddPutDropped(service string, points int) {
    putDropped.WithLabelValues(service).Add(float64(points))
}

func AddPutRetry(service string, points int) {
    putRetry.WithLabelValues(service).Add(float64(points))
}

func ObservePutMicros(service string, micros int64) {
    usPerPut.WithLabelValues(service).Observe(float64(micros))
}

func SetQueueSize(service string, size int) {
    queueSize.WithLabelValues(service).Set(float64(size))
}

func SetRetryQueueSize(size int) {
    retryQueueSize.Set(float64(size))
}

func AddRetryQueueWriteFailure() {
    retryQueueWriteFailures.Inc()
}

func AddReadFailover() {
    readFailover.Inc()
}

func AddBadReadService() {
    badReadServices.Inc()
}

func AddRedirectForMissingData() {
    redirectForMissingData.Inc()
}
