package routes

import (
    "encoding/json"
    "io"
    "net/http"

    "github.com/gorilla/mux"
    "github.com/prometheus/client_golang/prometheus/promhttp"

    . "github.com/PelionIoT/historiandb/logging"
)

// ClientFacade is the part of the client runtime the status endpoint needs.
type ClientFacade interface {
    GetMaxNumShards() int64
    WriteQueueSizes() map[string]int
    ReadServiceNames() []string
}

type StatusBody struct {
    MaxNumShards int64 `json:"maxNumShards"`
    WriteQueueSizes map[string]int `json:"writeQueueSizes"`
    ReadServices []string `json:"readServices"`
}

type StatusEndpoint struct {
    Client ClientFacade
}

func (statusEndpoint *StatusEndpoint) Attach(router *mux.Router) {
    router.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
        status := StatusBody{
            MaxNumShards: statusEndpoint.Client.GetMaxNumShards(),
            WriteQueueSizes: statusEndpoint.Client.WriteQueueSizes(),
            ReadServices: statusEndpoint.Client.ReadServiceNames(),
        }

        encodedStatus, err := json.Marshal(status)

        if err != nil {
            Log.Warningf("GET /status: Unable to encode status body: %v", err)

            w.Header().Set("Content-Type", "application/json; charset=utf8")
            w.WriteHeader(http.StatusInternalServerError)
            io.WriteString(w, "\n")

            return
        }

        w.Header().Set("Content-Type", "application/json; charset=utf8")
        w.WriteHeader(http.StatusOK)
        io.WriteString(w, string(encodedStatus) + "\n")
    }).Methods("GET")

    router.Handle("/metrics", promhttp.Handler()).Methods("GET")
}
