package directory

import (
    "context"
    "encoding/json"
    "io/ioutil"
    "net/http"
    "strings"
    "time"

    . "github.com/PelionIoT/historiandb/errors"
    . "github.com/PelionIoT/historiandb/logging"
)

const DefaultDirectoryTimeout = time.Second * 10

type HTTPDirectoryConfig struct {
    // Base URL of the directory API, e.g. https://directory.example:9190
    BaseURL string
    Timeout time.Duration
}

// HTTPDirectory queries a directory HTTP API for the service lists. The API
// exposes JSON string arrays under /services/read, /services/write and
// /services/shadow, and the name of the closest replica set under
// /services/nearest.
type HTTPDirectory struct {
    baseURL string
    httpClient *http.Client
}

func NewHTTPDirectory(config HTTPDirectoryConfig) *HTTPDirectory {
    if config.Timeout == 0 {
        config.Timeout = DefaultDirectoryTimeout
    }

    return &HTTPDirectory{
        baseURL: strings.TrimSuffix(config.BaseURL, "/"),
        httpClient: &http.Client{
            Timeout: config.Timeout,
        },
    }
}

func (httpDirectory *HTTPDirectory) sendRequest(ctx context.Context, endpoint string) ([]byte, error) {
    request, err := http.NewRequest("GET", httpDirectory.baseURL + endpoint, nil)

    if err != nil {
        return nil, err
    }

    request = request.WithContext(ctx)

    resp, err := httpDirectory.httpClient.Do(request)

    if err != nil {
        if strings.Contains(err.Error(), "Timeout") {
            return nil, EClientTimeout
        }

        return nil, err
    }

    defer resp.Body.Close()

    if resp.StatusCode != http.StatusOK {
        return nil, EDirectory
    }

    responseBody, err := ioutil.ReadAll(resp.Body)

    if err != nil {
        return nil, err
    }

    return responseBody, nil
}

func (httpDirectory *HTTPDirectory) serviceList(endpoint string) ([]string, error) {
    responseBody, err := httpDirectory.sendRequest(context.Background(), endpoint)

    if err != nil {
        return nil, err
    }

    var services []string

    err = json.Unmarshal(responseBody, &services)

    if err != nil {
        return nil, err
    }

    return services, nil
}

func (httpDirectory *HTTPDirectory) ReadServices() ([]string, error) {
    return httpDirectory.serviceList("/services/read")
}

func (httpDirectory *HTTPDirectory) WriteServices() ([]string, error) {
    return httpDirectory.serviceList("/services/write")
}

func (httpDirectory *HTTPDirectory) ShadowServices() ([]string, error) {
    return httpDirectory.serviceList("/services/shadow")
}

func (httpDirectory *HTTPDirectory) IsValidReadService(serviceName string) bool {
    services, err := httpDirectory.ReadServices()

    if err != nil {
        Log.Errorf("Unable to validate read service %s: %v", serviceName, err.Error())

        return false
    }

    for _, service := range services {
        if service == serviceName {
            return true
        }
    }

    return false
}

func (httpDirectory *HTTPDirectory) NearestReadService() (string, error) {
    responseBody, err := httpDirectory.sendRequest(context.Background(), "/services/nearest")

    if err != nil {
        return "", err
    }

    var service string

    err = json.Unmarshal(responseBody, &service)

    if err != nil {
        return "", err
    }

    return service, nil
}
