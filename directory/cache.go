package directory

import (
    "encoding/json"

    "github.com/syndtr/goleveldb/leveldb"
    levelErrors "github.com/syndtr/goleveldb/leveldb/errors"

    "github.com/PelionIoT/historiandb/client"
    . "github.com/PelionIoT/historiandb/logging"
)

var (
    keyReadServices = []byte("readServices")
    keyWriteServices = []byte("writeServices")
    keyShadowServices = []byte("shadowServices")
    keyNearestReadService = []byte("nearestReadService")
)

// CachedDirectory decorates another directory adapter with an on-disk copy
// of the last successful responses. A client process can then start and
// keep serving reads through a directory outage.
type CachedDirectory struct {
    inner client.DirectoryAdapter
    db *leveldb.DB
}

func NewCachedDirectory(inner client.DirectoryAdapter, file string) (*CachedDirectory, error) {
    db, err := leveldb.OpenFile(file, nil)

    if err != nil {
        if !levelErrors.IsCorrupted(err) {
            return nil, err
        }

        Log.Errorf("The directory cache at %s is corrupted. Attempting a recovery", file)

        db, err = leveldb.RecoverFile(file, nil)

        if err != nil {
            return nil, err
        }
    }

    return &CachedDirectory{
        inner: inner,
        db: db,
    }, nil
}

func (cachedDirectory *CachedDirectory) Close() error {
    return cachedDirectory.db.Close()
}

func (cachedDirectory *CachedDirectory) serviceList(cacheKey []byte, fetch func() ([]string, error)) ([]string, error) {
    services, err := fetch()

    if err == nil {
        encoded, encodeErr := json.Marshal(services)

        if encodeErr == nil {
            if putErr := cachedDirectory.db.Put(cacheKey, encoded, nil); putErr != nil {
                Log.Warningf("Unable to cache %s: %v", string(cacheKey), putErr.Error())
            }
        }

        return services, nil
    }

    encoded, getErr := cachedDirectory.db.Get(cacheKey, nil)

    if getErr != nil {
        return nil, err
    }

    var cached []string

    if json.Unmarshal(encoded, &cached) != nil {
        return nil, err
    }

    Log.Warningf("Serving cached %s because the directory failed: %v", string(cacheKey), err.Error())

    return cached, nil
}

func (cachedDirectory *CachedDirectory) ReadServices() ([]string, error) {
    return cachedDirectory.serviceList(keyReadServices, cachedDirectory.inner.ReadServices)
}

func (cachedDirectory *CachedDirectory) WriteServices() ([]string, error) {
    return cachedDirectory.serviceList(keyWriteServices, cachedDirectory.inner.WriteServices)
}

func (cachedDirectory *CachedDirectory) ShadowServices() ([]string, error) {
    return cachedDirectory.serviceList(keyShadowServices, cachedDirectory.inner.ShadowServices)
}

// IsValidReadService prefers the inner adapter's answer but accepts any
// service on the cached read list, so a stale cache keeps an established
// client working while the directory is unreachable.
func (cachedDirectory *CachedDirectory) IsValidReadService(serviceName string) bool {
    if cachedDirectory.inner.IsValidReadService(serviceName) {
        return true
    }

    encoded, err := cachedDirectory.db.Get(keyReadServices, nil)

    if err != nil {
        return false
    }

    var cached []string

    if json.Unmarshal(encoded, &cached) != nil {
        return false
    }

    for _, service := range cached {
        if service == serviceName {
            return true
        }
    }

    return false
}

func (cachedDirectory *CachedDirectory) NearestReadService() (string, error) {
    service, err := cachedDirectory.inner.NearestReadService()

    if err == nil {
        if putErr := cachedDirectory.db.Put(keyNearestReadService, []byte(service), nil); putErr != nil {
            Log.Warningf("Unable to cache the nearest read service: %v", putErr.Error())
        }

        return service, nil
    }

    cached, getErr := cachedDirectory.db.Get(keyNearestReadService, nil)

    if getErr != nil || len(cached) == 0 {
        return "", err
    }

    Log.Warningf("Serving the cached nearest read service because the directory failed: %v", err.Error())

    return string(cached), nil
}
