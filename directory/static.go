package directory

import (
    "io/ioutil"

    "gopkg.in/yaml.v2"

    . "github.com/PelionIoT/historiandb/errors"
)

// StaticDirectory serves fixed service lists, typically loaded from a YAML
// file deployed next to the client. Useful for development setups and as
// the innermost fallback when no live directory is reachable.
type StaticDirectory struct {
    Read []string `yaml:"readServices"`
    Write []string `yaml:"writeServices"`
    Shadow []string `yaml:"shadowServices"`
    Nearest string `yaml:"nearestReadService"`
}

func NewStaticDirectoryFromFile(file string) (*StaticDirectory, error) {
    rawConfig, err := ioutil.ReadFile(file)

    if err != nil {
        return nil, err
    }

    var staticDirectory StaticDirectory

    err = yaml.Unmarshal(rawConfig, &staticDirectory)

    if err != nil {
        return nil, err
    }

    return &staticDirectory, nil
}

func (staticDirectory *StaticDirectory) ReadServices() ([]string, error) {
    return append([]string{}, staticDirectory.Read...), nil
}

func (staticDirectory *StaticDirectory) WriteServices() ([]string, error) {
    return append([]string{}, staticDirectory.Write...), nil
}

func (staticDirectory *StaticDirectory) ShadowServices() ([]string, error) {
    return append([]string{}, staticDirectory.Shadow...), nil
}

func (staticDirectory *StaticDirectory) IsValidReadService(serviceName string) bool {
    for _, service := range staticDirectory.Read {
        if service == serviceName {
            return true
        }
    }

    return false
}

func (staticDirectory *StaticDirectory) NearestReadService() (string, error) {
    if len(staticDirectory.Nearest) != 0 {
        return staticDirectory.Nearest, nil
    }

    if len(staticDirectory.Read) != 0 {
        return staticDirectory.Read[0], nil
    }

    return "", ENoReadServices
}
