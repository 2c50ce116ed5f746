package logging

import (
    wigwag "github.com/PelionIoT/wigwag-go-logger/logging"
)

// Log is the process-wide logger shared by all historiandb packages.
var Log = wigwag.Log

func LogLevelIsValid(ll string) bool {
    return wigwag.LogLevelIsValid(ll)
}

func SetLoggingLevel(ll string) {
    wigwag.SetLoggingLevel(ll)
}
