package errors

type DBerror struct {
    message string
    code int
}

func (dbError DBerror) Error() string {
    return dbError.message
}

func (dbError DBerror) Code() int {
    return dbError.code
}

const (
    eEMPTY = iota
    eQUEUE_FULL = iota
    eREAD_FAILED = iota
    eNO_READ_SERVICES = iota
    eBAD_SERVICE = iota
    eSTOPPED = iota
    eCLIENT_TIMEOUT = iota
    eDIRECTORY = iota
)

var (
    EEmpty           = DBerror{ "Parameter was empty or nil", eEMPTY }
    EQueueFull       = DBerror{ "The write queue is full", eQUEUE_FULL }
    EReadFailed      = DBerror{ "Failed reading data from all replica services", eREAD_FAILED }
    ENoReadServices  = DBerror{ "No read services are available", eNO_READ_SERVICES }
    EBadService      = DBerror{ "The service name is not a valid read service", eBAD_SERVICE }
    EStopped         = DBerror{ "The client has been stopped", eSTOPPED }
    EClientTimeout   = DBerror{ "Client request timed out", eCLIENT_TIMEOUT }
    EDirectory       = DBerror{ "The directory could not be queried", eDIRECTORY }
)
