package apperror

// ErrorCode is the broad category of a failure.
type ErrorCode string

const (
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeInvalidState    ErrorCode = "INVALID_STATE"
	CodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	CodeTimeout         ErrorCode = "TIMEOUT"
	CodeUnavailable     ErrorCode = "UNAVAILABLE"
	CodeRemoteFailure   ErrorCode = "REMOTE_FAILURE"
	CodeInternal        ErrorCode = "INTERNAL"
)

// Reason narrows an ErrorCode to the specific condition.
type Reason string

const (
	ReasonGeneral             Reason = "GENERAL"
	ReasonUnknownEventType    Reason = "UNKNOWN_EVENT_TYPE"
	ReasonWrongRole           Reason = "WRONG_ROLE"
	ReasonAlreadyInitialized  Reason = "ALREADY_INITIALIZED"
	ReasonNotInitialized      Reason = "NOT_INITIALIZED"
	ReasonRequestTimeout      Reason = "REQUEST_TIMEOUT"
	ReasonRemoteRequestFailed Reason = "REMOTE_REQUEST_FAILED"
	ReasonBusClosed           Reason = "BUS_CLOSED"
	ReasonUnencodableArgument Reason = "UNENCODABLE_ARGUMENT"
	ReasonNotConnected        Reason = "NOT_CONNECTED"
	ReasonUnknownSatellite    Reason = "UNKNOWN_SATELLITE"
	ReasonTransportClosed     Reason = "TRANSPORT_CLOSED"
	ReasonBadPayload          Reason = "BAD_PAYLOAD"
	ReasonUpstreamStatus      Reason = "UPSTREAM_STATUS"
	ReasonNoExecutor          Reason = "NO_EXECUTOR"
)
