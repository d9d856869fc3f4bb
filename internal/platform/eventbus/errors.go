package eventbus

import "github.com/philly/ipcbus/internal/platform/apperror"

var (
	ErrUnknownEventType = apperror.New(apperror.CodeNotFound, apperror.ReasonUnknownEventType,
		"no such event type")
	ErrWrongRole = apperror.New(apperror.CodeInvalidState, apperror.ReasonWrongRole,
		"operation not available in this role")
	ErrAlreadyInitialized = apperror.New(apperror.CodeInvalidState, apperror.ReasonAlreadyInitialized,
		"bus already initialized")
	ErrNotInitialized = apperror.New(apperror.CodeInvalidState, apperror.ReasonNotInitialized,
		"bus not initialized")
	ErrRequestTimeout = apperror.New(apperror.CodeTimeout, apperror.ReasonRequestTimeout,
		"request timed out")
	ErrRemoteRequestFailed = apperror.New(apperror.CodeRemoteFailure, apperror.ReasonRemoteRequestFailed,
		"remote request failed")
	ErrClosed = apperror.New(apperror.CodeUnavailable, apperror.ReasonBusClosed,
		"bus closed")
	ErrEncodeArgument = apperror.New(apperror.CodeInvalidArgument, apperror.ReasonUnencodableArgument,
		"cannot encode event argument")
	ErrNoExecutor = apperror.New(apperror.CodeInvalidState, apperror.ReasonNoExecutor,
		"coordinator has no request executor")
)
