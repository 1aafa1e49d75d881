package errs

// Error codes. 1xxx are request/argument errors, 13xx transport, 15xx auth.
const (
	ArgsError           = 1001
	TransportNotOpen    = 1301
	TransportIsClosed   = 1302
	FrameMalformed      = 1303
	TokenInvalidError   = 1501
	TokenExpiredError   = 1502
	ServerInternalError = 500
)

var (
	ErrArgs = NewCodeError(ArgsError, "ArgsError")

	// ErrTransportUnavailable: the socket never reached the open state within
	// the bounded retry window. Detail carries the last observed state.
	ErrTransportUnavailable = NewCodeError(TransportNotOpen, "TransportUnavailable")

	// ErrTransportClosed: the transport was torn down and cannot be reused.
	ErrTransportClosed = NewCodeError(TransportIsClosed, "TransportClosed")

	// ErrMalformedFrame: inbound bytes were not a valid frame envelope.
	// Dropped and logged by the transport, never surfaced to callers.
	ErrMalformedFrame = NewCodeError(FrameMalformed, "MalformedFrame")

	ErrTokenInvalid   = NewCodeError(TokenInvalidError, "TokenInvalid")
	ErrTokenExpired   = NewCodeError(TokenExpiredError, "TokenExpired")
	ErrInternalServer = NewCodeError(ServerInternalError, "InternalServerError")
)
