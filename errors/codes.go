package errors

// ErrorCode is a machine-readable error code. Server errors carry whatever
// code the resource server returned; client-originated errors use the
// constants below.
type ErrorCode string

// Codes commonly returned by resource servers.
const (
	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeUnauthorized indicates the request lacked valid credentials.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrCodeForbidden indicates the credentials do not grant access.
	ErrCodeForbidden ErrorCode = "FORBIDDEN"
)

// Codes assigned to client-originated failures.
const (
	// ErrCodeValidation marks a form-level validation failure.
	ErrCodeValidation ErrorCode = "VALIDATION_FAILED"
	// ErrCodeInvalidResponse marks a 2xx response whose body could not be decoded.
	ErrCodeInvalidResponse ErrorCode = "INVALID_RESPONSE"
	// ErrCodePanic marks a fetch or mutation function that panicked.
	ErrCodePanic ErrorCode = "PANIC"
)

// Kind classifies where a failure originated.
type Kind string

const (
	// KindServer means the server responded with a non-2xx status.
	KindServer Kind = "server"
	// KindNetwork means the request was sent but no response arrived.
	KindNetwork Kind = "network"
	// KindRequestSetup means the request was never sent.
	KindRequestSetup Kind = "request_setup"
	// KindValidation means a payload failed form-level validation.
	KindValidation Kind = "validation"
)

// String returns the kind name.
func (k Kind) String() string { return string(k) }
