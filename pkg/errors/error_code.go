package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeMissingParameter     ErrorCode = 102
	ErrCodeInvalidVersion       ErrorCode = 103
	ErrCodeSymbolNotAllowed     ErrorCode = 104

	// Auth errors (200-299)
	ErrCodeAuthConfig ErrorCode = 200

	// Data errors (300-399)
	ErrCodeStaleData     ErrorCode = 300
	ErrCodeDataIntegrity ErrorCode = 301

	// Order errors (500-599)
	ErrCodeOrderRejected      ErrorCode = 500
	ErrCodeOrderNotCancelable ErrorCode = 501
	ErrCodeUnknownOrder       ErrorCode = 502

	// Exchange and network errors (600-699)
	ErrCodeTransientNetwork ErrorCode = 600
	ErrCodeExchangeRequest  ErrorCode = 601
	ErrCodeExchangeNotFound ErrorCode = 602
	ErrCodeSessionClosed    ErrorCode = 603
	ErrCodeNotStarted       ErrorCode = 604

	// Event delivery errors (800-899)
	ErrCodePublishFailed ErrorCode = 800
)
