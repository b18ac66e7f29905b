package errors

// ErrorCode is the machine-readable code carried by every AppError
type ErrorCode int32

const (
	ErrorCode_HTTP_OK ErrorCode = 200

	// General
	ErrorCode_INTERNAL          ErrorCode = 1000
	ErrorCode_INVALID_ARGUMENT  ErrorCode = 1001
	ErrorCode_PERMISSION_DENIED ErrorCode = 1004
	ErrorCode_UNAUTHENTICATED   ErrorCode = 1005
	ErrorCode_INVALID_PAYLOAD   ErrorCode = 1006

	// Authentication
	ErrorCode_AUTH_INVALID_TOKEN ErrorCode = 2001
	ErrorCode_AUTH_TOKEN_EXPIRED ErrorCode = 2002

	// Recordings
	ErrorCode_RECORDING_NOT_FOUND    ErrorCode = 3001
	ErrorCode_RECORDING_CONFLICT     ErrorCode = 3002
	ErrorCode_RECORDING_NOT_ANALYZED ErrorCode = 3003

	// Database
	ErrorCode_DB_QUERY_FAILED ErrorCode = 5002
)

var errorCodeNames = map[ErrorCode]string{
	ErrorCode_HTTP_OK:                "HTTP_OK",
	ErrorCode_INTERNAL:               "INTERNAL",
	ErrorCode_INVALID_ARGUMENT:       "INVALID_ARGUMENT",
	ErrorCode_PERMISSION_DENIED:      "PERMISSION_DENIED",
	ErrorCode_UNAUTHENTICATED:        "UNAUTHENTICATED",
	ErrorCode_INVALID_PAYLOAD:        "INVALID_PAYLOAD",
	ErrorCode_AUTH_INVALID_TOKEN:     "AUTH_INVALID_TOKEN",
	ErrorCode_AUTH_TOKEN_EXPIRED:     "AUTH_TOKEN_EXPIRED",
	ErrorCode_RECORDING_NOT_FOUND:    "RECORDING_NOT_FOUND",
	ErrorCode_RECORDING_CONFLICT:     "RECORDING_CONFLICT",
	ErrorCode_RECORDING_NOT_ANALYZED: "RECORDING_NOT_ANALYZED",
	ErrorCode_DB_QUERY_FAILED:        "DB_QUERY_FAILED",
}

// String returns the code name
func (c ErrorCode) String() string {
	if name, ok := errorCodeNames[c]; ok {
		return name
	}
	return "UNKNOWN"
}

// MarshalText renders the code by name in JSON bodies
func (c ErrorCode) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}
