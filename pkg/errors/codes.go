package errors

import (
	"net/http"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes shared by every layer.
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_003"
	ErrCodeConflict           ErrorCode = "COMMON_004"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_005"
	ErrCodeValidation         ErrorCode = "COMMON_006"
	ErrCodeSerialization      ErrorCode = "COMMON_007"
	ErrCodeDatabaseError      ErrorCode = "COMMON_008"
	ErrCodeCacheError         ErrorCode = "COMMON_009"
	ErrCodeMessageQueue       ErrorCode = "COMMON_010"
)

// Deadline engine error codes.
//
// The calculation taxonomy distinguishes recoverable degradations (unknown
// process type, unknown scope, stale version) from structural rejections
// (invalid suspension ranges, malformed inputs).  Recoverable codes never
// abort a computation; they annotate the result as best-effort instead.
const (
	// ErrCodeUnresolvedProcessType signals a trigger event referencing a
	// process type or event kind the active rule set does not know.  The
	// calculator falls back to the configured default type.
	ErrCodeUnresolvedProcessType ErrorCode = "DLN_001"

	// ErrCodeUnknownScope signals a holiday/suspension scope not present in
	// the rule set.  The caller must retry with a fallback scope.
	ErrCodeUnknownScope ErrorCode = "DLN_002"

	// ErrCodeStaleRuleVersion signals that a ComputedDeadline's pinned rule
	// version no longer matches the active one.  Warning, not failure.
	ErrCodeStaleRuleVersion ErrorCode = "DLN_003"

	// ErrCodeInvalidSuspensionRange signals a suspension period whose end
	// precedes its start.  Rejected at mutation time.
	ErrCodeInvalidSuspensionRange ErrorCode = "DLN_004"

	// ErrCodeConfigurationConflict signals a configuration update that raced
	// against another writer.  Last-writer-wins applies; both versions stay
	// in history.
	ErrCodeConfigurationConflict ErrorCode = "DLN_005"

	// ErrCodeUnknownRuleVersion signals a lookup against a rule-set version
	// that was never published.
	ErrCodeUnknownRuleVersion ErrorCode = "DLN_006"

	// ErrCodeUnknownSchemaVersion signals a persisted document whose schema
	// version this build does not recognise.  Readers reject rather than
	// guessing a compatible shape.
	ErrCodeUnknownSchemaVersion ErrorCode = "DLN_007"

	// ErrCodeDeadlineNotFound signals a ComputedDeadline lookup miss.
	ErrCodeDeadlineNotFound ErrorCode = "DLN_008"

	// ErrCodeInvalidTriggerEvent signals a structurally invalid trigger
	// event (zero base date, empty event kind).  Rejected at the boundary.
	ErrCodeInvalidTriggerEvent ErrorCode = "DLN_009"

	// ErrCodeAlertDeliveryFailed signals that the outbound alert sink
	// rejected an alert signal.
	ErrCodeAlertDeliveryFailed ErrorCode = "DLN_010"
)

// CodeUnknown marks an error that carries no AppError in its chain.
const CodeUnknown ErrorCode = "UNKNOWN"

// CodeOK is returned by GetCode for nil errors.
const CodeOK ErrorCode = "OK"

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeMessageQueue:       http.StatusInternalServerError,

	ErrCodeUnresolvedProcessType:  http.StatusUnprocessableEntity,
	ErrCodeUnknownScope:           http.StatusUnprocessableEntity,
	ErrCodeStaleRuleVersion:       http.StatusConflict,
	ErrCodeInvalidSuspensionRange: http.StatusBadRequest,
	ErrCodeConfigurationConflict:  http.StatusConflict,
	ErrCodeUnknownRuleVersion:     http.StatusNotFound,
	ErrCodeUnknownSchemaVersion:   http.StatusUnprocessableEntity,
	ErrCodeDeadlineNotFound:       http.StatusNotFound,
	ErrCodeInvalidTriggerEvent:    http.StatusBadRequest,
	ErrCodeAlertDeliveryFailed:    http.StatusInternalServerError,
}

// HTTPStatus returns the HTTP status for a code, defaulting to 500 for codes
// without an explicit mapping.
func HTTPStatus(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
