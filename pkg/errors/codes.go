package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
// Codes are prefixed with the module that owns them (COMMON, MOL, DSC, INF).
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeMessageQueueError  ErrorCode = "COMMON_014"
)

// Aliases used by call sites that predate the ErrCode prefix.
const (
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeConflict     = ErrCodeConflict
	CodeUnknown      = ErrorCode("UNKNOWN")
	CodeOK           = ErrorCode("OK")
)

// Molecule Module Error Codes
const (
	ErrCodeInvalidMolecule        ErrorCode = "MOL_001"
	ErrCodeMoleculeParsingFailed  ErrorCode = "MOL_002"
	ErrCodeMoleculeInvalidSMILES  ErrorCode = "MOL_003"
	ErrCodeMoleculeInvalidMolfile ErrorCode = "MOL_004"
	ErrCodeAtomIndexOutOfRange    ErrorCode = "MOL_005"
)

// Descriptor Module Error Codes
const (
	ErrCodeUnsupportedElement          ErrorCode = "MOL_020"
	ErrCodeDescriptorCalculationFailed ErrorCode = "MOL_021"
	ErrCodeDescriptorDecodeFailed      ErrorCode = "MOL_022"
	ErrCodeUnknownDescriptorFamily     ErrorCode = "MOL_023"
	ErrCodeCanonicalizationFailed      ErrorCode = "MOL_024"
	ErrCodeInvalidFingerprintSize      ErrorCode = "MOL_025"
	ErrCodeSimilarityThresholdInvalid  ErrorCode = "MOL_026"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeMessageQueueError:  http.StatusInternalServerError,

	ErrCodeInvalidMolecule:        http.StatusBadRequest,
	ErrCodeMoleculeParsingFailed:  http.StatusBadRequest,
	ErrCodeMoleculeInvalidSMILES:  http.StatusBadRequest,
	ErrCodeMoleculeInvalidMolfile: http.StatusBadRequest,
	ErrCodeAtomIndexOutOfRange:    http.StatusBadRequest,

	ErrCodeUnsupportedElement:          http.StatusUnprocessableEntity,
	ErrCodeDescriptorCalculationFailed: http.StatusUnprocessableEntity,
	ErrCodeDescriptorDecodeFailed:      http.StatusBadRequest,
	ErrCodeUnknownDescriptorFamily:     http.StatusNotFound,
	ErrCodeCanonicalizationFailed:      http.StatusInternalServerError,
	ErrCodeInvalidFingerprintSize:      http.StatusBadRequest,
	ErrCodeSimilarityThresholdInvalid:  http.StatusBadRequest,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeMessageQueueError:  "message queue error",

	ErrCodeInvalidMolecule:        "invalid molecule",
	ErrCodeMoleculeParsingFailed:  "failed to parse molecule",
	ErrCodeMoleculeInvalidSMILES:  "invalid SMILES",
	ErrCodeMoleculeInvalidMolfile: "invalid molfile",
	ErrCodeAtomIndexOutOfRange:    "atom index out of range",

	ErrCodeUnsupportedElement:          "element has no atom class code",
	ErrCodeDescriptorCalculationFailed: "descriptor calculation failed",
	ErrCodeDescriptorDecodeFailed:      "failed to decode descriptor",
	ErrCodeUnknownDescriptorFamily:     "unknown descriptor family",
	ErrCodeCanonicalizationFailed:      "canonicalization failed",
	ErrCodeInvalidFingerprintSize:      "invalid fingerprint size",
	ErrCodeSimilarityThresholdInvalid:  "invalid similarity threshold",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 1 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}

//Personal.AI order the ending
