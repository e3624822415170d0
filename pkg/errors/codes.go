package errors

import "net/http"

// ErrorCode identifies a specific failure category.  Codes are stable
// strings so that API consumers and metric labels can rely on them.
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
	ErrCodeTimeout            ErrorCode = "COMMON_005"
	ErrCodeValidation         ErrorCode = "COMMON_006"
	ErrCodeSerialization      ErrorCode = "COMMON_007"
	ErrCodeDatabaseError      ErrorCode = "COMMON_008"
	ErrCodeCacheError         ErrorCode = "COMMON_009"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_010"
	ErrCodeNotImplemented     ErrorCode = "COMMON_011"
)

// Scoring and ranking error codes.
const (
	// ErrCodeNoActiveCriteria is returned when composite scoring is requested
	// but the criteria model is empty.  Distinct from a score of zero.
	ErrCodeNoActiveCriteria ErrorCode = "SCORE_001"

	// ErrCodeInvalidWeight is returned for negative or otherwise unusable
	// criterion weights.
	ErrCodeInvalidWeight ErrorCode = "SCORE_002"

	// ErrCodeProjectNotFound is returned when a project referenced by a
	// scoring or analysis call does not exist.
	ErrCodeProjectNotFound ErrorCode = "SCORE_003"

	// ErrCodeCacheEpochMissing is returned when the rank cache holds no
	// complete recalculation epoch.
	ErrCodeCacheEpochMissing ErrorCode = "SCORE_004"
)

// Investment analysis error codes.
const (
	// ErrCodeEmptyCashFlow is returned for a zero-length cash-flow series.
	ErrCodeEmptyCashFlow ErrorCode = "INVEST_001"

	// ErrCodeInvalidHorizon is returned for a non-positive analysis horizon.
	ErrCodeInvalidHorizon ErrorCode = "INVEST_002"
)

// Forecasting error codes.
const (
	// ErrCodeInsufficientHistory is returned when fewer than two portfolio
	// snapshots are available; a trend cannot be fabricated from one point.
	ErrCodeInsufficientHistory ErrorCode = "FORECAST_001"

	// ErrCodeInvalidScenario is returned for unknown scenario types.
	ErrCodeInvalidScenario ErrorCode = "FORECAST_002"
)

// httpStatusByCode maps error codes to HTTP status codes for the API layer.
var httpStatusByCode = map[ErrorCode]int{
	ErrCodeInternal:            http.StatusInternalServerError,
	ErrCodeBadRequest:          http.StatusBadRequest,
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeTimeout:             http.StatusGatewayTimeout,
	ErrCodeValidation:          http.StatusBadRequest,
	ErrCodeSerialization:       http.StatusInternalServerError,
	ErrCodeDatabaseError:       http.StatusInternalServerError,
	ErrCodeCacheError:          http.StatusInternalServerError,
	ErrCodeServiceUnavailable:  http.StatusServiceUnavailable,
	ErrCodeNotImplemented:      http.StatusNotImplemented,
	ErrCodeNoActiveCriteria:    http.StatusNotFound,
	ErrCodeInvalidWeight:       http.StatusBadRequest,
	ErrCodeProjectNotFound:     http.StatusNotFound,
	ErrCodeCacheEpochMissing:   http.StatusNotFound,
	ErrCodeEmptyCashFlow:       http.StatusBadRequest,
	ErrCodeInvalidHorizon:      http.StatusBadRequest,
	ErrCodeInsufficientHistory: http.StatusUnprocessableEntity,
	ErrCodeInvalidScenario:     http.StatusBadRequest,
}

// HTTPStatus returns the HTTP status code associated with c, defaulting to
// 500 for unknown codes.
func (c ErrorCode) HTTPStatus() int {
	if s, ok := httpStatusByCode[c]; ok {
		return s
	}
	return http.StatusInternalServerError
}
