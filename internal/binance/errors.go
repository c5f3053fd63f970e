package binance

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies upstream failures.
type ErrorKind string

const (
	KindInvalidSymbol ErrorKind = "invalid_symbol"
	KindRateLimited   ErrorKind = "rate_limited"
	KindClient        ErrorKind = "client_error"
	KindServer        ErrorKind = "server_error"
	KindTimeout       ErrorKind = "timeout"
	KindNetwork       ErrorKind = "network_error"
	KindDecode        ErrorKind = "decode_error"
)

// Binance error code for an unknown trading pair.
const codeInvalidSymbol = -1121

// APIError is returned for every failed upstream request.
type APIError struct {
	Kind       ErrorKind
	Endpoint   string
	StatusCode int    // zero for transport failures
	Code       int    // Binance error code, zero when absent
	Message    string // upstream msg or transport error text
	Err        error
}

func (e *APIError) Error() string {
	switch e.Kind {
	case KindTimeout, KindNetwork, KindDecode:
		return fmt.Sprintf("%s %s: %s", e.Kind, e.Endpoint, e.Message)
	default:
		return fmt.Sprintf("binance %s: HTTP %d (code %d): %s", e.Endpoint, e.StatusCode, e.Code, e.Message)
	}
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// AsAPIError extracts an *APIError from err.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// errorBody is the upstream error payload {"code":-1121,"msg":"Invalid symbol."}.
type errorBody struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// classifyStatus maps an HTTP status and error body to an ErrorKind.
func classifyStatus(status int, body errorBody) ErrorKind {
	switch {
	case status == 429 || status == 418:
		return KindRateLimited
	case status >= 400 && status < 500:
		if body.Code == codeInvalidSymbol || strings.Contains(strings.ToLower(body.Msg), "symbol") {
			return KindInvalidSymbol
		}
		return KindClient
	default:
		return KindServer
	}
}
