package mcp

import (
	"errors"
	"fmt"
	"strings"

	"binance-mcp/internal/binance"
	"binance-mcp/internal/format"
	"binance-mcp/internal/models"
)

// FormatMCPError converts an error into a JSON-RPC error object.
func FormatMCPError(err error) *RPCError {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		return &RPCError{
			Code:    InvalidParams,
			Message: "Parameter validation failed",
			Data: map[string]interface{}{
				"field":   ve.Field,
				"message": ve.Message,
			},
		}
	}

	return &RPCError{
		Code:    InternalError,
		Message: fmt.Sprintf("Internal error: %s", err.Error()),
	}
}

// ToolErrorKind labels a failed tool call.
type ToolErrorKind string

const (
	KindInvalidParameter ToolErrorKind = "invalid_parameter"
	KindUnknownSymbol    ToolErrorKind = "unknown_symbol"
	KindRateLimited      ToolErrorKind = "rate_limited"
	KindUpstream         ToolErrorKind = "upstream_error"
)

// RateLimitWait is the cooldown suggested after a rate limit response.
const RateLimitWait = "Wait 60 seconds before making more requests."

// ToolError is a failed tool call. It is returned to the caller as a tool
// result with isError set, rendered in the requested format.
type ToolError struct {
	Kind           ToolErrorKind
	Message        string
	Field          string
	Allowed        []string
	UnknownSymbols []string
	Suggestions    []string
	StatusCode     int
	Code           int
	Hint           string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// InvalidParameter builds a tool error from a validation failure.
func InvalidParameter(ve *ValidationError) *ToolError {
	hint := "Check the parameter and try again."
	if len(ve.Allowed) > 0 {
		hint = "Use one of the allowed values."
	}
	return &ToolError{
		Kind:    KindInvalidParameter,
		Message: ve.Message,
		Field:   ve.Field,
		Allowed: ve.Allowed,
		Hint:    hint,
	}
}

// UnknownSymbol builds a tool error for symbols the exchange does not list.
func UnknownSymbol(apiErr *binance.APIError, unknown, suggestions []string) *ToolError {
	return &ToolError{
		Kind:           KindUnknownSymbol,
		Message:        apiErr.Message,
		UnknownSymbols: unknown,
		Suggestions:    suggestions,
		StatusCode:     apiErr.StatusCode,
		Code:           apiErr.Code,
		Hint:           "Use binance_search_symbols to find valid trading pairs.",
	}
}

// RateLimited builds a tool error for a 429 or 418 response.
func RateLimited(apiErr *binance.APIError) *ToolError {
	return &ToolError{
		Kind:       KindRateLimited,
		Message:    apiErr.Message,
		StatusCode: apiErr.StatusCode,
		Code:       apiErr.Code,
		Hint:       RateLimitWait + " Tip: request several symbols in one call instead of one call per symbol.",
	}
}

// Upstream builds a tool error for any other failure talking to Binance.
func Upstream(err error) *ToolError {
	te := &ToolError{Kind: KindUpstream, Message: err.Error()}

	if apiErr, ok := binance.AsAPIError(err); ok {
		te.Message = apiErr.Message
		te.StatusCode = apiErr.StatusCode
		te.Code = apiErr.Code

		switch apiErr.Kind {
		case binance.KindTimeout:
			te.Hint = "The request to Binance timed out. Try again with a smaller limit."
		case binance.KindNetwork:
			te.Hint = "Check network connectivity to the Binance API."
		case binance.KindServer:
			te.Hint = "Binance is experiencing issues. Try again later."
		}
	}
	return te
}

// Payload returns the JSON form of the error.
func (e *ToolError) Payload() models.ToolErrorPayload {
	return models.ToolErrorPayload{
		Error:          string(e.Kind),
		Message:        e.Message,
		Field:          e.Field,
		Allowed:        e.Allowed,
		UnknownSymbols: e.UnknownSymbols,
		Suggestions:    e.Suggestions,
		StatusCode:     e.StatusCode,
		Code:           e.Code,
		Hint:           e.Hint,
	}
}

// Render formats the error as markdown or JSON.
func (e *ToolError) Render(responseFormat string) string {
	if responseFormat == FormatJSON {
		out, err := format.Marshal(e.Payload())
		if err == nil {
			return out
		}
	}
	return e.Markdown()
}

// Markdown renders the error for a human reader.
func (e *ToolError) Markdown() string {
	var b strings.Builder

	switch e.Kind {
	case KindInvalidParameter:
		if e.Field != "" {
			fmt.Fprintf(&b, "Error: Invalid parameter '%s': %s\n", e.Field, e.Message)
		} else {
			fmt.Fprintf(&b, "Error: Invalid parameters: %s\n", e.Message)
		}
		if len(e.Allowed) > 0 {
			fmt.Fprintf(&b, "\nAllowed values: %s\n", strings.Join(e.Allowed, ", "))
		}

	case KindUnknownSymbol:
		if len(e.UnknownSymbols) > 0 {
			fmt.Fprintf(&b, "Error: Unknown symbol: %s\n", strings.Join(e.UnknownSymbols, ", "))
		} else {
			b.WriteString("Error: Unknown symbol\n")
		}
		if e.Message != "" {
			fmt.Fprintf(&b, "\nBinance says: %s\n", e.Message)
		}
		if len(e.Suggestions) > 0 {
			fmt.Fprintf(&b, "\nDid you mean: %s?\n", strings.Join(e.Suggestions, ", "))
		}
		b.WriteString("\nUse binance_search_symbols to find valid trading pairs:\n")
		b.WriteString("- Search by base asset: binance_search_symbols(base_asset='BTC')\n")
		b.WriteString("- Search by quote asset: binance_search_symbols(quote_asset='USDT')\n")
		b.WriteString("- Search by keyword: binance_search_symbols(search_term='DOGE')\n")
		return b.String()

	case KindRateLimited:
		fmt.Fprintf(&b, "Error: Rate limit exceeded (HTTP %d)\n", e.StatusCode)
		if e.Message != "" {
			fmt.Fprintf(&b, "\nBinance says: %s\n", e.Message)
		}

	default:
		switch {
		case e.StatusCode > 0 && e.Code != 0:
			fmt.Fprintf(&b, "Error: Binance API error (HTTP %d, Code %d): %s\n", e.StatusCode, e.Code, e.Message)
		case e.StatusCode > 0:
			fmt.Fprintf(&b, "Error: Binance API error (HTTP %d): %s\n", e.StatusCode, e.Message)
		default:
			fmt.Fprintf(&b, "Error: Request to Binance failed: %s\n", e.Message)
		}
	}

	if e.Hint != "" {
		fmt.Fprintf(&b, "\n%s\n", e.Hint)
	}
	return b.String()
}
