package errors

import (
	"strings"

	"github.com/cockroachdb/errors"
	jsoniter "github.com/json-iterator/go"
)

var jsonUnmarshal = jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal

// ErrorResponse is the printable form of a rejected pricing operation
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code          string         `json:"code,omitempty"`
	Display       string         `json:"message"`
	InternalError string         `json:"internal_error,omitempty"`
	Details       map[string]any `json:"details,omitempty"`
}

// NewErrorResponse flattens err into an ErrorResponse. The hint, when present,
// becomes the display message.
func NewErrorResponse(err error) ErrorResponse {
	detail := ErrorDetail{
		Code:          Code(err),
		Display:       GetHint(err),
		InternalError: err.Error(),
	}
	if detail.Display == "" {
		detail.Display = detail.InternalError
	}
	if details := reportableDetails(err); len(details) > 0 {
		detail.Details = details
	}
	return ErrorResponse{Error: detail}
}

func reportableDetails(err error) map[string]any {
	out := make(map[string]any)
	for _, d := range errors.GetAllSafeDetails(err) {
		for _, payload := range d.SafeDetails {
			raw, ok := strings.CutPrefix(payload, "__json__:")
			if !ok {
				continue
			}
			var m map[string]any
			if jsonUnmarshal([]byte(raw), &m) != nil {
				continue
			}
			for k, v := range m {
				out[k] = v
			}
		}
	}
	return out
}
