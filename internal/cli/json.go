package cli

import (
	"encoding/json"
	"fmt"
	"os"
)

var jsonOutput bool

// Response is the JSON envelope for all CLI output.
type Response struct {
	OK    bool        `json:"ok"`
	Data  interface{} `json:"data,omitempty"`
	Error *ErrorInfo  `json:"error,omitempty"`
	Meta  *Meta       `json:"meta,omitempty"`
}

// ErrorInfo contains structured error information.
type ErrorInfo struct {
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	Suggestion string      `json:"suggestion,omitempty"`
}

// Meta contains metadata about the response.
type Meta struct {
	Count       int   `json:"count,omitempty"`
	Total       int   `json:"total,omitempty"`
	QueryTimeMs int64 `json:"query_time_ms,omitempty"`
}

func outputJSON(resp Response) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(resp)
}

func outputSuccess(data interface{}, meta *Meta) {
	outputJSON(Response{OK: true, Data: data, Meta: meta})
}

// handleError reports err as a JSON error in --json mode and returns nil so
// cobra does not print it again; otherwise it returns err unchanged.
func handleError(code string, err error, suggestion string) error {
	if jsonOutput {
		outputJSON(Response{Error: &ErrorInfo{Code: code, Message: err.Error(), Suggestion: suggestion}})
		return nil
	}
	if suggestion != "" {
		return fmt.Errorf("%w\n\n%s", err, suggestion)
	}
	return err
}

func handleErrorWithDetails(code string, err error, details interface{}) error {
	if jsonOutput {
		outputJSON(Response{Error: &ErrorInfo{Code: code, Message: err.Error(), Details: details}})
		return nil
	}
	return err
}
