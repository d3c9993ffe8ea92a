// Package output renders command results as a stable JSON envelope.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// Version is the depsmith version, set at build time with
// -ldflags "-X github.com/chis/depsmith/internal/output.Version=...".
var Version = "dev"

// Response is the JSON wrapper for every command output.
type Response struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp"` // RFC3339
	Version   string `json:"version"`
}

func newResponse(success bool, data any, message string) Response {
	return Response{
		Success:   success,
		Data:      data,
		Error:     message,
		Timestamp: time.Now().Format(time.RFC3339),
		Version:   Version,
	}
}

// SuccessResponse creates a successful response with data
func SuccessResponse(data any) Response {
	return newResponse(true, data, "")
}

// ErrorResponse creates an error response
func ErrorResponse(err error) Response {
	return newResponse(false, nil, err.Error())
}

// ErrorMessageResponse creates an error response from a string message
func ErrorMessageResponse(message string) Response {
	return newResponse(false, nil, message)
}

// ResultResponse carries data together with the error that made the
// command fail, so partial results (a run where some dependencies failed)
// are still reported. A nil err yields a success response.
func ResultResponse(data any, err error) Response {
	if err == nil {
		return SuccessResponse(data)
	}
	return newResponse(false, data, err.Error())
}

// WriteJSON writes a Response as indented JSON to the given writer
func WriteJSON(w io.Writer, response Response) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// WriteJSONData wraps data in a success response and writes it
func WriteJSONData(w io.Writer, data any) error {
	return WriteJSON(w, SuccessResponse(data))
}

// WriteJSONError wraps an error in a response and writes it
func WriteJSONError(w io.Writer, err error) error {
	return WriteJSON(w, ErrorResponse(err))
}

// WriteJSONResult writes ResultResponse(data, err).
func WriteJSONResult(w io.Writer, data any, err error) error {
	return WriteJSON(w, ResultResponse(data, err))
}
