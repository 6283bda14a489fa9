package output

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	connerr "github.com/mrz1836/connector/pkg/errors"
)

// ErrorOutput represents a structured error for JSON and YAML output.
type ErrorOutput struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error details.
type ErrorDetail struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
	ExitCode   int               `json:"exit_code"`
}

// FormatError formats an error for display.
func FormatError(w io.Writer, err error, format Format) error {
	if err == nil {
		return nil
	}

	switch format {
	case FormatJSON:
		return writeJSON(w, ErrorOutput{Error: detail(err)})
	case FormatYAML:
		return writeYAML(w, ErrorOutput{Error: detail(err)})
	default:
		return formatErrorText(w, err)
	}
}

// detail flattens err into the fields shown to the user. Errors outside the
// connector taxonomy are reported as GENERAL_ERROR.
func detail(err error) ErrorDetail {
	var ce *connerr.ConnectorError
	if errors.As(err, &ce) {
		return ErrorDetail{
			Code:       ce.Code,
			Message:    ce.Message,
			Details:    ce.Details,
			Suggestion: ce.Suggestion,
			ExitCode:   ce.ExitCode,
		}
	}
	return ErrorDetail{
		Code:     connerr.ErrGeneral.Code,
		Message:  err.Error(),
		ExitCode: connerr.ExitGeneral,
	}
}

func formatErrorText(w io.Writer, err error) error {
	d := detail(err)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Error: %s\n", d.Message)

	if len(d.Details) > 0 {
		keys := make([]string, 0, len(d.Details))
		for k := range d.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		sb.WriteString("\nDetails:\n")
		for _, k := range keys {
			fmt.Fprintf(&sb, "  %s: %s\n", k, d.Details[k])
		}
	}

	if d.Suggestion != "" {
		fmt.Fprintf(&sb, "\nSuggestion: %s\n", d.Suggestion)
	}

	_, writeErr := io.WriteString(w, sb.String())
	return writeErr
}

// FormatSuccess formats a success message.
func FormatSuccess(w io.Writer, message string, format Format) error {
	status := map[string]string{"status": "success", "message": message}
	switch format {
	case FormatJSON:
		return writeJSON(w, status)
	case FormatYAML:
		return writeYAML(w, status)
	default:
		_, err := fmt.Fprintln(w, message)
		return err
	}
}
