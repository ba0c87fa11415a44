package tool

import "fmt"

// ToolError is the typed failure a tool implementation returns. Transient
// failures (timeouts, rate limits) may be retried by the executor; permanent
// failures (invalid external reference) are recorded immediately.
type ToolError struct {
	Transient bool
	Message   string
}

func (e *ToolError) Error() string {
	return e.Message
}

func TransientError(format string, args ...any) *ToolError {
	return &ToolError{Transient: true, Message: fmt.Sprintf(format, args...)}
}

func PermanentError(format string, args ...any) *ToolError {
	return &ToolError{Transient: false, Message: fmt.Sprintf(format, args...)}
}
