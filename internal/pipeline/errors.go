package pipeline

import "fmt"

// Error codes surfaced to callers.
const (
	CodePDFProcessing = "PDF_PROCESSING_ERROR"
)

// PipelineError distinguishes fatal failures from degraded-but-usable
// outcomes. Recoverable errors never abort a file on their own; fatal ones
// abort the file but not the batch.
type PipelineError struct {
	Code        string
	Message     string
	Recoverable bool
	Err         error
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PipelineError) Unwrap() error { return e.Err }

func fatal(message string, err error) *PipelineError {
	return &PipelineError{Code: CodePDFProcessing, Message: message, Recoverable: false, Err: err}
}
