package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Pipeline process errors
	ErrPipelineBusy    = fmt.Errorf("pipeline is already running")
	ErrPipelineCommand = fmt.Errorf("pipeline command is empty")

	// Job lifecycle errors
	ErrJobCancelled = fmt.Errorf("job cancelled")

	// Persistence errors
	ErrNotFound = fmt.Errorf("record not found")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrUploadDisabled     = fmt.Errorf("podcast upload not configured")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
