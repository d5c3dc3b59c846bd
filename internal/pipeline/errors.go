package pipeline

import "fmt"

// AcquisitionError marks a failure to fetch the brand profile itself.
// It is always fatal: without the brand snapshot there is nothing to
// audit.
type AcquisitionError struct {
	Handle string
	Err    error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("acquiring brand profile @%s: %v", e.Handle, e.Err)
}

func (e *AcquisitionError) Unwrap() error {
	return e.Err
}
