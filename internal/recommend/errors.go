package recommend

import "fmt"

// ValidationError rejects a malformed query or filter before any
// retrieval work starts.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// DependencyUnavailableError is surfaced only when every signal source
// has failed; single-dependency failures degrade instead.
type DependencyUnavailableError struct {
	Dependency string
	Err        error
}

func (e *DependencyUnavailableError) Error() string {
	return fmt.Sprintf("dependency %s unavailable: %v", e.Dependency, e.Err)
}

func (e *DependencyUnavailableError) Unwrap() error { return e.Err }
