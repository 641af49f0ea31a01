// internal/errors/errors.go
package errors

import "fmt"

// ErrInvalidRepoFormat is returned when a repository string is not in 'owner/name' format.
type ErrInvalidRepoFormat struct {
	Repo string
}

func (e *ErrInvalidRepoFormat) Error() string {
	return fmt.Sprintf("invalid repository format: %q, expected 'owner/name'", e.Repo)
}

// ErrRecordExists is returned when a create-only write hits a key that is already stored.
// Under sequential harvesting this means an existence check was skipped.
type ErrRecordExists struct {
	Kind string
	Key  string
}

func (e *ErrRecordExists) Error() string {
	return fmt.Sprintf("%s record %q already exists", e.Kind, e.Key)
}

// ErrInvalidRecord is returned when a record fails validation at the store boundary.
type ErrInvalidRecord struct {
	Kind   string
	Key    string
	Reason string
}

func (e *ErrInvalidRecord) Error() string {
	return fmt.Sprintf("invalid %s record %q: %s", e.Kind, e.Key, e.Reason)
}
