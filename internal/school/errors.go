package school

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateSubmission indicates a submission already exists for the
	// same (student, task, day) key.
	ErrDuplicateSubmission = errors.New("submission already exists for this day")
)
