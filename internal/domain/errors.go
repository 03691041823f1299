package domain

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrContentNotExtracted means no extraction run has produced text for an assignment yet.
	ErrContentNotExtracted = errors.New("assignment content has not been extracted")
	// ErrVersionConflict is returned when an artifact changed between read and write.
	ErrVersionConflict = errors.New("artifact version conflict")
)
