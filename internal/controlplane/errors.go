package controlplane

import "errors"

// Sentinel errors for control plane operations.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrResourceNotFound = errors.New("resource not found")
	ErrTaskNotFound     = errors.New("task not found")
	ErrSprintNotFound   = errors.New("sprint not found")
	ErrNotFound         = errors.New("record not found")
)
