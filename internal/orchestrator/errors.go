package orchestrator

import "errors"

var (
	ErrInvalidSettings      = errors.New("invalid watermark settings")
	ErrNoLogo               = errors.New("no logo set")
	ErrNoItems              = errors.New("no batch items")
	ErrNoActiveItem         = errors.New("no active item selected")
	ErrItemNotFound         = errors.New("batch item not found")
	ErrBatchRunning         = errors.New("batch pass already running")
	ErrConfirmationRequired = errors.New("confirmation required for large batch")
)
