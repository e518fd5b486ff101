package domain

import (
	"time"

	"github.com/google/uuid"
)

type ConversionStatus int16

const (
	ConversionCreated ConversionStatus = iota
	ConversionProcessing
	ConversionSuccess
	ConversionError
	ConversionCanceled
)

func (s ConversionStatus) String() string {
	switch s {
	case ConversionCreated:
		return "created"
	case ConversionProcessing:
		return "processing"
	case ConversionSuccess:
		return "success"
	case ConversionError:
		return "error"
	case ConversionCanceled:
		return "canceled"
	}
	return "unknown"
}

// Active reports whether the task still claims the conversion pipeline:
// at most one task may be in an active status at a time.
func (s ConversionStatus) Active() bool {
	return s == ConversionCreated || s == ConversionProcessing
}

// ConversionTask is a request to rebase every stored rate onto a new base
// currency. Tasks are never deleted; finished ones serve as an audit trail.
type ConversionTask struct {
	ID              uuid.UUID
	Status          ConversionStatus
	NewBaseCurrency string
	StartTime       time.Time
	EndTime         *time.Time
}
