package contracts

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidObservation is returned for observations that break field invariants
	ErrInvalidObservation = errors.New("invalid observation")

	// ErrFutureDate is returned when writing a date after the as-of day
	ErrFutureDate = errors.New("observation date is after the as-of date")

	// ErrDuplicateWrite matches every *DuplicateWriteError
	ErrDuplicateWrite = errors.New("duplicate write to immutable snapshot")

	// ErrStorage matches every *StorageError
	ErrStorage = errors.New("snapshot storage failure")
)

// DuplicateWriteError is returned when a past-date snapshot already holds
// different content. The stored value is left untouched.
type DuplicateWriteError struct {
	ItemID   string
	Date     time.Time
	Existing *Observation
}

func (e *DuplicateWriteError) Error() string {
	return fmt.Sprintf("duplicate write for %s on %s: past snapshots are immutable",
		e.ItemID, e.Date.Format(DateLayout))
}

// Is lets errors.Is(err, ErrDuplicateWrite) match
func (e *DuplicateWriteError) Is(target error) bool {
	return target == ErrDuplicateWrite
}

// StorageError wraps an I/O failure of the snapshot backend. It aborts a run.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("snapshot storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrStorage) match
func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

// IsItemFailure reports whether err is confined to a single item's write
// (the run should record it and continue).
func IsItemFailure(err error) bool {
	return errors.Is(err, ErrDuplicateWrite) ||
		errors.Is(err, ErrInvalidObservation) ||
		errors.Is(err, ErrFutureDate)
}
