// Package snapshot is the durable store of daily observations.
//
// Rules shared by every backend:
//   - an observation dated after the writer's as-of day is rejected
//   - the as-of day itself may be overwritten (same-day re-runs)
//   - an earlier day is immutable: identical content is a no-op, different
//     content fails with *contracts.DuplicateWriteError
//   - backend I/O failures surface as *contracts.StorageError
package snapshot

import (
	"fmt"
	"time"

	"github.com/wonny/watchheat/internal/contracts"
)

type putAction int

const (
	actionNoop putAction = iota
	actionInsert
	actionUpdate
)

// checkPut validates obs against the writer's as-of day before the existing row is read.
func checkPut(obs *contracts.Observation, today time.Time) error {
	if err := obs.Validate(); err != nil {
		return err
	}
	if obs.Date.After(contracts.Day(today)) {
		return fmt.Errorf("%s on %s (as of %s): %w",
			obs.ItemID,
			obs.Date.Format(contracts.DateLayout),
			contracts.Day(today).Format(contracts.DateLayout),
			contracts.ErrFutureDate)
	}
	return nil
}

// decidePut picks what to do given the stored row (nil when absent).
func decidePut(existing, obs *contracts.Observation, today time.Time) (putAction, error) {
	switch {
	case existing == nil:
		return actionInsert, nil
	case existing.Equal(obs):
		return actionNoop, nil
	case obs.Date.Equal(contracts.Day(today)):
		return actionUpdate, nil
	default:
		return actionNoop, &contracts.DuplicateWriteError{
			ItemID:   obs.ItemID,
			Date:     obs.Date,
			Existing: existing.Clone(),
		}
	}
}

func storageErr(op string, err error) error {
	return &contracts.StorageError{Op: op, Err: err}
}
