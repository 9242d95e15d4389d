package rebate

import (
	"fmt"

	"solar-quote/internal/apperr"
	"solar-quote/internal/model"
)

// Error reports a rebate config that exists but could not be evaluated:
// a formula failure, a missing variable, or an unusable value. It matches
// apperr.ErrRebate and, through Err, the underlying cause.
type Error struct {
	ConfigID string
	Type     model.RebateType
	Region   string
	Formula  string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("rebate %s (%s, region %q): %v", e.ConfigID, e.Type, e.Region, e.Err)
}

func (e *Error) Unwrap() []error { return []error{apperr.ErrRebate, e.Err} }
