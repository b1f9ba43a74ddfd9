package provision

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
)

type compensation struct {
	name string
	undo func(ctx context.Context) error
}

// compensations is a LIFO stack of undo actions for completed steps.
type compensations []compensation

func (c *compensations) push(name string, undo func(ctx context.Context) error) {
	*c = append(*c, compensation{name: name, undo: undo})
}

// unwind runs every compensation newest first and returns all failures.
func (c compensations) unwind(ctx context.Context) error {
	var errs error
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i].undo(ctx); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("undo %s: %w", c[i].name, err))
		}
	}
	return errs
}
