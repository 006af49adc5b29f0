package resilience

import (
	"context"

	"github.com/aescanero/dapo/pkg/domain"
)

// Fallback returns a stage that invokes primary and, on any error, calls
// secondary with the same input. The secondary's result or error is
// returned in place of the primary's.
func Fallback(primary, secondary domain.StageFunc) domain.StageFunc {
	return func(ctx context.Context, input interface{}) (interface{}, error) {
		out, err := primary(ctx, input)
		if err == nil {
			return out, nil
		}
		return secondary(ctx, input)
	}
}
