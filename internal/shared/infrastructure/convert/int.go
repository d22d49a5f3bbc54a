// Package convert holds checked integer conversions for database columns.
package convert

import (
	"errors"
	"fmt"
	"math"
)

// ErrOverflow is returned when a value does not fit the target type.
var ErrOverflow = errors.New("integer overflow")

// IntToInt32 converts v for an INTEGER (int4) column.
func IntToInt32(v int) (int32, error) {
	if v > math.MaxInt32 || v < math.MinInt32 {
		return 0, fmt.Errorf("%w: %d does not fit in int32", ErrOverflow, v)
	}
	return int32(v), nil
}
