package domain

import (
	"fmt"
	"math"
)

// TrimRange 剪輯範圍 (秒)
type TrimRange struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Validate enforces 0 <= start <= end <= sourceDuration
func (r TrimRange) Validate(sourceDuration float64) error {
	// NaN 的比較永遠是 false, 先擋掉
	for _, v := range []float64{r.Start, r.End, sourceDuration} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite value in [%v, %v] of %v", ErrInvalidRange, r.Start, r.End, sourceDuration)
		}
	}
	if sourceDuration <= 0 {
		return fmt.Errorf("%w: unknown source duration %.3f", ErrInvalidRange, sourceDuration)
	}
	if r.Start < 0 {
		return fmt.Errorf("%w: start %.3f is negative", ErrInvalidRange, r.Start)
	}
	if r.Start > r.End {
		return fmt.Errorf("%w: start %.3f is after end %.3f", ErrInvalidRange, r.Start, r.End)
	}
	if r.End > sourceDuration {
		return fmt.Errorf("%w: end %.3f exceeds duration %.3f", ErrInvalidRange, r.End, sourceDuration)
	}
	return nil
}

// IsNoop reports a range covering the whole source
func (r TrimRange) IsNoop(sourceDuration float64) bool {
	return r.Start == 0 && r.End == sourceDuration
}

// Length of the range in seconds
func (r TrimRange) Length() float64 {
	return r.End - r.Start
}
