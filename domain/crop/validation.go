package crop

import (
	"math"

	"cropyield/domain/core"
)

// Bound is the admissible range rule for one continuous field.
type Bound struct {
	// Positive requires value > 0; otherwise value >= 0.
	Positive bool
}

// DomainBounds are applied to inference inputs before scoring. Non-positive
// area or rainfall make a yield estimate physically meaningless.
var DomainBounds = map[string]Bound{
	FieldArea:       {Positive: true},
	FieldRainfall:   {Positive: true},
	FieldFertilizer: {Positive: false},
	FieldPesticide:  {Positive: false},
}

// CheckDomain validates one continuous value against DomainBounds.
// Fields without a bound only need to be finite.
func CheckDomain(field string, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return core.NewInvalidInputError(field, value, "must be a finite number")
	}
	bound, ok := DomainBounds[field]
	if !ok {
		return nil
	}
	if bound.Positive && value <= 0 {
		return core.NewInvalidInputError(field, value, "must be greater than zero")
	}
	if !bound.Positive && value < 0 {
		return core.NewInvalidInputError(field, value, "must not be negative")
	}
	return nil
}
