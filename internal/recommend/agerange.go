// internal/recommend/agerange.go
// Age range expressions: "X-Y", "X+" and exact "X"

package recommend

import (
	"errors"
	"strconv"
	"strings"
)

var errMalformedRange = errors.New("malformed age range")

// AgeRange is a parsed age-range expression
type AgeRange struct {
	Min       int
	Max       int
	Unbounded bool // "N+" form
}

// ParseAgeRange understands "A-B", "N+" and "N", checked in that order
func ParseAgeRange(expr string) (AgeRange, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return AgeRange{}, errMalformedRange
	}

	if strings.Contains(expr, "-") {
		parts := strings.Split(expr, "-")
		if len(parts) != 2 {
			return AgeRange{}, errMalformedRange
		}
		lo, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return AgeRange{}, errMalformedRange
		}
		hi, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return AgeRange{}, errMalformedRange
		}
		return AgeRange{Min: lo, Max: hi}, nil
	}

	if strings.HasSuffix(expr, "+") {
		lo, err := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(expr, "+")))
		if err != nil {
			return AgeRange{}, errMalformedRange
		}
		return AgeRange{Min: lo, Unbounded: true}, nil
	}

	n, err := strconv.Atoi(expr)
	if err != nil {
		return AgeRange{}, errMalformedRange
	}
	return AgeRange{Min: n, Max: n}, nil
}

// Contains reports whether age falls inside the range, bounds inclusive
func (r AgeRange) Contains(age int) bool {
	if r.Unbounded {
		return age >= r.Min
	}
	return age >= r.Min && age <= r.Max
}

// IsAgeInRange never fails: malformed expressions simply don't match
func IsAgeInRange(age int, expr string) bool {
	r, err := ParseAgeRange(expr)
	if err != nil {
		return false
	}
	return r.Contains(age)
}
