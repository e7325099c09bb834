package grading

import (
	"math"
	"regexp"
	"strconv"
)

// Tolerance is the quiz-level numeric slack. Nil fields are "not configured".
//
//	Absolute:    0.01  // |student - canonical| <= 0.01
//	RelativePct: 5     // |student - canonical| <= 5% of |canonical|
type Tolerance struct {
	RelativePct *float64
	Absolute    *float64
}

// leadingNumber matches an optional sign, digits with an optional decimal
// point, and an optional exponent at the start of the string.
var leadingNumber = regexp.MustCompile(`^[+-]?(?:\d+(?:\.\d*)?|\.\d+)(?:[eE][+-]?\d+)?`)

// quantity is a parsed "<number><unit>" answer.
type quantity struct {
	value float64
	unit  string
}

// parseQuantity splits a normalized answer into its leading number and the
// remaining unit text, kept byte for byte including any separating space.
// The unit may be empty.
func parseQuantity(s string) (quantity, bool) {
	loc := leadingNumber.FindStringIndex(s)
	if loc == nil {
		return quantity{}, false
	}
	v, err := strconv.ParseFloat(s[:loc[1]], 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return quantity{}, false
	}
	return quantity{value: v, unit: s[loc[1]:]}, true
}

// CompareNumeric reports whether student matches canonical under tol.
//
// When either side does not start with a number the normalized strings must
// be identical. Otherwise units must be byte-equal after whitespace
// collapsing ("9.8m/s" and "9.8 m/s" differ), then the absolute tolerance is
// tried, then the relative one (skipped for a zero canonical value), and
// finally exact numeric equality. Malformed input is a mismatch,
// never an error.
func CompareNumeric(student, canonical string, tol Tolerance) bool {
	ns, nc := normalize(student), normalize(canonical)

	sq, sOK := parseQuantity(ns)
	cq, cOK := parseQuantity(nc)
	if !sOK || !cOK {
		return ns == nc
	}
	if sq.unit != cq.unit {
		return false
	}

	diff := math.Abs(sq.value - cq.value)
	if tol.Absolute != nil && diff <= *tol.Absolute {
		return true
	}
	if tol.RelativePct != nil && cq.value != 0 {
		if 100*diff/math.Abs(cq.value) <= *tol.RelativePct {
			return true
		}
	}
	return diff == 0
}
