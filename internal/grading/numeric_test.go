package grading

import (
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func TestCompareNumeric(t *testing.T) {
	tests := []struct {
		name      string
		student   string
		canonical string
		tol       Tolerance
		want      bool
	}{
		{"exact with unit", "9.8 m/s^2", "9.8 m/s^2", Tolerance{}, true},
		{"whitespace collapsed", "  9.8   m/s^2 ", "9.8 m/s^2", Tolerance{}, true},
		{"unit glued to number", "9.8m/s^2", "9.8 m/s^2", Tolerance{Absolute: f(1)}, false},
		{"both glued", "9.8m/s^2", "9.8m/s^2", Tolerance{}, true},
		{"no tolerance needs exact value", "9.81 m/s^2", "9.8 m/s^2", Tolerance{}, false},
		{"equal values different spelling", "1e3 J", "1000 J", Tolerance{}, true},
		{"absolute within", "3.14", "3.14159", Tolerance{Absolute: f(0.01)}, true},
		{"absolute outside", "3.1", "3.14159", Tolerance{Absolute: f(0.01)}, false},
		{"absolute boundary", "10.5", "10", Tolerance{Absolute: f(0.5)}, true},
		{"relative within", "104", "100", Tolerance{RelativePct: f(5)}, true},
		{"relative outside", "106", "100", Tolerance{RelativePct: f(5)}, false},
		{"relative negative canonical", "-96", "-100", Tolerance{RelativePct: f(5)}, true},
		{"relative after absolute miss", "104", "100", Tolerance{Absolute: f(1), RelativePct: f(5)}, true},
		{"unit mismatch beats tolerance", "100 cm", "100 m", Tolerance{Absolute: f(1000)}, false},
		{"unit case sensitive", "5 mA", "5 MA", Tolerance{Absolute: f(1)}, false},
		{"missing unit", "5", "5 kg", Tolerance{Absolute: f(1)}, false},
		{"zero canonical skips relative", "0.001", "0", Tolerance{RelativePct: f(50)}, false},
		{"zero canonical exact", "0.0", "0", Tolerance{RelativePct: f(50)}, true},
		{"signed exponent", "+2.5E-3 s", "0.0025 s", Tolerance{}, true},
		{"text fallback equal", "north  east", "north east", Tolerance{Absolute: f(1)}, true},
		{"text fallback differs", "North", "north", Tolerance{}, false},
		{"malformed student", "abc", "42", Tolerance{Absolute: f(100)}, false},
		{"empty student", "", "42", Tolerance{}, false},
		{"overflowing exponent falls back to text", "1e999", "1e999", Tolerance{}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CompareNumeric(tc.student, tc.canonical, tc.tol))
		})
	}
}

func TestCompareNumeric_AbsoluteProperty(t *testing.T) {
	tol := 0.25
	for _, unit := range []string{"", "kg", "m/s", "°C", "Ω"} {
		for _, base := range []float64{-12.5, 0, 1, 3.75, 1e4} {
			for _, delta := range []float64{0, 0.1, -0.2, 0.25, -0.25} {
				student := formatQuantity(base+delta, unit)
				canonical := formatQuantity(base, unit)
				if math.Abs(delta) > tol {
					continue
				}
				assert.True(t, CompareNumeric(student, canonical, Tolerance{Absolute: &tol}),
					"%q vs %q within %v", student, canonical, tol)
			}
		}
	}
}

func TestCompareNumeric_UnitMismatchProperty(t *testing.T) {
	pairs := [][2]string{{"m", "cm"}, {"s", "S"}, {"kg", ""}, {"m/s", "m / s"}}
	loose := Tolerance{Absolute: f(1e9), RelativePct: f(1e9)}
	for _, p := range pairs {
		for _, v := range []float64{0, 1, 2.5} {
			assert.False(t, CompareNumeric(formatQuantity(v, p[0]), formatQuantity(v, p[1]), loose),
				"units %q and %q", p[0], p[1])
		}
	}
}

func TestParseQuantity(t *testing.T) {
	q, ok := parseQuantity("-.5e2 N m")
	require.True(t, ok)
	assert.Equal(t, -50.0, q.value)
	assert.Equal(t, " N m", q.unit)

	q, ok = parseQuantity("12kg")
	require.True(t, ok)
	assert.Equal(t, "kg", q.unit)

	_, ok = parseQuantity("m 5")
	assert.False(t, ok)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "a b c", normalize("\t a \n\n b  c "))
}

func formatQuantity(v float64, unit string) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if unit == "" {
		return s
	}
	return s + " " + unit
}
