package ecp

import (
	"fmt"
	"math"
	"strings"

	pkgerrors "ecpbench/pkg/errors"

	"gonum.org/v1/gonum/floats"
)

// Metric selects how two points are compared. It is fixed per index.
type Metric int

const (
	// Euclidean compares by squared L2 distance. No square root is taken.
	Euclidean Metric = iota
	// Angular compares by the angle between vectors, in radians.
	Angular
)

func (m Metric) String() string {
	switch m {
	case Euclidean:
		return "euclidean"
	case Angular:
		return "angular"
	default:
		return fmt.Sprintf("metric(%d)", int(m))
	}
}

// ParseMetric accepts the names used by the benchmark harness.
func ParseMetric(name string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "euclidean", "l2":
		return Euclidean, nil
	case "angular", "cosine":
		return Angular, nil
	default:
		return 0, fmt.Errorf("%w: unknown metric %q", pkgerrors.ErrConfiguration, name)
	}
}

func (m Metric) valid() bool {
	return m == Euclidean || m == Angular
}

func (m Metric) MarshalText() ([]byte, error) {
	if !m.valid() {
		return nil, fmt.Errorf("%w: unknown metric %d", pkgerrors.ErrConfiguration, int(m))
	}
	return []byte(m.String()), nil
}

func (m *Metric) UnmarshalText(text []byte) error {
	parsed, err := ParseMetric(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Distance compares a and b. It panics if their dimensions differ.
func (m Metric) Distance(a, b []float64) float64 {
	mustMatch(a, b)
	switch m {
	case Angular:
		return angle(a, b, floats.Norm(a, 2), floats.Norm(b, 2))
	default:
		return squaredL2(a, b, math.Inf(1))
	}
}

// Report converts a stored distance into the value a caller would expect
// from the metric's name: true L2 for Euclidean, radians for Angular.
func (m Metric) Report(d float64) float64 {
	if m == Euclidean {
		return math.Sqrt(d)
	}
	return d
}

func mustMatch(a, b []float64) {
	if len(a) != len(b) {
		panic(fmt.Errorf("%w: %d != %d", pkgerrors.ErrDimensionMismatch, len(a), len(b)))
	}
}

// squaredL2 stops accumulating once the running sum exceeds bound. A value
// above bound is therefore only a lower bound on the true distance.
func squaredL2(a, b []float64, bound float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
		if sum > bound {
			return sum
		}
	}
	return sum
}

// angle treats a zero vector as orthogonal to everything.
func angle(a, b []float64, na, nb float64) float64 {
	if na == 0 || nb == 0 {
		return math.Pi / 2
	}
	cos := floats.Dot(a, b) / (na * nb)
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}
	return math.Acos(cos)
}
