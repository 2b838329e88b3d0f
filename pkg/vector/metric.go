package vector

import (
	"fmt"
	"math"
)

// Metric names a distance function recognized by the engine. It
// doubles as the on-the-wire spelling accepted from configuration.
type Metric string

const (
	L1Norm    Metric = "l1norm"
	Manhattan Metric = "manhattan"
	L2Norm    Metric = "l2norm"
	Euclidean Metric = "euclidean"
	Cosine    Metric = "cosine"
	Tanimoto  Metric = "tanimoto"
)

// ErrUnknownMetric is returned by Canonical for an unrecognized name.
type ErrUnknownMetric struct{ Name string }

func (e *ErrUnknownMetric) Error() string {
	return fmt.Sprintf("vector: unknown metric %q", e.Name)
}

// Canonical normalizes the metric aliases (manhattan/euclidean) to
// their canonical spelling, or returns ErrUnknownMetric.
func Canonical(m Metric) (Metric, error) {
	switch m {
	case L1Norm, Manhattan:
		return L1Norm, nil
	case L2Norm, Euclidean:
		return L2Norm, nil
	case Cosine:
		return Cosine, nil
	case Tanimoto:
		return Tanimoto, nil
	default:
		return "", &ErrUnknownMetric{Name: string(m)}
	}
}

// Distance computes the distance between u and v under the given
// metric. The metric must already be canonical (see Canonical).
//
//   - l1norm:   sum |u_i - v_i|
//   - l2norm:   sqrt(sum (u_i - v_i)^2)
//   - cosine:   acos(clamp(dot(u,v) / (|u| |v|), -1, 1)), in radians
//   - tanimoto: 1 - dot(u,v) / (|u|^2 + |v|^2 - dot(u,v))
//
// A dimension mismatch is always an error. An all-zero vector under
// the cosine metric is treated as orthogonal to everything (distance
// pi/2), matching the convention that undefined angles default to a
// right angle rather than propagating NaN.
func Distance(m Metric, u, v Sparse) (float64, error) {
	if err := checkDims(u, v); err != nil {
		return 0, err
	}
	switch m {
	case L1Norm:
		return l1Distance(u, v), nil
	case L2Norm:
		return l2Distance(u, v), nil
	case Cosine:
		return cosineDistance(u, v)
	case Tanimoto:
		return tanimotoDistance(u, v)
	default:
		return 0, &ErrUnknownMetric{Name: string(m)}
	}
}

func l1Distance(u, v Sparse) float64 {
	seen := make(map[int]bool, len(u.Values)+len(v.Values))
	var sum float64
	for i, x := range u.Values {
		sum += math.Abs(x - v.Values[i])
		seen[i] = true
	}
	for i, y := range v.Values {
		if !seen[i] {
			sum += math.Abs(y)
		}
	}
	return sum
}

func l2Distance(u, v Sparse) float64 {
	diff, _ := Sub(u, v)
	return Norm2(diff)
}

func cosineDistance(u, v Sparse) (float64, error) {
	nu, nv := Norm2(u), Norm2(v)
	if nu == 0 || nv == 0 {
		return math.Pi / 2, nil
	}
	dot, err := Dot(u, v)
	if err != nil {
		return 0, err
	}
	cos := dot / (nu * nv)
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}
	return math.Acos(cos), nil
}

func tanimotoDistance(u, v Sparse) (float64, error) {
	dot, err := Dot(u, v)
	if err != nil {
		return 0, err
	}
	nu2 := Norm2(u) * Norm2(u)
	nv2 := Norm2(v) * Norm2(v)
	denom := nu2 + nv2 - dot
	if denom == 0 {
		return 0, nil
	}
	return 1 - dot/denom, nil
}
