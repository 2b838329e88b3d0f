package sampling

import "testing"

func TestProbabilityBound(t *testing.T) {
	tests := []struct {
		name string
		s, n int
	}{
		{"small sample", 10, 1000},
		{"sample equals population", 100, 100},
		{"large population", 50, 1_000_000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ProbabilityBound(tt.s, tt.n)
			if p < 0 || p > 1 {
				t.Fatalf("ProbabilityBound(%d,%d) = %v, want in [0,1]", tt.s, tt.n, p)
			}
			expectedRows := p * float64(tt.n)
			if expectedRows < float64(tt.s) {
				t.Errorf("ProbabilityBound(%d,%d) = %v yields expected rows %v < s", tt.s, tt.n, p, expectedRows)
			}
		})
	}
}

func TestProbabilityBoundMonotonicInN(t *testing.T) {
	p1 := ProbabilityBound(10, 100)
	p2 := ProbabilityBound(10, 1000)
	if p2 >= p1 {
		t.Errorf("expected bound to shrink as n grows: p(10,100)=%v p(10,1000)=%v", p1, p2)
	}
}

func TestQuoteIdentifier(t *testing.T) {
	if got := QuoteIdentifier(`foo"bar`); got != `"foo""bar"` {
		t.Errorf("QuoteIdentifier = %q, want %q", got, `"foo""bar"`)
	}
}

func TestValidateRelationName(t *testing.T) {
	if err := ValidateRelationName(""); err == nil {
		t.Error("expected error for empty name")
	}
	if err := ValidateRelationName("__kmeans_run1_points"); err == nil {
		t.Error("expected error for reserved-prefix collision")
	}
	if err := ValidateRelationName("points"); err != nil {
		t.Errorf("unexpected error for valid name: %v", err)
	}
}
