package similarity

import (
	"math"
	"strings"
	"testing"
)

func TestRatio(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"", "", 1.0},
		{"harry kane", "harry kane", 1.0},
		{" Harry Kane ", "harry KANE", 1.0},
		{"abc", "xyz", 0.0},
		{"abc", "", 0.0},
		{"abcd", "bcde", 0.75},
		{"tide", "diet", 0.25},
		{"abcde", "abcdx", 0.8},
		{"kevin de bruyne", "k. de bruyne", 22.0 / 27.0},
		{"son heung-min", "heung-min son", 2.0 * 9 / 26},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			got := Ratio(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Fatalf("Ratio(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
			if got < 0 || got > 1 {
				t.Fatalf("Ratio(%q, %q) = %v out of bounds", tt.a, tt.b, got)
			}
		})
	}
}

func TestRatio_ExactBoundaryIsRepresentable(t *testing.T) {
	if got := Ratio("abcde", "abcdx"); got != 0.8 {
		t.Fatalf("expected exactly 0.8, got %v", got)
	}
}

func TestRatio_MonotonicInSharedLength(t *testing.T) {
	base := Ratio("saka", "bukayo saka")
	longer := Ratio("b saka", "bukayo saka")
	if longer <= base {
		t.Fatalf("expected more shared characters to raise the score: %v <= %v", longer, base)
	}
}

func TestRatio_CountsRunesNotBytes(t *testing.T) {
	if got := Ratio("ødegaard", "odegaard"); math.Abs(got-14.0/16.0) > 1e-12 {
		t.Fatalf("unexpected score for accented name: %v", got)
	}
}

func TestRatio_LongInputsUsePopularityHeuristic(t *testing.T) {
	long := strings.Repeat("a", 300)
	if got := Ratio(long, long); got != 1.0 {
		t.Fatalf("expected identical long strings to score 1.0, got %v", got)
	}
}

func TestRatioOf(t *testing.T) {
	if got := RatioOf(123, "123"); got != 1.0 {
		t.Fatalf("expected numeric coercion to match, got %v", got)
	}
	if got := RatioOf(nil, nil); got != 1.0 {
		t.Fatalf("expected nil inputs to compare as empty strings, got %v", got)
	}
	if got := RatioOf(nil, "kane"); got != 0.0 {
		t.Fatalf("expected nil vs name to score 0, got %v", got)
	}
}
