package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeightedAverage(t *testing.T) {
	tests := []struct {
		name   string
		rows   []WeightedScore
		want   float64
		wantOK bool
	}{
		{
			name:   "single row",
			rows:   []WeightedScore{{Score: 5, Count: 1}},
			want:   5,
			wantOK: true,
		},
		{
			name:   "empty input",
			rows:   nil,
			wantOK: false,
		},
		{
			name:   "zero counts",
			rows:   []WeightedScore{{Score: 4, Count: 0}, {Score: 2, Count: 0}},
			wantOK: false,
		},
		{
			name: "weights dominate",
			rows: []WeightedScore{
				{Score: 5, Count: 9},
				{Score: 1, Count: 1},
			},
			want:   4.6,
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := WeightedAverage(tt.rows)
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestPearson(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	y := []float64{2, 4, 6, 8, 10}

	t.Run("perfect positive", func(t *testing.T) {
		assert.InDelta(t, 1.0, Pearson(x, y), 1e-9)
	})

	t.Run("self correlation is 1 for non-constant series", func(t *testing.T) {
		assert.InDelta(t, 1.0, Pearson(x, x), 1e-9)
	})

	t.Run("symmetric", func(t *testing.T) {
		a := []float64{4.1, 3.6, 4.4, 3.9, 4.2}
		b := []float64{120, 95, 140, 100, 130}
		assert.InDelta(t, Pearson(a, b), Pearson(b, a), 1e-12)
	})

	t.Run("too few points", func(t *testing.T) {
		assert.Zero(t, Pearson([]float64{1, 2}, []float64{3, 4}))
	})

	t.Run("constant series", func(t *testing.T) {
		assert.Zero(t, Pearson([]float64{1, 1, 1}, []float64{1, 2, 3}))
	})

	t.Run("perfect negative", func(t *testing.T) {
		neg := []float64{10, 8, 6, 4, 2}
		assert.InDelta(t, -1.0, Pearson(x, neg), 1e-9)
	})
}

func TestStdDev(t *testing.T) {
	t.Run("population divisor", func(t *testing.T) {
		// Variance of {2,4,4,4,5,5,7,9} is exactly 4 with the n divisor.
		got := StdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
		assert.InDelta(t, 2.0, got, 1e-9)
	})

	t.Run("constant", func(t *testing.T) {
		assert.Zero(t, StdDev([]float64{3, 3, 3}))
	})

	t.Run("empty", func(t *testing.T) {
		assert.Zero(t, StdDev(nil))
	})
}

func TestOLSSlope(t *testing.T) {
	t.Run("linear series", func(t *testing.T) {
		assert.InDelta(t, 0.5, OLSSlope([]float64{1, 1.5, 2, 2.5, 3}), 1e-9)
	})

	t.Run("flat series", func(t *testing.T) {
		assert.Zero(t, OLSSlope([]float64{4, 4, 4, 4}))
	})

	t.Run("per 30 day scaling", func(t *testing.T) {
		slope := OLSSlope([]float64{3.0, 3.01, 3.02, 3.03, 3.04})
		assert.InDelta(t, 0.3, slope*30, 1e-9)
	})
}

func TestScoreLabel(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{4.6, "very high"},
		{4.5, "very high"},
		{4.2, "good"},
		{4.0, "good"},
		{3.7, "standard"},
		{3.5, "standard"},
		{3.2, "needs improvement"},
		{3.0, "needs improvement"},
		{2.9, "urgent"},
		{1.0, "urgent"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ScoreLabel(tt.score), "score %.2f", tt.score)
	}
}
