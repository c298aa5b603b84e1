package domain

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// longSkewed has 6 as most appearing and 1 as least appearing digit.
func longSkewed() []int {
	var digits []int
	for d := 0; d < 10; d++ {
		n := 3
		switch d {
		case 6:
			n = 6
		case 1:
			n = 1
		}
		for i := 0; i < n; i++ {
			digits = append(digits, d)
		}
	}
	return digits
}

func TestComputeStatistics_PercentagesSumTo100(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 50; trial++ {
		n := 1 + rng.Intn(1000)
		digits := make([]int, n)
		for i := range digits {
			digits[i] = rng.Intn(10)
		}
		s := ComputeStatistics(digits)

		var sum float64
		for _, p := range s.Percentages {
			sum += p
		}
		assert.InDelta(t, 100.0, sum, 1e-9)
		assert.Equal(t, n, s.Total)
	}
}

func TestComputeStatistics_Over(t *testing.T) {
	s := ComputeStatistics([]int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9})
	assert.InDelta(t, 90.0, s.Over[0], 1e-9)
	assert.InDelta(t, 70.0, s.Over[2], 1e-9)
	assert.InDelta(t, 0.0, s.Over[9], 1e-9)
	assert.InDelta(t, 20.0, s.Under(2), 1e-9)
}

func TestComputeStatistics_MostLeast(t *testing.T) {
	s := ComputeStatistics(longSkewed())
	assert.Equal(t, 6, s.MostAppearing)
	assert.Equal(t, 1, s.LeastAppearing)
	assert.True(t, s.SkewedRegime())
}

func TestComputeStatistics_TiesResolveToLowestDigit(t *testing.T) {
	s := ComputeStatistics([]int{3, 7, 3, 7, 5})
	assert.Equal(t, 3, s.MostAppearing)
	// 0 no aparece: es el primero con el mínimo
	assert.Equal(t, 0, s.LeastAppearing)
}

func TestComputeStatistics_Empty(t *testing.T) {
	s := ComputeStatistics(nil)
	assert.Zero(t, s.Total)
	assert.False(t, s.SkewedRegime())
}

// --- DigitHistory ---

func TestDigitHistory_EvictsOldest(t *testing.T) {
	h := NewDigitHistory(3)
	for _, d := range []int{1, 2, 3, 4, 5} {
		h.Push(d)
	}
	require.Equal(t, 3, h.Len())
	assert.Equal(t, []int{3, 4, 5}, h.All())
	assert.Equal(t, []int{4, 5}, h.Last(2))
	assert.Equal(t, []int{3, 4, 5}, h.Last(10))
}

func TestDigitHistory_PartiallyFilled(t *testing.T) {
	h := NewDigitHistory(5)
	h.Push(7)
	h.Push(8)
	assert.Equal(t, []int{7, 8}, h.All())
	assert.Nil(t, h.Last(0))
	assert.Equal(t, 5, h.Cap())
}

func TestLastDigit_UsesPipPrecision(t *testing.T) {
	assert.Equal(t, 0, LastDigit(1234.5, 2))
	assert.Equal(t, 5, LastDigit(1234.5, 1))
	assert.Equal(t, 7, LastDigit(0.1+0.2+0.007, 3)) // 0.307
	assert.Equal(t, 4, LastDigit(1234, 0))
}
