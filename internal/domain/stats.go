package domain

// DigitStatistics is the distribution of last digits over a window.
// Derived on demand, never persisted.
type DigitStatistics struct {
	Total       int
	Counts      [10]int
	Percentages [10]float64 // suman 100 cuando Total > 0
	// Over[k] es la suma de Percentages[d] para d > k. Over[9] siempre es 0.
	Over           [10]float64
	MostAppearing  int
	LeastAppearing int
}

// ComputeStatistics derives the digit distribution of digits.
// Most/least appearing resolve ties to the lowest digit.
func ComputeStatistics(digits []int) DigitStatistics {
	var s DigitStatistics
	for _, d := range digits {
		if d < 0 || d > 9 {
			continue
		}
		s.Counts[d]++
		s.Total++
	}
	if s.Total == 0 {
		return s
	}

	for d := 0; d < 10; d++ {
		s.Percentages[d] = float64(s.Counts[d]) * 100 / float64(s.Total)
	}
	for k := 0; k < 10; k++ {
		var sum float64
		for d := k + 1; d < 10; d++ {
			sum += s.Percentages[d]
		}
		s.Over[k] = sum
	}

	maxCount, minCount := s.Counts[0], s.Counts[0]
	for d := 1; d < 10; d++ {
		if s.Counts[d] > maxCount {
			maxCount = s.Counts[d]
			s.MostAppearing = d
		}
		if s.Counts[d] < minCount {
			minCount = s.Counts[d]
			s.LeastAppearing = d
		}
	}
	return s
}

// Under returns the percentage of digits strictly below k.
func (s DigitStatistics) Under(k int) float64 {
	var sum float64
	for d := 0; d < k && d < 10; d++ {
		sum += s.Percentages[d]
	}
	return sum
}

// SkewedRegime reports whether the distribution shows the volatility skew
// required before any signal: most appearing above 4, least appearing below 4.
func (s DigitStatistics) SkewedRegime() bool {
	return s.Total > 0 && s.MostAppearing > 4 && s.LeastAppearing < 4
}
