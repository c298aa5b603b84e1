package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tick is one market price update. LastDigit drives digit-contract outcomes.
type Tick struct {
	Symbol    string
	Quote     float64
	LastDigit int
	Epoch     int64
}

// Time returns the tick epoch as a UTC time.
func (t Tick) Time() time.Time {
	return time.Unix(t.Epoch, 0).UTC()
}

// NewTick builds a Tick, deriving the last digit at the given pip precision.
func NewTick(symbol string, quote float64, decimals int, epoch int64) Tick {
	return Tick{
		Symbol:    symbol,
		Quote:     quote,
		LastDigit: LastDigit(quote, decimals),
		Epoch:     epoch,
	}
}

// LastDigit returns the final digit of quote formatted with a fixed number of
// decimals. 1234.50 at 2 decimals yields 0, not 5.
func LastDigit(quote float64, decimals int) int {
	if decimals < 0 {
		decimals = 0
	}
	s := decimal.NewFromFloat(quote).StringFixed(int32(decimals))
	c := s[len(s)-1]
	if c < '0' || c > '9' {
		return 0
	}
	return int(c - '0')
}

// DigitHistory is a bounded ring buffer of digits. Pushing beyond capacity
// evicts the oldest digit.
type DigitHistory struct {
	buf   []int
	start int
	size  int
}

// NewDigitHistory creates an empty history holding at most capacity digits.
func NewDigitHistory(capacity int) *DigitHistory {
	if capacity <= 0 {
		capacity = 1
	}
	return &DigitHistory{buf: make([]int, capacity)}
}

// Push appends a digit, evicting the oldest one when full.
func (h *DigitHistory) Push(d int) {
	if h.size < len(h.buf) {
		h.buf[(h.start+h.size)%len(h.buf)] = d
		h.size++
		return
	}
	h.buf[h.start] = d
	h.start = (h.start + 1) % len(h.buf)
}

// Len is the number of digits currently held.
func (h *DigitHistory) Len() int { return h.size }

// Cap is the maximum number of digits held.
func (h *DigitHistory) Cap() int { return len(h.buf) }

// Last returns the newest n digits ordered oldest first. Fewer are returned
// when the history is shorter than n.
func (h *DigitHistory) Last(n int) []int {
	if n > h.size {
		n = h.size
	}
	if n <= 0 {
		return nil
	}
	out := make([]int, n)
	offset := h.size - n
	for i := 0; i < n; i++ {
		out[i] = h.buf[(h.start+offset+i)%len(h.buf)]
	}
	return out
}

// All returns every held digit ordered oldest first.
func (h *DigitHistory) All() []int {
	return h.Last(h.size)
}
