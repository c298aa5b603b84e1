package domain

import (
	"fmt"
	"math"
	"strings"
)

// Operator is a comparison used by digit and percentage checks.
type Operator string

const (
	OpGreater      Operator = ">"
	OpGreaterEqual Operator = ">="
	OpEqual        Operator = "="
	OpLessEqual    Operator = "<="
	OpLess         Operator = "<"
)

// percentEpsilon absorbs float noise when comparing percentages for equality.
const percentEpsilon = 1e-9

// Valid reports whether op is one of the supported operators.
func (op Operator) Valid() bool {
	switch op {
	case OpGreater, OpGreaterEqual, OpEqual, OpLessEqual, OpLess:
		return true
	}
	return false
}

// Compare applies op to actual and expected. Unknown operators behave as >=.
func (op Operator) Compare(actual, expected float64) bool {
	switch op {
	case OpGreater:
		return actual > expected
	case OpEqual:
		return math.Abs(actual-expected) < percentEpsilon
	case OpLessEqual:
		return actual <= expected
	case OpLess:
		return actual < expected
	default:
		return actual >= expected
	}
}

// ContractType identifies the broker contract a signal opens.
type ContractType string

const (
	ContractOver  ContractType = "DIGITOVER"
	ContractUnder ContractType = "DIGITUNDER"
	ContractMatch ContractType = "DIGITMATCH"
	ContractDiff  ContractType = "DIGITDIFF"
	ContractEven  ContractType = "DIGITEVEN"
	ContractOdd   ContractType = "DIGITODD"
	ContractCall  ContractType = "CALL"
	ContractPut   ContractType = "PUT"
)

// ParseContractType normalizes short aliases (OVER, UNDER, MATCH, DIFF,
// EVEN, ODD, RISE, FALL) to broker contract types.
func ParseContractType(s string) (ContractType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "OVER", "DIGITOVER":
		return ContractOver, nil
	case "UNDER", "DIGITUNDER":
		return ContractUnder, nil
	case "MATCH", "MATCHES", "DIGITMATCH":
		return ContractMatch, nil
	case "DIFF", "DIFFERS", "DIGITDIFF":
		return ContractDiff, nil
	case "EVEN", "DIGITEVEN":
		return ContractEven, nil
	case "ODD", "DIGITODD":
		return ContractOdd, nil
	case "CALL", "RISE":
		return ContractCall, nil
	case "PUT", "FALL":
		return ContractPut, nil
	}
	return "", fmt.Errorf("unknown contract type %q", s)
}

// UsesBarrier reports whether the contract carries a digit barrier.
func (c ContractType) UsesBarrier() bool {
	switch c {
	case ContractOver, ContractUnder, ContractMatch, ContractDiff:
		return true
	}
	return false
}

// Strategy tags which rule set produced a signal.
type Strategy string

const (
	StrategyEntry    Strategy = "ENTRY"
	StrategyRecovery Strategy = "RECOVERY"
)

// StrategyCondition is one rule set (Entry or Recovery).
type StrategyCondition struct {
	UseDigitCheck    bool
	DigitWindow      int
	MaxDigit         int
	DigitOperator    Operator
	UsePercentage    bool
	Prediction       int // barrier; also selects Over[Prediction]
	PercentThreshold float64
	PercentOperator  Operator
	ContractType     ContractType
}

// Key identifies the condition for lock bookkeeping, e.g. "DIGITOVER_2".
func (c StrategyCondition) Key() string {
	return fmt.Sprintf("%s_%d", c.ContractType, c.Prediction)
}

// Validate checks thresholds and operators.
func (c StrategyCondition) Validate() error {
	if c.UseDigitCheck {
		if c.DigitWindow <= 0 {
			return fmt.Errorf("digit window must be > 0, got %d", c.DigitWindow)
		}
		if c.MaxDigit < 0 || c.MaxDigit > 9 {
			return fmt.Errorf("max digit must be in 0..9, got %d", c.MaxDigit)
		}
		if !c.DigitOperator.Valid() {
			return fmt.Errorf("invalid digit operator %q", c.DigitOperator)
		}
	}
	if c.Prediction < 0 || c.Prediction > 9 {
		return fmt.Errorf("prediction must be in 0..9, got %d", c.Prediction)
	}
	if c.UsePercentage {
		if c.PercentThreshold < 0 || c.PercentThreshold > 100 {
			return fmt.Errorf("percent threshold must be in 0..100, got %.2f", c.PercentThreshold)
		}
		if !c.PercentOperator.Valid() {
			return fmt.Errorf("invalid percent operator %q", c.PercentOperator)
		}
	}
	if c.ContractType == "" {
		return fmt.Errorf("contract type is required")
	}
	return nil
}

// EvalInput is what a condition is evaluated against for one symbol.
type EvalInput struct {
	Recent []int           // newest digits, oldest first
	Short  DigitStatistics // percentages window
	Long   DigitStatistics // regime window
}

// Evaluate applies the digit, percentage and regime checks. Disabled checks
// pass vacuously; the regime check always applies. The score is the
// over-percentage for the condition's prediction.
func Evaluate(in EvalInput, c StrategyCondition) (bool, float64) {
	score := in.Short.Over[clampDigit(c.Prediction)]

	if c.UseDigitCheck {
		if len(in.Recent) < c.DigitWindow {
			return false, score
		}
		for _, d := range in.Recent[len(in.Recent)-c.DigitWindow:] {
			if !c.DigitOperator.Compare(float64(d), float64(c.MaxDigit)) {
				return false, score
			}
		}
	}
	if c.UsePercentage && !c.PercentOperator.Compare(score, c.PercentThreshold) {
		return false, score
	}
	if !in.Long.SkewedRegime() {
		return false, score
	}
	return true, score
}

func clampDigit(d int) int {
	if d < 0 {
		return 0
	}
	if d > 9 {
		return 9
	}
	return d
}
