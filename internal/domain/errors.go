package domain

import (
	"errors"
	"fmt"
)

var (
	ErrConfiguration      = errors.New("invalid configuration")
	ErrAdmissionDenied    = errors.New("admission denied")
	ErrOrderRejected      = errors.New("order rejected")
	ErrSettlementMismatch = errors.New("settlement mismatch")
	ErrNotRunning         = errors.New("engine not running")
	ErrAlreadyRunning     = errors.New("engine already running")
)

// ConfigError wraps ErrConfiguration with the offending field.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrConfiguration, e.Field, e.Err)
}

func (e *ConfigError) Unwrap() []error { return []error{ErrConfiguration, e.Err} }

// AdmissionReason says which rule blocked a signal.
type AdmissionReason string

const (
	DenyPending       AdmissionReason = "pending_stake"
	DenySignature     AdmissionReason = "duplicate_signature"
	DenyLocked        AdmissionReason = "symbol_locked"
	DenyMaxConcurrent AdmissionReason = "max_concurrent"
	DenyActive        AdmissionReason = "active_contract"
)

// AdmissionError wraps ErrAdmissionDenied. Expected and non-fatal.
type AdmissionError struct {
	Symbol string
	Reason AdmissionReason
}

func (e *AdmissionError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrAdmissionDenied, e.Symbol, e.Reason)
}

func (e *AdmissionError) Unwrap() error { return ErrAdmissionDenied }
