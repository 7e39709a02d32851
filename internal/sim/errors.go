package sim

import (
	"errors"
	"fmt"
)

// SimError represents an error raised by the simulation kernel itself,
// as opposed to a protocol-level mismatch detected by a checker.
//
// Kernel errors include:
//   - Double drive: two writers claimed the same signal
//   - Deadlock: no runnable task and no pending timer
//   - Handshake timeout: a value wait exceeded its budget
//   - Watchdog: total simulated time exceeded the run budget
//
// SimError includes structured fields for diagnostics.
type SimError struct {
	// Code identifies the error category.
	Code SimErrorCode

	// Message is a human-readable description.
	Message string

	// Signal names the affected signal, if any.
	Signal string

	// At is the simulated time at which the error was raised.
	At Time
}

// SimErrorCode categorizes kernel errors.
type SimErrorCode string

const (
	// ErrCodeDoubleDrive indicates a second writer claimed a signal.
	ErrCodeDoubleDrive SimErrorCode = "DOUBLE_DRIVE"

	// ErrCodeDeadlock indicates no task is runnable and no timer is pending.
	ErrCodeDeadlock SimErrorCode = "DEADLOCK"

	// ErrCodeHandshakeTimeout indicates a value wait exceeded its budget.
	ErrCodeHandshakeTimeout SimErrorCode = "HANDSHAKE_TIMEOUT"

	// ErrCodeWatchdog indicates the run exceeded its total time budget.
	ErrCodeWatchdog SimErrorCode = "WATCHDOG"

	// ErrCodeClosed indicates a wait was issued after the simulation ended.
	ErrCodeClosed SimErrorCode = "SIM_CLOSED"

	// ErrCodeMisuse indicates an API contract violation by a caller.
	ErrCodeMisuse SimErrorCode = "MISUSE"
)

// Error implements the error interface.
func (e *SimError) Error() string {
	if e.Signal != "" {
		return fmt.Sprintf("%s: %s (signal=%s, t=%dns)", e.Code, e.Message, e.Signal, e.At)
	}
	return fmt.Sprintf("%s: %s (t=%dns)", e.Code, e.Message, e.At)
}

// IsTimeout reports whether err is a handshake timeout or watchdog expiry.
// Callers use this to distinguish an unresponsive circuit from a protocol
// mismatch.
func IsTimeout(err error) bool {
	var se *SimError
	if errors.As(err, &se) {
		return se.Code == ErrCodeHandshakeTimeout || se.Code == ErrCodeWatchdog
	}
	return false
}
