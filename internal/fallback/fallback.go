// Package fallback runs an ordered list of named strategies for one logical
// operation and stops at the first one that produces a usable result.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"
)

// ErrUnusable marks a strategy that completed but produced nothing the caller
// can use (wrong response shape, no match). The chain moves on without
// counting it as a failure.
var ErrUnusable = errors.New("no usable result")

// Strategy is one named way of performing an operation.
type Strategy[T any] struct {
	Name string
	Run  func(ctx context.Context) (T, error)
}

// Attempt records how one strategy ended.
type Attempt struct {
	Name string
	Err  error
}

// Skipped reports whether the strategy ran fine but had nothing usable.
func (a Attempt) Skipped() bool { return errors.Is(a.Err, ErrUnusable) }

// Observer is told about every finished attempt. Err is nil on success.
type Observer func(strategy string, err error)

// ExhaustedError is returned when no strategy succeeded.
type ExhaustedError struct {
	Attempts []Attempt
	// Sep joins attempt messages in Error(); defaults to " | ".
	Sep string
}

func (e *ExhaustedError) Error() string {
	sep := e.Sep
	if sep == "" {
		sep = " | "
	}
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Name, a.Err))
	}
	return strings.Join(parts, sep)
}

// Failures returns the attempts that actually errored, leaving out skips.
func (e *ExhaustedError) Failures() []Attempt {
	out := make([]Attempt, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		if !a.Skipped() {
			out = append(out, a)
		}
	}
	return out
}

// Unwrap exposes every failure so errors.Is/As can see through the chain.
func (e *ExhaustedError) Unwrap() []error {
	var combined error
	for _, a := range e.Failures() {
		combined = multierr.Append(combined, a.Err)
	}
	return multierr.Errors(combined)
}

// abortError stops the chain immediately.
type abortError struct{ err error }

func (a *abortError) Error() string { return a.err.Error() }
func (a *abortError) Unwrap() error { return a.err }

// Abort wraps err so that First returns it as-is without trying the remaining
// strategies.
func Abort(err error) error {
	if err == nil {
		return nil
	}
	return &abortError{err: err}
}

// First runs strategies in order, each at most once, and returns the first
// successful result. When every strategy fails or is skipped it returns an
// *ExhaustedError describing all attempts.
func First[T any](ctx context.Context, strategies []Strategy[T], observe Observer) (T, error) {
	var zero T
	ex := &ExhaustedError{}

	for _, s := range strategies {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		v, err := s.Run(ctx)
		if observe != nil {
			observe(s.Name, err)
		}
		if err == nil {
			return v, nil
		}

		var abort *abortError
		if errors.As(err, &abort) {
			return zero, abort.err
		}
		ex.Attempts = append(ex.Attempts, Attempt{Name: s.Name, Err: err})
	}

	return zero, ex
}

// Unusable wraps a reason into ErrUnusable.
func Unusable(reason string) error {
	return fmt.Errorf("%w: %s", ErrUnusable, reason)
}
