// Package ctxutil holds helpers for reporting why a context ended.
package ctxutil

import (
	"context"
	"errors"
	"fmt"
)

// Cause returns nil while ctx is live. Once ctx is done it returns ctx.Err(),
// wrapped together with the cancellation cause when one was given, so that
// both errors.Is(err, context.Canceled) and errors.Is(err, cause) hold.
func Cause(ctx context.Context) error {
	err := ctx.Err()
	if err == nil {
		return nil
	}
	cause := context.Cause(ctx)
	if cause == err {
		return err
	}
	return fmt.Errorf("%w, cause: %w", err, cause)
}

// ErrorWithCause attaches the cancellation cause of ctx to err when err is
// the bare ctx.Err() (or wraps it) and does not mention the cause yet. Other
// errors are returned unchanged.
func ErrorWithCause(err error, ctx context.Context) error {
	cause := context.Cause(ctx)
	if cause != nil && errors.Is(err, ctx.Err()) && !errors.Is(err, cause) {
		return fmt.Errorf("%w, cause: %w", err, cause)
	}
	return err
}

// IsCancellation reports whether err stems from a canceled or expired
// context rather than from the work itself.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
