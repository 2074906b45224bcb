package errors

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"slices"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/compozy/storepulse/engine/core"
	"github.com/compozy/storepulse/pkg/logger"
)

// -----
// Recovery Functions
// -----

// WithRecover executes a function with panic recovery
func WithRecover(operation string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic recovered",
				"operation", operation,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			err = core.NewError(panicError(r), core.ErrorCodePanicRecovered, map[string]any{
				"operation": operation,
				"panic":     fmt.Sprintf("%v", r),
			})
		}
	}()

	return fn()
}

// WithRecoverTyped is WithRecover for functions returning a value
func WithRecoverTyped[T any](operation string, fn func() (T, error)) (result T, err error) {
	err = WithRecover(operation, func() error {
		var fnErr error
		result, fnErr = fn()
		return fnErr
	})
	return result, err
}

func panicError(r any) error {
	switch v := r.(type) {
	case error:
		return v
	case string:
		return errors.New(v)
	default:
		return fmt.Errorf("panic: %v", v)
	}
}

// -----
// Retry Mechanisms using retry-go
// -----

// RetryConfig configures retry behavior
type RetryConfig struct {
	MaxAttempts     uint
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	RetryableErrors []core.ErrorCode
}

// DefaultRetryConfig returns sensible defaults
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		RetryableErrors: []core.ErrorCode{
			core.ErrorCodeSourceUnavailable,
		},
	}
}

// WithRetry executes a function with retry logic using retry-go
func WithRetry(ctx context.Context, operation string, config *RetryConfig, fn func() error) error {
	_, err := WithRetryTyped(ctx, operation, config, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// WithRetryTyped executes a function with retry logic and returns a typed
// result. Errors whose code is not listed as retryable are returned on the
// first attempt. When every attempt fails with a retryable error the last
// one is wrapped in MAX_RETRIES_EXCEEDED.
func WithRetryTyped[T any](
	ctx context.Context,
	operation string,
	config *RetryConfig,
	fn func() (T, error),
) (T, error) {
	if config == nil {
		config = DefaultRetryConfig()
	}
	attempts := config.MaxAttempts
	if attempts == 0 {
		attempts = 1
	}

	opts := []retry.Option{
		retry.Attempts(attempts),
		retry.Delay(config.InitialDelay),
		retry.MaxDelay(config.MaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("operation failed, retrying",
				"operation", operation,
				"attempt", n+1,
				"max_attempts", attempts,
				"error", err,
			)
		}),
		retry.RetryIf(func(err error) bool {
			return IsRetryable(err, config.RetryableErrors)
		}),
	}

	result, err := retry.DoWithData(fn, opts...)
	if err != nil {
		if IsRetryable(err, config.RetryableErrors) {
			return result, core.NewError(err, core.ErrorCodeMaxRetriesExceeded, map[string]any{
				"operation": operation,
				"attempts":  attempts,
			})
		}
		return result, err
	}

	return result, nil
}

// IsRetryable reports whether any structured error in the chain carries one
// of the given codes.
func IsRetryable(err error, retryableCodes []core.ErrorCode) bool {
	if err == nil {
		return false
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		var coreErr *core.Error
		if !errors.As(e, &coreErr) {
			return false
		}
		if slices.Contains(retryableCodes, coreErr.Code) {
			return true
		}
		e = coreErr
	}
	return false
}

// -----
// Graceful Degradation
// -----

// GracefulDegradeConfig configures graceful degradation behavior
type GracefulDegradeConfig struct {
	LogWarning bool
}

// WithGracefulDegrade executes a function and returns a default value on error
func WithGracefulDegrade[T any](operation string, config *GracefulDegradeConfig, defaultVal T, fn func() (T, error)) T {
	result, err := fn()
	if err != nil {
		if config != nil && config.LogWarning {
			logger.Warn("operation degraded gracefully",
				"operation", operation,
				"error", err,
			)
		}
		return defaultVal
	}
	return result
}
