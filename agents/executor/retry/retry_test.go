/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package retry_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"chainguard.dev/websmith/agents/executor/retry"
)

func testConfig() retry.Config {
	return retry.Config{
		MaxRetries:  3,
		BaseBackoff: time.Millisecond,
		MaxBackoff:  10 * time.Millisecond,
		MaxJitter:   time.Millisecond,
	}
}

// alwaysRetryable is a test helper that considers all errors retryable.
func alwaysRetryable(err error) bool {
	return err != nil
}

func TestDo_Success(t *testing.T) {
	t.Parallel()
	var attempts atomic.Int32
	result, err := retry.Do(context.Background(), testConfig(), "test_op", alwaysRetryable, func() (string, error) {
		attempts.Add(1)
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "ok" {
		t.Fatalf("expected result %q, got %q", "ok", result)
	}
	if got := attempts.Load(); got != 1 {
		t.Fatalf("expected 1 attempt, got %d", got)
	}
}

func TestDo_SuccessAfterRetries(t *testing.T) {
	t.Parallel()
	var attempts atomic.Int32
	retryableErr := errors.New("429 rate limited")

	result, err := retry.Do(context.Background(), testConfig(), "test_op", alwaysRetryable, func() (string, error) {
		n := attempts.Add(1)
		if n < 3 {
			return "", retryableErr
		}
		return "recovered", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "recovered" {
		t.Fatalf("expected result %q, got %q", "recovered", result)
	}
	if got := attempts.Load(); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestDo_ExhaustedRetries(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	retryableErr := errors.New("quota exceeded")

	var attempts atomic.Int32
	_, err := retry.Do(context.Background(), cfg, "test_op", alwaysRetryable, func() (string, error) {
		attempts.Add(1)
		return "", retryableErr
	})
	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}

	// One initial attempt plus MaxRetries retries.
	if got := attempts.Load(); got != 4 {
		t.Fatalf("expected 4 attempts, got %d", got)
	}
	if !errors.Is(err, retryableErr) {
		t.Fatalf("expected wrapped error to contain original, got: %v", err)
	}
	if !strings.HasPrefix(err.Error(), "test_op failed after 3 retries") {
		t.Fatalf("unexpected error text: %v", err)
	}
}

func TestDo_NonRetryableReturnsImmediately(t *testing.T) {
	t.Parallel()
	permanent := errors.New("400 invalid request")

	var attempts atomic.Int32
	_, err := retry.Do(context.Background(), testConfig(), "test_op", func(error) bool { return false }, func() (string, error) {
		attempts.Add(1)
		return "", permanent
	})
	if !errors.Is(err, permanent) {
		t.Fatalf("expected permanent error returned unwrapped, got %v", err)
	}
	if got := attempts.Load(); got != 1 {
		t.Fatalf("expected 1 attempt, got %d", got)
	}
}

func TestDo_ZeroRetries(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.MaxRetries = 0

	var attempts atomic.Int32
	_, err := retry.Do(context.Background(), cfg, "test_op", alwaysRetryable, func() (string, error) {
		attempts.Add(1)
		return "", errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if got := attempts.Load(); got != 1 {
		t.Fatalf("expected exactly 1 attempt with MaxRetries=0, got %d", got)
	}
}

func TestDo_ContextCancellation(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.BaseBackoff = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	_, err := retry.Do(ctx, cfg, "test_op", alwaysRetryable, func() (string, error) {
		return "", errors.New("retry me")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()
	if err := retry.DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	bad := retry.Config{MaxRetries: -1}
	if err := bad.Validate(); err == nil {
		t.Fatal("expected validation error for negative retries")
	}
}
