package services

import (
	"errors"
	"testing"
)

func TestAppErrorNilReceiver(t *testing.T) {
	var appErr *AppError

	if got := appErr.Error(); got != "" {
		t.Fatalf("expected empty string for nil receiver, got %q", got)
	}
	if appErr.Unwrap() != nil {
		t.Fatalf("expected nil unwrap for nil receiver")
	}
}

func TestAppErrorErrorWithWrappedError(t *testing.T) {
	root := errors.New("db down")
	appErr := &AppError{HTTPCode: 500, Message: "query failed", Err: root}

	if got := appErr.Error(); got != "query failed: db down" {
		t.Fatalf("unexpected error text: %q", got)
	}
	if !errors.Is(appErr, root) {
		t.Fatalf("expected wrapped error to be discoverable via errors.Is")
	}
}

func TestNewAppErrorWithCode(t *testing.T) {
	err := newAppErrorWithCode(403, CodeStorageLimitExceeded, "storage limit exceeded")

	if err.HTTPCode != 403 {
		t.Fatalf("expected HTTPCode 403, got %d", err.HTTPCode)
	}
	if err.Code != CodeStorageLimitExceeded {
		t.Fatalf("unexpected code: %q", err.Code)
	}
	if err.Err != nil {
		t.Fatalf("expected no wrapped error")
	}
}
