package logging

import (
	"errors"
	"testing"
)

func TestOperationError(t *testing.T) {
	base := errors.New("connection refused")
	err := NewOperationError("store.connect", base)

	if err.Error() != "store.connect: connection refused" {
		t.Errorf("Unexpected message: %s", err.Error())
	}
	if !errors.Is(err, base) {
		t.Error("Expected errors.Is to match the wrapped error")
	}

	var opErr *OperationError
	if !errors.As(err, &opErr) {
		t.Fatal("Expected errors.As to extract *OperationError")
	}
	if opErr.Operation != "store.connect" {
		t.Errorf("Operation = %s", opErr.Operation)
	}
}

func TestOperationErrorNil(t *testing.T) {
	if err := NewOperationError("anything", nil); err != nil {
		t.Errorf("Wrapping nil must return nil, got %v", err)
	}
}
