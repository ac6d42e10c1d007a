package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/vladislavdragonenkov/salesorders/internal/domain"
)

func TestFault_Codes(t *testing.T) {
	cases := []struct {
		fault *domain.Fault
		kind  domain.FaultKind
		code  int
	}{
		{domain.NewValidationFault("bad input"), domain.FaultValidation, 400},
		{domain.NewNotFoundFault("missing"), domain.FaultNotFound, 404},
		{domain.NewConflictFault("duplicate"), domain.FaultConflict, 409},
		{domain.NewStorageFault("io failure"), domain.FaultStorage, 500},
	}

	for _, tc := range cases {
		if tc.fault.Kind != tc.kind {
			t.Errorf("expected kind %s, got %s", tc.kind, tc.fault.Kind)
		}
		if tc.fault.Code != tc.code {
			t.Errorf("expected code %d, got %d", tc.code, tc.fault.Code)
		}
		if tc.fault.Error() != tc.fault.Message {
			t.Errorf("Error() must return the message, got %q", tc.fault.Error())
		}
	}
}

func TestAsFault_Wrapped(t *testing.T) {
	fault := domain.NewConflictFault("duplicate order")
	wrapped := fmt.Errorf("create order: %w", fault)

	got, ok := domain.AsFault(wrapped)
	if !ok {
		t.Fatal("expected fault in chain")
	}
	if got.Code != 409 {
		t.Fatalf("expected code 409, got %d", got.Code)
	}

	if _, ok := domain.AsFault(errors.New("plain")); ok {
		t.Fatal("plain error must not be a fault")
	}
}

func TestIsNotFound(t *testing.T) {
	if !domain.IsNotFound(domain.ErrOrderNotFound) {
		t.Fatal("sentinel must be recognized")
	}
	if !domain.IsNotFound(fmt.Errorf("get: %w", domain.ErrOrderNotFound)) {
		t.Fatal("wrapped sentinel must be recognized")
	}
	if !domain.IsNotFound(domain.NewNotFoundFault("order 7 does not exist")) {
		t.Fatal("not-found fault must be recognized")
	}
	if domain.IsNotFound(domain.NewConflictFault("duplicate")) {
		t.Fatal("conflict fault must not be not-found")
	}
}
