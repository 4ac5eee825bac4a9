package common

import (
	"errors"
	"testing"
)

func TestGuardNilViewAllows(t *testing.T) {
	if err := Guard(nil, "farming"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGuardRejectsPausedModule(t *testing.T) {
	pauses := NewPauses("Farming")
	if err := Guard(pauses, "farming"); !errors.Is(err, ErrModulePaused) {
		t.Fatalf("expected ErrModulePaused, got %v", err)
	}
	if err := Guard(pauses, "lending"); err != nil {
		t.Fatalf("unrelated module should not be paused: %v", err)
	}

	pauses.Set("farming", false)
	if err := Guard(pauses, "farming"); err != nil {
		t.Fatalf("expected module to resume, got %v", err)
	}
}

func TestGuardIgnoresEmptyModule(t *testing.T) {
	pauses := NewPauses("")
	if pauses.IsPaused("") {
		t.Fatalf("empty module name must never be paused")
	}
	if err := Guard(pauses, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
