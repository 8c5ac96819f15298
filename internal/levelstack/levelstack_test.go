package levelstack

import (
	"errors"
	"testing"
)

func TestNewLevelStack_Invalid(t *testing.T) {
	tests := []struct {
		name string
		caps []int
	}{
		{"empty", nil},
		{"zero capacity", []int{100, 0, 25}},
		{"negative capacity", []int{100, -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLevelStack(tt.caps)
			if !errors.Is(err, ErrInvalidLevelSizes) {
				t.Fatalf("NewLevelStack(%v) = %v, want ErrInvalidLevelSizes", tt.caps, err)
			}
		})
	}
}

func TestLevelStack_EmptyHasNoPrevious(t *testing.T) {
	s, err := NewLevelStack([]int{2, 2})
	if err != nil {
		t.Fatalf("NewLevelStack: %v", err)
	}
	if _, ok := s.FindPrevious(); ok {
		t.Fatal("fresh stack should have no previous")
	}
	if !s.HasSpace() {
		t.Fatal("fresh stack should have space")
	}
}

func TestLevelStack_PlaceFillsLowestLevelFirst(t *testing.T) {
	s, _ := NewLevelStack([]int{2, 2})

	if err := s.Place(1); err != nil {
		t.Fatalf("Place(1): %v", err)
	}
	if prev, ok := s.FindPrevious(); !ok || prev != 1 {
		t.Fatalf("FindPrevious() = (%d, %v), want (1, true)", prev, ok)
	}

	if err := s.Place(2); err != nil {
		t.Fatalf("Place(2): %v", err)
	}
	if prev, ok := s.FindPrevious(); !ok || prev != 2 {
		t.Fatalf("FindPrevious() = (%d, %v), want (2, true)", prev, ok)
	}
}

func TestLevelStack_PlaceCarriesToNextLevelAndResetsLower(t *testing.T) {
	s, _ := NewLevelStack([]int{2, 2})

	s.Place(1)
	s.Place(2) // level 0 now full (count 2)

	// Level 0 is full, so the next Place should land on level 1 and reset
	// level 0 back to empty (odometer carry).
	if err := s.Place(3); err != nil {
		t.Fatalf("Place(3): %v", err)
	}
	if prev, ok := s.FindPrevious(); !ok || prev != 3 {
		t.Fatalf("FindPrevious() after carry = (%d, %v), want (3, true)", prev, ok)
	}
	if !s.HasSpace() {
		t.Fatal("stack should have space: level 0 was reset by the carry")
	}
}

func TestLevelStack_PlaceFailsWhenFull(t *testing.T) {
	s, _ := NewLevelStack([]int{1, 1})

	if err := s.Place(1); err != nil {
		t.Fatalf("Place(1): %v", err)
	}
	if err := s.Place(2); err != nil { // carries to level 1, resets level 0
		t.Fatalf("Place(2): %v", err)
	}
	if err := s.Place(3); err != nil { // refills level 0
		t.Fatalf("Place(3): %v", err)
	}
	if s.HasSpace() {
		t.Fatal("stack should report full")
	}
	if err := s.Place(4); !errors.Is(err, ErrStackFull) {
		t.Fatalf("Place on full stack = %v, want ErrStackFull", err)
	}
}

func TestLevelStack_Reset(t *testing.T) {
	s, _ := NewLevelStack([]int{2, 2})
	s.Place(1)
	s.Place(2)

	s.Reset()

	if _, ok := s.FindPrevious(); ok {
		t.Fatal("Reset should clear all heads")
	}
	if !s.HasSpace() {
		t.Fatal("Reset should restore capacity")
	}
}

func TestLevelStack_DegenerateSingleLevelOne(t *testing.T) {
	// [1] config: every single placement immediately fills the only level;
	// the stack must report full after exactly one Place and accept a new
	// chain only via an explicit Reset.
	s, err := NewLevelStack([]int{1})
	if err != nil {
		t.Fatalf("NewLevelStack([1]): %v", err)
	}
	if err := s.Place(1); err != nil {
		t.Fatalf("Place(1): %v", err)
	}
	if s.HasSpace() {
		t.Fatal("[1] stack should be full after one placement")
	}
	if err := s.Place(2); !errors.Is(err, ErrStackFull) {
		t.Fatalf("Place(2) on full [1] stack = %v, want ErrStackFull", err)
	}
}
