package slot

import "testing"

func TestStackConservation(t *testing.T) {
	const cap = 8
	s := New(cap)
	inUse := make(map[uint16]bool)

	pop := func() uint16 {
		idx, err := s.Pop()
		if err != nil {
			t.Fatalf("unexpected Pop error: %v", err)
		}
		if inUse[idx] {
			t.Fatalf("slot %d popped while already in use", idx)
		}
		inUse[idx] = true
		return idx
	}
	push := func(idx uint16) {
		if !inUse[idx] {
			t.Fatalf("pushing slot %d that was not in use", idx)
		}
		delete(inUse, idx)
		if err := s.Push(idx); err != nil {
			t.Fatalf("unexpected Push error: %v", err)
		}
	}

	var held []uint16
	for i := 0; i < cap; i++ {
		held = append(held, pop())
	}
	if s.Len() != 0 {
		t.Fatalf("expected empty stack, Len()=%d", s.Len())
	}
	if _, err := s.Pop(); err != ErrEmpty {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
	if len(inUse)+s.Len() != cap {
		t.Fatalf("conservation violated: in_use=%d free=%d cap=%d", len(inUse), s.Len(), cap)
	}

	push(held[0])
	push(held[1])
	if len(inUse)+s.Len() != cap {
		t.Fatalf("conservation violated after push: in_use=%d free=%d cap=%d", len(inUse), s.Len(), cap)
	}
	if got := pop(); got != held[1] {
		t.Errorf("expected LIFO reuse of %d, got %d", held[1], got)
	}
}

func TestStackPushFull(t *testing.T) {
	s := New(2)
	if err := s.Push(0); err != ErrFull {
		t.Fatalf("expected ErrFull, got %v", err)
	}
}
