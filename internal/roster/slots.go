package roster

import "fmt"

// Slots holds one portion's entries so each can be taken exactly once.
type Slots struct {
	entries []*UserSubmission
	labels  []string
}

// NewSlots copies entries into a fresh arena.
func NewSlots(entries []UserSubmission) *Slots {
	s := &Slots{
		entries: make([]*UserSubmission, len(entries)),
		labels:  make([]string, len(entries)),
	}
	for i := range entries {
		entry := entries[i]
		s.entries[i] = &entry
		s.labels[i] = entry.Name()
	}
	return s
}

// Len returns the number of slots, taken or not.
func (s *Slots) Len() int {
	return len(s.entries)
}

// Labels returns every slot's display name in order. Taken slots keep their
// label.
func (s *Slots) Labels() []string {
	out := make([]string, len(s.labels))
	copy(out, s.labels)
	return out
}

// Take moves the entry at index out of its slot. Taking an empty or unknown
// slot returns ErrInvalidSelection.
func (s *Slots) Take(index int) (UserSubmission, error) {
	if index < 0 || index >= len(s.entries) {
		return UserSubmission{}, fmt.Errorf("%w: index %d not in [0, %d)", ErrInvalidSelection, index, len(s.entries))
	}
	entry := s.entries[index]
	if entry == nil {
		return UserSubmission{}, fmt.Errorf("%w: %s already taken", ErrInvalidSelection, s.labels[index])
	}
	s.entries[index] = nil
	return *entry, nil
}

// Remaining counts the slots that have not been taken.
func (s *Slots) Remaining() int {
	n := 0
	for _, entry := range s.entries {
		if entry != nil {
			n++
		}
	}
	return n
}
