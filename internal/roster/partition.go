package roster

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrInvalidSelection reports a roster index that is out of range or was
	// already consumed.
	ErrInvalidSelection = errors.New("roster: invalid selection")
	// ErrInvalidDivision reports a division count below one.
	ErrInvalidDivision = errors.New("roster: division count must be at least 1")
	// ErrPortionOutOfRange reports a portion index outside [0, divisions).
	ErrPortionOutOfRange = fmt.Errorf("%w: portion out of range", ErrInvalidSelection)
)

// Portion is the half-open range [Start, End) of the sorted roster handed to
// one grader.
type Portion struct {
	Index int
	Start int
	End   int
}

// Len returns the number of entries in the portion.
func (p Portion) Len() int {
	return p.End - p.Start
}

// Label is the 1-based name shown to graders.
func (p Portion) Label() string {
	return fmt.Sprintf("%d", p.Index+1)
}

// Slice returns the entries covered by the portion.
func (p Portion) Slice(entries []UserSubmission) []UserSubmission {
	return entries[p.Start:p.End]
}

// SortByName orders entries by sortable name, keeping the original order of
// equal names.
func SortByName(entries []UserSubmission) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Profile.SortableName < entries[j].Profile.SortableName
	})
}

// Divide splits total entries into divisions contiguous portions. Every
// portion holds total/divisions entries except the last, which also takes the
// remainder. When total < divisions the leading portions are empty.
func Divide(total, divisions int) ([]Portion, error) {
	if divisions < 1 {
		return nil, ErrInvalidDivision
	}
	if total < 0 {
		return nil, fmt.Errorf("roster: negative roster size %d", total)
	}
	base := total / divisions
	portions := make([]Portion, divisions)
	for i := range portions {
		start := base * i
		end := start + base
		if i == divisions-1 {
			end += total % divisions
		}
		portions[i] = Portion{Index: i, Start: start, End: end}
	}
	return portions, nil
}

// PortionAt returns portion index of a roster divided into divisions.
func PortionAt(total, divisions, index int) (Portion, error) {
	portions, err := Divide(total, divisions)
	if err != nil {
		return Portion{}, err
	}
	if index < 0 || index >= len(portions) {
		return Portion{}, fmt.Errorf("%w: %d not in [0, %d)", ErrPortionOutOfRange, index, divisions)
	}
	return portions[index], nil
}
