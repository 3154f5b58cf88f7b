// Package ordering validates reorder requests for position-ordered collections
// (page sections, team members, clients, slides, gallery items).
package ordering

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalidOrder means a reorder list is not a permutation of the current IDs.
var ErrInvalidOrder = errors.New("reorder list must contain exactly the current IDs")

// Validate checks that requested is a permutation of current. IDs compare
// case-insensitively, matching ULID semantics.
func Validate(current, requested []string) error {
	if len(current) != len(requested) {
		return fmt.Errorf("%w: got %d ids, want %d", ErrInvalidOrder, len(requested), len(current))
	}
	want := make(map[string]bool, len(current))
	for _, id := range current {
		want[strings.ToUpper(id)] = true
	}
	seen := make(map[string]bool, len(requested))
	for _, id := range requested {
		key := strings.ToUpper(strings.TrimSpace(id))
		if !want[key] {
			return fmt.Errorf("%w: unknown id %q", ErrInvalidOrder, id)
		}
		if seen[key] {
			return fmt.Errorf("%w: duplicate id %q", ErrInvalidOrder, id)
		}
		seen[key] = true
	}
	return nil
}

// Positioned is anything with a sortable position and a tiebreak ID.
type Positioned interface {
	OrderKey() (position int, id string)
}

// Sort orders items by ascending position, breaking ties by ID.
func Sort[T Positioned](items []T) {
	sort.SliceStable(items, func(i, j int) bool {
		pi, idi := items[i].OrderKey()
		pj, idj := items[j].OrderKey()
		if pi != pj {
			return pi < pj
		}
		return idi < idj
	})
}
