package version

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrNotFound is returned when no label satisfies a query.
var ErrNotFound = errors.New("no matching version label")

// Labels is a set of labels, typically parsed from the tags of one repository.
type Labels []Label

// Sorted returns a stably sorted copy, lowest first. Labels that compare
// equal keep their relative order.
func (ls Labels) Sorted() Labels {
	out := slices.Clone(ls)
	slices.SortStableFunc(out, Compare)
	return out
}

// Max returns the greatest label. It fails when the set is empty.
func (ls Labels) Max() (Label, error) {
	if len(ls) == 0 {
		return Label{}, fmt.Errorf("%w: empty label set", ErrNotFound)
	}
	sorted := ls.Sorted()
	return sorted[len(sorted)-1], nil
}

// LastAtMost returns the greatest label <= target. Among equal candidates
// the last one in input order wins.
func (ls Labels) LastAtMost(target Label) (Label, error) {
	return ls.last(target, func(c int) bool { return c <= 0 }, "<=")
}

// LastBefore returns the greatest label < target. Among equal candidates
// the last one in input order wins.
func (ls Labels) LastBefore(target Label) (Label, error) {
	return ls.last(target, func(c int) bool { return c < 0 }, "<")
}

func (ls Labels) last(target Label, accept func(int) bool, op string) (Label, error) {
	sorted := ls.Sorted()
	for i := len(sorted) - 1; i >= 0; i-- {
		if accept(Compare(sorted[i], target)) {
			return sorted[i], nil
		}
	}
	return Label{}, fmt.Errorf("%w: no label %s '%s': candidates = [%s]", ErrNotFound, op, target, ls.Join(","))
}

// Join renders every label as "number(raw)" separated by sep.
func (ls Labels) Join(sep string) string {
	parts := make([]string, len(ls))
	for i, l := range ls {
		parts[i] = l.Describe()
	}
	return strings.Join(parts, sep)
}
