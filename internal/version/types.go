package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Segment is an optional numeric component of a Label.
// The zero value is an absent segment.
type Segment struct {
	Value int
	Valid bool
}

// Some returns a present segment holding v.
func Some(v int) Segment {
	return Segment{Value: v, Valid: true}
}

// String returns the decimal value, or "-" when the segment is absent.
func (s Segment) String() string {
	if !s.Valid {
		return "-"
	}
	return strconv.Itoa(s.Value)
}

// Label is a version encoded in a branch or tag name, e.g. "v1.2" or "rp1.2.0.7_ci".
//
// Only the four numeric fields take part in equality and ordering. The
// original text is kept for display and for finding the ref a label came from.
type Label struct {
	raw string

	Major      int
	Minor      Segment
	MajorBuild Segment
	MinorBuild Segment
}

// Key is the comparable identity of a Label. Two labels are Equal exactly
// when their keys are ==, so Key can be used as a map key.
type Key struct {
	Major      int
	Minor      Segment
	MajorBuild Segment
	MinorBuild Segment
}

// New builds a label from its raw text and numeric fields. The optional
// values fill Minor, MajorBuild and MinorBuild in that order.
func New(raw string, major int, rest ...int) Label {
	if len(rest) > 3 {
		panic(fmt.Sprintf("version.New: at most 4 numeric fields, got %d", len(rest)+1))
	}

	l := Label{raw: raw, Major: major}
	segments := []*Segment{&l.Minor, &l.MajorBuild, &l.MinorBuild}
	for i, v := range rest {
		*segments[i] = Some(v)
	}
	return l
}

// Raw returns the text the label was parsed from.
func (l Label) Raw() string {
	return l.raw
}

// Key returns the numeric identity of the label.
func (l Label) Key() Key {
	return Key{
		Major:      l.Major,
		Minor:      l.Minor,
		MajorBuild: l.MajorBuild,
		MinorBuild: l.MinorBuild,
	}
}

// Equal reports whether both labels carry the same numeric fields.
// Raw text, prefix and suffix are ignored.
func (l Label) Equal(other Label) bool {
	return l.Key() == other.Key()
}

// Add returns a label with n added to the least significant present field.
// The raw text of the result is rendered from the numbers only, so any
// prefix or suffix of the receiver is lost.
func (l Label) Add(n int) Label {
	next := l
	switch {
	case next.MinorBuild.Valid:
		next.MinorBuild.Value += n
	case next.MajorBuild.Valid:
		next.MajorBuild.Value += n
	case next.Minor.Valid:
		next.Minor.Value += n
	default:
		next.Major += n
	}
	next.raw = next.String()
	return next
}

// Sub returns l.Add(-n).
func (l Label) Sub(n int) Label {
	return l.Add(-n)
}

// Next returns l.Add(1).
func (l Label) Next() Label {
	return l.Add(1)
}

// String renders major[.minor[.majorBuild[.minorBuild]]].
func (l Label) String() string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(l.Major))
	for _, s := range []Segment{l.Minor, l.MajorBuild, l.MinorBuild} {
		if !s.Valid {
			continue
		}
		b.WriteByte('.')
		b.WriteString(strconv.Itoa(s.Value))
	}
	return b.String()
}

// Describe renders the label with its raw text, e.g. "1.2(v1.2)".
func (l Label) Describe() string {
	return fmt.Sprintf("%s(%s)", l.String(), l.raw)
}
