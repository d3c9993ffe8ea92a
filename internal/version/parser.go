package version

import (
	"regexp"
	"strconv"
)

// labelPattern matches an optional alphabetic prefix, one to four dot
// separated numeric groups and an optional suffix. The suffix may not start
// with a digit or a dot, so "1.a", "1.." and "1.-1" do not match.
var labelPattern = regexp.MustCompile(`^([A-Za-z]*)([0-9]+)(?:\.([0-9]+))?(?:\.([0-9]+))?(?:\.([0-9]+))?([^.0-9].*)?$`)

// Match holds the pieces of a successful parse.
type Match struct {
	Label  Label
	Prefix string
	Suffix string
}

// Parse parses value without constraining its alphabetic prefix.
// The boolean is false when value is not a version label.
func Parse(value string) (Label, bool) {
	m, ok := Split(value)
	if !ok {
		return Label{}, false
	}
	return m.Label, true
}

// ParseWithPrefix parses value and requires its alphabetic prefix to be
// exactly prefix. An empty prefix only accepts labels starting with a digit.
func ParseWithPrefix(value, prefix string) (Label, bool) {
	m, ok := Split(value)
	if !ok || m.Prefix != prefix {
		return Label{}, false
	}
	return m.Label, true
}

// Split parses value and also returns the captured prefix and suffix.
func Split(value string) (Match, bool) {
	groups := labelPattern.FindStringSubmatch(value)
	if groups == nil {
		return Match{}, false
	}

	major, err := strconv.Atoi(groups[2])
	if err != nil {
		return Match{}, false
	}

	label := Label{raw: value, Major: major}
	for i, seg := range []*Segment{&label.Minor, &label.MajorBuild, &label.MinorBuild} {
		text := groups[3+i]
		if text == "" {
			continue
		}
		n, err := strconv.Atoi(text)
		if err != nil {
			return Match{}, false
		}
		*seg = Some(n)
	}

	return Match{
		Label:  label,
		Prefix: groups[1],
		Suffix: groups[6],
	}, true
}
