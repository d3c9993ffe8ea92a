package version

// Compare compares two labels and returns:
//
//	-1 if a < b
//	 0 if a == b
//	 1 if a > b
//
// Fields are compared from most to least significant. An absent field sorts
// below any present value, including 0 and negative values.
func Compare(a, b Label) int {
	if a.Major != b.Major {
		if a.Major < b.Major {
			return -1
		}
		return 1
	}

	if c := compareSegment(a.Minor, b.Minor); c != 0 {
		return c
	}
	if c := compareSegment(a.MajorBuild, b.MajorBuild); c != 0 {
		return c
	}
	return compareSegment(a.MinorBuild, b.MinorBuild)
}

func compareSegment(a, b Segment) int {
	switch {
	case !a.Valid && !b.Valid:
		return 0
	case !a.Valid:
		return -1
	case !b.Valid:
		return 1
	case a.Value < b.Value:
		return -1
	case a.Value > b.Value:
		return 1
	default:
		return 0
	}
}

// Compare is the method form of the package-level Compare.
func (l Label) Compare(other Label) int {
	return Compare(l, other)
}

// Less reports whether l sorts before other.
func (l Label) Less(other Label) bool {
	return Compare(l, other) < 0
}
