package resolver

import (
	"errors"
	"fmt"
)

// Sentinel errors for conditions that abort one dependency's resolution.
var (
	ErrAmbiguousRelease    = errors.New("ambiguous release")
	ErrNoQualifyingVersion = errors.New("no qualifying version")
	ErrNoFallbackBranch    = errors.New("no fallback branch")
	ErrEmptyRepository     = errors.New("main repository has no commits")
)

// ResolutionError reports a failed resolution of Repository while the main
// repository was on Branch.
type ResolutionError struct {
	Repository string
	Branch     string
	Err        error
}

func (e *ResolutionError) Error() string {
	if e.Branch == "" {
		return fmt.Sprintf("resolving %s: %v", e.Repository, e.Err)
	}
	return fmt.Sprintf("resolving %s for branch %s: %v", e.Repository, e.Branch, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }
