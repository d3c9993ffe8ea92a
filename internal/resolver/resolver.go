// Package resolver decides which version of a dependency repository goes
// with the current state of a main repository, and checks it out.
//
// When the main repository is on a version branch ("v1.2"), the dependency
// is moved to its release branch for that version or to the closest release
// tag that is not newer. Any other main branch selects the dependency branch
// of the same name, or the first existing fallback branch.
package resolver

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chis/depsmith/internal/vcs"
	"github.com/chis/depsmith/internal/version"
)

// BranchPrefix is the prefix version branches carry in the main repository.
const BranchPrefix = "v"

// DetachedHead stands for the branch of a main repository whose HEAD is
// detached. It matches no branch, so the fallback order applies.
const DetachedHead = "(no branch)"

// DefaultFallbackBranches returns the fallback branches in priority order.
func DefaultFallbackBranches() []string {
	return []string{"stable", "develop", "master"}
}

// Kind tells how a resolution was reached.
type Kind string

const (
	// KindVersionBranch: the dependency has a branch for the main version.
	KindVersionBranch Kind = "version-branch"
	// KindReleaseTag: a release tag was selected and the build branch reset to it.
	KindReleaseTag Kind = "release-tag"
	// KindNamedBranch: the dependency has a branch named like the main branch.
	KindNamedBranch Kind = "named-branch"
	// KindFallbackBranch: one of the fallback branches was used.
	KindFallbackBranch Kind = "fallback-branch"
)

// Resolution is what was checked out in the dependency repository.
type Resolution struct {
	Kind     Kind
	Ref      string // branch or tag name
	CommitID string
	Label    string // numeric rendering of the selected version, if any
}

func (r Resolution) String() string {
	return fmt.Sprintf("%s %s (%s)", r.Kind, r.Ref, shortID(r.CommitID))
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger decisions are reported to.
func WithLogger(l Logger) Option {
	return func(r *Resolver) {
		r.logger = orNop(l)
	}
}

// WithFallbackBranches replaces the fallback branches. Earlier names win.
func WithFallbackBranches(names ...string) Option {
	return func(r *Resolver) {
		if len(names) > 0 {
			r.fallback = append([]string(nil), names...)
		}
	}
}

// Resolver resolves dependency versions. It holds no per-call state and can
// be reused across dependencies.
type Resolver struct {
	logger   Logger
	fallback []string
}

// New creates a Resolver.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		logger:   NopLogger,
		fallback: DefaultFallbackBranches(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveDependencyVersion resolves dependency against main with the default
// fallback branches.
func ResolveDependencyVersion(dependency, main vcs.Repository, shortName string, logger Logger) (*Resolution, error) {
	return New(WithLogger(logger)).Resolve(dependency, main, shortName)
}

// Resolve selects the version of dependency matching the current branch of
// main and applies it to dependency. shortName identifies main in the
// dependency's branch and tag names ("v<shortName>1.2", "<shortName>1.2").
// main is only read. Every failure is a *ResolutionError.
func (r *Resolver) Resolve(dependency, main vcs.Repository, shortName string) (*Resolution, error) {
	head, err := main.Head()
	if errors.Is(err, vcs.ErrDetachedHead) {
		r.logger.Warn("%s: HEAD of %s is detached, using the fallback branches", dependency.Name(), main.Name())
		head, err = DetachedHead, nil
	}
	if err != nil {
		return nil, &ResolutionError{
			Repository: dependency.Name(),
			Err:        fmt.Errorf("failed to read HEAD of %s: %w", main.Name(), err),
		}
	}

	var res *Resolution
	if label, ok := version.ParseWithPrefix(head, BranchPrefix); ok {
		r.logger.Debug("%s: %s is on version branch %s (%s)", dependency.Name(), main.Name(), head, label)
		res, err = r.resolveVersionBranch(dependency, main, label, shortName)
	} else {
		r.logger.Debug("%s: %s is on branch %s", dependency.Name(), main.Name(), head)
		res, err = r.resolveNamedBranch(dependency, head)
	}
	if err != nil {
		return nil, &ResolutionError{Repository: dependency.Name(), Branch: head, Err: err}
	}

	r.logger.Info("%s: resolved %s", dependency.Name(), res)
	return res, nil
}

func (r *Resolver) resolveVersionBranch(dependency, main vcs.Repository, branchLabel version.Label, shortName string) (*Resolution, error) {
	head, err := vcs.HeadCommit(main)
	if err != nil {
		if errors.Is(err, vcs.ErrNoCommits) {
			return nil, fmt.Errorf("%w: %s", ErrEmptyRepository, main.Name())
		}
		return nil, fmt.Errorf("failed to read HEAD commit of %s: %w", main.Name(), err)
	}

	releases, err := releaseTags(main, head.ID)
	if err != nil {
		return nil, err
	}

	switch len(releases) {
	case 0:
		name := BranchPrefix + shortName + branchLabel.String()
		branches, err := dependency.Branches()
		if err != nil {
			return nil, fmt.Errorf("failed to list branches of %s: %w", dependency.Name(), err)
		}
		if b, ok := vcs.FindBranch(branches, name); ok {
			r.logger.Debug("%s: found version branch %s", dependency.Name(), name)
			if err := dependency.Checkout(name); err != nil {
				return nil, fmt.Errorf("failed to check out %s: %w", name, err)
			}
			return &Resolution{
				Kind:     KindVersionBranch,
				Ref:      name,
				CommitID: b.Tip,
				Label:    branchLabel.String(),
			}, nil
		}

		r.logger.Debug("%s: no branch %s, looking for a release tag below %s",
			dependency.Name(), name, branchLabel.Next())
		return r.checkoutTag(dependency, shortName, func(ls version.Labels) (version.Label, error) {
			return ls.LastBefore(branchLabel.Next())
		})

	case 1:
		release := releases[0]
		r.logger.Debug("%s: %s commit %s is release %s",
			dependency.Name(), main.Name(), shortID(head.ID), release.Raw())
		return r.checkoutTag(dependency, shortName, func(ls version.Labels) (version.Label, error) {
			return ls.LastAtMost(release)
		})

	default:
		return nil, fmt.Errorf("%w: commit %s of %s has several release tags [%s]",
			ErrAmbiguousRelease, shortID(head.ID), main.Name(), rawNames(releases))
	}
}

// releaseTags returns the purely numeric tags pointing at commitID.
func releaseTags(repo vcs.Repository, commitID string) (version.Labels, error) {
	tags, err := repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("failed to list tags of %s: %w", repo.Name(), err)
	}

	var labels version.Labels
	for _, t := range tags {
		if t.Target != commitID {
			continue
		}
		if l, ok := version.ParseWithPrefix(t.Name, ""); ok {
			labels = append(labels, l)
		}
	}
	return labels, nil
}

func (r *Resolver) checkoutTag(dependency vcs.Repository, shortName string, pick func(version.Labels) (version.Label, error)) (*Resolution, error) {
	tags, err := dependency.Tags()
	if err != nil {
		return nil, fmt.Errorf("failed to list tags of %s: %w", dependency.Name(), err)
	}

	// Label.Raw is the tag name.
	targets := make(map[string]string, len(tags))
	var labels version.Labels
	for _, t := range tags {
		if l, ok := version.ParseWithPrefix(t.Name, shortName); ok {
			labels = append(labels, l)
			targets[t.Name] = t.Target
		}
	}

	selected, err := pick(labels)
	if err != nil {
		return nil, fmt.Errorf("%w: tags with prefix %q in %s: %w",
			ErrNoQualifyingVersion, shortName, dependency.Name(), err)
	}

	commitID := targets[selected.Raw()]
	r.logger.Debug("%s: selected tag %s among [%s]", dependency.Name(), selected.Raw(), labels.Join(","))
	if err := ResetBuildBranch(dependency, commitID, r.logger); err != nil {
		return nil, err
	}

	return &Resolution{
		Kind:     KindReleaseTag,
		Ref:      selected.Raw(),
		CommitID: commitID,
		Label:    selected.String(),
	}, nil
}

func (r *Resolver) resolveNamedBranch(dependency vcs.Repository, head string) (*Resolution, error) {
	branches, err := dependency.Branches()
	if err != nil {
		return nil, fmt.Errorf("failed to list branches of %s: %w", dependency.Name(), err)
	}

	if b, ok := matchBranch(branches, head); ok {
		if err := dependency.Checkout(b.Name); err != nil {
			return nil, fmt.Errorf("failed to check out %s: %w", b.Name, err)
		}
		return &Resolution{Kind: KindNamedBranch, Ref: b.Name, CommitID: b.Tip}, nil
	}

	for _, name := range r.fallback {
		b, ok := vcs.FindBranch(branches, name)
		if !ok {
			continue
		}
		r.logger.Warn("%s: no branch matches %s, falling back to %s; available branches: %s",
			dependency.Name(), head, name, strings.Join(vcs.BranchNames(branches), ", "))
		if err := dependency.Checkout(b.Name); err != nil {
			return nil, fmt.Errorf("failed to check out %s: %w", b.Name, err)
		}
		return &Resolution{Kind: KindFallbackBranch, Ref: b.Name, CommitID: b.Tip}, nil
	}

	return nil, fmt.Errorf("%w: none of [%s] exists in %s; available branches: [%s]",
		ErrNoFallbackBranch, strings.Join(r.fallback, ", "), dependency.Name(),
		strings.Join(vcs.BranchNames(branches), ", "))
}

// matchBranch finds the branch named like name ignoring case. An exact
// match wins; otherwise the first match in name order.
func matchBranch(branches []vcs.Branch, name string) (vcs.Branch, bool) {
	if b, ok := vcs.FindBranch(branches, name); ok {
		return b, true
	}
	for _, b := range branches {
		if strings.EqualFold(b.Name, name) {
			return b, true
		}
	}
	return vcs.Branch{}, false
}

func rawNames(ls version.Labels) string {
	names := make([]string, len(ls))
	for i, l := range ls {
		names[i] = l.Raw()
	}
	return strings.Join(names, ", ")
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
