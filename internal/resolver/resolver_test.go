package resolver

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chis/depsmith/internal/vcs"
	"github.com/chis/depsmith/internal/version"
)

type recordingLogger struct {
	debug []string
	info  []string
	warn  []string
}

func (l *recordingLogger) Debug(format string, args ...any) {
	l.debug = append(l.debug, fmt.Sprintf(format, args...))
}

func (l *recordingLogger) Info(format string, args ...any) {
	l.info = append(l.info, fmt.Sprintf(format, args...))
}

func (l *recordingLogger) Warn(format string, args ...any) {
	l.warn = append(l.warn, fmt.Sprintf(format, args...))
}

// mainOn returns a main repository with one commit on branch.
func mainOn(branch string) (*vcs.Memory, string) {
	main := vcs.NewMemory("main")
	id := main.Commit(branch, "work")
	main.SetHead(branch)
	return main, id
}

func headOf(t *testing.T, repo vcs.Repository) string {
	t.Helper()
	head, err := repo.Head()
	require.NoError(t, err)
	return head
}

func TestResolveVersionBranchWithoutReleaseTag(t *testing.T) {
	main, _ := mainOn("v1.2")

	dep := vcs.NewMemory("dep")
	older := dep.Commit("master", "1.1")
	newer := dep.Commit("master", "1.3")
	dep.Tag("ShortName1.1", older)
	dep.Tag("ShortName1.3", newer)

	res, err := ResolveDependencyVersion(dep, main, "ShortName", nil)
	require.NoError(t, err)

	assert.Equal(t, KindReleaseTag, res.Kind)
	assert.Equal(t, "ShortName1.1", res.Ref)
	assert.Equal(t, older, res.CommitID)
	assert.Equal(t, "1.1", res.Label)

	tip, ok := dep.Tip(vcs.BuildBranch)
	require.True(t, ok)
	assert.Equal(t, older, tip)
	assert.Equal(t, vcs.BuildBranch, headOf(t, dep))
	assert.Equal(t, []string{"branch build " + older, "checkout build"}, dep.Operations())
}

func TestResolveVersionBranchIncludesSameVersion(t *testing.T) {
	main, _ := mainOn("v1.2")

	dep := vcs.NewMemory("dep")
	c1 := dep.Commit("master", "1.1")
	c2 := dep.Commit("master", "1.2.5")
	dep.Tag("ShortName1.1", c1)
	dep.Tag("ShortName1.2.5", c2)

	res, err := ResolveDependencyVersion(dep, main, "ShortName", nil)
	require.NoError(t, err)
	assert.Equal(t, "ShortName1.2.5", res.Ref, "1.2.5 < 1.3 must qualify")
}

func TestResolveVersionBranchPrefersReleaseBranch(t *testing.T) {
	main, _ := mainOn("v1.2")

	dep := vcs.NewMemory("dep")
	c1 := dep.Commit("master", "1.1")
	dep.Tag("ShortName1.1", c1)
	branchTip := dep.Commit("vShortName1.2", "in progress")

	res, err := ResolveDependencyVersion(dep, main, "ShortName", nil)
	require.NoError(t, err)

	assert.Equal(t, KindVersionBranch, res.Kind)
	assert.Equal(t, "vShortName1.2", res.Ref)
	assert.Equal(t, branchTip, res.CommitID)
	assert.Equal(t, "vShortName1.2", headOf(t, dep))
	assert.Equal(t, []string{"checkout vShortName1.2"}, dep.Operations())
}

func TestResolveTaggedRelease(t *testing.T) {
	tests := []struct {
		name    string
		release string
		want    string
	}{
		{"exact release", "1.3", "rp1.3"},
		{"between releases", "1.2", "rp1.1"},
		{"newer than all", "9.0", "rp1.4"},
		{"build number", "1.3.7", "rp1.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			main, head := mainOn("v1.2")
			main.Tag(tt.release, head)

			dep := vcs.NewMemory("dep")
			for _, v := range []string{"1.1", "1.3", "1.4"} {
				dep.Tag("rp"+v, dep.Commit("master", v))
			}

			res, err := ResolveDependencyVersion(dep, main, "rp", nil)
			require.NoError(t, err)
			assert.Equal(t, KindReleaseTag, res.Kind)
			assert.Equal(t, tt.want, res.Ref)
		})
	}
}

func TestResolveIgnoresPrefixedTagsOnMainHead(t *testing.T) {
	main, head := mainOn("v1.2")
	main.Tag("v1.5", head)
	main.Tag("rp1.5", head)

	dep := vcs.NewMemory("dep")
	dep.Tag("rp1.1", dep.Commit("master", "1.1"))
	dep.Tag("rp1.4", dep.Commit("master", "1.4"))

	res, err := ResolveDependencyVersion(dep, main, "rp", nil)
	require.NoError(t, err)
	assert.Equal(t, "rp1.1", res.Ref, "only numeric tags identify a main release")
}

func TestResolveAmbiguousRelease(t *testing.T) {
	main, head := mainOn("v1.2")
	main.Tag("1.2", head)
	main.Tag("1.2.1", head)

	dep := vcs.NewMemory("dep")
	dep.Tag("rp1.1", dep.Commit("master", "1.1"))

	_, err := ResolveDependencyVersion(dep, main, "rp", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAmbiguousRelease)
	assert.Contains(t, err.Error(), "1.2, 1.2.1")
	assert.Empty(t, dep.Operations())
}

func TestResolveNoQualifyingVersion(t *testing.T) {
	main, head := mainOn("v1.2")
	main.Tag("1.2", head)

	dep := vcs.NewMemory("dep")
	dep.Tag("rp1.5", dep.Commit("master", "1.5"))
	dep.Tag("other1.0", dep.Commit("master", "1.0"))

	_, err := ResolveDependencyVersion(dep, main, "rp", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoQualifyingVersion)
	assert.ErrorIs(t, err, version.ErrNotFound)
	assert.Contains(t, err.Error(), "rp1.5")
	assert.NotContains(t, err.Error(), "other1.0")
	assert.Empty(t, dep.Operations())

	var resErr *ResolutionError
	require.True(t, errors.As(err, &resErr))
	assert.Equal(t, "dep", resErr.Repository)
	assert.Equal(t, "v1.2", resErr.Branch)
}

func TestResolveNoTagsAtAll(t *testing.T) {
	main, _ := mainOn("v1.2")
	dep := vcs.NewMemory("dep")
	dep.Commit("master", "initial")

	_, err := ResolveDependencyVersion(dep, main, "rp", nil)
	assert.ErrorIs(t, err, ErrNoQualifyingVersion)
}

func TestResolveEmptyMainRepository(t *testing.T) {
	main := vcs.NewMemory("main")
	main.SetHead("v1.2")
	dep := vcs.NewMemory("dep")

	_, err := ResolveDependencyVersion(dep, main, "rp", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyRepository)
}

func TestResolveDetachedMain(t *testing.T) {
	main, _ := mainOn("v1.2")
	main.Detach()
	dep := vcs.NewMemory("dep")
	dep.Commit("master", "initial")
	dep.Commit("develop", "work")

	logger := &recordingLogger{}
	res, err := ResolveDependencyVersion(dep, main, "rp", logger)
	require.NoError(t, err)
	assert.Equal(t, KindFallbackBranch, res.Kind)
	assert.Equal(t, "develop", res.Ref)
	assert.Equal(t, "develop", headOf(t, dep))

	require.Len(t, logger.warn, 2)
	assert.Contains(t, logger.warn[0], "detached")
	assert.Contains(t, logger.warn[1], DetachedHead)
}

func TestResolveDetachedMainWithoutFallback(t *testing.T) {
	main, _ := mainOn("develop")
	main.Detach()
	dep := vcs.NewMemory("dep")
	dep.Commit("trunk", "initial")

	_, err := ResolveDependencyVersion(dep, main, "rp", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoFallbackBranch)

	var resErr *ResolutionError
	require.True(t, errors.As(err, &resErr))
	assert.Equal(t, DetachedHead, resErr.Branch)
}

func TestResolveResetsExistingBuildBranch(t *testing.T) {
	main, head := mainOn("v1.2")
	main.Tag("1.2", head)

	dep := vcs.NewMemory("dep")
	release := dep.Commit("master", "1.2")
	dep.Tag("rp1.2", release)
	dep.Commit(vcs.BuildBranch, "stale build")

	_, err := ResolveDependencyVersion(dep, main, "rp", nil)
	require.NoError(t, err)

	tip, _ := dep.Tip(vcs.BuildBranch)
	assert.Equal(t, release, tip)
	assert.Equal(t, []string{"checkout build", "reset build " + release}, dep.Operations())
}

func TestResolveEqualTagsPicksLastByName(t *testing.T) {
	main, _ := mainOn("v1.2")

	dep := vcs.NewMemory("dep")
	a := dep.Commit("master", "a")
	b := dep.Commit("master", "b")
	dep.Tag("rp1.2", a)
	dep.Tag("rp1.2_ci", b)

	res, err := ResolveDependencyVersion(dep, main, "rp", nil)
	require.NoError(t, err)
	assert.Equal(t, "rp1.2_ci", res.Ref)
	assert.Equal(t, b, res.CommitID)
}

func TestResolveNamedBranch(t *testing.T) {
	main, _ := mainOn("develop")

	dep := vcs.NewMemory("dep")
	dep.Commit("master", "initial")
	tip := dep.Commit("develop", "dev work")

	logger := &recordingLogger{}
	res, err := ResolveDependencyVersion(dep, main, "rp", logger)
	require.NoError(t, err)
	assert.Equal(t, KindNamedBranch, res.Kind)
	assert.Equal(t, "develop", res.Ref)
	assert.Equal(t, tip, res.CommitID)
	assert.Equal(t, "develop", headOf(t, dep))
	assert.Empty(t, logger.warn)
}

func TestResolveNamedBranchIgnoresCase(t *testing.T) {
	main, _ := mainOn("Feature-X")

	dep := vcs.NewMemory("dep")
	dep.Commit("master", "initial")
	dep.Commit("feature-x", "x")

	res, err := ResolveDependencyVersion(dep, main, "rp", nil)
	require.NoError(t, err)
	assert.Equal(t, KindNamedBranch, res.Kind)
	assert.Equal(t, "feature-x", res.Ref)
}

func TestResolveNamedBranchPrefersExactCase(t *testing.T) {
	main, _ := mainOn("develop")

	dep := vcs.NewMemory("dep")
	dep.Commit("Develop", "upper")
	dep.Commit("develop", "lower")

	res, err := ResolveDependencyVersion(dep, main, "rp", nil)
	require.NoError(t, err)
	assert.Equal(t, "develop", res.Ref)
}

func TestResolveFallbackBranch(t *testing.T) {
	tests := []struct {
		name     string
		branches []string
		want     string
	}{
		{"develop beats master", []string{"master", "develop"}, "develop"},
		{"stable beats all", []string{"master", "develop", "stable"}, "stable"},
		{"master last", []string{"master", "trunk"}, "master"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			main, _ := mainOn("feature-x")

			dep := vcs.NewMemory("dep")
			for _, b := range tt.branches {
				dep.Commit(b, b)
			}

			logger := &recordingLogger{}
			res, err := ResolveDependencyVersion(dep, main, "rp", logger)
			require.NoError(t, err)
			assert.Equal(t, KindFallbackBranch, res.Kind)
			assert.Equal(t, tt.want, res.Ref)
			assert.Equal(t, tt.want, headOf(t, dep))

			require.Len(t, logger.warn, 1)
			for _, b := range tt.branches {
				assert.Contains(t, logger.warn[0], b)
			}
		})
	}
}

func TestResolveNoFallbackBranch(t *testing.T) {
	main, _ := mainOn("feature-x")

	dep := vcs.NewMemory("dep")
	dep.Commit("trunk", "initial")

	_, err := ResolveDependencyVersion(dep, main, "rp", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoFallbackBranch)
	assert.Contains(t, err.Error(), "trunk")
	assert.Contains(t, err.Error(), "feature-x")
	assert.Empty(t, dep.Operations())
}

func TestWithFallbackBranches(t *testing.T) {
	main, _ := mainOn("feature-x")

	dep := vcs.NewMemory("dep")
	dep.Commit("master", "initial")
	dep.Commit("trunk", "trunk")

	res, err := New(WithFallbackBranches("trunk", "master")).Resolve(dep, main, "rp")
	require.NoError(t, err)
	assert.Equal(t, "trunk", res.Ref)
}

func TestResolveWithNopLogger(t *testing.T) {
	main, _ := mainOn("develop")
	dep := vcs.NewMemory("dep")
	dep.Commit("develop", "x")

	_, err := New(WithLogger(NopLogger)).Resolve(dep, main, "rp")
	assert.NoError(t, err)
}

func TestResolveLeavesMainUntouched(t *testing.T) {
	main, head := mainOn("v1.2")
	main.Tag("1.2", head)

	dep := vcs.NewMemory("dep")
	dep.Tag("rp1.2", dep.Commit("master", "1.2"))

	_, err := ResolveDependencyVersion(dep, main, "rp", nil)
	require.NoError(t, err)
	assert.Empty(t, main.Operations())
}
