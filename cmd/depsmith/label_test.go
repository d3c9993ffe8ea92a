package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inspectLabels(t *testing.T, args ...string) []LabelInfo {
	t.Helper()
	cmd := NewLabelCommand(&bytes.Buffer{})
	require.NoError(t, cmd.ParseFlags(args))
	return cmd.inspect()
}

func TestLabelInspect(t *testing.T) {
	infos := inspectLabels(t, "rp1.2.0.7_ci", "1.a", "v10")

	require.Len(t, infos, 3)
	assert.Equal(t, LabelInfo{
		Name: "rp1.2.0.7_ci", Valid: true, Prefix: "rp", Suffix: "_ci", Label: "1.2.0.7", Next: "1.2.0.8",
	}, infos[0])
	assert.False(t, infos[1].Valid)
	assert.Equal(t, "11", infos[2].Next)
}

func TestLabelPrefix(t *testing.T) {
	infos := inspectLabels(t, "--prefix", "", "1.2", "v1.2")
	assert.True(t, infos[0].Valid)
	assert.False(t, infos[1].Valid, "empty prefix only accepts labels starting with a digit")

	infos = inspectLabels(t, "--prefix=v", "1.2", "v1.2")
	assert.False(t, infos[0].Valid)
	assert.True(t, infos[1].Valid)
}

func TestLabelSort(t *testing.T) {
	infos := inspectLabels(t, "--sort", "x1.10", "bogus", "x1.2", "x1", "x1.2.0")

	var names []string
	for _, info := range infos {
		names = append(names, info.Name)
	}
	assert.Equal(t, []string{"x1", "x1.2", "x1.2.0", "x1.10", "bogus"}, names)
}

func TestLabelTableOutput(t *testing.T) {
	resetGlobals(t)
	var out bytes.Buffer
	cmd := NewLabelCommand(&out)
	require.NoError(t, cmd.ParseFlags([]string{"v1.2", "-1"}))
	require.NoError(t, cmd.Run(context.Background()))

	assert.Contains(t, out.String(), `prefix="v"`)
	assert.Contains(t, out.String(), "not a version label")
}

func TestLabelTableShowsHighest(t *testing.T) {
	resetGlobals(t)
	t.Setenv("NO_COLOR", "1")
	var out bytes.Buffer
	cmd := NewLabelCommand(&out)
	require.NoError(t, cmd.ParseFlags([]string{"x1.2", "x1.10", "bogus", "x1.9_rc"}))
	require.NoError(t, cmd.Run(context.Background()))

	assert.Contains(t, out.String(), "highest: x1.10\n")

	out.Reset()
	cmd = NewLabelCommand(&out)
	require.NoError(t, cmd.ParseFlags([]string{"x1.2"}))
	require.NoError(t, cmd.Run(context.Background()))
	assert.NotContains(t, out.String(), "highest")
}
