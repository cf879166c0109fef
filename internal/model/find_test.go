package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findTree(t *testing.T, names ...string) *Tree {
	t.Helper()
	tree := NewTree("main", DefaultMaxDepth)
	for _, name := range names {
		require.NoError(t, tree.Add(newBranch(name, "main")))
	}
	return tree
}

func TestFindExactBeatsPrefix(t *testing.T) {
	tree := findTree(t, "feat", "feature-x")
	name, err := tree.Find("feat")
	require.NoError(t, err)
	assert.Equal(t, "feat", name)
}

func TestFindPrefixBeatsSubstring(t *testing.T) {
	tree := findTree(t, "feature-x", "my-feature")
	name, err := tree.Find("feat")
	require.NoError(t, err)
	assert.Equal(t, "feature-x", name)
}

func TestFindSubstring(t *testing.T) {
	tree := findTree(t, "my-feature", "bugfix")
	name, err := tree.Find("feat")
	require.NoError(t, err)
	assert.Equal(t, "my-feature", name)
}

func TestFindCaseInsensitive(t *testing.T) {
	tree := findTree(t, "Feature-X")
	name, err := tree.Find("feature-x")
	require.NoError(t, err)
	assert.Equal(t, "Feature-X", name)
}

func TestFindAmbiguousSurfacesAllMatches(t *testing.T) {
	tree := findTree(t, "feature-a", "feature-b")
	_, err := tree.Find("feature")
	var ambiguous *AmbiguousMatchError
	require.ErrorAs(t, err, &ambiguous)
	assert.ElementsMatch(t, []string{"feature-a", "feature-b"}, ambiguous.Matches)
}

func TestFindNoMatch(t *testing.T) {
	tree := findTree(t, "feature-a")
	_, err := tree.Find("zzz")
	assert.Error(t, err)
}
