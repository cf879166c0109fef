package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBranch(name, parent string) *Branch {
	return &Branch{Name: name, Parent: parent, CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

// buildChain makes main <- a <- b <- c
func buildChain(t *testing.T) *Tree {
	t.Helper()
	tree := NewTree("main", DefaultMaxDepth)
	require.NoError(t, tree.Add(newBranch("a", "main")))
	require.NoError(t, tree.Add(newBranch("b", "a")))
	require.NoError(t, tree.Add(newBranch("c", "b")))
	return tree
}

func TestNavigation(t *testing.T) {
	tree := buildChain(t)
	require.NoError(t, tree.Add(newBranch("b2", "a")))

	assert.Equal(t, "a", tree.Parent("b"))
	assert.Equal(t, []string{"b", "b2"}, tree.Children("a"))
	assert.Equal(t, []string{"b2"}, tree.Siblings("b"))
	assert.Equal(t, []string{"b", "a"}, tree.Ancestors("c"))
	assert.Equal(t, []string{"b", "c", "b2"}, tree.Descendants("a"))
	assert.Equal(t, "c", tree.TopOf("a"), "first sibling path wins")
	assert.Equal(t, "a", tree.BottomOf("c"))
	assert.Equal(t, 3, tree.Depth("c"))
	assert.Equal(t, []string{"a"}, tree.Roots())
}

func TestTrunkChildrenAreSorted(t *testing.T) {
	tree := NewTree("main", DefaultMaxDepth)
	require.NoError(t, tree.Add(newBranch("zeta", "main")))
	require.NoError(t, tree.Add(newBranch("alpha", "main")))
	assert.Equal(t, []string{"alpha", "zeta"}, tree.Children("main"))
}

func TestAddRejectsDuplicatesAndTrunk(t *testing.T) {
	tree := buildChain(t)
	assert.Error(t, tree.Add(newBranch("a", "main")))
	assert.Error(t, tree.Add(newBranch("main", "main")))
}

func TestRemoveDetachesFromParent(t *testing.T) {
	tree := buildChain(t)
	tree.Remove("b")
	assert.Empty(t, tree.Children("a"))
	assert.False(t, tree.Tracked("b"))
}

func TestSetParentPosition(t *testing.T) {
	tree := NewTree("main", DefaultMaxDepth)
	require.NoError(t, tree.Add(newBranch("p", "main")))
	require.NoError(t, tree.Add(newBranch("x", "p")))
	require.NoError(t, tree.Add(newBranch("y", "p")))
	require.NoError(t, tree.Add(newBranch("z", "main")))

	require.NoError(t, tree.SetParent("z", "p", 1))
	assert.Equal(t, []string{"x", "z", "y"}, tree.Children("p"))
	require.NoError(t, tree.Validate())
}

func TestRenameRewires(t *testing.T) {
	tree := buildChain(t)
	require.NoError(t, tree.Rename("b", "b-new"))
	assert.Equal(t, []string{"b-new"}, tree.Children("a"))
	assert.Equal(t, "b-new", tree.Parent("c"))
	require.NoError(t, tree.Validate())
}

func TestValidateDetectsCycle(t *testing.T) {
	tree := buildChain(t)
	tree.Branches["a"].Parent = "c" // a -> c -> b -> a
	assert.Error(t, tree.Validate())
}

func TestValidateDetectsUnrootedBranch(t *testing.T) {
	tree := buildChain(t)
	tree.Branches["a"].Parent = "nowhere"
	assert.Error(t, tree.Validate())
}

func TestValidateDetectsChildListMismatch(t *testing.T) {
	tree := buildChain(t)
	tree.Branches["a"].Children = nil // b still claims a as parent
	assert.Error(t, tree.Validate())
}

func TestValidateDepthLimit(t *testing.T) {
	tree := NewTree("main", 2)
	require.NoError(t, tree.Add(newBranch("a", "main")))
	require.NoError(t, tree.Add(newBranch("b", "a")))
	require.NoError(t, tree.Validate())

	require.NoError(t, tree.Add(newBranch("c", "b")))
	err := tree.Validate()
	require.Error(t, err)
	var depthErr *DepthExceededError
	assert.ErrorAs(t, err, &depthErr)
}

func TestCloneIsDeep(t *testing.T) {
	tree := buildChain(t)
	dup := tree.Clone()
	dup.Branches["a"].Parent = "elsewhere"
	dup.Branches["a"].Children = append(dup.Branches["a"].Children, "extra")
	assert.Equal(t, "main", tree.Parent("a"))
	assert.Equal(t, []string{"b"}, tree.Children("a"))
}
