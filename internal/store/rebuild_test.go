package store_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pancake-cli/pancake/internal/git"
	"github.com/pancake-cli/pancake/internal/model"
	"github.com/pancake-cli/pancake/internal/store"
	"github.com/pancake-cli/pancake/internal/testutil"
)

func TestRebuildFromNotes(t *testing.T) {
	client := testutil.NewTestRepo(t)
	head, err := client.ReadHead("main")
	require.NoError(t, err)
	require.NoError(t, client.CreateBranch("feat-a", head))
	testutil.Checkout(t, client, "feat-a")
	headA := testutil.WriteAndCommit(t, client, "a.txt", "a\n", "a")
	require.NoError(t, client.CreateBranch("feat-b", headA))
	testutil.Checkout(t, client, "feat-b")
	headB := testutil.WriteAndCommit(t, client, "b.txt", "b\n", "b")

	tree := model.NewTree("main", model.DefaultMaxDepth)
	require.NoError(t, tree.Add(&model.Branch{Name: "feat-a", Parent: "main", Head: headA, Anchor: head}))
	require.NoError(t, tree.Add(&model.Branch{Name: "feat-b", Parent: "feat-a", Head: headB, Anchor: headA}))

	s := store.New(client.GitRoot())
	require.NoError(t, s.MirrorNotes(client, tree))

	// Simulate a clone that lost .pancake/: rebuild from annotations alone.
	rebuilt, err := store.RebuildFromNotes(client, "main", model.DefaultMaxDepth)
	require.NoError(t, err)
	require.NoError(t, rebuilt.Validate())
	assert.Equal(t, "main", rebuilt.Parent("feat-a"))
	assert.Equal(t, "feat-a", rebuilt.Parent("feat-b"))
	assert.Equal(t, headA, rebuilt.Branches["feat-a"].Head)
	assert.Equal(t, head, rebuilt.Branches["feat-a"].Anchor)
	assert.Equal(t, []string{"feat-b"}, rebuilt.Children("feat-a"))
}

func TestRebuildResetsAnchorWhenHeadMoved(t *testing.T) {
	client := testutil.NewTestRepo(t)
	head, err := client.ReadHead("main")
	require.NoError(t, err)
	require.NoError(t, client.CreateBranch("feat-a", head))
	testutil.Checkout(t, client, "feat-a")
	headA := testutil.WriteAndCommit(t, client, "a.txt", "a\n", "a")

	tree := model.NewTree("main", model.DefaultMaxDepth)
	require.NoError(t, tree.Add(&model.Branch{Name: "feat-a", Parent: "main", Head: headA, Anchor: head}))
	s := store.New(client.GitRoot())
	require.NoError(t, s.MirrorNotes(client, tree))

	// The branch moves after the note was written: the annotation is stale.
	testutil.WriteAndCommit(t, client, "a2.txt", "a2\n", "a2")

	rebuilt, err := store.RebuildFromNotes(client, "main", model.DefaultMaxDepth)
	require.NoError(t, err)
	require.True(t, rebuilt.Tracked("feat-a"))
	assert.Empty(t, rebuilt.Branches["feat-a"].Anchor, "a stale annotation recovers the parent but resets the anchor")
	assert.Equal(t, "main", rebuilt.Parent("feat-a"))
}

func TestRebuildSkipsDeletedBranches(t *testing.T) {
	client := testutil.NewTestRepo(t)
	head, err := client.ReadHead("main")
	require.NoError(t, err)
	require.NoError(t, client.WriteNote(head, git.Note{Branch: "gone", Parent: "main", Anchor: head}))

	rebuilt, err := store.RebuildFromNotes(client, "main", model.DefaultMaxDepth)
	require.NoError(t, err)
	assert.False(t, rebuilt.Tracked("gone"))
}
