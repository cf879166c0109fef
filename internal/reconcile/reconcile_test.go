package reconcile_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pancake-cli/pancake/internal/git"
	"github.com/pancake-cli/pancake/internal/journal"
	"github.com/pancake-cli/pancake/internal/model"
	"github.com/pancake-cli/pancake/internal/reconcile"
	"github.com/pancake-cli/pancake/internal/testutil"
)

func trackedTree(t *testing.T, client *git.Client) *model.Tree {
	t.Helper()
	head, err := client.ReadHead("main")
	require.NoError(t, err)
	require.NoError(t, client.CreateBranch("feat-a", head))
	require.NoError(t, client.CreateBranch("feat-b", head))

	tree := model.NewTree("main", model.DefaultMaxDepth)
	require.NoError(t, tree.Add(&model.Branch{Name: "feat-a", Parent: "main", Head: head, Anchor: head}))
	require.NoError(t, tree.Add(&model.Branch{Name: "feat-b", Parent: "feat-a", Head: head, Anchor: head}))
	return tree
}

func TestCleanTreeReportsNothing(t *testing.T) {
	client := testutil.NewTestRepo(t)
	tree := trackedTree(t, client)
	j := journal.Open(t.TempDir())

	report, err := reconcile.Run(client, tree, j)
	require.NoError(t, err)
	assert.Empty(t, report.Drifts)
	assert.False(t, report.Repaired)
}

func TestMissingRefBecomesOrphan(t *testing.T) {
	client := testutil.NewTestRepo(t)
	tree := trackedTree(t, client)
	require.NoError(t, client.DeleteBranch("feat-b", true))
	j := journal.Open(t.TempDir())

	report, err := reconcile.Run(client, tree, j)
	require.NoError(t, err)
	require.Len(t, report.Drifts, 1)
	assert.Equal(t, reconcile.KindOrphan, report.Drifts[0].Kind)
	assert.Equal(t, "feat-b", report.Drifts[0].Branch)

	blocking := report.Blocking([]string{"feat-b"})
	assert.Len(t, blocking, 1)
	assert.Empty(t, report.Blocking([]string{"feat-a"}), "orphans only block operations touching them")
}

func TestMissingRefDeferredWhenJournalOwnsIt(t *testing.T) {
	client := testutil.NewTestRepo(t)
	tree := trackedTree(t, client)
	require.NoError(t, client.DeleteBranch("feat-b", true))

	j := journal.Open(t.TempDir())
	entry, err := j.NewEntry(
		model.Intent{Kind: model.IntentDelete, Branch: "feat-b"},
		model.Plan{{Kind: model.StepDeleteRef, Branch: "feat-b"}},
	)
	require.NoError(t, err)
	entry.State = journal.StateSuspended
	require.NoError(t, j.Append(entry))

	report, err := reconcile.Run(client, tree, j)
	require.NoError(t, err)
	assert.Empty(t, report.Drifts, "refs owned by an in-flight operation are deferred")
}

func TestMovedHeadIsRepairedAndChildAnchorsInvalidated(t *testing.T) {
	client := testutil.NewTestRepo(t)
	tree := trackedTree(t, client)

	// Move feat-a behind pancake's back.
	testutil.Checkout(t, client, "feat-a")
	newHead := testutil.WriteAndCommit(t, client, "a.txt", "a\n", "External commit")

	j := journal.Open(t.TempDir())
	report, err := reconcile.Run(client, tree, j)
	require.NoError(t, err)

	require.Len(t, report.Drifts, 1)
	assert.Equal(t, reconcile.KindMovedHead, report.Drifts[0].Kind)
	assert.True(t, report.Repaired)
	assert.Equal(t, newHead, tree.Branches["feat-a"].Head, "local refs are trusted")
	assert.Empty(t, tree.Branches["feat-b"].Anchor, "children must be restacked from a fresh boundary")
}

func TestRemoteBaseDriftQueued(t *testing.T) {
	client := testutil.NewTestRepo(t)
	tree := trackedTree(t, client)
	tree.Branches["feat-b"].PR = &model.PR{ID: 5, Base: "main"} // parent is feat-a

	j := journal.Open(t.TempDir())
	report, err := reconcile.Run(client, tree, j)
	require.NoError(t, err)
	require.Len(t, report.Drifts, 1)
	assert.Equal(t, reconcile.KindRemoteBase, report.Drifts[0].Kind)
	assert.Empty(t, report.Blocking(tree.Names()), "base drift never blocks; submit repairs it")
}

func TestUntrackedRespectsPrefix(t *testing.T) {
	client := testutil.NewTestRepo(t)
	tree := trackedTree(t, client)
	head, err := client.ReadHead("main")
	require.NoError(t, err)
	require.NoError(t, client.CreateBranch("pk/new-thing", head))
	require.NoError(t, client.CreateBranch("scratch", head))

	matched, err := reconcile.Untracked(client, tree, "pk/")
	require.NoError(t, err)
	assert.Equal(t, []string{"pk/new-thing"}, matched)

	all, err := reconcile.Untracked(client, tree, "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"pk/new-thing", "scratch"}, all)
}
