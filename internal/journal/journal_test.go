package journal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pancake-cli/pancake/internal/model"
)

func tempJournal(t *testing.T) *Journal {
	t.Helper()
	return Open(t.TempDir())
}

func sampleIntent() model.Intent {
	return model.Intent{Kind: model.IntentRestack, Branch: "feat-a"}
}

func samplePlan() model.Plan {
	return model.Plan{
		{Kind: model.StepRebase, Branch: "feat-a", Target: "main"},
		{Kind: model.StepCommitMetadata},
	}
}

func TestNewEntrySequences(t *testing.T) {
	j := tempJournal(t)

	e1, err := j.NewEntry(sampleIntent(), samplePlan())
	require.NoError(t, err)
	assert.Equal(t, 1, e1.Seq)
	require.NoError(t, j.Append(e1))

	e2, err := j.NewEntry(sampleIntent(), samplePlan())
	require.NoError(t, err)
	assert.Equal(t, 2, e2.Seq)
	assert.NotEqual(t, e1.ID, e2.ID)
}

func TestLatestVersionWinsOnReplay(t *testing.T) {
	j := tempJournal(t)
	e, err := j.NewEntry(sampleIntent(), samplePlan())
	require.NoError(t, err)
	require.NoError(t, j.Append(e))

	e.NextStep = 1
	e.State = StateSuspended
	require.NoError(t, j.Append(e))

	entries, err := j.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, StateSuspended, entries[0].State)
	assert.Equal(t, 1, entries[0].NextStep)
}

func TestPendingFindsSuspendedEntry(t *testing.T) {
	j := tempJournal(t)
	e, err := j.NewEntry(sampleIntent(), samplePlan())
	require.NoError(t, err)
	e.State = StateSuspended
	require.NoError(t, j.Append(e))

	pending, err := j.Pending()
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.Equal(t, e.ID, pending.ID)

	e.State = StateCommitted
	require.NoError(t, j.Append(e))
	pending, err = j.Pending()
	require.NoError(t, err)
	assert.Nil(t, pending)
}

func TestLastCommittedSkipsAborted(t *testing.T) {
	j := tempJournal(t)

	committed, err := j.NewEntry(sampleIntent(), samplePlan())
	require.NoError(t, err)
	committed.State = StateCommitted
	require.NoError(t, j.Append(committed))

	aborted, err := j.NewEntry(sampleIntent(), samplePlan())
	require.NoError(t, err)
	aborted.State = StateAborted
	require.NoError(t, j.Append(aborted))

	last, err := j.LastCommitted()
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, committed.ID, last.ID)
}

func TestLastUndoneOnlyWhenNewest(t *testing.T) {
	j := tempJournal(t)

	undone, err := j.NewEntry(sampleIntent(), samplePlan())
	require.NoError(t, err)
	undone.State = StateUndone
	require.NoError(t, j.Append(undone))

	got, err := j.LastUndone()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, undone.ID, got.ID)

	// A later operation invalidates redo.
	newer, err := j.NewEntry(sampleIntent(), samplePlan())
	require.NoError(t, err)
	newer.State = StateCommitted
	require.NoError(t, j.Append(newer))

	got, err = j.LastUndone()
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestInvolves(t *testing.T) {
	e := &Entry{Plan: samplePlan()}
	assert.True(t, e.Involves("feat-a"))
	assert.True(t, e.Involves("main"))
	assert.False(t, e.Involves("feat-b"))
}

func TestEmptyJournal(t *testing.T) {
	j := tempJournal(t)
	entries, err := j.Entries()
	require.NoError(t, err)
	assert.Empty(t, entries)
	pending, err := j.Pending()
	require.NoError(t, err)
	assert.Nil(t, pending)
}
