package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var planStamp = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func headedChain(t *testing.T) *Tree {
	t.Helper()
	tree := NewTree("main", DefaultMaxDepth)
	a := newBranch("a", "main")
	a.Head, a.Anchor = "aaa", "mmm"
	b := newBranch("b", "a")
	b.Head, b.Anchor = "bbb", "aaa"
	require.NoError(t, tree.Add(a))
	require.NoError(t, tree.Add(b))
	return tree
}

func TestPlanDeterminism(t *testing.T) {
	tree := headedChain(t)
	intent := Intent{Kind: IntentDelete, Branch: "a"}

	plan1, _, err := Compile(tree, intent)
	require.NoError(t, err)
	plan2, _, err := Compile(tree, intent)
	require.NoError(t, err)

	raw1, err := json.Marshal(plan1)
	require.NoError(t, err)
	raw2, err := json.Marshal(plan2)
	require.NoError(t, err)
	assert.Equal(t, raw1, raw2, "same intent against the same model must produce byte-identical plans")
}

func TestCompileDoesNotMutateInput(t *testing.T) {
	tree := headedChain(t)
	_, _, err := Compile(tree, Intent{Kind: IntentDelete, Branch: "a"})
	require.NoError(t, err)
	assert.True(t, tree.Tracked("a"))
	assert.Equal(t, "a", tree.Parent("b"))
}

func TestPlanCreateShape(t *testing.T) {
	tree := headedChain(t)
	plan, post, err := Compile(tree, Intent{Kind: IntentCreate, Branch: "c", Target: "b", CreatedAt: planStamp})
	require.NoError(t, err)

	require.Len(t, plan, 3)
	assert.Equal(t, StepCreateRef, plan[0].Kind)
	assert.Equal(t, "c", plan[0].Branch)
	assert.Equal(t, "b", plan[0].Target)
	assert.Equal(t, StepSetParent, plan[1].Kind)
	assert.Equal(t, StepCommitMetadata, plan[2].Kind)

	assert.Equal(t, "b", post.Parent("c"))
	assert.Equal(t, "bbb", post.Branches["c"].Head)
	assert.Equal(t, "bbb", post.Branches["c"].Anchor)
	require.NoError(t, post.Validate())
}

func TestPlanCreateRejectsCollision(t *testing.T) {
	tree := headedChain(t)
	_, _, err := Compile(tree, Intent{Kind: IntentCreate, Branch: "a", Target: "main", CreatedAt: planStamp})
	assert.Error(t, err)
	_, _, err = Compile(tree, Intent{Kind: IntentCreate, Branch: "main", Target: "main", CreatedAt: planStamp})
	assert.Error(t, err)
}

func TestPlanInsertBefore(t *testing.T) {
	tree := headedChain(t)
	plan, post, err := Compile(tree, Intent{Kind: IntentInsertBefore, Branch: "mid", Target: "b", CreatedAt: planStamp})
	require.NoError(t, err)

	assert.Equal(t, "a", post.Parent("mid"))
	assert.Equal(t, "mid", post.Parent("b"))
	assert.Equal(t, []string{"mid"}, post.Children("a"))
	assert.Equal(t, "aaa", post.Branches["mid"].Head, "new branch sits at the old parent head")
	require.NoError(t, post.Validate())

	// The subtree above the insertion point is restacked onto the new branch.
	var rebased []string
	for _, s := range plan {
		if s.Kind == StepRebase {
			rebased = append(rebased, s.Branch)
		}
	}
	assert.Equal(t, []string{"b"}, rebased)
	assert.Equal(t, StepCommitMetadata, plan[len(plan)-1].Kind)
}

func TestPlanDeleteReparentsAndOrdersSteps(t *testing.T) {
	tree := headedChain(t)
	tree.Branches["a"].PR = &PR{ID: 10, Base: "main"}
	tree.Branches["b"].PR = &PR{ID: 11, Base: "a"}

	plan, post, err := Compile(tree, Intent{Kind: IntentDelete, Branch: "a"})
	require.NoError(t, err)

	assert.False(t, post.Tracked("a"))
	assert.Equal(t, "main", post.Parent("b"))
	require.NoError(t, post.Validate())

	var kinds []StepKind
	for _, s := range plan {
		kinds = append(kinds, s.Kind)
	}
	// Child base updates must come before the deleted branch's PR closure.
	updateIdx, closeIdx, deleteIdx := -1, -1, -1
	for i, k := range kinds {
		switch k {
		case StepForgeUpdatePR:
			if updateIdx == -1 {
				updateIdx = i
			}
		case StepForgeClosePR:
			closeIdx = i
		case StepDeleteRef:
			deleteIdx = i
		}
	}
	require.NotEqual(t, -1, updateIdx)
	require.NotEqual(t, -1, closeIdx)
	require.NotEqual(t, -1, deleteIdx)
	assert.Less(t, updateIdx, closeIdx)
	assert.Less(t, closeIdx, deleteIdx)
	assert.Equal(t, StepCommitMetadata, kinds[len(kinds)-1])
}

func TestPlanDeletePreservesSiblingOrder(t *testing.T) {
	tree := NewTree("main", DefaultMaxDepth)
	p := newBranch("p", "main")
	require.NoError(t, tree.Add(p))
	require.NoError(t, tree.Add(newBranch("del", "p")))
	require.NoError(t, tree.Add(newBranch("after", "p")))
	require.NoError(t, tree.Add(newBranch("x", "del")))
	require.NoError(t, tree.Add(newBranch("y", "del")))

	_, post, err := Compile(tree, Intent{Kind: IntentDelete, Branch: "del"})
	require.NoError(t, err)
	// del's children slot into del's old position, before "after".
	assert.Equal(t, []string{"x", "y", "after"}, post.Children("p"))
	require.NoError(t, post.Validate())
}

func TestCreateThenDeleteRestoresTree(t *testing.T) {
	tree := headedChain(t)
	before, err := json.Marshal(treeShape(tree))
	require.NoError(t, err)

	_, mid, err := Compile(tree, Intent{Kind: IntentCreate, Branch: "tmp", Target: "b", CreatedAt: planStamp})
	require.NoError(t, err)
	_, after, err := Compile(mid, Intent{Kind: IntentDelete, Branch: "tmp"})
	require.NoError(t, err)

	got, err := json.Marshal(treeShape(after))
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(got))
}

// treeShape projects the fields that must round-trip (timestamps excluded).
func treeShape(t *Tree) map[string][2]string {
	shape := make(map[string][2]string, len(t.Branches))
	for name, b := range t.Branches {
		shape[name] = [2]string{b.Parent, b.Head}
	}
	return shape
}

func TestPlanRestackOrder(t *testing.T) {
	tree := NewTree("main", DefaultMaxDepth)
	require.NoError(t, tree.Add(newBranch("a", "main")))
	require.NoError(t, tree.Add(newBranch("b1", "a")))
	require.NoError(t, tree.Add(newBranch("b2", "a")))
	require.NoError(t, tree.Add(newBranch("c", "b1")))

	plan, _, err := Compile(tree, Intent{Kind: IntentRestack, Branch: "a"})
	require.NoError(t, err)

	var order []string
	for _, s := range plan {
		if s.Kind == StepRebase {
			order = append(order, s.Branch)
		}
	}
	// Parents before children, siblings in stored order.
	assert.Equal(t, []string{"a", "b1", "c", "b2"}, order)
}

func TestPlanRebaseCarriesAnchor(t *testing.T) {
	tree := headedChain(t)
	plan, _, err := Compile(tree, Intent{Kind: IntentRestack, Branch: "b"})
	require.NoError(t, err)
	require.Equal(t, StepRebase, plan[0].Kind)
	assert.Equal(t, "b", plan[0].Branch)
	assert.Equal(t, "a", plan[0].Target)
	assert.Equal(t, "aaa", plan[0].Upstream, "the recorded anchor is the upstream boundary")
}

func TestPlanLandRequiresBottom(t *testing.T) {
	tree := headedChain(t)
	tree.Branches["b"].PR = &PR{ID: 11}
	_, _, err := Compile(tree, Intent{Kind: IntentLand, Branch: "b"})
	assert.Error(t, err, "landing a non-bottom branch must be refused")
}

func TestPlanLandShape(t *testing.T) {
	tree := headedChain(t)
	tree.Branches["a"].PR = &PR{ID: 10, Base: "main"}
	tree.Branches["b"].PR = &PR{ID: 11, Base: "a"}

	plan, post, err := Compile(tree, Intent{Kind: IntentLand, Branch: "a", Mode: "squash"})
	require.NoError(t, err)

	assert.False(t, post.Tracked("a"))
	assert.Equal(t, "main", post.Parent("b"))
	require.NoError(t, post.Validate())

	require.Equal(t, StepForgeUpdatePR, plan[0].Kind)
	assert.Equal(t, "merged", plan[0].State)

	var sawBaseUpdate, sawRemoteDelete bool
	for _, s := range plan {
		if s.Kind == StepForgeUpdatePR && s.Branch == "b" && s.Target == "main" {
			sawBaseUpdate = true
		}
		if s.Kind == StepPush && s.State == "delete" {
			sawRemoteDelete = true
		}
	}
	assert.True(t, sawBaseUpdate, "child PR base must move to the landed branch's parent")
	assert.True(t, sawRemoteDelete)
}

func TestPlanSubmitShape(t *testing.T) {
	tree := headedChain(t)
	tree.Branches["a"].PR = &PR{ID: 10}
	plan, _, err := Compile(tree, Intent{Kind: IntentSubmit, Branches: []string{"a", "b"}})
	require.NoError(t, err)

	var kinds []StepKind
	for _, s := range plan {
		kinds = append(kinds, s.Kind)
	}
	assert.Equal(t, []StepKind{
		StepPush, StepForgeUpdatePR, StepUpdatePRBase,
		StepPush, StepForgeCreatePR, StepUpdatePRBase,
		StepCommitMetadata,
	}, kinds)
}

func TestPlanTouches(t *testing.T) {
	tree := headedChain(t)
	plan, _, err := Compile(tree, Intent{Kind: IntentRestack, Branch: "a"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b", "main"}, plan.Touches())
}
