package model

import (
	"fmt"
	"time"
)

// IntentKind names a user-level structural change.
type IntentKind string

const (
	IntentCreate       IntentKind = "create"
	IntentInsertBefore IntentKind = "insert-before"
	IntentInsertAfter  IntentKind = "insert-after"
	IntentDelete       IntentKind = "delete"
	IntentRename       IntentKind = "rename"
	IntentRestack      IntentKind = "restack"
	IntentLand         IntentKind = "land"
	IntentSubmit       IntentKind = "submit"
	IntentPush         IntentKind = "push"
	IntentMove         IntentKind = "move"
)

// Intent is a structural change requested by a CLI verb. Compilation into a
// Plan is pure and deterministic.
type Intent struct {
	Kind   IntentKind `json:"kind"`
	Branch string     `json:"branch,omitempty"`
	// Target depends on Kind: parent for create, the existing branch for
	// insert-before/after, the new name for rename, the destination branch
	// for move.
	Target string `json:"target,omitempty"`
	// Branches carries the explicit branch set for submit and push.
	Branches []string `json:"branches,omitempty"`
	// Mode is the land merge strategy (squash, merge, rebase).
	Mode  string `json:"mode,omitempty"`
	Force bool   `json:"force,omitempty"`
	Draft bool   `json:"draft,omitempty"`
	// NoEdit keeps PR titles as they stand on the forge instead of
	// refreshing them from the head commit subject.
	NoEdit bool `json:"no_edit,omitempty"`
	// CreatedAt stamps new branches so planning stays a pure function of
	// its inputs.
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// StepKind names one atomic step of a Plan.
type StepKind string

const (
	StepCreateRef      StepKind = "create-ref"
	StepDeleteRef      StepKind = "delete-ref"
	StepRenameRef      StepKind = "rename-ref"
	StepRebase         StepKind = "rebase"
	StepSetParent      StepKind = "set-parent"
	StepUpdatePRBase   StepKind = "update-pr-base"
	StepPush           StepKind = "push"
	StepForgeCreatePR  StepKind = "forge-create-pr"
	StepForgeUpdatePR  StepKind = "forge-update-pr"
	StepForgeClosePR   StepKind = "forge-close-pr"
	StepCommitMetadata StepKind = "commit-metadata"
)

// Step is one atomic, idempotent unit of work. Field meaning depends on
// Kind: Target is the base branch for create-ref, the new name for rename-ref,
// the new base branch for rebase/set-parent/update-pr-base/forge-update-pr.
// Upstream is the rebase boundary (the child's anchor; empty means fall back
// to the anchor annotated on the child's head commit, then to the merge
// base). State carries the requested PR state for
// forge-update-pr and "delete" for a remote ref removal push.
type Step struct {
	Kind     StepKind `json:"kind"`
	Branch   string   `json:"branch,omitempty"`
	Target   string   `json:"target,omitempty"`
	Upstream string   `json:"upstream,omitempty"`
	State    string   `json:"state,omitempty"`
	// PRID pins the forge id for steps whose branch leaves the tree before
	// the step runs (closing or merging a deleted branch's PR).
	PRID int `json:"pr_id,omitempty"`
}

// Plan is the ordered list of steps realizing an Intent.
type Plan []Step

// Touches returns the set of branch names a plan reads or writes.
func (p Plan) Touches() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	for _, s := range p {
		add(s.Branch)
		if s.Kind == StepRenameRef || s.Kind == StepSetParent || s.Kind == StepRebase {
			add(s.Target)
		}
	}
	return out
}

// Compile turns an Intent into a Plan against the given tree, returning the
// post-state tree alongside. The input tree is not modified. The same Intent
// against the same tree always yields the same Plan.
func Compile(t *Tree, intent Intent) (Plan, *Tree, error) {
	post := t.Clone()
	var plan Plan
	var err error
	switch intent.Kind {
	case IntentCreate:
		plan, err = planCreate(post, intent)
	case IntentInsertBefore:
		plan, err = planInsertBefore(post, intent)
	case IntentInsertAfter:
		plan, err = planInsertAfter(post, intent)
	case IntentDelete:
		plan, err = planDelete(post, intent)
	case IntentRename:
		plan, err = planRename(post, intent)
	case IntentRestack:
		plan, err = planRestack(post, intent)
	case IntentLand:
		plan, err = planLand(post, intent)
	case IntentSubmit:
		plan, err = planSubmit(post, intent)
	case IntentPush:
		plan, err = planPush(post, intent)
	case IntentMove:
		plan, err = planMove(post, intent)
	default:
		return nil, nil, fmt.Errorf("unknown intent kind '%s'", intent.Kind)
	}
	if err != nil {
		return nil, nil, err
	}
	return plan, post, nil
}

func planCreate(post *Tree, intent Intent) (Plan, error) {
	parent := intent.Target
	if parent == "" {
		parent = post.Trunk
	}
	if post.Tracked(intent.Branch) || intent.Branch == post.Trunk {
		return nil, fmt.Errorf("branch '%s' already exists in the stack", intent.Branch)
	}
	head := headOf(post, parent)
	if err := post.Add(&Branch{
		Name:      intent.Branch,
		Parent:    parent,
		Head:      head,
		Anchor:    head,
		CreatedAt: intent.CreatedAt,
	}); err != nil {
		return nil, err
	}
	return Plan{
		{Kind: StepCreateRef, Branch: intent.Branch, Target: parent},
		{Kind: StepSetParent, Branch: intent.Branch, Target: parent},
		{Kind: StepCommitMetadata},
	}, nil
}

func planInsertBefore(post *Tree, intent Intent) (Plan, error) {
	existing, ok := post.Branches[intent.Target]
	if !ok {
		return nil, fmt.Errorf("branch '%s' is not tracked", intent.Target)
	}
	if post.Tracked(intent.Branch) || intent.Branch == post.Trunk {
		return nil, fmt.Errorf("branch '%s' already exists in the stack", intent.Branch)
	}
	parent := existing.Parent
	position := childPosition(post, parent, existing.Name)
	head := headOf(post, parent)

	newBranch := &Branch{
		Name:      intent.Branch,
		Parent:    parent,
		Head:      head,
		Anchor:    head,
		CreatedAt: intent.CreatedAt,
	}
	post.Branches[intent.Branch] = newBranch
	if p, ok := post.Branches[parent]; ok {
		p.Children = append(p.Children[:position],
			append([]string{intent.Branch}, p.Children[position+1:]...)...)
	}
	if err := post.SetParent(existing.Name, intent.Branch, -1); err != nil {
		return nil, err
	}

	plan := Plan{
		{Kind: StepCreateRef, Branch: intent.Branch, Target: parent},
		{Kind: StepSetParent, Branch: intent.Branch, Target: parent},
		{Kind: StepSetParent, Branch: existing.Name, Target: intent.Branch},
	}
	plan = append(plan, restackSteps(post, existing.Name)...)
	plan = append(plan, Step{Kind: StepCommitMetadata})
	return plan, nil
}

func planInsertAfter(post *Tree, intent Intent) (Plan, error) {
	existing, ok := post.Branches[intent.Target]
	if !ok {
		return nil, fmt.Errorf("branch '%s' is not tracked", intent.Target)
	}
	if post.Tracked(intent.Branch) || intent.Branch == post.Trunk {
		return nil, fmt.Errorf("branch '%s' already exists in the stack", intent.Branch)
	}
	children := append([]string(nil), existing.Children...)
	head := existing.Head

	if err := post.Add(&Branch{
		Name:      intent.Branch,
		Parent:    existing.Name,
		Head:      head,
		Anchor:    head,
		CreatedAt: intent.CreatedAt,
	}); err != nil {
		return nil, err
	}
	plan := Plan{
		{Kind: StepCreateRef, Branch: intent.Branch, Target: existing.Name},
		{Kind: StepSetParent, Branch: intent.Branch, Target: existing.Name},
	}
	for _, child := range children {
		if err := post.SetParent(child, intent.Branch, -1); err != nil {
			return nil, err
		}
		plan = append(plan, Step{Kind: StepSetParent, Branch: child, Target: intent.Branch})
	}
	for _, child := range children {
		plan = append(plan, restackSteps(post, child)...)
	}
	plan = append(plan, Step{Kind: StepCommitMetadata})
	return plan, nil
}

func planDelete(post *Tree, intent Intent) (Plan, error) {
	b, ok := post.Branches[intent.Branch]
	if !ok {
		return nil, fmt.Errorf("branch '%s' is not tracked", intent.Branch)
	}
	parent := b.Parent
	children := append([]string(nil), b.Children...)
	position := childPosition(post, parent, b.Name)

	var plan Plan
	// Children slot in where the deleted branch sat, preserving their
	// relative order.
	for i, child := range children {
		pos := -1
		if position >= 0 {
			pos = position + 1 + i
		}
		if err := post.SetParent(child, parent, pos); err != nil {
			return nil, err
		}
		plan = append(plan, Step{Kind: StepSetParent, Branch: child, Target: parent})
	}
	for _, child := range children {
		plan = append(plan, restackSteps(post, child)...)
	}
	for _, child := range children {
		if c := post.Branches[child]; c.PR != nil {
			plan = append(plan,
				Step{Kind: StepUpdatePRBase, Branch: child, Target: parent},
				Step{Kind: StepForgeUpdatePR, Branch: child, Target: parent})
		}
	}
	if b.PR != nil {
		plan = append(plan, Step{Kind: StepForgeClosePR, Branch: b.Name, PRID: b.PR.ID})
	}
	plan = append(plan,
		Step{Kind: StepDeleteRef, Branch: b.Name},
		Step{Kind: StepCommitMetadata})
	post.Remove(b.Name)
	return plan, nil
}

func planRename(post *Tree, intent Intent) (Plan, error) {
	b, ok := post.Branches[intent.Branch]
	if !ok {
		return nil, fmt.Errorf("branch '%s' is not tracked", intent.Branch)
	}
	if post.Tracked(intent.Target) || intent.Target == post.Trunk {
		return nil, fmt.Errorf("branch '%s' already exists in the stack", intent.Target)
	}
	children := append([]string(nil), b.Children...)
	if err := post.Rename(intent.Branch, intent.Target); err != nil {
		return nil, err
	}
	plan := Plan{
		{Kind: StepRenameRef, Branch: intent.Branch, Target: intent.Target},
	}
	// Children's PRs point at the old name as their base.
	for _, child := range children {
		if c := post.Branches[child]; c.PR != nil {
			plan = append(plan,
				Step{Kind: StepUpdatePRBase, Branch: child, Target: intent.Target},
				Step{Kind: StepForgeUpdatePR, Branch: child, Target: intent.Target})
		}
	}
	plan = append(plan, Step{Kind: StepCommitMetadata})
	return plan, nil
}

func planRestack(post *Tree, intent Intent) (Plan, error) {
	if !post.Tracked(intent.Branch) {
		return nil, fmt.Errorf("branch '%s' is not tracked", intent.Branch)
	}
	plan := restackSteps(post, intent.Branch)
	plan = append(plan, Step{Kind: StepCommitMetadata})
	return plan, nil
}

func planLand(post *Tree, intent Intent) (Plan, error) {
	b, ok := post.Branches[intent.Branch]
	if !ok {
		return nil, fmt.Errorf("branch '%s' is not tracked", intent.Branch)
	}
	if b.PR == nil {
		return nil, fmt.Errorf("branch '%s' has no pull request to land", intent.Branch)
	}
	if post.Tracked(b.Parent) {
		return nil, fmt.Errorf("branch '%s' is not at the bottom of its stack; land '%s' first",
			b.Name, post.BottomOf(b.Name))
	}
	parent := b.Parent
	children := append([]string(nil), b.Children...)
	position := childPosition(post, parent, b.Name)

	plan := Plan{
		{Kind: StepForgeUpdatePR, Branch: b.Name, State: "merged", PRID: b.PR.ID},
	}
	for i, child := range children {
		pos := -1
		if position >= 0 {
			pos = position + 1 + i
		}
		if err := post.SetParent(child, parent, pos); err != nil {
			return nil, err
		}
		plan = append(plan, Step{Kind: StepSetParent, Branch: child, Target: parent})
	}
	for _, child := range children {
		plan = append(plan, restackSteps(post, child)...)
	}
	for _, child := range children {
		if c := post.Branches[child]; c.PR != nil {
			plan = append(plan,
				Step{Kind: StepUpdatePRBase, Branch: child, Target: parent},
				Step{Kind: StepForgeUpdatePR, Branch: child, Target: parent})
		}
	}
	plan = append(plan,
		Step{Kind: StepPush, Branch: b.Name, State: "delete"},
		Step{Kind: StepDeleteRef, Branch: b.Name},
		Step{Kind: StepCommitMetadata})
	post.Remove(b.Name)
	return plan, nil
}

func planSubmit(post *Tree, intent Intent) (Plan, error) {
	var plan Plan
	for _, name := range intent.Branches {
		b, ok := post.Branches[name]
		if !ok {
			return nil, fmt.Errorf("branch '%s' is not tracked", name)
		}
		plan = append(plan, Step{Kind: StepPush, Branch: name})
		if b.PR == nil {
			plan = append(plan, Step{Kind: StepForgeCreatePR, Branch: name, Target: b.Parent})
		} else {
			plan = append(plan, Step{Kind: StepForgeUpdatePR, Branch: name, Target: b.Parent})
		}
		plan = append(plan, Step{Kind: StepUpdatePRBase, Branch: name, Target: b.Parent})
	}
	plan = append(plan, Step{Kind: StepCommitMetadata})
	return plan, nil
}

func planPush(post *Tree, intent Intent) (Plan, error) {
	var plan Plan
	for _, name := range intent.Branches {
		if !post.Tracked(name) {
			return nil, fmt.Errorf("branch '%s' is not tracked", name)
		}
		plan = append(plan, Step{Kind: StepPush, Branch: name})
	}
	plan = append(plan, Step{Kind: StepCommitMetadata})
	return plan, nil
}

// planMove plans the restacking that follows a cross-branch commit move.
// The move session itself (cherry-pick onto the destination, drop from the
// source) is a single atomic step run by the engine before these steps.
func planMove(post *Tree, intent Intent) (Plan, error) {
	if !post.Tracked(intent.Branch) {
		return nil, fmt.Errorf("branch '%s' is not tracked", intent.Branch)
	}
	if !post.Tracked(intent.Target) {
		return nil, fmt.Errorf("branch '%s' is not tracked", intent.Target)
	}
	if intent.Branch == intent.Target {
		return nil, fmt.Errorf("source and destination branches are the same")
	}
	var plan Plan
	for _, child := range post.Children(intent.Branch) {
		plan = append(plan, restackSteps(post, child)...)
	}
	for _, child := range post.Children(intent.Target) {
		plan = append(plan, restackSteps(post, child)...)
	}
	plan = append(plan, Step{Kind: StepCommitMetadata})
	return plan, nil
}

// restackSteps emits a rebase for root and every descendant, each onto its
// parent, parents before children, siblings in stored order. The upstream
// boundary is the child's recorded anchor.
func restackSteps(post *Tree, root string) Plan {
	var plan Plan
	order := append([]string{root}, post.Descendants(root)...)
	for _, name := range order {
		b := post.Branches[name]
		plan = append(plan, Step{
			Kind:     StepRebase,
			Branch:   name,
			Target:   b.Parent,
			Upstream: b.Anchor,
		})
	}
	return plan
}

func childPosition(t *Tree, parent, child string) int {
	for i, c := range t.Children(parent) {
		if c == child {
			return i
		}
	}
	return -1
}

func headOf(t *Tree, name string) string {
	if b, ok := t.Branches[name]; ok {
		return b.Head
	}
	return ""
}
