package engine

import (
	"github.com/pancake-cli/pancake/internal/forge"
	"github.com/pancake-cli/pancake/internal/model"
)

// stackBlockFor renders the stack block for a branch's PR body: the sibling
// path from the top of its stack down to the stack bottom (the trunk itself
// is not listed), current branch marked.
func (e *Engine) stackBlockFor(post *model.Tree, branch string) string {
	return forge.RenderStackBlock(e.stackEntries(post, branch))
}

func (e *Engine) stackEntries(post *model.Tree, branch string) []forge.StackEntry {
	// Walk from the deepest descendant on branch's path down to the bottom.
	path := []string{}
	for name := post.TopOf(branch); name != ""; name = post.Parent(name) {
		if !post.Tracked(name) {
			break
		}
		path = append(path, name)
	}
	entries := make([]forge.StackEntry, 0, len(path))
	for _, name := range path {
		b := post.Branches[name]
		entry := forge.StackEntry{Branch: name, Current: name == branch}
		if b.PR != nil {
			entry.PRID = b.PR.ID
		}
		entries = append(entries, entry)
	}
	return entries
}

// spliceStackBlock fetches the PR's current body and rewrites only the
// fenced stack region, preserving human edits around it. If the body cannot
// be fetched the block alone is used.
func (e *Engine) spliceStackBlock(prID int, post *model.Tree, branch string) string {
	block := e.stackBlockFor(post, branch)
	body, err := e.Forge.GetPRBody(prID)
	if err != nil {
		return block
	}
	return forge.SpliceStackBlock(body, block)
}

func forgePRSpec(branch, base, title, body string, draft bool) forge.PRSpec {
	return forge.PRSpec{Branch: branch, Base: base, Title: title, Body: body, Draft: draft}
}

func forgeUpdate(state, mergeMode string) forge.PRUpdate {
	return forge.PRUpdate{State: &state, MergeMode: mergeMode}
}

func forgeBaseUpdate(base, body string) forge.PRUpdate {
	return forge.PRUpdate{Base: &base, Body: &body}
}
