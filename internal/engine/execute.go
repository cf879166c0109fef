package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pancake-cli/pancake/internal/git"
	"github.com/pancake-cli/pancake/internal/journal"
	"github.com/pancake-cli/pancake/internal/model"
)

// runPlan executes the steps of a journal entry from entry.NextStep onward
// against the post-state tree. Steps are idempotent, so Continue re-runs the
// whole plan from step 0 and the steps already done reduce to refreshes.
func (e *Engine) runPlan(ctx context.Context, entry *journal.Entry, post *model.Tree) error {
	for i := entry.NextStep; i < len(entry.Plan); i++ {
		if ctx != nil && ctx.Err() != nil {
			return e.rollback(entry, fmt.Errorf("interrupted"))
		}
		step := entry.Plan[i]
		if err := e.runStep(entry, post, step); err != nil {
			var conflict *git.ConflictError
			if errors.As(err, &conflict) {
				entry.NextStep = i
				entry.State = journal.StateSuspended
				entry.Hint = fmt.Sprintf(
					"resolve the conflicts in %s, `git add` the files, then run `pk %s --continue` (or `pk %s --abort`)",
					conflict.Branch, resumeVerb(entry.Intent.Kind), resumeVerb(entry.Intent.Kind))
				if appendErr := e.Journal.Append(entry); appendErr != nil {
					return appendErr
				}
				return &NeedsResolutionError{Branch: conflict.Branch, Paths: conflict.Paths, Hint: entry.Hint}
			}
			var diverged *git.DivergedError
			if errors.As(err, &diverged) {
				e.markAborted(entry)
				return &RemoteDivergedError{Branch: diverged.Branch}
			}
			return e.rollback(entry, err)
		}
		entry.NextStep = i + 1
		if err := e.Journal.Append(entry); err != nil {
			return err
		}
	}

	entry.State = journal.StateCommitted
	entry.PostHeads = make(map[string]string, len(entry.PreHeads))
	for name := range entry.PreHeads {
		if head, err := e.Git.ReadHead(name); err == nil {
			entry.PostHeads[name] = head
		} else {
			entry.PostHeads[name] = ""
		}
	}
	var err error
	if entry.PostMetadata, err = e.Store.Raw(); err != nil {
		return err
	}
	return e.Journal.Append(entry)
}

func (e *Engine) runStep(entry *journal.Entry, post *model.Tree, step model.Step) error {
	switch step.Kind {
	case model.StepCreateRef:
		return e.stepCreateRef(post, step)
	case model.StepDeleteRef:
		return e.stepDeleteRef(step)
	case model.StepRenameRef:
		return e.stepRenameRef(step)
	case model.StepRebase:
		return e.stepRebase(post, step)
	case model.StepSetParent, model.StepUpdatePRBase:
		// Metadata-only: already encoded in the post-state tree.
		if step.Kind == model.StepUpdatePRBase {
			if b, ok := post.Branches[step.Branch]; ok && b.PR != nil {
				b.PR.Base = step.Target
			}
		}
		return nil
	case model.StepPush:
		return e.stepPush(post, step)
	case model.StepForgeCreatePR:
		return e.stepForgeCreatePR(entry, post, step)
	case model.StepForgeUpdatePR:
		return e.stepForgeUpdatePR(entry, post, step)
	case model.StepForgeClosePR:
		return e.stepForgeClosePR(post, step)
	case model.StepCommitMetadata:
		if err := e.Store.Save(post); err != nil {
			return err
		}
		return e.Store.MirrorNotes(e.Git, post)
	default:
		return fmt.Errorf("unknown step kind '%s'", step.Kind)
	}
}

func (e *Engine) stepCreateRef(post *model.Tree, step model.Step) error {
	if e.Git.BranchExists(step.Branch) {
		return nil // resumed after the ref was already created
	}
	baseHead, err := e.Git.ReadHead(step.Target)
	if err != nil {
		return err
	}
	if err := e.Git.CreateBranch(step.Branch, baseHead); err != nil {
		return err
	}
	if b, ok := post.Branches[step.Branch]; ok {
		b.Head = baseHead
		b.Anchor = baseHead
	}
	return nil
}

func (e *Engine) stepDeleteRef(step model.Step) error {
	if !e.Git.BranchExists(step.Branch) {
		return nil
	}
	current, err := e.Git.CurrentBranch()
	if err == nil && current == step.Branch {
		if err := e.Git.Checkout(e.Trunk()); err != nil {
			return err
		}
	}
	return e.Git.DeleteBranch(step.Branch, true)
}

func (e *Engine) stepRenameRef(step model.Step) error {
	if !e.Git.BranchExists(step.Branch) && e.Git.BranchExists(step.Target) {
		return nil // resumed after the rename already happened
	}
	return e.Git.RenameBranch(step.Branch, step.Target)
}

func (e *Engine) stepRebase(post *model.Tree, step model.Step) error {
	b, ok := post.Branches[step.Branch]
	if !ok {
		return fmt.Errorf("rebase step names untracked branch '%s'", step.Branch)
	}
	parentHead, err := e.Git.ReadHead(step.Target)
	if err != nil {
		return err
	}
	branchRef := "refs/heads/" + step.Branch
	upstream := step.Upstream
	if upstream == "" {
		// A cleared anchor falls back to the one mirrored on the branch's
		// current head commit, as long as it still names this parent.
		if head, err := e.Git.ReadHead(step.Branch); err == nil {
			if note, _ := e.Git.ReadNote(head); note != nil && note.Branch == step.Branch &&
				note.Parent == step.Target && note.Anchor != "" && e.Git.IsAncestor(note.Anchor, head) {
				upstream = note.Anchor
			}
		}
	}
	if e.Git.IsAncestor(parentHead, branchRef) &&
		(upstream == "" || !e.Git.IsAncestor(upstream, branchRef) || e.Git.IsAncestor(upstream, parentHead)) {
		// Already sitting on the parent's head with no commits of an old
		// parent left to drop; just advance the anchor.
		head, err := e.Git.ReadHead(step.Branch)
		if err != nil {
			return err
		}
		b.Head = head
		b.Anchor = parentHead
		return nil
	}
	if upstream == "" {
		if upstream, err = e.Git.MergeBase(parentHead, branchRef); err != nil {
			return err
		}
	}
	fmt.Println("DEBUG rebase", step.Branch, "onto", parentHead, "upstream", upstream)
	if err := e.Git.RebaseOnto(step.Branch, parentHead, upstream); err != nil {
		return err
	}
	head, err := e.Git.ReadHead(step.Branch)
	if err != nil {
		return err
	}
	b.Head = head
	b.Anchor = parentHead
	return nil
}

func (e *Engine) stepPush(post *model.Tree, step model.Step) error {
	remote := e.Config.Repository.Remote
	if step.State == "delete" {
		if e.Git.RemoteHead(remote, step.Branch) == "" {
			return nil
		}
		return e.Git.DeleteRemoteBranch(remote, step.Branch)
	}
	b, ok := post.Branches[step.Branch]
	if !ok {
		return fmt.Errorf("push step names untracked branch '%s'", step.Branch)
	}
	expected := e.Git.RemoteHead(remote, step.Branch)
	if b.PR != nil && b.PR.Head != "" {
		expected = b.PR.Head
	}
	head, err := e.Git.ReadHead(step.Branch)
	if err != nil {
		return err
	}
	if expected == head {
		return nil // remote already has this head
	}
	if err := e.Git.PushWithLease(remote, step.Branch, expected); err != nil {
		return err
	}
	if b.PR != nil {
		b.PR.Head = head
	}
	b.Head = head
	return nil
}

func (e *Engine) stepForgeCreatePR(entry *journal.Entry, post *model.Tree, step model.Step) error {
	b, ok := post.Branches[step.Branch]
	if !ok {
		return fmt.Errorf("create-pr step names untracked branch '%s'", step.Branch)
	}
	if b.PR != nil && b.PR.ID != 0 {
		return nil // resumed after the PR was created
	}
	title, err := e.Git.CommitSubject("refs/heads/" + step.Branch)
	if err != nil {
		return err
	}
	draft := entry.Intent.Draft || e.Config.PR.DraftByDefault
	body := e.stackBlockFor(post, step.Branch)
	info, err := e.Forge.CreatePR(forgePRSpec(step.Branch, step.Target, title, body, draft))
	if err != nil {
		return err
	}
	head, err := e.Git.ReadHead(step.Branch)
	if err != nil {
		return err
	}
	b.PR = &model.PR{
		ID:        info.ID,
		URL:       info.URL,
		Base:      step.Target,
		Head:      head,
		Draft:     draft,
		Status:    info.State,
		FetchedAt: time.Now(),
	}
	return nil
}

func (e *Engine) stepForgeUpdatePR(entry *journal.Entry, post *model.Tree, step model.Step) error {
	b := post.Branches[step.Branch] // nil once the branch has left the tree
	id := step.PRID
	if b != nil && b.PR != nil && b.PR.ID != 0 {
		id = b.PR.ID
	}
	if id == 0 {
		return nil
	}
	if step.State == "merged" {
		if status, err := e.Forge.GetPRStatus(id); err == nil && status.Merged {
			return nil // resumed after the merge
		}
		state := "merged"
		return e.Forge.UpdatePR(id, forgeUpdate(state, entry.Intent.Mode))
	}
	if b == nil || b.PR == nil {
		return nil
	}
	base := step.Target
	body := e.spliceStackBlock(b.PR.ID, post, step.Branch)
	upd := forgeBaseUpdate(base, body)
	if entry.Intent.Kind == model.IntentSubmit && !entry.Intent.NoEdit {
		if title, err := e.Git.CommitSubject("refs/heads/" + step.Branch); err == nil {
			upd.Title = &title
		}
	}
	if err := e.Forge.UpdatePR(b.PR.ID, upd); err != nil {
		return err
	}
	b.PR.Base = base
	return nil
}

func (e *Engine) stepForgeClosePR(post *model.Tree, step model.Step) error {
	id := step.PRID
	if b, ok := post.Branches[step.Branch]; ok && b.PR != nil && b.PR.ID != 0 {
		id = b.PR.ID
	}
	if id == 0 {
		return nil
	}
	state := "closed"
	if status, err := e.Forge.GetPRStatus(id); err == nil && (status.Closed || status.Merged) {
		return nil
	}
	return e.Forge.UpdatePR(id, forgeUpdate(state, ""))
}

// rollback rewinds an open entry: abort any rebase in progress, restore the
// branch-head pre-images, restore the metadata pre-image, and mark the entry
// aborted. The original error is returned.
func (e *Engine) rollback(entry *journal.Entry, cause error) error {
	if err := e.Git.RebaseAbort(); err != nil {
		return fmt.Errorf("%v (and rebase abort failed: %w)", cause, err)
	}
	if err := e.restoreHeads(entry.PreHeads); err != nil {
		return fmt.Errorf("%v (and head restore failed: %w)", cause, err)
	}
	if err := e.Store.Restore(entry.PreMetadata); err != nil {
		return fmt.Errorf("%v (and metadata restore failed: %w)", cause, err)
	}
	e.markAborted(entry)
	return cause
}

func (e *Engine) markAborted(entry *journal.Entry) {
	entry.State = journal.StateAborted
	_ = e.Journal.Append(entry)
}

// restoreHeads resets branches to recorded heads. An empty recorded head
// means the branch did not exist and is deleted; a missing branch with a
// recorded head is recreated.
func (e *Engine) restoreHeads(heads map[string]string) error {
	current, _ := e.Git.CurrentBranch()
	for name, head := range heads {
		if head == "" {
			if e.Git.BranchExists(name) {
				if current == name {
					if err := e.Git.Checkout(e.Trunk()); err != nil {
						return err
					}
				}
				if err := e.Git.DeleteBranch(name, true); err != nil {
					return err
				}
			}
			continue
		}
		if !e.Git.BranchExists(name) {
			if err := e.Git.CreateBranch(name, head); err != nil {
				return err
			}
			continue
		}
		if current == name {
			if err := e.Git.ResetHard(head); err != nil {
				return err
			}
			continue
		}
		if err := e.Git.UpdateRef(name, head); err != nil {
			return err
		}
	}
	return nil
}
