package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/pancake-cli/pancake/internal/git"
	"github.com/pancake-cli/pancake/internal/journal"
	"github.com/pancake-cli/pancake/internal/model"
)

// Continue resumes the suspended operation: finish the in-progress rebase,
// then re-run the whole plan from its first step. Planning is
// deterministic, so the plan recompiled from the pre-state tree matches the
// journaled one exactly.
func (e *Engine) Continue(ctx context.Context) error {
	lock, err := e.Store.Acquire()
	if err != nil {
		return err
	}
	defer lock.Release()

	entry, err := e.Journal.Pending()
	if err != nil {
		return err
	}
	if entry == nil {
		return Usagef("no operation is in progress")
	}

	if e.Git.RebaseInProgress() {
		if err := e.Git.RebaseContinue(); err != nil {
			var conflict *git.ConflictError
			if errors.As(err, &conflict) {
				entry.Hint = fmt.Sprintf(
					"conflicts remain in %s; resolve and `git add` them, then run `pk %s --continue`",
					conflict.Branch, resumeVerb(entry.Intent.Kind))
				if appendErr := e.Journal.Append(entry); appendErr != nil {
					return appendErr
				}
				return &NeedsResolutionError{Branch: conflict.Branch, Paths: conflict.Paths, Hint: entry.Hint}
			}
			return err
		}
	}

	post, err := e.recompilePost(entry)
	if err != nil {
		return err
	}
	// Steps are idempotent, so the whole plan re-runs from the top: already
	// completed rebases reduce to head/anchor refreshes, which also brings
	// the recompiled tree's recorded heads back in line with the refs.
	entry.NextStep = 0
	entry.State = journal.StateOpen
	if err := e.Journal.Append(entry); err != nil {
		return err
	}
	return e.runPlan(ctx, entry, post)
}

// Abort rolls back the suspended operation: rebase-abort, branch heads back
// to their pre-images, metadata pre-image restored, journal entry discarded.
func (e *Engine) Abort() error {
	lock, err := e.Store.Acquire()
	if err != nil {
		return err
	}
	defer lock.Release()

	entry, err := e.Journal.Pending()
	if err != nil {
		return err
	}
	if entry == nil {
		return Usagef("no operation is in progress")
	}
	if err := e.Git.RebaseAbort(); err != nil {
		return err
	}
	if err := e.restoreHeads(entry.PreHeads); err != nil {
		return err
	}
	if err := e.Store.Restore(entry.PreMetadata); err != nil {
		return err
	}
	entry.State = journal.StateAborted
	return e.Journal.Append(entry)
}

// Undo reverses the last committed operation by applying its pre-image.
// Refused when a touched branch has newer commits on the remote, unless
// forced. One level only.
func (e *Engine) Undo(force bool) error {
	lock, err := e.Store.Acquire()
	if err != nil {
		return err
	}
	defer lock.Release()

	if pending, err := e.Journal.Pending(); err != nil {
		return err
	} else if pending != nil {
		return Usagef("an operation is in progress; use --continue or --abort first")
	}

	entry, err := e.Journal.LastCommitted()
	if err != nil {
		return err
	}
	if entry == nil {
		return Usagef("nothing to undo")
	}
	if !force {
		remote := e.Config.Repository.Remote
		for name, post := range entry.PostHeads {
			remoteHead := e.Git.RemoteHead(remote, name)
			if remoteHead != "" && post != "" && remoteHead != post && remoteHead != entry.PreHeads[name] {
				return Usagef("branch '%s' was pushed with a newer head since; use `pk undo --force` to override", name)
			}
		}
	}
	if err := e.restoreHeads(entry.PreHeads); err != nil {
		return err
	}
	if err := e.Store.Restore(entry.PreMetadata); err != nil {
		return err
	}
	entry.State = journal.StateUndone
	return e.Journal.Append(entry)
}

// Redo re-applies the most recently undone operation. It is only legal while
// that undo is still the newest journal entry: a later unrelated operation
// invalidates the recorded post-image.
func (e *Engine) Redo() error {
	lock, err := e.Store.Acquire()
	if err != nil {
		return err
	}
	defer lock.Release()

	entry, err := e.Journal.LastUndone()
	if err != nil {
		return err
	}
	if entry == nil {
		return Usagef("nothing to redo")
	}
	if err := e.restoreHeads(entry.PostHeads); err != nil {
		return err
	}
	if err := e.Store.Restore(entry.PostMetadata); err != nil {
		return err
	}
	entry.State = journal.StateCommitted
	return e.Journal.Append(entry)
}

// recompilePost rebuilds the post-state tree for a resumed entry. The
// metadata store still holds the pre-state (metadata commits last), so
// compiling the journaled intent against it reproduces the journaled plan.
func (e *Engine) recompilePost(entry *journal.Entry) (*model.Tree, error) {
	tree, err := e.Store.Load(e.Trunk(), e.Config.Stack.MaxDepth)
	if err != nil {
		return nil, err
	}
	_, post, err := model.Compile(tree, entry.Intent)
	if err != nil {
		return nil, fmt.Errorf("failed to recompile suspended operation: %w", err)
	}
	return post, nil
}
