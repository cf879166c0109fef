package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/pancake-cli/pancake/internal/model"
	"github.com/pancake-cli/pancake/internal/reconcile"
)

// MoveCommit moves the head commit of one tracked branch onto another. The
// cherry-pick/reset session is treated as one atomic step: it either
// completes, or the whole operation rolls back via pre-images. Both
// histories are rewritten, so both branches need a leased re-push on the
// next submit. Descendants of source and destination are restacked after.
func (e *Engine) MoveCommit(ctx context.Context, from, to string) error {
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
	if dirty, err := e.Git.HasUncommittedChanges(); err != nil {
		return err
	} else if dirty {
		return Usagef("cannot move commits with uncommitted changes; commit or stash first")
	}

	tree, err := e.LoadTree()
	if err != nil {
		return err
	}
	if _, err := reconcileTree(e, tree); err != nil {
		return err
	}

	intent := model.Intent{Kind: model.IntentMove, Branch: from, Target: to}
	plan, post, err := model.Compile(tree, intent)
	if err != nil {
		return err
	}

	srcHead, err := e.Git.ReadHead(from)
	if err != nil {
		return err
	}
	if count, err := e.Git.CommitCount(from, tree.Parent(from)); err != nil {
		return err
	} else if count == 0 {
		return Usagef("branch '%s' has no commits of its own to move", from)
	}

	entry, err := e.Journal.NewEntry(intent, plan)
	if err != nil {
		return err
	}
	if entry.PreMetadata, err = e.Store.Raw(); err != nil {
		return err
	}
	for _, name := range append(plan.Touches(), from, to) {
		if head, err := e.Git.ReadHead(name); err == nil {
			entry.PreHeads[name] = head
		}
	}
	entry.Hint = fmt.Sprintf("moving a commit from '%s' to '%s'", from, to)
	if err := e.Journal.Append(entry); err != nil {
		return err
	}

	// The atomic session: pick the commit onto the destination, drop it
	// from the source. A conflict rolls the whole operation back.
	if err := e.moveSession(from, to, srcHead); err != nil {
		return e.rollback(entry, err)
	}
	if b, ok := post.Branches[from]; ok {
		if head, err := e.Git.ReadHead(from); err == nil {
			b.Head = head
		}
	}
	if b, ok := post.Branches[to]; ok {
		if head, err := e.Git.ReadHead(to); err == nil {
			b.Head = head
		}
	}
	return e.runPlan(ctx, entry, post)
}

func (e *Engine) moveSession(from, to, commit string) error {
	original, err := e.Git.CurrentBranch()
	if err != nil {
		return err
	}
	if err := e.Git.Checkout(to); err != nil {
		return err
	}
	if err := e.Git.CherryPick(commit); err != nil {
		return err
	}
	if err := e.Git.Checkout(from); err != nil {
		return err
	}
	if err := e.Git.ResetHard(commit + "^"); err != nil {
		return err
	}
	if original != from && original != to {
		if err := e.Git.Checkout(original); err != nil {
			return err
		}
	}
	return nil
}

// reconcileTree runs the reconciler and fails on drift that blocks any
// tracked branch.
func reconcileTree(e *Engine, tree *model.Tree) (bool, error) {
	report, err := reconcile.Run(e.Git, tree, e.Journal)
	if err != nil {
		return false, err
	}
	if blocking := report.Blocking(tree.Names()); len(blocking) > 0 {
		var details []string
		for _, d := range blocking {
			details = append(details, d.String())
		}
		return false, &StackInconsistentError{Details: strings.Join(details, "; ")}
	}
	return report.Repaired, nil
}
