package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/pancake-cli/pancake/internal/config"
	"github.com/pancake-cli/pancake/internal/forge"
	"github.com/pancake-cli/pancake/internal/git"
	"github.com/pancake-cli/pancake/internal/journal"
	"github.com/pancake-cli/pancake/internal/model"
	"github.com/pancake-cli/pancake/internal/reconcile"
	"github.com/pancake-cli/pancake/internal/store"
)

// Engine executes structural operations as transactions over the repository,
// the metadata store, and the forge. All state lives in the injected
// collaborators; the engine itself is stateless between calls.
type Engine struct {
	Git     *git.Client
	Store   *store.Store
	Journal *journal.Journal
	Forge   forge.Forge
	Config  *config.Config
}

// New wires an engine for a repository.
func New(g *git.Client, s *store.Store, j *journal.Journal, f forge.Forge, cfg *config.Config) *Engine {
	return &Engine{Git: g, Store: s, Journal: j, Forge: f, Config: cfg}
}

// Trunk returns the configured main branch.
func (e *Engine) Trunk() string {
	return e.Config.Repository.MainBranch
}

// LoadTree reads a metadata snapshot. When stacks.json is gone but the
// annotation namespace survives, the tree is rebuilt from annotations.
func (e *Engine) LoadTree() (*model.Tree, error) {
	if !e.Store.Exists() {
		rebuilt, err := store.RebuildFromNotes(e.Git, e.Trunk(), e.Config.Stack.MaxDepth)
		if err == nil && len(rebuilt.Branches) > 0 {
			return rebuilt, nil
		}
	}
	return e.Store.Load(e.Trunk(), e.Config.Stack.MaxDepth)
}

// LoadTreeForDisplay is LoadTree for read-only commands: corrupt metadata
// additionally falls back to the annotation rebuild instead of failing, so
// `pk log` keeps working while the user decides how to recover.
func (e *Engine) LoadTreeForDisplay() (*model.Tree, error) {
	tree, err := e.LoadTree()
	if err == nil {
		return tree, nil
	}
	var corrupt *store.MetadataCorruptError
	if errors.As(err, &corrupt) {
		if rebuilt, rbErr := store.RebuildFromNotes(e.Git, e.Trunk(), e.Config.Stack.MaxDepth); rbErr == nil {
			return rebuilt, nil
		}
	}
	return nil, err
}

// Execute runs one structural operation end to end. On a rebase conflict the
// journal entry is left suspended and NeedsResolutionError returned; on a
// push lease failure the entry is marked aborted without rewinding and
// RemoteDivergedError returned; on any other mid-plan failure the entry is
// rolled back via its pre-images.
func (e *Engine) Execute(ctx context.Context, intent model.Intent) error {
	lock, err := e.Store.Acquire()
	if err != nil {
		return err
	}
	defer lock.Release()

	if pending, err := e.Journal.Pending(); err != nil {
		return err
	} else if pending != nil {
		return &NeedsResolutionError{
			Branch: pending.Intent.Branch,
			Hint:   fmt.Sprintf("a %s operation is in progress; run `pk %s --continue` or `pk %s --abort`", pending.Intent.Kind, resumeVerb(pending.Intent.Kind), resumeVerb(pending.Intent.Kind)),
		}
	}
	if e.Git.RebaseInProgress() {
		return &StackInconsistentError{Details: "a rebase not started by pk is in progress; finish or abort it first"}
	}

	tree, err := e.LoadTree()
	if err != nil {
		return err
	}
	report, err := reconcile.Run(e.Git, tree, e.Journal)
	if err != nil {
		return err
	}

	plan, post, err := model.Compile(tree, intent)
	if err != nil {
		return err
	}
	if err := post.Validate(); err != nil {
		return err
	}
	if blocking := report.Blocking(plan.Touches()); len(blocking) > 0 {
		r := &reconcile.Report{Drifts: blocking}
		return &StackInconsistentError{Details: r.Summary()}
	}

	entry, err := e.Journal.NewEntry(intent, plan)
	if err != nil {
		return err
	}
	if entry.PreMetadata, err = e.Store.Raw(); err != nil {
		return err
	}
	for _, name := range plan.Touches() {
		head, err := e.Git.ReadHead(name)
		if err != nil {
			var missing *git.RefMissingError
			if errors.As(err, &missing) {
				entry.PreHeads[name] = "" // did not exist before the operation
				continue
			}
			return err
		}
		entry.PreHeads[name] = head
	}
	if err := e.Journal.Append(entry); err != nil {
		return err
	}

	return e.runPlan(ctx, entry, post)
}

// resumeVerb maps an intent to the CLI verb whose --continue/--abort resumes it.
func resumeVerb(kind model.IntentKind) string {
	switch kind {
	case model.IntentRestack:
		return "restack"
	default:
		return "sync"
	}
}
