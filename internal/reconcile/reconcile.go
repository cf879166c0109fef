package reconcile

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pancake-cli/pancake/internal/git"
	"github.com/pancake-cli/pancake/internal/journal"
	"github.com/pancake-cli/pancake/internal/model"
)

// Kind names a class of drift between the three stores.
type Kind string

const (
	// KindOrphan: metadata tracks a branch whose local ref is gone.
	KindOrphan Kind = "orphan"
	// KindUntracked: a local ref matches the stack prefix but is not tracked.
	KindUntracked Kind = "untracked"
	// KindMovedHead: the local ref moved behind pancake's back. Repaired in
	// place by trusting the ref; the branch's children lose their anchors.
	KindMovedHead Kind = "moved-head"
	// KindRemoteBase: a PR's submitted base disagrees with the metadata
	// parent. Queued for repair on the next submit.
	KindRemoteBase Kind = "remote-base"
)

// Drift is one detected disagreement.
type Drift struct {
	Kind   Kind
	Branch string
	Detail string
}

func (d Drift) String() string {
	return fmt.Sprintf("%s: %s (%s)", d.Kind, d.Branch, d.Detail)
}

// Report is the outcome of a reconciliation pass.
type Report struct {
	Drifts   []Drift
	Repaired bool // the tree was modified and should be re-persisted
}

// Blocking returns the drifts that must stop a structural operation touching
// the given branches. Moved heads are repaired in place and untracked refs
// are informational; only orphans block.
func (r *Report) Blocking(branches []string) []Drift {
	involved := make(map[string]bool, len(branches))
	for _, b := range branches {
		involved[b] = true
	}
	var blocking []Drift
	for _, d := range r.Drifts {
		if d.Kind == KindOrphan && involved[d.Branch] {
			blocking = append(blocking, d)
		}
	}
	return blocking
}

// Summary renders the report for error messages.
func (r *Report) Summary() string {
	lines := make([]string, 0, len(r.Drifts))
	for _, d := range r.Drifts {
		lines = append(lines, d.String())
	}
	return strings.Join(lines, "; ")
}

// Run compares the metadata tree against the local refs, repairing what can
// be repaired in place (moved heads) and reporting the rest. Branches named
// by an in-flight journal entry are deferred, not reported as orphans.
func Run(g *git.Client, tree *model.Tree, j *journal.Journal) (*Report, error) {
	report := &Report{}
	pending, err := j.Pending()
	if err != nil {
		return nil, err
	}

	for _, name := range tree.Names() {
		b := tree.Branches[name]
		head, err := g.ReadHead(name)
		if err != nil {
			var missing *git.RefMissingError
			if !errors.As(err, &missing) {
				return nil, err
			}
			if pending != nil && pending.Involves(name) {
				continue // the open operation owns this ref; defer judgement
			}
			report.Drifts = append(report.Drifts, Drift{
				Kind: KindOrphan, Branch: name,
				Detail: "tracked but no local ref; delete it or recover the branch",
			})
			continue
		}
		if b.Head != "" && b.Head != head {
			report.Drifts = append(report.Drifts, Drift{
				Kind: KindMovedHead, Branch: name,
				Detail: fmt.Sprintf("ref moved %s -> %s", git.ShortHash(b.Head), git.ShortHash(head)),
			})
			b.Head = head
			for _, child := range b.Children {
				if c, ok := tree.Branches[child]; ok {
					c.Anchor = "" // force the next restack to recompute its boundary
				}
			}
			report.Repaired = true
		}
		if b.Head == "" {
			b.Head = head
			report.Repaired = true
		}
		if b.PR != nil && b.PR.Base != "" && b.PR.Base != b.Parent {
			report.Drifts = append(report.Drifts, Drift{
				Kind: KindRemoteBase, Branch: name,
				Detail: fmt.Sprintf("PR base is '%s', stack parent is '%s'", b.PR.Base, b.Parent),
			})
		}
	}
	return report, nil
}

// Untracked lists local branches that match the configured prefix but are
// not tracked and are not the trunk. Adoption is only offered by init.
func Untracked(g *git.Client, tree *model.Tree, prefix string) ([]string, error) {
	locals, err := g.LocalBranches()
	if err != nil {
		return nil, err
	}
	var out []string
	for _, name := range locals {
		if name == tree.Trunk || tree.Tracked(name) {
			continue
		}
		if prefix != "" && !strings.HasPrefix(name, prefix) {
			continue
		}
		out = append(out, name)
	}
	return out, nil
}
