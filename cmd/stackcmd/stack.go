package stackcmd

import (
	"github.com/spf13/cobra"

	"github.com/pancake-cli/pancake/internal/app"
	"github.com/pancake-cli/pancake/internal/reconcile"
	"github.com/pancake-cli/pancake/internal/ui"
)

// Command inspects and repairs the stack metadata.
type Command struct {
	Repair bool
}

// Register registers the command with cobra
func (c *Command) Register(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "stack",
		Short: "Show drift between metadata, refs and PRs",
		Long: `Compare the stack metadata against local refs and remote PR bindings
and report any drift. With --repair, persist the repairs (moved heads
adopted, stale anchors cleared) and drop orphaned branches.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run()
		},
	}
	cmd.Flags().BoolVar(&c.Repair, "repair", false, "Persist repairs and drop orphaned branches")
	parent.AddCommand(cmd)
}

func (c *Command) run() error {
	a, err := app.Load()
	if err != nil {
		return err
	}
	tree, err := a.Engine.LoadTree()
	if err != nil {
		return err
	}
	report, err := reconcile.Run(a.Git, tree, a.Journal)
	if err != nil {
		return err
	}
	untracked, err := reconcile.Untracked(a.Git, tree, a.Config.Stack.Prefix)
	if err != nil {
		return err
	}

	if len(report.Drifts) == 0 && len(untracked) == 0 {
		ui.Success("Stack metadata, local refs and PR bindings agree")
		return nil
	}
	for _, d := range report.Drifts {
		ui.Warningf("%s", d.String())
	}
	for _, name := range untracked {
		ui.Infof("untracked: %s (adopt with `pk init --adopt`)", name)
	}

	if !c.Repair {
		if len(report.Drifts) > 0 {
			ui.Print(ui.Dim("Run ") + ui.Highlight("pk stack --repair") + ui.Dim(" to persist repairs"))
		}
		return nil
	}

	lock, err := a.Store.Acquire()
	if err != nil {
		return err
	}
	defer lock.Release()

	dropped := 0
	for _, d := range report.Drifts {
		if d.Kind != reconcile.KindOrphan {
			continue
		}
		b := tree.Branches[d.Branch]
		if b == nil {
			continue
		}
		// Reparent any children before dropping the orphan node.
		for _, child := range append([]string(nil), b.Children...) {
			if err := tree.SetParent(child, b.Parent, -1); err != nil {
				return err
			}
		}
		tree.Remove(d.Branch)
		dropped++
	}
	if err := a.Store.Save(tree); err != nil {
		return err
	}
	if err := a.Store.MirrorNotes(a.Git, tree); err != nil {
		return err
	}
	ui.Successf("Repaired metadata (%d orphan(s) dropped)", dropped)
	return nil
}
