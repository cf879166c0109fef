package synccmd

import (
	"github.com/spf13/cobra"

	"github.com/pancake-cli/pancake/internal/app"
	"github.com/pancake-cli/pancake/internal/engine"
	"github.com/pancake-cli/pancake/internal/model"
	"github.com/pancake-cli/pancake/internal/ui"
)

// Command restacks the current branch (and optionally its whole stack) onto
// updated parents.
type Command struct {
	All      bool
	FromMain bool
	Continue bool
	Abort    bool
}

// Register registers the command with cobra
func (c *Command) Register(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:     "sync",
		Aliases: []string{"s"},
		Short:   "Sync the current branch and its descendants",
		Long: `Restack the current branch and everything above it onto their parents'
current heads. --all starts from the bottom of the stack; --from-main
additionally fetches the remote and fast-forwards the local main branch
first. A conflict suspends the operation: resolve it, then run
` + "`pk sync --continue` (or `pk sync --abort`).",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd)
		},
	}
	cmd.Flags().BoolVar(&c.All, "all", false, "Sync every branch in the current stack")
	cmd.Flags().BoolVar(&c.FromMain, "from-main", false, "Fetch and update the main branch first (implies --all)")
	cmd.Flags().BoolVar(&c.Continue, "continue", false, "Continue an in-progress sync after resolving conflicts")
	cmd.Flags().BoolVar(&c.Abort, "abort", false, "Abort the in-progress sync")
	parent.AddCommand(cmd)
}

func (c *Command) run(cmd *cobra.Command) error {
	if c.Continue && c.Abort {
		return engine.Usagef("cannot use --continue and --abort together")
	}
	if (c.Continue || c.Abort) && (c.All || c.FromMain) {
		return engine.Usagef("cannot combine --continue/--abort with --all/--from-main")
	}

	a, err := app.Load()
	if err != nil {
		return err
	}
	if c.Continue {
		if err := a.Engine.Continue(cmd.Context()); err != nil {
			return err
		}
		ui.Success("Sync complete")
		return nil
	}
	if c.Abort {
		if err := a.Engine.Abort(); err != nil {
			return err
		}
		ui.Success("Aborted sync; branches restored")
		return nil
	}

	current, err := a.Git.CurrentBranch()
	if err != nil {
		return err
	}
	tree, err := a.Engine.LoadTree()
	if err != nil {
		return err
	}
	if !tree.Tracked(current) {
		return engine.Usagef("current branch '%s' is not tracked by pancake", current)
	}

	if c.FromMain {
		ui.Info("Fetching from remote...")
		if err := a.Git.Fetch(a.Config.Repository.Remote); err != nil {
			return err
		}
		if err := a.Git.FastForward(a.Config.Repository.Remote, a.Trunk()); err != nil {
			ui.Warningf("could not update %s: %v", a.Trunk(), err)
		}
	}

	start := current
	if c.All || c.FromMain {
		start = tree.BottomOf(current)
	}

	intent := model.Intent{Kind: model.IntentRestack, Branch: start}
	if err := a.Engine.Execute(cmd.Context(), intent); err != nil {
		return err
	}
	if err := a.Git.Checkout(current); err != nil {
		return err
	}
	ui.Successf("Synced '%s' and its descendants", start)
	return nil
}
