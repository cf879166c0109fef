package restackcmd

import (
	"github.com/spf13/cobra"

	"github.com/pancake-cli/pancake/internal/app"
	"github.com/pancake-cli/pancake/internal/engine"
	"github.com/pancake-cli/pancake/internal/model"
	"github.com/pancake-cli/pancake/internal/ui"
)

// Command restacks the entire current stack from the bottom up.
type Command struct {
	Continue bool
	Abort    bool
}

// Register registers the command with cobra
func (c *Command) Register(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "restack",
		Short: "Restack the entire stack from bottom to top",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd)
		},
	}
	cmd.Flags().BoolVar(&c.Continue, "continue", false, "Continue an in-progress restack after resolving conflicts")
	cmd.Flags().BoolVar(&c.Abort, "abort", false, "Abort the in-progress restack")
	parent.AddCommand(cmd)
}

func (c *Command) run(cmd *cobra.Command) error {
	if c.Continue && c.Abort {
		return engine.Usagef("cannot use --continue and --abort together")
	}

	a, err := app.Load()
	if err != nil {
		return err
	}
	if c.Continue {
		if err := a.Engine.Continue(cmd.Context()); err != nil {
			return err
		}
		ui.Success("Restack complete")
		return nil
	}
	if c.Abort {
		if err := a.Engine.Abort(); err != nil {
			return err
		}
		ui.Success("Aborted restack; branches restored")
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

	bottom := tree.BottomOf(current)
	intent := model.Intent{Kind: model.IntentRestack, Branch: bottom}
	if err := a.Engine.Execute(cmd.Context(), intent); err != nil {
		return err
	}
	if err := a.Git.Checkout(current); err != nil {
		return err
	}
	ui.Successf("Restacked '%s' and its descendants", bottom)
	return nil
}
