package logcmd

import (
	"github.com/spf13/cobra"

	"github.com/pancake-cli/pancake/internal/app"
	"github.com/pancake-cli/pancake/internal/reconcile"
	"github.com/pancake-cli/pancake/internal/ui"
)

// Command shows the tracked stacks.
type Command struct {
	All   bool
	Short bool
}

// Register registers the command with cobra
func (c *Command) Register(parent *cobra.Command) {
	logCmd := &cobra.Command{
		Use:     "log",
		Aliases: []string{"l"},
		Short:   "Show the tracked stacks",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run()
		},
	}
	logCmd.Flags().BoolVar(&c.All, "all", false, "Show all stacks (the default)")
	logCmd.Flags().BoolVar(&c.Short, "short", false, "Print a condensed representation")

	graphCmd := &cobra.Command{
		Use:   "graph",
		Short: "Show the full stack graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			full := &Command{}
			return full.run()
		},
	}
	parent.AddCommand(logCmd, graphCmd)
}

func (c *Command) run() error {
	a, err := app.Load()
	if err != nil {
		return err
	}
	tree, err := a.Engine.LoadTreeForDisplay()
	if err != nil {
		return err
	}
	current, _ := a.Git.CurrentBranch()

	// Surface drift on every display; repairs stay in memory here.
	if report, err := reconcile.Run(a.Git, tree, a.Journal); err == nil {
		for _, d := range report.Drifts {
			ui.Warningf("%s", d.String())
		}
	}

	if c.Short {
		ui.Print(ui.RenderShortForest(tree, current))
		return nil
	}
	ui.Print(ui.RenderForest(tree, current))
	return nil
}
