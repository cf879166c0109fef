package movecmd

import (
	"github.com/spf13/cobra"

	"github.com/pancake-cli/pancake/internal/app"
	"github.com/pancake-cli/pancake/internal/engine"
	"github.com/pancake-cli/pancake/internal/ui"
)

// Command moves the head commit between tracked branches.
type Command struct {
	To   string
	From string
}

// Register registers the command with cobra
func (c *Command) Register(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "move",
		Short: "Move the head commit to another branch",
		Long: `Move the head commit of a branch onto another tracked branch. Both
histories are rewritten; affected branches need a re-push on the next
submit. --from defaults to the current branch.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd)
		},
	}
	cmd.Flags().StringVar(&c.To, "to", "", "Destination branch (required)")
	cmd.Flags().StringVar(&c.From, "from", "", "Source branch (default: current branch)")
	cmd.MarkFlagRequired("to")
	parent.AddCommand(cmd)
}

func (c *Command) run(cmd *cobra.Command) error {
	a, err := app.Load()
	if err != nil {
		return err
	}
	tree, err := a.Engine.LoadTree()
	if err != nil {
		return err
	}

	from := c.From
	if from == "" {
		if from, err = a.Git.CurrentBranch(); err != nil {
			return err
		}
	} else if from, err = tree.Find(from); err != nil {
		return err
	}
	to, err := tree.Find(c.To)
	if err != nil {
		return err
	}
	if !tree.Tracked(from) {
		return engine.Usagef("branch '%s' is not tracked by pancake", from)
	}

	if err := a.Engine.MoveCommit(cmd.Context(), from, to); err != nil {
		return err
	}
	ui.Successf("Moved commit from '%s' to '%s'", from, to)
	ui.Hint("pk undo reverses this")
	return nil
}
