package commitcmd

import (
	"github.com/spf13/cobra"

	"github.com/pancake-cli/pancake/internal/app"
	"github.com/pancake-cli/pancake/internal/engine"
	"github.com/pancake-cli/pancake/internal/model"
	"github.com/pancake-cli/pancake/internal/ui"
)

// Command creates or amends a commit on the current branch, then restacks
// the branches above it.
type Command struct {
	Message string
	All     bool
	Amend   bool
}

// Register registers the command with cobra
func (c *Command) Register(parent *cobra.Command) {
	commitCmd := &cobra.Command{
		Use:     "commit",
		Aliases: []string{"c"},
		Short:   "Create a commit on the current branch",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd)
		},
	}
	commitCmd.Flags().StringVarP(&c.Message, "message", "m", "", "Commit message")
	commitCmd.Flags().BoolVarP(&c.All, "all", "a", false, "Stage all changes before committing")
	commitCmd.Flags().BoolVar(&c.Amend, "amend", false, "Amend the last commit")

	amendCmd := &cobra.Command{
		Use:   "amend",
		Short: "Amend the last commit and restack descendants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			amend := &Command{Amend: true, All: true}
			return amend.run(cmd)
		},
	}
	parent.AddCommand(commitCmd, amendCmd)
}

func (c *Command) run(cmd *cobra.Command) error {
	a, err := app.Load()
	if err != nil {
		return err
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
	if !c.Amend && c.Message == "" {
		return engine.Usagef("commit message is required; use `-m <message>`")
	}

	if c.All {
		if err := a.Git.StageAll(); err != nil {
			return err
		}
	}
	if c.Amend {
		if err := a.Git.AmendCommit(c.Message); err != nil {
			return err
		}
		ui.Successf("Amended commit on branch '%s'", current)
	} else {
		if err := a.Git.Commit(c.Message); err != nil {
			return err
		}
		ui.Successf("Created commit on branch '%s'", current)
	}

	// The branch head moved; everything stacked above needs to follow, and
	// the recorded head needs refreshing either way.
	intent := model.Intent{Kind: model.IntentRestack, Branch: current}
	if err := a.Engine.Execute(cmd.Context(), intent); err != nil {
		return err
	}
	if len(tree.Children(current)) > 0 {
		if err := a.Git.Checkout(current); err != nil {
			return err
		}
		ui.Success("Restacked descendant branches")
	}
	return nil
}
