package branch

import (
	"github.com/spf13/cobra"

	"github.com/pancake-cli/pancake/internal/app"
	"github.com/pancake-cli/pancake/internal/engine"
	"github.com/pancake-cli/pancake/internal/model"
	"github.com/pancake-cli/pancake/internal/ui"
)

type deleteCommand struct {
	Name  string
	Force bool
}

func (c *deleteCommand) cobra(use string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " <name>",
		Short: "Delete a branch from the stack",
		Long: `Delete a tracked branch. Its children are reparented onto the deleted
branch's parent and restacked; a bound pull request is closed and the
children's PRs are rebased onto the new parent.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c.Name = args[0]
			return c.run(cmd)
		},
	}
	cmd.Flags().BoolVar(&c.Force, "force", false, "Delete even with unmerged changes")
	return cmd
}

func (c *deleteCommand) run(cmd *cobra.Command) error {
	a, err := app.Load()
	if err != nil {
		return err
	}
	tree, err := a.Engine.LoadTree()
	if err != nil {
		return err
	}
	name, err := tree.Find(c.Name)
	if err != nil {
		return err
	}
	current, err := a.Git.CurrentBranch()
	if err != nil {
		return err
	}
	if current == name {
		return engine.Usagef("cannot delete the currently checked out branch '%s'", name)
	}
	if !c.Force {
		b := tree.Branches[name]
		if b.Head != "" && !a.Git.IsAncestor(b.Head, "refs/heads/"+tree.Parent(name)) {
			merged := b.PR != nil && b.PR.Status == "merged"
			if !merged {
				return engine.Usagef("branch '%s' has unmerged changes; use `--force` to delete anyway", name)
			}
		}
	}

	intent := model.Intent{Kind: model.IntentDelete, Branch: name, Force: c.Force}
	if err := a.Engine.Execute(cmd.Context(), intent); err != nil {
		return err
	}
	ui.Successf("Deleted branch '%s'", name)
	ui.Hint("pk undo reverses this")
	return nil
}
