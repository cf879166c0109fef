package branch

import (
	"github.com/spf13/cobra"

	"github.com/pancake-cli/pancake/internal/app"
	"github.com/pancake-cli/pancake/internal/model"
	"github.com/pancake-cli/pancake/internal/ui"
)

type renameCommand struct {
	Old string
	New string
}

func (c *renameCommand) cobra(use string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <old> <new>",
		Short: "Rename a branch in the stack",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c.Old, c.New = args[0], args[1]
			return c.run(cmd)
		},
	}
}

func (c *renameCommand) run(cmd *cobra.Command) error {
	a, err := app.Load()
	if err != nil {
		return err
	}
	tree, err := a.Engine.LoadTree()
	if err != nil {
		return err
	}
	name, err := tree.Find(c.Old)
	if err != nil {
		return err
	}
	intent := model.Intent{Kind: model.IntentRename, Branch: name, Target: c.New}
	if err := a.Engine.Execute(cmd.Context(), intent); err != nil {
		return err
	}
	ui.Successf("Renamed branch '%s' to '%s'", name, c.New)
	return nil
}
