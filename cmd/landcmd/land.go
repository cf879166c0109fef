package landcmd

import (
	"github.com/spf13/cobra"

	"github.com/pancake-cli/pancake/internal/app"
	"github.com/pancake-cli/pancake/internal/engine"
	"github.com/pancake-cli/pancake/internal/model"
	"github.com/pancake-cli/pancake/internal/ui"
)

// Command merges the bottom PR of the stack and cleans up its branch.
type Command struct {
	Squash bool
	Merge  bool
	Rebase bool
	All    bool
}

// Register registers the command with cobra
func (c *Command) Register(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "land",
		Short: "Merge the bottom PR and remove its branch",
		Long: `Merge the pull request of the stack's bottom branch, delete the branch
locally and on the remote, reparent its children onto the trunk, and
rebase their PRs. With --all, land the whole current path bottom-up.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd)
		},
	}
	cmd.Flags().BoolVar(&c.Squash, "squash", false, "Squash-merge (the default)")
	cmd.Flags().BoolVar(&c.Merge, "merge", false, "Create a merge commit")
	cmd.Flags().BoolVar(&c.Rebase, "rebase", false, "Rebase-merge")
	cmd.Flags().BoolVar(&c.All, "all", false, "Land every branch on the current path, bottom-up")
	parent.AddCommand(cmd)
}

func (c *Command) mode() (string, error) {
	set := 0
	mode := "squash"
	if c.Squash {
		set++
	}
	if c.Merge {
		set++
		mode = "merge"
	}
	if c.Rebase {
		set++
		mode = "rebase"
	}
	if set > 1 {
		return "", engine.Usagef("--squash, --merge and --rebase are mutually exclusive")
	}
	return mode, nil
}

func (c *Command) run(cmd *cobra.Command) error {
	mode, err := c.mode()
	if err != nil {
		return err
	}
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

	// The path from current down to the trunk, bottom first. Landing is
	// only legal bottom-up: each branch must sit directly on the trunk
	// when its turn comes.
	path := []string{current}
	path = append(path, tree.Ancestors(current)...)
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	if !c.All {
		path = path[:1]
	}

	for _, name := range path {
		if name == current && len(path) > 1 {
			// Landing the branch we sit on: move off first.
			if err := a.Git.Checkout(a.Trunk()); err != nil {
				return err
			}
		}
		intent := model.Intent{Kind: model.IntentLand, Branch: name, Mode: mode}
		if err := a.Engine.Execute(cmd.Context(), intent); err != nil {
			return err
		}
		ui.Successf("Landed '%s'", name)
	}
	ui.Hint("pk undo reverses the metadata (the merge on the forge is permanent)")
	return nil
}
