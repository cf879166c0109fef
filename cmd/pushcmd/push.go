package pushcmd

import (
	"github.com/spf13/cobra"

	"github.com/pancake-cli/pancake/internal/app"
	"github.com/pancake-cli/pancake/internal/engine"
	"github.com/pancake-cli/pancake/internal/model"
	"github.com/pancake-cli/pancake/internal/ui"
)

// Command registers push, pull and fetch.
type Command struct {
	All  bool
	NoPR bool
}

// Register registers the command with cobra
func (c *Command) Register(parent *cobra.Command) {
	pushCmd := &cobra.Command{
		Use:   "push",
		Short: "Push stack branches to the remote (lease-guarded)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runPush(cmd)
		},
	}
	pushCmd.Flags().BoolVar(&c.All, "all", false, "Push every branch in the current stack")
	pushCmd.Flags().BoolVar(&c.NoPR, "no-pr", false, "Push without touching pull requests")

	pullCmd := &cobra.Command{
		Use:   "pull",
		Short: "Fetch and fast-forward the main branch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPull()
		},
	}
	fetchCmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch from the configured remote",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch()
		},
	}
	parent.AddCommand(pushCmd, pullCmd, fetchCmd)
}

func (c *Command) runPush(cmd *cobra.Command) error {
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

	branches := []string{current}
	if c.All {
		bottom := tree.BottomOf(current)
		branches = append([]string{bottom}, tree.Descendants(bottom)...)
	}

	intent := model.Intent{Kind: model.IntentPush, Branches: branches}
	if err := a.Engine.Execute(cmd.Context(), intent); err != nil {
		return err
	}
	ui.Successf("Pushed %d branch(es)", len(branches))
	return nil
}

func runPull() error {
	a, err := app.Load()
	if err != nil {
		return err
	}
	remote := a.Config.Repository.Remote
	ui.Infof("Fetching from %s...", remote)
	if err := a.Git.Fetch(remote); err != nil {
		return err
	}
	if err := a.Git.FastForward(remote, a.Trunk()); err != nil {
		return err
	}
	ui.Successf("Updated '%s'", a.Trunk())
	ui.Print(ui.Dim("Run ") + ui.Highlight("pk sync --all") + ui.Dim(" to restack onto it"))
	return nil
}

func runFetch() error {
	a, err := app.Load()
	if err != nil {
		return err
	}
	remote := a.Config.Repository.Remote
	if err := a.Git.Fetch(remote); err != nil {
		return err
	}
	ui.Successf("Fetched from '%s'", remote)
	return nil
}
