package branch

import (
	"github.com/ktr0731/go-fuzzyfinder"
	"github.com/spf13/cobra"

	"github.com/pancake-cli/pancake/internal/app"
	"github.com/pancake-cli/pancake/internal/ui"
)

type checkoutCommand struct {
	Pattern string
}

func (c *checkoutCommand) cobra(use string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [pattern]",
		Short: "Checkout a tracked branch",
		Long: `Checkout a tracked branch by fuzzy pattern. With no argument, an
interactive picker lists the tracked branches.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				c.Pattern = args[0]
			}
			return c.run()
		},
	}
}

func (c *checkoutCommand) run() error {
	a, err := app.Load()
	if err != nil {
		return err
	}
	tree, err := a.Engine.LoadTree()
	if err != nil {
		return err
	}

	var target string
	if c.Pattern == "" {
		names := tree.Names()
		if len(names) == 0 {
			return nil
		}
		idx, err := fuzzyfinder.Find(names, func(i int) string {
			return names[i]
		})
		if err != nil {
			return err // includes the user cancelling the picker
		}
		target = names[idx]
	} else {
		if target, err = tree.Find(c.Pattern); err != nil {
			return err
		}
	}

	if err := a.Git.Checkout(target); err != nil {
		return err
	}
	ui.Successf("Switched to branch '%s'", target)
	return nil
}
