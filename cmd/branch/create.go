package branch

import (
	"regexp"
	"time"

	"github.com/spf13/cobra"

	"github.com/pancake-cli/pancake/internal/app"
	"github.com/pancake-cli/pancake/internal/engine"
	"github.com/pancake-cli/pancake/internal/model"
	"github.com/pancake-cli/pancake/internal/ui"
)

var validBranchNameRegex = regexp.MustCompile(`^[a-zA-Z0-9._/-]+$`)

type createCommand struct {
	Name         string
	Base         string
	InsertBefore string
	InsertAfter  string
}

func (c *createCommand) cobra(use string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " <name>",
		Short: "Create a new branch in the stack",
		Long: `Create a new tracked branch. By default the new branch stacks on top of
the current branch; --base picks a different parent, --insert-before and
--insert-after splice the branch into the middle of an existing stack and
restack what sits above it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c.Name = args[0]
			return c.run(cmd)
		},
	}
	cmd.Flags().StringVar(&c.Base, "base", "", "Base branch for the new branch (default: current branch)")
	cmd.Flags().StringVar(&c.InsertBefore, "insert-before", "", "Insert the new branch below the named branch")
	cmd.Flags().StringVar(&c.InsertAfter, "insert-after", "", "Insert the new branch above the named branch")
	return cmd
}

func (c *createCommand) run(cmd *cobra.Command) error {
	a, err := app.Load()
	if err != nil {
		return err
	}
	if !validBranchNameRegex.MatchString(c.Name) {
		return engine.Usagef("invalid branch name '%s'", c.Name)
	}
	if c.InsertBefore != "" && c.InsertAfter != "" {
		return engine.Usagef("--insert-before and --insert-after are mutually exclusive")
	}

	intent := model.Intent{Kind: model.IntentCreate, Branch: c.Name, CreatedAt: time.Now()}
	switch {
	case c.InsertBefore != "":
		intent.Kind = model.IntentInsertBefore
		intent.Target = c.InsertBefore
	case c.InsertAfter != "":
		intent.Kind = model.IntentInsertAfter
		intent.Target = c.InsertAfter
	case c.Base != "":
		intent.Target = c.Base
	default:
		current, err := a.Git.CurrentBranch()
		if err != nil {
			return err
		}
		intent.Target = current
	}

	if err := a.Engine.Execute(cmd.Context(), intent); err != nil {
		return err
	}
	if err := a.Git.Checkout(c.Name); err != nil {
		return err
	}
	ui.Successf("Created branch '%s' on '%s' and switched to it", c.Name, intent.Target)
	return nil
}
