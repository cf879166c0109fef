package submitcmd

import (
	"github.com/spf13/cobra"

	"github.com/pancake-cli/pancake/internal/app"
	"github.com/pancake-cli/pancake/internal/engine"
	"github.com/pancake-cli/pancake/internal/model"
	"github.com/pancake-cli/pancake/internal/ui"
)

// Command pushes branches and creates or updates their pull requests.
type Command struct {
	All    bool
	From   string
	Draft  bool
	NoEdit bool
}

// Register registers the command with cobra
func (c *Command) Register(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Push branches and create or update their PRs",
		Long: `Push the current branch together with the branches below it (or the
whole stack with --all) and create or update the pull request for each, with the base set to the stack parent
and a stack block in the description.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd)
		},
	}
	cmd.Flags().BoolVar(&c.All, "all", false, "Submit every branch in the current stack")
	cmd.Flags().StringVar(&c.From, "from", "", "Submit the stack containing the named branch")
	cmd.Flags().BoolVar(&c.Draft, "draft", false, "Create new PRs as drafts")
	cmd.Flags().BoolVar(&c.NoEdit, "no-edit", false, "Keep existing PR titles instead of refreshing them from commits")
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

	anchor := c.From
	if anchor == "" {
		if anchor, err = a.Git.CurrentBranch(); err != nil {
			return err
		}
	} else if anchor, err = tree.Find(anchor); err != nil {
		return err
	}
	if !tree.Tracked(anchor) {
		return engine.Usagef("branch '%s' is not tracked by pancake", anchor)
	}

	// Submission order is bottom-up so every PR's base exists when the PR
	// above it is created.
	var branches []string
	if c.All {
		bottom := tree.BottomOf(anchor)
		branches = append([]string{bottom}, tree.Descendants(bottom)...)
	} else {
		ancestors := tree.Ancestors(anchor)
		for i := len(ancestors) - 1; i >= 0; i-- {
			branches = append(branches, ancestors[i])
		}
		branches = append(branches, anchor)
	}

	intent := model.Intent{
		Kind:     model.IntentSubmit,
		Branches: branches,
		Draft:    c.Draft || a.Config.PR.DraftByDefault,
		NoEdit:   c.NoEdit,
	}
	if err := a.Engine.Execute(cmd.Context(), intent); err != nil {
		return err
	}

	fresh, err := a.Engine.LoadTree()
	if err != nil {
		return err
	}
	for _, name := range branches {
		if b := fresh.Branches[name]; b != nil && b.PR != nil {
			ui.Successf("%s → #%d (%s)", name, b.PR.ID, b.PR.URL)
		}
	}
	return nil
}
