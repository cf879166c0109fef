package prcmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pancake-cli/pancake/internal/app"
	"github.com/pancake-cli/pancake/internal/forge"
	"github.com/pancake-cli/pancake/internal/ui"
)

// Command surfaces pull request state from the forge.
type Command struct{}

// Register registers the command with cobra
func (c *Command) Register(parent *cobra.Command) {
	prCmd := &cobra.Command{
		Use:   "pr",
		Short: "Pull request commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	prCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show review and CI status for the stack's PRs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd)
		},
	})
	prCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List pull requests for tracked branches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList()
		},
	})
	parent.AddCommand(prCmd)
}

func runStatus(cmd *cobra.Command) error {
	a, err := app.Load()
	if err != nil {
		return err
	}
	tree, err := a.Engine.LoadTree()
	if err != nil {
		return err
	}

	var ids []int
	byID := make(map[int]string)
	for _, name := range tree.Names() {
		if b := tree.Branches[name]; b.PR != nil && b.PR.ID != 0 {
			ids = append(ids, b.PR.ID)
			byID[b.PR.ID] = name
		}
	}
	if len(ids) == 0 {
		ui.Print(ui.Dim("No pull requests yet. Create them with: ") + ui.Highlight("pk submit --all"))
		return nil
	}

	// Statuses fetch in parallel; rendering happens after the fan-out
	// completes, on this goroutine.
	statuses := forge.FetchStatuses(cmd.Context(), a.Forge, ids)

	rows := make([]ui.PRRow, 0, len(ids))
	for _, name := range tree.Names() {
		b := tree.Branches[name]
		if b.PR == nil || b.PR.ID == 0 {
			continue
		}
		row := ui.PRRow{Branch: name, ID: b.PR.ID, State: b.PR.Status}
		if status, ok := statuses[b.PR.ID]; ok {
			row.Review = status.Review
			row.CI = status.CI
			switch {
			case status.Merged:
				row.State = "merged"
			case status.Closed:
				row.State = "closed"
			}
			b.PR.Status = row.State
			b.PR.FetchedAt = status.FetchedAt
		}
		rows = append(rows, row)
	}
	ui.RenderPRTable(rows)

	// Persist the refreshed summaries; a failure here only loses cache.
	if lock, err := a.Store.Acquire(); err == nil {
		if err := a.Store.Save(tree); err != nil {
			ui.Warningf("could not cache PR status: %v", err)
		}
		lock.Release()
	}
	return nil
}

func runList() error {
	a, err := app.Load()
	if err != nil {
		return err
	}
	tree, err := a.Engine.LoadTree()
	if err != nil {
		return err
	}
	prs, err := a.Forge.ListPRs()
	if err != nil {
		return err
	}

	rows := make([]ui.PRRow, 0, len(prs))
	for _, pr := range prs {
		if !tree.Tracked(pr.Branch) {
			continue
		}
		rows = append(rows, ui.PRRow{Branch: pr.Branch, ID: pr.ID, State: pr.State, URL: pr.URL})
	}
	if len(rows) == 0 {
		ui.Print(ui.Dim("No pull requests for tracked branches."))
		return nil
	}
	ui.RenderPRTable(rows)
	for _, r := range rows {
		ui.Print(ui.Dim(fmt.Sprintf("  #%d %s", r.ID, r.URL)))
	}
	return nil
}
