package ui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// PRRow is one line of the pull request table.
type PRRow struct {
	Branch string
	ID     int
	State  string
	Review string
	CI     string
	URL    string
}

// RenderPRTable prints the pull request listing as a bordered table.
func RenderPRTable(rows []PRRow) {
	if len(rows) == 0 {
		Print(Dim("No pull requests."))
		return
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(ColorBorder)).
		Headers("BRANCH", "PR", "STATE", "REVIEW", "CI")
	for _, r := range rows {
		id := "-"
		if r.ID != 0 {
			id = fmt.Sprintf("#%d", r.ID)
		}
		t.Row(r.Branch, id, StateStyle(r.State).Render(r.State), orDash(r.Review), orDash(r.CI))
	}
	fmt.Fprintln(os.Stdout, t.String())
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
