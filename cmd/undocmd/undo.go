package undocmd

import (
	"github.com/spf13/cobra"

	"github.com/pancake-cli/pancake/internal/app"
	"github.com/pancake-cli/pancake/internal/ui"
)

// Command registers undo and redo.
type Command struct {
	Force bool
}

// Register registers the command with cobra
func (c *Command) Register(parent *cobra.Command) {
	undoCmd := &cobra.Command{
		Use:   "undo",
		Short: "Reverse the last committed operation",
		Long: `Reverse the most recent committed operation by restoring its pre-image:
metadata and the recorded branch heads. Refused when an involved branch
was pushed with a newer head since, unless --force. One level only.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.Load()
			if err != nil {
				return err
			}
			if err := a.Engine.Undo(c.Force); err != nil {
				return err
			}
			ui.Success("Undid the last operation")
			return nil
		},
	}
	undoCmd.Flags().BoolVar(&c.Force, "force", false, "Undo even if branches were pushed since")

	redoCmd := &cobra.Command{
		Use:   "redo",
		Short: "Re-apply the most recently undone operation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.Load()
			if err != nil {
				return err
			}
			if err := a.Engine.Redo(); err != nil {
				return err
			}
			ui.Success("Re-applied the undone operation")
			return nil
		},
	}
	parent.AddCommand(undoCmd, redoCmd)
}
