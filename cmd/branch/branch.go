package branch

import (
	"github.com/spf13/cobra"
)

// Command registers the branch management commands and their root-level
// aliases (bc, br, bd, co).
type Command struct{}

// Register registers the command with cobra
func (c *Command) Register(parent *cobra.Command) {
	branchCmd := &cobra.Command{
		Use:   "branch",
		Short: "Branch management commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	create := &createCommand{}
	rename := &renameCommand{}
	del := &deleteCommand{}
	checkout := &checkoutCommand{}

	branchCmd.AddCommand(create.cobra("create"))
	branchCmd.AddCommand(rename.cobra("rename"))
	branchCmd.AddCommand(del.cobra("delete"))
	branchCmd.AddCommand(checkout.cobra("checkout"))
	parent.AddCommand(branchCmd)

	// Root-level short verbs for the common operations.
	parent.AddCommand((&createCommand{}).cobra("bc"))
	parent.AddCommand((&renameCommand{}).cobra("br"))
	parent.AddCommand((&deleteCommand{}).cobra("bd"))
	parent.AddCommand((&checkoutCommand{}).cobra("co"))
}
