package navigate

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pancake-cli/pancake/internal/app"
	"github.com/pancake-cli/pancake/internal/engine"
	"github.com/pancake-cli/pancake/internal/model"
	"github.com/pancake-cli/pancake/internal/ui"
)

// Command registers the stack navigation verbs: up, down, top, bottom.
type Command struct{}

// Register registers the command with cobra
func (c *Command) Register(parent *cobra.Command) {
	up := &cobra.Command{
		Use:     "up [n]",
		Aliases: []string{"u"},
		Short:   "Navigate up the stack (towards children)",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return navigate(args, moveUp)
		},
	}
	down := &cobra.Command{
		Use:     "down [n]",
		Aliases: []string{"d"},
		Short:   "Navigate down the stack (towards the parent)",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return navigate(args, moveDown)
		},
	}
	top := &cobra.Command{
		Use:   "top",
		Short: "Navigate to the topmost branch of the current stack",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return navigate(nil, func(t *model.Tree, current string, _ int) (string, error) {
				return t.TopOf(current), nil
			})
		},
	}
	bottom := &cobra.Command{
		Use:   "bottom",
		Short: "Navigate to the bottom of the current stack (just above the trunk)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return navigate(nil, func(t *model.Tree, current string, _ int) (string, error) {
				return t.BottomOf(current), nil
			})
		},
	}
	parent.AddCommand(up, down, top, bottom)
}

func navigate(args []string, move func(*model.Tree, string, int) (string, error)) error {
	count := 1
	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return engine.Usagef("count must be a positive number, got '%s'", args[0])
		}
		count = n
	}

	a, err := app.Load()
	if err != nil {
		return err
	}
	tree, err := a.Engine.LoadTree()
	if err != nil {
		return err
	}
	current, err := a.Git.CurrentBranch()
	if err != nil {
		return err
	}
	if !tree.Tracked(current) {
		return engine.Usagef("current branch '%s' is not tracked by pancake", current)
	}

	target, err := move(tree, current, count)
	if err != nil {
		return err
	}
	if target == current {
		ui.Infof("Already on '%s'", current)
		return nil
	}
	if err := a.Git.Checkout(target); err != nil {
		return err
	}
	ui.Successf("Switched to branch '%s'", target)
	return nil
}

func moveUp(t *model.Tree, current string, count int) (string, error) {
	target := current
	for i := 0; i < count; i++ {
		children := t.Children(target)
		switch len(children) {
		case 0:
			if i == 0 {
				return "", engine.Usagef("branch '%s' has no children in the stack", current)
			}
			return "", engine.Usagef("cannot move up %d branches (only %d available)", count, i)
		case 1:
			target = children[0]
		default:
			lines := "branch '" + target + "' has multiple children:"
			for _, child := range children {
				lines += "\n  " + child
			}
			return "", engine.Usagef("%s\nuse `pk co <name>` to pick one", lines)
		}
	}
	return target, nil
}

func moveDown(t *model.Tree, current string, count int) (string, error) {
	target := current
	for i := 0; i < count; i++ {
		parent := t.Parent(target)
		if !t.Tracked(parent) {
			if parent == t.Trunk && i == count-1 {
				return parent, nil // stepping onto the trunk itself is fine
			}
			if i == 0 {
				return "", engine.Usagef("branch '%s' has no parent in the stack", current)
			}
			return "", engine.Usagef("cannot move down %d branches (only %d available)", count, i)
		}
		target = parent
	}
	return target, nil
}
