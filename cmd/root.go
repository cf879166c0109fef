package cmd

import (
	"context"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pancake-cli/pancake/cmd/branch"
	"github.com/pancake-cli/pancake/cmd/commitcmd"
	"github.com/pancake-cli/pancake/cmd/initcmd"
	"github.com/pancake-cli/pancake/cmd/landcmd"
	"github.com/pancake-cli/pancake/cmd/logcmd"
	"github.com/pancake-cli/pancake/cmd/movecmd"
	"github.com/pancake-cli/pancake/cmd/navigate"
	"github.com/pancake-cli/pancake/cmd/prcmd"
	"github.com/pancake-cli/pancake/cmd/pushcmd"
	"github.com/pancake-cli/pancake/cmd/restackcmd"
	"github.com/pancake-cli/pancake/cmd/stackcmd"
	"github.com/pancake-cli/pancake/cmd/submitcmd"
	"github.com/pancake-cli/pancake/cmd/synccmd"
	"github.com/pancake-cli/pancake/cmd/undocmd"
	"github.com/pancake-cli/pancake/internal/config"
	"github.com/pancake-cli/pancake/internal/engine"
	"github.com/pancake-cli/pancake/internal/ui"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pk",
	Short: "Stacked pull request manager",
	Long: `Pancake manages stacked pull requests: chains of short branches where
each branch's base is the branch below it, so a large change can be
reviewed as a sequence of small, dependent PRs.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the CLI and exits with the pk exit-code contract.
func Execute(ctx context.Context) {
	rootCmd.SetArgs(expandAlias(os.Args[1:]))
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return
	}
	ui.Error(err.Error())
	os.Exit(engine.ExitCode(err))
}

// expandAlias rewrites the first argument through the user's configured
// aliases, e.g. `ss = "submit --all"`.
func expandAlias(args []string) []string {
	if len(args) == 0 {
		return args
	}
	global, err := config.LoadGlobal()
	if err != nil || len(global.Aliases) == 0 {
		return args
	}
	expansion, ok := global.Aliases[args[0]]
	if !ok {
		return args
	}
	return append(strings.Fields(expansion), args[1:]...)
}

func init() {
	commands := []Command{
		&initcmd.Command{},
		&branch.Command{},
		&navigate.Command{},
		&logcmd.Command{},
		&synccmd.Command{},
		&restackcmd.Command{},
		&commitcmd.Command{},
		&movecmd.Command{},
		&submitcmd.Command{},
		&prcmd.Command{},
		&landcmd.Command{},
		&pushcmd.Command{},
		&stackcmd.Command{},
		&undocmd.Command{},
	}
	for _, cmd := range commands {
		cmd.Register(rootCmd)
	}
}
