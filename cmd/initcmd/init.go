package initcmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pancake-cli/pancake/internal/config"
	"github.com/pancake-cli/pancake/internal/git"
	"github.com/pancake-cli/pancake/internal/model"
	"github.com/pancake-cli/pancake/internal/reconcile"
	"github.com/pancake-cli/pancake/internal/store"
	"github.com/pancake-cli/pancake/internal/ui"
)

// Command initializes pancake in a repository.
type Command struct {
	Force      bool
	MainBranch string
	Remote     string
	Adopt      bool
}

// Register registers the command with cobra
func (c *Command) Register(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize Pancake in the current repository",
		Long: `Initialize Pancake: write .pancake/config, detect the main branch and
remote, and rebuild stack metadata from repository annotations if a
previous clone left them behind.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Run()
		},
	}
	cmd.Flags().BoolVar(&c.Force, "force", false, "Overwrite existing configuration")
	cmd.Flags().StringVar(&c.MainBranch, "main-branch", "", "Explicitly set the main branch")
	cmd.Flags().StringVar(&c.Remote, "remote", "", "Explicitly set the git remote to use")
	cmd.Flags().BoolVar(&c.Adopt, "adopt", false, "Adopt existing branches matching the stack prefix")
	parent.AddCommand(cmd)
}

// Run executes the command
func (c *Command) Run() error {
	g, err := git.NewClient()
	if err != nil {
		return err
	}

	if config.Exists(g.GitRoot()) && !c.Force {
		if !c.Adopt {
			return fmt.Errorf("pancake is already initialized; use `pk init --force` to overwrite")
		}
		// Already initialized: adopt under the existing configuration.
		cfg, err := config.Load(g.GitRoot())
		if err != nil {
			return err
		}
		return c.adoptBranches(g, store.New(g.GitRoot()), cfg)
	}

	mainBranch := c.MainBranch
	if mainBranch == "" {
		mainBranch = detectMainBranch(g)
	}
	remote := c.Remote
	if remote == "" {
		if remote, err = g.RemoteName(); err != nil {
			remote = "origin"
		}
	}

	cfg := config.Default(mainBranch, remote)
	if err := config.Write(g.GitRoot(), cfg); err != nil {
		return err
	}

	s := store.New(g.GitRoot())
	if !s.Exists() {
		// A fresh clone may still carry the annotation namespace; rebuild
		// the tree from it rather than starting empty.
		tree, err := store.RebuildFromNotes(g, mainBranch, cfg.Stack.MaxDepth)
		if err != nil {
			return err
		}
		if len(tree.Branches) > 0 {
			if err := s.Save(tree); err != nil {
				return err
			}
			ui.Successf("Recovered %d tracked branch(es) from repository annotations", len(tree.Branches))
		} else if err := s.Save(tree); err != nil {
			return err
		}
	}

	if c.Adopt {
		if err := c.adoptBranches(g, s, cfg); err != nil {
			return err
		}
	}

	ui.Success("Pancake initialized")
	ui.Printf("  main branch: %s\n  remote: %s\n", mainBranch, remote)
	return nil
}

// adoptBranches tracks existing local branches that match the configured
// prefix, parenting each at the trunk.
func (c *Command) adoptBranches(g *git.Client, s *store.Store, cfg *config.Config) error {
	tree, err := s.Load(cfg.Repository.MainBranch, cfg.Stack.MaxDepth)
	if err != nil {
		return err
	}
	candidates, err := reconcile.Untracked(g, tree, cfg.Stack.Prefix)
	if err != nil {
		return err
	}
	for _, name := range candidates {
		head, err := g.ReadHead(name)
		if err != nil {
			continue
		}
		if err := tree.Add(&model.Branch{
			Name:   name,
			Parent: tree.Trunk,
			Head:   head,
		}); err != nil {
			return err
		}
		ui.Infof("Adopted branch '%s'", name)
	}
	if len(candidates) > 0 {
		if err := s.Save(tree); err != nil {
			return err
		}
		return s.MirrorNotes(g, tree)
	}
	return nil
}

func detectMainBranch(g *git.Client) string {
	for _, candidate := range []string{"main", "master", "develop"} {
		if g.BranchExists(candidate) {
			return candidate
		}
	}
	if current, err := g.CurrentBranch(); err == nil {
		return current
	}
	return "main"
}
