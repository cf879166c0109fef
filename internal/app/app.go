package app

import (
	"time"

	"github.com/pancake-cli/pancake/internal/config"
	"github.com/pancake-cli/pancake/internal/engine"
	"github.com/pancake-cli/pancake/internal/forge"
	"github.com/pancake-cli/pancake/internal/git"
	"github.com/pancake-cli/pancake/internal/journal"
	"github.com/pancake-cli/pancake/internal/store"
)

// App holds the wired collaborators for one pk invocation. Everything is
// injected from here; no package keeps ambient state.
type App struct {
	Git     *git.Client
	Config  *config.Config
	Global  *config.Global
	Store   *store.Store
	Journal *journal.Journal
	Forge   forge.Forge
	Engine  *engine.Engine
}

// Load wires an App for an initialized repository.
func Load() (*App, error) {
	g, err := git.NewClient()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(g.GitRoot())
	if err != nil {
		return nil, err
	}
	global, err := config.LoadGlobal()
	if err != nil {
		return nil, err
	}
	s := store.New(g.GitRoot())
	j := journal.Open(s.Dir())

	kind := forge.Detect(g.RemoteURL(cfg.Repository.Remote))
	f, err := forge.New(kind, cfg.Token(), 30*time.Second)
	if err != nil {
		return nil, err
	}

	return &App{
		Git:     g,
		Config:  cfg,
		Global:  global,
		Store:   s,
		Journal: j,
		Forge:   f,
		Engine:  engine.New(g, s, j, f, cfg),
	}, nil
}

// Trunk returns the configured main branch.
func (a *App) Trunk() string {
	return a.Config.Repository.MainBranch
}
