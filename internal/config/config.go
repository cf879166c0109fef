package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the per-repository configuration at .pancake/config.
type Config struct {
	Repository RepositoryConfig `toml:"repository"`
	PR         PRConfig         `toml:"pr"`
	Stack      StackConfig      `toml:"stack"`
	Forge      ForgeConfig      `toml:"forge"`
}

type RepositoryConfig struct {
	MainBranch string `toml:"main_branch"`
	Remote     string `toml:"remote"`
}

type PRConfig struct {
	AutoSubmit     bool   `toml:"auto_submit"`
	DraftByDefault bool   `toml:"draft_by_default"`
	Template       string `toml:"template"`
}

type StackConfig struct {
	MaxDepth int    `toml:"max_depth"`
	Prefix   string `toml:"prefix"`
}

type ForgeConfig struct {
	APIToken string `toml:"api_token"`
}

// Default returns the configuration written by pk init.
func Default(mainBranch, remote string) *Config {
	return &Config{
		Repository: RepositoryConfig{MainBranch: mainBranch, Remote: remote},
		PR:         PRConfig{Template: ".github/pull_request_template.md"},
		Stack:      StackConfig{MaxDepth: 10},
	}
}

func path(repoRoot string) string {
	return filepath.Join(repoRoot, ".pancake", "config")
}

// Exists reports whether the repository has been initialized.
func Exists(repoRoot string) bool {
	_, err := os.Stat(path(repoRoot))
	return err == nil
}

// Load reads the repository configuration.
func Load(repoRoot string) (*Config, error) {
	cfg := Default("main", "origin")
	if _, err := toml.DecodeFile(path(repoRoot), cfg); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("pancake is not initialized; run `pk init` first")
		}
		return nil, fmt.Errorf("failed to read %s: %w", path(repoRoot), err)
	}
	if cfg.Stack.MaxDepth <= 0 {
		cfg.Stack.MaxDepth = 10
	}
	return cfg, nil
}

// Write saves the repository configuration.
func Write(repoRoot string, cfg *Config) error {
	dir := filepath.Dir(path(repoRoot))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	f, err := os.Create(path(repoRoot))
	if err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// Token resolves the forge API token: config first, then the conventional
// environment variables.
func (c *Config) Token() string {
	if c.Forge.APIToken != "" {
		return c.Forge.APIToken
	}
	if tok := os.Getenv("GITHUB_TOKEN"); tok != "" {
		return tok
	}
	return os.Getenv("GITLAB_TOKEN")
}
