package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Global is the per-user configuration at ~/.config/pancake/config.toml,
// overridable with PANCAKE_CONFIG.
type Global struct {
	Editor  string            `toml:"editor"`
	Pager   string            `toml:"pager"`
	Aliases map[string]string `toml:"aliases"`
}

func globalPath() (string, error) {
	if override := os.Getenv("PANCAKE_CONFIG"); override != "" {
		return override, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate home directory: %w", err)
	}
	return filepath.Join(home, ".config", "pancake", "config.toml"), nil
}

// LoadGlobal reads the global defaults. A missing file yields zero values.
func LoadGlobal() (*Global, error) {
	p, err := globalPath()
	if err != nil {
		return nil, err
	}
	g := &Global{}
	if _, err := toml.DecodeFile(p, g); err != nil {
		if os.IsNotExist(err) {
			return g, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", p, err)
	}
	return g, nil
}
