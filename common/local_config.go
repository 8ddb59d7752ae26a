package common

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// LocalConfig is twig's user-level configuration, read from
// <configHome>/config.yml.
type LocalConfig struct {
	// WorktreeBaseDir relocates worktrees outside the main repository:
	// worktrees are created under <WorktreeBaseDir>/<repoBasename>/ instead
	// of <mainRepo>/.twig/.
	WorktreeBaseDir string `koanf:"worktree_base_dir"`

	// SharedConfigPaths are repo-relative files or directories symlinked
	// from the main repository into each new worktree.
	SharedConfigPaths []string `koanf:"shared_config_paths"`

	// NamePalette overrides the color names used for generated worktree
	// names.
	NamePalette []string `koanf:"name_palette"`
}

// DefaultSharedConfigPaths are symlinked into new worktrees when the local
// config does not specify its own list: shared editor configuration and a
// local notes file.
var DefaultSharedConfigPaths = []string{".vscode", "notes.local.md"}

// LoadLocalConfig reads the local configuration file, returning defaults when
// no file exists.
func LoadLocalConfig() (LocalConfig, error) {
	config := LocalConfig{SharedConfigPaths: DefaultSharedConfigPaths}

	configHome, err := GetTwigConfigHome()
	if err != nil {
		return config, err
	}
	configPath := filepath.Join(configHome, "config.yml")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return config, nil
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
		return config, fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}
	if err := k.Unmarshal("", &config); err != nil {
		return config, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}
	return config, nil
}
