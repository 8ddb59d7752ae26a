package common

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// GetTwigStateHome returns a directory path for storing user-specific twig
// state data (logs, traces, etc). If needed, it also creates the necessary
// directories for storing state data according to the XDG spec. Can be
// overridden by setting the TWIG_STATE_HOME environment variable.
func GetTwigStateHome() (string, error) {
	twigStateDir := os.Getenv("TWIG_STATE_HOME")
	if twigStateDir != "" {
		err := os.MkdirAll(twigStateDir, 0755)
		if err != nil {
			return "", fmt.Errorf("failed to create twig state directory from TWIG_STATE_HOME: %w", err)
		}
		return twigStateDir, nil
	}

	twigStateDir = filepath.Join(xdg.StateHome, "twig")
	err := os.MkdirAll(twigStateDir, 0755)
	if err != nil {
		return "", fmt.Errorf("failed to create twig state directory: %w", err)
	}
	return twigStateDir, nil
}

// GetTwigDataHome returns a directory path for storing user-specific twig
// data, like externally-based worktrees. Can be overridden by setting the
// TWIG_DATA_HOME environment variable.
func GetTwigDataHome() (string, error) {
	twigDataDir := os.Getenv("TWIG_DATA_HOME")
	if twigDataDir != "" {
		return twigDataDir, nil
	}

	twigDataDir = filepath.Join(xdg.DataHome, "twig")
	err := os.MkdirAll(twigDataDir, 0755)
	if err != nil {
		return "", fmt.Errorf("failed to create twig data directory: %w", err)
	}
	return twigDataDir, nil
}

// GetTwigConfigHome returns the directory twig reads its local configuration
// from. Can be overridden by setting the TWIG_CONFIG_HOME environment
// variable.
func GetTwigConfigHome() (string, error) {
	twigConfigDir := os.Getenv("TWIG_CONFIG_HOME")
	if twigConfigDir != "" {
		return twigConfigDir, nil
	}

	twigConfigDir = filepath.Join(xdg.ConfigHome, "twig")
	err := os.MkdirAll(twigConfigDir, 0755)
	if err != nil {
		return "", fmt.Errorf("failed to create twig config directory: %w", err)
	}
	return twigConfigDir, nil
}
