package worktree

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ensureExcludeEntry appends entry to the exclude file at excludePath unless
// an identical line is already present. The exclude file is git's local,
// non-committed ignore list (`<gitDir>/info/exclude`), so this bookkeeping
// never shows up in the repository history.
func ensureExcludeEntry(excludePath, entry string) error {
	content, err := os.ReadFile(excludePath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to read exclude file %s: %w", excludePath, err)
	}

	for _, line := range strings.Split(string(content), "\n") {
		if strings.TrimSpace(line) == entry {
			return nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(excludePath), 0755); err != nil {
		return fmt.Errorf("failed to create exclude file directory: %w", err)
	}

	updated := string(content)
	if updated != "" && !strings.HasSuffix(updated, "\n") {
		updated += "\n"
	}
	updated += entry + "\n"

	if err := os.WriteFile(excludePath, []byte(updated), 0644); err != nil {
		return fmt.Errorf("failed to update exclude file %s: %w", excludePath, err)
	}
	return nil
}
