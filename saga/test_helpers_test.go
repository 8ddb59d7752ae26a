package saga

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// setupTestGitRepo initializes a git repository in a temporary directory with
// 'main' as the default branch and a configured user, mirroring the fixture
// the git package tests use.
func setupTestGitRepo(t *testing.T) string {
	t.Helper()
	repoDir := t.TempDir()

	_, err := exec.LookPath("git")
	require.NoError(t, err, "git command not found in PATH")

	cmdInit := exec.Command("git", "init", "-b", "main")
	cmdInit.Dir = repoDir
	outputInit, err := cmdInit.CombinedOutput()
	require.NoError(t, err, "git init failed: %s", string(outputInit))

	runGitCommandInTestRepo(t, repoDir, "config", "user.name", "Test User")
	runGitCommandInTestRepo(t, repoDir, "config", "user.email", "test@example.com")

	return repoDir
}

func runGitCommandInTestRepo(t *testing.T, repoDir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = repoDir
	output, err := cmd.CombinedOutput()
	trimmedOutput := strings.TrimSpace(string(output))
	require.NoError(t, err, "git command %v failed in %s:\n%s", args, repoDir, string(output))
	return trimmedOutput
}

func createCommit(t *testing.T, repoDir, message string) string {
	t.Helper()
	runGitCommandInTestRepo(t, repoDir, "commit", "--allow-empty", "-m", message)
	return runGitCommandInTestRepo(t, repoDir, "rev-parse", "HEAD")
}

func writeAndCommitFile(t *testing.T, repoDir, relPath, content, message string) string {
	t.Helper()
	fullPath := filepath.Join(repoDir, relPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(fullPath), 0755))
	require.NoError(t, os.WriteFile(fullPath, []byte(content), 0644))
	runGitCommandInTestRepo(t, repoDir, "add", relPath)
	runGitCommandInTestRepo(t, repoDir, "commit", "-m", message)
	return runGitCommandInTestRepo(t, repoDir, "rev-parse", "HEAD")
}

// currentBranchName reads HEAD directly with the git CLI so assertions do not
// depend on the code under test.
func currentBranchName(t *testing.T, repoDir string) string {
	t.Helper()
	return runGitCommandInTestRepo(t, repoDir, "branch", "--show-current")
}

func headCommit(t *testing.T, repoDir string) string {
	t.Helper()
	return runGitCommandInTestRepo(t, repoDir, "rev-parse", "HEAD")
}

func branchExists(t *testing.T, repoDir, branch string) bool {
	t.Helper()
	cmd := exec.Command("git", "show-ref", "--verify", "--quiet", "refs/heads/"+branch)
	cmd.Dir = repoDir
	return cmd.Run() == nil
}
