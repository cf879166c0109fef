package testutil

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pancake-cli/pancake/internal/git"
)

// NewTestRepo creates a git repository in a temp directory with two initial
// commits on main (.gitignore, then README.md) and returns a client for it.
func NewTestRepo(t *testing.T) *git.Client {
	t.Helper()
	tempDir := t.TempDir()

	runGit(t, tempDir, "init", "--initial-branch=main")
	runGit(t, tempDir, "config", "user.email", "test@example.com")
	runGit(t, tempDir, "config", "user.name", "Test")

	client, err := git.NewClientAt(tempDir)
	require.NoError(t, err)

	WriteAndCommit(t, client, ".gitignore", ".pancake/\n", "Add .gitignore")
	WriteAndCommit(t, client, "README.md", "hello\n", "Initial commit")
	return client
}

// WriteAndCommit writes a file and commits it on the current branch,
// returning the new commit hash. Dates are pinned so hashes are stable.
func WriteAndCommit(t *testing.T, client *git.Client, path, content, message string) string {
	t.Helper()
	full := filepath.Join(client.GitRoot(), path)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0644))

	runGit(t, client.GitRoot(), "add", "--", path)

	cmd := exec.Command("git", "commit", "-m", message)
	cmd.Dir = client.GitRoot()
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_DATE=2024-01-01T00:00:00Z",
		"GIT_COMMITTER_DATE=2024-01-01T00:00:00Z",
	)
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "git commit failed: %s", string(output))

	head, err := client.ResolveCommit("HEAD")
	require.NoError(t, err)
	return head
}

// Checkout switches branches, failing the test on error.
func Checkout(t *testing.T, client *git.Client, branch string) {
	t.Helper()
	require.NoError(t, client.Checkout(branch))
}

// CreateAndCheckout creates a branch at the current HEAD and switches to it.
func CreateAndCheckout(t *testing.T, client *git.Client, branch string) {
	t.Helper()
	runGit(t, client.GitRoot(), "checkout", "-b", branch)
}

// WriteDirty writes a file without committing, leaving the tree dirty.
func WriteDirty(t *testing.T, client *git.Client, path, content string) {
	t.Helper()
	full := filepath.Join(client.GitRoot(), path)
	require.NoError(t, os.WriteFile(full, []byte(content), 0644))
}

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, fmt.Sprintf("git %v failed: %s", args, string(output)))
}
