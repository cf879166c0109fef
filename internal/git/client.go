package git

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Client runs git operations against one repository. Every mutation goes
// through the git executable; the client itself holds no repository state.
type Client struct {
	gitRoot string
}

// NewClient creates a client for the repository containing the current directory.
func NewClient() (*Client, error) {
	out, err := exec.Command("git", "rev-parse", "--show-toplevel").Output()
	if err != nil {
		return nil, fmt.Errorf("not in a git repository: %w", err)
	}
	return &Client{gitRoot: strings.TrimSpace(string(out))}, nil
}

// NewClientAt creates a client rooted at the given directory.
func NewClientAt(dir string) (*Client, error) {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("not in a git repository: %w", err)
	}
	return &Client{gitRoot: strings.TrimSpace(string(out))}, nil
}

// GitRoot returns the repository root directory.
func (c *Client) GitRoot() string {
	return c.gitRoot
}

func (c *Client) run(args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = c.gitRoot
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("git %s: %s", args[0], strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("git %s: %w", args[0], err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (c *Client) runCombined(args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = c.gitRoot
	out, err := cmd.CombinedOutput()
	return strings.TrimSpace(string(out)), err
}

// CurrentBranch returns the name of the checked-out branch.
func (c *Client) CurrentBranch() (string, error) {
	out, err := c.run("rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", fmt.Errorf("failed to get current branch: %w", err)
	}
	return out, nil
}

// BranchExists reports whether a local branch exists.
func (c *Client) BranchExists(name string) bool {
	_, err := c.run("rev-parse", "--verify", "refs/heads/"+name)
	return err == nil
}

// ReadHead returns the commit hash a local branch points at.
func (c *Client) ReadHead(branch string) (string, error) {
	out, err := c.run("rev-parse", "refs/heads/"+branch)
	if err != nil {
		return "", &RefMissingError{Ref: branch}
	}
	return out, nil
}

// ResolveCommit resolves any ref expression to a commit hash.
func (c *Client) ResolveCommit(ref string) (string, error) {
	out, err := c.run("rev-parse", ref)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", ref, err)
	}
	return out, nil
}

// CreateBranch creates a branch at the given commit without checking it out.
func (c *Client) CreateBranch(name, atCommit string) error {
	if _, err := c.run("branch", name, atCommit); err != nil {
		return fmt.Errorf("failed to create branch %s: %w", name, err)
	}
	return nil
}

// RenameBranch renames a local branch.
func (c *Client) RenameBranch(old, new string) error {
	if _, err := c.run("branch", "-m", old, new); err != nil {
		return fmt.Errorf("failed to rename branch %s to %s: %w", old, new, err)
	}
	return nil
}

// DeleteBranch deletes a local branch. With force set, unmerged changes are
// discarded.
func (c *Client) DeleteBranch(name string, force bool) error {
	flag := "-d"
	if force {
		flag = "-D"
	}
	if _, err := c.run("branch", flag, name); err != nil {
		return fmt.Errorf("failed to delete branch %s: %w", name, err)
	}
	return nil
}

// Checkout checks out the given branch.
func (c *Client) Checkout(name string) error {
	if !c.BranchExists(name) {
		return &RefMissingError{Ref: name}
	}
	if _, err := c.runCombined("checkout", name); err != nil {
		return fmt.Errorf("failed to checkout branch %s: %w", name, err)
	}
	return nil
}

// UpdateRef moves a branch ref to a commit without touching the working tree.
func (c *Client) UpdateRef(branch, commitHash string) error {
	if _, err := c.run("update-ref", "refs/heads/"+branch, commitHash); err != nil {
		return fmt.Errorf("failed to update ref %s to %s: %w", branch, commitHash, err)
	}
	return nil
}

// HasUncommittedChanges reports whether the working tree or index is dirty.
func (c *Client) HasUncommittedChanges() (bool, error) {
	out, err := c.run("status", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("failed to check git status: %w", err)
	}
	return out != "", nil
}

// IsAncestor reports whether ancestor is reachable from descendant.
func (c *Client) IsAncestor(ancestor, descendant string) bool {
	cmd := exec.Command("git", "merge-base", "--is-ancestor", ancestor, descendant)
	cmd.Dir = c.gitRoot
	return cmd.Run() == nil
}

// MergeBase returns the best common ancestor of two commits.
func (c *Client) MergeBase(a, b string) (string, error) {
	out, err := c.run("merge-base", a, b)
	if err != nil {
		return "", fmt.Errorf("failed to get merge base of %s and %s: %w", a, b, err)
	}
	return out, nil
}

// CommitCount returns the number of commits on branch that are not on base.
func (c *Client) CommitCount(branch, base string) (int, error) {
	out, err := c.run("rev-list", "--count", base+".."+branch)
	if err != nil {
		return 0, fmt.Errorf("failed to count commits on %s: %w", branch, err)
	}
	var n int
	if _, err := fmt.Sscanf(out, "%d", &n); err != nil {
		return 0, fmt.Errorf("unexpected rev-list output %q: %w", out, err)
	}
	return n, nil
}

// RebaseOnto replays the commits of branch above the upstream boundary onto
// newBase. On conflict the rebase is left in progress and a ConflictError
// carrying the conflicting paths is returned.
func (c *Client) RebaseOnto(branch, newBase, upstream string) error {
	dirty, err := c.HasUncommittedChanges()
	if err != nil {
		return err
	}
	if dirty {
		return &WorkingTreeDirtyError{}
	}
	if _, err := c.runCombined("rebase", "--onto", newBase, upstream, branch); err != nil {
		if c.RebaseInProgress() {
			return &ConflictError{Branch: branch, Onto: newBase, Paths: c.conflictedPaths()}
		}
		return fmt.Errorf("failed to rebase %s onto %s: %w", branch, newBase, err)
	}
	return nil
}

// RebaseContinue resumes an in-progress rebase after conflict resolution.
func (c *Client) RebaseContinue() error {
	cmd := exec.Command("git", "rebase", "--continue")
	cmd.Dir = c.gitRoot
	cmd.Env = append(os.Environ(), "GIT_EDITOR=true")
	out, err := cmd.CombinedOutput()
	if err != nil {
		if c.RebaseInProgress() {
			state, _ := c.RebaseState()
			return &ConflictError{Branch: state.Branch, Onto: state.Onto, Paths: c.conflictedPaths()}
		}
		return fmt.Errorf("failed to continue rebase: %s", strings.TrimSpace(string(out)))
	}
	return nil
}

// RebaseAbort aborts an in-progress rebase. Aborting when no rebase is in
// progress is not an error.
func (c *Client) RebaseAbort() error {
	if !c.RebaseInProgress() {
		return nil
	}
	if _, err := c.runCombined("rebase", "--abort"); err != nil {
		return fmt.Errorf("failed to abort rebase: %w", err)
	}
	return nil
}

// RebaseStatus describes an in-progress rebase.
type RebaseStatus struct {
	InProgress bool
	Branch     string
	Onto       string
}

// RebaseInProgress reports whether a rebase is currently in progress.
func (c *Client) RebaseInProgress() bool {
	for _, dir := range []string{"rebase-merge", "rebase-apply"} {
		if _, err := os.Stat(filepath.Join(c.gitRoot, ".git", dir)); err == nil {
			return true
		}
	}
	return false
}

// RebaseState returns the branch and target of the in-progress rebase, if any.
func (c *Client) RebaseState() (RebaseStatus, error) {
	if !c.RebaseInProgress() {
		return RebaseStatus{}, nil
	}
	state := RebaseStatus{InProgress: true}
	for _, dir := range []string{"rebase-merge", "rebase-apply"} {
		base := filepath.Join(c.gitRoot, ".git", dir)
		if data, err := os.ReadFile(filepath.Join(base, "head-name")); err == nil {
			state.Branch = strings.TrimPrefix(strings.TrimSpace(string(data)), "refs/heads/")
		}
		if data, err := os.ReadFile(filepath.Join(base, "onto")); err == nil {
			state.Onto = strings.TrimSpace(string(data))
		}
	}
	return state, nil
}

func (c *Client) conflictedPaths() []string {
	out, err := c.run("diff", "--name-only", "--diff-filter=U")
	if err != nil || out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}

// Fetch fetches from the given remote.
func (c *Client) Fetch(remote string) error {
	if _, err := c.runCombined("fetch", remote); err != nil {
		return fmt.Errorf("failed to fetch from %s: %w", remote, err)
	}
	return nil
}

// RemoteName returns origin when it is configured, otherwise the first
// listed remote.
func (c *Client) RemoteName() (string, error) {
	out, err := c.run("remote")
	if err != nil {
		return "", fmt.Errorf("failed to list remotes: %w", err)
	}
	remotes := strings.Split(out, "\n")
	if len(remotes) == 0 || remotes[0] == "" {
		return "", fmt.Errorf("no git remote configured")
	}
	for _, r := range remotes {
		if r == "origin" {
			return "origin", nil
		}
	}
	return remotes[0], nil
}

// RemoteURL returns the fetch URL of a remote, or "" if unset.
func (c *Client) RemoteURL(remote string) string {
	out, err := c.run("remote", "get-url", remote)
	if err != nil {
		return ""
	}
	return out
}

// RemoteHead returns the last-fetched head of a remote branch, or "" if the
// remote-tracking ref does not exist.
func (c *Client) RemoteHead(remote, branch string) string {
	out, err := c.run("rev-parse", fmt.Sprintf("refs/remotes/%s/%s", remote, branch))
	if err != nil {
		return ""
	}
	return out
}

// PushWithLease pushes a branch, refusing if the remote moved past
// expectedRemoteHead. An empty expected head means the branch must not exist
// on the remote yet.
func (c *Client) PushWithLease(remote, branch, expectedRemoteHead string) error {
	lease := fmt.Sprintf("--force-with-lease=%s:%s", branch, expectedRemoteHead)
	if expectedRemoteHead == "" {
		lease = fmt.Sprintf("--force-with-lease=%s:", branch)
	}
	out, err := c.runCombined("push", lease, remote, branch)
	if err != nil {
		if strings.Contains(out, "stale info") || strings.Contains(out, "[rejected]") {
			return &DivergedError{Branch: branch, Expected: expectedRemoteHead, Actual: c.RemoteHead(remote, branch)}
		}
		return fmt.Errorf("failed to push branch %s: %s", branch, out)
	}
	return nil
}

// DeleteRemoteBranch deletes a branch on the remote.
func (c *Client) DeleteRemoteBranch(remote, branch string) error {
	if _, err := c.runCombined("push", remote, "--delete", branch); err != nil {
		return fmt.Errorf("failed to delete remote branch %s: %w", branch, err)
	}
	return nil
}

// FastForward moves a local branch to its remote-tracking head. The branch is
// created if it does not exist locally.
func (c *Client) FastForward(remote, branch string) error {
	remoteHead := c.RemoteHead(remote, branch)
	if remoteHead == "" {
		return &RefMissingError{Ref: remote + "/" + branch}
	}
	if !c.BranchExists(branch) {
		return c.CreateBranch(branch, remoteHead)
	}
	localHead, err := c.ReadHead(branch)
	if err != nil {
		return err
	}
	if localHead == remoteHead {
		return nil
	}
	if !c.IsAncestor(localHead, remoteHead) {
		return &DivergedError{Branch: branch, Expected: localHead, Actual: remoteHead}
	}
	return c.UpdateRef(branch, remoteHead)
}

// StageAll stages every change in the working tree.
func (c *Client) StageAll() error {
	if _, err := c.runCombined("add", "-A"); err != nil {
		return fmt.Errorf("failed to stage changes: %w", err)
	}
	return nil
}

// Commit creates a commit with the given message.
func (c *Client) Commit(message string) error {
	if out, err := c.runCombined("commit", "-m", message); err != nil {
		return fmt.Errorf("failed to commit: %s", out)
	}
	return nil
}

// AmendCommit amends HEAD, keeping the message unless a new one is given.
func (c *Client) AmendCommit(message string) error {
	args := []string{"commit", "--amend"}
	if message != "" {
		args = append(args, "-m", message)
	} else {
		args = append(args, "--no-edit")
	}
	if out, err := c.runCombined(args...); err != nil {
		return fmt.Errorf("failed to amend commit: %s", out)
	}
	return nil
}

// CherryPick applies a commit onto HEAD.
func (c *Client) CherryPick(commitHash string) error {
	if out, err := c.runCombined("cherry-pick", commitHash); err != nil {
		return fmt.Errorf("failed to cherry-pick %s: %s", commitHash, out)
	}
	return nil
}

// ResetHard resets the current branch and working tree to a ref.
func (c *Client) ResetHard(ref string) error {
	if _, err := c.runCombined("reset", "--hard", ref); err != nil {
		return fmt.Errorf("failed to reset to %s: %w", ref, err)
	}
	return nil
}

// CommitSubject returns the subject line of a commit.
func (c *Client) CommitSubject(ref string) (string, error) {
	out, err := c.run("log", "--format=%s", "-n", "1", ref)
	if err != nil {
		return "", fmt.Errorf("failed to read commit subject for %s: %w", ref, err)
	}
	return out, nil
}

// LocalBranches lists all local branch names.
func (c *Client) LocalBranches() ([]string, error) {
	out, err := c.run("for-each-ref", "--format=%(refname:short)", "refs/heads/")
	if err != nil {
		return nil, fmt.Errorf("failed to list branches: %w", err)
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}
