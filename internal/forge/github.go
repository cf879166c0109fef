package forge

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// GitHub talks to GitHub through the gh CLI.
type GitHub struct {
	token   string
	timeout time.Duration
}

func (g *GitHub) exec(args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, "gh", args...)
	if g.token != "" {
		cmd.Env = append(os.Environ(), "GH_TOKEN="+g.token)
	}
	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, &UnreachableError{Err: ctx.Err()}
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			stderr := strings.TrimSpace(string(exitErr.Stderr))
			if strings.Contains(stderr, "authentication") || strings.Contains(stderr, "HTTP 401") {
				return nil, &AuthError{Detail: stderr}
			}
			return nil, fmt.Errorf("gh: %s", stderr)
		}
		return nil, &UnreachableError{Err: err}
	}
	return output, nil
}

type ghPR struct {
	Number  int    `json:"number"`
	URL     string `json:"url"`
	State   string `json:"state"`
	IsDraft bool   `json:"isDraft"`
	Head    string `json:"headRefName"`
}

// CreatePR creates a pull request, returning the existing one if the branch
// already has an open PR.
func (g *GitHub) CreatePR(spec PRSpec) (*PRInfo, error) {
	if existing, err := g.findByHead(spec.Branch); err == nil && existing != nil {
		return existing, nil
	}
	args := []string{
		"pr", "create",
		"--head", spec.Branch,
		"--base", spec.Base,
		"--title", spec.Title,
		"--body", spec.Body,
	}
	if spec.Draft {
		args = append(args, "--draft")
	}
	if _, err := g.exec(args...); err != nil {
		// Lost the race: another submit created it first.
		if strings.Contains(err.Error(), "already exists") {
			if existing, findErr := g.findByHead(spec.Branch); findErr == nil && existing != nil {
				return existing, nil
			}
		}
		return nil, err
	}
	pr, err := g.findByHead(spec.Branch)
	if err != nil {
		return nil, err
	}
	if pr == nil {
		return nil, fmt.Errorf("PR for %s was created but not found", spec.Branch)
	}
	return pr, nil
}

// UpdatePR edits an existing pull request.
func (g *GitHub) UpdatePR(id int, upd PRUpdate) error {
	num := fmt.Sprintf("%d", id)
	if upd.State != nil && *upd.State == "merged" {
		args := []string{"pr", "merge", num}
		switch upd.MergeMode {
		case "", "squash":
			args = append(args, "--squash")
		case "merge":
			args = append(args, "--merge")
		case "rebase":
			args = append(args, "--rebase")
		}
		_, err := g.exec(args...)
		return err
	}
	if upd.State != nil && *upd.State == "closed" {
		_, err := g.exec("pr", "close", num)
		return err
	}

	editArgs := []string{"pr", "edit", num}
	if upd.Base != nil {
		editArgs = append(editArgs, "--base", *upd.Base)
	}
	if upd.Title != nil {
		editArgs = append(editArgs, "--title", *upd.Title)
	}
	if upd.Body != nil {
		editArgs = append(editArgs, "--body", *upd.Body)
	}
	if len(editArgs) > 3 {
		if _, err := g.exec(editArgs...); err != nil {
			return err
		}
	}
	if upd.Draft != nil {
		if *upd.Draft {
			if _, err := g.exec("pr", "ready", num, "--undo"); err != nil {
				return err
			}
		} else {
			if _, err := g.exec("pr", "ready", num); err != nil {
				return err
			}
		}
	}
	return nil
}

// GetPRStatus fetches the review and CI summary for a pull request.
func (g *GitHub) GetPRStatus(id int) (*PRStatus, error) {
	out, err := g.exec(
		"pr", "view", fmt.Sprintf("%d", id),
		"--json", "state,reviewDecision,statusCheckRollup,mergedAt",
	)
	if err != nil {
		return nil, err
	}
	var raw struct {
		State          string `json:"state"`
		ReviewDecision string `json:"reviewDecision"`
		MergedAt       string `json:"mergedAt"`
		Checks         []struct {
			Conclusion string `json:"conclusion"`
		} `json:"statusCheckRollup"`
	}
	if err := json.Unmarshal(out, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse PR status: %w", err)
	}
	status := &PRStatus{
		Review:    strings.ToLower(raw.ReviewDecision),
		CI:        summarizeChecks(raw.Checks),
		Merged:    raw.MergedAt != "",
		Closed:    strings.EqualFold(raw.State, "CLOSED"),
		FetchedAt: time.Now(),
	}
	return status, nil
}

// GetPRBody fetches the current body of a pull request.
func (g *GitHub) GetPRBody(id int) (string, error) {
	out, err := g.exec("pr", "view", fmt.Sprintf("%d", id), "--json", "body")
	if err != nil {
		return "", err
	}
	var raw struct {
		Body string `json:"body"`
	}
	if err := json.Unmarshal(out, &raw); err != nil {
		return "", fmt.Errorf("failed to parse PR body: %w", err)
	}
	return raw.Body, nil
}

// ListPRs lists pull requests of every state (open, closed, merged) for the
// repository, up to 200.
func (g *GitHub) ListPRs() ([]PRInfo, error) {
	out, err := g.exec(
		"pr", "list", "--state", "all", "--limit", "200",
		"--json", "number,url,state,isDraft,headRefName",
	)
	if err != nil {
		return nil, err
	}
	var prs []ghPR
	if err := json.Unmarshal(out, &prs); err != nil {
		return nil, fmt.Errorf("failed to parse PR list: %w", err)
	}
	infos := make([]PRInfo, 0, len(prs))
	for _, pr := range prs {
		infos = append(infos, PRInfo{
			Branch: pr.Head,
			ID:     pr.Number,
			State:  normalizeState(pr.State, pr.IsDraft),
			URL:    pr.URL,
		})
	}
	return infos, nil
}

func (g *GitHub) findByHead(head string) (*PRInfo, error) {
	out, err := g.exec(
		"pr", "list", "--head", head, "--state", "open",
		"--json", "number,url,state,isDraft,headRefName", "--limit", "1",
	)
	if err != nil {
		return nil, err
	}
	var prs []ghPR
	if err := json.Unmarshal(out, &prs); err != nil {
		return nil, fmt.Errorf("failed to parse PR list: %w", err)
	}
	if len(prs) == 0 {
		return nil, nil
	}
	return &PRInfo{
		Branch: prs[0].Head,
		ID:     prs[0].Number,
		State:  normalizeState(prs[0].State, prs[0].IsDraft),
		URL:    prs[0].URL,
	}, nil
}

func summarizeChecks(checks []struct {
	Conclusion string `json:"conclusion"`
}) string {
	if len(checks) == 0 {
		return "none"
	}
	for _, c := range checks {
		switch strings.ToUpper(c.Conclusion) {
		case "FAILURE", "TIMED_OUT", "CANCELLED":
			return "failing"
		case "", "NEUTRAL", "QUEUED", "IN_PROGRESS":
			return "pending"
		}
	}
	return "passing"
}

// normalizeState maps the forge's uppercase states onto pancake's lowercase
// vocabulary, deriving "draft" from the draft flag.
func normalizeState(state string, isDraft bool) string {
	state = strings.ToLower(state)
	if state == "open" && isDraft {
		return "draft"
	}
	return state
}
