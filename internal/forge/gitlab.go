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

// GitLab talks to GitLab through the glab CLI. Merge requests are surfaced
// through the same PR-shaped interface GitHub uses.
type GitLab struct {
	token   string
	timeout time.Duration
}

func (g *GitLab) exec(args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, "glab", args...)
	if g.token != "" {
		cmd.Env = append(os.Environ(), "GITLAB_TOKEN="+g.token)
	}
	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, &UnreachableError{Err: ctx.Err()}
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			stderr := strings.TrimSpace(string(exitErr.Stderr))
			if strings.Contains(stderr, "401") || strings.Contains(stderr, "authentication") {
				return nil, &AuthError{Detail: stderr}
			}
			return nil, fmt.Errorf("glab: %s", stderr)
		}
		return nil, &UnreachableError{Err: err}
	}
	return output, nil
}

type glabMR struct {
	IID          int    `json:"iid"`
	WebURL       string `json:"web_url"`
	State        string `json:"state"`
	Draft        bool   `json:"draft"`
	SourceBranch string `json:"source_branch"`
}

func (m *glabMR) toInfo() PRInfo {
	state := m.State // opened, closed, merged
	if state == "opened" {
		state = "open"
		if m.Draft {
			state = "draft"
		}
	}
	return PRInfo{Branch: m.SourceBranch, ID: m.IID, State: state, URL: m.WebURL}
}

func (g *GitLab) CreatePR(spec PRSpec) (*PRInfo, error) {
	if existing, err := g.findBySource(spec.Branch); err == nil && existing != nil {
		return existing, nil
	}
	args := []string{
		"mr", "create",
		"--source-branch", spec.Branch,
		"--target-branch", spec.Base,
		"--title", spec.Title,
		"--description", spec.Body,
		"--yes",
	}
	if spec.Draft {
		args = append(args, "--draft")
	}
	if _, err := g.exec(args...); err != nil {
		if strings.Contains(err.Error(), "already exists") {
			if existing, findErr := g.findBySource(spec.Branch); findErr == nil && existing != nil {
				return existing, nil
			}
		}
		return nil, err
	}
	mr, err := g.findBySource(spec.Branch)
	if err != nil {
		return nil, err
	}
	if mr == nil {
		return nil, fmt.Errorf("MR for %s was created but not found", spec.Branch)
	}
	return mr, nil
}

func (g *GitLab) UpdatePR(id int, upd PRUpdate) error {
	num := fmt.Sprintf("%d", id)
	if upd.State != nil && *upd.State == "merged" {
		args := []string{"mr", "merge", num, "--yes"}
		if upd.MergeMode == "" || upd.MergeMode == "squash" {
			args = append(args, "--squash")
		}
		_, err := g.exec(args...)
		return err
	}
	if upd.State != nil && *upd.State == "closed" {
		_, err := g.exec("mr", "close", num)
		return err
	}

	args := []string{"mr", "update", num}
	if upd.Base != nil {
		args = append(args, "--target-branch", *upd.Base)
	}
	if upd.Title != nil {
		args = append(args, "--title", *upd.Title)
	}
	if upd.Body != nil {
		args = append(args, "--description", *upd.Body)
	}
	if upd.Draft != nil {
		if *upd.Draft {
			args = append(args, "--draft")
		} else {
			args = append(args, "--ready")
		}
	}
	if len(args) == 3 {
		return nil
	}
	_, err := g.exec(args...)
	return err
}

func (g *GitLab) GetPRStatus(id int) (*PRStatus, error) {
	out, err := g.exec("mr", "view", fmt.Sprintf("%d", id), "--output", "json")
	if err != nil {
		return nil, err
	}
	var raw struct {
		State               string `json:"state"`
		DetailedMergeStatus string `json:"detailed_merge_status"`
		HeadPipeline        *struct {
			Status string `json:"status"`
		} `json:"head_pipeline"`
	}
	if err := json.Unmarshal(out, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse MR status: %w", err)
	}
	status := &PRStatus{
		Review:    raw.DetailedMergeStatus,
		CI:        "none",
		Merged:    raw.State == "merged",
		Closed:    raw.State == "closed",
		FetchedAt: time.Now(),
	}
	if raw.HeadPipeline != nil {
		switch raw.HeadPipeline.Status {
		case "success":
			status.CI = "passing"
		case "failed", "canceled":
			status.CI = "failing"
		default:
			status.CI = "pending"
		}
	}
	return status, nil
}

func (g *GitLab) GetPRBody(id int) (string, error) {
	out, err := g.exec("mr", "view", fmt.Sprintf("%d", id), "--output", "json")
	if err != nil {
		return "", err
	}
	var raw struct {
		Description string `json:"description"`
	}
	if err := json.Unmarshal(out, &raw); err != nil {
		return "", fmt.Errorf("failed to parse MR description: %w", err)
	}
	return raw.Description, nil
}

func (g *GitLab) ListPRs() ([]PRInfo, error) {
	out, err := g.exec("mr", "list", "--output", "json")
	if err != nil {
		return nil, err
	}
	var mrs []glabMR
	if err := json.Unmarshal(out, &mrs); err != nil {
		return nil, fmt.Errorf("failed to parse MR list: %w", err)
	}
	infos := make([]PRInfo, 0, len(mrs))
	for i := range mrs {
		infos = append(infos, mrs[i].toInfo())
	}
	return infos, nil
}

func (g *GitLab) findBySource(branch string) (*PRInfo, error) {
	out, err := g.exec("mr", "list", "--source-branch", branch, "--output", "json")
	if err != nil {
		return nil, err
	}
	var mrs []glabMR
	if err := json.Unmarshal(out, &mrs); err != nil {
		return nil, fmt.Errorf("failed to parse MR list: %w", err)
	}
	if len(mrs) == 0 {
		return nil, nil
	}
	info := mrs[0].toInfo()
	return &info, nil
}
