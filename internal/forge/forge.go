package forge

import (
	"fmt"
	"time"
)

// PRSpec describes a pull request to create or sync.
type PRSpec struct {
	Branch string
	Base   string
	Title  string
	Body   string
	Draft  bool
}

// PRUpdate carries the fields of an existing pull request to change. Nil
// pointers leave the field untouched.
type PRUpdate struct {
	Base  *string
	Title *string
	Body  *string
	Draft *bool
	State *string // open, closed, merged
	// MergeMode selects the merge strategy when State is "merged":
	// squash, merge, or rebase.
	MergeMode string
}

// PRStatus is the last-seen review and CI summary for a pull request.
type PRStatus struct {
	Review    string
	CI        string
	Merged    bool
	Closed    bool
	FetchedAt time.Time
}

// PRInfo identifies a pull request on the forge.
type PRInfo struct {
	Branch string
	ID     int
	State  string
	URL    string
}

// Forge is the narrow capability set Pancake needs from a code host. Create
// and update are idempotent on retry: creating a PR for a branch that
// already has one returns the existing id.
type Forge interface {
	CreatePR(spec PRSpec) (*PRInfo, error)
	UpdatePR(id int, upd PRUpdate) error
	GetPRStatus(id int) (*PRStatus, error)
	GetPRBody(id int) (string, error)
	ListPRs() ([]PRInfo, error)
}

// UnreachableError reports a forge call that failed at the transport level.
type UnreachableError struct {
	Err error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("forge unreachable: %v", e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }

// AuthError reports a rejected or missing credential.
type AuthError struct {
	Detail string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("forge authentication failed: %s", e.Detail)
}

// New returns the forge implementation for a kind ("github" or "gitlab").
func New(kind, token string, timeout time.Duration) (Forge, error) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	switch kind {
	case "", "github":
		return &GitHub{token: token, timeout: timeout}, nil
	case "gitlab":
		return &GitLab{token: token, timeout: timeout}, nil
	default:
		return nil, fmt.Errorf("unknown forge kind '%s'", kind)
	}
}
