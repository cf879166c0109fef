package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/pancake-cli/pancake/internal/model"
)

// State is the lifecycle state of a journal entry.
type State string

const (
	StateOpen      State = "open"
	StateSuspended State = "suspended"
	StateCommitted State = "committed"
	StateAborted   State = "aborted"
	StateUndone    State = "undone"
)

// Entry is the durable record of one attempted operation. The journal is the
// externalized continuation: resuming an interrupted operation is a fresh
// process re-running the plan. NextStep records the first incomplete step.
type Entry struct {
	ID           string            `json:"id"`
	Seq          int               `json:"seq"`
	Intent       model.Intent      `json:"intent"`
	Plan         model.Plan        `json:"plan"`
	PreMetadata  json.RawMessage   `json:"pre_metadata"`
	PreHeads     map[string]string `json:"pre_heads"`
	PostHeads    map[string]string `json:"post_heads,omitempty"`
	PostMetadata json.RawMessage   `json:"post_metadata,omitempty"`
	NextStep     int               `json:"next_step"`
	State        State             `json:"state"`
	Hint         string            `json:"hint,omitempty"`
	OpenedAt     time.Time         `json:"opened_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// Pending reports whether the entry still owns in-flight work.
func (e *Entry) Pending() bool {
	return e.State == StateOpen || e.State == StateSuspended
}

// Involves reports whether the entry's plan touches the given branch.
func (e *Entry) Involves(branch string) bool {
	for _, name := range e.Plan.Touches() {
		if name == branch {
			return true
		}
	}
	return false
}

// Journal is the append-only operation log at .pancake/journal.log, one JSON
// object per line. An entry is updated by appending a new version with the
// same id; the last version wins on replay.
type Journal struct {
	path string
}

// Open returns the journal for a .pancake directory.
func Open(dir string) *Journal {
	return &Journal{path: filepath.Join(dir, "journal.log")}
}

// NewEntry allocates an entry with a fresh id and the next sequence number.
func (j *Journal) NewEntry(intent model.Intent, plan model.Plan) (*Entry, error) {
	entries, err := j.Entries()
	if err != nil {
		return nil, err
	}
	seq := 1
	if len(entries) > 0 {
		seq = entries[len(entries)-1].Seq + 1
	}
	now := time.Now()
	return &Entry{
		ID:       uuid.New().String(),
		Seq:      seq,
		Intent:   intent,
		Plan:     plan,
		PreHeads: make(map[string]string),
		State:    StateOpen,
		OpenedAt: now,
	}, nil
}

// Append durably records the entry's current state.
func (j *Journal) Append(e *Entry) error {
	e.UpdatedAt = time.Now()
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal journal entry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(j.path), 0755); err != nil {
		return fmt.Errorf("failed to create journal directory: %w", err)
	}
	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to append journal entry: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to flush journal: %w", err)
	}
	return nil
}

// Entries replays the log and returns the latest version of every entry in
// sequence order.
func (j *Journal) Entries() ([]*Entry, error) {
	f, err := os.Open(j.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	defer f.Close()

	latest := make(map[string]*Entry)
	var order []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("failed to parse journal entry: %w", err)
		}
		if _, seen := latest[e.ID]; !seen {
			order = append(order, e.ID)
		}
		latest[e.ID] = &e
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}
	entries := make([]*Entry, 0, len(order))
	for _, id := range order {
		entries = append(entries, latest[id])
	}
	return entries, nil
}

// Pending returns the single open or suspended entry, if any. The metadata
// lock guarantees at most one exists.
func (j *Journal) Pending() (*Entry, error) {
	entries, err := j.Entries()
	if err != nil {
		return nil, err
	}
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Pending() {
			return entries[i], nil
		}
	}
	return nil, nil
}

// LastCommitted returns the most recent entry in the committed state, or nil
// if there is none.
func (j *Journal) LastCommitted() (*Entry, error) {
	entries, err := j.Entries()
	if err != nil {
		return nil, err
	}
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].State == StateCommitted {
			return entries[i], nil
		}
	}
	return nil, nil
}

// LastUndone returns the most recent entry, if it is in the undone state.
// Redo is only legal while the undo is still the newest operation.
func (j *Journal) LastUndone() (*Entry, error) {
	entries, err := j.Entries()
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	last := entries[len(entries)-1]
	if last.State == StateUndone {
		return last, nil
	}
	return nil, nil
}
