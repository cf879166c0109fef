package git

import (
	"encoding/json"
	"fmt"
	"strings"
)

// notesRef is the namespace Pancake uses to mirror stack metadata into the
// object database, so a clone that lost .pancake/ can rebuild its tree.
const notesRef = "refs/notes/pancake"

// Note is the per-commit annotation payload mirrored for each tracked branch.
type Note struct {
	Branch string `json:"branch"`
	Parent string `json:"parent"`
	Anchor string `json:"anchor"`
}

// WriteNote attaches (or replaces) the annotation on a commit.
func (c *Client) WriteNote(commitHash string, note Note) error {
	payload, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("failed to marshal note: %w", err)
	}
	if _, err := c.run("notes", "--ref="+notesRef, "add", "-f", "-m", string(payload), commitHash); err != nil {
		return fmt.Errorf("failed to write note on %s: %w", commitHash, err)
	}
	return nil
}

// ReadNote returns the annotation on a commit, or nil if there is none.
func (c *Client) ReadNote(commitHash string) (*Note, error) {
	out, err := c.run("notes", "--ref="+notesRef, "show", commitHash)
	if err != nil {
		return nil, nil
	}
	var note Note
	if err := json.Unmarshal([]byte(out), &note); err != nil {
		return nil, fmt.Errorf("failed to parse note on %s: %w", commitHash, err)
	}
	return &note, nil
}

// RemoveNote deletes the annotation on a commit if present.
func (c *Client) RemoveNote(commitHash string) error {
	if _, err := c.run("notes", "--ref="+notesRef, "remove", "--ignore-missing", commitHash); err != nil {
		return fmt.Errorf("failed to remove note on %s: %w", commitHash, err)
	}
	return nil
}

// ListNotes returns every annotation in the namespace keyed by the annotated
// commit hash.
func (c *Client) ListNotes() (map[string]Note, error) {
	out, err := c.run("notes", "--ref="+notesRef, "list")
	if err != nil {
		// The notes ref does not exist until the first note is written.
		return map[string]Note{}, nil
	}
	notes := make(map[string]Note)
	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		commit := fields[1]
		note, err := c.ReadNote(commit)
		if err != nil {
			return nil, err
		}
		if note != nil {
			notes[commit] = *note
		}
	}
	return notes, nil
}
