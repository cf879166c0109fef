package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/pancake-cli/pancake/internal/git"
	"github.com/pancake-cli/pancake/internal/model"
)

// SchemaVersion is the current stacks.json schema version.
const SchemaVersion = 1

// Store owns the persistent form of the stack tree under .pancake/.
// Writes are atomic-replace; reads are lock-free snapshots.
type Store struct {
	dir string // the .pancake directory

	// extra preserves unknown top-level fields from newer schema versions.
	extra map[string]json.RawMessage
}

// MetadataCorruptError reports an unreadable or unparsable stacks.json.
type MetadataCorruptError struct {
	Path string
	Err  error
}

func (e *MetadataCorruptError) Error() string {
	return fmt.Sprintf("stack metadata at %s is corrupt: %v", e.Path, e.Err)
}

func (e *MetadataCorruptError) Unwrap() error { return e.Err }

// New creates a store rooted at the repository's .pancake directory.
func New(repoRoot string) *Store {
	return &Store{dir: filepath.Join(repoRoot, ".pancake")}
}

// Dir returns the .pancake directory path.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) stacksPath() string {
	return filepath.Join(s.dir, "stacks.json")
}

// Exists reports whether a metadata file is present.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.stacksPath())
	return err == nil
}

// Load reads a snapshot of the stack tree. A missing file yields an empty
// tree; an unreadable one yields MetadataCorruptError.
func (s *Store) Load(trunk string, maxDepth int) (*model.Tree, error) {
	tree := model.NewTree(trunk, maxDepth)
	data, err := os.ReadFile(s.stacksPath())
	if err != nil {
		if os.IsNotExist(err) {
			return tree, nil
		}
		return nil, &MetadataCorruptError{Path: s.stacksPath(), Err: err}
	}
	if err := s.decode(data, tree); err != nil {
		return nil, &MetadataCorruptError{Path: s.stacksPath(), Err: err}
	}
	return tree, nil
}

// Raw returns the current metadata file bytes, for journal pre-images. A
// missing file yields nil.
func (s *Store) Raw() ([]byte, error) {
	data, err := os.ReadFile(s.stacksPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}
	return data, nil
}

// Save writes the tree with an atomic replace: temp file, flush, rename.
func (s *Store) Save(tree *model.Tree) error {
	data, err := s.encode(tree)
	if err != nil {
		return fmt.Errorf("failed to marshal stack metadata: %w", err)
	}
	return s.writeAtomic(data)
}

// Restore writes raw metadata bytes back (journal pre-image application).
// Nil bytes remove the file.
func (s *Store) Restore(raw []byte) error {
	if raw == nil {
		if err := os.Remove(s.stacksPath()); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove metadata: %w", err)
		}
		return nil
	}
	return s.writeAtomic(raw)
}

func (s *Store) writeAtomic(data []byte) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", s.dir, err)
	}
	tmp, err := os.CreateTemp(s.dir, "stacks-*.json.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to flush metadata: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.stacksPath()); err != nil {
		return fmt.Errorf("failed to replace metadata: %w", err)
	}
	return nil
}

// MirrorNotes writes each branch's parent and anchor into the VCS annotation
// namespace keyed by its head commit, so the tree survives a lost .pancake/.
func (s *Store) MirrorNotes(g *git.Client, tree *model.Tree) error {
	for _, name := range tree.Names() {
		b := tree.Branches[name]
		if b.Head == "" {
			continue
		}
		note := git.Note{Branch: b.Name, Parent: b.Parent, Anchor: b.Anchor}
		if err := g.WriteNote(b.Head, note); err != nil {
			return fmt.Errorf("failed to mirror note for %s: %w", name, err)
		}
	}
	return nil
}

// RebuildFromNotes reconstructs a tree by scanning the annotation namespace.
// Annotations whose branch no longer points at the annotated commit are
// adopted with the parent recovered but the anchor reset.
func RebuildFromNotes(g *git.Client, trunk string, maxDepth int) (*model.Tree, error) {
	notes, err := g.ListNotes()
	if err != nil {
		return nil, err
	}
	tree := model.NewTree(trunk, maxDepth)
	commits := make([]string, 0, len(notes))
	for commit := range notes {
		commits = append(commits, commit)
	}
	sort.Strings(commits)
	for _, commit := range commits {
		note := notes[commit]
		if tree.Tracked(note.Branch) {
			continue
		}
		head, err := g.ReadHead(note.Branch)
		if err != nil {
			continue // branch is gone; its annotation is garbage
		}
		b := &model.Branch{
			Name:   note.Branch,
			Parent: note.Parent,
			Head:   head,
			Anchor: note.Anchor,
		}
		if head != commit {
			b.Anchor = "" // stale annotation: parent recovered, anchor reset
		}
		tree.Branches[note.Branch] = b
	}
	// Child lists are derived from the recovered parent pointers.
	for _, name := range tree.Names() {
		b := tree.Branches[name]
		if parent, ok := tree.Branches[b.Parent]; ok {
			parent.Children = append(parent.Children, name)
		}
	}
	return tree, nil
}
