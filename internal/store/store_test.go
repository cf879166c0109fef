package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pancake-cli/pancake/internal/model"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	return New(t.TempDir())
}

func sampleTree() *model.Tree {
	tree := model.NewTree("main", model.DefaultMaxDepth)
	a := &model.Branch{
		Name: "feat-a", Parent: "main", Children: []string{"feat-b"},
		Head: "aaa", Anchor: "mmm",
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	b := &model.Branch{
		Name: "feat-b", Parent: "feat-a",
		Head: "bbb", Anchor: "aaa",
		CreatedAt: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		PR:        &model.PR{ID: 7, Base: "feat-a", Head: "bbb"},
	}
	tree.Branches["feat-a"] = a
	tree.Branches["feat-b"] = b
	return tree
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, s.Save(sampleTree()))

	loaded, err := s.Load("main", model.DefaultMaxDepth)
	require.NoError(t, err)

	assert.Equal(t, "main", loaded.Parent("feat-a"))
	assert.Equal(t, []string{"feat-b"}, loaded.Children("feat-a"))
	assert.Equal(t, "aaa", loaded.Branches["feat-a"].Head)
	assert.Equal(t, "aaa", loaded.Branches["feat-b"].Anchor)
	require.NotNil(t, loaded.Branches["feat-b"].PR)
	assert.Equal(t, 7, loaded.Branches["feat-b"].PR.ID)
	require.NoError(t, loaded.Validate())
}

func TestLoadMissingFileYieldsEmptyTree(t *testing.T) {
	s := tempStore(t)
	tree, err := s.Load("main", model.DefaultMaxDepth)
	require.NoError(t, err)
	assert.Empty(t, tree.Branches)
}

func TestTrunkParentPersistsAsNull(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, s.Save(sampleTree()))

	data, err := os.ReadFile(filepath.Join(s.Dir(), "stacks.json"))
	require.NoError(t, err)
	var file struct {
		Version  int `json:"version"`
		Branches []struct {
			Name   string  `json:"name"`
			Parent *string `json:"parent"`
		} `json:"branches"`
	}
	require.NoError(t, json.Unmarshal(data, &file))
	assert.Equal(t, SchemaVersion, file.Version)
	for _, b := range file.Branches {
		if b.Name == "feat-a" {
			assert.Nil(t, b.Parent, "stack bottoms persist a null parent")
		}
		if b.Name == "feat-b" {
			require.NotNil(t, b.Parent)
			assert.Equal(t, "feat-a", *b.Parent)
		}
	}
}

func TestUnknownFieldsSurviveRoundTrip(t *testing.T) {
	s := tempStore(t)
	raw := `{
		"version": 1,
		"future_field": {"nested": true},
		"branches": [
			{"name": "feat-a", "parent": null, "children": [], "head": "aaa",
			 "anchor": "", "created_at": "2024-01-01T00:00:00Z", "pr": null,
			 "future_branch_field": 42}
		]
	}`
	require.NoError(t, os.MkdirAll(s.Dir(), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "stacks.json"), []byte(raw), 0644))

	tree, err := s.Load("main", model.DefaultMaxDepth)
	require.NoError(t, err)
	require.NoError(t, s.Save(tree))

	data, err := os.ReadFile(filepath.Join(s.Dir(), "stacks.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "future_field")
	assert.Contains(t, string(data), "future_branch_field")
}

func TestCorruptMetadataReported(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, os.MkdirAll(s.Dir(), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "stacks.json"), []byte("{not json"), 0644))

	_, err := s.Load("main", model.DefaultMaxDepth)
	var corrupt *MetadataCorruptError
	assert.ErrorAs(t, err, &corrupt)
}

func TestRestoreNilRemovesFile(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, s.Save(sampleTree()))
	require.True(t, s.Exists())
	require.NoError(t, s.Restore(nil))
	assert.False(t, s.Exists())
}

func TestSaveIsByteStable(t *testing.T) {
	s := tempStore(t)
	tree := sampleTree()
	require.NoError(t, s.Save(tree))
	first, err := s.Raw()
	require.NoError(t, err)
	require.NoError(t, s.Save(tree))
	second, err := s.Raw()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
