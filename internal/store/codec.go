package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pancake-cli/pancake/internal/model"
)

// The codec round-trips unknown fields: both the file and each branch entry
// are decoded through a raw map first, known keys pulled out, and the
// remainder carried on Extra so a newer Pancake's data survives ours.

var knownFileKeys = map[string]bool{"version": true, "branches": true}

var knownBranchKeys = map[string]bool{
	"name": true, "parent": true, "children": true, "head": true,
	"anchor": true, "created_at": true, "pr": true,
}

type branchJSON struct {
	Name      string    `json:"name"`
	Parent    *string   `json:"parent"`
	Children  []string  `json:"children"`
	Head      string    `json:"head"`
	Anchor    string    `json:"anchor"`
	CreatedAt time.Time `json:"created_at"`
	PR        *model.PR `json:"pr"`
}

func (s *Store) decode(data []byte, tree *model.Tree) error {
	var file map[string]json.RawMessage
	if err := json.Unmarshal(data, &file); err != nil {
		return err
	}
	var version int
	if raw, ok := file["version"]; ok {
		if err := json.Unmarshal(raw, &version); err != nil {
			return fmt.Errorf("bad version field: %w", err)
		}
	}
	if version == 0 {
		version = SchemaVersion
	}
	s.extra = make(map[string]json.RawMessage)
	for k, v := range file {
		if !knownFileKeys[k] {
			s.extra[k] = v
		}
	}

	var rawBranches []json.RawMessage
	if raw, ok := file["branches"]; ok {
		if err := json.Unmarshal(raw, &rawBranches); err != nil {
			return fmt.Errorf("bad branches field: %w", err)
		}
	}
	for _, raw := range rawBranches {
		var bj branchJSON
		if err := json.Unmarshal(raw, &bj); err != nil {
			return fmt.Errorf("bad branch entry: %w", err)
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return err
		}
		b := &model.Branch{
			Name:      bj.Name,
			Children:  bj.Children,
			Head:      bj.Head,
			Anchor:    bj.Anchor,
			CreatedAt: bj.CreatedAt,
			PR:        bj.PR,
		}
		if bj.Parent != nil {
			b.Parent = *bj.Parent
		} else {
			b.Parent = tree.Trunk
		}
		for k, v := range fields {
			if !knownBranchKeys[k] {
				if b.Extra == nil {
					b.Extra = make(map[string]json.RawMessage)
				}
				b.Extra[k] = v
			}
		}
		tree.Branches[b.Name] = b
	}
	return nil
}

func (s *Store) encode(tree *model.Tree) ([]byte, error) {
	branches := make([]json.RawMessage, 0, len(tree.Branches))
	for _, name := range tree.Names() {
		b := tree.Branches[name]
		fields := make(map[string]json.RawMessage, len(b.Extra)+7)
		for k, v := range b.Extra {
			fields[k] = v
		}
		put := func(key string, value interface{}) error {
			raw, err := json.Marshal(value)
			if err != nil {
				return err
			}
			fields[key] = raw
			return nil
		}
		var parent interface{} = b.Parent
		if b.Parent == tree.Trunk {
			// Stack bottoms persist a null parent: the trunk is not a node.
			parent = nil
		}
		children := b.Children
		if children == nil {
			children = []string{}
		}
		for key, value := range map[string]interface{}{
			"name": b.Name, "parent": parent, "children": children,
			"head": b.Head, "anchor": b.Anchor, "created_at": b.CreatedAt,
			"pr": b.PR,
		} {
			if err := put(key, value); err != nil {
				return nil, err
			}
		}
		// encoding/json sorts map keys, so entries are byte-stable.
		raw, err := json.Marshal(fields)
		if err != nil {
			return nil, err
		}
		branches = append(branches, raw)
	}

	file := make(map[string]json.RawMessage, len(s.extra)+2)
	for k, v := range s.extra {
		file[k] = v
	}
	versionRaw, _ := json.Marshal(SchemaVersion)
	file["version"] = versionRaw
	branchesRaw, err := json.Marshal(branches)
	if err != nil {
		return nil, err
	}
	file["branches"] = branchesRaw
	return json.MarshalIndent(file, "", "  ")
}
