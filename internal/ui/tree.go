package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss/tree"

	"github.com/pancake-cli/pancake/internal/model"
)

// RenderForest renders the tracked stacks as a tree rooted at the trunk.
// Example output:
//
//	main
//	├── feat-a #12 open (1a2b3c4) ← you are here
//	│   └── feat-b #13 draft (5d6e7f8)
//	└── fix-typo (9a0b1c2)
func RenderForest(t *model.Tree, current string) string {
	roots := t.Roots()
	if len(roots) == 0 {
		return Dim("No tracked branches yet. Create one with: ") + Highlight("pk bc <name>")
	}
	root := tree.Root(TreeRootStyle.Render(t.Trunk))
	for _, name := range roots {
		root.Child(branchNode(t, name, current))
	}
	root.EnumeratorStyle(TreeEnumeratorStyle)
	return root.String()
}

func branchNode(t *model.Tree, name, current string) *tree.Tree {
	node := tree.Root(branchLabel(t, name, current))
	for _, child := range t.Children(name) {
		node.Child(branchNode(t, child, current))
	}
	return node
}

func branchLabel(t *model.Tree, name, current string) string {
	b := t.Branches[name]
	label := name
	if name == current {
		label = TreeCurrentStyle.Render(name)
	}
	if b.PR != nil && b.PR.ID != 0 {
		state := b.PR.Status
		if state == "" {
			state = "open"
		}
		label += " " + StateStyle(state).Render(fmt.Sprintf("#%d %s", b.PR.ID, state))
	}
	if b.Head != "" {
		label += " " + Dim("("+shortHash(b.Head)+")")
	}
	if name == current {
		label += " " + Muted("← you are here")
	}
	return label
}

// RenderShortForest renders each stack as a single arrow-joined path line.
// Example output:
//
//	main -> feat-a -> feat-b
//	main -> fix-typo
func RenderShortForest(t *model.Tree, current string) string {
	var lines []string
	var walk func(path []string, name string)
	walk = func(path []string, name string) {
		path = append(path, displayName(name, current))
		children := t.Children(name)
		if len(children) == 0 {
			lines = append(lines, strings.Join(path, " -> "))
			return
		}
		for _, child := range children {
			walk(path, child)
		}
	}
	for _, root := range t.Roots() {
		walk([]string{Muted(t.Trunk)}, root)
	}
	if len(lines) == 0 {
		return Dim("No tracked branches yet.")
	}
	return strings.Join(lines, "\n")
}

func displayName(name, current string) string {
	if name == current {
		return TreeCurrentStyle.Render(name)
	}
	return name
}

func shortHash(hash string) string {
	if len(hash) > 7 {
		return hash[:7]
	}
	return hash
}
