package forge

import (
	"fmt"
	"strings"
)

// The stack block is the machine-readable region in a PR body listing the
// branches on the current sibling path. It is rewritten in place on every
// update; text outside the markers is never touched.
const (
	stackBlockBegin = "<!-- pancake-stack-begin -->"
	stackBlockEnd   = "<!-- pancake-stack-end -->"
)

// StackEntry is one line of the stack block.
type StackEntry struct {
	Branch  string
	PRID    int // 0 when not yet submitted
	Current bool
}

// RenderStackBlock renders the fenced stack region for a PR body. Entries
// are ordered top of stack first.
func RenderStackBlock(entries []StackEntry) string {
	var b strings.Builder
	b.WriteString(stackBlockBegin + "\n")
	b.WriteString("```\n")
	for _, e := range entries {
		marker := "  "
		if e.Current {
			marker = "* "
		}
		if e.PRID > 0 {
			fmt.Fprintf(&b, "%s#%d %s\n", marker, e.PRID, e.Branch)
		} else {
			fmt.Fprintf(&b, "%s%s\n", marker, e.Branch)
		}
	}
	b.WriteString("```\n")
	b.WriteString(stackBlockEnd)
	return b.String()
}

// SpliceStackBlock replaces the stack block in a PR body, appending one if
// the body has none. Human edits outside the markers survive.
func SpliceStackBlock(body, block string) string {
	begin := strings.Index(body, stackBlockBegin)
	end := strings.Index(body, stackBlockEnd)
	if begin >= 0 && end > begin {
		return body[:begin] + block + body[end+len(stackBlockEnd):]
	}
	if strings.TrimSpace(body) == "" {
		return block
	}
	return strings.TrimRight(body, "\n") + "\n\n" + block
}
