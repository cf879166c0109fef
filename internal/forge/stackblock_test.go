package forge

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEntries() []StackEntry {
	return []StackEntry{
		{Branch: "feat-b", PRID: 13},
		{Branch: "feat-a", PRID: 12, Current: true},
	}
}

func TestRenderStackBlock(t *testing.T) {
	block := RenderStackBlock(sampleEntries())
	assert.True(t, strings.HasPrefix(block, stackBlockBegin))
	assert.True(t, strings.HasSuffix(block, stackBlockEnd))
	assert.Contains(t, block, "#13 feat-b")
	assert.Contains(t, block, "* #12 feat-a")
}

func TestRenderStackBlockWithoutPR(t *testing.T) {
	block := RenderStackBlock([]StackEntry{{Branch: "feat-c", Current: true}})
	assert.Contains(t, block, "* feat-c")
	assert.NotContains(t, block, "#0")
}

func TestSpliceAppendsWhenAbsent(t *testing.T) {
	body := "My hand-written description."
	out := SpliceStackBlock(body, RenderStackBlock(sampleEntries()))
	assert.True(t, strings.HasPrefix(out, body))
	assert.Contains(t, out, stackBlockBegin)
}

func TestSpliceReplacesOnlyTheBlock(t *testing.T) {
	original := "Intro text.\n\n" + RenderStackBlock(sampleEntries()) + "\n\nOutro text."
	updated := RenderStackBlock([]StackEntry{{Branch: "feat-a", PRID: 12, Current: true}})

	out := SpliceStackBlock(original, updated)
	assert.Contains(t, out, "Intro text.")
	assert.Contains(t, out, "Outro text.")
	assert.NotContains(t, out, "feat-b", "the old block content is replaced")
	require.Equal(t, 1, strings.Count(out, stackBlockBegin))
}

func TestSpliceIntoEmptyBody(t *testing.T) {
	block := RenderStackBlock(sampleEntries())
	assert.Equal(t, block, SpliceStackBlock("", block))
}

func TestSpliceIsIdempotent(t *testing.T) {
	block := RenderStackBlock(sampleEntries())
	once := SpliceStackBlock("Text.", block)
	twice := SpliceStackBlock(once, block)
	assert.Equal(t, once, twice)
}

func TestDetect(t *testing.T) {
	assert.Equal(t, "gitlab", Detect("git@gitlab.com:me/repo.git"))
	assert.Equal(t, "github", Detect("git@github.com:me/repo.git"))
	assert.Equal(t, "github", Detect(""))
}
