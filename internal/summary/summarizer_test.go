package summary_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mwhite/marginalia/internal/summary"
)

func TestNewGenerator_NoAPIKey_ReturnsNil(t *testing.T) {
	assert.Nil(t, summary.NewGenerator("", "gpt-4o-mini", "", nil))
}

func TestSummarize_NilGenerator_ReturnsEmpty(t *testing.T) {
	var g *summary.Generator

	got := g.Summarize(context.Background(), "some content", "some title")

	assert.Equal(t, "", got)
}

func TestPrompt_EmbedsTitleAndContent(t *testing.T) {
	got := summary.Prompt("the body text", "The Title")

	assert.Contains(t, got, "Title: The Title")
	assert.Contains(t, got, "Content: the body text")
	assert.Contains(t, got, "Summarize this webpage content in 1-2 sentences")
}

func TestPrompt_TruncatesContentTo1500(t *testing.T) {
	long := strings.Repeat("a", 2000)

	got := summary.Prompt(long, "t")

	assert.Contains(t, got, strings.Repeat("a", 1500))
	assert.NotContains(t, got, strings.Repeat("a", 1501))
}

func TestPrompt_ShortContentKeptWhole(t *testing.T) {
	got := summary.Prompt("short", "t")

	assert.Contains(t, got, "Content: short\n")
}
