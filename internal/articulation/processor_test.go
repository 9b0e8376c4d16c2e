package articulation

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseProcessor_Process(t *testing.T) {
	rp := NewResponseProcessor()

	res := rp.Process(`{"type":"info","message":"See [Docs](/docs)\n` + "```" + `go\nx := 1\n` + "```" + `"}`)
	require.NotNil(t, res)
	assert.Equal(t, MethodJSON, res.ParseMethod)
	assert.Equal(t, 1, res.Layers)
	assert.Empty(t, res.Warnings)
	require.Len(t, res.Segments, 2)
	assert.Equal(t, CodeSegment{Language: "go", Code: "x := 1"}, res.Segments[1])
	assert.Contains(t, res.RawResponse, `"type":"info"`)
}

func TestResponseProcessor_Warnings(t *testing.T) {
	rp := NewResponseProcessor()

	scanned := rp.Process(`Sure: {"type":"info","message":"ok"} done`)
	assert.Equal(t, MethodScanned, scanned.ParseMethod)
	assert.Equal(t, []string{"JSON extracted from mixed content"}, scanned.Warnings)

	pattern := rp.Process(`use {x}, then {"type":"info","message":"ok"}`)
	assert.Equal(t, MethodPattern, pattern.ParseMethod)
	assert.Len(t, pattern.Warnings, 1)
}

func TestResponseProcessor_EmptyInput(t *testing.T) {
	rp := NewResponseProcessor()
	res := rp.Process("  ")
	assert.Equal(t, MethodEmpty, res.ParseMethod)
	assert.Equal(t, "", res.Surface)
	assert.NotNil(t, res.Segments)
	assert.Empty(t, res.Segments)
}

func TestResponseProcessor_Truncation(t *testing.T) {
	rp := NewResponseProcessor()
	rp.MaxSurfaceLength = 5

	res := rp.Process("héllo wörld")
	assert.Equal(t, "héllo", res.Surface)
	require.Len(t, res.Warnings, 1)
	assert.True(t, strings.HasPrefix(res.Warnings[0], "surface truncated"))
	assert.Equal(t, 1, rp.Stats().Truncations)

	rp.MaxSurfaceLength = 0
	res = rp.Process("héllo wörld")
	assert.Equal(t, "héllo wörld", res.Surface)
	assert.Empty(t, res.Warnings)
}

func TestResponseProcessor_TruncationDropsSplitCodeBlock(t *testing.T) {
	rp := NewResponseProcessor()
	raw := "Intro\n```go\nfmt.Println(1)\n```\nMiddle\n```sh\nmake test\n```"
	rp.MaxSurfaceLength = strings.Index(raw, "make") + 2

	res := rp.Process(raw)
	assert.Equal(t, "Intro\n```go\nfmt.Println(1)\n```\nMiddle", res.Surface)
	assert.Equal(t, []string{
		fmt.Sprintf("surface truncated to %d characters", rp.MaxSurfaceLength),
		"code block cut by truncation was dropped",
	}, res.Warnings)
	require.Len(t, res.Segments, 3)
	assert.Equal(t, CodeSegment{Language: "go", Code: "fmt.Println(1)"}, res.Segments[1])
	assert.NotContains(t, PlainText(res.Segments), "```")

	// A cut that falls between blocks keeps everything before it.
	rp.MaxSurfaceLength = strings.Index(raw, "Middle") + 3
	res = rp.Process(raw)
	assert.Equal(t, "Intro\n```go\nfmt.Println(1)\n```\nMid", res.Surface)
	assert.Len(t, res.Warnings, 1)
}

func TestResponseProcessor_Stats(t *testing.T) {
	rp := NewResponseProcessor()

	rp.Process(`{"type":"info","message":"Hello"}`)
	rp.Process(`{"type":"info","message":"{\"type\":\"info\",\"message\":\"Hi [a](/a)\"}"}`)
	rp.Process("plain ```sh\nls\n```")
	rp.Process("")

	stats := rp.Stats()
	assert.Equal(t, 4, stats.TotalProcessed)
	assert.Equal(t, 2, stats.ByMethod[MethodJSON])
	assert.Equal(t, 1, stats.ByMethod[MethodPlain])
	assert.Equal(t, 1, stats.ByMethod[MethodEmpty])
	assert.Equal(t, 2, stats.Unwrapped)
	assert.Equal(t, 1, stats.DoubleEncoded)
	assert.Equal(t, 1, stats.CodeBlocks)
	assert.Equal(t, 1, stats.Links)

	// The snapshot is detached from the processor.
	stats.ByMethod[MethodJSON] = 99
	assert.Equal(t, 2, rp.Stats().ByMethod[MethodJSON])

	rp.ResetStats()
	assert.Equal(t, 0, rp.Stats().TotalProcessed)
}

func TestResponseProcessor_Concurrent(t *testing.T) {
	rp := NewResponseProcessor()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rp.Process(`{"type":"info","message":"Hello"}`)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, rp.Stats().TotalProcessed)
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "ab", truncateRunes("abc", 2))
	assert.Equal(t, "abc", truncateRunes("abc", 3))
	assert.Equal(t, "🎉", truncateRunes("🎉🎉", 1))
	assert.Equal(t, "", truncateRunes("abc", 0))
}
