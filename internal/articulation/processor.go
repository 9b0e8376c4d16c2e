package articulation

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"replykit/internal/logging"
)

// =============================================================================
// RESPONSE PROCESSOR - The Full Articulation Pipeline
// =============================================================================

// DefaultMaxSurfaceLength caps the normalized text, in runes.
const DefaultMaxSurfaceLength = 50000

// ResponseProcessor handles the complete articulation pipeline:
// Raw model output → Extract → Truncate → Segment → structured result.
// A single processor may serve concurrent callers.
type ResponseProcessor struct {
	Extractor Extractor

	// MaxSurfaceLength truncates the surface to this many runes. 0 disables it.
	MaxSurfaceLength int

	mu    sync.Mutex
	stats ProcessorStats
}

// ProcessorStats tracks parsing statistics for monitoring.
type ProcessorStats struct {
	TotalProcessed int                 `json:"total_processed"`
	ByMethod       map[ParseMethod]int `json:"by_method"`
	Unwrapped      int                 `json:"unwrapped"`     // results with at least one envelope removed
	DoubleEncoded  int                 `json:"double_encoded"` // results with two envelopes removed
	Truncations    int                 `json:"truncations"`
	CodeBlocks     int                 `json:"code_blocks"`
	Links          int                 `json:"links"`
}

// ArticulationResult is the complete output of the articulation layer.
type ArticulationResult struct {
	// Surface is the normalized display text.
	Surface string `json:"text"`

	// Segments is Surface split into code and text segments.
	Segments []Segment `json:"segments"`

	// Parsing metadata
	ParseMethod ParseMethod `json:"method"`
	Layers      int         `json:"layers"`
	Fenced      bool        `json:"fenced"`
	Warnings    []string    `json:"warnings"`

	// Original raw response (for debugging)
	RawResponse string `json:"-"`
}

// NewResponseProcessor creates a new processor with default settings.
func NewResponseProcessor() *ResponseProcessor {
	return &ResponseProcessor{
		Extractor:        DefaultExtractor(),
		MaxSurfaceLength: DefaultMaxSurfaceLength,
	}
}

// Process turns raw model output into a structured ArticulationResult.
// It never fails; unrecognized input degrades to plain text.
func (rp *ResponseProcessor) Process(rawResponse string) *ArticulationResult {
	ex := rp.Extractor.Extract(rawResponse)

	result := &ArticulationResult{
		Surface:     ex.Text,
		ParseMethod: ex.Method,
		Layers:      ex.Layers,
		Fenced:      ex.Fenced,
		Warnings:    []string{},
		RawResponse: rawResponse,
	}

	switch ex.Method {
	case MethodScanned:
		result.Warnings = append(result.Warnings, "JSON extracted from mixed content")
	case MethodPattern:
		result.Warnings = append(result.Warnings, "message recovered by envelope pattern")
	}

	truncated := false
	if rp.MaxSurfaceLength > 0 && utf8.RuneCountInString(result.Surface) > rp.MaxSurfaceLength {
		cut, dropped := dropSplitFence(result.Surface, truncateRunes(result.Surface, rp.MaxSurfaceLength))
		result.Surface = cut
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("surface truncated to %d characters", rp.MaxSurfaceLength))
		if dropped {
			result.Warnings = append(result.Warnings, "code block cut by truncation was dropped")
		}
		truncated = true
	}

	result.Segments = SegmentText(result.Surface)
	if result.Segments == nil {
		result.Segments = []Segment{}
	}

	rp.record(result, truncated)

	logging.ArticulationDebug("processed %d bytes method=%s layers=%d segments=%d warnings=%d",
		len(rawResponse), result.ParseMethod, result.Layers, len(result.Segments), len(result.Warnings))
	for _, w := range result.Warnings {
		logging.ArticulationDebug("warning: %s", w)
	}

	return result
}

func (rp *ResponseProcessor) record(r *ArticulationResult, truncated bool) {
	codes := len(CodeBlocks(r.Segments))
	links := len(Links(r.Segments))

	rp.mu.Lock()
	defer rp.mu.Unlock()

	if rp.stats.ByMethod == nil {
		rp.stats.ByMethod = make(map[ParseMethod]int)
	}
	rp.stats.TotalProcessed++
	rp.stats.ByMethod[r.ParseMethod]++
	if r.Layers > 0 {
		rp.stats.Unwrapped++
	}
	if r.Layers > 1 {
		rp.stats.DoubleEncoded++
	}
	if truncated {
		rp.stats.Truncations++
	}
	rp.stats.CodeBlocks += codes
	rp.stats.Links += links
}

// Stats returns a snapshot of the processing statistics.
func (rp *ResponseProcessor) Stats() ProcessorStats {
	rp.mu.Lock()
	defer rp.mu.Unlock()

	snap := rp.stats
	snap.ByMethod = make(map[ParseMethod]int, len(rp.stats.ByMethod))
	for k, v := range rp.stats.ByMethod {
		snap.ByMethod[k] = v
	}
	return snap
}

// ResetStats resets the processing statistics.
func (rp *ResponseProcessor) ResetStats() {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	rp.stats = ProcessorStats{}
}

func truncateRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// dropSplitFence removes the code block whose closing fence fell past the end
// of cut, a prefix of full, so no block is shown half-finished.
func dropSplitFence(full, cut string) (string, bool) {
	for _, m := range fencePattern.FindAllStringIndex(full, -1) {
		if m[0] >= len(cut) {
			break
		}
		if m[1] > len(cut) {
			return strings.TrimRight(cut[:m[0]], " \t\r\n"), true
		}
	}
	return cut, false
}
