package articulation

import (
	"regexp"
	"strings"
)

var (
	// fencePattern matches a fenced block: ```, optional language word,
	// optional whitespace, non-greedy body, closing ```.
	fencePattern = regexp.MustCompile("```(\\w*)\\s*([\\s\\S]*?)```")

	// linkPattern matches an inline [label](target) link.
	linkPattern = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
)

// SegmentText splits normalized text into code and text segments in source
// order. It never fails: text without fences or links becomes a single
// TextSegment, blank text an empty (nil) slice. An unterminated fence is not
// matched and stays visible as literal backticks in the surrounding prose.
func SegmentText(text string) []Segment {
	var segs []Segment

	cursor := 0
	for _, m := range fencePattern.FindAllStringSubmatchIndex(text, -1) {
		if prose, ok := textSegment(text[cursor:m[0]]); ok {
			segs = append(segs, prose)
		}
		segs = append(segs, codeSegment(text[m[2]:m[3]], text[m[4]:m[5]]))
		cursor = m[1]
	}
	if prose, ok := textSegment(text[cursor:]); ok {
		segs = append(segs, prose)
	}

	return segs
}

func codeSegment(lang, body string) CodeSegment {
	if lang == "" {
		lang = DefaultCodeLanguage
	}
	return CodeSegment{Language: lang, Code: strings.TrimSpace(body)}
}

// textSegment scans one prose piece for links with a cursor over the match
// positions, emitting the plain text between them. ok is false for pieces
// that are empty or whitespace only.
func textSegment(piece string) (TextSegment, bool) {
	piece = strings.TrimSpace(piece)
	if piece == "" {
		return TextSegment{}, false
	}

	var runs []TextRun
	cursor := 0
	for _, m := range linkPattern.FindAllStringSubmatchIndex(piece, -1) {
		if m[0] > cursor {
			runs = append(runs, PlainRun{Text: piece[cursor:m[0]]})
		}
		runs = append(runs, LinkRun{Label: piece[m[2]:m[3]], Target: piece[m[4]:m[5]]})
		cursor = m[1]
	}
	if cursor < len(piece) {
		runs = append(runs, PlainRun{Text: piece[cursor:]})
	}

	return TextSegment{Runs: runs}, true
}
