package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"replykit/internal/articulation"
	"replykit/internal/logging"
)

// RenderOptions configures a Renderer.
type RenderOptions struct {
	Theme    string // auto, dark, light
	Markdown bool   // glamour pass over link-free prose
	WordWrap int
}

// Renderer turns segments into terminal output.
type Renderer struct {
	styles   Styles
	markdown *glamour.TermRenderer
}

// NewRenderer creates a renderer. A glamour failure disables the markdown
// pass rather than failing.
func NewRenderer(opts RenderOptions) *Renderer {
	theme := ThemeByName(opts.Theme)
	r := &Renderer{styles: NewStyles(theme)}

	if opts.Markdown {
		wrap := opts.WordWrap
		if wrap <= 0 {
			wrap = 80
		}
		style := "light"
		if theme.IsDark {
			style = "dark"
		}
		md, err := glamour.NewTermRenderer(
			glamour.WithStylePath(style),
			glamour.WithWordWrap(wrap),
		)
		if err != nil {
			logging.Get(logging.CategoryRender).Warn("glamour unavailable, rendering plain prose: %v", err)
		} else {
			r.markdown = md
		}
	}
	return r
}

// Styles returns the renderer's styles.
func (r *Renderer) Styles() Styles { return r.styles }

// viewState carries the interactive state a Viewer overlays on the output.
type viewState struct {
	focus  int               // index into focusables, -1 for none
	copies map[int]CopyState // by code block index
}

// Render renders segs with no focus and every copy button idle.
func (r *Renderer) Render(segs []articulation.Segment) string {
	return r.render(segs, viewState{focus: -1})
}

func (r *Renderer) render(segs []articulation.Segment, vs viewState) string {
	parts := make([]string, 0, len(segs))
	item, code := 0, 0
	for _, seg := range segs {
		switch s := seg.(type) {
		case articulation.CodeSegment:
			parts = append(parts, r.renderCode(code, s, vs.focus == item, vs.copies[code]))
			item++
			code++
		case articulation.TextSegment:
			out, links := r.renderText(s, vs.focus-item)
			parts = append(parts, out)
			item += links
		}
	}
	return strings.Join(parts, "\n\n")
}

func (r *Renderer) renderCode(idx int, c articulation.CodeSegment, focused bool, state CopyState) string {
	var hint string
	switch state {
	case CopyDone:
		hint = r.styles.Success.Render("✓ copied")
	case CopyFailed:
		hint = r.styles.Error.Render("✗ copy failed")
	default:
		hint = r.styles.CopyHint.Render(fmt.Sprintf("[copy #%d]", idx+1))
	}
	header := r.styles.CodeHeader.Render(c.Language) + "  " + hint

	box := r.styles.CodeBlock
	if focused {
		box = r.styles.CodeBlockFocused
	}
	return header + "\n" + box.Render(c.Code)
}

// renderText renders the runs of t. focusLink is the index of the focused
// link within t (out of range for none). It returns the number of links.
func (r *Renderer) renderText(t articulation.TextSegment, focusLink int) (string, int) {
	links := 0
	for _, run := range t.Runs {
		if _, ok := run.(articulation.LinkRun); ok {
			links++
		}
	}

	// Link elements must stay individually styled, so only link-free prose
	// goes through glamour.
	if links == 0 && r.markdown != nil {
		var sb strings.Builder
		for _, run := range t.Runs {
			if p, ok := run.(articulation.PlainRun); ok {
				sb.WriteString(p.Text)
			}
		}
		if out, ok := r.safeRenderMarkdown(sb.String()); ok {
			return out, 0
		}
	}

	var sb strings.Builder
	li := 0
	for _, run := range t.Runs {
		switch v := run.(type) {
		case articulation.PlainRun:
			sb.WriteString(r.styles.Prose.Render(v.Text))
		case articulation.LinkRun:
			style := r.styles.Link
			if li == focusLink {
				style = r.styles.LinkFocused
			}
			sb.WriteString(style.Render(v.Label))
			sb.WriteString(r.styles.LinkTarget.Render(" → " + v.Target))
			li++
		}
	}
	return sb.String(), links
}

// safeRenderMarkdown wraps glamour, which can panic on unusual input.
func (r *Renderer) safeRenderMarkdown(md string) (out string, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			logging.Get(logging.CategoryRender).Error("markdown render panic: %v", rec)
			out, ok = "", false
		}
	}()

	rendered, err := r.markdown.Render(md)
	if err != nil {
		logging.RenderDebug("markdown render failed: %v", err)
		return "", false
	}
	return strings.Trim(rendered, "\n"), true
}

// focusItem is one tab stop of the viewer: a code block or a link.
type focusItem struct {
	code   int // code block index, or -1
	target string
}

func focusables(segs []articulation.Segment) []focusItem {
	var items []focusItem
	code := 0
	for _, seg := range segs {
		switch s := seg.(type) {
		case articulation.CodeSegment:
			items = append(items, focusItem{code: code})
			code++
		case articulation.TextSegment:
			for _, run := range s.Runs {
				if l, ok := run.(articulation.LinkRun); ok {
					items = append(items, focusItem{code: -1, target: l.Target})
				}
			}
		}
	}
	return items
}
