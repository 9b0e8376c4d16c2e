package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"replykit/internal/articulation"
)

func mockClipboard(t *testing.T, err error) *[]string {
	t.Helper()
	var copied []string
	orig := clipboardWriteAll
	clipboardWriteAll = func(s string) error {
		copied = append(copied, s)
		return err
	}
	t.Cleanup(func() { clipboardWriteAll = orig })
	return &copied
}

var sample = articulation.SegmentText("Intro see [Docs](/docs).\n```go\nfmt.Println(1)\n```\nThen [API](/api).\n```\nls\n```")

func TestThemeByName(t *testing.T) {
	if !ThemeByName("dark").IsDark {
		t.Error("dark theme expected")
	}
	if ThemeByName("LIGHT").IsDark {
		t.Error("light theme expected")
	}

	t.Setenv("COLORFGBG", "15;0")
	if !ThemeByName("auto").IsDark {
		t.Error("COLORFGBG background 0 should be dark")
	}
	t.Setenv("COLORFGBG", "0;15")
	t.Setenv("REPLYKIT_DARK_MODE", "")
	if DetectTheme().IsDark {
		t.Error("COLORFGBG background 15 should be light")
	}
}

func TestRender(t *testing.T) {
	out := NewRenderer(RenderOptions{Theme: "light"}).Render(sample)

	for _, want := range []string{
		"Intro see", "Docs", "→ /docs",
		"go", "[copy #1]", "fmt.Println(1)",
		"API", "→ /api",
		"code", "[copy #2]", "ls",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "fmt.Println(1)") > strings.Index(out, "→ /api") {
		t.Error("segments out of order")
	}
}

func TestRender_Empty(t *testing.T) {
	if out := NewRenderer(RenderOptions{}).Render(nil); out != "" {
		t.Errorf("Render(nil) = %q, want empty", out)
	}
}

func TestRender_MarkdownProse(t *testing.T) {
	r := NewRenderer(RenderOptions{Theme: "dark", Markdown: true, WordWrap: 60})
	out := r.Render(articulation.SegmentText("Some **bold** prose"))
	if !strings.Contains(out, "bold") {
		t.Errorf("markdown output missing text:\n%s", out)
	}
	if strings.Contains(out, "**") {
		t.Errorf("markdown not rendered:\n%s", out)
	}
}

func TestCopyButton(t *testing.T) {
	copied := mockClipboard(t, nil)
	var b CopyButton

	if b.State() != CopyIdle {
		t.Fatal("new button should be idle")
	}
	gen1, err := b.Copy("a")
	if err != nil || b.State() != CopyDone {
		t.Fatalf("Copy: err=%v state=%v", err, b.State())
	}
	gen2, _ := b.Copy("b")

	if b.Reset(gen1) {
		t.Error("stale reset must not clear a newer press")
	}
	if b.State() != CopyDone {
		t.Error("state should still be copied")
	}
	if !b.Reset(gen2) || b.State() != CopyIdle {
		t.Error("latest reset should return to idle")
	}
	if got := strings.Join(*copied, ","); got != "a,b" {
		t.Errorf("clipboard got %q", got)
	}
}

func TestCopyButton_Failure(t *testing.T) {
	mockClipboard(t, errors.New("no clipboard"))
	var b CopyButton
	gen, err := b.Copy("x")
	if err == nil || b.State() != CopyFailed {
		t.Fatalf("expected failure, got err=%v state=%v", err, b.State())
	}
	if b.State().String() != "copy failed" {
		t.Errorf("String() = %q", b.State().String())
	}
	b.Reset(gen)
	if b.State() != CopyIdle {
		t.Error("failed state should reset to idle")
	}
}

func TestLinkActions_Order(t *testing.T) {
	var calls []string
	LinkActions{
		Navigate: func(target string) { calls = append(calls, "navigate:"+target) },
		Close:    func() { calls = append(calls, "close") },
	}.Activate("/docs")

	if got := strings.Join(calls, ","); got != "navigate:/docs,close" {
		t.Errorf("calls = %q", got)
	}

	// Nil callbacks are allowed.
	LinkActions{}.Activate("/x")
}

func key(s string) tea.KeyMsg {
	switch s {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestViewer(t *testing.T, actions LinkActions) *Viewer {
	t.Helper()
	v := NewViewer(sample, NewRenderer(RenderOptions{Theme: "light"}), ViewerOptions{
		ResetDelay: 10 * time.Millisecond,
		Actions:    actions,
	})
	v.Update(tea.WindowSizeMsg{Width: 80, Height: 40})
	return v
}

func TestViewer_FocusCycle(t *testing.T) {
	v := newTestViewer(t, LinkActions{})

	// Tab stops in source order: link /docs, block 0, link /api, block 1.
	want := []struct {
		code   int
		target string
	}{{-1, "/docs"}, {0, ""}, {-1, "/api"}, {1, ""}, {-1, "/docs"}}
	for i, w := range want {
		v.Update(key("tab"))
		code, target := v.Focused()
		if code != w.code || target != w.target {
			t.Fatalf("tab %d: focused (%d,%q), want (%d,%q)", i, code, target, w.code, w.target)
		}
	}

	v.Update(key("shift+tab"))
	if code, _ := v.Focused(); code != 1 {
		t.Errorf("shift+tab should wrap to block 1, got %d", code)
	}
}

func TestViewer_CopyAndReset(t *testing.T) {
	copied := mockClipboard(t, nil)
	v := newTestViewer(t, LinkActions{})

	v.Update(key("tab"))
	v.Update(key("tab")) // block 0
	_, cmd := v.Update(key("c"))
	if cmd == nil {
		t.Fatal("copy should schedule a reset")
	}
	if len(*copied) != 1 || (*copied)[0] != "fmt.Println(1)" {
		t.Fatalf("clipboard = %v", *copied)
	}
	if v.CopyState(0) != CopyDone {
		t.Fatalf("state = %v, want copied", v.CopyState(0))
	}
	if !strings.Contains(v.View(), "copied") {
		t.Error("view should show copied")
	}

	v.Update(cmd())
	if v.CopyState(0) != CopyIdle {
		t.Errorf("state after reset = %v, want idle", v.CopyState(0))
	}
}

func TestViewer_CopyOnLinkIsNoop(t *testing.T) {
	copied := mockClipboard(t, nil)
	v := newTestViewer(t, LinkActions{})

	v.Update(key("tab")) // link
	if _, cmd := v.Update(key("c")); cmd != nil {
		t.Error("copy on a link should do nothing")
	}
	if len(*copied) != 0 {
		t.Error("clipboard should be untouched")
	}
}

func TestViewer_EnterActivatesLink(t *testing.T) {
	var navigated string
	closed := false
	v := newTestViewer(t, LinkActions{
		Navigate: func(target string) { navigated = target },
		Close:    func() { closed = true },
	})

	v.Update(key("tab"))
	v.Update(key("tab"))
	v.Update(key("tab")) // /api
	_, cmd := v.Update(key("enter"))

	if navigated != "/api" || !closed {
		t.Fatalf("navigate=%q closed=%v", navigated, closed)
	}
	if cmd == nil {
		t.Fatal("link activation should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestViewer_Quit(t *testing.T) {
	for _, k := range []string{"q", "esc"} {
		v := newTestViewer(t, LinkActions{})
		_, cmd := v.Update(key(k))
		if cmd == nil {
			t.Fatalf("%s should quit", k)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%s: expected tea.QuitMsg", k)
		}
	}
}

func TestViewer_NoFocusables(t *testing.T) {
	v := NewViewer(articulation.SegmentText("just prose"), NewRenderer(RenderOptions{}), ViewerOptions{})
	v.Update(key("tab"))
	if code, target := v.Focused(); code != -1 || target != "" {
		t.Errorf("focused (%d,%q), want none", code, target)
	}
	if !strings.Contains(v.View(), "just prose") {
		t.Error("view should render content before a window size arrives")
	}
}
