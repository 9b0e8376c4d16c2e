package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"replykit/internal/articulation"
	"replykit/internal/logging"
)

// copyResetMsg returns a code block's button to idle.
type copyResetMsg struct {
	block int
	gen   int
}

// ViewerOptions configures a Viewer.
type ViewerOptions struct {
	ResetDelay time.Duration // how long "copied" stays visible
	Actions    LinkActions
}

// Viewer is an interactive bubbletea model over a segment sequence. Tab and
// shift+tab move focus across code blocks and links, c copies the focused
// block, enter activates the focused link, q or esc quits.
type Viewer struct {
	segs     []articulation.Segment
	renderer *Renderer
	opts     ViewerOptions

	items   []focusItem
	focus   int
	buttons []*CopyButton
	status  string

	viewport viewport.Model
	ready    bool
}

// NewViewer creates a viewer for segs.
func NewViewer(segs []articulation.Segment, r *Renderer, opts ViewerOptions) *Viewer {
	if opts.ResetDelay <= 0 {
		opts.ResetDelay = 2 * time.Second
	}
	buttons := make([]*CopyButton, len(articulation.CodeBlocks(segs)))
	for i := range buttons {
		buttons[i] = &CopyButton{}
	}
	return &Viewer{
		segs:     segs,
		renderer: r,
		opts:     opts,
		items:    focusables(segs),
		focus:    -1,
		buttons:  buttons,
	}
}

func (v *Viewer) Init() tea.Cmd { return nil }

func (v *Viewer) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		height := msg.Height - 2 // footer
		if height < 1 {
			height = 1
		}
		if !v.ready {
			v.viewport = viewport.New(msg.Width, height)
			v.ready = true
		} else {
			v.viewport.Width = msg.Width
			v.viewport.Height = height
		}
		v.refresh()
		return v, nil

	case copyResetMsg:
		if msg.block >= 0 && msg.block < len(v.buttons) && v.buttons[msg.block].Reset(msg.gen) {
			v.status = ""
			v.refresh()
		}
		return v, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return v, tea.Quit
		case "tab":
			v.moveFocus(1)
			return v, nil
		case "shift+tab":
			v.moveFocus(-1)
			return v, nil
		case "c", "y":
			return v, v.copyFocused()
		case "enter":
			if item, ok := v.focused(); ok && item.code < 0 {
				logging.Render("link activated: %s", item.target)
				v.opts.Actions.Activate(item.target)
				return v, tea.Quit
			}
			return v, nil
		}
	}

	var cmd tea.Cmd
	if v.ready {
		v.viewport, cmd = v.viewport.Update(msg)
	}
	return v, cmd
}

func (v *Viewer) View() string {
	body := v.renderer.render(v.segs, v.viewState())
	if v.ready {
		body = v.viewport.View()
	}

	help := "tab: next • shift+tab: prev • c: copy • enter: open link • q: quit"
	footer := v.renderer.styles.Muted.Render(help)
	if v.status != "" {
		footer = v.status + "  " + footer
	}
	return body + "\n" + footer
}

// Focused returns the focused code block index and link target; code is -1
// when a link (or nothing) is focused.
func (v *Viewer) Focused() (code int, target string) {
	item, ok := v.focused()
	if !ok {
		return -1, ""
	}
	return item.code, item.target
}

// CopyState returns the state of code block i's copy button.
func (v *Viewer) CopyState(i int) CopyState {
	if i < 0 || i >= len(v.buttons) {
		return CopyIdle
	}
	return v.buttons[i].State()
}

func (v *Viewer) focused() (focusItem, bool) {
	if v.focus < 0 || v.focus >= len(v.items) {
		return focusItem{}, false
	}
	return v.items[v.focus], true
}

func (v *Viewer) moveFocus(delta int) {
	if len(v.items) == 0 {
		return
	}
	if v.focus < 0 {
		if delta > 0 {
			v.focus = 0
		} else {
			v.focus = len(v.items) - 1
		}
	} else {
		v.focus = (v.focus + delta + len(v.items)) % len(v.items)
	}
	v.refresh()
}

func (v *Viewer) copyFocused() tea.Cmd {
	item, ok := v.focused()
	if !ok || item.code < 0 {
		return nil
	}

	block := articulation.CodeBlocks(v.segs)[item.code]
	gen, err := v.buttons[item.code].Copy(block.Code)
	if err != nil {
		logging.Get(logging.CategoryRender).Error("copy of block %d failed: %v", item.code+1, err)
		v.status = v.renderer.styles.Error.Render("Failed to copy code block")
	} else {
		logging.Render("copied block %d (%d bytes)", item.code+1, len(block.Code))
		v.status = v.renderer.styles.Success.Render(fmt.Sprintf("Copied block #%d to clipboard", item.code+1))
	}
	v.refresh()

	idx := item.code
	return tea.Tick(v.opts.ResetDelay, func(time.Time) tea.Msg {
		return copyResetMsg{block: idx, gen: gen}
	})
}

func (v *Viewer) viewState() viewState {
	copies := make(map[int]CopyState, len(v.buttons))
	for i, b := range v.buttons {
		copies[i] = b.State()
	}
	return viewState{focus: v.focus, copies: copies}
}

func (v *Viewer) refresh() {
	if v.ready {
		v.viewport.SetContent(v.renderer.render(v.segs, v.viewState()))
	}
}
