package ui

import (
	"sync"

	"github.com/atotto/clipboard"
)

// clipboardWriteAll is a package-level variable to allow mocking in tests.
var clipboardWriteAll = clipboard.WriteAll

// CopyState is the visible state of a code block's copy button.
type CopyState int

const (
	CopyIdle CopyState = iota
	CopyDone
	CopyFailed
)

func (s CopyState) String() string {
	switch s {
	case CopyDone:
		return "copied"
	case CopyFailed:
		return "copy failed"
	default:
		return "copy"
	}
}

// CopyButton is the idle → copied → idle state machine of one code block.
// Each press starts a new generation; Reset only acts on the latest one, so a
// reset scheduled by an earlier press cannot clear a later "copied".
type CopyButton struct {
	mu    sync.Mutex
	state CopyState
	gen   int
}

// Copy writes text to the clipboard and returns the press generation to pass
// to Reset once the reset delay has elapsed.
func (b *CopyButton) Copy(text string) (int, error) {
	err := clipboardWriteAll(text)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.gen++
	if err != nil {
		b.state = CopyFailed
	} else {
		b.state = CopyDone
	}
	return b.gen, err
}

// Reset returns the button to idle if gen is the latest press.
func (b *CopyButton) Reset(gen int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.gen || b.state == CopyIdle {
		return false
	}
	b.state = CopyIdle
	return true
}

// State returns the current state.
func (b *CopyButton) State() CopyState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// LinkActions are the caller-supplied callbacks of a link element.
type LinkActions struct {
	Navigate func(target string)
	Close    func()
}

// Activate navigates to target and then dismisses the view.
func (a LinkActions) Activate(target string) {
	if a.Navigate != nil {
		a.Navigate(target)
	}
	if a.Close != nil {
		a.Close()
	}
}
