package ui

import (
	"fmt"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// FlashLevel is the severity of a flash message.
type FlashLevel int

const (
	FlashInfo FlashLevel = iota
	FlashWarn
	FlashErr
)

var flashLevels = [...]struct {
	icon string
	ttl  time.Duration
}{
	FlashInfo: {"ℹ", 5 * time.Second},
	FlashWarn: {"⚠", 8 * time.Second},
	FlashErr:  {"✖", 10 * time.Second},
}

// Icon returns the glyph shown before messages of this level.
func (l FlashLevel) Icon() string { return flashLevels[l].icon }

// FlashMessage is one notification and when it disappears.
type FlashMessage struct {
	Text    string
	Level   FlashLevel
	Expires time.Time
}

// FlashModel holds the latest notification. Watchers are told about every
// new message; expiry is checked on read.
type FlashModel struct {
	mu      sync.RWMutex
	current FlashMessage
	watchCh chan FlashMessage
	now     func() time.Time
}

// NewFlashModel creates an empty flash model.
func NewFlashModel() *FlashModel {
	return &FlashModel{watchCh: make(chan FlashMessage, 8), now: time.Now}
}

// Info shows msg at info level.
func (f *FlashModel) Info(msg string) { f.set(msg, FlashInfo, flashLevels[FlashInfo].ttl) }

// Warn shows msg at warn level.
func (f *FlashModel) Warn(msg string) { f.set(msg, FlashWarn, flashLevels[FlashWarn].ttl) }

// Err shows err at error level.
func (f *FlashModel) Err(err error) { f.set(err.Error(), FlashErr, flashLevels[FlashErr].ttl) }

// Set shows an info message for d.
func (f *FlashModel) Set(msg string, d time.Duration) { f.set(msg, FlashInfo, d) }

// Clear drops the current message.
func (f *FlashModel) Clear() {
	f.mu.Lock()
	f.current = FlashMessage{}
	f.mu.Unlock()
	f.notify(FlashMessage{})
}

func (f *FlashModel) set(msg string, level FlashLevel, d time.Duration) {
	fm := FlashMessage{Text: msg, Level: level, Expires: f.now().Add(d)}
	f.mu.Lock()
	f.current = fm
	f.mu.Unlock()
	f.notify(fm)
}

func (f *FlashModel) notify(fm FlashMessage) {
	select {
	case f.watchCh <- fm:
	default:
	}
}

// Get returns the current text, or "" once it has expired.
func (f *FlashModel) Get() string {
	if m := f.GetMessage(); m != nil {
		return m.Text
	}
	return ""
}

// GetMessage returns the current message, or nil once it has expired.
func (f *FlashModel) GetMessage() *FlashMessage {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.current.Text == "" || !f.now().Before(f.current.Expires) {
		return nil
	}
	m := f.current
	return &m
}

// Watch delivers each message as it is set. A cleared model sends an empty
// message.
func (f *FlashModel) Watch() <-chan FlashMessage {
	return f.watchCh
}

// FlashBar renders the current flash message.
type FlashBar struct {
	*tview.TextView
	theme *Theme
}

// NewFlashBar creates an empty flash bar.
func NewFlashBar(theme *Theme) *FlashBar {
	tv := tview.NewTextView().SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	return &FlashBar{TextView: tv, theme: theme}
}

// Update draws msg, or clears the bar when msg is nil or empty.
func (fb *FlashBar) Update(msg *FlashMessage) {
	fb.Clear()
	if msg == nil || msg.Text == "" {
		return
	}
	_, _ = fmt.Fprintf(fb, " [%s]%s %s[-]", colorName(fb.levelColor(msg.Level)), msg.Level.Icon(), tview.Escape(msg.Text))
}

func (fb *FlashBar) levelColor(l FlashLevel) tcell.Color {
	switch l {
	case FlashWarn:
		return fb.theme.FlashWarnColor
	case FlashErr:
		return fb.theme.FlashErrColor
	default:
		return fb.theme.FlashInfoColor
	}
}
