package views

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/matheus3301/wpp-inbox/internal/inbox"
	"github.com/matheus3301/wpp-inbox/internal/tui/ui"
)

// ComposeMode tells the composer whether it answers a message or starts a
// new conversation.
type ComposeMode int

const (
	ComposeReply ComposeMode = iota
	ComposeNew
)

// Composer is the text input for sending messages. It always has a target.
type Composer struct {
	*tview.InputField
	theme  *ui.Theme
	mode   ComposeMode
	target inbox.Annotation
	onSend func(mode ComposeMode, to inbox.Annotation, text string)
	onDone func()
}

// NewComposer creates a new message composer.
func NewComposer(theme *ui.Theme) *Composer {
	input := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0)
	input.SetBorder(true)
	input.SetBorderColor(theme.BorderColor)
	input.SetBackgroundColor(theme.BgColor)
	input.SetFieldBackgroundColor(theme.BgColor)
	input.SetFieldTextColor(theme.FgColor)
	input.SetLabelColor(theme.MenuKeyColor)
	input.SetTitleColor(theme.TitleColor)

	c := &Composer{InputField: input, theme: theme}

	input.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter {
			return
		}
		text := c.GetText()
		if text == "" || c.onSend == nil {
			return
		}
		c.onSend(c.mode, c.target, text)
		c.SetText("")
		if c.onDone != nil {
			c.onDone()
		}
	})
	return c
}

// Name implements Component.
func (c *Composer) Name() string {
	if c.mode == ComposeNew {
		return "New"
	}
	return "Reply"
}

// Hints implements Component.
func (c *Composer) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Send"},
		{Key: "Esc", Description: "Cancel"},
	}
}

// Open points the composer at a recipient and clears the draft.
func (c *Composer) Open(mode ComposeMode, to inbox.Annotation) {
	c.mode = mode
	c.target = to
	c.SetText("")
	verb := "Reply to"
	if mode == ComposeNew {
		verb = "New message to"
	}
	c.SetTitle(fmt.Sprintf(" %s %s ", verb, tview.Escape(sanitizeForTerminal(to.Name))))
}

// Target returns the current recipient and mode.
func (c *Composer) Target() (ComposeMode, inbox.Annotation) {
	return c.mode, c.target
}

// SetOnSend sets the callback when a message is submitted.
func (c *Composer) SetOnSend(fn func(mode ComposeMode, to inbox.Annotation, text string)) {
	c.onSend = fn
}

// SetOnDone sets the callback run after a send.
func (c *Composer) SetOnDone(fn func()) {
	c.onDone = fn
}
