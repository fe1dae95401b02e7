package views

import (
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/matheus3301/wpp-inbox/internal/inbox"
	"github.com/matheus3301/wpp-inbox/internal/tui/ui"
)

func TestComposerOpen(t *testing.T) {
	c := NewComposer(ui.DefaultTheme())
	c.SetText("stale draft")
	c.Open(ComposeNew, inbox.Annotation{ID: momID, Name: "Mom"})

	if c.GetText() != "" {
		t.Error("draft not cleared")
	}
	if got := c.GetTitle(); got != " New message to Mom " {
		t.Errorf("title = %q", got)
	}
	mode, to := c.Target()
	if mode != ComposeNew || to.ID != momID {
		t.Errorf("target = %v %+v", mode, to)
	}
	if c.Name() != "New" {
		t.Errorf("Name() = %q", c.Name())
	}
}

func TestComposerSubmit(t *testing.T) {
	c := NewComposer(ui.DefaultTheme())
	c.Open(ComposeReply, inbox.Annotation{ID: dadID, Name: "Dad"})

	var sent []string
	done := 0
	c.SetOnSend(func(mode ComposeMode, to inbox.Annotation, text string) {
		if mode != ComposeReply {
			t.Errorf("mode = %v", mode)
		}
		sent = append(sent, to.ID+":"+text)
	})
	c.SetOnDone(func() { done++ })

	enter := func() {
		c.InputHandler()(tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone), func(p tview.Primitive) {})
	}
	enter()
	if len(sent) != 0 {
		t.Fatal("empty draft sent")
	}

	c.SetText("coming sunday")
	enter()
	if len(sent) != 1 || sent[0] != dadID+":coming sunday" || done != 1 {
		t.Errorf("sent = %v, done = %d", sent, done)
	}
	if c.GetText() != "" {
		t.Error("draft kept after send")
	}
}
