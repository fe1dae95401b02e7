package ui

import (
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

func TestPagesStack(t *testing.T) {
	p := NewPages()
	for _, name := range []string{"inbox", "details", "composer"} {
		p.AddPage(name, tview.NewBox(), true, false)
	}

	var seen [][]string
	p.SetOnChange(func(stack []string) { seen = append(seen, stack) })

	p.Push("inbox")
	p.Push("details")
	p.Push("composer")
	if got := p.Stack(); !slices.Equal(got, []string{"inbox", "details", "composer"}) {
		t.Fatalf("stack = %v", got)
	}

	if top := p.Pop(); top != "composer" || p.Current() != "details" {
		t.Errorf("Pop = %q, current = %q", top, p.Current())
	}
	if front, _ := p.GetFrontPage(); front != "details" {
		t.Errorf("front page = %q", front)
	}

	p.Reset("inbox")
	if p.Depth() != 1 || p.Current() != "inbox" {
		t.Errorf("after reset stack = %v", p.Stack())
	}
	if len(seen) != 5 {
		t.Errorf("onChange fired %d times, want 5", len(seen))
	}

	p.Pop()
	if p.Pop() != "" {
		t.Error("Pop on empty stack returned a page")
	}
}

func TestFlashModel(t *testing.T) {
	f := NewFlashModel()
	if f.GetMessage() != nil {
		t.Fatal("fresh model has a message")
	}
	f.Warn("daemon unreachable")
	m := f.GetMessage()
	if m == nil || m.Level != FlashWarn || m.Text != "daemon unreachable" {
		t.Errorf("message = %+v", m)
	}
	select {
	case got := <-f.Watch():
		if got.Text != "daemon unreachable" {
			t.Errorf("watched %q", got.Text)
		}
	default:
		t.Error("no watch notification")
	}
}

func TestPushExistingUnwinds(t *testing.T) {
	p := NewPages()
	for _, name := range []string{"inbox", "details", "compose"} {
		p.AddPage(name, tview.NewBox(), true, false)
		p.Push(name)
	}
	p.Push("inbox")
	if got := p.Stack(); !slices.Equal(got, []string{"inbox"}) {
		t.Errorf("stack = %v, want [inbox]", got)
	}
}

func TestFlashClear(t *testing.T) {
	f := NewFlashModel()
	f.Info("sending to Mom")
	<-f.Watch()
	f.Clear()
	if f.Get() != "" {
		t.Errorf("Get() after Clear = %q", f.Get())
	}
	if got := <-f.Watch(); got.Text != "" {
		t.Errorf("clear notification = %+v", got)
	}
}

func TestFlashExpires(t *testing.T) {
	f := NewFlashModel()
	now := time.Unix(1700000000, 0)
	f.now = func() time.Time { return now }
	f.Set("sending", 3*time.Second)
	if f.Get() != "sending" {
		t.Fatal("message not visible")
	}
	now = now.Add(3 * time.Second)
	if f.GetMessage() != nil {
		t.Error("message visible after expiry")
	}
}

func TestPromptHistory(t *testing.T) {
	p := NewPrompt(DefaultTheme())
	var got []string
	p.SetOnSubmit(func(_ PromptMode, text string) { got = append(got, text) })

	for _, cmd := range []string{"help", "new", "help"} {
		p.Activate(PromptCommand)
		p.SetText(cmd)
		p.done(tcell.KeyEnter)
	}
	if !slices.Equal(got, []string{"help", "new", "help"}) {
		t.Errorf("submitted = %v", got)
	}
	if h := p.History(); !slices.Equal(h, []string{"new", "help"}) {
		t.Errorf("history = %v", h)
	}

	p.Activate(PromptCommand)
	p.recall(-1)
	if p.GetText() != "help" {
		t.Errorf("first recall = %q", p.GetText())
	}
	p.recall(-1)
	p.recall(-1)
	if p.GetText() != "new" {
		t.Errorf("recall past oldest = %q", p.GetText())
	}
	p.recall(1)
	p.recall(1)
	if p.GetText() != "" {
		t.Errorf("recall past newest = %q", p.GetText())
	}

	p.Activate(PromptFilter)
	p.SetText("mom")
	p.done(tcell.KeyEnter)
	if len(p.History()) != 2 {
		t.Error("filter text entered command history")
	}
}

func TestMenuColumns(t *testing.T) {
	m := NewMenu(DefaultTheme(), 2)
	out := m.layout([]MenuHint{
		{Key: "n", Description: "New"},
		{Key: "d", Description: "Details"},
		{Key: "?", Description: "Help"},
	})
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %q", lines)
	}
	if !strings.Contains(lines[0], "New") || !strings.Contains(lines[0], "Help") {
		t.Errorf("row 0 = %q", lines[0])
	}
	if !strings.Contains(lines[1], "Details") || strings.Contains(lines[1], "Help") {
		t.Errorf("row 1 = %q", lines[1])
	}
}

func TestCrumbsTrail(t *testing.T) {
	c := NewCrumbs(DefaultTheme())
	out := c.trail([]string{"Inbox", "Details"})
	if !strings.Contains(out, " inbox ") || !strings.HasSuffix(out, ":b] details [-:-:-]") {
		t.Errorf("trail = %q", out)
	}
}

func TestLogoText(t *testing.T) {
	out := logoText(DefaultTheme(), "unified inbox")
	if strings.Count(out, "\n") != len(logoArt) || !strings.HasSuffix(out, "unified inbox[-]") {
		t.Errorf("logo = %q", out)
	}
}
