// Package tui is the terminal inbox: a single timeline across every
// conversation with reply and new-message composers on top.
package tui

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"go.uber.org/zap"

	"github.com/matheus3301/wpp-inbox/internal/backend"
	"github.com/matheus3301/wpp-inbox/internal/inbox"
	"github.com/matheus3301/wpp-inbox/internal/poll"
	"github.com/matheus3301/wpp-inbox/internal/status"
	"github.com/matheus3301/wpp-inbox/internal/tui/client"
	"github.com/matheus3301/wpp-inbox/internal/tui/keys"
	"github.com/matheus3301/wpp-inbox/internal/tui/model"
	"github.com/matheus3301/wpp-inbox/internal/tui/ui"
	"github.com/matheus3301/wpp-inbox/internal/tui/views"
)

const (
	pageInbox   = "inbox"
	pageAuth    = "auth"
	pageNew     = "new"
	pageCompose = "compose"
	pageDetails = "details"
	pageHelp    = "help"
)

// App is the main TUI application shell.
type App struct {
	app      *tview.Application
	root     *tview.Flex
	pages    *ui.Pages
	vm       *model.ViewModel
	registry *keys.Registry
	theme    *ui.Theme
	session  string
	opts     poll.Options
	logger   *zap.Logger

	info      *ui.SessionInfo
	menu      *ui.Menu
	crumbs    *ui.Crumbs
	flashBar  *ui.FlashBar
	prompt    *ui.Prompt
	statusBar *views.StatusBar
	timeline  *views.Timeline
	composer  *views.Composer
	quote     *tview.TextView
	picker    *views.ContactPicker
	details   *views.ContactInfo
	help      *views.HelpView
	authView  *views.AuthView

	components map[string]ui.Component
	focus      map[string]tview.Primitive

	replyTo    inbox.Message
	authActive atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates the TUI application.
func NewApp(d model.Daemon, sessionName string, opts poll.Options, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()

	a := &App{
		app:       tview.NewApplication(),
		pages:     ui.NewPages(),
		vm:        model.NewViewModel(d, opts, logger),
		registry:  keys.NewRegistry(),
		theme:     theme,
		session:   sessionName,
		opts:      opts,
		logger:    logger.Named("tui"),
		info:      ui.NewSessionInfo(theme),
		menu:      ui.NewMenu(theme, 6),
		crumbs:    ui.NewCrumbs(theme),
		flashBar:  ui.NewFlashBar(theme),
		prompt:    ui.NewPrompt(theme),
		statusBar: views.NewStatusBar(),
		timeline:  views.NewTimeline(theme),
		composer:  views.NewComposer(theme),
		quote:     tview.NewTextView().SetDynamicColors(true).SetWordWrap(true),
		picker:    views.NewContactPicker(theme),
		details:   views.NewContactInfo(theme),
		help:      views.NewHelpView(theme),
		authView:  views.NewAuthView(theme),
		ctx:       ctx,
		cancel:    cancel,
	}
	a.statusBar.SetSession(sessionName)

	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()
	return a
}

func (a *App) setupBindings() {
	a.registry.AddGlobal("help", &keys.Action{
		Key: tcell.KeyRune, Rune: '?',
		Description: "?:help", Visible: true,
		Handler: func() { a.show(pageHelp) },
	})
	a.registry.AddGlobal("command", &keys.Action{
		Key: tcell.KeyRune, Rune: ':',
		Description: ":command", Visible: true,
		Handler: func() { a.activatePrompt(ui.PromptCommand) },
	})
	a.registry.AddGlobal("quit", &keys.Action{
		Key: tcell.KeyRune, Rune: 'q',
		Description: "q:quit", Visible: true,
		Handler: func() {
			if a.pages.Depth() > 1 {
				a.back()
				return
			}
			a.Stop()
		},
	})

	a.registry.AddView(pageInbox, "new", &keys.Action{
		Key: tcell.KeyRune, Rune: 'n',
		Description: "n:new", Visible: true,
		Handler: func() { a.openPicker("") },
	})
	a.registry.AddView(pageInbox, "details", &keys.Action{
		Key: tcell.KeyRune, Rune: 'd',
		Description: "d:details", Visible: true,
		Handler: func() {
			if m, ok := a.timeline.Selected(); ok {
				a.openDetails(m)
			}
		},
	})
	a.registry.AddView(pageInbox, "filter", &keys.Action{
		Key: tcell.KeyRune, Rune: '/',
		Description: "/:filter", Visible: true,
		Handler: func() { a.activatePrompt(ui.PromptFilter) },
	})
	a.registry.AddView(pageInbox, "clear", &keys.Action{
		Key: tcell.KeyRune, Rune: '0',
		Description: "0:clear filter",
		Handler: func() { a.timeline.ClearFilter() },
	})
	a.registry.AddView(pageDetails, "reply", &keys.Action{
		Key:         tcell.KeyEnter,
		Description: "enter:reply", Visible: true,
		Handler: func() {
			if m, ok := a.timeline.Selected(); ok {
				a.openReply(m)
			}
		},
	})
	a.registry.AddView(pageAuth, "retry", &keys.Action{
		Key: tcell.KeyRune, Rune: 'r',
		Description: "r:retry", Visible: true,
		Handler: func() { go a.retryPairing() },
	})
}

func (a *App) setupCallbacks() {
	a.timeline.SetSelectedFunc(func(int, int) {
		if m, ok := a.timeline.Selected(); ok {
			a.openReply(m)
		}
	})

	a.picker.SetOnQuery(func(query string) {
		a.updatePicker(query)
	})
	a.picker.SetOnSelect(a.openNew)

	a.composer.SetOnSend(func(mode views.ComposeMode, to inbox.Annotation, text string) {
		var err error
		if mode == views.ComposeReply {
			err = a.vm.Reply(a.ctx, a.replyTo, text)
		} else {
			err = a.vm.SendNew(a.ctx, to.ID, text)
		}
		if err != nil {
			a.vm.Flash.Err(err)
		}
	})
	a.composer.SetOnDone(func() {
		a.pages.Reset(pageInbox)
		a.app.SetFocus(a.timeline)
	})

	a.prompt.SetOnSubmit(func(mode ui.PromptMode, text string) {
		a.deactivatePrompt()
		if mode == ui.PromptFilter {
			a.timeline.SetFilter(text)
			return
		}
		a.runCommand(ParseCommand(text))
	})
	a.prompt.SetOnCancel(a.deactivatePrompt)

	a.pages.SetOnChange(func(stack []string) {
		names := make([]string, 0, len(stack))
		for _, p := range stack {
			names = append(names, a.components[p].Name())
		}
		a.crumbs.Update(names)
		if len(stack) > 0 {
			a.menu.Update(a.components[stack[len(stack)-1]].Hints())
		}
	})
}

func (a *App) setupLayout() {
	a.quote.SetBorder(true)
	a.quote.SetBorderColor(a.theme.BorderColor)
	a.quote.SetBackgroundColor(a.theme.BgColor)
	a.quote.SetTextColor(a.theme.FgColor)

	compose := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.quote, 0, 1, false).
		AddItem(a.composer, 3, 0, true)

	a.components = map[string]ui.Component{
		pageInbox:   a.timeline,
		pageAuth:    a.authView,
		pageNew:     a.picker,
		pageCompose: a.composer,
		pageDetails: a.details,
		pageHelp:    a.help,
	}
	a.focus = map[string]tview.Primitive{
		pageInbox:   a.timeline,
		pageAuth:    a.authView,
		pageNew:     a.picker.Input(),
		pageCompose: a.composer.InputField,
		pageDetails: a.details,
		pageHelp:    a.help,
	}
	a.pages.AddPage(pageInbox, a.timeline, true, false)
	a.pages.AddPage(pageAuth, a.authView, true, false)
	a.pages.AddPage(pageNew, a.picker, true, false)
	a.pages.AddPage(pageCompose, compose, true, false)
	a.pages.AddPage(pageDetails, a.details, true, false)
	a.pages.AddPage(pageHelp, a.help, true, false)

	header := tview.NewFlex().
		AddItem(a.info, 0, 1, false).
		AddItem(a.menu, 0, 1, false).
		AddItem(ui.NewLogo(a.theme, "unified inbox"), 18, 0, false)

	a.root = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, 6, 0, false).
		AddItem(a.crumbs, 1, 0, false).
		AddItem(a.prompt, 0, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.flashBar, 1, 0, false).
		AddItem(a.statusBar, 1, 0, false)
	a.app.SetRoot(a.root, true)

	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		focused := a.app.GetFocus()
		if focused == a.prompt.InputField {
			return event
		}

		if event.Key() == tcell.KeyEscape && a.pages.Depth() > 1 && a.pages.Current() != pageAuth {
			a.back()
			return nil
		}

		if focused == a.picker.Input() {
			switch event.Key() {
			case tcell.KeyDown, tcell.KeyTab:
				a.app.SetFocus(a.picker.Results())
				return nil
			}
			return event
		}
		if _, ok := focused.(*tview.InputField); ok {
			return event
		}

		if a.registry.HandleEvent(a.pages.Current(), event) {
			return nil
		}
		return event
	})
}

// show pushes a page and focuses it.
func (a *App) show(page string) {
	if a.pages.Current() == page {
		return
	}
	a.pages.Push(page)
	a.app.SetFocus(a.focus[page])
}

func (a *App) back() {
	a.pages.Pop()
	if cur := a.pages.Current(); cur != "" {
		a.app.SetFocus(a.focus[cur])
	}
}

func (a *App) activatePrompt(mode ui.PromptMode) {
	a.prompt.Activate(mode)
	a.root.ResizeItem(a.prompt, 3, 0)
	a.app.SetFocus(a.prompt.InputField)
}

func (a *App) deactivatePrompt() {
	a.root.ResizeItem(a.prompt, 0, 0)
	if cur := a.pages.Current(); cur != "" {
		a.app.SetFocus(a.focus[cur])
	}
}

func (a *App) runCommand(cmd Command) {
	switch cmd.Name {
	case "quit":
		a.Stop()
	case "help":
		a.show(pageHelp)
	case "new":
		a.openPicker(cmd.Args)
	case "pair":
		go a.retryPairing()
	default:
		a.vm.Flash.Warn(fmt.Sprintf("unknown command %q", cmd.Name))
	}
}

func (a *App) openReply(m inbox.Message) {
	a.replyTo = m
	who := a.vm.Timeline.Resolve(m.Key())
	a.quote.Clear()
	a.quote.SetTitle(" " + tview.Escape(a.vm.Timeline.Speaker(m)) + " ")
	_, _ = fmt.Fprintf(a.quote, "[::d]%s[-:-:-]\n%s",
		inbox.Time(m.Timestamp).Format("Mon 15:04"), tview.Escape(m.Body))
	a.composer.Open(views.ComposeReply, who)
	a.show(pageCompose)
}

func (a *App) openPicker(query string) {
	a.picker.Reset()
	a.picker.Input().SetText(query)
	a.updatePicker(query)
	a.show(pageNew)
}

func (a *App) updatePicker(query string) {
	a.picker.Update(a.vm.Frequent(query), a.vm.Contacts(query))
}

func (a *App) openNew(c inbox.Contact) {
	who := a.vm.Timeline.Resolve(c.ID)
	a.quote.Clear()
	a.quote.SetTitle(" New conversation ")
	_, _ = fmt.Fprintf(a.quote, "[::d]%s[-:-:-]", inbox.FormatNumber(c.ID))
	a.composer.Open(views.ComposeNew, who)
	a.show(pageCompose)
}

func (a *App) openDetails(m inbox.Message) {
	who := a.vm.Timeline.Resolve(m.Key())
	var contact *inbox.Contact
	for _, c := range a.vm.Timeline.Contacts() {
		if c.ID == who.ID {
			contact = &c
			break
		}
	}
	a.details.Update(m, who, contact)
	a.show(pageDetails)
}

// render copies view model state into the widgets. Must run on the UI
// goroutine.
func (a *App) render() {
	r := a.vm.Status()
	a.timeline.Update(a.vm.Messages(), a.vm.Timeline)
	if a.pages.Current() == pageNew {
		a.updatePicker(a.picker.Query())
	}
	a.statusBar.SetReport(r)
	a.statusBar.SetOffline(a.vm.Offline())
	a.statusBar.SetFlash(a.vm.Flash.Get())
	a.flashBar.Update(a.vm.Flash.GetMessage())

	account, _ := r.ClientInfo["pushname"].(string)
	wid, _ := r.ClientInfo["wid"].(string)
	a.info.Update(&ui.SessionData{
		Session:  a.session,
		Backend:  r.Backend,
		Account:  account,
		Phone:    inbox.FormatNumber(wid),
		State:    string(r.State),
		Messages: len(a.vm.Messages()),
		Contacts: len(a.vm.Timeline.Contacts()),
	})
}

// Run starts the TUI application and blocks until it exits.
func (a *App) Run() error {
	if err := a.vm.Start(a.ctx); err != nil {
		return fmt.Errorf("start polling: %w", err)
	}
	defer a.vm.Stop()

	a.pages.Reset(pageInbox)
	a.app.SetFocus(a.timeline)

	go a.watchRefresh()
	go a.watchFlash()
	go a.watchStatus()
	go func() {
		if err := a.vm.LoadStatus(a.ctx); err != nil {
			a.vm.Flash.Err(err)
			return
		}
		a.checkAuth(a.vm.Status())
	}()

	return a.app.Run()
}

func (a *App) watchRefresh() {
	for {
		select {
		case <-a.ctx.Done():
			return
		case <-a.vm.RefreshCh():
			a.app.QueueUpdateDraw(a.render)
		}
	}
}

func (a *App) watchFlash() {
	tick := time.NewTicker(time.Second)
	defer tick.Stop()
	for {
		select {
		case <-a.ctx.Done():
			return
		case fm := <-a.vm.Flash.Watch():
			a.app.QueueUpdateDraw(func() {
				a.flashBar.Update(&fm)
				a.statusBar.SetFlash(fm.Text)
			})
		case <-tick.C:
			a.app.QueueUpdateDraw(func() {
				a.flashBar.Update(a.vm.Flash.GetMessage())
				a.statusBar.SetFlash(a.vm.Flash.Get())
			})
		}
	}
}

// watchStatus keeps the status bar current and sends the user back to
// pairing when the daemon loses its session.
func (a *App) watchStatus() {
	interval := a.opts.Status
	if interval <= 0 {
		interval = 2 * time.Second
	}
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-a.ctx.Done():
			return
		case <-tick.C:
			if a.authActive.Load() {
				continue
			}
			if err := a.vm.LoadStatus(a.ctx); err != nil {
				continue
			}
			a.checkAuth(a.vm.Status())
		}
	}
}

func (a *App) checkAuth(r status.Report) {
	switch r.State {
	case status.AuthRequired, status.AuthTimeout:
		a.startAuthFlow()
	}
}

func (a *App) startAuthFlow() {
	if !a.authActive.CompareAndSwap(false, true) {
		return
	}
	a.app.QueueUpdateDraw(func() {
		a.pages.Reset(pageAuth)
		a.app.SetFocus(a.authView)
		a.authView.ShowMessage("Starting authentication...")
	})
	go a.runAuthFlow()
}

// runAuthFlow renders every status until the session is ready or pairing
// times out.
func (a *App) runAuthFlow() {
	defer a.authActive.Store(false)

	_, err := a.vm.AwaitReady(a.ctx, func(r status.Report) {
		a.app.QueueUpdateDraw(func() { a.authView.Render(r) })
	})
	switch {
	case err == nil:
		a.vm.Flash.Info("authenticated")
		a.app.QueueUpdateDraw(func() {
			a.pages.Reset(pageInbox)
			a.app.SetFocus(a.timeline)
			a.render()
		})
	case errors.Is(err, poll.ErrAuthTimeout):
		a.app.QueueUpdateDraw(a.authView.ShowTimeout)
	case errors.Is(err, context.Canceled):
	default:
		a.logger.Warn("auth flow failed", zap.Error(err))
		a.app.QueueUpdateDraw(func() { a.authView.ShowMessage("[red]" + tview.Escape(err.Error()) + "[-]") })
	}
}

func (a *App) retryPairing() {
	if err := a.vm.Pair(a.ctx); err != nil {
		if errors.Is(err, backend.ErrUnsupported) || client.IsUnsupported(err) {
			a.vm.Flash.Warn("this backend does not pair with a QR code")
		} else {
			a.vm.Flash.Warn("pair: " + client.Message(err))
		}
		return
	}
	a.startAuthFlow()
}

// Stop gracefully shuts down the TUI.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}
