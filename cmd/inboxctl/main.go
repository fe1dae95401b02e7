package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/mdp/qrterminal"

	"github.com/matheus3301/wpp-inbox/internal/bus"
	"github.com/matheus3301/wpp-inbox/internal/config"
	"github.com/matheus3301/wpp-inbox/internal/inbox"
	"github.com/matheus3301/wpp-inbox/internal/outbox"
	"github.com/matheus3301/wpp-inbox/internal/poll"
	"github.com/matheus3301/wpp-inbox/internal/rpc"
	"github.com/matheus3301/wpp-inbox/internal/session"
	"github.com/matheus3301/wpp-inbox/internal/status"
	"github.com/matheus3301/wpp-inbox/internal/tui/client"
)

func main() {
	sessionFlag := flag.String("session", "", "session name (overrides config default)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	flag.Usage = printUsage
	flag.Parse()

	sessionName := session.Resolve(*sessionFlag)
	if err := session.ValidateName(sessionName); err != nil {
		fail(err)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	if args[0] == "sessions" {
		cmdSessionsList(*jsonFlag)
		return
	}

	c, err := client.New(session.SocketPath(sessionName))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot connect to daemon for session %q: %v\n", sessionName, err)
		os.Exit(1)
	}
	defer func() { _ = c.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := printer{json: *jsonFlag}
	switch args[0] {
	case "status":
		err = cmdStatus(ctx, c, out)
	case "auth":
		err = cmdAuth(ctx, c, out)
	case "pair":
		err = cmdPair(ctx, c, out)
	case "contacts":
		err = cmdContacts(ctx, c, out, strings.Join(args[1:], " "))
	case "messages":
		fs := flag.NewFlagSet("messages", flag.ExitOnError)
		recent := fs.Bool("recent", false, "only the latest messages of the most recent conversations")
		_ = fs.Parse(args[1:])
		err = cmdMessages(ctx, c, out, *recent)
	case "send":
		if len(args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: inboxctl send <number|chat id> <message>")
			os.Exit(1)
		}
		err = cmdSend(ctx, c, out, args[1], strings.Join(args[2:], " "))
	case "sync":
		err = cmdSync(ctx, c, out)
	case "watch":
		err = cmdWatch(ctx, c, out, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fail(err)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: inboxctl [--session <name>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  status                 Show session status")
	fmt.Fprintln(os.Stderr, "  auth                   Show the pairing QR until the session is ready")
	fmt.Fprintln(os.Stderr, "  pair                   Restart pairing")
	fmt.Fprintln(os.Stderr, "  contacts [query]       List contacts")
	fmt.Fprintln(os.Stderr, "  messages [--recent]    List messages")
	fmt.Fprintln(os.Stderr, "  send <to> <message>    Send a text message")
	fmt.Fprintln(os.Stderr, "  sync                   Show history sync progress")
	fmt.Fprintln(os.Stderr, "  watch [namespace...]   Stream daemon events")
	fmt.Fprintln(os.Stderr, "  sessions               List known sessions")
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "error: %s\n", client.Message(err))
	os.Exit(1)
}

type printer struct {
	json bool
}

func (p printer) JSON(v any) bool {
	if !p.json {
		return false
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
	return true
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, 10*time.Second)
}

func cmdStatus(ctx context.Context, c *client.Client, out printer) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	r, err := c.Status(ctx)
	if err != nil {
		return err
	}
	if out.JSON(r) {
		return nil
	}
	fmt.Printf("Backend:       %s\n", r.Backend)
	fmt.Printf("State:         %s\n", r.State)
	fmt.Printf("Ready:         %v\n", r.Ready)
	fmt.Printf("Authenticated: %v\n", r.Authenticated)
	if name, ok := r.ClientInfo["pushname"].(string); ok {
		fmt.Printf("Account:       %s\n", name)
	}
	if r.Error != "" {
		fmt.Printf("Error:         %s\n", r.Error)
	}
	return nil
}

// cmdAuth prints each new QR code until the daemon reports ready.
func cmdAuth(ctx context.Context, c *client.Client, out printer) error {
	cfg, err := session.LoadConfig()
	if err != nil {
		cfg = config.Default()
	}
	p := poll.New(c, outbox.NewTimeline(), poll.Options{
		Status:        cfg.Poll.Status.Duration,
		StatusCeiling: cfg.Poll.StatusCeiling.Duration,
	}, nil)

	lastQR := ""
	r, err := p.AwaitReady(ctx, func(r status.Report) {
		if out.json || r.RawQR == "" || r.RawQR == lastQR {
			return
		}
		lastQR = r.RawQR
		fmt.Println("Scan this QR code with WhatsApp (Linked Devices):")
		qrterminal.GenerateHalfBlock(r.RawQR, qrterminal.L, os.Stdout)
	})
	if errors.Is(err, poll.ErrAuthTimeout) {
		return fmt.Errorf("%w; run `inboxctl pair` to try again", err)
	}
	if err != nil {
		return err
	}
	if out.JSON(r) {
		return nil
	}
	fmt.Println("Session authenticated.")
	return nil
}

func cmdPair(ctx context.Context, c *client.Client, out printer) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	if err := c.Pair(ctx); err != nil {
		if client.IsUnsupported(err) {
			return errors.New("the active backend does not pair with a QR code")
		}
		return err
	}
	if !out.JSON(map[string]bool{"ok": true}) {
		fmt.Println("Pairing restarted. Run `inboxctl auth` to scan the new code.")
	}
	return nil
}

func cmdContacts(ctx context.Context, c *client.Client, out printer, query string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	contacts, err := c.Contacts(ctx)
	if err != nil {
		return err
	}
	if query != "" {
		contacts = inbox.FilterContacts(contacts, query, inbox.FilterLimits{Browse: len(contacts), Search: len(contacts)})
	}
	if out.JSON(contacts) {
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tNUMBER\tID")
	for _, ct := range contacts {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", inbox.DisplayName(ct.ID, inbox.NewDirectory(contacts)), inbox.FormatNumber(ct.ID), ct.ID)
	}
	return w.Flush()
}

func cmdMessages(ctx context.Context, c *client.Client, out printer, recent bool) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	msgs, err := c.Messages(ctx)
	if err != nil {
		return err
	}
	contacts, err := c.Contacts(ctx)
	if err != nil {
		return err
	}
	if recent {
		msgs = inbox.RecentConversations(msgs, inbox.DefaultLimits)
	} else {
		inbox.SortTimeline(msgs)
	}
	if out.JSON(msgs) {
		return nil
	}

	dir := inbox.NewDirectory(contacts)
	now := time.Now()
	lastDay := ""
	for _, m := range msgs {
		if day := inbox.DayLabel(m.Timestamp, now); day != lastDay {
			lastDay = day
			fmt.Printf("── %s ──\n", day)
		}
		who := inbox.Speaker(m, dir)
		if m.FromMe {
			who = "You → " + who
		}
		fmt.Printf("%s  %-28s %s\n", inbox.Time(m.Timestamp).Format("15:04"), who, m.Body)
	}
	return nil
}

func cmdSend(ctx context.Context, c *client.Client, out printer, to, text string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	res, err := c.Send(ctx, to, text)
	if err != nil {
		return err
	}
	if !out.JSON(res) {
		fmt.Printf("Sent %s\n", res.ID)
	}
	return nil
}

func cmdSync(ctx context.Context, c *client.Client, out printer) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	p, err := c.SyncProgress(ctx)
	if err != nil {
		return err
	}
	if out.JSON(p) {
		return nil
	}
	fmt.Printf("Loading:  %v\n", p.IsLoading)
	fmt.Printf("Status:   %s\n", p.Status)
	fmt.Printf("Messages: %d\n", p.MessagesLoaded)
	fmt.Printf("Contacts: %d\n", p.ContactsLoaded)
	if p.LastMessageAt != nil {
		fmt.Printf("Last:     %s\n", p.LastMessageAt.Local().Format(time.DateTime))
	}
	return nil
}

func cmdWatch(ctx context.Context, c *client.Client, out printer, namespaces []string) error {
	for i, ns := range namespaces {
		if !strings.HasSuffix(ns, ".") {
			namespaces[i] = ns + "."
		}
	}
	if len(namespaces) == 0 {
		namespaces = []string{bus.NSMessage, bus.NSContacts, bus.NSSession}
	}
	return c.Watch(ctx, namespaces, func(evt rpc.Event) error {
		if out.JSON(evt) {
			return nil
		}
		fmt.Printf("%s  %-24s %s\n", evt.Timestamp.Format(time.TimeOnly), evt.Kind, evt.Payload)
		return nil
	})
}

func cmdSessionsList(jsonOut bool) {
	rows, err := session.List()
	if err != nil {
		fail(err)
	}
	if (printer{json: jsonOut}).JSON(rows) {
		return
	}
	if len(rows) == 0 {
		fmt.Println("No sessions found.")
		return
	}
	for _, r := range rows {
		running := "stopped"
		if r.Running {
			running = "running"
		}
		fmt.Printf("%-20s %s (%s)\n", r.Name, r.Path, running)
	}
}
