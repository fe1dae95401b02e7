package model

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/matheus3301/wpp-inbox/internal/backend"
	"github.com/matheus3301/wpp-inbox/internal/inbox"
	"github.com/matheus3301/wpp-inbox/internal/poll"
	"github.com/matheus3301/wpp-inbox/internal/service"
	"github.com/matheus3301/wpp-inbox/internal/status"
	"github.com/matheus3301/wpp-inbox/internal/tui/ui"
)

const (
	self  = "918777345990@c.us"
	momID = "919876543210@c.us"
	dadID = "919876543211@c.us"
)

type fakeDaemon struct {
	mu      sync.Mutex
	msgs    []inbox.Message
	sendErr error
	release chan struct{}
	sent    []string
}

func (f *fakeDaemon) Status(context.Context) (status.Report, error) {
	return status.Report{Ready: true, State: status.Ready}, nil
}

func (f *fakeDaemon) Contacts(context.Context) ([]inbox.Contact, error) {
	return []inbox.Contact{
		{ID: dadID, Name: "Dad", Number: "919876543211"},
		{ID: momID, Name: "Mom", Number: "919876543210"},
	}, nil
}

func (f *fakeDaemon) Messages(context.Context) ([]inbox.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]inbox.Message(nil), f.msgs...), nil
}

func (f *fakeDaemon) Send(ctx context.Context, to, text string) (backend.SendResult, error) {
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	f.sent = append(f.sent, to+":"+text)
	f.mu.Unlock()
	if f.sendErr != nil {
		return backend.SendResult{}, f.sendErr
	}
	return backend.SendResult{ID: "srv_1", Timestamp: 1, Ack: 1}, nil
}

func (f *fakeDaemon) Pair(context.Context) error { return nil }

func (f *fakeDaemon) SyncProgress(context.Context) (service.SyncProgress, error) {
	return service.SyncProgress{}, nil
}

func history() []inbox.Message {
	return []inbox.Message{
		{ID: "m1", From: momID, To: self, Body: "Beta, khana kha liya?", Timestamp: 100, Kind: inbox.KindText},
		{ID: "g1", From: "1203630@g.us", To: self, Body: "group chatter", Timestamp: 110, Kind: inbox.KindText},
		{ID: "s1", From: "status@broadcast", To: self, Body: "story", Timestamp: 120, Kind: inbox.KindText},
		{ID: "e1", From: momID, To: self, Body: "  ", Timestamp: 130, Kind: inbox.KindText},
	}
}

func TestMessagesHidesInvisible(t *testing.T) {
	d := &fakeDaemon{msgs: history()}
	vm := NewViewModel(d, poll.Options{}, nil)
	vm.poller.FetchMessages(context.Background())

	got := vm.Messages()
	if len(got) != 1 || got[0].ID != "m1" {
		t.Errorf("Messages() = %+v", got)
	}
}

func TestContactsPutsHistoryFirst(t *testing.T) {
	d := &fakeDaemon{msgs: history()}
	vm := NewViewModel(d, poll.Options{}, nil)
	vm.poller.FetchContacts(context.Background())
	vm.poller.FetchMessages(context.Background())

	got := vm.Contacts("")
	if len(got) != 2 || got[0].ID != momID {
		t.Errorf("Contacts(\"\") = %+v", got)
	}
	if got := vm.Contacts("dad"); len(got) != 1 || got[0].ID != dadID {
		t.Errorf("Contacts(dad) = %+v", got)
	}
}

func TestFrequentOnlyWhenBrowsing(t *testing.T) {
	d := &fakeDaemon{msgs: history()}
	vm := NewViewModel(d, poll.Options{}, nil)
	vm.poller.FetchContacts(context.Background())
	vm.poller.FetchMessages(context.Background())

	if got := vm.Frequent(""); len(got) != 1 || got[0].ID != momID {
		t.Errorf("Frequent(\"\") = %+v", got)
	}
	if got := vm.Frequent("da"); got != nil {
		t.Errorf("Frequent(da) = %+v, want nil", got)
	}
}

func TestReplyIsOptimistic(t *testing.T) {
	d := &fakeDaemon{msgs: history(), release: make(chan struct{})}
	vm := NewViewModel(d, poll.Options{}, nil)
	vm.poller.FetchContacts(context.Background())
	vm.poller.FetchMessages(context.Background())

	if err := vm.Reply(context.Background(), history()[0], "Haan mom"); err != nil {
		t.Fatal(err)
	}
	var pending inbox.Message
	for _, m := range vm.Messages() {
		if inbox.IsPending(m.ID) {
			pending = m
		}
	}
	if !strings.HasPrefix(pending.ID, inbox.PrefixReply) || pending.To != momID || !pending.FromMe {
		t.Fatalf("pending = %+v", pending)
	}
	if pending.ReplyTo == nil || pending.ReplyTo.Name != "Mom" {
		t.Errorf("ReplyTo = %+v", pending.ReplyTo)
	}

	close(d.release)
	vm.sender.Wait()
	if n := len(vm.Messages()); n != 2 {
		t.Errorf("after ack got %d messages, want 2", n)
	}
	if len(d.sent) != 1 || d.sent[0] != momID+":Haan mom" {
		t.Errorf("sent = %v", d.sent)
	}
}

func TestSendFailureRollsBack(t *testing.T) {
	d := &fakeDaemon{sendErr: errors.New("backend not ready")}
	vm := NewViewModel(d, poll.Options{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := vm.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer vm.Stop()

	if err := vm.SendNew(ctx, "919876543211", "hello dad"); err != nil {
		t.Fatal(err)
	}
	vm.sender.Wait()
	for _, m := range vm.Timeline.Messages() {
		if inbox.IsPending(m.ID) {
			t.Errorf("pending message survived failure: %+v", m)
		}
	}

	deadline := time.After(time.Second)
	for {
		if fm := vm.Flash.GetMessage(); fm != nil && fm.Level == ui.FlashWarn {
			if !strings.Contains(fm.Text, "backend not ready") {
				t.Errorf("flash = %q", fm.Text)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("no failure flash")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestSendValidation(t *testing.T) {
	vm := NewViewModel(&fakeDaemon{}, poll.Options{}, nil)
	if err := vm.SendNew(context.Background(), "", "hi"); err == nil {
		t.Error("empty recipient accepted")
	}
	if err := vm.Reply(context.Background(), history()[0], "   "); err == nil {
		t.Error("blank body accepted")
	}
}

func TestLoadStatusSignalsRefresh(t *testing.T) {
	vm := NewViewModel(&fakeDaemon{}, poll.Options{}, nil)
	if err := vm.LoadStatus(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !vm.Status().Ready {
		t.Error("status not cached")
	}
	select {
	case <-vm.RefreshCh():
	default:
		t.Error("no refresh signal")
	}
}
