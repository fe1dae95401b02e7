package outbox

import (
	"sync"
	"testing"

	"github.com/matheus3301/wpp-inbox/internal/inbox"
)

func TestTimelineApplyRetiresPendingOnEcho(t *testing.T) {
	tl := NewTimeline()
	pending := inbox.Message{
		ID: inbox.NewPendingID(inbox.PrefixReply), To: "a@c.us", FromMe: true,
		Body: "see you", Timestamp: 100, ReplyTo: &inbox.Annotation{ID: "a@c.us", Name: "Alice"},
	}
	tl.Insert(pending)

	echo := inbox.Message{ID: "srv1", To: "a@c.us", FromMe: true, Body: "see you", Timestamp: 102}
	got := tl.Apply([]inbox.Message{echo})
	if len(got) != 1 || got[0].ID != "srv1" {
		t.Fatalf("Apply() = %+v, want only the server copy", got)
	}
}

func TestTimelineApplyIsSorted(t *testing.T) {
	tl := NewTimeline()
	got := tl.Apply([]inbox.Message{
		{ID: "b", From: "a@c.us", Body: "2", Timestamp: 200},
		{ID: "a", From: "a@c.us", Body: "1", Timestamp: 100},
	})
	if got[0].ID != "a" || got[1].ID != "b" {
		t.Errorf("order = %s,%s; want a,b", got[0].ID, got[1].ID)
	}
}

func TestTimelinePrioritized(t *testing.T) {
	tl := NewTimeline()
	tl.ReplaceContacts([]inbox.Contact{
		{ID: "1@c.us", Number: "1"},
		{ID: "2@c.us", Name: "Bob", Number: "2"},
		{ID: "3@c.us", Number: "3"},
	})
	tl.Apply([]inbox.Message{{ID: "m", From: "3@c.us", Body: "hey", Timestamp: 1}})

	got := tl.Prioritized()
	if got[0].ID != "3@c.us" || got[1].ID != "2@c.us" || got[2].ID != "1@c.us" {
		t.Errorf("order = %s,%s,%s", got[0].ID, got[1].ID, got[2].ID)
	}
}

func TestTimelineConcurrentApplyAndInsert(t *testing.T) {
	tl := NewTimeline()
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			tl.Apply([]inbox.Message{{ID: "srv", From: "a@c.us", Body: "x", Timestamp: 1}})
		}()
		go func() {
			defer wg.Done()
			tl.Insert(inbox.Message{ID: inbox.NewPendingID(inbox.PrefixNew), To: "b@c.us", FromMe: true, Body: string(rune('a' + i)), Timestamp: float64(1000 + i*10)})
		}()
	}
	wg.Wait()
	if n := len(tl.Messages()); n != 21 {
		t.Errorf("timeline has %d messages, want 21", n)
	}
}
