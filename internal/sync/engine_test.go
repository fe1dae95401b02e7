package sync

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/matheus3301/wpp-inbox/internal/bus"
	"github.com/matheus3301/wpp-inbox/internal/inbox"
	"github.com/matheus3301/wpp-inbox/internal/store"
)

func testDB(t *testing.T) *store.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := store.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func msg(id, from string, ts float64, body string) inbox.Message {
	return inbox.Message{ID: id, From: from, To: "me@c.us", Body: body, Timestamp: ts, Kind: inbox.KindText}
}

func TestEngineIngestMessage(t *testing.T) {
	db := testDB(t)
	b := bus.New()
	e := NewEngine(db, b, nil, 0)

	ch, unsub := b.Subscribe(bus.NSMessage, 10)
	defer unsub()

	if err := e.IngestMessage(msg("m1", "a@c.us", 1000, "hello")); err != nil {
		t.Fatal(err)
	}

	msgs, err := db.RecentMessages(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].Body != "hello" {
		t.Errorf("got %d messages, want 1 with body=hello", len(msgs))
	}

	select {
	case evt := <-ch:
		if evt.Kind != bus.MessageUpserted {
			t.Errorf("event kind = %q, want %s", evt.Kind, bus.MessageUpserted)
		}
		if m, ok := evt.Payload.(inbox.Message); !ok || m.ID != "m1" {
			t.Errorf("payload = %#v", evt.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message.upserted event")
	}

	at, err := db.TouchedAt(store.KeyLastMessageAt)
	if err != nil {
		t.Fatal(err)
	}
	if at.Unix() != 1000 {
		t.Errorf("last message checkpoint = %v, want unix 1000", at.Unix())
	}
}

func TestEngineIngestMessageIdempotent(t *testing.T) {
	db := testDB(t)
	e := NewEngine(db, bus.New(), nil, 0)

	m := msg("m1", "a@c.us", 1000, "v1")
	if err := e.IngestMessage(m); err != nil {
		t.Fatal(err)
	}
	m.Body = "v2"
	if err := e.IngestMessage(m); err != nil {
		t.Fatal(err)
	}

	msgs, err := db.RecentMessages(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1 (idempotent)", len(msgs))
	}
	if msgs[0].Body != "v2" {
		t.Errorf("body = %q, want v2 (updated)", msgs[0].Body)
	}
}

func TestEngineCheckpointNeverMovesBack(t *testing.T) {
	db := testDB(t)
	e := NewEngine(db, bus.New(), nil, 0)

	_ = e.IngestMessage(msg("m2", "a@c.us", 2000, "new"))
	_ = e.IngestMessage(msg("m1", "a@c.us", 1000, "old"))

	at, _ := db.TouchedAt(store.KeyLastMessageAt)
	if at.Unix() != 2000 {
		t.Errorf("checkpoint = %d, want 2000", at.Unix())
	}
}

func TestEngineIngestHistoryBatchTrims(t *testing.T) {
	db := testDB(t)
	e := NewEngine(db, bus.New(), nil, 2)

	batch := []inbox.Message{
		msg("m1", "a@c.us", 1000, "one"),
		msg("m2", "a@c.us", 2000, "two"),
		msg("m3", "b@c.us", 3000, "three"),
	}
	if err := e.IngestHistoryBatch(batch); err != nil {
		t.Fatal(err)
	}
	// Ingesting twice must not duplicate.
	if err := e.IngestHistoryBatch(batch); err != nil {
		t.Fatal(err)
	}

	msgs, err := db.RecentMessages(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2 after trim", len(msgs))
	}
	if msgs[0].ID != "m3" || msgs[1].ID != "m2" {
		t.Errorf("kept %s,%s; want m3,m2", msgs[0].ID, msgs[1].ID)
	}
}

func TestEngineIngestMessageTrims(t *testing.T) {
	db := testDB(t)
	e := NewEngine(db, bus.New(), nil, 2)

	for _, m := range []inbox.Message{
		msg("m1", "a@c.us", 1000, "one"),
		msg("m2", "a@c.us", 2000, "two"),
		msg("m3", "b@c.us", 3000, "three"),
	} {
		if err := e.IngestMessage(m); err != nil {
			t.Fatal(err)
		}
	}

	msgs, err := db.RecentMessages(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2 after trim", len(msgs))
	}
	if msgs[0].ID != "m3" || msgs[1].ID != "m2" {
		t.Errorf("kept %s,%s; want m3,m2", msgs[0].ID, msgs[1].ID)
	}
}

type stubSource struct {
	contacts []inbox.Contact
	err      error
}

func (s stubSource) Contacts(context.Context) ([]inbox.Contact, error) {
	return s.contacts, s.err
}

func TestEngineRefreshContactsReplaces(t *testing.T) {
	db := testDB(t)
	b := bus.New()
	e := NewEngine(db, b, nil, 0)

	ch, unsub := b.Subscribe(bus.ContactsReplaced, 10)
	defer unsub()

	first := stubSource{contacts: []inbox.Contact{{ID: "a@c.us", Name: "A"}, {ID: "b@c.us", Name: "B"}}}
	if err := e.RefreshContacts(context.Background(), first); err != nil {
		t.Fatal(err)
	}
	second := stubSource{contacts: []inbox.Contact{{ID: "c@c.us", Name: "C"}}}
	if err := e.RefreshContacts(context.Background(), second); err != nil {
		t.Fatal(err)
	}

	got, err := db.ListContacts()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "c@c.us" {
		t.Errorf("contacts = %+v, want only c@c.us", got)
	}

	for range 2 {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for contacts.replaced")
		}
	}

	failing := stubSource{err: errors.New("offline")}
	if err := e.RefreshContacts(context.Background(), failing); err == nil {
		t.Error("RefreshContacts() should report fetch errors")
	}
	got, _ = db.ListContacts()
	if len(got) != 1 {
		t.Errorf("failed refresh changed the directory: %+v", got)
	}
}

func TestEngineBusSubscription(t *testing.T) {
	db := testDB(t)
	b := bus.New()
	e := NewEngine(db, b, zap.NewNop(), 0)

	e.Start(context.Background())
	defer e.Stop()

	upserts, unsub := b.Subscribe(bus.MessageUpserted, 10)
	defer unsub()

	b.Emit(bus.BackendMessage, msg("bm1", "bus@c.us", 5000, "from bus"))
	b.Emit(bus.BackendHistory, []inbox.Message{
		msg("hm1", "batch@c.us", 6000, "history"),
		msg("hm2", "batch@c.us", 7000, "history2"),
	})
	b.Emit(bus.BackendContacts, []inbox.Contact{{ID: "bus@c.us", Name: "Bus"}})

	for range 3 {
		select {
		case <-upserts:
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for message.upserted")
		}
	}

	n, err := db.MessageCount()
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("stored %d messages, want 3", n)
	}

	deadline := time.After(time.Second)
	for {
		if c, _ := db.ContactCount(); c == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("contacts from bus were not stored")
		case <-time.After(10 * time.Millisecond):
		}
	}

	p, err := e.Progress()
	if err != nil {
		t.Fatal(err)
	}
	if p.Messages != 3 || p.LastMessageAt.Unix() != 7000 {
		t.Errorf("progress = %+v", p)
	}
}
