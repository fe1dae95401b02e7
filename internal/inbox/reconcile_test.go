package inbox

import (
	"reflect"
	"strings"
	"testing"
)

const momID = "919876543210@c.us"

func testDir() Directory {
	return NewDirectory([]Contact{{ID: momID, Name: "Mom", Number: "919876543210"}})
}

func TestReconcileIdempotent(t *testing.T) {
	dir := testDir()
	fetched := []Message{
		{ID: "s1", From: momID, To: "me@c.us", Body: "hello", Timestamp: 100},
		{ID: "s2", From: "me@c.us", To: momID, Body: "hi mom", Timestamp: 110, FromMe: true},
	}
	pending := Message{ID: PrefixNew + "x", FromMe: true, To: "15551234567@c.us", Body: "later", Timestamp: 200}

	once := Reconcile([]Message{pending}, fetched, dir)
	twice := Reconcile(once, fetched, dir)

	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("reconcile not idempotent:\n once=%+v\ntwice=%+v", once, twice)
	}
	if len(twice) != 3 {
		t.Errorf("len = %d, want 3", len(twice))
	}
}

func TestReconcilePreservesAnnotation(t *testing.T) {
	dir := testDir()
	prev := []Message{{
		ID: "s1", From: momID, To: "me@c.us", Body: "hello", Timestamp: 100,
		ReplyTo: &Annotation{ID: momID, Name: "Mom", Avatar: "👩"},
	}}
	fetched := []Message{{ID: "s1", From: momID, To: "me@c.us", Body: "hello", Timestamp: 100}}

	got := Reconcile(prev, fetched, Directory{})
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].ReplyTo == nil || got[0].ReplyTo.Name != "Mom" {
		t.Errorf("annotation lost: %+v", got[0])
	}

	// Resolving against the full directory on a later pass keeps it too.
	again := Reconcile(got, fetched, dir)
	if again[0].ReplyTo == nil || again[0].ReplyTo.Name != "Mom" {
		t.Errorf("annotation lost on second pass: %+v", again[0])
	}
}

func TestReconcileAnnotatesOutgoing(t *testing.T) {
	dir := testDir()
	fetched := []Message{
		{ID: "s1", FromMe: true, From: "me@c.us", To: momID, Body: "on my way", Timestamp: 100},
		{ID: "s2", FromMe: true, From: "me@c.us", To: "919812345678@c.us", Body: "ok", Timestamp: 101},
		{ID: "s3", From: momID, To: "me@c.us", Body: "where are you", Timestamp: 102},
	}

	got := Reconcile(nil, fetched, dir)
	if got[0].SentTo == nil || got[0].SentTo.Name != "Mom" || got[0].SentTo.ID != momID {
		t.Errorf("s1 SentTo = %+v, want Mom", got[0].SentTo)
	}
	if got[1].SentTo == nil || got[1].SentTo.Name != "+91 98123 45678" {
		t.Errorf("s2 SentTo = %+v, want formatted number", got[1].SentTo)
	}
	if got[2].SentTo != nil || got[2].ReplyTo != nil {
		t.Errorf("incoming message should stay unannotated: %+v", got[2])
	}
}

func TestReconcileDoesNotMutateInputs(t *testing.T) {
	fetched := []Message{{ID: "s1", FromMe: true, To: momID, Body: "x", Timestamp: 1}}
	Reconcile(nil, fetched, testDir())
	if fetched[0].SentTo != nil {
		t.Error("fetched slice was modified")
	}
}

func TestReconcileRetainsPending(t *testing.T) {
	prev := []Message{
		{ID: PrefixReply + "1", FromMe: true, To: momID, Body: "pending reply", Timestamp: 300},
		{ID: "old-server", From: momID, Body: "gone from feed", Timestamp: 10},
	}
	got := Reconcile(prev, nil, testDir())
	if len(got) != 1 || got[0].ID != PrefixReply+"1" {
		t.Fatalf("got %+v, want only the pending message", got)
	}
}

func TestReconcileRetiresConfirmedPending(t *testing.T) {
	pending := Message{
		ID: PrefixNew + "abc", FromMe: true, To: momID, Body: "see you", Timestamp: 1000.2,
		SentTo: &Annotation{ID: momID, Name: "Mom"},
	}
	fetched := []Message{{ID: "true_919876543210@c.us_3EB0", FromMe: true, To: momID, Body: "see you", Timestamp: 1002}}

	got := Reconcile([]Message{pending}, fetched, testDir())
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1: %+v", len(got), got)
	}
	if got[0].ID != fetched[0].ID {
		t.Errorf("kept %q, want server copy", got[0].ID)
	}
}

func TestDedupTolerance(t *testing.T) {
	tests := []struct {
		name  string
		delta float64
		want  int
	}{
		{"4s apart collapse", 4, 1},
		{"6s apart kept", 6, 2},
		{"exactly 5s kept", 5, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs := []Message{
				{ID: "a", Body: "same", Timestamp: 100},
				{ID: "b", Body: "same", Timestamp: 100 + tt.delta},
			}
			got := Dedup(msgs)
			if len(got) != tt.want {
				t.Fatalf("len = %d, want %d", len(got), tt.want)
			}
			if got[0].ID != "a" {
				t.Errorf("first kept = %q, want a", got[0].ID)
			}
		})
	}
}

func TestDedupDifferentBodies(t *testing.T) {
	msgs := []Message{
		{ID: "a", Body: "one", Timestamp: 100},
		{ID: "b", Body: "two", Timestamp: 100},
	}
	if got := Dedup(msgs); len(got) != 2 {
		t.Errorf("len = %d, want 2", len(got))
	}
}

func TestRemoveByID(t *testing.T) {
	msgs := []Message{
		{ID: "s1", Body: "a"},
		{ID: PrefixNew + "1", Body: "b"},
		{ID: "s2", Body: "c"},
	}
	got := RemoveByID(msgs, PrefixNew+"1")
	if len(got) != 2 || got[0].ID != "s1" || got[1].ID != "s2" {
		t.Errorf("got %+v", got)
	}
	if len(msgs) != 3 {
		t.Error("input modified")
	}
	if got := RemoveByID(msgs, "missing"); len(got) != 3 {
		t.Errorf("removing unknown id changed length to %d", len(got))
	}
}

func TestNewPendingID(t *testing.T) {
	a, b := NewPendingID(PrefixReply), NewPendingID(PrefixReply)
	if a == b {
		t.Error("ids not unique")
	}
	if !strings.HasPrefix(a, PrefixReply) || !IsPending(a) {
		t.Errorf("id %q not recognised as pending", a)
	}
	if IsPending("3EB0C767D26A1D") {
		t.Error("server id treated as pending")
	}
}
