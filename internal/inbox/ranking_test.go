package inbox

import (
	"fmt"
	"testing"
	"time"
)

func TestRecentConversationsCaps(t *testing.T) {
	var msgs []Message
	for c := 0; c < 8; c++ {
		peer := fmt.Sprintf("9100000000%02d@c.us", c)
		for j := 0; j < 6; j++ {
			msgs = append(msgs, Message{
				ID:        fmt.Sprintf("c%d-m%d", c, j),
				From:      peer,
				To:        "me@c.us",
				Body:      "hi",
				Timestamp: float64(c*100 + j),
			})
		}
	}

	got := RecentConversations(msgs, DefaultLimits)
	if len(got) != 20 {
		t.Fatalf("len = %d, want 20", len(got))
	}

	perPeer := map[string]int{}
	for i, m := range got {
		perPeer[m.From]++
		if i > 0 && got[i-1].Timestamp > m.Timestamp {
			t.Fatalf("not ascending at %d", i)
		}
		if int(m.Timestamp)%100 < 2 {
			t.Errorf("kept old message %s", m.ID)
		}
	}
	if len(perPeer) != 5 {
		t.Errorf("conversations = %d, want 5", len(perPeer))
	}
	for c := 3; c < 8; c++ {
		peer := fmt.Sprintf("9100000000%02d@c.us", c)
		if perPeer[peer] != 4 {
			t.Errorf("%s kept %d messages, want 4", peer, perPeer[peer])
		}
	}
}

func TestRecentConversationsFilters(t *testing.T) {
	msgs := []Message{
		{ID: "1", From: BroadcastID, Body: "status", Timestamp: 1},
		{ID: "2", From: "123@g.us", Body: "group", Timestamp: 2},
		{ID: "3", From: "1@c.us", Body: "   ", Timestamp: 3},
		{ID: "4", From: "1@c.us", Body: "ok", Timestamp: 4},
		{ID: "5", FromMe: true, To: "1@c.us", Body: "reply", Timestamp: 5},
	}
	got := RecentConversations(msgs, Limits{})
	if len(got) != 2 || got[0].ID != "4" || got[1].ID != "5" {
		t.Errorf("got %+v", got)
	}
}

func TestSortTimelineStable(t *testing.T) {
	msgs := []Message{
		{ID: "b", Timestamp: 2},
		{ID: "a1", Timestamp: 1},
		{ID: "a2", Timestamp: 1},
	}
	SortTimeline(msgs)
	if msgs[0].ID != "a1" || msgs[1].ID != "a2" || msgs[2].ID != "b" {
		t.Errorf("got %v %v %v", msgs[0].ID, msgs[1].ID, msgs[2].ID)
	}
}

func TestDayLabel(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.Local)
	tests := []struct {
		at   time.Time
		want string
	}{
		{now.Add(-time.Hour), "Today"},
		{now.AddDate(0, 0, -1), "Yesterday"},
		{time.Date(2026, 1, 5, 9, 0, 0, 0, time.Local), "Mon, Jan 5"},
		{time.Date(2025, 12, 25, 9, 0, 0, 0, time.Local), "Dec 25, 2025"},
	}
	for _, tt := range tests {
		if got := DayLabel(float64(tt.at.Unix()), now); got != tt.want {
			t.Errorf("DayLabel(%v) = %q, want %q", tt.at, got, tt.want)
		}
	}
}
