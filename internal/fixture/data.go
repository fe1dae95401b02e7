package fixture

import (
	"time"

	"github.com/matheus3301/wpp-inbox/internal/backend"
	"github.com/matheus3301/wpp-inbox/internal/inbox"
)

// SelfID is the account the fixture backend pretends to be.
const SelfID = "918777345990@c.us"

func clientInfo() map[string]any {
	return map[string]any{
		"pushname": "Utsav",
		"wid":      SelfID,
		"platform": "iphone",
	}
}

func seedContacts() []backend.Contact {
	raw := []struct {
		n, name, push, photo string
	}{
		{"919876543210", "Mom", "Mom", "1544005313-94ddf0286df2"},
		{"919876543211", "Dad", "Dad", "1472099645785-5658abf4ff4e"},
		{"919876543212", "Priya", "Priya", "1494790108755-2616b612b786"},
		{"919876543213", "Rahul", "Rahul", "1507003211169-0a1dd7228f2d"},
		{"919876543214", "Office Group Admin", "Amit", "1500648767791-00dcc994a43e"},
	}
	out := make([]backend.Contact, 0, len(raw))
	for _, r := range raw {
		out = append(out, backend.FormatContact(backend.Contact{
			ID:            r.n + backend.UserSuffix,
			Name:          r.name,
			PushName:      r.push,
			Number:        r.n,
			ProfilePicURL: "https://images.unsplash.com/photo-" + r.photo + "?w=150&h=150&fit=crop&crop=face",
		}))
	}
	return out
}

// seedMessages returns the canned conversation history relative to now.
func seedMessages(now time.Time) []inbox.Message {
	ts := func(ago time.Duration) float64 {
		return float64(now.Add(-ago).UnixMilli()) / 1000
	}
	in := func(id, from, body string, ago time.Duration) inbox.Message {
		return inbox.Message{ID: id, Body: body, From: from, To: SelfID, Timestamp: ts(ago), Kind: inbox.KindText}
	}
	out := func(id, to, body string, ago time.Duration) inbox.Message {
		return inbox.Message{ID: id, Body: body, From: SelfID, To: to, Timestamp: ts(ago), FromMe: true, Kind: inbox.KindText}
	}
	return []inbox.Message{
		in("msg_mom_1", "919876543210@c.us", "Beta, khana kha liya?", 30*time.Minute),
		out("msg_mom_2", "919876543210@c.us", "Haan mom, just had lunch 😊", 28*time.Minute+20*time.Second),
		in("msg_priya_1", "919876543212@c.us", "Hey! Are you free this evening?", time.Hour),
		out("msg_priya_2", "919876543212@c.us", "Yes, what's the plan?", 58*time.Minute+20*time.Second),
		in("msg_rahul_1", "919876543213@c.us", "Bro, did you complete the project?", 2*time.Hour),
		out("msg_rahul_2", "919876543213@c.us", "Almost done, will send by evening", 116*time.Minute+40*time.Second),
		in("msg_dad_1", "919876543211@c.us", "Beta, ghar kab aa rahe ho?", 3*time.Hour),
		in("msg_office_1", "919876543214@c.us", "Meeting at 4 PM today", 4*time.Hour),
	}
}
