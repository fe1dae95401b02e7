package backend

import (
	"testing"

	"github.com/matheus3301/wpp-inbox/internal/inbox"
)

func TestChatID(t *testing.T) {
	tests := []struct{ in, want string }{
		{"919876543210", "919876543210@c.us"},
		{"+919876543210", "919876543210@c.us"},
		{"919876543210@c.us", "919876543210@c.us"},
		{"120363@g.us", "120363@g.us"},
	}
	for _, tt := range tests {
		if got := ChatID(tt.in); got != tt.want {
			t.Errorf("ChatID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNumber(t *testing.T) {
	if got := Number("919876543210@c.us"); got != "919876543210" {
		t.Errorf("Number = %q", got)
	}
	if got := Number("+15551234567"); got != "15551234567" {
		t.Errorf("Number = %q", got)
	}
}

func TestFormatContact(t *testing.T) {
	c := FormatContact(Contact{ID: "1@c.us", PushName: "Sam", Number: "1"})
	if c.Name != "Sam" || c.Avatar != inbox.DefaultAvatar {
		t.Errorf("got %+v", c)
	}
	c = FormatContact(Contact{ID: "2@c.us", Number: "2", ProfilePicURL: "https://x/y.jpg"})
	if c.Name != "2" || c.Avatar != "https://x/y.jpg" {
		t.Errorf("got %+v", c)
	}
}
