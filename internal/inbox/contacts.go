package inbox

import (
	"slices"
	"strings"
)

// PrioritizeContacts orders contacts for the new-message picker: contacts
// with message history first, then contacts with a real name. Ties keep
// fetch order. The input slice is not modified.
func PrioritizeContacts(contacts []Contact, msgs []Message) []Contact {
	history := HistoryKeys(msgs)
	out := slices.Clone(contacts)
	slices.SortStableFunc(out, func(a, b Contact) int {
		_, ha := history[a.ID]
		_, hb := history[b.ID]
		if ha != hb {
			if ha {
				return -1
			}
			return 1
		}
		ra, rb := HasRealName(a), HasRealName(b)
		if ra != rb {
			if ra {
				return -1
			}
			return 1
		}
		return 0
	})
	return out
}

// HistoryKeys returns the set of conversation keys present in msgs.
func HistoryKeys(msgs []Message) map[string]struct{} {
	keys := make(map[string]struct{}, len(msgs))
	for _, m := range msgs {
		keys[m.Key()] = struct{}{}
	}
	return keys
}

// HasRealName reports whether the contact's name was saved by the user:
// not empty, not the push name the contact chose, and not the phone number
// in any punctuation.
func HasRealName(c Contact) bool {
	name := strings.TrimSpace(c.Name)
	if name == "" || name == strings.TrimSpace(c.PushName) {
		return false
	}
	if strings.Trim(name, "+0123456789 -()") != "" {
		return true
	}
	return digitsOnly(name) != digitsOnly(c.Number)
}

// DefaultFrequent is how many frequent contacts the picker shows.
const DefaultFrequent = 6

// FrequentContacts returns up to n contacts that already have history, in
// the given order.
func FrequentContacts(contacts []Contact, msgs []Message, n int) []Contact {
	n = max(n, 0)
	history := HistoryKeys(msgs)
	var out []Contact
	for _, c := range contacts {
		if len(out) == n {
			break
		}
		if _, ok := history[c.ID]; ok {
			out = append(out, c)
		}
	}
	return out
}

// FilterLimits caps the picker results.
type FilterLimits struct {
	Browse int
	Search int
}

// DefaultFilterLimits shows 50 contacts when browsing and 20 search hits.
var DefaultFilterLimits = FilterLimits{Browse: 50, Search: 20}

// FilterContacts matches query case-insensitively against name and number.
// An empty query returns the first lim.Browse contacts.
func FilterContacts(contacts []Contact, query string, lim FilterLimits) []Contact {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return contacts[:min(len(contacts), max(lim.Browse, 0))]
	}
	search := max(lim.Search, 0)
	var out []Contact
	for _, c := range contacts {
		if len(out) == search {
			break
		}
		if strings.Contains(strings.ToLower(c.Name), query) || strings.Contains(c.Number, query) {
			out = append(out, c)
		}
	}
	return out
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
