package inbox

import (
	"slices"
	"sort"
	"strings"
	"time"
)

// Limits bounds the recent conversation view.
type Limits struct {
	Conversations   int
	PerConversation int
}

// DefaultLimits keeps five conversations with four messages each.
var DefaultLimits = Limits{Conversations: 5, PerConversation: 4}

// Visible reports whether a message belongs in the unified timeline.
// Broadcast, group and empty messages are excluded.
func Visible(m Message) bool {
	if IsBroadcast(m.From) || IsBroadcast(m.To) {
		return false
	}
	if IsGroup(m.From) || IsGroup(m.To) {
		return false
	}
	return strings.TrimSpace(m.Body) != ""
}

// RecentConversations groups visible messages by conversation key, keeps the
// lim.Conversations groups with the latest activity, trims each group to its
// lim.PerConversation newest messages and returns them in ascending order.
func RecentConversations(msgs []Message, lim Limits) []Message {
	if lim.Conversations <= 0 || lim.PerConversation <= 0 {
		lim = DefaultLimits
	}

	groups := make(map[string][]Message)
	var keys []string
	for _, m := range msgs {
		if !Visible(m) {
			continue
		}
		k := m.Key()
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], m)
	}

	latest := make(map[string]float64, len(keys))
	for _, k := range keys {
		g := groups[k]
		sort.SliceStable(g, func(i, j int) bool { return g[i].Timestamp > g[j].Timestamp })
		latest[k] = g[0].Timestamp
	}
	sort.SliceStable(keys, func(i, j int) bool { return latest[keys[i]] > latest[keys[j]] })

	if len(keys) > lim.Conversations {
		keys = keys[:lim.Conversations]
	}

	var out []Message
	for _, k := range keys {
		g := groups[k]
		if len(g) > lim.PerConversation {
			g = g[:lim.PerConversation]
		}
		out = append(out, g...)
	}
	SortTimeline(out)
	return out
}

// SortTimeline sorts msgs ascending by timestamp in place. Ties keep their
// order.
func SortTimeline(msgs []Message) {
	slices.SortStableFunc(msgs, func(a, b Message) int {
		switch {
		case a.Timestamp < b.Timestamp:
			return -1
		case a.Timestamp > b.Timestamp:
			return 1
		}
		return 0
	})
}

// Time converts a message timestamp to a time.Time.
func Time(ts float64) time.Time {
	sec := int64(ts)
	return time.Unix(sec, int64((ts-float64(sec))*1e9))
}

// DayLabel returns "Today", "Yesterday" or a short date for the separator
// line drawn above a day's messages.
func DayLabel(ts float64, now time.Time) string {
	t := Time(ts).In(now.Location())
	y1, m1, d1 := t.Date()
	y2, m2, d2 := now.Date()
	if y1 == y2 && m1 == m2 && d1 == d2 {
		return "Today"
	}
	y3, m3, d3 := now.AddDate(0, 0, -1).Date()
	if y1 == y3 && m1 == m3 && d1 == d3 {
		return "Yesterday"
	}
	if y1 == y2 {
		return t.Format("Mon, Jan 2")
	}
	return t.Format("Jan 2, 2006")
}
