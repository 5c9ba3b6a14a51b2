package room

import (
	"testing"

	"github.com/danmuck/chattest/internal/testutil/testlog"
)

func TestEntryString(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		entry Entry
		want  string
	}{
		{Entry{Kind: EntryText, Name: "alice", Text: "hi"}, "  alice> hi"},
		{Entry{Kind: EntryJoined, Name: "bob", RemoteAddr: "10.0.0.2:5000"}, "  User connected:\n  bob(10.0.0.2:5000)"},
		{Entry{Kind: EntryLeft, Name: "bob"}, "  User bob disconnected!"},
		{Entry{Kind: EntryAdmin, Name: "root", Text: "maintenance at noon"}, "  maintenance at noon"},
	}
	for _, tc := range cases {
		if got := tc.entry.String(); got != tc.want {
			t.Fatalf("kind=%s got=%q want=%q", tc.entry.Kind, got, tc.want)
		}
	}
}

func TestLogSince(t *testing.T) {
	testlog.Start(t)
	l := NewLog()
	for _, text := range []string{"one", "two", "three"} {
		l.Append(EntryText, "a", text, "")
	}
	if l.Len() != 3 {
		t.Fatalf("len got=%d", l.Len())
	}
	got := l.Since(1)
	if len(got) != 2 || got[0].Text != "two" || got[0].Seq != 1 {
		t.Fatalf("since(1) got=%+v", got)
	}
	if got := l.Since(3); len(got) != 0 || got == nil {
		t.Fatalf("since(end) got=%v", got)
	}
	if got := l.Since(-4); len(got) != 3 {
		t.Fatalf("since(negative) got=%d entries", len(got))
	}
	got[0].Text = "mutated"
	if l.Since(1)[0].Text != "two" {
		t.Fatalf("Since returned shared storage")
	}
}
