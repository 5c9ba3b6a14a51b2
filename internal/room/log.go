package room

import (
	"fmt"
	"sync"
	"time"
)

type EntryKind string

const (
	EntryJoined EntryKind = "joined"
	EntryText   EntryKind = "text"
	EntryLeft   EntryKind = "left"
	EntryAdmin  EntryKind = "admin"
)

// Entry is one line of the room history.
type Entry struct {
	Seq        int       `json:"seq"`
	Kind       EntryKind `json:"kind"`
	Name       string    `json:"name,omitempty"`
	Text       string    `json:"text,omitempty"`
	RemoteAddr string    `json:"remote_addr,omitempty"`
	At         time.Time `json:"at"`
}

// String renders the entry the way the server console prints it.
func (e Entry) String() string {
	switch e.Kind {
	case EntryJoined:
		return fmt.Sprintf("  User connected:\n  %s(%s)", e.Name, e.RemoteAddr)
	case EntryText:
		return fmt.Sprintf("  %s> %s", e.Name, e.Text)
	case EntryLeft:
		return fmt.Sprintf("  User %s disconnected!", e.Name)
	default:
		return "  " + e.Text
	}
}

// Log is the append-only room history. It has its own lock so readers never
// contend with the registry.
type Log struct {
	mu      sync.RWMutex
	entries []Entry
}

func NewLog() *Log {
	return &Log{}
}

func (l *Log) Append(kind EntryKind, name, text, remoteAddr string) Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e := Entry{
		Seq:        len(l.entries),
		Kind:       kind,
		Name:       name,
		Text:       text,
		RemoteAddr: remoteAddr,
		At:         time.Now(),
	}
	l.entries = append(l.entries, e)
	return e
}

// Since returns a copy of the entries with Seq >= seq.
func (l *Log) Since(seq int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if seq < 0 {
		seq = 0
	}
	if seq >= len(l.entries) {
		return []Entry{}
	}
	return append([]Entry(nil), l.entries[seq:]...)
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
