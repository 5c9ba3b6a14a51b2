package room

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/chattest/internal/protocol"
	"github.com/danmuck/chattest/internal/protocol/session"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

var (
	ErrNameTaken   = errors.New("room: name already in use")
	ErrInvalidName = errors.New("room: invalid name")
)

// Member is one connected client that completed the handshake.
type Member struct {
	ID         uuid.UUID
	Name       string
	RemoteAddr string
	JoinedAt   time.Time

	conn *session.PollingConn
}

func newMember(name string, conn *session.PollingConn) *Member {
	return &Member{
		ID:         uuid.New(),
		Name:       name,
		RemoteAddr: conn.RemoteAddr().String(),
		JoinedAt:   time.Now(),
		conn:       conn,
	}
}

// Send writes one message to the member. Safe for concurrent use.
func (m *Member) Send(msg protocol.Message) error {
	return m.conn.Write(msg)
}

func (m *Member) poll() (protocol.Message, error) {
	return m.conn.Poll()
}

func (m *Member) close() error {
	return m.conn.Close()
}

// MemberInfo is the exported snapshot of one member.
type MemberInfo struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	RemoteAddr string    `json:"remote_addr"`
	JoinedAt   time.Time `json:"joined_at"`
}

func (m *Member) Info() MemberInfo {
	return MemberInfo{
		ID:         m.ID.String(),
		Name:       m.Name,
		RemoteAddr: m.RemoteAddr,
		JoinedAt:   m.JoinedAt,
	}
}

// Registry is the ordered member list of the room plus the names held by
// handshakes that have not finished yet.
type Registry struct {
	mu       sync.RWMutex
	members  []*Member
	reserved map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{reserved: make(map[string]struct{})}
}

// Reserve claims name for an in-flight handshake. The claim fails if a
// member, another reservation or the admin already uses the name.
func (r *Registry) Reserve(name, admin string) error {
	if strings.TrimSpace(name) == "" {
		return ErrInvalidName
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if name == admin {
		return fmt.Errorf("%w: %q is the admin", ErrNameTaken, name)
	}
	if _, ok := r.reserved[name]; ok {
		return fmt.Errorf("%w: %q", ErrNameTaken, name)
	}
	if lo.ContainsBy(r.members, func(m *Member) bool { return m.Name == name }) {
		return fmt.Errorf("%w: %q", ErrNameTaken, name)
	}
	r.reserved[name] = struct{}{}
	return nil
}

// Release drops a reservation that did not lead to a member.
func (r *Registry) Release(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.reserved, name)
}

// Commit turns the reservation for m.Name into membership and returns the
// members that were present before m joined.
func (r *Registry) Commit(m *Member) []*Member {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.reserved, m.Name)
	existing := append([]*Member(nil), r.members...)
	r.members = append(r.members, m)
	return existing
}

// Scan runs fn with exclusive access to the member list. fn must not keep
// the slice.
func (r *Registry) Scan(fn func(members []*Member)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r.members)
}

// Compact removes the given members and returns them in registry order.
func (r *Registry) Compact(ids []uuid.UUID) []*Member {
	if len(ids) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	evicted, kept := lo.FilterReject(r.members, func(m *Member, _ int) bool {
		return lo.Contains(ids, m.ID)
	})
	r.members = kept
	return evicted
}

// Members returns a copy of the current member list.
func (r *Registry) Members() []*Member {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Member(nil), r.members...)
}

// Drain removes every member and reservation and returns the removed members.
func (r *Registry) Drain() []*Member {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.members
	r.members = nil
	r.reserved = make(map[string]struct{})
	return out
}

func (r *Registry) Snapshot() []MemberInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Map(r.members, func(m *Member, _ int) MemberInfo { return m.Info() })
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Map(r.members, func(m *Member, _ int) string { return m.Name })
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}
