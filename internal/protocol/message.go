package protocol

import (
	"fmt"

	"github.com/danmuck/chattest/internal/protocol/frame"
)

// Message is one decoded chattest message. The set of variants is closed.
type Message interface {
	Code() frame.Code
	message()
}

// Name is the client's requested display name, sent during the handshake.
type Name struct {
	Text string
}

// AlreadyHere rejects a requested name that is already in use.
type AlreadyHere struct{}

// MessageTo carries text from a client to the room, or a server notice to a client.
type MessageTo struct {
	Text string
}

// MessageFrom carries text relayed from one member to the others.
type MessageFrom struct {
	Name string
	Text string
}

// Welcome accepts a client into the room.
type Welcome struct {
	Room  string
	Admin string
}

func (Name) Code() frame.Code        { return frame.CodeName }
func (AlreadyHere) Code() frame.Code { return frame.CodeAlreadyHere }
func (MessageTo) Code() frame.Code   { return frame.CodeMessageTo }
func (MessageFrom) Code() frame.Code { return frame.CodeMessageFrom }
func (Welcome) Code() frame.Code     { return frame.CodeWelcome }

func (Name) message()        {}
func (AlreadyHere) message() {}
func (MessageTo) message()   {}
func (MessageFrom) message() {}
func (Welcome) message()     {}

func (m Name) String() string        { return fmt.Sprintf("Name(%q)", m.Text) }
func (AlreadyHere) String() string   { return "AlreadyHere" }
func (m MessageTo) String() string   { return fmt.Sprintf("MessageTo(%q)", m.Text) }
func (m MessageFrom) String() string { return fmt.Sprintf("MessageFrom(%q, %q)", m.Name, m.Text) }
func (m Welcome) String() string     { return fmt.Sprintf("Welcome(%q, %q)", m.Room, m.Admin) }
