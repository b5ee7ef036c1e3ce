// Package notify defines how the requester reports messages and the loading state to the user.
package notify

import (
	"time"
)

// Type of the message, it determines how the message is rendered.
type Type string

const (
	TypeInfo    Type = "info"
	TypeSuccess Type = "success"
	TypeWarning Type = "warning"
	TypeError   Type = "error"
)

// Message is a toast-like notification.
type Message struct {
	Type     Type
	Text     string
	Duration time.Duration
	Closable bool
}

// Notifier shows messages to the user.
type Notifier interface {
	// ShowMessage shows a message with the type and duration.
	ShowMessage(msg Message)
	// ShowError shows an error message with the default duration.
	ShowError(text string)
	// CloseAll closes all visible messages.
	CloseAll()
}

// Loader is an optional full-page loading indicator.
type Loader interface {
	Open()
	Close()
}

// Nop discards all messages.
type Nop struct{}

func (Nop) ShowMessage(Message) {}

func (Nop) ShowError(string) {}

func (Nop) CloseAll() {}

func (Nop) Open() {}

func (Nop) Close() {}
