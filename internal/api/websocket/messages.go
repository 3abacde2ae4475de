package websocket

import (
	"time"

	"github.com/openfieldbus/commandbridge/internal/report"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	MessageTypeCommandDispatched MessageType = "command_dispatched"
	MessageTypeCommandError      MessageType = "command_error"
)

// Message represents a WebSocket message
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// DispatchData describes one successfully dispatched command.
type DispatchData struct {
	Action string `json:"action"`
	Sent   int    `json:"sent"`
}

// NewMessage creates a new message with current timestamp
func NewMessage(msgType MessageType, data interface{}) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

func NewDispatchMessage(action string, sent int) Message {
	return NewMessage(MessageTypeCommandDispatched, DispatchData{
		Action: action,
		Sent:   sent,
	})
}

func NewErrorMessage(event report.Event) Message {
	return NewMessage(MessageTypeCommandError, event)
}
