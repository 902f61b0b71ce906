package model

import (
	"encoding/json"
	"fmt"
)

// MessageType is the name of a network realtime message.
type MessageType string

const (
	MessageTypeModpackProcessing   MessageType = "modpack_processing"
	MessageTypeNewMessage          MessageType = "new_message"
	MessageTypeTicketStatusUpdated MessageType = "ticket_status_updated"
	MessageTypeTaskUpdated         MessageType = "task_updated"
)

// Envelope is the wire frame of every realtime message.
type Envelope struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data"`
}

// NewEnvelope encodes a payload into an envelope.
func NewEnvelope(t MessageType, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("could not encode %q payload: %w", t, err)
	}
	return Envelope{Type: t, Data: data}, nil
}

// ProcessingEventType is the discriminator of a modpack processing message.
type ProcessingEventType string

const (
	ProcessingEventProgress  ProcessingEventType = "progress"
	ProcessingEventCompleted ProcessingEventType = "completed"
	ProcessingEventError     ProcessingEventType = "error"
)

// ProcessingMessage is a server side modpack processing update.
type ProcessingMessage struct {
	Type      ProcessingEventType `json:"type"`
	ModpackID string              `json:"modpackId"`
	VersionID string              `json:"versionId"`
	Percent   float64             `json:"percent,omitempty"`
	Message   string              `json:"message,omitempty"`
	Category  string              `json:"category,omitempty"`
	Error     string              `json:"error,omitempty"`
}

// Key returns the watched entity key the message is addressed to.
func (m ProcessingMessage) Key() WatchKey {
	return WatchKey{ModpackID: m.ModpackID, VersionID: m.VersionID}
}

// ParseProcessingMessage decodes a processing message and checks it is addressed to an entity.
// Unknown event types are accepted so consumers can ignore them.
func ParseProcessingMessage(data []byte) (ProcessingMessage, error) {
	var m ProcessingMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return ProcessingMessage{}, fmt.Errorf("could not decode processing message: %w", err)
	}
	if m.ModpackID == "" || m.VersionID == "" {
		return ProcessingMessage{}, fmt.Errorf("processing message requires modpack and version ids: %w", ErrNotValid)
	}
	return m, nil
}

// TicketMessage is a new message posted on a support ticket.
type TicketMessage struct {
	TicketID  string `json:"ticketId"`
	MessageID string `json:"messageId"`
	SenderID  string `json:"senderId"`
	Content   string `json:"content"`
}

// TicketStatusMessage notifies a support ticket status change.
type TicketStatusMessage struct {
	TicketID string `json:"ticketId"`
	Status   string `json:"status"`
}
