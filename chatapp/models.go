package chatapp

import "time"

// A Message represents a persisted chat message. ID is the platform resource
// name of the message and is unique across conversations.
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}
