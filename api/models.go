package api

import (
	"strings"
	"time"

	"github.com/GetStream/chat-assistant-backend/chatapp"
)

// An event is an interaction event as sent by the chat platform.
type event struct {
	Type  string `json:"type" validate:"required"`
	Space struct {
		Name string `json:"name" validate:"required"`
	} `json:"space"`
	// User is needed wherever the app may ask the user to authorize.
	User struct {
		Name string `json:"name" validate:"required_if=Type ADDED_TO_SPACE,required_if=Type MESSAGE"`
	} `json:"user"`
	Message *struct {
		Name       string    `json:"name" validate:"required"`
		Text       string    `json:"text"`
		CreateTime time.Time `json:"createTime"`
	} `json:"message" validate:"required_if=Type MESSAGE"`
	Action *struct {
		ActionMethodName string `json:"actionMethodName"`
	} `json:"action"`
	ConfigCompleteRedirectURL string `json:"configCompleteRedirectUrl"`
}

// ChatEvent converts e to the event handled by the app.
func (e *event) ChatEvent() chatapp.Event {
	space, user := e.Space.Name, e.User.Name
	switch e.Type {
	case chatapp.TypeAddedToSpace:
		return chatapp.SpaceJoined{Space: space, User: user, RedirectURL: e.ConfigCompleteRedirectURL}
	case chatapp.TypeMessage:
		return chatapp.MessageReceived{Space: space, User: user, Message: chatapp.Message{
			ID:        e.Message.Name,
			Text:      e.Message.Text,
			CreatedAt: e.Message.CreateTime,
		}}
	case chatapp.TypeRemovedFromSpace:
		return chatapp.SpaceLeft{Space: space, User: user}
	case chatapp.TypeCardClicked:
		var action string
		if e.Action != nil {
			action = e.Action.ActionMethodName
		}
		return chatapp.CardClicked{Space: space, User: user, Action: action}
	default:
		return chatapp.UnknownEvent{Tag: e.Type, Space: space, User: user}
	}
}

// eventLabel maps a type tag to a bounded metric label value.
func eventLabel(tag string) string {
	switch tag {
	case chatapp.TypeAddedToSpace, chatapp.TypeMessage, chatapp.TypeRemovedFromSpace, chatapp.TypeCardClicked:
		return tag
	default:
		return "unknown"
	}
}

// Space event types delivered through Pub/Sub.
const (
	messageCreated = "google.workspace.chat.message.v1.created"
	messageUpdated = "google.workspace.chat.message.v1.updated"
)

// A pushRequest is a Pub/Sub push delivery.
type pushRequest struct {
	Message struct {
		MessageID  string            `json:"messageId"`
		Attributes map[string]string `json:"attributes"`
		Data       []byte            `json:"data" validate:"required"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// A spaceEvent is the payload of a message event with the resource included.
type spaceEvent struct {
	Message struct {
		Name       string    `json:"name" validate:"required"`
		Text       string    `json:"text"`
		CreateTime time.Time `json:"createTime"`
		Sender     struct {
			Name string `json:"name"`
			Type string `json:"type"`
		} `json:"sender"`
		Space struct {
			Name string `json:"name"`
		} `json:"space"`
	} `json:"message"`
}

// SpaceName returns the space the message was posted in.
func (e *spaceEvent) SpaceName() string {
	if e.Message.Space.Name != "" {
		return e.Message.Space.Name
	}
	space, _, _ := strings.Cut(e.Message.Name, "/messages/")
	return space
}

// ChatMessage converts e to the message stored by the app.
func (e *spaceEvent) ChatMessage() chatapp.Message {
	return chatapp.Message{ID: e.Message.Name, Text: e.Message.Text, CreatedAt: e.Message.CreateTime}
}
