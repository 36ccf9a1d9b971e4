package postgres

import (
	"time"

	"github.com/GetStream/chat-assistant-backend/chatapp"
	"github.com/uptrace/bun"
)

// A conversation represents a joined space in the database.
type conversation struct {
	bun.BaseModel `bun:"table:conversations"`

	Name      string    `bun:",pk"`
	CreatedAt time.Time `bun:",nullzero,notnull,default:now()"`
}

// A message represents a message in the database. Messages are owned by
// their conversation and deleted with it.
type message struct {
	bun.BaseModel `bun:"table:messages"`

	ID               string    `bun:",pk"`
	ConversationName string    `bun:",notnull"`
	MessageText      string    `bun:"message_text,notnull"`
	CreatedAt        time.Time `bun:",nullzero,notnull,default:now()"`
}

func newMessage(space string, m chatapp.Message) message {
	return message{
		ID:               m.ID,
		ConversationName: space,
		MessageText:      m.Text,
		CreatedAt:        m.CreatedAt,
	}
}

func (m message) APIMessage() chatapp.Message {
	return chatapp.Message{
		ID:        m.ID,
		Text:      m.MessageText,
		CreatedAt: m.CreatedAt,
	}
}
