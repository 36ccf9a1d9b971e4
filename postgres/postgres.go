package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/GetStream/chat-assistant-backend/chatapp"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// Postgres provides storage in PostgreSQL.
type Postgres struct {
	bun *bun.DB
}

// Connect connects to the database and ping the DB to ensure the connection is
// working.
func Connect(ctx context.Context, connStr string) (*Postgres, error) {
	sqlDB := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(connStr)))
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	db := bun.NewDB(sqlDB, pgdialect.New())
	return &Postgres{
		bun: db,
	}, nil
}

// Close closes the database connection.
func (pg *Postgres) Close() error {
	return pg.bun.Close()
}

// Migrate creates the tables if they do not exist yet.
func (pg *Postgres) Migrate(ctx context.Context) error {
	if _, err := pg.bun.NewCreateTable().
		Model((*conversation)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create conversations: %w", err)
	}
	if _, err := pg.bun.NewCreateTable().
		Model((*message)(nil)).
		IfNotExists().
		ForeignKey(`("conversation_name") REFERENCES "conversations" ("name") ON DELETE CASCADE`).
		Exec(ctx); err != nil {
		return fmt.Errorf("create messages: %w", err)
	}
	if _, err := pg.bun.NewCreateIndex().
		Model((*message)(nil)).
		Index("messages_conversation_created_idx").
		IfNotExists().
		Column("conversation_name", "created_at").
		Exec(ctx); err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

// CreateConversation inserts the conversation unless it already exists.
func (pg *Postgres) CreateConversation(ctx context.Context, space string) error {
	return createConversation(ctx, pg.bun, space)
}

func createConversation(ctx context.Context, db bun.IDB, space string) error {
	if _, err := db.NewInsert().
		Model(&conversation{Name: space}).
		On("CONFLICT (name) DO NOTHING").
		Exec(ctx); err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}
	return nil
}

// DeleteConversation deletes the conversation and all of its messages.
func (pg *Postgres) DeleteConversation(ctx context.Context, space string) error {
	return pg.bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*message)(nil)).
			Where("conversation_name = ?", space).
			Exec(ctx); err != nil {
			return fmt.Errorf("delete messages: %w", err)
		}
		if _, err := tx.NewDelete().
			Model((*conversation)(nil)).
			Where("name = ?", space).
			Exec(ctx); err != nil {
			return fmt.Errorf("delete conversation: %w", err)
		}
		return nil
	})
}

// UpsertMessage inserts the message, or overwrites the text of the message
// with the same id.
func (pg *Postgres) UpsertMessage(ctx context.Context, space string, msg chatapp.Message) error {
	return pg.UpsertMessages(ctx, space, []chatapp.Message{msg})
}

// UpsertMessages upserts all messages in a single transaction. The
// conversation is created if it does not exist.
func (pg *Postgres) UpsertMessages(ctx context.Context, space string, msgs []chatapp.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	rows := make([]message, len(msgs))
	for i, m := range msgs {
		rows[i] = newMessage(space, m)
	}

	return pg.bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := createConversation(ctx, tx, space); err != nil {
			return err
		}
		if _, err := tx.NewInsert().
			Model(&rows).
			On("CONFLICT (id) DO UPDATE").
			Set("message_text = EXCLUDED.message_text").
			Set("created_at = EXCLUDED.created_at").
			Exec(ctx); err != nil {
			return fmt.Errorf("upsert: %w", err)
		}
		return nil
	})
}

// ListMessages returns all messages of the conversation, oldest first.
func (pg *Postgres) ListMessages(ctx context.Context, space string) ([]chatapp.Message, error) {
	var msgs []message
	if err := pg.bun.NewSelect().
		Model(&msgs).
		Where("conversation_name = ?", space).
		Order("created_at ASC", "id ASC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	out := make([]chatapp.Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.APIMessage()
	}

	return out, nil
}
