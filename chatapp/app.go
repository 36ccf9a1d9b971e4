package chatapp

import (
	"context"
	"fmt"
	"log/slog"
)

// A Store persists conversations and their messages.
type Store interface {
	CreateConversation(ctx context.Context, space string) error
	DeleteConversation(ctx context.Context, space string) error
	UpsertMessage(ctx context.Context, space string, msg Message) error
	UpsertMessages(ctx context.Context, space string, msgs []Message) error
	ListMessages(ctx context.Context, space string) ([]Message, error)
}

// Messaging provides access to the chat platform's messages and members.
type Messaging interface {
	// ListMessages lists the messages of space visible to user, using the
	// user's delegated credentials.
	ListMessages(ctx context.Context, space, user string) ([]Message, error)
	// SpaceAdmin resolves the administrator of space with the app's own
	// credentials. ok is false when the space has none.
	SpaceAdmin(ctx context.Context, space string) (admin string, ok bool, err error)
}

// Subscriptions manages live event subscriptions for spaces.
type Subscriptions interface {
	Create(ctx context.Context, space, user string) error
	Delete(ctx context.Context, space string) error
}

// An Authorizer builds the URL a user visits to grant delegated access.
type Authorizer interface {
	AuthorizationURL(user, redirect string) string
}

// An Answerer classifies and answers questions from conversation history.
type Answerer interface {
	IsQuestion(ctx context.Context, text string) (bool, error)
	Answer(ctx context.Context, question string, history []Message) (string, error)
}

const (
	// WelcomeText is posted after the app joined a space successfully.
	WelcomeText = "Hi! 👋 Thanks for adding me. I'll keep track of the conversation here and help answer questions based on it."
	// NudgeText is posted when someone asks for help on an answer.
	NudgeText = "Please answer the question above."
)

// App dispatches chat events to their handlers.
type App struct {
	Logger        *slog.Logger
	Store         Store
	Messaging     Messaging
	Subscriptions Subscriptions
	Auth          Authorizer
	Answerer      Answerer
}

// HandleEvent handles a single event and returns the reply to post. Missing
// delegated credentials are turned into an AuthorizationReply; every other
// error is returned to the caller.
func (a *App) HandleEvent(ctx context.Context, ev Event) (Reply, error) {
	a.Logger.Info("Event received", "type", ev.Type())

	switch ev := ev.(type) {
	case SpaceJoined:
		return a.onSpaceJoined(ctx, ev)
	case MessageReceived:
		return a.onMessageReceived(ctx, ev)
	case SpaceLeft:
		return a.onSpaceLeft(ctx, ev)
	case CardClicked:
		return a.onCardClicked(ctx, ev)
	case UnknownEvent:
		a.Logger.Warn("Ignoring unknown event", "type", ev.Tag, "space", ev.Space)
		return EmptyReply{}, nil
	default:
		return EmptyReply{}, nil
	}
}

func (a *App) onSpaceJoined(ctx context.Context, ev SpaceJoined) (Reply, error) {
	if err := a.Store.CreateConversation(ctx, ev.Space); err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}

	msgs, err := a.Messaging.ListMessages(ctx, ev.Space, ev.User)
	if err != nil {
		return a.authorizeOrFail(ev.User, ev.RedirectURL, fmt.Errorf("list messages: %w", err))
	}
	if err := a.Store.UpsertMessages(ctx, ev.Space, msgs); err != nil {
		return nil, fmt.Errorf("upsert messages: %w", err)
	}
	a.Logger.Info("Backfilled messages", "space", ev.Space, "count", len(msgs))

	if err := a.Subscriptions.Create(ctx, ev.Space, ev.User); err != nil {
		return a.authorizeOrFail(ev.User, ev.RedirectURL, fmt.Errorf("create subscription: %w", err))
	}

	return TextReply{Text: WelcomeText}, nil
}

func (a *App) onMessageReceived(ctx context.Context, ev MessageReceived) (Reply, error) {
	reply, err := a.answer(ctx, ev)
	if err != nil {
		return a.authorizeOrFail(ev.User, "", err)
	}
	return reply, nil
}

func (a *App) answer(ctx context.Context, ev MessageReceived) (Reply, error) {
	if err := a.Store.UpsertMessage(ctx, ev.Space, ev.Message); err != nil {
		return nil, fmt.Errorf("upsert message: %w", err)
	}

	question, err := a.Answerer.IsQuestion(ctx, ev.Message.Text)
	if err != nil {
		return nil, fmt.Errorf("classify message: %w", err)
	}
	if !question {
		return EmptyReply{}, nil
	}

	history, err := a.Store.ListMessages(ctx, ev.Space)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	text, err := a.Answerer.Answer(ctx, ev.Message.Text, history)
	if err != nil {
		return nil, fmt.Errorf("answer question: %w", err)
	}
	a.Logger.Info("Answered question", "space", ev.Space, "history", len(history))

	return AnswerReply{Text: text, Button: GetHelpButton}, nil
}

// RecordMessage stores a message of space that arrived through a space event
// subscription rather than an interaction event. Nothing is posted back.
func (a *App) RecordMessage(ctx context.Context, space string, msg Message) error {
	if err := a.Store.UpsertMessage(ctx, space, msg); err != nil {
		return fmt.Errorf("upsert message: %w", err)
	}
	a.Logger.Debug("Recorded message", "space", space, "message", msg.ID)
	return nil
}

func (a *App) onSpaceLeft(ctx context.Context, ev SpaceLeft) (Reply, error) {
	if err := a.Subscriptions.Delete(ctx, ev.Space); err != nil {
		return nil, fmt.Errorf("delete subscriptions: %w", err)
	}
	if err := a.Store.DeleteConversation(ctx, ev.Space); err != nil {
		return nil, fmt.Errorf("delete conversation: %w", err)
	}
	return EmptyReply{}, nil
}

func (a *App) onCardClicked(ctx context.Context, ev CardClicked) (Reply, error) {
	admin, ok, err := a.Messaging.SpaceAdmin(ctx, ev.Space)
	if err != nil {
		return nil, fmt.Errorf("resolve space admin: %w", err)
	}
	if !ok {
		return TextReply{Text: NudgeText}, nil
	}
	return TextReply{Text: fmt.Sprintf("<%s> %s", admin, NudgeText)}, nil
}

// authorizeOrFail turns a missing credential into a request for
// authorization and returns any other error unchanged.
func (a *App) authorizeOrFail(user, redirect string, err error) (Reply, error) {
	if !IsMissingCredential(err) {
		return nil, err
	}
	a.Logger.Info("Requesting authorization", "user", user)
	return AuthorizationReply{URL: a.Auth.AuthorizationURL(user, redirect)}, nil
}
