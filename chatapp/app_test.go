package chatapp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/neilotoole/slogt"
)

func TestApp_HandleEvent_unknown(t *testing.T) {
	app := &App{Logger: slogt.New(t)}
	got, err := app.HandleEvent(context.Background(), UnknownEvent{Tag: "WIDGET_UPDATED", Space: "spaces/A"})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Reply(EmptyReply{}), got); diff != "" {
		t.Errorf("Reply mismatch (-want +got):\n%s", diff)
	}
}

func TestApp_onSpaceJoined(t *testing.T) {
	backlog := []Message{
		{ID: "spaces/A/messages/1", Text: "Release is on Friday", CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	}

	tests := []struct {
		name      string
		messaging *testmessaging
		subs      *testsubs
		store     *teststore
		want      Reply
		wantErr   bool
		wantCalls []string
	}{
		{
			name: "OK",
			messaging: &testmessaging{
				listMessages: func(space, user string) ([]Message, error) {
					return backlog, nil
				},
			},
			subs:      &testsubs{},
			store:     &teststore{},
			want:      TextReply{Text: WelcomeText},
			wantCalls: []string{"create spaces/A", "upsert 1", "subscribe spaces/A users/1"},
		},
		{
			name: "BackfillUnauthorized",
			messaging: &testmessaging{
				listMessages: func(space, user string) ([]Message, error) {
					return nil, &MissingCredentialError{UserID: user}
				},
			},
			subs:      &testsubs{},
			store:     &teststore{},
			want:      AuthorizationReply{URL: "https://auth.example.com/?user=users/1&redirect=https://chat.example.com/done"},
			wantCalls: []string{"create spaces/A"},
		},
		{
			name: "SubscriptionUnauthorized",
			messaging: &testmessaging{
				listMessages: func(space, user string) ([]Message, error) {
					return backlog, nil
				},
			},
			subs: &testsubs{
				create: func(space, user string) error {
					return &MissingCredentialError{UserID: user}
				},
			},
			store:     &teststore{},
			want:      AuthorizationReply{URL: "https://auth.example.com/?user=users/1&redirect=https://chat.example.com/done"},
			wantCalls: []string{"create spaces/A", "upsert 1", "subscribe spaces/A users/1"},
		},
		{
			name: "BackfillError",
			messaging: &testmessaging{
				listMessages: func(space, user string) ([]Message, error) {
					return nil, errors.New("something went wrong")
				},
			},
			subs:      &testsubs{},
			store:     &teststore{},
			wantErr:   true,
			wantCalls: []string{"create spaces/A"},
		},
		{
			name:      "StoreError",
			messaging: &testmessaging{},
			subs:      &testsubs{},
			store: &teststore{
				createConversation: func(space string) error {
					return errors.New("something went wrong")
				},
			},
			wantErr:   true,
			wantCalls: []string{"create spaces/A"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls []string
			tt.store.calls = &calls
			tt.subs.calls = &calls
			app := &App{
				Logger:        slogt.New(t),
				Store:         tt.store,
				Messaging:     tt.messaging,
				Subscriptions: tt.subs,
				Auth:          testauth{},
			}

			got, err := app.HandleEvent(context.Background(), SpaceJoined{
				Space:       "spaces/A",
				User:        "users/1",
				RedirectURL: "https://chat.example.com/done",
			})
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Got reply %v, want error", got)
				}
				if IsMissingCredential(err) {
					t.Errorf("Got missing credential error %v", err)
				}
			} else if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Reply mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantCalls, calls); diff != "" {
				t.Errorf("Calls mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestApp_onMessageReceived(t *testing.T) {
	msg := Message{
		ID:        "spaces/A/messages/2",
		Text:      "What's our release date?",
		CreatedAt: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	}

	tests := []struct {
		name      string
		store     *teststore
		answerer  *testanswerer
		want      Reply
		wantErr   bool
		wantCalls []string
	}{
		{
			name:  "NotAQuestion",
			store: &teststore{},
			answerer: &testanswerer{
				isQuestion: func(text string) (bool, error) {
					return false, nil
				},
			},
			want:      EmptyReply{},
			wantCalls: []string{"upsert 2", "classify"},
		},
		{
			name: "Question",
			store: &teststore{
				listMessages: func(space string) ([]Message, error) {
					return []Message{{ID: "spaces/A/messages/1", Text: "Release is on Friday"}, msg}, nil
				},
			},
			answerer: &testanswerer{
				isQuestion: func(text string) (bool, error) {
					return true, nil
				},
				answer: func(question string, history []Message) (string, error) {
					if question != msg.Text {
						t.Errorf("Got question %q, want %q", question, msg.Text)
					}
					if len(history) != 2 {
						t.Errorf("Got %d history messages, want 2", len(history))
					}
					return "The release is on Friday 🚀", nil
				},
			},
			want:      AnswerReply{Text: "The release is on Friday 🚀", Button: GetHelpButton},
			wantCalls: []string{"upsert 2", "classify", "list spaces/A", "answer"},
		},
		{
			name: "EmptyHistory",
			store: &teststore{
				listMessages: func(space string) ([]Message, error) {
					return nil, nil
				},
			},
			answerer: &testanswerer{
				isQuestion: func(text string) (bool, error) {
					return true, nil
				},
				answer: func(question string, history []Message) (string, error) {
					return "I don't have that information yet.", nil
				},
			},
			want:      AnswerReply{Text: "I don't have that information yet.", Button: GetHelpButton},
			wantCalls: []string{"upsert 2", "classify", "list spaces/A", "answer"},
		},
		{
			name:  "Unauthorized",
			store: &teststore{},
			answerer: &testanswerer{
				isQuestion: func(text string) (bool, error) {
					return false, &MissingCredentialError{UserID: "users/1"}
				},
			},
			want:      AuthorizationReply{URL: "https://auth.example.com/?user=users/1&redirect="},
			wantCalls: []string{"upsert 2", "classify"},
		},
		{
			name:  "PredictionError",
			store: &teststore{},
			answerer: &testanswerer{
				isQuestion: func(text string) (bool, error) {
					return false, &PredictionError{Prompt: "classify", Err: errors.New("quota exceeded")}
				},
			},
			wantErr:   true,
			wantCalls: []string{"upsert 2", "classify"},
		},
		{
			name: "StoreError",
			store: &teststore{
				upsertMessage: func(space string, msg Message) error {
					return errors.New("something went wrong")
				},
			},
			answerer:  &testanswerer{},
			wantErr:   true,
			wantCalls: []string{"upsert 2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls []string
			tt.store.calls = &calls
			tt.answerer.calls = &calls
			app := &App{
				Logger:   slogt.New(t),
				Store:    tt.store,
				Answerer: tt.answerer,
				Auth:     testauth{},
			}

			got, err := app.HandleEvent(context.Background(), MessageReceived{Space: "spaces/A", User: "users/1", Message: msg})
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Got reply %v, want error", got)
				}
			} else if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Reply mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantCalls, calls); diff != "" {
				t.Errorf("Calls mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestApp_onMessageReceived_predictionErrorUnchanged(t *testing.T) {
	cause := errors.New("quota exceeded")
	app := &App{
		Logger: slogt.New(t),
		Store:  &teststore{},
		Answerer: &testanswerer{
			isQuestion: func(text string) (bool, error) {
				return false, &PredictionError{Prompt: "classify", Err: cause}
			},
		},
	}

	_, err := app.HandleEvent(context.Background(), MessageReceived{Space: "spaces/A", Message: Message{ID: "spaces/A/messages/1"}})
	var pe *PredictionError
	if !errors.As(err, &pe) {
		t.Fatalf("Got error %v, want *PredictionError", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("Got error %v, want it to wrap %v", err, cause)
	}
}

func TestApp_onSpaceLeft(t *testing.T) {
	tests := []struct {
		name      string
		subs      *testsubs
		store     *teststore
		wantErr   bool
		wantCalls []string
	}{
		{
			name:      "OK",
			subs:      &testsubs{},
			store:     &teststore{},
			wantCalls: []string{"unsubscribe spaces/A", "delete spaces/A"},
		},
		{
			name: "SubscriptionError",
			subs: &testsubs{
				delete: func(space string) error {
					return errors.New("something went wrong")
				},
			},
			store:     &teststore{},
			wantErr:   true,
			wantCalls: []string{"unsubscribe spaces/A"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls []string
			tt.store.calls = &calls
			tt.subs.calls = &calls
			app := &App{
				Logger:        slogt.New(t),
				Store:         tt.store,
				Subscriptions: tt.subs,
			}

			got, err := app.HandleEvent(context.Background(), SpaceLeft{Space: "spaces/A", User: "users/never-authorized"})
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Got reply %v, want error", got)
				}
			} else {
				if err != nil {
					t.Fatal(err)
				}
				if diff := cmp.Diff(Reply(EmptyReply{}), got); diff != "" {
					t.Errorf("Reply mismatch (-want +got):\n%s", diff)
				}
			}
			if diff := cmp.Diff(tt.wantCalls, calls); diff != "" {
				t.Errorf("Calls mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestApp_RecordMessage(t *testing.T) {
	msg := Message{ID: "spaces/A/messages/7", Text: "The deploy is done"}

	var calls []string
	var stored Message
	store := &teststore{
		calls: &calls,
		upsertMessage: func(space string, m Message) error {
			if space != "spaces/A" {
				t.Errorf("Got space %q, want %q", space, "spaces/A")
			}
			stored = m
			return nil
		},
	}
	app := &App{Logger: slogt.New(t), Store: store}

	if err := app.RecordMessage(context.Background(), "spaces/A", msg); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(msg, stored); diff != "" {
		t.Errorf("Message mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"upsert 7"}, calls); diff != "" {
		t.Errorf("Calls mismatch (-want +got):\n%s", diff)
	}

	store.upsertMessage = func(string, Message) error { return errors.New("connection refused") }
	if err := app.RecordMessage(context.Background(), "spaces/A", msg); err == nil {
		t.Error("Got no error, want the store error")
	}
}

func TestApp_onCardClicked(t *testing.T) {
	tests := []struct {
		name  string
		admin func(space string) (string, bool, error)
		want  Reply
	}{
		{
			name: "Admin",
			admin: func(space string) (string, bool, error) {
				return "users/42", true, nil
			},
			want: TextReply{Text: "<users/42> Please answer the question above."},
		},
		{
			name: "NoAdmin",
			admin: func(space string) (string, bool, error) {
				return "", false, nil
			},
			want: TextReply{Text: "Please answer the question above."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := &App{
				Logger:    slogt.New(t),
				Messaging: &testmessaging{spaceAdmin: tt.admin},
			}
			got, err := app.HandleEvent(context.Background(), CardClicked{Space: "spaces/A", User: "users/1", Action: "getHelp"})
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Reply mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

type teststore struct {
	calls              *[]string
	createConversation func(space string) error
	upsertMessage      func(space string, msg Message) error
	listMessages       func(space string) ([]Message, error)
}

func (s *teststore) record(call string) {
	if s.calls != nil {
		*s.calls = append(*s.calls, call)
	}
}

func (s *teststore) CreateConversation(_ context.Context, space string) error {
	s.record("create " + space)
	if s.createConversation == nil {
		return nil
	}
	return s.createConversation(space)
}

func (s *teststore) DeleteConversation(_ context.Context, space string) error {
	s.record("delete " + space)
	return nil
}

func (s *teststore) UpsertMessage(_ context.Context, space string, msg Message) error {
	s.record("upsert " + lastSegment(msg.ID))
	if s.upsertMessage == nil {
		return nil
	}
	return s.upsertMessage(space, msg)
}

func (s *teststore) UpsertMessages(_ context.Context, space string, msgs []Message) error {
	ids := make([]string, len(msgs))
	for i, m := range msgs {
		ids[i] = lastSegment(m.ID)
	}
	s.record("upsert " + strings.Join(ids, ","))
	return nil
}

func (s *teststore) ListMessages(_ context.Context, space string) ([]Message, error) {
	s.record("list " + space)
	return s.listMessages(space)
}

type testmessaging struct {
	listMessages func(space, user string) ([]Message, error)
	spaceAdmin   func(space string) (string, bool, error)
}

func (m *testmessaging) ListMessages(_ context.Context, space, user string) ([]Message, error) {
	return m.listMessages(space, user)
}

func (m *testmessaging) SpaceAdmin(_ context.Context, space string) (string, bool, error) {
	return m.spaceAdmin(space)
}

type testsubs struct {
	calls  *[]string
	create func(space, user string) error
	delete func(space string) error
}

func (s *testsubs) Create(_ context.Context, space, user string) error {
	*s.calls = append(*s.calls, "subscribe "+space+" "+user)
	if s.create == nil {
		return nil
	}
	return s.create(space, user)
}

func (s *testsubs) Delete(_ context.Context, space string) error {
	*s.calls = append(*s.calls, "unsubscribe "+space)
	if s.delete == nil {
		return nil
	}
	return s.delete(space)
}

type testanswerer struct {
	calls      *[]string
	isQuestion func(text string) (bool, error)
	answer     func(question string, history []Message) (string, error)
}

func (a *testanswerer) IsQuestion(_ context.Context, text string) (bool, error) {
	if a.calls != nil {
		*a.calls = append(*a.calls, "classify")
	}
	return a.isQuestion(text)
}

func (a *testanswerer) Answer(_ context.Context, question string, history []Message) (string, error) {
	if a.calls != nil {
		*a.calls = append(*a.calls, "answer")
	}
	return a.answer(question, history)
}

type testauth struct{}

func (testauth) AuthorizationURL(user, redirect string) string {
	return "https://auth.example.com/?user=" + user + "&redirect=" + redirect
}

func lastSegment(name string) string {
	return name[strings.LastIndex(name, "/")+1:]
}

func TestReply_MarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		reply Reply
		want  string
	}{
		{
			name:  "Empty",
			reply: EmptyReply{},
			want:  `{}`,
		},
		{
			name:  "Text",
			reply: TextReply{Text: "hello"},
			want:  `{"text":"hello"}`,
		},
		{
			name:  "Authorization",
			reply: AuthorizationReply{URL: "https://auth.example.com"},
			want:  `{"actionResponse":{"type":"REQUEST_CONFIG","url":"https://auth.example.com"}}`,
		},
		{
			name:  "Answer",
			reply: AnswerReply{Text: "Friday", Button: GetHelpButton},
			want:  `{"text":"Friday","cardsV2":[{"cardId":"getHelp","card":{"sections":[{"widgets":[{"buttonList":{"buttons":[{"text":"Get help","onClick":{"action":{"function":"getHelp"}}}]}}]}]}}],"thread":null}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.reply)
			if err != nil {
				t.Fatal(err)
			}
			if got := string(b); got != tt.want {
				t.Errorf("Got %s, want %s", got, tt.want)
			}
		})
	}
}
