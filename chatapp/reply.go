package chatapp

import "encoding/json"

// A Reply is the synchronous response to an event. The set of implementations
// is closed: EmptyReply, TextReply, AnswerReply and AuthorizationReply. Each
// encodes to the JSON body the chat platform expects.
type Reply interface {
	json.Marshaler
	reply()
}

// EmptyReply tells the platform not to post anything.
type EmptyReply struct{}

// TextReply posts a plain text message.
type TextReply struct {
	Text string
}

// AnswerReply posts an answer with a single button. It is never attached to a
// thread so the platform posts it as a top-level message.
type AnswerReply struct {
	Text   string
	Button Button
}

// AuthorizationReply asks the platform to show the user a link to grant the
// app delegated access.
type AuthorizationReply struct {
	URL string
}

// A Button is an interactive card button. Clicking it sends a CardClicked
// event carrying Action.
type Button struct {
	Text   string
	Action string
}

// GetHelpButton is attached to every answer so users can escalate to a human.
var GetHelpButton = Button{Text: "Get help", Action: "getHelp"}

func (EmptyReply) reply()         {}
func (TextReply) reply()          {}
func (AnswerReply) reply()        {}
func (AuthorizationReply) reply() {}

func (EmptyReply) MarshalJSON() ([]byte, error) {
	return []byte("{}"), nil
}

func (r TextReply) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Text string `json:"text"`
	}{r.Text})
}

func (r AnswerReply) MarshalJSON() ([]byte, error) {
	type (
		action struct {
			Function string `json:"function"`
		}
		onClick struct {
			Action action `json:"action"`
		}
		button struct {
			Text    string  `json:"text"`
			OnClick onClick `json:"onClick"`
		}
		buttonList struct {
			Buttons []button `json:"buttons"`
		}
		widget struct {
			ButtonList buttonList `json:"buttonList"`
		}
		section struct {
			Widgets []widget `json:"widgets"`
		}
		card struct {
			Sections []section `json:"sections"`
		}
		cardV2 struct {
			CardID string `json:"cardId"`
			Card   card   `json:"card"`
		}
	)

	b := button{Text: r.Button.Text, OnClick: onClick{Action: action{Function: r.Button.Action}}}
	return json.Marshal(struct {
		Text    string    `json:"text"`
		CardsV2 []cardV2  `json:"cardsV2"`
		Thread  *struct{} `json:"thread"`
	}{
		Text: r.Text,
		CardsV2: []cardV2{{
			CardID: r.Button.Action,
			Card: card{Sections: []section{{
				Widgets: []widget{{ButtonList: buttonList{Buttons: []button{b}}}},
			}}},
		}},
	})
}

func (r AuthorizationReply) MarshalJSON() ([]byte, error) {
	type actionResponse struct {
		Type string `json:"type"`
		URL  string `json:"url"`
	}
	return json.Marshal(struct {
		ActionResponse actionResponse `json:"actionResponse"`
	}{actionResponse{Type: "REQUEST_CONFIG", URL: r.URL}})
}
