package chatapp

// Event type tags as sent by the chat platform.
const (
	TypeAddedToSpace     = "ADDED_TO_SPACE"
	TypeMessage          = "MESSAGE"
	TypeRemovedFromSpace = "REMOVED_FROM_SPACE"
	TypeCardClicked      = "CARD_CLICKED"
)

// An Event is one inbound interaction event. The set of implementations is
// closed: SpaceJoined, MessageReceived, SpaceLeft, CardClicked and
// UnknownEvent.
type Event interface {
	// Type returns the platform type tag of the event.
	Type() string
	event()
}

// SpaceJoined is sent when the app is added to a space.
type SpaceJoined struct {
	Space string
	User  string
	// RedirectURL is where the user is sent once authorization completes.
	RedirectURL string
}

// MessageReceived is sent when a member posts a message in a space.
type MessageReceived struct {
	Space   string
	User    string
	Message Message
}

// SpaceLeft is sent when the app is removed from a space.
type SpaceLeft struct {
	Space string
	User  string
}

// CardClicked is sent when a user clicks a button on a card posted by the app.
type CardClicked struct {
	Space  string
	User   string
	Action string
}

// UnknownEvent carries a type tag the app does not handle.
type UnknownEvent struct {
	Tag   string
	Space string
	User  string
}

func (SpaceJoined) Type() string     { return TypeAddedToSpace }
func (MessageReceived) Type() string { return TypeMessage }
func (SpaceLeft) Type() string       { return TypeRemovedFromSpace }
func (CardClicked) Type() string     { return TypeCardClicked }
func (e UnknownEvent) Type() string  { return e.Tag }

func (SpaceJoined) event()     {}
func (MessageReceived) event() {}
func (SpaceLeft) event()       {}
func (CardClicked) event()     {}
func (UnknownEvent) event()    {}
