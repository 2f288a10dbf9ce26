package domain

// Synthetic transcript lines produced by the client itself.
const (
	NoResponseText  = "Sorry, I didn't receive a response. Please try again."
	SubmitErrorText = "Error: Failed to send message. Please try again."
)

// Entry is one transcript line.
type Entry struct {
	Text   string `json:"text"`
	IsUser bool   `json:"isUser"`
}

// UserEntry is a line typed by the local user.
func UserEntry(text string) Entry {
	return Entry{Text: text, IsUser: true}
}

// AgentEntry is a line received from, or on behalf of, the agent side.
func AgentEntry(text string) Entry {
	return Entry{Text: text}
}

// ConnState is the subscriber connection state seen by a chat session.
type ConnState int

const (
	Disconnected ConnState = iota
	Connecting
	Connected
)

func (s ConnState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// CloseReason tags why a subscriber connection ended. Only Unexpected
// closures are followed by a reconnect.
type CloseReason int

const (
	Unexpected CloseReason = iota
	Intentional
)

func (r CloseReason) String() string {
	if r == Intentional {
		return "intentional"
	}
	return "unexpected"
}
