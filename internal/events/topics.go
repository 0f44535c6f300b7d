package events

// Names of the known notification topics.
const (
	TopicBusy      = "busy"
	TopicError     = "error"
	TopicSuccess   = "success"
	TopicWarning   = "warning"
	TopicInfo      = "info"
	TopicSignedIn  = "signedIn"
	TopicSignedOut = "signedOut"
)

// User is the payload of SignedIn.
type User struct {
	ID    string `json:"_id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Type  string `json:"type,omitempty"`
}

// SignedOutEvent is the (empty) payload of SignedOut.
type SignedOutEvent struct{}

// Busy carries true when the first request starts and false when the last
// one finishes.
func (h *Hub) Busy() Topic[bool] { return must[bool](h, TopicBusy) }

func (h *Hub) Error() Topic[string] { return must[string](h, TopicError) }

func (h *Hub) Success() Topic[string] { return must[string](h, TopicSuccess) }

func (h *Hub) Warning() Topic[string] { return must[string](h, TopicWarning) }

func (h *Hub) Info() Topic[string] { return must[string](h, TopicInfo) }

func (h *Hub) SignedIn() Topic[User] { return must[User](h, TopicSignedIn) }

// SignedOut fires whenever the session is lost, whichever call noticed it.
func (h *Hub) SignedOut() Topic[SignedOutEvent] {
	return must[SignedOutEvent](h, TopicSignedOut)
}
