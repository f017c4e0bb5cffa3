package reminder

// Status is the delivery state of a task.
// Use the exported constants instead of raw strings.
type Status string

const (
	// StatusPending is the initial state; the task still has a dispatch in flight.
	StatusPending Status = "pending"
	// StatusSent is terminal: delivery succeeded.
	StatusSent Status = "sent"
	// StatusFailed is terminal: the retry ceiling was exceeded or the task could not be delivered at all.
	StatusFailed Status = "failed"
)

// AllStatuses lists every valid status in a stable order.
var AllStatuses = []Status{StatusPending, StatusSent, StatusFailed}

// String returns the raw string value of the status.
func (s Status) String() string { return string(s) }

// Terminal reports whether s is a final state that is never re-dispatched.
func (s Status) Terminal() bool { return s == StatusSent || s == StatusFailed }

// ParseStatus converts a string into a Status, returning ErrUnknownStatus for unknown values.
func ParseStatus(s string) (Status, error) {
	switch s {
	case string(StatusPending):
		return StatusPending, nil
	case string(StatusSent):
		return StatusSent, nil
	case string(StatusFailed):
		return StatusFailed, nil
	default:
		return "", ErrUnknownStatus
	}
}

// Channel is the delivery channel of a task. This enumeration is the only
// source of truth for request validation, dispatch routing and the wire format.
type Channel string

const (
	// ChannelEmail sends a reminder email to the owner's address.
	ChannelEmail Channel = "email"
	// ChannelInApp pushes a notification to the owner's live connections.
	ChannelInApp Channel = "in-app"
)

// AllChannels lists every supported channel in a stable order.
var AllChannels = []Channel{ChannelEmail, ChannelInApp}

// String returns the raw string value of the channel.
func (c Channel) String() string { return string(c) }

// ParseChannel converts a string into a Channel, returning ErrUnknownChannel for unknown values.
func ParseChannel(s string) (Channel, error) {
	switch s {
	case string(ChannelEmail):
		return ChannelEmail, nil
	case string(ChannelInApp):
		return ChannelInApp, nil
	default:
		return "", ErrUnknownChannel
	}
}
