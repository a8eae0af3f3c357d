// Package bot turns inbound Messenger events into replies. It holds no state
// between events; the only external call is the order lookup for /t commands.
package bot

import "github.com/globexvn/messenger-tracking-bot/internal/messenger"

// EventKind distinguishes the two handled event types.
type EventKind int

const (
	EventUnknown EventKind = iota
	EventMessage
	EventPostback
)

func (k EventKind) String() string {
	switch k {
	case EventMessage:
		return "message"
	case EventPostback:
		return "postback"
	default:
		return "unknown"
	}
}

// Attachment is an inbound media attachment.
type Attachment struct {
	Type string
	URL  string
}

// Event is a classified inbound event. Text and Attachments are set for
// messages, Payload for postbacks. An empty Text means no text.
type Event struct {
	Kind        EventKind
	SenderID    string
	MessageID   string
	Text        string
	Attachments []Attachment
	Payload     string
}

// EventFromMessaging classifies a messaging sub-event. A message wins over a
// postback; ok is false when neither is present.
func EventFromMessaging(m messenger.Messaging) (ev Event, ok bool) {
	ev.SenderID = m.Sender.ID
	switch {
	case m.Message != nil:
		ev.Kind = EventMessage
		ev.MessageID = m.Message.MID
		ev.Text = m.Message.Text
		for _, a := range m.Message.Attachments {
			ev.Attachments = append(ev.Attachments, Attachment{Type: a.Type, URL: a.Payload.URL})
		}
		return ev, true
	case m.Postback != nil:
		ev.Kind = EventPostback
		ev.MessageID = m.Postback.MID
		ev.Payload = m.Postback.Payload
		return ev, true
	default:
		return ev, false
	}
}
