// Package messenger implements the Messenger Platform wire format and a client
// for the Graph API endpoints the bot uses (Send API and Messenger Profile API).
package messenger

// ObjectPage is the only webhook object type the bot processes.
const ObjectPage = "page"

// Envelope is the body of a webhook delivery.
type Envelope struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry is one page event batch inside a delivery. The platform currently puts
// a single element in Messaging.
type Entry struct {
	ID        string      `json:"id"`
	Time      int64       `json:"time"`
	Messaging []Messaging `json:"messaging"`
}

// Messaging is a single messaging event. At most one of Message and Postback is set.
type Messaging struct {
	Sender    Participant      `json:"sender"`
	Recipient Participant      `json:"recipient"`
	Timestamp int64            `json:"timestamp"`
	Message   *InboundMessage  `json:"message,omitempty"`
	Postback  *InboundPostback `json:"postback,omitempty"`
}

type Participant struct {
	ID string `json:"id"`
}

type InboundMessage struct {
	MID         string              `json:"mid"`
	Text        string              `json:"text,omitempty"`
	Attachments []InboundAttachment `json:"attachments,omitempty"`
}

type InboundAttachment struct {
	Type    string            `json:"type"`
	Payload AttachmentPayload `json:"payload"`
}

type AttachmentPayload struct {
	URL string `json:"url,omitempty"`
}

type InboundPostback struct {
	MID     string `json:"mid,omitempty"`
	Title   string `json:"title"`
	Payload string `json:"payload"`
}

// Message is an outbound Send API message: either Text or Attachment.
type Message struct {
	Text       string      `json:"text,omitempty"`
	Attachment *Attachment `json:"attachment,omitempty"`
}

type Attachment struct {
	Type    string          `json:"type"`
	Payload TemplatePayload `json:"payload"`
}

type TemplatePayload struct {
	TemplateType string    `json:"template_type"`
	Elements     []Element `json:"elements"`
}

type Element struct {
	Title    string   `json:"title"`
	Subtitle string   `json:"subtitle,omitempty"`
	ImageURL string   `json:"image_url,omitempty"`
	Buttons  []Button `json:"buttons,omitempty"`
}

// Button is a postback button. Type is always "postback" for this bot.
type Button struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Payload string `json:"payload"`
}

// TextMessage builds a plain text message.
func TextMessage(text string) Message {
	return Message{Text: text}
}

// GenericTemplate builds a generic template message with one element.
func GenericTemplate(element Element) Message {
	return Message{
		Attachment: &Attachment{
			Type: "template",
			Payload: TemplatePayload{
				TemplateType: "generic",
				Elements:     []Element{element},
			},
		},
	}
}

// PostbackButton builds a postback button.
func PostbackButton(title, payload string) Button {
	return Button{Type: "postback", Title: title, Payload: payload}
}

// SendRequest is the Send API request body.
type SendRequest struct {
	Recipient Participant `json:"recipient"`
	Message   Message     `json:"message"`
}

// SendResponse is the Send API success body.
type SendResponse struct {
	RecipientID string `json:"recipient_id"`
	MessageID   string `json:"message_id"`
}

// Profile is the Messenger Profile API request body.
type Profile struct {
	GetStarted     *GetStarted      `json:"get_started,omitempty"`
	Greeting       []Greeting       `json:"greeting,omitempty"`
	PersistentMenu []PersistentMenu `json:"persistent_menu,omitempty"`
}

type GetStarted struct {
	Payload string `json:"payload"`
}

type Greeting struct {
	Locale string `json:"locale"`
	Text   string `json:"text"`
}

type PersistentMenu struct {
	Locale                string   `json:"locale"`
	ComposerInputDisabled bool     `json:"composer_input_disabled"`
	CallToActions         []Button `json:"call_to_actions"`
}

// Postback payloads understood by the bot.
const (
	PayloadGetStarted = "get_started"
	PayloadTracking   = "TRACKING"
	PayloadYes        = "yes"
	PayloadNo         = "no"
)

// DefaultProfile is the page profile pushed by POST /set: a Get Started
// button, a greeting, and a one-item persistent menu.
func DefaultProfile() Profile {
	return Profile{
		GetStarted: &GetStarted{Payload: PayloadGetStarted},
		Greeting: []Greeting{
			{Locale: "default", Text: "Hello {{user_full_name}}!"},
		},
		PersistentMenu: []PersistentMenu{
			{
				Locale:                "default",
				ComposerInputDisabled: false,
				CallToActions:         []Button{PostbackButton("Tracking", PayloadTracking)},
			},
		},
	}
}
