package bot

import "github.com/globexvn/messenger-tracking-bot/internal/messenger"

// Button is a postback button offered by a template reply.
type Button struct {
	Title   string
	Payload string
}

// AttachmentTemplate asks the user to confirm an image.
type AttachmentTemplate struct {
	ImageURL string
	Title    string
	Subtitle string
	Buttons  []Button
}

// Response is a reply: Text, or Template when non-nil.
type Response struct {
	Text     string
	Template *AttachmentTemplate
}

// TextResponse builds a text reply.
func TextResponse(text string) Response {
	return Response{Text: text}
}

// Kind returns "template" or "text" for logs and metrics.
func (r Response) Kind() string {
	if r.Template != nil {
		return "template"
	}
	return "text"
}

// Message converts r to the Send API message format.
func (r Response) Message() messenger.Message {
	if r.Template == nil {
		return messenger.TextMessage(r.Text)
	}
	buttons := make([]messenger.Button, 0, len(r.Template.Buttons))
	for _, b := range r.Template.Buttons {
		buttons = append(buttons, messenger.PostbackButton(b.Title, b.Payload))
	}
	return messenger.GenericTemplate(messenger.Element{
		Title:    r.Template.Title,
		Subtitle: r.Template.Subtitle,
		ImageURL: r.Template.ImageURL,
		Buttons:  buttons,
	})
}
