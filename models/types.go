package models

// Response types
const (
	ResponseInChannel = "in_channel"
	ResponseEphemeral = "ephemeral"
)

// Attachment colors
const (
	ColorGood    = "good"
	ColorWarning = "warning"
)

// Request types

// Command is a Slack slash command invocation
type Command struct {
	Token       string
	TeamID      string
	TeamDomain  string
	ChannelID   string
	ChannelName string
	UserID      string
	UserName    string
	Command     string
	Text        string
	ResponseURL string
}

// Response types

// Message is a Slack message, returned directly or posted to a response_url
type Message struct {
	ResponseType string       `json:"response_type,omitempty"`
	Text         string       `json:"text"`
	Attachments  []Attachment `json:"attachments,omitempty"`
}

type Attachment struct {
	Text     string `json:"text"`
	Color    string `json:"color,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
	ThumbURL string `json:"thumb_url,omitempty"`
}

// AddAttachment appends an attachment. The image is shown as a thumbnail
// when thumbnail is true and full size otherwise.
func (m *Message) AddAttachment(text, color, image string, thumbnail bool) {
	a := Attachment{Text: text, Color: color}
	if image != "" {
		if thumbnail {
			a.ThumbURL = image
		} else {
			a.ImageURL = image
		}
	}
	m.Attachments = append(m.Attachments, a)
}

// InChannel returns a message visible to the whole channel
func InChannel(text string) Message {
	return Message{ResponseType: ResponseInChannel, Text: text}
}

// Ephemeral returns a message visible only to the user who ran the command
func Ephemeral(text string) Message {
	return Message{ResponseType: ResponseEphemeral, Text: text}
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
