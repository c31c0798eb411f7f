package chat

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultTitle is the title every new conversation starts with. A conversation
// still carrying it is eligible for automatic titling.
const DefaultTitle = "New Chat"

// Role identifies the author of a message
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// AttachmentKind discriminates the inline payloads a message can carry
type AttachmentKind string

const (
	AttachmentImage      AttachmentKind = "image"
	AttachmentVideoFrame AttachmentKind = "video_frame"
)

// Attachment is an inline encoded payload. Video attachments are always a
// single still frame, never raw video.
type Attachment struct {
	Kind     AttachmentKind `json:"kind"`
	MIMEType string         `json:"mimeType"`
	Data     []byte         `json:"data"`
	Name     string         `json:"name,omitempty"`
}

// IsImage reports whether the attachment can be sent as an image part
func (a Attachment) IsImage() bool {
	return len(a.Data) > 0 && (a.Kind == AttachmentImage || a.Kind == AttachmentVideoFrame)
}

// GroundingSource is a citation returned alongside a grounded answer
type GroundingSource struct {
	URI   string `json:"uri"`
	Title string `json:"title,omitempty"`
}

// Message is one entry in a conversation
type Message struct {
	ID               string            `json:"id"`
	Role             Role              `json:"role"`
	Content          string            `json:"content"`
	Attachments      []Attachment      `json:"attachments,omitempty"`
	Timestamp        time.Time         `json:"timestamp"`
	IsLoading        bool              `json:"isLoading,omitempty"`
	IsError          bool              `json:"isError,omitempty"`
	GroundingSources []GroundingSource `json:"groundingSources,omitempty"`
	VideoURL         string            `json:"videoUrl,omitempty"`
}

// Completed reports whether m is a finished, successful model reply
func (m Message) Completed() bool {
	return m.Role == RoleModel && !m.IsLoading && !m.IsError
}

// Conversation is an ordered exchange of messages. Values reachable from a
// Snapshot are shared between snapshots and must not be mutated.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
}

// LastMessage returns the trailing message, if any
func (c *Conversation) LastMessage() (Message, bool) {
	if c == nil || len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

// clone returns a copy of c with its own message slice
func (c *Conversation) clone(extra int) *Conversation {
	out := *c
	out.Messages = make([]Message, len(c.Messages), len(c.Messages)+extra)
	copy(out.Messages, c.Messages)
	return &out
}

// Mode selects the model and tool configuration for a turn
type Mode string

const (
	ModeDefault         Mode = ""
	ModeDeepThinking    Mode = "deep_thinking"
	ModeCoding          Mode = "coding"
	ModeGoogleMaps      Mode = "google_maps"
	ModeDeepResearch    Mode = "deep_research"
	ModeGoogleSearch    Mode = "google_search"
	ModeImageGeneration Mode = "image_generation"
	ModeImageEdit       Mode = "image_edit"
)

// Modes lists every selectable mode in display order
func Modes() []Mode {
	return []Mode{
		ModeDefault,
		ModeDeepThinking,
		ModeCoding,
		ModeGoogleMaps,
		ModeDeepResearch,
		ModeGoogleSearch,
		ModeImageGeneration,
		ModeImageEdit,
	}
}

// Valid reports whether m is a known mode
func (m Mode) Valid() bool {
	for _, known := range Modes() {
		if m == known {
			return true
		}
	}
	return false
}

// Label is the human readable name of the mode
func (m Mode) Label() string {
	switch m {
	case ModeDeepThinking:
		return "Deep thinking"
	case ModeCoding:
		return "Coding"
	case ModeGoogleMaps:
		return "Maps"
	case ModeDeepResearch:
		return "Deep research"
	case ModeGoogleSearch:
		return "Search"
	case ModeImageGeneration:
		return "Image"
	case ModeImageEdit:
		return "Edit image"
	default:
		return "Chat"
	}
}

// ParseMode accepts a mode id or label, case-insensitively. "chat" and
// "default" name the default mode.
func ParseMode(s string) (Mode, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "chat" || s == "default" {
		return ModeDefault, true
	}
	for _, mode := range Modes() {
		if s == string(mode) || s == strings.ToLower(mode.Label()) ||
			s == strings.ReplaceAll(string(mode), "_", "-") {
			return mode, true
		}
	}
	return "", false
}

// ImageOptions configures an image generation request
type ImageOptions struct {
	AspectRatio string `json:"aspectRatio"`
	Model       string `json:"model"`
}

// NewID returns an opaque, time-ordered identifier
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
