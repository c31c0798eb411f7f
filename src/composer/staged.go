package composer

import "github.com/elee1766/lumen/src/chat"

// Staged is the single special input channel currently armed in the
// composer. Exactly one of Idle, AttachmentStaged, VideoLinkStaged or
// ModeStaged is active at a time.
type Staged interface {
	isStaged()
	// Describe returns a short status line for display
	Describe() string
}

// Idle means no special input is staged
type Idle struct{}

// AttachmentStaged holds one processed attachment
type AttachmentStaged struct {
	Attachment chat.Attachment
}

// VideoLinkStaged holds a detected video link
type VideoLinkStaged struct {
	URL string
}

// ModeStaged holds a special mode selection. Image is set for image
// generation; Source is set only for image editing.
type ModeStaged struct {
	Mode   chat.Mode
	Image  *chat.ImageOptions
	Source *chat.Attachment
}

func (Idle) isStaged()             {}
func (AttachmentStaged) isStaged() {}
func (VideoLinkStaged) isStaged()  {}
func (ModeStaged) isStaged()       {}

func (Idle) Describe() string { return "" }

func (s AttachmentStaged) Describe() string {
	name := s.Attachment.Name
	if name == "" {
		name = s.Attachment.MIMEType
	}
	if s.Attachment.Kind == chat.AttachmentVideoFrame {
		return "video frame: " + name
	}
	return "image: " + name
}

func (s VideoLinkStaged) Describe() string { return "video: " + s.URL }

func (s ModeStaged) Describe() string {
	switch {
	case s.Image != nil:
		return s.Mode.Label() + " (" + s.Image.Model + ", " + s.Image.AspectRatio + ")"
	case s.Mode == chat.ModeImageEdit && s.Source != nil:
		return s.Mode.Label() + ": " + s.Source.Name
	case s.Mode == chat.ModeImageEdit:
		return s.Mode.Label() + " (attach an image)"
	default:
		return s.Mode.Label()
	}
}
