// Package composer turns user input into a normalized outbound request.
package composer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/elee1766/lumen/src/chat"
	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/afero"
)

// DefaultMaxAttachmentBytes bounds the size of files read for attachment
const DefaultMaxAttachmentBytes = 20 << 20

var (
	ErrEmptyMessage    = errors.New("message is empty")
	ErrUnknownMode     = errors.New("unknown mode")
	ErrUnsupportedFile = errors.New("only image and video files can be attached")
	ErrFileTooLarge    = errors.New("file is too large")

	ErrMissingImageOptions = errors.New("image generation needs an aspect ratio and a model")
)

// Request is a normalized outbound message
type Request struct {
	Text         string
	Mode         chat.Mode
	ImageOptions *chat.ImageOptions
	Attachment   *chat.Attachment
	VideoURL     string
}

// Message converts the request into a user message
func (r *Request) Message() chat.Message {
	msg := chat.Message{
		Role:     chat.RoleUser,
		Content:  r.Text,
		VideoURL: r.VideoURL,
	}
	if r.Attachment != nil {
		msg.Attachments = []chat.Attachment{*r.Attachment}
	}
	return msg
}

// Config configures a Composer
type Config struct {
	Fs       afero.Fs
	Frames   FrameExtractor
	MaxBytes int64
	Logger   *slog.Logger
}

// Composer collects text, at most one special input and produces Requests.
// It is not safe for concurrent use.
type Composer struct {
	fs       afero.Fs
	frames   FrameExtractor
	maxBytes int64
	logger   *slog.Logger

	staged Staged
}

// New creates a composer
func New(cfg Config) *Composer {
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}
	if cfg.Frames == nil {
		cfg.Frames = FFmpeg{Offset: time.Second}
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxAttachmentBytes
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Composer{
		fs:       cfg.Fs,
		frames:   cfg.Frames,
		maxBytes: cfg.MaxBytes,
		logger:   cfg.Logger.With("component", "composer"),
		staged:   Idle{},
	}
}

// Staged returns the currently staged input
func (c *Composer) Staged() Staged {
	return c.staged
}

// Mode returns the staged mode, or the default mode
func (c *Composer) Mode() chat.Mode {
	if s, ok := c.staged.(ModeStaged); ok {
		return s.Mode
	}
	return chat.ModeDefault
}

// Clear drops any staged input
func (c *Composer) Clear() {
	c.staged = Idle{}
}

// SelectMode stages a special mode, clearing any staged attachment or link.
// Image editing adopts an already staged image as its source.
func (c *Composer) SelectMode(mode chat.Mode, opts *chat.ImageOptions) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}

	prev := c.staged
	switch mode {
	case chat.ModeDefault:
		if _, ok := prev.(ModeStaged); ok {
			c.staged = Idle{}
		}
		return nil
	case chat.ModeImageGeneration:
		var image *chat.ImageOptions
		if opts != nil {
			o := *opts
			image = &o
		}
		c.staged = ModeStaged{Mode: mode, Image: image}
	case chat.ModeImageEdit:
		next := ModeStaged{Mode: mode}
		switch p := prev.(type) {
		case AttachmentStaged:
			if p.Attachment.Kind == chat.AttachmentImage {
				a := p.Attachment
				next.Source = &a
			}
		case ModeStaged:
			next.Source = p.Source
		}
		c.staged = next
	default:
		c.staged = ModeStaged{Mode: mode}
	}
	c.logger.Debug("mode selected", "mode", mode)
	return nil
}

// SetImageOptions updates the options of a staged image generation
func (c *Composer) SetImageOptions(opts chat.ImageOptions) bool {
	s, ok := c.staged.(ModeStaged)
	if !ok || s.Mode != chat.ModeImageGeneration {
		return false
	}
	s.Image = &opts
	c.staged = s
	return true
}

// Attach reads path and stages it. Images pass through, videos are reduced
// to a single frame. While image editing is staged, an image becomes the
// edit source instead of replacing the mode.
func (c *Composer) Attach(ctx context.Context, path string) error {
	f, err := c.fs.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open attachment: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, c.maxBytes+1))
	if err != nil {
		return fmt.Errorf("failed to read attachment: %w", err)
	}
	if int64(len(data)) > c.maxBytes {
		return fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, c.maxBytes)
	}
	return c.AttachBytes(ctx, filepath.Base(path), data)
}

// AttachBytes stages data as an attachment named name
func (c *Composer) AttachBytes(ctx context.Context, name string, data []byte) error {
	att, err := c.process(ctx, name, data)
	if err != nil {
		return err
	}

	if s, ok := c.staged.(ModeStaged); ok && s.Mode == chat.ModeImageEdit && att.Kind == chat.AttachmentImage {
		s.Source = att
		c.staged = s
	} else {
		c.staged = AttachmentStaged{Attachment: *att}
	}
	c.logger.Debug("attachment staged", "name", name, "kind", att.Kind, "mime_type", att.MIMEType, "bytes", len(att.Data))
	return nil
}

func (c *Composer) process(ctx context.Context, name string, data []byte) (*chat.Attachment, error) {
	mt := mimetype.Detect(data)
	mime := mt.String()
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}

	switch {
	case strings.HasPrefix(mime, "image/"):
		return &chat.Attachment{Kind: chat.AttachmentImage, MIMEType: mime, Data: data, Name: name}, nil
	case strings.HasPrefix(mime, "video/"):
		frame, err := c.frames.ExtractFrame(ctx, data)
		if err != nil {
			return nil, fmt.Errorf("failed to extract video frame: %w", err)
		}
		return &chat.Attachment{Kind: chat.AttachmentVideoFrame, MIMEType: "image/jpeg", Data: frame, Name: name}, nil
	default:
		return nil, fmt.Errorf("%w: %s is %s", ErrUnsupportedFile, name, mime)
	}
}

// Observe stages or unstages a video link as text is typed. Links never
// replace an attachment or an image mode.
func (c *Composer) Observe(text string) {
	link, found := chat.FindVideoLink(text)
	switch s := c.staged.(type) {
	case Idle:
		if found {
			c.staged = VideoLinkStaged{URL: link}
		}
	case VideoLinkStaged:
		if !found {
			c.staged = Idle{}
		} else if link != s.URL {
			c.staged = VideoLinkStaged{URL: link}
		}
	case ModeStaged:
		if found && !isImageMode(s.Mode) {
			c.staged = VideoLinkStaged{URL: link}
		}
	}
}

// Build produces a request from text and the staged input, then resets the
// composer to Idle.
func (c *Composer) Build(text string) (*Request, error) {
	text = strings.TrimSpace(text)
	req := &Request{Text: text, Mode: chat.ModeDefault}

	switch s := c.staged.(type) {
	case AttachmentStaged:
		a := s.Attachment
		req.Attachment = &a
	case VideoLinkStaged:
		req.VideoURL = s.URL
		if link, rest, ok := chat.ExtractVideoLink(text); ok && link == s.URL {
			req.Text = rest
		}
	case ModeStaged:
		if s.Mode == chat.ModeImageGeneration && s.Image == nil {
			return nil, ErrMissingImageOptions
		}
		req.Mode = s.Mode
		req.ImageOptions = s.Image
		req.Attachment = s.Source
		if !isImageMode(s.Mode) {
			if link, rest, ok := chat.ExtractVideoLink(text); ok {
				req.Mode = chat.ModeDefault
				req.VideoURL = link
				req.Text = rest
			}
		}
	default:
		if link, rest, ok := chat.ExtractVideoLink(text); ok {
			req.VideoURL = link
			req.Text = rest
		}
	}

	if req.Text == "" && req.Attachment == nil && req.VideoURL == "" {
		return nil, ErrEmptyMessage
	}
	c.staged = Idle{}
	return req, nil
}

func isImageMode(m chat.Mode) bool {
	return m == chat.ModeImageGeneration || m == chat.ModeImageEdit
}
