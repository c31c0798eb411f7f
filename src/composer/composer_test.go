package composer

import (
	"context"
	"errors"
	"testing"

	"github.com/elee1766/lumen/src/chat"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")
	mp4Bytes = append([]byte("\x00\x00\x00\x18ftypmp42\x00\x00\x00\x00mp42isom"), make([]byte, 64)...)
)

type fakeFrames struct {
	calls int
	frame []byte
	err   error
}

func (f *fakeFrames) ExtractFrame(ctx context.Context, video []byte) ([]byte, error) {
	f.calls++
	return f.frame, f.err
}

func newTestComposer(t *testing.T) (*Composer, *fakeFrames) {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/tmp/cat.png", pngBytes, 0644))
	require.NoError(t, afero.WriteFile(fs, "/tmp/clip.mp4", mp4Bytes, 0644))
	require.NoError(t, afero.WriteFile(fs, "/tmp/notes.txt", []byte("just text"), 0644))
	frames := &fakeFrames{frame: []byte("jpeg-frame")}
	return New(Config{Fs: fs, Frames: frames, MaxBytes: 1024}), frames
}

func TestAttachImage(t *testing.T) {
	c, frames := newTestComposer(t)
	require.NoError(t, c.Attach(context.Background(), "/tmp/cat.png"))

	s, ok := c.Staged().(AttachmentStaged)
	require.True(t, ok)
	assert.Equal(t, chat.AttachmentImage, s.Attachment.Kind)
	assert.Equal(t, "image/png", s.Attachment.MIMEType)
	assert.Equal(t, "cat.png", s.Attachment.Name)
	assert.Zero(t, frames.calls)
}

func TestAttachVideoReducesToFrame(t *testing.T) {
	c, frames := newTestComposer(t)
	require.NoError(t, c.Attach(context.Background(), "/tmp/clip.mp4"))

	s, ok := c.Staged().(AttachmentStaged)
	require.True(t, ok)
	assert.Equal(t, chat.AttachmentVideoFrame, s.Attachment.Kind)
	assert.Equal(t, "image/jpeg", s.Attachment.MIMEType)
	assert.Equal(t, []byte("jpeg-frame"), s.Attachment.Data)
	assert.Equal(t, 1, frames.calls)
}

func TestAttachErrors(t *testing.T) {
	c, frames := newTestComposer(t)

	err := c.Attach(context.Background(), "/tmp/notes.txt")
	assert.ErrorIs(t, err, ErrUnsupportedFile)

	frames.err = ErrNoFrame
	err = c.Attach(context.Background(), "/tmp/clip.mp4")
	assert.ErrorIs(t, err, ErrNoFrame)

	err = c.Attach(context.Background(), "/tmp/missing.png")
	assert.Error(t, err)

	big := New(Config{Fs: afero.NewMemMapFs(), MaxBytes: 4})
	require.NoError(t, afero.WriteFile(big.fs, "/big.png", pngBytes, 0644))
	assert.ErrorIs(t, big.Attach(context.Background(), "/big.png"), ErrFileTooLarge)

	_, idle := c.Staged().(Idle)
	assert.True(t, idle, "failed attachments must not change staged input")
}

func TestMutualExclusion(t *testing.T) {
	c, _ := newTestComposer(t)
	ctx := context.Background()

	require.NoError(t, c.Attach(ctx, "/tmp/cat.png"))
	require.NoError(t, c.SelectMode(chat.ModeGoogleSearch, nil))
	assert.Equal(t, ModeStaged{Mode: chat.ModeGoogleSearch}, c.Staged())

	require.NoError(t, c.Attach(ctx, "/tmp/cat.png"))
	_, ok := c.Staged().(AttachmentStaged)
	assert.True(t, ok, "attaching replaces the mode")

	c.Clear()
	c.Observe("look https://youtu.be/dQw4w9WgXcQ")
	assert.Equal(t, VideoLinkStaged{URL: "https://youtu.be/dQw4w9WgXcQ"}, c.Staged())

	require.NoError(t, c.SelectMode(chat.ModeCoding, nil))
	assert.Equal(t, chat.ModeCoding, c.Mode())

	require.NoError(t, c.Attach(ctx, "/tmp/cat.png"))
	c.Observe("look https://youtu.be/dQw4w9WgXcQ")
	_, ok = c.Staged().(AttachmentStaged)
	assert.True(t, ok, "links never replace an attachment")
}

func TestImageEditKeepsSource(t *testing.T) {
	c, _ := newTestComposer(t)
	ctx := context.Background()

	require.NoError(t, c.Attach(ctx, "/tmp/cat.png"))
	require.NoError(t, c.SelectMode(chat.ModeImageEdit, nil))
	s, ok := c.Staged().(ModeStaged)
	require.True(t, ok)
	require.NotNil(t, s.Source)
	assert.Equal(t, "cat.png", s.Source.Name)

	c.Clear()
	require.NoError(t, c.SelectMode(chat.ModeImageEdit, nil))
	require.NoError(t, c.Attach(ctx, "/tmp/cat.png"))
	s, ok = c.Staged().(ModeStaged)
	require.True(t, ok, "image attached during edit stays in edit mode")
	assert.NotNil(t, s.Source)

	req, err := c.Build("make the sky purple")
	require.NoError(t, err)
	assert.Equal(t, chat.ModeImageEdit, req.Mode)
	require.NotNil(t, req.Attachment)
	assert.Equal(t, "cat.png", req.Attachment.Name)
}

func TestSelectMode(t *testing.T) {
	c, _ := newTestComposer(t)

	assert.ErrorIs(t, c.SelectMode("bogus", nil), ErrUnknownMode)

	opts := &chat.ImageOptions{AspectRatio: "16:9", Model: "imagen-4.0-generate-001"}
	require.NoError(t, c.SelectMode(chat.ModeImageGeneration, opts))
	opts.AspectRatio = "1:1"
	s := c.Staged().(ModeStaged)
	assert.Equal(t, "16:9", s.Image.AspectRatio, "options are copied")

	assert.True(t, c.SetImageOptions(chat.ImageOptions{AspectRatio: "9:16", Model: "imagen-4.0-generate-001"}))
	assert.Equal(t, "9:16", c.Staged().(ModeStaged).Image.AspectRatio)

	require.NoError(t, c.SelectMode(chat.ModeDefault, nil))
	assert.Equal(t, Idle{}, c.Staged())
	assert.False(t, c.SetImageOptions(chat.ImageOptions{}))
}

func TestBuild(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, c *Composer)
		text  string
		want  *Request
		err   error
	}{
		{
			name: "plain text is trimmed",
			text: "  hello  ",
			want: &Request{Text: "hello"},
		},
		{
			name: "link extracted from idle text",
			text: "summarize https://youtu.be/dQw4w9WgXcQ please",
			want: &Request{Text: "summarize please", VideoURL: "https://youtu.be/dQw4w9WgXcQ"},
		},
		{
			name: "link wins over search mode",
			setup: func(t *testing.T, c *Composer) {
				require.NoError(t, c.SelectMode(chat.ModeGoogleSearch, nil))
			},
			text: "https://youtu.be/dQw4w9WgXcQ",
			want: &Request{Text: "", VideoURL: "https://youtu.be/dQw4w9WgXcQ"},
		},
		{
			name: "link stays in image prompt",
			setup: func(t *testing.T, c *Composer) {
				require.NoError(t, c.SelectMode(chat.ModeImageGeneration, &chat.ImageOptions{AspectRatio: "1:1", Model: "m"}))
			},
			text: "poster for https://youtu.be/dQw4w9WgXcQ",
			want: &Request{
				Text:         "poster for https://youtu.be/dQw4w9WgXcQ",
				Mode:         chat.ModeImageGeneration,
				ImageOptions: &chat.ImageOptions{AspectRatio: "1:1", Model: "m"},
			},
		},
		{
			name: "link cut from multiline text",
			text: "summarize https://youtu.be/dQw4w9WgXcQ\n\n```go\nfunc main() {\n\tx := 1\n}\n```",
			want: &Request{
				Text:     "summarize\n\n```go\nfunc main() {\n\tx := 1\n}\n```",
				VideoURL: "https://youtu.be/dQw4w9WgXcQ",
			},
		},
		{
			name: "image generation without options",
			setup: func(t *testing.T, c *Composer) {
				require.NoError(t, c.SelectMode(chat.ModeImageGeneration, nil))
			},
			text: "a cat",
			err:  ErrMissingImageOptions,
		},
		{
			name: "empty",
			text: "   ",
			err:  ErrEmptyMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestComposer(t)
			if tt.setup != nil {
				tt.setup(t, c)
			}
			got, err := c.Build(tt.text)
			if tt.err != nil {
				assert.True(t, errors.Is(err, tt.err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, Idle{}, c.Staged())
		})
	}
}

func TestBuildAttachmentOnly(t *testing.T) {
	c, _ := newTestComposer(t)
	require.NoError(t, c.Attach(context.Background(), "/tmp/cat.png"))

	req, err := c.Build("")
	require.NoError(t, err)
	require.NotNil(t, req.Attachment)

	msg := req.Message()
	assert.Equal(t, chat.RoleUser, msg.Role)
	assert.Len(t, msg.Attachments, 1)
}
