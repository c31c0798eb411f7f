package composer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"
)

// ErrNoFrame indicates no still frame could be extracted from a video
var ErrNoFrame = errors.New("no frame could be extracted from video")

// FrameExtractor reduces a video to one representative JPEG frame
type FrameExtractor interface {
	ExtractFrame(ctx context.Context, video []byte) ([]byte, error)
}

// FFmpeg extracts frames by running the ffmpeg binary
type FFmpeg struct {
	// Path to the ffmpeg binary; looked up on PATH when empty
	Path string
	// Offset into the video of the captured frame
	Offset time.Duration
}

func (f FFmpeg) ExtractFrame(ctx context.Context, video []byte) ([]byte, error) {
	bin := f.Path
	if bin == "" {
		var err error
		bin, err = exec.LookPath("ffmpeg")
		if err != nil {
			return nil, fmt.Errorf("ffmpeg not found: %w", err)
		}
	}

	tmp, err := os.CreateTemp("", "lumen-video-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(video); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}

	frame, err := f.run(ctx, bin, tmp.Name(), f.Offset)
	if err == nil && len(frame) == 0 && f.Offset > 0 {
		// shorter than the offset
		frame, err = f.run(ctx, bin, tmp.Name(), 0)
	}
	if err != nil {
		return nil, err
	}
	if len(frame) == 0 {
		return nil, ErrNoFrame
	}
	return frame, nil
}

func (f FFmpeg) run(ctx context.Context, bin, input string, offset time.Duration) ([]byte, error) {
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-ss", strconv.FormatFloat(offset.Seconds(), 'f', 3, 64),
		"-i", input,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"pipe:1",
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg failed: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}
	return stdout.Bytes(), nil
}
