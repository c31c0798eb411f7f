package gateway

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/elee1766/lumen/src/chat"
	"google.golang.org/genai"
)

// ImageModels lists the supported image generation models
var ImageModels = []string{
	"imagen-4.0-generate-001",
	"imagen-4.0-fast-generate-001",
	"imagen-4.0-ultra-generate-001",
}

// AspectRatios lists the supported image aspect ratios
var AspectRatios = []string{"1:1", "3:4", "4:3", "9:16", "16:9"}

// DefaultImageOptions returns the options preselected in the composer
func DefaultImageOptions() chat.ImageOptions {
	return chat.ImageOptions{AspectRatio: AspectRatios[0], Model: ImageModels[0]}
}

// ValidateImageOptions checks opts against the supported models and ratios
func ValidateImageOptions(opts *chat.ImageOptions) error {
	if opts == nil || opts.AspectRatio == "" || opts.Model == "" {
		return ErrMissingImageOptions
	}
	if !slices.Contains(ImageModels, opts.Model) {
		return fmt.Errorf("%w: model %q", ErrUnsupportedImageOption, opts.Model)
	}
	if !slices.Contains(AspectRatios, opts.AspectRatio) {
		return fmt.Errorf("%w: aspect ratio %q", ErrUnsupportedImageOption, opts.AspectRatio)
	}
	return nil
}

// Image is a generated or edited image
type Image struct {
	Data     []byte
	MIMEType string
	Text     string
}

// GenerateImage renders prompt with the model and aspect ratio in opts
func (c *Client) GenerateImage(ctx context.Context, prompt string, opts *chat.ImageOptions) (*Image, error) {
	if err := ValidateImageOptions(opts); err != nil {
		return nil, &PreconditionError{Op: "generate image", Err: err}
	}
	if strings.TrimSpace(prompt) == "" {
		return nil, &PreconditionError{Op: "generate image", Err: ErrEmptyPrompt}
	}

	c.logger.Debug("generating image", "model", opts.Model, "aspect_ratio", opts.AspectRatio)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.models.GenerateImages(ctx, opts.Model, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		AspectRatio:    opts.AspectRatio,
		OutputMIMEType: "image/png",
	})
	if err != nil {
		c.logger.Error("image generation failed", "model", opts.Model, "error", err)
		return nil, wrapError("generate image", err)
	}
	if resp != nil {
		for _, gen := range resp.GeneratedImages {
			if gen == nil || gen.Image == nil || len(gen.Image.ImageBytes) == 0 {
				continue
			}
			mime := gen.Image.MIMEType
			if mime == "" {
				mime = "image/png"
			}
			return &Image{Data: gen.Image.ImageBytes, MIMEType: mime}, nil
		}
	}
	return nil, &Error{Op: "generate image", Err: ErrNoImage, Message: "The image could not be generated. Try rephrasing the prompt."}
}

// EditImage applies instruction to the source image
func (c *Client) EditImage(ctx context.Context, source []byte, mimeType, instruction string) (*Image, error) {
	if len(source) == 0 {
		return nil, &PreconditionError{Op: "edit image", Err: ErrMissingSourceImage}
	}
	if strings.TrimSpace(instruction) == "" {
		return nil, &PreconditionError{Op: "edit image", Err: ErrEmptyPrompt}
	}

	model := c.names.ImageEdit
	c.logger.Debug("editing image", "model", model, "mime_type", mimeType, "bytes", len(source))

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	contents := []*genai.Content{{
		Role: string(genai.RoleUser),
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{Data: source, MIMEType: mimeType}},
			{Text: instruction},
		},
	}}
	resp, err := c.models.GenerateContent(ctx, model, contents, &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE", "TEXT"},
	})
	if err != nil {
		c.logger.Error("image edit failed", "model", model, "error", err)
		return nil, wrapError("edit image", err)
	}

	var text strings.Builder
	if resp != nil {
		for _, cand := range resp.Candidates {
			if cand == nil || cand.Content == nil {
				continue
			}
			for _, part := range cand.Content.Parts {
				if part == nil {
					continue
				}
				if part.InlineData != nil && len(part.InlineData.Data) > 0 {
					return &Image{Data: part.InlineData.Data, MIMEType: part.InlineData.MIMEType, Text: strings.TrimSpace(text.String())}, nil
				}
				if part.Text != "" && !part.Thought {
					text.WriteString(part.Text)
				}
			}
		}
	}

	msg := "The model did not return an edited image."
	if t := strings.TrimSpace(text.String()); t != "" {
		msg = t
	}
	return nil, &Error{Op: "edit image", Err: ErrNoImage, Message: msg}
}
