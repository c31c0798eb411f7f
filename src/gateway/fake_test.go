package gateway

import (
	"context"
	"iter"

	"google.golang.org/genai"
)

type call struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
	prompt   string
	images   *genai.GenerateImagesConfig
}

// fakeModels records calls and replays canned responses
type fakeModels struct {
	calls []call

	stream    []*genai.GenerateContentResponse
	streamErr error

	content    *genai.GenerateContentResponse
	contentErr error

	images    *genai.GenerateImagesResponse
	imagesErr error
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.calls = append(f.calls, call{model: model, contents: contents, config: config})
	return f.content, f.contentErr
}

func (f *fakeModels) GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error] {
	f.calls = append(f.calls, call{model: model, contents: contents, config: config})
	return func(yield func(*genai.GenerateContentResponse, error) bool) {
		for _, r := range f.stream {
			if !yield(r, nil) {
				return
			}
		}
		if f.streamErr != nil {
			yield(nil, f.streamErr)
		}
	}
}

func (f *fakeModels) GenerateImages(ctx context.Context, model, prompt string, config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error) {
	f.calls = append(f.calls, call{model: model, prompt: prompt, images: config})
	return f.images, f.imagesErr
}

func textChunk(parts ...*genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Role: "model", Parts: parts}}},
	}
}
