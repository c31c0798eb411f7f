package gateway

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

var (
	// ErrNoAPIKey indicates the API key is missing
	ErrNoAPIKey = errors.New("API key is required")

	// ErrMissingImageOptions indicates image generation was requested without options
	ErrMissingImageOptions = errors.New("image generation requires an aspect ratio and model")

	// ErrMissingSourceImage indicates an edit was requested without a source image
	ErrMissingSourceImage = errors.New("image editing requires a source image")

	// ErrEmptyPrompt indicates a request carried no usable text
	ErrEmptyPrompt = errors.New("prompt is empty")

	// ErrNoImage indicates the backend returned no image
	ErrNoImage = errors.New("no image returned")

	// ErrUnsupportedImageOption indicates an unknown model or aspect ratio
	ErrUnsupportedImageOption = errors.New("unsupported image option")
)

// PreconditionError is returned before any request is made
type PreconditionError struct {
	Op  string
	Err error
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PreconditionError) Unwrap() error {
	return e.Err
}

// Error wraps a failed backend call. Message holds the upstream error text
// when the backend supplied one.
type Error struct {
	Op      string
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// wrapError converts err into an *Error, extracting the upstream message
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var pre *PreconditionError
	if errors.As(err, &pre) {
		return err
	}
	out := &Error{Op: op, Err: err}
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		out.Code = apiErr.Code
		out.Message = apiErr.Message
	case errors.As(err, &apiErrPtr) && apiErrPtr != nil:
		out.Code = apiErrPtr.Code
		out.Message = apiErrPtr.Message
	}
	return out
}

// UserMessage returns text suitable for showing in place of a failed reply.
// It prefers the upstream message and falls back to fallback.
func UserMessage(err error, fallback string) string {
	var gwErr *Error
	if errors.As(err, &gwErr) && gwErr.Message != "" {
		return gwErr.Message
	}
	var pre *PreconditionError
	if errors.As(err, &pre) && pre.Err != nil {
		msg := pre.Err.Error()
		return strings.ToUpper(msg[:1]) + msg[1:] + "."
	}
	return fallback
}
