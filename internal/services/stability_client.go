package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"

	"github.com/ghibli-paint/backend/internal/config"
)

// Fixed generation parameters for the Stability AI stable-image API.
const (
	stabilityAspectRatio  = "1:1"
	stabilityOutputFormat = "png"
	stabilitySeed         = "42"
	stabilityStrength     = "0.35"

	textToImagePath  = "/generate/core"
	imageToImagePath = "/generate/sd3"

	readChunkSize = 32 * 1024
)

// SourceImage is the user-supplied init image for image-to-image generation.
type SourceImage struct {
	Data        []byte
	ContentType string
	Filename    string
}

// StabilityClient builds multipart requests against the Stability AI API and
// reassembles the streamed binary response into a single buffer. It has no
// side effects beyond the network call.
type StabilityClient struct {
	cfg    *config.Config
	client *http.Client
}

func NewStabilityClient(cfg *config.Config) *StabilityClient {
	return &StabilityClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.StabilityTimeout},
	}
}

// GenerateFromText requests a text-to-image generation and returns the
// complete image bytes.
func (s *StabilityClient) GenerateFromText(ctx context.Context, prompt string) ([]byte, error) {
	return s.generate(ctx, prompt, nil)
}

// GenerateFromImage requests an image-to-image generation seeded with the
// given source image and returns the complete image bytes.
func (s *StabilityClient) GenerateFromImage(ctx context.Context, prompt string, source *SourceImage) ([]byte, error) {
	if source == nil || len(source.Data) == 0 {
		return nil, fmt.Errorf("source image is required for image-to-image generation")
	}
	return s.generate(ctx, prompt, source)
}

// generate builds the multipart body, selects the upstream endpoint by input
// shape and fully reassembles the chunked response before returning.
func (s *StabilityClient) generate(ctx context.Context, prompt string, source *SourceImage) ([]byte, error) {
	enhancedPrompt := s.cfg.StylePromptPrefix + prompt

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	fields := map[string]string{
		"prompt":        enhancedPrompt,
		"aspect_ratio":  stabilityAspectRatio,
		"output_format": stabilityOutputFormat,
		"seed":          stabilitySeed,
	}
	if source != nil {
		fields["strength"] = stabilityStrength
		// the SD3 endpoint requires an explicit mode for image-to-image
		fields["mode"] = "image-to-image"
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, err
		}
	}

	path := textToImagePath
	if source != nil {
		path = imageToImagePath
		filename := source.Filename
		if filename == "" {
			filename = "image.png"
		}
		part, err := writer.CreateFormFile("image", filename)
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(source.Data); err != nil {
			return nil, err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.StabilityAPIUrl+path, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.cfg.StabilityAPIKey)
	req.Header.Set("Accept", "image/*")

	log.Printf("Sending multipart request to Stability AI %s with prompt: %s", path, enhancedPrompt)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &UpstreamTransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(resp.Body)
		return nil, &UpstreamHTTPError{Status: resp.StatusCode, Body: string(errBody)}
	}

	imageBytes, err := reassemble(resp.Body)
	if err != nil {
		return nil, err
	}

	log.Printf("Received image bytes: %d bytes", len(imageBytes))
	return imageBytes, nil
}

// reassemble consumes the response body chunk by chunk and concatenates the
// chunks in arrival order into one contiguous buffer. A stream that
// terminates with zero total bytes is an error.
func reassemble(r io.Reader) ([]byte, error) {
	var buf bytes.Buffer
	chunk := make([]byte, readChunkSize)

	for {
		n, err := r.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &UpstreamTransportError{Err: err}
		}
	}

	if buf.Len() == 0 {
		return nil, ErrUpstreamEmpty
	}
	return buf.Bytes(), nil
}
