package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ghibli-paint/backend/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClientConfig(baseURL string) *config.Config {
	return &config.Config{
		StabilityAPIKey:   "test-key",
		StabilityAPIUrl:   baseURL,
		StabilityTimeout:  5 * time.Second,
		StylePromptPrefix: "Studio Ghibli style, anime, ",
	}
}

// chunkReader yields each chunk in its own Read call, in order.
type chunkReader struct {
	chunks [][]byte
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	if n < len(r.chunks[0]) {
		r.chunks[0] = r.chunks[0][n:]
	} else {
		r.chunks = r.chunks[1:]
	}
	return n, nil
}

func randomChunk(n int) []byte {
	b := make([]byte, n)
	rand.Read(b)
	return b
}

func TestReassembleConcatenatesChunksInOrder(t *testing.T) {
	cases := [][]int{
		{1},
		{100, 250, 150},
		{readChunkSize, 1, readChunkSize * 2},
		{7, 0, 13, 64 * 1024},
	}

	for _, sizes := range cases {
		chunks := make([][]byte, len(sizes))
		var want []byte
		for i, size := range sizes {
			chunks[i] = randomChunk(size)
			want = append(want, chunks[i]...)
		}

		got, err := reassemble(&chunkReader{chunks: chunks})
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Len(t, got, len(want))
	}
}

func TestReassembleEmptyStream(t *testing.T) {
	_, err := reassemble(bytes.NewReader(nil))
	assert.ErrorIs(t, err, ErrUpstreamEmpty)
}

func TestGenerateFromTextStreamedResponse(t *testing.T) {
	chunks := [][]byte{randomChunk(100), randomChunk(250), randomChunk(150)}
	var want []byte
	for _, c := range chunks {
		want = append(want, c...)
	}

	var gotPath string
	var gotPrompt, gotAspect, gotFormat, gotSeed string
	var gotAuth, gotAccept string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")

		require.NoError(t, r.ParseMultipartForm(10<<20))
		gotPrompt = r.FormValue("prompt")
		gotAspect = r.FormValue("aspect_ratio")
		gotFormat = r.FormValue("output_format")
		gotSeed = r.FormValue("seed")

		flusher := w.(http.Flusher)
		w.Header().Set("Content-Type", "image/png")
		w.WriteHeader(http.StatusOK)
		for _, chunk := range chunks {
			w.Write(chunk)
			flusher.Flush()
		}
	}))
	defer server.Close()

	client := NewStabilityClient(testClientConfig(server.URL))
	got, err := client.GenerateFromText(context.Background(), "a cat")
	require.NoError(t, err)

	assert.Equal(t, want, got)
	assert.Len(t, got, 500)

	assert.Equal(t, "/generate/core", gotPath)
	assert.Equal(t, "Studio Ghibli style, anime, a cat", gotPrompt)
	assert.Equal(t, "1:1", gotAspect)
	assert.Equal(t, "png", gotFormat)
	assert.Equal(t, "42", gotSeed)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "image/*", gotAccept)
}

func TestGenerateFromImageUsesImageToImageRoute(t *testing.T) {
	sourceData := randomChunk(64)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/generate/sd3", r.URL.Path)

		require.NoError(t, r.ParseMultipartForm(10<<20))
		assert.Equal(t, "image-to-image", r.FormValue("mode"))
		assert.Equal(t, "0.35", r.FormValue("strength"))
		assert.Equal(t, "Studio Ghibli style, anime, a dog", r.FormValue("prompt"))

		file, header, err := r.FormFile("image")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "photo.png", header.Filename)
		uploaded, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, sourceData, uploaded)

		w.Write([]byte("result-bytes"))
	}))
	defer server.Close()

	client := NewStabilityClient(testClientConfig(server.URL))
	got, err := client.GenerateFromImage(context.Background(), "a dog", &SourceImage{
		Data:        sourceData,
		ContentType: "image/png",
		Filename:    "photo.png",
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("result-bytes"), got)
}

func TestGenerateFromImageRequiresSource(t *testing.T) {
	client := NewStabilityClient(testClientConfig("http://127.0.0.1:0"))
	_, err := client.GenerateFromImage(context.Background(), "a dog", nil)
	assert.Error(t, err)

	_, err = client.GenerateFromImage(context.Background(), "a dog", &SourceImage{})
	assert.Error(t, err)
}

func TestGenerateFromTextUpstreamHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"errors":["rate limit exceeded"]}`))
	}))
	defer server.Close()

	client := NewStabilityClient(testClientConfig(server.URL))
	_, err := client.GenerateFromText(context.Background(), "a cat")

	var httpErr *UpstreamHTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusTooManyRequests, httpErr.Status)
	assert.Equal(t, `{"errors":["rate limit exceeded"]}`, httpErr.Body)
	assert.True(t, IsUpstreamError(err))
}

func TestGenerateFromTextEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewStabilityClient(testClientConfig(server.URL))
	_, err := client.GenerateFromText(context.Background(), "a cat")
	assert.ErrorIs(t, err, ErrUpstreamEmpty)
	assert.True(t, IsUpstreamError(err))
}

func TestGenerateFromTextTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused

	client := NewStabilityClient(testClientConfig(server.URL))
	_, err := client.GenerateFromText(context.Background(), "a cat")

	var transportErr *UpstreamTransportError
	assert.True(t, errors.As(err, &transportErr))
	assert.True(t, IsUpstreamError(err))
}
