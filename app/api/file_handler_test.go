package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"legalrag/app/session"
	"legalrag/loader/extractor"
	"legalrag/store"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUploadApp(gen *fakeGenerator) *fiber.App {
	chat := NewChatHandler(&fakeAssembler{response: "ctx"}, gen, store.NewMemoryStore(3), session.NewStore())

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Post("/api/v1/upload", NewFileHandler(chat).HandleUpload)
	return app
}

func multipartUpload(t *testing.T, filename, contentType, content, history string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)

	if history != "" {
		require.NoError(t, w.WriteField("conversation_history", history))
	}
	require.NoError(t, w.Close())

	return &buf, w.FormDataContentType()
}

func TestHandleUpload_TxtFile(t *testing.T) {
	gen := &fakeGenerator{answer: "This document says hello."}
	app := newUploadApp(gen)

	body, contentType := multipartUpload(t, "notes.txt", "text/plain", "Hello", "")

	req := httptest.NewRequest("POST", "/api/v1/upload", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "Hello", decoded["extracted_text"])
	assert.Equal(t, "This document says hello.", decoded["response"])

	// The extracted text became the latest user turn.
	require.NotEmpty(t, gen.seen)
	assert.Contains(t, gen.seen[len(gen.seen)-1].Content, "Hello")
}

func TestHandleUpload_UnsupportedType(t *testing.T) {
	gen := &fakeGenerator{answer: "ok"}
	app := newUploadApp(gen)

	body, contentType := multipartUpload(t, "image.gif", "image/gif", "GIF89a", "")

	req := httptest.NewRequest("POST", "/api/v1/upload", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, extractor.Unsupported, decoded["extracted_text"])
}

func TestHandleUpload_MalformedHistoryFallsBackToEmpty(t *testing.T) {
	gen := &fakeGenerator{answer: "ok"}
	app := newUploadApp(gen)

	body, contentType := multipartUpload(t, "notes.txt", "text/plain", "Hello", "{not json")

	req := httptest.NewRequest("POST", "/api/v1/upload", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestHandleUpload_MissingFile(t *testing.T) {
	app := newUploadApp(&fakeGenerator{})

	req := httptest.NewRequest("POST", "/api/v1/upload", bytes.NewReader(nil))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
