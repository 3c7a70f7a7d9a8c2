package api

import (
	"encoding/json"
	"os"
	"path/filepath"

	"legalrag/loader/extractor"
	"legalrag/types"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type FileHandler struct {
	chat *ChatHandler
}

func NewFileHandler(chat *ChatHandler) *FileHandler {
	return &FileHandler{
		chat: chat,
	}
}

// HandleUpload extracts text from an uploaded document, appends it as a user
// turn to the optional conversation_history form field and runs the chat
// pipeline. The response carries both the extracted text and the reply.
func (h *FileHandler) HandleUpload(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return ErrBadRequest()
	}
	if fileHeader.Filename == "" {
		return ErrBadRequest()
	}

	// A malformed history field falls back to an empty history rather than
	// rejecting the upload.
	var history []types.Message
	if raw := c.FormValue("conversation_history"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &history); err != nil {
			history = nil
		}
	}

	tmpPath := filepath.Join(os.TempDir(), uuid.NewString()+filepath.Ext(fileHeader.Filename))
	if err := c.SaveFile(fileHeader, tmpPath); err != nil {
		return err
	}
	defer os.Remove(tmpPath)

	data, err := os.ReadFile(tmpPath)
	if err != nil {
		return err
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = extractor.MimeForPath(fileHeader.Filename)
	}

	text, err := extractor.Extract(data, mimeType)
	if err != nil {
		return NewError(fiber.StatusUnprocessableEntity, "failed to extract text: "+err.Error())
	}

	history = append(history, types.Message{Role: types.RoleUser, Content: text})

	answer, err := h.chat.respond(c.Context(), history)
	if err != nil {
		return err
	}

	return c.JSON(types.UploadResponse{
		ExtractedText: text,
		Response:      answer,
	})
}
