package handler

import (
	"net/http"

	"core/internal/model"
	"core/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ChatHandler handles assistant chat HTTP requests
type ChatHandler struct {
	assistant *service.Assistant
}

// NewChatHandler creates a new chat handler
func NewChatHandler(assistant *service.Assistant) *ChatHandler {
	return &ChatHandler{assistant: assistant}
}

// Chat handles POST /api/v1/chat
func (h *ChatHandler) Chat(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	// Generate a fresh opaque session id when the caller has none yet
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	response := h.assistant.Respond(c.Request.Context(), req.Message, sessionID)
	c.JSON(http.StatusOK, response)
}
