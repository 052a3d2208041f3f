package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/rag-chatbot/internal/domain"
	"github.com/yungbote/rag-chatbot/internal/http/response"
	"github.com/yungbote/rag-chatbot/internal/platform/apierr"
	"github.com/yungbote/rag-chatbot/internal/platform/logger"
	"github.com/yungbote/rag-chatbot/internal/rag"
)

// ChatEngine is the part of *rag.Engine the HTTP layer depends on.
type ChatEngine interface {
	State() rag.State
	InitError() error
	Answer(ctx context.Context, question string) (rag.Answer, error)
}

type ChatHandler struct {
	log    *logger.Logger
	engine ChatEngine
}

func NewChatHandler(log *logger.Logger, engine ChatEngine) *ChatHandler {
	return &ChatHandler{log: log.With("handler", "ChatHandler"), engine: engine}
}

type chatReq struct {
	Message *string `json:"message" binding:"required"`
}

const chatFailedMessage = "Sorry, something went wrong while answering. Please try again."

// POST /api/chat
func (h *ChatHandler) Chat(c *gin.Context) {
	if h.engine.State() != rag.StateReady {
		response.RespondAPIError(c, apierr.New(http.StatusServiceUnavailable, "engine_not_ready", rag.ErrNotReady), "")
		return
	}

	var req chatReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", errors.New("request body must be JSON of the form {\"message\": string}"))
		return
	}
	msg := strings.TrimSpace(*req.Message)
	if msg == "" {
		response.RespondError(c, http.StatusBadRequest, "empty_message", errors.New("message must not be empty"))
		return
	}

	ans, err := h.engine.Answer(c.Request.Context(), msg)
	if err != nil {
		_ = c.Error(err)
		switch {
		case errors.Is(err, rag.ErrNotReady):
			response.RespondAPIError(c, apierr.New(http.StatusServiceUnavailable, "engine_not_ready", err), "")
		case errors.Is(err, rag.ErrEmptyQuestion):
			response.RespondError(c, http.StatusBadRequest, "empty_message", err)
		default:
			h.log.Error("chat request failed", "error", err)
			response.RespondAPIError(c, apierr.From(err, "chat_failed"), chatFailedMessage)
		}
		return
	}

	sources := ans.Sources
	if sources == nil {
		sources = []string{}
	}
	response.RespondOK(c, domain.ChatResponse{Response: ans.Response, Sources: sources})
}
