package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/rag-chatbot/internal/rag"
)

type EngineStatus interface {
	State() rag.State
	InitError() error
}

type HealthHandler struct {
	engine EngineStatus
}

func NewHealthHandler(engine EngineStatus) *HealthHandler { return &HealthHandler{engine: engine} }

type healthResp struct {
	Status    string `json:"status"`
	RAGEngine string `json:"rag_engine"`
	Error     string `json:"error,omitempty"`
}

// GET /health reports liveness; it answers 200 even while the engine is down.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	resp := healthResp{Status: "healthy", RAGEngine: "not initialized"}
	switch h.engine.State() {
	case rag.StateReady:
		resp.RAGEngine = "initialized"
	case rag.StateFailed:
		resp.RAGEngine = "failed"
		if err := h.engine.InitError(); err != nil {
			resp.Error = err.Error()
		}
	}
	c.JSON(http.StatusOK, resp)
}

// GET /
func (h *HealthHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Acme Tech RAG Chatbot API",
		"status":  "running",
	})
}
