package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/rag-chatbot/internal/http/response"
	"github.com/yungbote/rag-chatbot/internal/platform/ctxutil"
	"github.com/yungbote/rag-chatbot/internal/platform/logger"
)

// Recovery turns a handler panic into a 500 error envelope.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		if log != nil {
			fields := []interface{}{"panic", recovered, "path", c.Request.URL.Path}
			if td := ctxutil.GetTraceData(c.Request.Context()); td != nil {
				fields = append(fields, "request_id", td.RequestID)
			}
			log.Error("panic recovered", fields...)
		}
		response.RespondError(c, http.StatusInternalServerError, "internal", errors.New("internal server error"))
	})
}
