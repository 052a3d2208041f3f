package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/rag-chatbot/internal/platform/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondAPIError writes an *apierr.Error. A non-empty public message replaces
// the wrapped error text so internals never reach the client.
func RespondAPIError(c *gin.Context, err *apierr.Error, public string) {
	if err == nil {
		RespondError(c, http.StatusInternalServerError, "internal", nil)
		return
	}
	msg := public
	if msg == "" {
		msg = err.Error()
	}
	status := err.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{Error: APIError{Message: msg, Code: err.Code}})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
