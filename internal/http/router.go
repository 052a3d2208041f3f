package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/rag-chatbot/internal/http/handlers"
	httpMW "github.com/yungbote/rag-chatbot/internal/http/middleware"
	"github.com/yungbote/rag-chatbot/internal/observability"
	"github.com/yungbote/rag-chatbot/internal/platform/logger"
	"github.com/yungbote/rag-chatbot/internal/web"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	AllowedOrigins []string
	MaxBodyBytes   int64
	Metrics        *observability.Metrics

	ChatHandler   *httpH.ChatHandler
	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(httpMW.Recovery(cfg.Log))
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.AllowedOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/", cfg.HealthHandler.Root)
		r.GET("/health", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	// Browser client
	r.GET("/chat", web.ChatPage)

	api := r.Group("/api")
	api.Use(httpMW.MaxBodyBytes(cfg.MaxBodyBytes))
	{
		if cfg.ChatHandler != nil {
			api.POST("/chat", cfg.ChatHandler.Chat)
		}
	}

	return r
}
