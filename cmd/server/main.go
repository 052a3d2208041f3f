package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/yungbote/rag-chatbot/internal/app"
	"github.com/yungbote/rag-chatbot/internal/config"
	"github.com/yungbote/rag-chatbot/internal/platform/logger"
	"github.com/yungbote/rag-chatbot/internal/platform/shutdown"
)

func main() {
	_ = godotenv.Load()

	log, err := logger.New(os.Getenv("LOG_MODE"))
	if err != nil {
		fmt.Printf("failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Error("invalid configuration", "error", err)
		log.Sync()
		os.Exit(1)
	}

	a, err := app.New(log, cfg)
	if err != nil {
		log.Error("failed to initialize app", "error", err)
		log.Sync()
		os.Exit(1)
	}
	if err := run(a); err != nil {
		log.Error("server exited", "error", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(a *app.App) error {
	defer a.Close()
	ctx, stop := shutdown.NotifyContext(context.Background())
	defer stop()
	return a.Run(ctx)
}
