package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/yungbote/rag-chatbot/internal/chatui"
	"github.com/yungbote/rag-chatbot/internal/platform/envutil"
)

func main() {
	_ = godotenv.Load()

	var (
		apiURL  string
		timeout time.Duration
	)
	flag.StringVar(&apiURL, "api", envutil.String("CHAT_API_URL", "http://localhost:8000"), "base URL of the chatbot API")
	flag.DurationVar(&timeout, "timeout", 90*time.Second, "per-question timeout")
	flag.Parse()

	client := chatui.NewClient(apiURL, nil)
	p := tea.NewProgram(chatui.NewModel(client, timeout), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "chat: %v\n", err)
		os.Exit(1)
	}
}
