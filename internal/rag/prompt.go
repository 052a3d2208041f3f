package rag

import (
	"fmt"
	"strings"

	"github.com/yungbote/rag-chatbot/internal/domain"
)

const DefaultAssistantName = "Acme Tech Solutions"

func SystemPrompt(assistantName string) string {
	return fmt.Sprintf("You are a helpful assistant for %s.", nameOrDefault(assistantName))
}

// BuildContext renders matches as "[Source: <file>]\n<text>" blocks separated by blank lines.
func BuildContext(matches []domain.Match) string {
	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		parts = append(parts, fmt.Sprintf("[Source: %s]\n%s", m.SourceFile, m.Text))
	}
	return strings.Join(parts, "\n\n")
}

func BuildUserPrompt(assistantName, context, question string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a helpful assistant for %s. ", nameOrDefault(assistantName))
	b.WriteString("Answer the user's question based on the following context from company documents.\n\n")
	b.WriteString("Context:\n")
	b.WriteString(context)
	b.WriteString("\n\nUser Question: ")
	b.WriteString(question)
	b.WriteString("\n\nInstructions:\n")
	b.WriteString("- Answer based on the provided context\n")
	b.WriteString("- Be helpful and conversational\n")
	b.WriteString("- If the context doesn't contain enough information to answer fully, say so\n")
	b.WriteString("- Do not make up information not present in the context\n\n")
	b.WriteString("Answer:")
	return b.String()
}

// UniqueSources lists match sources once each, in first-seen order.
func UniqueSources(matches []domain.Match) []string {
	out := make([]string, 0, len(matches))
	seen := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		s := strings.TrimSpace(m.SourceFile)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func nameOrDefault(name string) string {
	if strings.TrimSpace(name) == "" {
		return DefaultAssistantName
	}
	return strings.TrimSpace(name)
}
