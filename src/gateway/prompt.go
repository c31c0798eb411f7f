package gateway

import (
	"strings"

	"github.com/elee1766/lumen/src/chat"
)

// SystemInstruction composes the system prompt for a turn
func SystemInstruction(settings chat.Settings, route Route) string {
	var b strings.Builder
	b.WriteString(settings.ResolveTone().Instruction)

	if length := settings.OutputLength.Instruction(); length != "" {
		b.WriteString("\n\n")
		b.WriteString(length)
	}

	if memory := strings.TrimSpace(settings.Memory); memory != "" {
		b.WriteString("\n\nThings you remember about the user:\n")
		b.WriteString(memory)
	}

	if route.MemoryTool {
		b.WriteString("\n\nWhen the user shares a lasting fact or preference about themselves, call ")
		b.WriteString(MemoryFunctionName)
		b.WriteString(" with one concise fact. Do not store trivia or anything the user asks you to forget.")
	}

	b.WriteString("\n\nFormat answers in Markdown. Put code in fenced code blocks tagged with their language.")
	return b.String()
}
