package ai

import (
	"fmt"
	"strings"

	"telegram-link-notifier/internal/domain/ports/adapter"
)

const persona = `You are Flexify, the assistant built into FlexMove's supply chain platform.
Speak as part of FlexMove ("we track shipments..."). Be professional, direct and concise.
Use emojis sparingly for clarity (📦 🚚 ⚠️ ✅ 📊) and give specific numbers when you have them.
Formatting: plain text, bullets with •, no escaped characters, *bold* only sparingly.
Keep replies under 1200 characters; they are shown in a Telegram chat.`

// systemInstruction is shared by every provider.
func systemInstruction(p adapter.Prompt) string {
	var b strings.Builder
	b.WriteString(persona)
	b.WriteString("\n\nUser context:\n")
	if p.UserName != "" {
		fmt.Fprintf(&b, "- Name: %s\n", p.UserName)
	}
	if p.UserID != "" {
		fmt.Fprintf(&b, "- Platform user id: %s\n", p.UserID)
	}
	if !p.LinkedAt.IsZero() {
		fmt.Fprintf(&b, "- Telegram linked since: %s\n", p.LinkedAt.UTC().Format("2006-01-02"))
	}
	b.WriteString("- Channel: Telegram\n")
	return b.String()
}

// userText adds intent-specific framing to the user's question.
func userText(p adapter.Prompt) string {
	switch p.Intent {
	case adapter.IntentTrack:
		return fmt.Sprintf("Shipment id: %s\n\n%s", p.EntityID, p.Text)
	case adapter.IntentStatus:
		return p.Text + "\n\nSummarise by status and call out anything that needs attention."
	case adapter.IntentAlerts:
		return p.Text + "\n\nList each disruption with its impact and a suggested action."
	default:
		return p.Text
	}
}
