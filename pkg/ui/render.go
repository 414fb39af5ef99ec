package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/agentchat/pkg/conversation"
	"github.com/rs/zerolog/log"
)

func (m Model) bubbleWidth() int {
	return maxInt(20, m.width*3/4)
}

func (m Model) renderMessages(msgs []conversation.Message) string {
	rendered := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		rendered = append(rendered, m.renderMessage(msg))
	}
	return strings.Join(rendered, "\n\n")
}

func (m Model) renderMessage(msg conversation.Message) string {
	w := m.bubbleWidth()

	switch {
	case msg.IsThinking:
		return agentBubbleStyle.Render(m.spinner.View() + " " + thinkingStyle.Render(ThinkingText))

	case msg.IsUser:
		bubble := userBubbleStyle.MaxWidth(w).Render(wrap(msg.Text, w-2))
		return lipgloss.PlaceHorizontal(m.width, lipgloss.Right, bubble)

	default:
		return agentBubbleStyle.MaxWidth(w).Render(m.renderAgentText(msg.Text, w-4))
	}
}

func (m Model) renderAgentText(text string, width int) string {
	if m.renderer == nil {
		return wrap(text, width)
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		log.Debug().Err(err).Msg("markdown render failed, showing raw text")
		return wrap(text, width)
	}
	return strings.Trim(out, "\n")
}

func wrap(text string, width int) string {
	width = maxInt(1, width)
	if lipgloss.Width(text) <= width {
		return text
	}
	return lipgloss.NewStyle().Width(width).Render(text)
}
