package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"sage/internal/styles"
	"sage/sdk/chat"
)

// renderMessage renders one conversation message with the given width.
// streaming marks the message currently receiving fragments.
func renderMessage(msg chat.Message, width int, streaming bool) string {
	var sb strings.Builder

	switch {
	case msg.IsUser():
		sb.WriteString(styles.UserLabel.Render("You"))
	case msg.IsRegenerating:
		sb.WriteString(styles.AssistantLabel.Render("Sage"))
		sb.WriteString(styles.PendingLabel.Render(" (regenerating)"))
	default:
		sb.WriteString(styles.AssistantLabel.Render("Sage"))
	}
	if msg.Failed {
		sb.WriteString(" ")
		sb.WriteString(styles.FailedLabel.Render("✗ failed"))
	}
	if msg.FeedbackType == chat.FeedbackLike {
		sb.WriteString(" ")
		sb.WriteString(styles.FeedbackMark.Render("👍"))
	} else if msg.FeedbackType == chat.FeedbackDislike {
		sb.WriteString(" ")
		sb.WriteString(styles.FeedbackMark.Render("👎"))
	}
	sb.WriteString("\n")

	content := msg.Content
	if msg.IsAssistant() && content != "" && !streaming {
		// Markdown rendering only once the answer is complete; partial
		// markdown renders badly.
		if rendered, err := renderMarkdown(content, width-4); err == nil {
			content = strings.TrimSpace(rendered)
		}
	}
	if streaming {
		content += styles.StreamingCursor.Render("▊")
	}

	switch {
	case msg.IsUser():
		sb.WriteString(styles.UserMessage.Width(width - 2).Render(content))
	default:
		sb.WriteString(styles.AssistantMessage.Width(width - 2).Render(content))
	}

	if len(msg.Attachments) > 0 {
		sb.WriteString("\n")
		sb.WriteString(renderAttachments(msg.Attachments))
	}
	if len(msg.Sources) > 0 && !streaming {
		sb.WriteString("\n")
		sb.WriteString(renderSources(msg.Sources))
	}

	return sb.String()
}

// renderSources renders the citation block under an assistant message.
func renderSources(sources []chat.Source) string {
	var sb strings.Builder
	sb.WriteString(styles.SourceTitle.Render("Sources"))
	for i, src := range sources {
		sb.WriteString("\n")
		line := fmt.Sprintf("[%d] %s", i+1, src.Title)
		if src.SourceName != "" {
			line += " — " + src.SourceName
		}
		sb.WriteString(styles.SourceDetail.Render(line))
		if src.URL != "" {
			sb.WriteString("\n")
			sb.WriteString(styles.SourceDetail.Render("    " + src.URL))
		}
	}
	return sb.String()
}

// renderAttachments renders the file list under a user message.
func renderAttachments(attachments []chat.Attachment) string {
	var names []string
	for _, att := range attachments {
		name := att.Filename
		if name == "" {
			name = att.ID
		}
		names = append(names, name)
	}
	return styles.SourceDetail.Render("📎 " + strings.Join(names, ", "))
}

// renderMarkdown renders markdown content for the terminal.
func renderMarkdown(content string, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content, err
	}
	return r.Render(content)
}
