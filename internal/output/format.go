// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"

	"todochat/internal/chat"
	"todochat/internal/task"
)

// UserLabel prefixes the user's own messages in a transcript.
const UserLabel = "you"

// FormatTask formats a task line.
// Format: "{N:>4}  [ ] {TEXT}\n", with [x] for completed tasks.
func FormatTask(w io.Writer, num int, t task.Task) {
	box := "[ ]"
	if t.Completed {
		box = "[x]"
	}
	fmt.Fprintf(w, "%4d  %s %s\n", num, box, normalizeText(t.Text))
}

// FormatAdded formats a task created from a reply.
func FormatAdded(w io.Writer, t task.Task) {
	fmt.Fprintf(w, "+ %s\n", normalizeText(t.Text))
}

// FormatReply formats a labelled message. Continuation lines are indented
// under the text.
func FormatReply(w io.Writer, label, text string) {
	prefix := label + ": "
	indent := strings.Repeat(" ", len(prefix))
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	for i, line := range lines {
		if i == 0 {
			fmt.Fprintf(w, "%s%s\n", prefix, line)
			continue
		}
		if strings.TrimSpace(line) == "" {
			fmt.Fprintln(w)
			continue
		}
		fmt.Fprintf(w, "%s%s\n", indent, line)
	}
}

// FormatMessage formats one transcript entry. System messages are marked
// with "!" so failures stand out.
func FormatMessage(w io.Writer, m chat.Message, persona string) {
	switch m.Role {
	case chat.RoleUser:
		FormatReply(w, UserLabel, m.Text)
	case chat.RoleSystem:
		FormatReply(w, "!", m.Text)
	default:
		FormatReply(w, persona, m.Text)
	}
}

// normalizeText normalizes task text for display.
// Empty or whitespace-only text becomes "(untitled)"; newlines become spaces.
func normalizeText(text string) string {
	text = strings.NewReplacer("\r", " ", "\n", " ").Replace(text)
	if strings.TrimSpace(text) == "" {
		return "(untitled)"
	}
	return text
}
