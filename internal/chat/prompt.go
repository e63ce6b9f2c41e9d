package chat

import (
	"fmt"
	"strings"

	"todochat/internal/completion"
	"todochat/internal/task"
)

// Persona is the character the completion service plays.
type Persona struct {
	Name   string
	Prompt string
}

// directiveInstructions teaches the persona the directive format the
// interpret package understands.
const directiveInstructions = `You manage the user's task list. When the user should do something, add it by writing it on its own line as:
TASK: <short description>
Add at most three tasks per reply. Never write TASK: for greetings, acknowledgements or instructions to yourself. Do not add a task that is already on the list.`

// DefaultPersona is used when no persona is configured.
var DefaultPersona = Persona{
	Name: "Makima",
	Prompt: "You are the character Makima from Chainsaw Man. You are calm, polite and completely in control. " +
		"Keep replies short and commanding.",
}

// BuildPrompt assembles the messages for one turn: persona instructions,
// recent history, the task summary and the new user text.
func BuildPrompt(p Persona, history []Message, tasks []task.Task, text string) []completion.Message {
	persona := strings.TrimSpace(p.Prompt)
	if persona == "" {
		persona = DefaultPersona.Prompt
	}

	msgs := make([]completion.Message, 0, len(history)+3)
	msgs = append(msgs, completion.Message{
		Role:    completion.RoleSystem,
		Content: persona + "\n\n" + directiveInstructions,
	})
	for _, m := range history {
		role := completion.RoleUser
		if m.Role == RoleAssistant {
			role = completion.RoleAssistant
		}
		msgs = append(msgs, completion.Message{Role: role, Content: m.Text})
	}
	msgs = append(msgs,
		completion.Message{Role: completion.RoleSystem, Content: TaskSummary(tasks)},
		completion.Message{Role: completion.RoleUser, Content: text},
	)
	return msgs
}

// TaskSummary renders the task list for the prompt.
func TaskSummary(tasks []task.Task) string {
	if len(tasks) == 0 {
		return "The user's task list is empty."
	}
	pending, done := task.Counts(tasks)

	var b strings.Builder
	fmt.Fprintf(&b, "The user's task list (%d pending, %d done):", pending, done)
	for _, t := range tasks {
		marker := "[ ]"
		if t.Completed {
			marker = "[x]"
		}
		fmt.Fprintf(&b, "\n%s %s", marker, t.Text)
	}
	return b.String()
}
