package googletasks

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tasks "google.golang.org/api/tasks/v1"

	"todochat/internal/store"
)

// Document fields this backend understands.
const (
	fieldText      = "text"
	fieldCompleted = "completed"
	fieldOrder     = "order"
	fieldCreatedAt = "createdAt"
)

// metaPrefix starts the notes line holding order and createdAt.
const metaPrefix = "todochat:"

// toFields decodes a Google task into document fields.
func toFields(t *tasks.Task) store.Fields {
	f := store.Fields{
		fieldText:      t.Title,
		fieldCompleted: t.Status == statusCompleted,
	}
	meta, _ := splitNotes(t.Notes)
	if v, ok := meta["order"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			f[fieldOrder] = n
		}
	}
	if v, ok := meta["created"]; ok {
		if ts, err := time.Parse(time.RFC3339Nano, v); err == nil {
			f[fieldCreatedAt] = store.FormatTime(ts)
		}
	}
	return f
}

// fromFields writes fields onto t and returns it. Notes written by people
// are kept; only the metadata line is replaced.
func fromFields(t *tasks.Task, fields store.Fields) *tasks.Task {
	if _, ok := fields[fieldText]; ok {
		t.Title = fields.String(fieldText)
	}
	if _, ok := fields[fieldCompleted]; ok {
		if fields.Bool(fieldCompleted) {
			t.Status = statusCompleted
		} else {
			t.Status = statusNeedsAction
		}
	}

	meta, rest := splitNotes(t.Notes)
	if n, ok := fields.Int(fieldOrder); ok {
		meta["order"] = strconv.Itoa(n)
	}
	if ts, ok := fields.Time(fieldCreatedAt); ok {
		meta["created"] = store.FormatTime(ts)
	}
	t.Notes = joinNotes(meta, rest)
	return t
}

// splitNotes separates the metadata line from the rest of the notes.
func splitNotes(notes string) (map[string]string, string) {
	meta := map[string]string{}
	var rest []string
	for _, line := range strings.Split(notes, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, metaPrefix) {
			rest = append(rest, line)
			continue
		}
		for _, kv := range strings.Fields(strings.TrimPrefix(trimmed, metaPrefix)) {
			k, v, ok := strings.Cut(kv, "=")
			if ok {
				meta[k] = v
			}
		}
	}
	return meta, strings.TrimSpace(strings.Join(rest, "\n"))
}

func joinNotes(meta map[string]string, rest string) string {
	if len(meta) == 0 {
		return rest
	}
	var parts []string
	for _, k := range []string{"order", "created"} {
		if v, ok := meta[k]; ok {
			parts = append(parts, fmt.Sprintf("%s=%s", k, v))
		}
	}
	line := metaPrefix + " " + strings.Join(parts, " ")
	if rest == "" {
		return line
	}
	return rest + "\n" + line
}
