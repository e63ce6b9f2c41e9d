// Package interpret extracts task directives from completion replies.
//
// A reply may carry directives in two forms:
//
//	TASK: Learn TypeScript
//	Fine. [CREATE_TASK: Buy milk] Now go.
//
// Interpret returns the accepted task descriptions and the reply with every
// directive removed, ready for display. It does not know the current task
// list; deduplication against live tasks is the caller's job.
package interpret

import "strings"

const (
	// MaxCandidates caps the tasks accepted from one reply.
	MaxCandidates = 3
	// MaxRunes is the exclusive upper bound on a description's length.
	MaxRunes = 200
)

// Result is the outcome of interpreting one reply.
type Result struct {
	DisplayText string
	Candidates  []string
	Rejected    []Rejection
}

// Rejection records a directive that did not become a candidate.
type Rejection struct {
	Text   string
	Syntax Syntax
	Reason Reason
}

// Interpret scans text with every Syntax in order. Line directives are cut
// from the text before bracket directives are scanned, so a span is never
// reported twice. Candidates keep emission order, line form first.
func Interpret(text string) Result {
	rest := text
	var matches []Match
	for _, s := range Syntaxes {
		found := s.Scan(rest)
		if len(found) == 0 {
			continue
		}
		matches = append(matches, found...)
		rest = cut(rest, found)
	}

	if len(matches) == 0 {
		return Result{DisplayText: text}
	}

	res := Result{DisplayText: collapse(rest)}
	for _, m := range matches {
		reason := validate(m.Text)
		if reason == "" && len(res.Candidates) >= MaxCandidates {
			reason = ReasonLimit
		}
		if reason != "" {
			res.Rejected = append(res.Rejected, Rejection{Text: m.Text, Syntax: m.Syntax, Reason: reason})
			continue
		}
		res.Candidates = append(res.Candidates, m.Text)
	}
	return res
}

// collapse drops lines left empty by a cut, squeezes horizontal whitespace
// on every line, reduces runs of blank lines to one and trims the result.
func collapse(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		wasCut := strings.Contains(line, cutMark)
		line = strings.Join(strings.Fields(strings.ReplaceAll(line, cutMark, " ")), " ")
		if line == "" && wasCut {
			continue
		}
		if line == "" {
			if len(out) > 0 && !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}
