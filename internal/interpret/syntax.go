package interpret

import (
	"regexp"
	"strings"
)

// Syntax is one of the recognized directive forms. The set is closed and
// tried in the order of Syntaxes.
type Syntax int

const (
	// LineSyntax is "TASK: <description>" running to the end of the line.
	LineSyntax Syntax = iota
	// BracketSyntax is an inline "[CREATE_TASK: <description>]" span.
	BracketSyntax
)

// Syntaxes lists every Syntax in scan order.
var Syntaxes = []Syntax{LineSyntax, BracketSyntax}

// Every pattern captures the directive span as group 1 and the description
// as group 2.
var (
	// The keyword must open a line (after optional indentation or a list
	// marker) or follow sentence-ending punctuation, so prose such as
	// "my only task: obey" and "SUBTASK:" are not directives.
	linePattern    = regexp.MustCompile(`(?im)(?:^[ \t]*|[.!?][ \t]+)((?:[-*][ \t]+)?TASK:[ \t]*([^\n]*))`)
	bracketPattern = regexp.MustCompile(`(?i)(\[CREATE_TASK:[ \t]*([^\]\n]*)\])`)

	// wholeBracket matches a description that is nothing but a bracket
	// directive.
	wholeBracket = regexp.MustCompile(`(?i)^\[CREATE_TASK:[ \t]*([^\]\n]*)\]$`)
)

func (s Syntax) String() string {
	switch s {
	case LineSyntax:
		return "line"
	case BracketSyntax:
		return "bracket"
	default:
		return "unknown"
	}
}

func (s Syntax) pattern() *regexp.Regexp {
	switch s {
	case LineSyntax:
		return linePattern
	case BracketSyntax:
		return bracketPattern
	default:
		return nil
	}
}

// Match is one directive found in a text. Start and End delimit the whole
// matched span, not just the description.
type Match struct {
	Syntax Syntax
	Start  int
	End    int
	Text   string // description, trimmed
}

// Scan returns every directive of this syntax in text, in order. A nil
// result means no match.
func (s Syntax) Scan(text string) []Match {
	re := s.pattern()
	if re == nil {
		return nil
	}
	var matches []Match
	for _, loc := range re.FindAllStringSubmatchIndex(text, -1) {
		desc := strings.TrimSpace(text[loc[4]:loc[5]])
		if s == LineSyntax {
			if sub := wholeBracket.FindStringSubmatch(desc); sub != nil {
				desc = strings.TrimSpace(sub[1])
			}
		}
		matches = append(matches, Match{
			Syntax: s,
			Start:  loc[2],
			End:    loc[3],
			Text:   desc,
		})
	}
	return matches
}

// cutMark stands in for a removed span until collapse runs.
const cutMark = "\x00"

// cut replaces the spans of matches (which must come from text, in order)
// with cutMark.
func cut(text string, matches []Match) string {
	if len(matches) == 0 {
		return text
	}
	var b strings.Builder
	prev := 0
	for _, m := range matches {
		b.WriteString(text[prev:m.Start])
		b.WriteString(cutMark)
		prev = m.End
	}
	b.WriteString(text[prev:])
	return b.String()
}
