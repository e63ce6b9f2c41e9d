package telemetry

import (
	"io"
	"regexp"
)

const redacted = "[REDACTED]"

var redactPatterns = []struct {
	re   *regexp.Regexp
	repl string
}{
	// key=value and key="quoted value" (text and logfmt output)
	{regexp.MustCompile(`(?i)\b([\w.-]*(?:token|secret|password|authorization|api_key|apikey)[\w.-]*)=("(?:[^"\\]|\\.)*"|\S+)`), `$1=` + redacted},
	// "key":"value" (json output)
	{regexp.MustCompile(`(?i)("[\w.-]*(?:token|secret|password|authorization|api_key|apikey)[\w.-]*"\s*:\s*)"(?:[^"\\]|\\.)*"`), `$1"` + redacted + `"`},
	{regexp.MustCompile(`(?i)\bbearer\s+[\w.~+/=-]+`), "Bearer " + redacted},
	// Groq and OpenAI style keys
	{regexp.MustCompile(`\b(?:gsk|sk)-?_?[A-Za-z0-9]{20,}\b`), redacted},
}

// Redact masks secret-looking values in s.
func Redact(s string) string {
	for _, p := range redactPatterns {
		s = p.re.ReplaceAllString(s, p.repl)
	}
	return s
}

// redactWriter applies Redact to every write. The logger writes one
// formatted entry per call.
type redactWriter struct {
	w io.Writer
}

func (r *redactWriter) Write(p []byte) (int, error) {
	out := Redact(string(p))
	if _, err := io.WriteString(r.w, out); err != nil {
		return 0, err
	}
	return len(p), nil
}
