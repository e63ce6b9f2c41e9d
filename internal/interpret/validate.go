package interpret

import (
	"strings"
	"unicode/utf8"
)

// Reason explains why a directive was rejected.
type Reason string

const (
	ReasonEmpty       Reason = "empty"
	ReasonTooLong     Reason = "too long"
	ReasonStockPhrase Reason = "stock phrase"
	ReasonLimit       Reason = "over limit"
)

// Replies the model uses as filler. Matched against the whole description.
var stockPhrases = map[string]bool{
	"yes": true, "no": true, "ok": true, "okay": true, "sure": true,
	"fine": true, "done": true, "none": true, "nothing": true, "n/a": true,
	"hi": true, "hello": true, "hey": true, "greetings": true,
	"good morning": true, "good afternoon": true, "good evening": true, "good night": true,
	"thanks": true, "thank you": true, "you're welcome": true,
	"got it": true, "understood": true, "noted": true, "of course": true,
	"acknowledged": true, "very well": true, "as you wish": true,
}

// Meta instructions addressed to the model rather than tasks for the user.
// Matched as a leading word sequence.
var stockPrefixes = []string{
	"respond to",
	"reply",
	"say",
	"tell",
	"acknowledge",
	"greet",
	"thank",
	"hello",
	"hi",
	"hey",
}

// validate returns the rejection reason for a description, or "".
func validate(text string) Reason {
	text = strings.TrimSpace(text)
	if text == "" {
		return ReasonEmpty
	}
	if utf8.RuneCountInString(text) >= MaxRunes {
		return ReasonTooLong
	}
	if isStockPhrase(text) {
		return ReasonStockPhrase
	}
	return ""
}

func isStockPhrase(text string) bool {
	key := strings.ToLower(strings.TrimSpace(text))
	key = strings.TrimRight(key, ".!?,;: ")
	if stockPhrases[key] {
		return true
	}
	for _, p := range stockPrefixes {
		if key == p || strings.HasPrefix(key, p+" ") || strings.HasPrefix(key, p+",") {
			return true
		}
	}
	return false
}
