package openai

import "strings"

// cleanResponse strips the decoration models like to wrap short answers in:
// markdown code fences, a leading "Answer:" label, and matching outer quotes.
func cleanResponse(s string) string {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "```"); ok {
		// Drop the language tag, if any, up to the end of the opening line.
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 && !strings.ContainsAny(strings.TrimSpace(rest[:nl]), " \t") {
			rest = rest[nl+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(rest), "```")
	}
	s = strings.TrimSpace(s)

	if lower := strings.ToLower(s); strings.HasPrefix(lower, "answer:") {
		s = strings.TrimSpace(s[len("answer:"):])
	}

	for _, q := range []string{`"`, "'", "“"} {
		closing := q
		if q == "“" {
			closing = "”"
		}
		if len(s) >= len(q)+len(closing) && strings.HasPrefix(s, q) && strings.HasSuffix(s, closing) {
			s = strings.TrimSpace(s[len(q) : len(s)-len(closing)])
			break
		}
	}
	return s
}
