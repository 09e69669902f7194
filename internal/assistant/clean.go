package assistant

import "strings"

// EchoReply replaces a response that merely repeats the question.
const EchoReply = "I understand your concern. How can I help you with that?"

// leakedMarkers are prompt fragments the model sometimes echoes back; only
// the text after the last occurrence is kept.
var leakedMarkers = []string{"User Question:", "Response:", "Bot: ", "Assistant: ", "User: "}

// maxCleanPasses bounds the fixed-point loop. Every pass either shortens the
// text or returns it unchanged, so the bound is never reached in practice.
const maxCleanPasses = 16

// Clean strips leaked prompt artefacts and echoes of question from a model
// response. It is idempotent: Clean(Clean(x, q), q) == Clean(x, q).
// EchoReply is terminal and never cleaned further.
func Clean(response, question string) string {
	response = strings.TrimSpace(response)
	if response == EchoReply {
		return EchoReply
	}
	for range maxCleanPasses {
		next := cleanOnce(response, question)
		if next == response || next == EchoReply {
			return next
		}
		response = next
	}
	return response
}

func cleanOnce(response, question string) string {
	response = strings.TrimSpace(response)

	for _, marker := range leakedMarkers {
		if i := strings.LastIndex(response, marker); i >= 0 {
			response = strings.TrimSpace(response[i+len(marker):])
		}
	}

	q := strings.TrimSpace(question)
	if q == "" {
		return trimLeadingPunct(response)
	}

	if lines := strings.Split(response, "\n"); len(lines) > 1 &&
		strings.ToLower(strings.TrimSpace(lines[0])) == strings.ToLower(q) {
		response = strings.TrimSpace(strings.Join(lines[1:], "\n"))
	}

	if response == q {
		return EchoReply
	}

	for _, wrapper := range []string{`"` + q + `"`, `'` + q + `'`} {
		response = stripPrefix(response, wrapper)
	}
	for _, prefix := range []string{
		`Based on your question "` + q + `"`,
		`Based on your question '` + q + `'`,
		"For " + q,
		"Your " + q,
		q,
	} {
		response = stripPrefix(response, prefix)
	}
	return trimLeadingPunct(response)
}

func stripPrefix(s, prefix string) string {
	if strings.HasPrefix(s, prefix) {
		return strings.TrimSpace(s[len(prefix):])
	}
	return s
}

func trimLeadingPunct(s string) string {
	for _, lead := range []string{", ", ". ", ": "} {
		s = stripPrefix(s, lead)
	}
	return s
}
