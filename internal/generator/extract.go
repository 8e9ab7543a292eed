package generator

import "strings"

// ExtractCode pulls a fenced code block out of an LLM reply: find the
// first "```", skip to the next newline (past the language tag), find
// the *last* "```" in the remainder, and return everything between —
// excluding the single character immediately preceding the closing
// fence (normally the newline ending the code block's last line). If
// either fence is missing, or the computed bounds are inconsistent,
// the reply is returned unchanged: this is a deliberately forgiving
// heuristic, not a strict parser, since LLM replies are not guaranteed
// to be well-formed markdown.
func ExtractCode(reply string) string {
	start := strings.Index(reply, "```")
	if start < 0 {
		return reply
	}
	afterFirstFence := start + 3
	nl := strings.Index(reply[afterFirstFence:], "\n")
	if nl < 0 {
		return reply
	}
	codeStart := afterFirstFence + nl + 1

	lastFence := strings.LastIndex(reply, "```")
	codeEnd := lastFence - 1

	if codeStart > codeEnd || lastFence < codeStart {
		return reply
	}
	return reply[codeStart:codeEnd]
}
