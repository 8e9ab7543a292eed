package chat

import "strings"

// ApplyTemplate substitutes `{{name}}` placeholders in text with the
// corresponding value from values. A placeholder naming a key absent
// from values is left untouched. `$$name` is an escape: it collapses
// to the literal text `$name` without substitution, so prompts can
// talk about template syntax itself.
func ApplyTemplate(text string, values map[string]string) string {
	var b strings.Builder
	i := 0
	for i < len(text) {
		switch {
		case strings.HasPrefix(text[i:], "{{"):
			end := strings.Index(text[i+2:], "}}")
			if end < 0 {
				b.WriteString(text[i:])
				i = len(text)
				continue
			}
			name := text[i+2 : i+2+end]
			if val, ok := values[name]; ok {
				b.WriteString(val)
			} else {
				b.WriteString("{{" + name + "}}")
			}
			i += 2 + end + 2
		case strings.HasPrefix(text[i:], "$$"):
			// Escape: "$$name" collapses to the literal "$name".
			j := i + 2
			for j < len(text) && isIdentByte(text[j]) {
				j++
			}
			b.WriteByte('$')
			b.WriteString(text[i+2 : j])
			i = j
		default:
			b.WriteByte(text[i])
			i++
		}
	}
	return b.String()
}

func isIdentByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
