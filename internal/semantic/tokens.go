package semantic

import "strings"

// tokenize splits text into lowercased word tokens with byte offsets and
// 1-based line numbers. Words are maximal runs of letters, digits, and
// underscores.
func tokenize(text string) ([]Token, int) {
	var tokens []Token
	line := 1
	start := -1
	for i := 0; i < len(text); i++ {
		c := text[i]
		if isWordByte(c) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			tokens = append(tokens, Token{
				Text:   strings.ToLower(text[start:i]),
				Offset: start,
				Line:   line,
			})
			start = -1
		}
		if c == '\n' {
			line++
		}
	}
	if start >= 0 {
		tokens = append(tokens, Token{
			Text:   strings.ToLower(text[start:]),
			Offset: start,
			Line:   line,
		})
	}
	if len(text) == 0 {
		return tokens, 0
	}
	lines := strings.Count(text, "\n") + 1
	return tokens, lines
}

func isWordByte(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}
