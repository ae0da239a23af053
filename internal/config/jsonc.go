package config

import (
	"errors"
	"strings"
)

// normalizeJSONC blanks out comments and drops trailing commas so encoding/json can
// decode the result. Offsets and line breaks are preserved for error reporting.
func normalizeJSONC(content string) (string, error) {
	withoutComments, err := blankComments(content)
	if err != nil {
		return "", err
	}
	return dropTrailingCommas(withoutComments), nil
}

func blankComments(content string) (string, error) {
	out := []byte(content)
	s := jsonScanner{}

	for i := 0; i < len(out); i++ {
		if s.step(out[i]) {
			continue
		}
		if out[i] != '/' || i+1 >= len(out) {
			continue
		}

		switch out[i+1] {
		case '/':
			for i < len(out) && out[i] != '\n' && out[i] != '\r' {
				out[i] = ' '
				i++
			}
		case '*':
			end := strings.Index(content[i+2:], "*/")
			if end < 0 {
				return "", errors.New("unterminated block comment in JSONC")
			}
			stop := i + 2 + end + 2
			for ; i < stop; i++ {
				if out[i] != '\n' && out[i] != '\r' && out[i] != '\t' {
					out[i] = ' '
				}
			}
			i--
		}
	}

	return string(out), nil
}

func dropTrailingCommas(content string) string {
	var out strings.Builder
	out.Grow(len(content))
	s := jsonScanner{}

	for i := 0; i < len(content); i++ {
		ch := content[i]
		if !s.step(ch) && ch == ',' {
			j := i + 1
			for j < len(content) && isJSONWhitespace(content[j]) {
				j++
			}
			if j < len(content) && (content[j] == '}' || content[j] == ']') {
				out.WriteByte(' ')
				continue
			}
		}
		out.WriteByte(ch)
	}

	return out.String()
}

// jsonScanner tracks whether the current byte sits inside a string literal.
type jsonScanner struct {
	inString bool
	escape   bool
}

// step consumes ch and reports whether it belongs to a string literal (quotes included).
func (s *jsonScanner) step(ch byte) bool {
	if s.inString {
		switch {
		case s.escape:
			s.escape = false
		case ch == '\\':
			s.escape = true
		case ch == '"':
			s.inString = false
		}
		return true
	}
	if ch == '"' {
		s.inString = true
		return true
	}
	return false
}

func isJSONWhitespace(ch byte) bool {
	switch ch {
	case ' ', '\n', '\r', '\t':
		return true
	default:
		return false
	}
}
