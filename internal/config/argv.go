package config

import (
	"fmt"
	"strings"
	"unicode"
)

// ParseCommand splits raw into argv with shell-like quoting. A blank or
// "#"-prefixed value disables the command.
func ParseCommand(raw string) (CommandConfig, error) {
	argv, err := splitArgv(raw)
	if err != nil {
		return CommandConfig{}, err
	}
	return CommandConfig{Raw: raw, Argv: argv}, nil
}

func mustParseCommand(raw string) CommandConfig {
	cmd, err := ParseCommand(raw)
	if err != nil {
		panic(err)
	}
	return cmd
}

// argvLexer accumulates words. Backslash escapes one rune anywhere; quotes
// group runs of text and may abut unquoted text.
type argvLexer struct {
	argv    []string
	word    strings.Builder
	inWord  bool
	quote   rune
	escaped bool
}

func (l *argvLexer) emit(r rune) {
	l.word.WriteRune(r)
	l.inWord = true
}

func (l *argvLexer) flush() {
	if !l.inWord {
		return
	}
	l.argv = append(l.argv, l.word.String())
	l.word.Reset()
	l.inWord = false
}

func (l *argvLexer) feed(r rune) {
	switch {
	case l.escaped:
		l.emit(r)
		l.escaped = false
	case r == '\\':
		l.escaped = true
	case l.quote != 0 && r == l.quote:
		l.quote = 0
	case l.quote != 0:
		l.emit(r)
	case r == '\'' || r == '"':
		l.quote = r
		l.inWord = true
	case unicode.IsSpace(r):
		l.flush()
	default:
		l.emit(r)
	}
}

func splitArgv(raw string) ([]string, error) {
	input := strings.TrimSpace(raw)
	if input == "" || strings.HasPrefix(input, "#") {
		return nil, nil
	}

	var l argvLexer
	for _, r := range input {
		l.feed(r)
	}

	switch {
	case l.escaped:
		return nil, fmt.Errorf("unterminated escape sequence in command: %q", input)
	case l.quote != 0:
		return nil, fmt.Errorf("unterminated quote in command: %q", input)
	}
	l.flush()
	return l.argv, nil
}
