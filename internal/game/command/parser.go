package command

import "strings"

// ParseResult holds the parsed command name and arguments from a text line.
type ParseResult struct {
	// Command is the first word of the input, lowercased.
	Command string
	// Args are the remaining tokens after the command. Single- or
	// double-quoted spans form one token, so multi-word quest and item
	// names survive splitting.
	Args []string
	// RawArgs is the raw text after the command (preserving spacing for
	// say/emote).
	RawArgs string
}

// Parse splits a text line into a command and arguments.
//
// Postcondition: Returns a ParseResult. If line is empty, Command is empty.
func Parse(line string) ParseResult {
	line = strings.TrimSpace(line)
	if line == "" {
		return ParseResult{}
	}

	spaceIdx := strings.IndexByte(line, ' ')
	if spaceIdx < 0 {
		return ParseResult{
			Command: strings.ToLower(line),
		}
	}

	cmd := strings.ToLower(line[:spaceIdx])
	rest := strings.TrimSpace(line[spaceIdx+1:])

	return ParseResult{
		Command: cmd,
		Args:    splitArgs(rest),
		RawArgs: rest,
	}
}

// splitArgs splits on whitespace, keeping quoted spans together. An
// unterminated quote runs to the end of the line.
func splitArgs(rest string) []string {
	if rest == "" {
		return nil
	}

	var args []string
	var current strings.Builder
	var quote byte
	inToken := false

	flush := func() {
		if inToken {
			args = append(args, current.String())
			current.Reset()
			inToken = false
		}
	}

	for i := 0; i < len(rest); i++ {
		ch := rest[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			} else {
				current.WriteByte(ch)
			}
		case ch == '\'' || ch == '"':
			quote = ch
			inToken = true
		case ch == ' ' || ch == '\t':
			flush()
		default:
			current.WriteByte(ch)
			inToken = true
		}
	}
	flush()
	return args
}
