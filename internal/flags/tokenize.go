package flags

import (
	"fmt"
	"strings"
)

// word is one whitespace-separated element of a flag line, with its quoting
// removed (value) and as written (raw).
type word struct {
	value string
	raw   string
}

// Tokenize splits a raw flag string (one or more manifest lines) into tokens.
//
// Quoting is honoured so `-DNAME="A B"` stays one token. A `;` outside quotes
// starts a comment that runs to the end of the line, which also drops fully
// commented-out lines.
func Tokenize(raw string, origin Origin, scope Scope) ([]Token, error) {
	var words []word
	for _, line := range strings.Split(raw, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		lw, err := splitLine(line)
		if err != nil {
			return nil, err
		}
		words = append(words, lw...)
	}

	tokens := make([]Token, 0, len(words))
	for i := 0; i < len(words); i++ {
		w := words[i]
		switch {
		case joinedFlags[w.value]:
			if i+1 >= len(words) {
				return nil, fmt.Errorf("flag %q expects a value", w.value)
			}
			next := words[i+1]
			i++
			tokens = append(tokens, NewToken(w.value+next.value, "", w.raw+" "+next.raw, origin, scope))
		case twoWordFlags[w.value]:
			if i+1 >= len(words) {
				return nil, fmt.Errorf("flag %q expects an operand", w.value)
			}
			next := words[i+1]
			i++
			tokens = append(tokens, NewToken(w.value, next.value, w.raw+" "+next.raw, origin, scope))
		default:
			tokens = append(tokens, NewToken(w.value, "", w.raw, origin, scope))
		}
	}
	return tokens, nil
}

// splitLine implements POSIX-like word splitting with single quotes, double
// quotes, backslash escapes and `;` comments.
func splitLine(line string) ([]word, error) {
	var (
		words   []word
		cur     strings.Builder
		start   = -1
		inWord  bool
		quote   rune
		escaped bool
	)
	flush := func(end int) {
		if inWord {
			words = append(words, word{value: cur.String(), raw: line[start:end]})
		}
		cur.Reset()
		inWord = false
		start = -1
	}

	runes := []rune(line)
	offset := 0
	for _, r := range runes {
		pos := offset
		offset += len(string(r))

		if escaped {
			cur.WriteRune(r)
			escaped = false
			continue
		}

		switch quote {
		case '\'':
			if r == '\'' {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
			continue
		case '"':
			switch r {
			case '"':
				quote = 0
			case '\\':
				escaped = true
			default:
				cur.WriteRune(r)
			}
			continue
		}

		switch {
		case r == ';':
			flush(pos)
			return words, nil
		case r == ' ' || r == '\t' || r == '\r':
			flush(pos)
		default:
			if !inWord {
				inWord = true
				start = pos
			}
			switch r {
			case '\'', '"':
				quote = r
			case '\\':
				escaped = true
			default:
				cur.WriteRune(r)
			}
		}
	}

	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote in %q", quote, strings.TrimSpace(line))
	}
	if escaped {
		return nil, fmt.Errorf("trailing backslash in %q", strings.TrimSpace(line))
	}
	flush(len(line))
	return words, nil
}
