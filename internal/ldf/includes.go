package ldf

import (
	"bufio"
	"bytes"
	"os"
	"regexp"
)

// Include is one #include directive.
type Include struct {
	Header string
	// Quoted is true for "header" and false for <header>.
	Quoted bool
}

var includeRe = regexp.MustCompile(`^\s*#\s*include\s*([<"])([^>"]+)[>"]`)

// ScanFile returns the includes of a C or C++ file in order of appearance.
func ScanFile(path string) ([]Include, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ScanIncludes(src), nil
}

// ScanIncludes extracts include directives from source text. Comments are
// stripped first so commented-out directives are ignored.
func ScanIncludes(src []byte) []Include {
	var out []Include
	sc := bufio.NewScanner(bytes.NewReader(stripComments(src)))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		m := includeRe.FindSubmatch(sc.Bytes())
		if m == nil {
			continue
		}
		out = append(out, Include{Header: string(bytes.TrimSpace(m[2])), Quoted: m[1][0] == '"'})
	}
	return out
}

// stripComments blanks out // and /* */ comments, keeping newlines so line
// structure survives. String and character literals are left intact.
func stripComments(src []byte) []byte {
	out := make([]byte, 0, len(src))
	const (
		code = iota
		line
		block
		str
		char
	)
	state := code
	for i := 0; i < len(src); i++ {
		c := src[i]
		var next byte
		if i+1 < len(src) {
			next = src[i+1]
		}
		switch state {
		case code:
			switch {
			case c == '/' && next == '/':
				state = line
				i++
			case c == '/' && next == '*':
				state = block
				out = append(out, ' ')
				i++
			case c == '"':
				state = str
				out = append(out, c)
			case c == '\'':
				state = char
				out = append(out, c)
			default:
				out = append(out, c)
			}
		case line:
			if c == '\n' {
				state = code
				out = append(out, c)
			}
		case block:
			if c == '*' && next == '/' {
				state = code
				i++
			} else if c == '\n' {
				out = append(out, c)
			}
		case str, char:
			out = append(out, c)
			quote := byte('"')
			if state == char {
				quote = '\''
			}
			switch {
			case c == '\\' && next != 0:
				out = append(out, next)
				i++
			case c == quote || c == '\n':
				state = code
			}
		}
	}
	return out
}
