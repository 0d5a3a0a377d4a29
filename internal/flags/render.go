package flags

import "strings"

// shellSignificant are the characters that make an argument unsafe to print
// unquoted.
const shellSignificant = " \t\n\"'\\$`&|;<>()*?[]#~!{}"

// Quote renders one argv element for the transcript. Arguments containing
// whitespace or shell-significant characters are wrapped in double quotes so
// they still read as a single argument.
func Quote(arg string) string {
	if arg == "" {
		return `""`
	}
	if !strings.ContainsAny(arg, shellSignificant) {
		return arg
	}
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range arg {
		switch r {
		case '"', '\\', '$', '`':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}

// VisibleArgs returns the argv elements of the tokens that may be shown in
// the transcript, quoted.
func VisibleArgs(tokens []Token) []string {
	var out []string
	for _, t := range tokens {
		if t.Visibility == Internal {
			continue
		}
		for _, a := range t.Argv() {
			out = append(out, Quote(a))
		}
	}
	return out
}
