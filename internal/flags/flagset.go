package flags

// Set is an insertion-ordered sequence of tokens.
type Set struct {
	tokens []Token
}

// NewSet returns a set holding tokens in order.
func NewSet(tokens ...Token) *Set {
	s := &Set{}
	s.Append(tokens...)
	return s
}

// Append adds tokens at the end. Duplicates are kept.
func (s *Set) Append(tokens ...Token) {
	s.tokens = append(s.tokens, tokens...)
}

// Override puts t into its identity slot: every token for which sameSlot
// returns true is removed, then t is appended. It returns how many tokens
// were displaced.
func (s *Set) Override(t Token, sameSlot func(Token) bool) int {
	removed := s.RemoveFunc(sameSlot)
	s.Append(t)
	return removed
}

// Remove deletes every token whose normalized text equals normalized
// exactly and returns how many were removed.
func (s *Set) Remove(normalized string) int {
	return s.RemoveFunc(func(t Token) bool { return t.Normalized == normalized })
}

// RemoveFunc deletes every token for which match returns true.
func (s *Set) RemoveFunc(match func(Token) bool) int {
	out := s.tokens[:0]
	removed := 0
	for _, t := range s.tokens {
		if match(t) {
			removed++
			continue
		}
		out = append(out, t)
	}
	// Clear the tail so dropped tokens do not linger in the backing array.
	for i := len(out); i < len(s.tokens); i++ {
		s.tokens[i] = Token{}
	}
	s.tokens = out
	return removed
}

// Dedupe collapses tokens that share an identity slot. The first position
// wins and takes the text of the last occurrence.
func (s *Set) Dedupe() {
	type slot struct {
		normalized string
		scope      Scope
	}
	first := make(map[slot]int, len(s.tokens))
	out := make([]Token, 0, len(s.tokens))
	for _, t := range s.tokens {
		key := slot{t.Normalized, t.Scope}
		if i, ok := first[key]; ok {
			out[i] = t
			continue
		}
		first[key] = len(out)
		out = append(out, t)
	}
	s.tokens = out
}

// Has reports whether a token with the normalized text is present.
func (s *Set) Has(normalized string) bool {
	for _, t := range s.tokens {
		if t.Normalized == normalized {
			return true
		}
	}
	return false
}

// Tokens returns a copy of the tokens in order.
func (s *Set) Tokens() []Token {
	out := make([]Token, len(s.tokens))
	copy(out, s.tokens)
	return out
}

// Filter returns the tokens of one category in order.
func (s *Set) Filter(c Category) []Token {
	var out []Token
	for _, t := range s.tokens {
		if t.Category == c {
			out = append(out, t)
		}
	}
	return out
}

// Len returns the number of tokens.
func (s *Set) Len() int { return len(s.tokens) }

// Args returns the argv elements of every token in order.
func (s *Set) Args() []string {
	var out []string
	for _, t := range s.tokens {
		out = append(out, t.Argv()...)
	}
	return out
}
