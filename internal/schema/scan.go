package schema

import "strings"

// scanner is a minimal tokenizer for the IDL: identifiers, quoted strings,
// numbers, and single-character punctuation. Line comments are skipped.
type scanner struct {
	src string
	pos int
}

func newScanner(src string) *scanner {
	return &scanner{src: src}
}

// next returns the next token, or ok=false at end of input.
func (s *scanner) next() (string, bool) {
	for {
		s.skipSpace()
		if s.pos >= len(s.src) {
			return "", false
		}
		if strings.HasPrefix(s.src[s.pos:], "//") {
			for s.pos < len(s.src) && s.src[s.pos] != '\n' {
				s.pos++
			}
			continue
		}
		if strings.HasPrefix(s.src[s.pos:], "/*") {
			end := strings.Index(s.src[s.pos+2:], "*/")
			if end < 0 {
				s.pos = len(s.src)
				return "", false
			}
			s.pos += 2 + end + 2
			continue
		}
		break
	}

	c := s.src[s.pos]
	switch {
	case c == '"':
		start := s.pos
		s.pos++
		for s.pos < len(s.src) && s.src[s.pos] != '"' {
			s.pos++
		}
		if s.pos < len(s.src) {
			s.pos++
		}
		return s.src[start:s.pos], true

	case isWordByte(c):
		start := s.pos
		for s.pos < len(s.src) && isWordByte(s.src[s.pos]) {
			s.pos++
		}
		return s.src[start:s.pos], true

	default:
		s.pos++
		return string(c), true
	}
}

// skipPast consumes tokens up to and including the given one.
func (s *scanner) skipPast(tok string) {
	for {
		t, ok := s.next()
		if !ok || t == tok {
			return
		}
	}
}

func (s *scanner) skipSpace() {
	for s.pos < len(s.src) {
		switch s.src[s.pos] {
		case ' ', '\t', '\n', '\r':
			s.pos++
		default:
			return
		}
	}
}

func isWordByte(c byte) bool {
	return c == '_' || c == '.' || c == '-' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
