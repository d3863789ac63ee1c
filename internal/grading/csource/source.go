package csource

import (
	"regexp"
	"strings"
)

// Source is a parsed submission with the derived views analyzers work on.
// It is immutable once built.
type Source struct {
	Raw string
	// Code is Raw without comments; line numbering is preserved.
	Code string
	// Bare is Code with string and character literal contents blanked,
	// so operators and keywords inside literals are not counted.
	Bare   string
	Lines  []string
	Tokens []Token
	// Comments is the number of // and /* */ comments in Raw.
	Comments int
}

// Parse builds a Source from raw code.
func Parse(code string) *Source {
	code = strings.ReplaceAll(code, "\r\n", "\n")
	stripped, comments := stripComments(code)
	return &Source{
		Raw:      code,
		Code:     stripped,
		Bare:     blankLiterals(stripped),
		Lines:    strings.Split(code, "\n"),
		Tokens:   Tokenize(code),
		Comments: comments,
	}
}

// StripComments removes // and /* */ comments, keeping newlines and leaving
// string and character literals untouched.
func StripComments(code string) string {
	out, _ := stripComments(code)
	return out
}

func stripComments(code string) (string, int) {
	src := []rune(code)
	comments := 0
	var b strings.Builder
	b.Grow(len(code))

	for i := 0; i < len(src); {
		r := src[i]
		switch {
		case r == '"' || r == '\'':
			j := scanQuoted(src, i, r)
			b.WriteString(string(src[i:j]))
			i = j
		case r == '/' && i+1 < len(src) && src[i+1] == '/':
			comments++
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case r == '/' && i+1 < len(src) && src[i+1] == '*':
			comments++
			i += 2
			for i < len(src) && !(src[i] == '*' && i+1 < len(src) && src[i+1] == '/') {
				if src[i] == '\n' {
					b.WriteRune('\n')
				}
				i++
			}
			i += 2
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
			i++
		}
	}
	return b.String(), comments
}

func blankLiterals(code string) string {
	src := []rune(code)
	var b strings.Builder
	b.Grow(len(code))
	for i := 0; i < len(src); {
		r := src[i]
		if r == '"' || r == '\'' {
			j := scanQuoted(src, i, r)
			b.WriteRune(r)
			if j-1 > i && src[j-1] == r {
				b.WriteRune(r)
			}
			i = j
			continue
		}
		b.WriteRune(r)
		i++
	}
	return b.String()
}

// CodeLines returns the trimmed, non-empty lines of the comment-free code.
func (s *Source) CodeLines() []string {
	lines := strings.Split(s.Code, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Count returns the number of matches of re in the literal-free code.
func (s *Source) Count(re *regexp.Regexp) int {
	return len(re.FindAllStringIndex(s.Bare, -1))
}

// Has reports whether re matches the literal-free code.
func (s *Source) Has(re *regexp.Regexp) bool {
	return re.MatchString(s.Bare)
}

// BraceBalance returns opening minus closing braces outside literals and comments.
func (s *Source) BraceBalance() int {
	return strings.Count(s.Bare, "{") - strings.Count(s.Bare, "}")
}

// ParenBalance returns opening minus closing parentheses outside literals and comments.
func (s *Source) ParenBalance() int {
	return strings.Count(s.Bare, "(") - strings.Count(s.Bare, ")")
}

// MaxBraceDepth returns the deepest brace nesting reached.
func (s *Source) MaxBraceDepth() int {
	depth, max := 0, 0
	for _, r := range s.Bare {
		switch r {
		case '{':
			depth++
			if depth > max {
				max = depth
			}
		case '}':
			depth--
		}
	}
	return max
}

// Identifiers returns every identifier token in source order.
func (s *Source) Identifiers() []string {
	out := make([]string, 0, len(s.Tokens)/2)
	for _, tok := range s.Tokens {
		if tok.Kind == Ident {
			out = append(out, tok.Text)
		}
	}
	return out
}

// FunctionBody returns the text between the braces of the first definition of
// name, or "" when it is not defined.
func (s *Source) FunctionBody(name string) string {
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\s*\([^;{]*\)\s*\{`)
	loc := re.FindStringIndex(s.Bare)
	if loc == nil {
		return ""
	}
	return s.BlockAt(loc[1] - 1)
}

// BlockAt returns the text inside the brace block that opens at or after
// offset in Bare. An unterminated block runs to the end of the code.
func (s *Source) BlockAt(offset int) string {
	if offset < 0 || offset > len(s.Bare) {
		return ""
	}
	open := strings.IndexByte(s.Bare[offset:], '{')
	if open < 0 {
		return ""
	}
	start := offset + open + 1
	depth := 1
	for i := start; i < len(s.Bare); i++ {
		switch s.Bare[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s.Bare[start:i]
			}
		}
	}
	return s.Bare[start:]
}

var functionDefinition = regexp.MustCompile(`(?m)^[ \t]*(?:static\s+|inline\s+)*(?:(?:unsigned|signed|const|long|short)\s+)*(?:int|void|float|double|char|long|short|bool|size_t|struct\s+\w+)\s*\**\s*([A-Za-z_]\w*)\s*\([^;{)]*\)\s*\{`)

// FunctionNames returns the names of all function definitions, main included.
func (s *Source) FunctionNames() []string {
	var names []string
	for _, m := range functionDefinition.FindAllStringSubmatch(s.Bare, -1) {
		names = append(names, m[1])
	}
	return names
}

// IsRecursive reports whether the body of function name calls name.
func (s *Source) IsRecursive(name string) bool {
	body := s.FunctionBody(name)
	if body == "" {
		return false
	}
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\s*\(`).MatchString(body)
}

// CountPunct returns how many punctuation tokens equal one of ops.
func (s *Source) CountPunct(ops ...string) int {
	n := 0
	for _, tok := range s.Tokens {
		if tok.Kind != Punct {
			continue
		}
		for _, op := range ops {
			if tok.Text == op {
				n++
				break
			}
		}
	}
	return n
}
