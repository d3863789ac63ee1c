// Package csource holds the lexical helpers shared by the C analyzers:
// a tokenizer, comment and literal stripping, and brace accounting.
package csource

import (
	"strings"
	"unicode"
)

// Kind classifies a token.
type Kind int

const (
	Ident Kind = iota
	Int
	Float
	String
	Char
	Punct
	Directive
)

// Token is one lexical element of C source. Line is 1-based.
type Token struct {
	Kind Kind
	Text string
	Line int
}

var multiCharPuncts = []string{
	"<<=", ">>=", "...",
	"->", "++", "--", "<=", ">=", "==", "!=", "&&", "||",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "<<", ">>",
}

// Tokenize splits code into tokens, dropping comments and whitespace.
// Preprocessor lines become a single Directive token.
func Tokenize(code string) []Token {
	src := []rune(code)
	n := len(src)
	tokens := make([]Token, 0, n/3)
	line := 1
	lineStart := true

	for i := 0; i < n; {
		r := src[i]

		switch {
		case r == '\n':
			line++
			lineStart = true
			i++
			continue
		case unicode.IsSpace(r):
			i++
			continue
		case r == '/' && i+1 < n && src[i+1] == '/':
			for i < n && src[i] != '\n' {
				i++
			}
			continue
		case r == '/' && i+1 < n && src[i+1] == '*':
			i += 2
			for i < n && !(src[i] == '*' && i+1 < n && src[i+1] == '/') {
				if src[i] == '\n' {
					line++
				}
				i++
			}
			i += 2
			continue
		}

		startLine := line
		switch {
		case r == '#' && lineStart:
			j := i
			for j < n && src[j] != '\n' {
				if src[j] == '\\' && j+1 < n && src[j+1] == '\n' {
					line++
					j += 2
					continue
				}
				j++
			}
			tokens = append(tokens, Token{Kind: Directive, Text: strings.TrimSpace(string(src[i:j])), Line: startLine})
			i = j
		case r == '"' || r == '\'':
			j := scanQuoted(src, i, r)
			kind := String
			if r == '\'' {
				kind = Char
			}
			tokens = append(tokens, Token{Kind: kind, Text: string(src[i:j]), Line: startLine})
			i = j
		case unicode.IsDigit(r) || (r == '.' && i+1 < n && unicode.IsDigit(src[i+1])):
			j, isFloat := scanNumber(src, i)
			kind := Int
			if isFloat {
				kind = Float
			}
			tokens = append(tokens, Token{Kind: kind, Text: string(src[i:j]), Line: startLine})
			i = j
		case r == '_' || unicode.IsLetter(r):
			j := i + 1
			for j < n && (src[j] == '_' || unicode.IsLetter(src[j]) || unicode.IsDigit(src[j])) {
				j++
			}
			tokens = append(tokens, Token{Kind: Ident, Text: string(src[i:j]), Line: startLine})
			i = j
		default:
			text := string(r)
			for _, p := range multiCharPuncts {
				if hasPrefixAt(src, i, p) {
					text = p
					break
				}
			}
			tokens = append(tokens, Token{Kind: Punct, Text: text, Line: startLine})
			i += len([]rune(text))
		}
		lineStart = false
	}

	return tokens
}

func scanQuoted(src []rune, start int, quote rune) int {
	j := start + 1
	for j < len(src) {
		switch src[j] {
		case '\\':
			j += 2
			continue
		case quote:
			return j + 1
		case '\n':
			return j
		}
		j++
	}
	return len(src)
}

func scanNumber(src []rune, start int) (int, bool) {
	j := start
	isHex := j+1 < len(src) && src[j] == '0' && (src[j+1] == 'x' || src[j+1] == 'X')
	isFloat := false
scan:
	for j < len(src) {
		c := src[j]
		switch {
		case c == '.':
			isFloat = true
		case !isHex && (c == 'e' || c == 'E'):
			isFloat = true
			if j+1 < len(src) && (src[j+1] == '+' || src[j+1] == '-') {
				j++
			}
		case unicode.IsDigit(c) || unicode.IsLetter(c) || c == '_':
		default:
			break scan
		}
		j++
	}
	if !isHex && j > start {
		last := src[j-1]
		if last == 'f' || last == 'F' {
			isFloat = true
		}
	}
	return j, isFloat
}

func hasPrefixAt(src []rune, i int, prefix string) bool {
	p := []rune(prefix)
	if i+len(p) > len(src) {
		return false
	}
	for k, r := range p {
		if src[i+k] != r {
			return false
		}
	}
	return true
}
