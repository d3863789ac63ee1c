// Package compare decides whether a program's output matches the expected
// output of a test case. Matching is case-insensitive and tolerant of
// interactive prompts, whitespace and small numeric differences.
package compare

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// NumericTolerance is the absolute difference under which two numbers match.
const NumericTolerance = 1e-6

const punctuationSet = ".!?,;:'\"()-"

// DefaultPrompts are phrases programs commonly print before reading input or
// before their answer.
var DefaultPrompts = []string{
	"please enter",
	"enter your",
	"enter the",
	"enter a",
	"enter",
	"input",
	"output",
	"result",
	"answer",
	"the answer is",
	"the result is",
	"your answer is",
	"type",
}

var promptLiteral = regexp.MustCompile(`\b(?:printf|puts)\s*\(\s*"((?:[^"\\]|\\.)*)"`)

// CleanPrompts removes prompt phrases from every line of output, together
// with any label up to a ':' '?' or '>' and the separators that follow. Longer
// phrases are removed first so "enter your" wins over "enter". Whitespace is
// collapsed and lines left empty are dropped.
func CleanPrompts(output string, extra []string) string {
	patterns := promptPatterns(extra)

	lines := strings.Split(strings.ReplaceAll(output, "\r\n", "\n"), "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		for _, re := range patterns {
			line = re.ReplaceAllString(line, " ")
		}
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

func promptPatterns(extra []string) []*regexp.Regexp {
	seen := make(map[string]struct{}, len(DefaultPrompts)+len(extra))
	keywords := make([]string, 0, len(DefaultPrompts)+len(extra))
	for _, kw := range append(append([]string(nil), DefaultPrompts...), extra...) {
		kw = strings.ToLower(strings.Join(strings.Fields(kw), " "))
		if kw == "" {
			continue
		}
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}
		keywords = append(keywords, kw)
	}
	sort.SliceStable(keywords, func(i, j int) bool {
		return len(keywords[i]) > len(keywords[j])
	})

	patterns := make([]*regexp.Regexp, 0, len(keywords))
	for _, kw := range keywords {
		var b strings.Builder
		b.WriteString(`(?i)`)
		if isWordByte(kw[0]) {
			b.WriteString(`\b`)
		}
		b.WriteString(strings.ReplaceAll(regexp.QuoteMeta(kw), " ", `\s+`))
		if isWordByte(kw[len(kw)-1]) {
			b.WriteString(`\b`)
		}
		b.WriteString(`(?:[^:?>\n]*[:?>])?[\s:?=>]*`)
		patterns = append(patterns, regexp.MustCompile(b.String()))
	}
	return patterns
}

func isWordByte(c byte) bool {
	return c == '_' || ('0' <= c && c <= '9') || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

// CompareFlexible reports whether actual matches expected after both are
// cleaned of prompts. extra adds prompt phrases to strip.
func CompareFlexible(actual, expected string, extra []string) bool {
	a := strings.ToLower(CleanPrompts(actual, extra))
	e := strings.ToLower(CleanPrompts(expected, extra))

	if a == e {
		return true
	}
	if e == "" {
		return false
	}
	if matched, numeric := compareNumbers(a, e); numeric {
		return matched
	}
	if strings.Contains(a, e) {
		return true
	}

	aLines := nonEmptyLines(a)
	eLines := nonEmptyLines(e)

	if len(eLines) == 1 {
		for _, line := range aLines {
			if matched, numeric := compareNumbers(line, eLines[0]); numeric {
				if matched {
					return true
				}
				continue
			}
			if strings.Contains(line, eLines[0]) {
				return true
			}
		}
		return false
	}

	if len(aLines) != len(eLines) {
		return false
	}
	for i := range eLines {
		if !CompareSingleLine(aLines[i], eLines[i]) {
			return false
		}
	}
	return true
}

// CompareSingleLine matches one line of output: exact, then numeric within
// NumericTolerance, then substring in either direction, then equality with
// punctuation removed. When both sides are numbers only the numeric test
// applies, so "7.1" does not match "7".
func CompareSingleLine(actual, expected string) bool {
	a := strings.ToLower(strings.TrimSpace(actual))
	e := strings.ToLower(strings.TrimSpace(expected))

	if a == e {
		return true
	}
	if matched, numeric := compareNumbers(a, e); numeric {
		return matched
	}
	if a != "" && e != "" && (strings.Contains(a, e) || strings.Contains(e, a)) {
		return true
	}

	sa := stripPunctuation(a)
	se := stripPunctuation(e)
	return sa != "" && sa == se
}

// PromptsFromSource collects the text of printf/puts literals that end in ':'
// or '?', which are prompts the program itself prints. Literals with format
// verbs are skipped.
func PromptsFromSource(code string) []string {
	var prompts []string
	seen := map[string]struct{}{}
	for _, m := range promptLiteral.FindAllStringSubmatch(code, -1) {
		text := unescape(m[1])
		if strings.Contains(text, "%") {
			continue
		}
		text = strings.TrimSpace(text)
		if !strings.HasSuffix(text, ":") && !strings.HasSuffix(text, "?") {
			continue
		}
		text = strings.TrimSpace(strings.TrimRight(text, ":? "))
		if len(text) < 3 {
			continue
		}
		key := strings.ToLower(text)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		prompts = append(prompts, text)
	}
	return prompts
}

func compareNumbers(a, e string) (matched, numeric bool) {
	av, aok := parseNumber(a)
	ev, eok := parseNumber(e)
	if !aok || !eok {
		return false, false
	}
	return math.Abs(av-ev) < NumericTolerance, true
}

func parseNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func nonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func stripPunctuation(s string) string {
	s = strings.Map(func(r rune) rune {
		if strings.ContainsRune(punctuationSet, r) {
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

func unescape(s string) string {
	r := strings.NewReplacer(`\n`, " ", `\t`, " ", `\"`, `"`, `\\`, `\`)
	return r.Replace(s)
}
