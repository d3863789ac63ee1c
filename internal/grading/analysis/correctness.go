package analysis

import (
	"math"
	"regexp"
	"strings"

	"github.com/noah-isme/gema-autograder/internal/grading/csource"
)

var (
	mainCall      = regexp.MustCompile(`\bmain\s*\(`)
	returnKeyword = regexp.MustCompile(`\breturn\b`)
	returnZero    = regexp.MustCompile(`\breturn\s*\(?\s*0\s*\)?\s*;`)
)

// AnalyzeCorrectness estimates correctness from structure alone, without
// running the code. The result is clamped to [0,100].
func AnalyzeCorrectness(code string) int {
	return correctnessScore(csource.Parse(code))
}

func correctnessScore(src *csource.Source) int {
	score := 80.0

	if len(declarations(src)) > 0 {
		score += 15
	} else {
		score -= 15
	}
	if len(src.FunctionNames()) > 0 {
		score += 15
	} else {
		score -= 15
	}
	if src.Has(returnKeyword) {
		score += 10
	} else {
		score -= 10
	}

	score += 15 * semicolonRatio(src)
	score += 15 * indentationRatio(src)

	if usesPointers(src) {
		score += 10
	}
	if src.BraceBalance() != 0 {
		score -= 10
	}
	if !src.Has(mainCall) {
		score -= 10
	} else if !mainReturnsZero(src) {
		score -= 5
	}

	return clamp(int(math.Round(score)))
}

var allocFuncs = map[string]bool{"malloc": true, "calloc": true, "realloc": true, "free": true}

// unaryContext holds the tokens after which '*' and '&' cannot be binary operators.
var unaryContext = map[string]bool{
	"(": true, ",": true, "=": true, "return": true, "{": true, ";": true, "[": true,
	"!": true, "+=": true, "-=": true,
}

// usesPointers reports pointer declarators, dereferences, address-of,
// '->' and allocation calls. Binary '*' and '&' are not counted.
func usesPointers(src *csource.Source) bool {
	toks := src.Tokens
	for i, tok := range toks {
		switch {
		case tok.Kind == csource.Punct && tok.Text == "->":
			return true
		case tok.Kind == csource.Ident && allocFuncs[tok.Text] && i+1 < len(toks) && toks[i+1].Text == "(":
			return true
		case tok.Kind == csource.Punct && (tok.Text == "*" || tok.Text == "&"):
			if i == 0 {
				return true
			}
			prev := toks[i-1]
			if unaryContext[prev.Text] {
				return true
			}
			if tok.Text == "*" && prev.Kind == csource.Ident && (typeWords[prev.Text] || prev.Text == "void" || isStructTag(toks, i-1)) {
				return true
			}
		}
	}
	return false
}

func isStructTag(toks []csource.Token, i int) bool {
	return i > 0 && (toks[i-1].Text == "struct" || toks[i-1].Text == "union")
}

// semicolonRatio is the share of statement lines that end in ';'. Lines that
// open or close blocks and preprocessor lines are not statements.
func semicolonRatio(src *csource.Source) float64 {
	statements, terminated := 0, 0
	for _, line := range strings.Split(src.Bare, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		last := line[len(line)-1]
		if last == '{' || last == '}' {
			continue
		}
		statements++
		if last == ';' {
			terminated++
		}
	}
	if statements == 0 {
		return 0
	}
	return float64(terminated) / float64(statements)
}

// indentationRatio is the share of lines inside a block that are indented.
func indentationRatio(src *csource.Source) float64 {
	inner, indented := 0, 0
	depth := 0
	for _, line := range strings.Split(src.Bare, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if depth > 0 && !strings.HasPrefix(trimmed, "}") {
			inner++
			if line[0] == ' ' || line[0] == '\t' {
				indented++
			}
		}
		depth += strings.Count(trimmed, "{") - strings.Count(trimmed, "}")
		if depth < 0 {
			depth = 0
		}
	}
	if inner == 0 {
		return 0
	}
	return float64(indented) / float64(inner)
}

func mainReturnsZero(src *csource.Source) bool {
	return returnZero.MatchString(src.FunctionBody("main"))
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
