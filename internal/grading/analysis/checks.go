package analysis

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/noah-isme/gema-autograder/internal/grading/csource"
)

const maxComfortableDepth = 4

var (
	swapPattern        = regexp.MustCompile(`\b(\w+)\s*=\s*(\w+)\s*\[[^\]]+\]\s*;\s*\w+\s*\[[^\]]+\]\s*=\s*\w+\s*\[[^\]]+\]\s*;\s*\w+\s*\[[^\]]+\]\s*=\s*(\w+)\s*;`)
	sortNames          = regexp.MustCompile(`(?i)\b\w*(?:sort)\w*\s*\(`)
	searchNames        = regexp.MustCompile(`(?i)\b\w*(?:search|find)\w*\s*\(`)
	forLoop            = regexp.MustCompile(`\bfor\s*\(`)
	controlKeywords    = regexp.MustCompile(`\b(?:if|for|while|switch|do)\b`)
	inputCalls         = regexp.MustCompile(`\b(?:scanf|getchar|fgets|gets|getline|fscanf)\s*\(`)
	outputCalls        = regexp.MustCompile(`\b(?:printf|puts|putchar)\s*\(`)
	allocCalls         = regexp.MustCompile(`\b(?:malloc|calloc|realloc)\s*\(`)
	freeCalls          = regexp.MustCompile(`\bfree\s*\(`)
	nullChecks         = regexp.MustCompile(`(?:==|!=)\s*NULL\b|\bNULL\s*(?:==|!=)|if\s*\(\s*!\s*[A-Za-z_]\w*\s*\)`)
	infiniteLoop       = regexp.MustCompile(`\bwhile\s*\(\s*(?:1|true)\s*\)|\bfor\s*\(\s*;\s*;\s*\)`)
	loopExit           = regexp.MustCompile(`\b(?:break|return|exit|goto)\b`)
	lessEqualBound     = regexp.MustCompile(`\bfor\s*\([^;]*;\s*[A-Za-z_]\w*\s*<=\s*([A-Za-z_]\w*|\d+)\s*;`)
	lessThanBound      = regexp.MustCompile(`\bfor\s*\([^;]*;\s*[A-Za-z_]\w*\s*<\s*[^;=]+;`)
	arrayDecl          = regexp.MustCompile(`\b(?:int|float|double|char|long|short|bool)\s+([A-Za-z_]\w*)\s*\[\s*(\d+|[A-Z_][A-Z0-9_]*)\s*\]`)
	defineConst        = regexp.MustCompile(`(?m)^\s*#\s*define\s+([A-Za-z_]\w*)\s+(\d+)\s*$`)
	conditionAssign    = regexp.MustCompile(`\b(?:if|while)\s*\(\s*[A-Za-z_]\w*(?:\s*\[[^\]]*\])?\s*=[^=]`)
	switchStatement    = regexp.MustCompile(`\bswitch\s*\(`)
	caseLabel          = regexp.MustCompile(`\bcase\b[^:]*:|\bdefault\s*:`)
	sectionTerminator  = regexp.MustCompile(`\b(?:break|return|continue|goto)\b|\bexit\s*\(`)
	defaultLabel       = regexp.MustCompile(`\bdefault\s*:`)
	returnLine         = regexp.MustCompile(`^return\b[^;]*;\s*$`)
	nonUnreachableNext = regexp.MustCompile(`^(?:\}|case\b|default\b|else\b|#)`)
)

func nestingConsistency(src *csource.Source) Finding {
	var f Finding
	if depth := src.MaxBraceDepth(); depth > maxComfortableDepth {
		f.Delta -= 10 * (depth - maxComfortableDepth)
		f.Issues = append(f.Issues, fmt.Sprintf("Code is nested %d levels deep; consider extracting functions", depth))
	}
	if src.BraceBalance() != 0 {
		f.Delta -= 15
		f.Issues = append(f.Issues, "Block structure is inconsistent: braces do not match")
	}
	return f
}

func unreachableAfterReturn(src *csource.Source) Finding {
	var f Finding
	lines := strings.Split(src.Bare, "\n")
	for i, line := range lines {
		if !returnLine.MatchString(strings.TrimSpace(line)) {
			continue
		}
		for _, next := range lines[i+1:] {
			next = strings.TrimSpace(next)
			if next == "" {
				continue
			}
			if !nonUnreachableNext.MatchString(next) {
				f.Delta -= 10
				f.Issues = append(f.Issues, fmt.Sprintf("Unreachable code after return on line %d", i+1))
			}
			break
		}
	}
	return f
}

func sortingPattern(src *csource.Source) Finding {
	nestedLoops := src.Count(forLoop) >= 2 && src.MaxBraceDepth() >= 3
	if src.Has(sortNames) || (nestedLoops && src.Has(swapPattern)) {
		return Finding{Delta: 5}
	}
	return Finding{}
}

func searchingPattern(src *csource.Source) Finding {
	if src.Has(searchNames) {
		return Finding{Delta: 5}
	}
	return Finding{}
}

func recursionPattern(src *csource.Source) Finding {
	for _, name := range src.FunctionNames() {
		if name != "main" && src.IsRecursive(name) {
			return Finding{Delta: 5}
		}
	}
	return Finding{}
}

func emptyMain(src *csource.Source) Finding {
	if !src.Has(mainCall) {
		return Finding{}
	}
	body := returnZero.ReplaceAllString(src.FunctionBody("main"), "")
	if strings.TrimSpace(body) == "" {
		return Finding{Delta: -30, Issues: []string{"main does not do anything"}}
	}
	return Finding{}
}

// hardcodedOutput flags programs that only print literals. It warns without
// changing the score.
func hardcodedOutput(src *csource.Source) Finding {
	if isHardcodedOutput(src) {
		return Finding{Warnings: []string{"Output appears to be hardcoded: the program prints fixed text without reading input, using variables or making decisions"}}
	}
	return Finding{}
}

func isHardcodedOutput(src *csource.Source) bool {
	return src.Count(outputCalls) > 0 &&
		!src.Has(controlKeywords) &&
		!src.Has(inputCalls) &&
		len(declarations(src)) == 0
}

func uninitializedUse(src *csource.Source) Finding {
	var f Finding
	for _, d := range declarations(src) {
		if d.initialized || d.array {
			continue
		}
		if readBeforeWrite(src, d) {
			f.Delta -= 10
			f.Issues = append(f.Issues, fmt.Sprintf("Variable '%s' may be used before it is initialized", d.name))
		}
	}
	return f
}

func unusedVariables(src *csource.Source) Finding {
	var f Finding
	seen := map[string]bool{}
	for _, d := range declarations(src) {
		if seen[d.name] {
			continue
		}
		seen[d.name] = true
		if usageCount(src, d.name) <= 1 {
			f.Delta -= 5
			f.Issues = append(f.Issues, fmt.Sprintf("Variable '%s' is declared but never used", d.name))
		}
	}
	return f
}

var conventionalShortNames = map[string]bool{"i": true, "j": true, "k": true, "n": true, "x": true, "y": true}

func singleLetterNames(src *csource.Source) Finding {
	var f Finding
	seen := map[string]bool{}
	for _, d := range declarations(src) {
		if len(d.name) != 1 || conventionalShortNames[d.name] || seen[d.name] {
			continue
		}
		seen[d.name] = true
		f.Delta -= 2
		f.Issues = append(f.Issues, fmt.Sprintf("Variable '%s' has a single-letter name; use a descriptive name", d.name))
	}
	return f
}

func memorySafety(src *csource.Source) Finding {
	allocs := src.Count(allocCalls)
	if allocs == 0 {
		return Finding{}
	}
	var f Finding
	frees := src.Count(freeCalls)
	if frees < allocs {
		f.Delta -= 15
		f.Issues = append(f.Issues, fmt.Sprintf("%d allocation(s) but only %d free(s): memory may leak", allocs, frees))
	} else {
		f.Delta += 5
	}
	if src.Has(nullChecks) {
		f.Delta += 5
	} else {
		f.Delta -= 10
		f.Issues = append(f.Issues, "Allocated memory is not checked for NULL")
	}
	return f
}

func arrayIndexBounds(src *csource.Source) Finding {
	sizes := arraySizes(src)
	if len(sizes) == 0 {
		return Finding{}
	}
	var f Finding
	toks := src.Tokens
	for i := 1; i+3 < len(toks); i++ {
		tok := toks[i]
		size, ok := sizes[tok.Text]
		if tok.Kind != csource.Ident || !ok {
			continue
		}
		if typeWords[toks[i-1].Text] || toks[i+1].Text != "[" || toks[i+2].Kind != csource.Int || toks[i+3].Text != "]" {
			continue
		}
		idx, err := strconv.Atoi(toks[i+2].Text)
		if err != nil || (idx >= 0 && idx < size) {
			continue
		}
		f.Delta -= 10
		f.Issues = append(f.Issues, fmt.Sprintf("Index %d is outside array '%s' of size %d (line %d)", idx, tok.Text, size, tok.Line))
	}
	return f
}

func infiniteLoops(src *csource.Source) Finding {
	var f Finding
	for _, loc := range infiniteLoop.FindAllStringIndex(src.Bare, -1) {
		body := src.BlockAt(loc[1])
		if !loopExit.MatchString(body) {
			f.Delta -= 20
			f.Issues = append(f.Issues, "Loop has no exit condition and no break")
		}
	}
	return f
}

func loopBounds(src *csource.Source) Finding {
	var f Finding
	sizes := arraySizes(src)
	for _, m := range lessEqualBound.FindAllStringSubmatch(src.Bare, -1) {
		bound := m[1]
		if isArraySize(bound, sizes, src) {
			f.Delta -= 10
			f.Issues = append(f.Issues, fmt.Sprintf("Loop runs while index <= %s, one past the end of the array", bound))
		}
	}
	if f.Delta == 0 && src.Has(lessThanBound) {
		f.Delta += 5
	}
	return f
}

func assignmentInCondition(src *csource.Source) Finding {
	n := src.Count(conditionAssign)
	if n == 0 {
		return Finding{}
	}
	return Finding{
		Delta:  -15 * n,
		Issues: []string{fmt.Sprintf("%d condition(s) use '=' where '==' was probably intended", n)},
	}
}

func divisionByZero(src *csource.Source) Finding {
	var f Finding
	seen := map[string]bool{}
	toks := src.Tokens
	for i := 0; i+1 < len(toks); i++ {
		if toks[i].Kind != csource.Punct || (toks[i].Text != "/" && toks[i].Text != "%") {
			continue
		}
		divisor := toks[i+1]
		switch {
		case divisor.Kind == csource.Int && isZeroLiteral(divisor.Text):
			f.Delta -= 20
			f.Issues = append(f.Issues, fmt.Sprintf("Division by zero on line %d", divisor.Line))
		case divisor.Kind == csource.Ident && divisor.Text != "sizeof" && !seen[divisor.Text]:
			seen[divisor.Text] = true
			if !hasZeroGuard(src, divisor.Text) {
				f.Delta -= 10
				f.Issues = append(f.Issues, fmt.Sprintf("Division by '%s' without checking it is not zero", divisor.Text))
			}
		}
	}
	return f
}

func switchFallthrough(src *csource.Source) Finding {
	var f Finding
	for _, loc := range switchStatement.FindAllStringIndex(src.Bare, -1) {
		body := src.BlockAt(loc[1])
		labels := caseLabel.FindAllStringIndex(body, -1)
		for i := 0; i+1 < len(labels); i++ {
			section := strings.TrimSpace(body[labels[i][1]:labels[i+1][0]])
			if section == "" {
				continue
			}
			if !sectionTerminator.MatchString(section) {
				f.Delta -= 5
				f.Issues = append(f.Issues, "A case falls through to the next one without 'break'")
			}
		}
		if !defaultLabel.MatchString(body) {
			f.Delta -= 5
			f.Issues = append(f.Issues, "switch has no default case")
		}
	}
	return f
}

func commentStyle(src *csource.Source) Finding {
	lines := len(src.CodeLines())
	switch {
	case src.Comments == 0 && lines > 10:
		return Finding{Delta: -10, Issues: []string{"Add comments to explain what the code does"}}
	case src.Comments > 0:
		return Finding{Delta: 5}
	}
	return Finding{}
}

const maxLineLength = 100

func lineLength(src *csource.Source) Finding {
	var f Finding
	for i, line := range src.Lines {
		if len([]rune(line)) > maxLineLength {
			f.Delta -= 2
			f.Issues = append(f.Issues, fmt.Sprintf("Line %d is longer than %d characters", i+1, maxLineLength))
		}
	}
	return f
}

func indentationStyle(src *csource.Source) Finding {
	var f Finding
	tabs, spaces := false, false
	for _, line := range src.Lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		switch line[0] {
		case '\t':
			tabs = true
		case ' ':
			spaces = true
		}
	}
	if tabs && spaces {
		f.Delta -= 10
		f.Issues = append(f.Issues, "Indentation mixes tabs and spaces")
	}
	ratio := indentationRatio(src)
	switch {
	case ratio == 0 && src.MaxBraceDepth() > 0 && len(src.CodeLines()) > 3:
		f.Delta -= 15
		f.Issues = append(f.Issues, "Code inside blocks is not indented")
	case ratio > 0 && ratio < 0.5:
		f.Delta -= 5
		f.Issues = append(f.Issues, "Indentation is inconsistent")
	}
	return f
}

var typeWords = map[string]bool{
	"int": true, "float": true, "double": true, "char": true, "long": true,
	"short": true, "bool": true, "unsigned": true, "signed": true,
}

func arraySizes(src *csource.Source) map[string]int {
	consts := map[string]int{}
	for _, m := range defineConst.FindAllStringSubmatch(src.Code, -1) {
		if v, err := strconv.Atoi(m[2]); err == nil {
			consts[m[1]] = v
		}
	}
	sizes := map[string]int{}
	for _, m := range arrayDecl.FindAllStringSubmatch(src.Bare, -1) {
		if v, err := strconv.Atoi(m[2]); err == nil {
			sizes[m[1]] = v
		} else if v, ok := consts[m[2]]; ok {
			sizes[m[1]] = v
		}
	}
	return sizes
}

func isArraySize(bound string, sizes map[string]int, src *csource.Source) bool {
	for _, m := range arrayDecl.FindAllStringSubmatch(src.Bare, -1) {
		if m[2] == bound {
			return true
		}
	}
	if v, err := strconv.Atoi(bound); err == nil {
		for _, size := range sizes {
			if size == v {
				return true
			}
		}
	}
	return false
}

func isZeroLiteral(text string) bool {
	v, err := strconv.ParseInt(text, 0, 64)
	return err == nil && v == 0
}

func hasZeroGuard(src *csource.Source, name string) bool {
	n := regexp.QuoteMeta(name)
	guard := regexp.MustCompile(`\b` + n + `\s*(?:!=|==|>|<=|>=|<)\s*0\b|\b0\s*(?:!=|==|<|>=|<=|>)\s*` + n + `\b|\bif\s*\(\s*!?\s*` + n + `\s*\)|\bwhile\s*\(\s*` + n + `\s*\)`)
	return guard.MatchString(src.Bare)
}
