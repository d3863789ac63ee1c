// Package predictor is the optional machine-learned overlay on the heuristic
// scores: feature extraction, a standard scaler, ridge regressors and the
// bundle that persists them.
package predictor

import (
	"regexp"

	"github.com/noah-isme/gema-autograder/internal/grading/csource"
)

var featureNames = []string{
	"lines_of_code",
	"code_lines",
	"variable_declarations",
	"function_definitions",
	"function_calls",
	"if_statements",
	"else_statements",
	"for_loops",
	"while_loops",
	"do_while_loops",
	"switch_statements",
	"case_labels",
	"return_statements",
	"printf_calls",
	"scanf_calls",
	"arithmetic_operators",
	"comparison_operators",
	"logical_operators",
	"assignment_operators",
	"pointer_operations",
	"memory_operations",
	"array_accesses",
	"comments",
	"decision_points",
	"cyclomatic_complexity",
	"avg_line_length",
	"max_nesting_depth",
	"comment_ratio",
}

// FeatureNames returns the ordered feature names the extractor produces.
func FeatureNames() []string {
	return append([]string(nil), featureNames...)
}

// NumFeatures is the length of every feature vector.
var NumFeatures = len(featureNames)

var (
	varDecl    = regexp.MustCompile(`\b(?:int|float|double|char|long|short|unsigned|bool|size_t)\s+\**[A-Za-z_]\w*\s*(?:=|;|,|\[)`)
	call       = regexp.MustCompile(`\b([A-Za-z_]\w*)\s*\(`)
	ifStmt     = regexp.MustCompile(`\bif\s*\(`)
	elseStmt   = regexp.MustCompile(`\belse\b`)
	forStmt    = regexp.MustCompile(`\bfor\s*\(`)
	whileStmt  = regexp.MustCompile(`\bwhile\s*\(`)
	doStmt     = regexp.MustCompile(`\bdo\s*\{`)
	switchStmt = regexp.MustCompile(`\bswitch\s*\(`)
	caseLabel  = regexp.MustCompile(`\bcase\b`)
	returnStmt = regexp.MustCompile(`\breturn\b`)
	printfCall = regexp.MustCompile(`\bprintf\s*\(`)
	scanfCall  = regexp.MustCompile(`\bscanf\s*\(`)
	memoryCall = regexp.MustCompile(`\b(?:malloc|calloc|realloc|free)\s*\(`)
	arrayIndex = regexp.MustCompile(`[A-Za-z_]\w*\s*\[`)
	pointerOp  = regexp.MustCompile(`->|&[A-Za-z_]|\*\s*[A-Za-z_(]`)
)

var notCalls = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true, "return": true, "sizeof": true,
}

// Extract computes the feature vector of code in FeatureNames order.
func Extract(code string) []float64 {
	src := csource.Parse(code)
	codeLines := src.CodeLines()

	calls := 0
	defs := len(src.FunctionNames())
	for _, m := range call.FindAllStringSubmatch(src.Bare, -1) {
		if !notCalls[m[1]] {
			calls++
		}
	}
	calls -= defs
	if calls < 0 {
		calls = 0
	}

	ifs := src.Count(ifStmt)
	fors := src.Count(forStmt)
	whiles := src.Count(whileStmt)
	dos := src.Count(doStmt)
	cases := src.Count(caseLabel)
	logical := src.CountPunct("&&", "||")
	decisions := ifs + fors + whiles + cases + logical + src.CountPunct("?")

	totalLen := 0
	for _, line := range codeLines {
		totalLen += len(line)
	}
	avgLen := 0.0
	commentRatio := 0.0
	if len(codeLines) > 0 {
		avgLen = float64(totalLen) / float64(len(codeLines))
		commentRatio = float64(src.Comments) / float64(len(codeLines))
	}

	return []float64{
		float64(len(src.Lines)),
		float64(len(codeLines)),
		float64(src.Count(varDecl)),
		float64(defs),
		float64(calls),
		float64(ifs),
		float64(src.Count(elseStmt)),
		float64(fors),
		float64(max(whiles-dos, 0)),
		float64(dos),
		float64(src.Count(switchStmt)),
		float64(cases),
		float64(src.Count(returnStmt)),
		float64(src.Count(printfCall)),
		float64(src.Count(scanfCall)),
		float64(src.CountPunct("+", "-", "*", "/", "%", "++", "--")),
		float64(src.CountPunct("==", "!=", "<", ">", "<=", ">=")),
		float64(logical),
		float64(src.CountPunct("=", "+=", "-=", "*=", "/=", "%=")),
		float64(src.Count(pointerOp)),
		float64(src.Count(memoryCall)),
		float64(src.Count(arrayIndex)),
		float64(src.Comments),
		float64(decisions),
		float64(decisions + 1),
		avgLen,
		float64(src.MaxBraceDepth()),
		commentRatio,
	}
}
