package syntax

import (
	"regexp"
	"strconv"
	"strings"
)

// Explanation turns one compiler diagnostic into student-facing guidance.
type Explanation struct {
	Category    string   `json:"category"`
	Line        int      `json:"line,omitempty"`
	Diagnostic  string   `json:"diagnostic"`
	Cause       string   `json:"cause"`
	Rationale   string   `json:"rationale"`
	Suggestions []string `json:"suggestions"`
}

type explanationRule struct {
	category    string
	keywords    []string
	cause       string
	rationale   string
	suggestions []string
}

// Order matters: the first rule with a matching keyword wins.
var explanationRules = []explanationRule{
	{
		category:  "missing_semicolon",
		keywords:  []string{"expected ';'", "expected ‘;’", "or ';' before", "or ‘;’ before"},
		cause:     "A statement is missing its terminating semicolon.",
		rationale: "C uses ';' to end every statement. Without it the compiler reads the next line as part of the same statement and reports the error at the following token.",
		suggestions: []string{
			"Add ';' at the end of the statement on or just before the reported line.",
			"Check declarations, assignments, function calls and return statements.",
		},
	},
	{
		category:  "brace_mismatch",
		keywords:  []string{"expected '}'", "expected ‘}’", "expected '{'", "expected ‘{’", "at end of input", "expected declaration or statement"},
		cause:     "Opening and closing braces do not match.",
		rationale: "Every '{' that opens a function, loop or if block needs a matching '}'. A missing brace makes the compiler reach the end of the file while still inside a block.",
		suggestions: []string{
			"Count '{' and '}' in each function; indent blocks so pairs line up.",
			"Make sure every if, else, for and while block is closed before the next one starts.",
		},
	},
	{
		category:  "undeclared_identifier",
		keywords:  []string{"undeclared", "was not declared", "implicit declaration"},
		cause:     "A name is used before it has been declared.",
		rationale: "C requires variables to be declared with a type, and functions to be declared or defined, before they are used. Misspelled names produce the same error.",
		suggestions: []string{
			"Declare the variable (for example 'int count = 0;') before its first use.",
			"Check the spelling and capitalisation of the name.",
			"Include the header that declares library functions, such as <stdio.h> for printf.",
		},
	},
	{
		category:  "type_mismatch",
		keywords:  []string{"incompatible type", "makes integer from pointer", "makes pointer from integer", "invalid operands", "incompatible pointer"},
		cause:     "A value of one type is used where another type is expected.",
		rationale: "C checks that assignments, arguments and operators receive compatible types. Mixing pointers and integers, or passing the wrong kind of value, is rejected or flagged.",
		suggestions: []string{
			"Compare the declared type of the variable with the value being assigned.",
			"With scanf, pass the address of the variable ('&x') and use a matching format specifier.",
		},
	},
	{
		category:  "argument_count",
		keywords:  []string{"too few arguments", "too many arguments"},
		cause:     "A function is called with the wrong number of arguments.",
		rationale: "The number of arguments in a call must match the parameter list in the function's declaration.",
		suggestions: []string{
			"Compare the call with the function definition or prototype.",
			"Update the prototype if you changed the function's parameters.",
		},
	},
	{
		category:  "lvalue_error",
		keywords:  []string{"lvalue required", "lvalue"},
		cause:     "Something that cannot be assigned to appears on the left of '='.",
		rationale: "Only variables, array elements and dereferenced pointers can receive a value. Expressions, constants and function calls cannot.",
		suggestions: []string{
			"Put the variable on the left side of '=' and the expression on the right.",
			"Use '==' if you meant to compare rather than assign.",
		},
	},
	{
		category:  "redefinition",
		keywords:  []string{"redefinition", "redeclared", "conflicting types", "previous definition"},
		cause:     "The same name is defined more than once in the same scope.",
		rationale: "Each variable or function name may be defined only once per scope. Conflicting prototypes and definitions are reported the same way.",
		suggestions: []string{
			"Rename or remove the duplicate declaration.",
			"Make the function prototype match its definition exactly.",
		},
	},
}

var diagnosticLocation = regexp.MustCompile(`^[^:\s]*:(\d+):(?:\d+:)?\s*(?:fatal )?error:`)

// Explain maps a single diagnostic line to an explanation.
func Explain(diagnostic string) Explanation {
	diagnostic = strings.TrimSpace(diagnostic)
	lower := strings.ToLower(diagnostic)

	exp := Explanation{Diagnostic: diagnostic, Line: diagnosticLine(diagnostic)}
	for _, rule := range explanationRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				exp.Category = rule.category
				exp.Cause = rule.cause
				exp.Rationale = rule.rationale
				exp.Suggestions = append([]string(nil), rule.suggestions...)
				return exp
			}
		}
	}

	exp.Category = "general"
	exp.Cause = "The compiler could not understand part of the code."
	exp.Rationale = "The reported line, or the line just before it, contains something that is not valid C."
	exp.Suggestions = []string{
		"Read the compiler message and look at the reported line and the one above it.",
		"Fix the first error first; later errors are often caused by it.",
	}
	return exp
}

// ExplainAll explains every error line in raw compiler output.
func ExplainAll(stderr string) []Explanation {
	var out []Explanation
	for _, line := range strings.Split(stderr, "\n") {
		if strings.Contains(line, errorMarker) {
			out = append(out, Explain(line))
		}
	}
	return out
}

func diagnosticLine(diagnostic string) int {
	m := diagnosticLocation.FindStringSubmatch(diagnostic)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}
