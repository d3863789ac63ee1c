// Package requirements reads an activity's description and instructions for
// the C constructs it asks for and checks a submission against them.
package requirements

import (
	"regexp"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// Construct is one C language feature an activity can demand.
type Construct int

const (
	IfElse Construct = iota
	Loops
	Functions
	Arrays
	Pointers
	Switch
	InputOutput
	Variables
	Comments
	ReturnStatement
	MainFunction
	IncludeStdio
	Arithmetic
	Comparison
	LogicalOperators

	numConstructs
)

var constructNames = [numConstructs]string{
	IfElse:           "if_else",
	Loops:            "loops",
	Functions:        "functions",
	Arrays:           "arrays",
	Pointers:         "pointers",
	Switch:           "switch",
	InputOutput:      "input_output",
	Variables:        "variables",
	Comments:         "comments",
	ReturnStatement:  "return_statement",
	MainFunction:     "main_function",
	IncludeStdio:     "include_stdio",
	Arithmetic:       "arithmetic",
	Comparison:       "comparison",
	LogicalOperators: "logical_operators",
}

func (c Construct) String() string {
	if c < 0 || c >= numConstructs {
		return "unknown"
	}
	return constructNames[c]
}

// AllConstructs lists every construct in table order.
func AllConstructs() []Construct {
	out := make([]Construct, numConstructs)
	for i := range out {
		out[i] = Construct(i)
	}
	return out
}

// SpecificContentName is the report name of the free-text keyword check.
const SpecificContentName = "specific_content"

// Semantic tags refine what a construct is used for.
const (
	SemanticArrayIteration  = "array_iteration"
	SemanticAccumulation    = "accumulation"
	SemanticCounting        = "counting"
	SemanticRecursion       = "recursion"
	SemanticValueReturning  = "value_returning"
	SemanticSorting         = "sorting"
	SemanticSearching       = "searching"
	SemanticDynamicMemory   = "dynamic_memory"
	SemanticPassByReference = "pass_by_reference"
	SemanticParityCheck     = "parity_check"
	SemanticMaxSelection    = "max_selection"
	SemanticGradingScale    = "grading_scale"
	SemanticUserInput       = "user_input"
	SemanticMenu            = "menu"
)

// Requirement says whether a construct is demanded and, optionally, how.
type Requirement struct {
	Required bool
	Semantic string
}

// Requirements is the set of constructs an activity asks for. It is built
// once per grading run and not stored.
type Requirements struct {
	constructs      [numConstructs]Requirement
	SpecificContent mapset.Set[string]
}

// Get returns the requirement for c.
func (r Requirements) Get(c Construct) Requirement {
	if c < 0 || c >= numConstructs {
		return Requirement{}
	}
	return r.constructs[c]
}

// Set replaces the requirement for c.
func (r *Requirements) Set(c Construct, req Requirement) {
	if c >= 0 && c < numConstructs {
		r.constructs[c] = req
	}
}

// Required lists the demanded constructs in table order.
func (r Requirements) Required() []Construct {
	var out []Construct
	for _, c := range AllConstructs() {
		if r.constructs[c].Required {
			out = append(out, c)
		}
	}
	return out
}

var triggers = [numConstructs][]string{
	IfElse:           {"if statement", "if-else", "if else", "if/else", "else if", "conditional", "condition", "conditions", "decision", "decide", "branch", "check whether", "check if", "determine whether", "determine if"},
	Loops:            {"loop", "loops", "for loop", "while loop", "do-while", "iterate", "iterates", "iteration", "repeat", "repeatedly", "each element", "one by one"},
	Functions:        {"function", "functions", "user-defined function", "subroutine", "procedure", "modular", "recursive", "recursion"},
	Arrays:           {"array", "arrays", "matrix", "list of numbers", "list of integers", "elements"},
	Pointers:         {"pointer", "pointers", "address of", "memory address", "dereference", "malloc", "dynamic memory", "pass by reference"},
	Switch:           {"switch", "switch-case", "switch case", "case statement", "menu"},
	InputOutput:      {"input", "output", "read", "reads", "print", "prints", "display", "displays", "scanf", "printf", "user enters", "prompt"},
	Variables:        {"variable", "variables", "store", "stores", "declare"},
	Comments:         {"comment", "comments", "document your code", "explain your code"},
	ReturnStatement:  {"return", "returns", "return value"},
	MainFunction:     {"main function", "main()", "int main"},
	IncludeStdio:     {"stdio", "stdio.h", "#include", "header file"},
	Arithmetic:       {"calculate", "calculates", "compute", "computes", "sum", "add", "subtract", "multiply", "divide", "average", "arithmetic", "product", "remainder", "modulo", "difference"},
	Comparison:       {"compare", "compares", "greater than", "less than", "equal to", "maximum", "minimum", "largest", "smallest", "larger", "smaller", "bigger"},
	LogicalOperators: {"logical operator", "logical operators", "and operator", "or operator", "&&", "||", "both conditions", "either", "logical"},
}

var triggerPatterns = func() [numConstructs][]*regexp.Regexp {
	var out [numConstructs][]*regexp.Regexp
	for c, phrases := range triggers {
		for _, p := range phrases {
			out[c] = append(out[c], phrasePattern(p))
		}
	}
	return out
}()

func phrasePattern(phrase string) *regexp.Regexp {
	return regexp.MustCompile(`(?:^|[^a-z0-9_])` + regexp.QuoteMeta(phrase) + `(?:$|[^a-z0-9_])`)
}

type semanticRule struct {
	construct Construct
	tag       string
	mentions  []string
}

// First matching rule per construct wins.
var semanticRules = []semanticRule{
	{Loops, SemanticArrayIteration, []string{"array", "elements", "each element"}},
	{Loops, SemanticAccumulation, []string{"sum", "total", "accumulate"}},
	{Loops, SemanticCounting, []string{"count", "how many"}},
	{Functions, SemanticRecursion, []string{"recursive", "recursion", "recursively"}},
	{Functions, SemanticValueReturning, []string{"return", "returns"}},
	{Arrays, SemanticSorting, []string{"sort", "sorted", "sorting", "ascending", "descending"}},
	{Arrays, SemanticSearching, []string{"search", "find", "locate"}},
	{Pointers, SemanticDynamicMemory, []string{"malloc", "calloc", "dynamic memory", "dynamically"}},
	{Pointers, SemanticPassByReference, []string{"swap", "pass by reference", "by reference"}},
	{IfElse, SemanticParityCheck, []string{"even", "odd"}},
	{IfElse, SemanticMaxSelection, []string{"maximum", "largest", "greatest"}},
	{IfElse, SemanticGradingScale, []string{"grade", "letter grade", "score"}},
	{InputOutput, SemanticUserInput, []string{"scanf", "user enters", "input", "read"}},
	{Switch, SemanticMenu, []string{"menu", "option", "choice"}},
}

var semanticPatterns = func() [][]*regexp.Regexp {
	out := make([][]*regexp.Regexp, len(semanticRules))
	for i, rule := range semanticRules {
		for _, m := range rule.mentions {
			out[i] = append(out[i], phrasePattern(m))
		}
	}
	return out
}()

const maxSpecificKeywords = 10

var (
	keywordPattern = regexp.MustCompile(`[a-z]{4,}`)

	stopwords = mapset.NewSet(
		"about", "after", "allow", "also", "array", "arrays", "based", "before", "between", "both",
		"calculate", "char", "character", "check", "code", "compute", "condition", "console", "could",
		"create", "data", "declare", "define", "description", "display", "does", "double", "each",
		"element", "elements", "else", "enter", "entered", "equal", "every", "example", "first",
		"float", "following", "from", "function", "functions", "given", "have", "implement",
		"include", "input", "inputs", "instructions", "integer", "integers", "into", "less", "like",
		"loop", "loops", "main", "make", "message", "more", "must", "need", "needs", "number",
		"numbers", "only", "other", "output", "outputs", "over", "pointer", "pointers", "print",
		"prints", "printf", "program", "programs", "prompt", "read", "reads", "result", "results",
		"return", "returns", "scanf", "screen", "second", "should", "show", "some", "statement",
		"statements", "stdio", "store", "string", "strings", "student", "students", "such", "sure",
		"task", "than", "that", "their", "them", "then", "there", "these", "they", "this", "those",
		"through", "type", "types", "under", "until", "user", "users", "using", "value", "values",
		"variable", "variables", "what", "when", "where", "whether", "which", "while", "will",
		"with", "would", "write", "your", "activity", "simple", "basic", "correct", "correctly",
		"below", "above", "once", "finally", "uses", "used", "convert", "converts",
	)
)

// Extract reads description and instructions for demanded constructs and
// specific content keywords.
func Extract(description, instructions string) Requirements {
	text := strings.ToLower(strings.TrimSpace(description + "\n" + instructions))

	var req Requirements
	for c := range triggerPatterns {
		for _, re := range triggerPatterns[c] {
			if re.MatchString(text) {
				req.constructs[c].Required = true
				break
			}
		}
	}

	for i, rule := range semanticRules {
		target := &req.constructs[rule.construct]
		if !target.Required || target.Semantic != "" {
			continue
		}
		for _, re := range semanticPatterns[i] {
			if re.MatchString(text) {
				target.Semantic = rule.tag
				break
			}
		}
	}

	req.SpecificContent = specificKeywords(text)
	return req
}

func specificKeywords(text string) mapset.Set[string] {
	set := mapset.NewSet[string]()
	for _, word := range keywordPattern.FindAllString(text, -1) {
		if set.Cardinality() >= maxSpecificKeywords {
			break
		}
		if stopwords.Contains(word) || isTriggerWord(word) {
			continue
		}
		set.Add(word)
	}
	return set
}

var triggerWords = func() mapset.Set[string] {
	set := mapset.NewSet[string]()
	for _, phrases := range triggers {
		for _, p := range phrases {
			for _, w := range strings.Fields(p) {
				set.Add(w)
			}
		}
	}
	return set
}()

func isTriggerWord(word string) bool {
	return triggerWords.Contains(word)
}
