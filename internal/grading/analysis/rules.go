package analysis

import "github.com/noah-isme/gema-autograder/internal/grading/csource"

// Category groups rules into one weighted logic sub-score.
type Category string

const (
	CategoryAlgorithm   Category = "algorithm_structure"
	CategoryVariables   Category = "variable_management"
	CategoryControlFlow Category = "control_flow"
	CategoryQuality     Category = "code_quality"
)

// Weights of each category in the logic score. They sum to 1.05, so the
// weighted sum is clamped.
var categoryWeights = map[Category]float64{
	CategoryAlgorithm:   0.50,
	CategoryVariables:   0.30,
	CategoryControlFlow: 0.20,
	CategoryQuality:     0.05,
}

var categoryOrder = []Category{CategoryAlgorithm, CategoryVariables, CategoryControlFlow, CategoryQuality}

// Label is the human-readable category name.
func (c Category) Label() string {
	switch c {
	case CategoryAlgorithm:
		return "Algorithm structure"
	case CategoryVariables:
		return "Variable management"
	case CategoryControlFlow:
		return "Control flow"
	case CategoryQuality:
		return "Code quality"
	default:
		return string(c)
	}
}

// Finding is what one rule reports. Delta is added to the category score
// after being bounded by the rule's Limit. Warnings do not affect the score.
type Finding struct {
	Delta    int
	Issues   []string
	Warnings []string
}

// Rule is a pure scoring function over parsed source.
type Rule struct {
	Name     string
	Category Category
	// Limit bounds |Delta|.
	Limit int
	Apply func(src *csource.Source) Finding
}

func (r Rule) evaluate(src *csource.Source) Finding {
	f := r.Apply(src)
	if f.Delta > r.Limit {
		f.Delta = r.Limit
	}
	if f.Delta < -r.Limit {
		f.Delta = -r.Limit
	}
	return f
}

// DefaultRules is the rule set used by Analyze.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "nesting", Category: CategoryAlgorithm, Limit: 35, Apply: nestingConsistency},
		{Name: "unreachable_code", Category: CategoryAlgorithm, Limit: 20, Apply: unreachableAfterReturn},
		{Name: "sorting_pattern", Category: CategoryAlgorithm, Limit: 5, Apply: sortingPattern},
		{Name: "searching_pattern", Category: CategoryAlgorithm, Limit: 5, Apply: searchingPattern},
		{Name: "recursion_pattern", Category: CategoryAlgorithm, Limit: 5, Apply: recursionPattern},
		{Name: "empty_main", Category: CategoryAlgorithm, Limit: 30, Apply: emptyMain},
		{Name: "hardcoded_output", Category: CategoryAlgorithm, Limit: 0, Apply: hardcodedOutput},

		{Name: "uninitialized_use", Category: CategoryVariables, Limit: 30, Apply: uninitializedUse},
		{Name: "unused_variables", Category: CategoryVariables, Limit: 15, Apply: unusedVariables},
		{Name: "single_letter_names", Category: CategoryVariables, Limit: 10, Apply: singleLetterNames},
		{Name: "memory_safety", Category: CategoryVariables, Limit: 25, Apply: memorySafety},
		{Name: "array_bounds", Category: CategoryVariables, Limit: 20, Apply: arrayIndexBounds},

		{Name: "infinite_loops", Category: CategoryControlFlow, Limit: 30, Apply: infiniteLoops},
		{Name: "loop_bounds", Category: CategoryControlFlow, Limit: 20, Apply: loopBounds},
		{Name: "assignment_in_condition", Category: CategoryControlFlow, Limit: 30, Apply: assignmentInCondition},
		{Name: "division_by_zero", Category: CategoryControlFlow, Limit: 20, Apply: divisionByZero},
		{Name: "switch_fallthrough", Category: CategoryControlFlow, Limit: 15, Apply: switchFallthrough},

		{Name: "comments", Category: CategoryQuality, Limit: 10, Apply: commentStyle},
		{Name: "line_length", Category: CategoryQuality, Limit: 10, Apply: lineLength},
		{Name: "indentation", Category: CategoryQuality, Limit: 25, Apply: indentationStyle},
	}
}
