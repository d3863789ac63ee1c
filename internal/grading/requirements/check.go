package requirements

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/noah-isme/gema-autograder/internal/grading/csource"
)

// Points is the weight each satisfied requirement contributes.
var Points = map[string]int{
	IfElse.String():           15,
	InputOutput.String():      10,
	Variables.String():        10,
	MainFunction.String():     10,
	IncludeStdio.String():     5,
	ReturnStatement.String():  8,
	LogicalOperators.String(): 5,
	Loops.String():            10,
	Functions.String():        10,
	Arrays.String():           10,
	Pointers.String():         10,
	Switch.String():           10,
	Comments.String():         5,
	Arithmetic.String():       5,
	Comparison.String():       5,
	SpecificContentName:       5,
}

// Check is the outcome of one requirement detector.
type Check struct {
	Name        string `json:"name"`
	Semantic    string `json:"semantic,omitempty"`
	Met         bool   `json:"met"`
	Count       int    `json:"count"`
	Points      int    `json:"points"`
	Description string `json:"description"`
}

// Report summarises how well code satisfies a Requirements set.
type Report struct {
	Score    int      `json:"score"`
	Checks   []Check  `json:"checks"`
	Missing  []string `json:"missing"`
	Met      []string `json:"met"`
	Feedback string   `json:"feedback"`
}

type detection struct {
	met   bool
	count int
	desc  string
}

type detector func(src *csource.Source, semantic string) detection

var (
	ifPattern          = regexp.MustCompile(`\bif\s*\(`)
	loopPattern        = regexp.MustCompile(`\b(?:for|while)\s*\(|\bdo\s*\{`)
	arrayDeclPattern   = regexp.MustCompile(`\b(?:int|float|double|char|long|short|unsigned|bool)\s+[A-Za-z_]\w*\s*\[`)
	pointerDeclPattern = regexp.MustCompile(`\b(?:int|float|double|char|void|long|short|bool|struct\s+\w+)\s*\*+\s*[A-Za-z_]\w*`)
	allocPattern       = regexp.MustCompile(`\b(?:malloc|calloc|realloc)\s*\(`)
	switchPattern      = regexp.MustCompile(`\bswitch\s*\(`)
	inputPattern       = regexp.MustCompile(`\b(?:scanf|getchar|fgets|gets|getline)\s*\(`)
	outputPattern      = regexp.MustCompile(`\b(?:printf|puts|putchar|fputs|fprintf)\s*\(`)
	varDeclPattern     = regexp.MustCompile(`\b(?:int|float|double|char|long|short|unsigned|bool|size_t)\s+\**[A-Za-z_]\w*\s*(?:=|;|,|\[)`)
	returnPattern      = regexp.MustCompile(`\breturn\b`)
	mainPattern        = regexp.MustCompile(`\bmain\s*\(`)
	stdioPattern       = regexp.MustCompile(`#\s*include\s*<stdio\.h>`)
)

var typeWords = map[string]bool{
	"int": true, "float": true, "double": true, "char": true, "void": true, "long": true,
	"short": true, "unsigned": true, "signed": true, "const": true, "bool": true, "size_t": true,
	"return": true, "struct": true,
}

var detectors = [numConstructs]detector{
	IfElse: func(src *csource.Source, _ string) detection {
		n := src.Count(ifPattern)
		return detection{n > 0, n, fmt.Sprintf("%d if statement(s)", n)}
	},
	Loops: func(src *csource.Source, _ string) detection {
		n := src.Count(loopPattern)
		return detection{n > 0, n, fmt.Sprintf("%d loop(s)", n)}
	},
	Functions: func(src *csource.Source, semantic string) detection {
		names := userFunctions(src)
		if semantic == SemanticRecursion {
			recursive := 0
			for _, name := range names {
				if src.IsRecursive(name) {
					recursive++
				}
			}
			return detection{recursive > 0, recursive, fmt.Sprintf("%d recursive function(s)", recursive)}
		}
		return detection{len(names) > 0, len(names), fmt.Sprintf("%d function(s) besides main", len(names))}
	},
	Arrays: func(src *csource.Source, _ string) detection {
		n := src.Count(arrayDeclPattern)
		return detection{n > 0, n, fmt.Sprintf("%d array declaration(s)", n)}
	},
	Pointers: func(src *csource.Source, semantic string) detection {
		n := src.Count(pointerDeclPattern)
		if semantic == SemanticDynamicMemory {
			allocs := src.Count(allocPattern)
			return detection{allocs > 0, allocs, fmt.Sprintf("%d dynamic allocation(s)", allocs)}
		}
		return detection{n > 0, n, fmt.Sprintf("%d pointer declaration(s)", n)}
	},
	Switch: func(src *csource.Source, _ string) detection {
		n := src.Count(switchPattern)
		return detection{n > 0, n, fmt.Sprintf("%d switch statement(s)", n)}
	},
	InputOutput: func(src *csource.Source, semantic string) detection {
		in := src.Count(inputPattern)
		out := src.Count(outputPattern)
		met := out > 0
		if semantic == SemanticUserInput {
			met = in > 0 && out > 0
		}
		return detection{met, in + out, fmt.Sprintf("%d input and %d output call(s)", in, out)}
	},
	Variables: func(src *csource.Source, _ string) detection {
		n := src.Count(varDeclPattern)
		return detection{n > 0, n, fmt.Sprintf("%d variable declaration(s)", n)}
	},
	Comments: func(src *csource.Source, _ string) detection {
		n := src.Comments
		return detection{n > 0, n, fmt.Sprintf("%d comment(s)", n)}
	},
	ReturnStatement: func(src *csource.Source, _ string) detection {
		n := src.Count(returnPattern)
		return detection{n > 0, n, fmt.Sprintf("%d return statement(s)", n)}
	},
	MainFunction: func(src *csource.Source, _ string) detection {
		n := src.Count(mainPattern)
		return detection{n > 0, n, "main function present"}
	},
	IncludeStdio: func(src *csource.Source, _ string) detection {
		n := len(stdioPattern.FindAllStringIndex(src.Code, -1))
		return detection{n > 0, n, "stdio.h included"}
	},
	Arithmetic: func(src *csource.Source, _ string) detection {
		n := arithmeticOps(src)
		return detection{n > 0, n, fmt.Sprintf("%d arithmetic operation(s)", n)}
	},
	Comparison: func(src *csource.Source, _ string) detection {
		n := src.CountPunct("==", "!=", "<=", ">=", "<", ">")
		return detection{n > 0, n, fmt.Sprintf("%d comparison(s)", n)}
	},
	LogicalOperators: func(src *csource.Source, _ string) detection {
		n := src.CountPunct("&&", "||")
		return detection{n > 0, n, fmt.Sprintf("%d logical operator(s)", n)}
	},
}

// CheckCode runs the detector of every required construct against code and
// scores the result as met points over required points.
func CheckCode(code string, req Requirements) Report {
	src := csource.Parse(code)

	var (
		report         Report
		totalPoints    int
		achievedPoints int
	)

	for _, c := range req.Required() {
		r := req.Get(c)
		d := detectors[c](src, r.Semantic)
		check := Check{
			Name:        c.String(),
			Semantic:    r.Semantic,
			Met:         d.met,
			Count:       d.count,
			Points:      Points[c.String()],
			Description: d.desc,
		}
		report.Checks = append(report.Checks, check)
		totalPoints += check.Points
		if check.Met {
			achievedPoints += check.Points
			report.Met = append(report.Met, check.Name)
		} else {
			report.Missing = append(report.Missing, check.Name)
		}
	}

	if req.SpecificContent != nil && req.SpecificContent.Cardinality() > 0 {
		check := specificContent(src, req)
		report.Checks = append(report.Checks, check)
		totalPoints += check.Points
		if check.Met {
			achievedPoints += check.Points
			report.Met = append(report.Met, check.Name)
		} else {
			report.Missing = append(report.Missing, check.Name)
		}
	}

	if totalPoints == 0 {
		report.Score = 100
		report.Feedback = "No specific requirements detected for this activity"
		return report
	}

	report.Score = int(math.Round(float64(achievedPoints) / float64(totalPoints) * 100))
	report.Feedback = feedback(report)
	return report
}

func specificContent(src *csource.Source, req Requirements) Check {
	lower := strings.ToLower(src.Raw)
	keywords := req.SpecificContent.ToSlice()
	matched := 0
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			matched++
		}
	}
	return Check{
		Name:        SpecificContentName,
		Met:         matched*2 >= len(keywords),
		Count:       matched,
		Points:      Points[SpecificContentName],
		Description: fmt.Sprintf("%d of %d activity keyword(s) found", matched, len(keywords)),
	}
}

func feedback(r Report) string {
	if len(r.Missing) == 0 {
		return "All required elements are present: " + strings.Join(r.Met, ", ")
	}
	msg := "Missing requirements: " + strings.Join(r.Missing, ", ")
	if len(r.Met) > 0 {
		msg += ". Met requirements: " + strings.Join(r.Met, ", ")
	}
	return msg
}

func userFunctions(src *csource.Source) []string {
	var names []string
	for _, name := range src.FunctionNames() {
		if name != "main" {
			names = append(names, name)
		}
	}
	return names
}

func arithmeticOps(src *csource.Source) int {
	n := 0
	toks := src.Tokens
	for i, tok := range toks {
		if tok.Kind != csource.Punct {
			continue
		}
		switch tok.Text {
		case "+=", "-=", "*=", "/=", "%=":
			n++
		case "+", "-", "*", "/", "%":
			if i == 0 || i+1 >= len(toks) {
				continue
			}
			prev := toks[i-1]
			operand := prev.Kind == csource.Int || prev.Kind == csource.Float ||
				(prev.Kind == csource.Ident && !typeWords[prev.Text]) ||
				(prev.Kind == csource.Punct && (prev.Text == ")" || prev.Text == "]"))
			if operand {
				n++
			}
		}
	}
	return n
}
