package requirements

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractTriggersAndSemantics(t *testing.T) {
	req := Extract(
		"Write a program that reads 5 integers into an array and uses a loop to compute the sum.",
		"Use a recursive function to print the total. Add comments.",
	)

	require.True(t, req.Get(Arrays).Required)
	require.True(t, req.Get(Loops).Required)
	require.Equal(t, SemanticArrayIteration, req.Get(Loops).Semantic)
	require.True(t, req.Get(Functions).Required)
	require.Equal(t, SemanticRecursion, req.Get(Functions).Semantic)
	require.True(t, req.Get(Arithmetic).Required)
	require.True(t, req.Get(Comments).Required)
	require.True(t, req.Get(InputOutput).Required)
	require.False(t, req.Get(Switch).Required)
	require.False(t, req.Get(Pointers).Required)
}

func TestExtractUsesWordBoundaries(t *testing.T) {
	req := Extract("Describe the forecast for neither city.", "")
	// "neither" must not trigger "either".
	require.False(t, req.Get(LogicalOperators).Required)
	require.Empty(t, req.Required())
}

func TestExtractSpecificContentSkipsStopwords(t *testing.T) {
	req := Extract("Convert a temperature from celsius to fahrenheit.", "Write the program using printf.")
	require.True(t, req.SpecificContent.Contains("celsius"))
	require.True(t, req.SpecificContent.Contains("fahrenheit"))
	require.True(t, req.SpecificContent.Contains("temperature"))
	require.False(t, req.SpecificContent.Contains("program"))
	require.False(t, req.SpecificContent.Contains("printf"))
	require.LessOrEqual(t, req.SpecificContent.Cardinality(), maxSpecificKeywords)
}

const sumProgram = `#include <stdio.h>

// sum of an array
int sum(int *values, int n) {
    if (n == 0) {
        return 0;
    }
    return values[0] + sum(values + 1, n - 1);
}

int main(void) {
    int numbers[5];
    for (int i = 0; i < 5; i++) {
        scanf("%d", &numbers[i]);
    }
    printf("Total: %d\n", sum(numbers, 5));
    return 0;
}
`

func TestCheckCodeAllMet(t *testing.T) {
	req := Extract(
		"Write a program that reads 5 integers into an array and uses a loop to compute the sum.",
		"Use a recursive function to print the total. Add comments.",
	)
	report := CheckCode(sumProgram, req)

	require.Empty(t, report.Missing, report.Feedback)
	require.Equal(t, 100, report.Score)
	require.Contains(t, report.Feedback, "All required elements are present")
}

func TestCheckCodePartialScore(t *testing.T) {
	var req Requirements
	req.Set(IfElse, Requirement{Required: true})
	req.Set(Switch, Requirement{Required: true})

	report := CheckCode("int main(void) { int x = 1; if (x > 0) { x = 2; } return 0; }", req)

	// if_else (15) met, switch (10) missing.
	require.Equal(t, 60, report.Score)
	require.Equal(t, []string{"switch"}, report.Missing)
	require.Equal(t, []string{"if_else"}, report.Met)
	require.Contains(t, report.Feedback, "Missing requirements: switch")
}

func TestCheckCodeNothingRequired(t *testing.T) {
	report := CheckCode("int main(void) { return 0; }", Requirements{})
	require.Equal(t, 100, report.Score)
	require.Empty(t, report.Checks)
}

func TestRecursionSemanticNeedsSelfCall(t *testing.T) {
	var req Requirements
	req.Set(Functions, Requirement{Required: true, Semantic: SemanticRecursion})

	iterative := "int sq(int x) {\n    return x * x;\n}\nint main(void) { return sq(2); }\n"
	require.Equal(t, 0, CheckCode(iterative, req).Score)
	require.Equal(t, 100, CheckCode(sumProgram, req).Score)
}

func TestArithmeticIgnoresPointerDeclarations(t *testing.T) {
	var req Requirements
	req.Set(Arithmetic, Requirement{Required: true})

	require.Equal(t, 0, CheckCode("int main(void) { int *p; return 0; }", req).Score)
	require.Equal(t, 100, CheckCode("int main(void) { int a = 2; int b = a * 3; return b; }", req).Score)
}

func TestSpecificContentHalfThreshold(t *testing.T) {
	req := Extract("Convert celsius to fahrenheit.", "")
	report := CheckCode(`int main(void) { float celsius = 0; return 0; }`, req)

	var found bool
	for _, c := range report.Checks {
		if c.Name == SpecificContentName {
			found = true
			require.True(t, c.Met)
			require.Equal(t, 1, c.Count)
		}
	}
	require.True(t, found)
}
