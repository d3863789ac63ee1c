package analysis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-autograder/internal/grading/csource"
)

const squareProgram = `#include <stdio.h>

int main(void) {
    int n = 0;
    scanf("%d", &n);
    printf("%d\n", n * n);
    return 0;
}
`

func TestAnalyzeCorrectnessBounds(t *testing.T) {
	require.Equal(t, 100, AnalyzeCorrectness(squareProgram))
	require.Equal(t, 30, AnalyzeCorrectness("printf(\"hi\")\n"))
}

func TestPointerBonusIgnoresMultiplication(t *testing.T) {
	product := AnalyzeCorrectness("int width = 3;\nint area = width * width;\n")
	sum := AnalyzeCorrectness("int width = 3;\nint area = width + width;\n")
	require.Equal(t, sum, product)

	require.True(t, usesPointers(csource.Parse("int *p = NULL;\n")))
	require.True(t, usesPointers(csource.Parse("struct node *next;\n")))
	require.True(t, usesPointers(csource.Parse("x = *p;\n")))
	require.True(t, usesPointers(csource.Parse("scanf(\"%d\", &n);\n")))
	require.True(t, usesPointers(csource.Parse("n->next = 0;\n")))
	require.True(t, usesPointers(csource.Parse("buf = malloc(16);\n")))
	require.False(t, usesPointers(csource.Parse("int mask = a & b;\nint area = w * h;\n")))
}

func TestAnalyzeCleanProgram(t *testing.T) {
	report := New().Analyze(squareProgram, 2)

	require.Equal(t, 100, report.LogicScore)
	for _, cs := range report.Categories {
		require.Equal(t, 100, cs.Score, cs.Category)
	}
	require.False(t, report.Hardcoded)
	require.Empty(t, report.Notes)
	require.Equal(t, "Code length is appropriate (7 lines)", report.Feedback)
}

func TestAnalyzeControlFlowProblems(t *testing.T) {
	code := `int main(void) {
    int a = 5;
    int b = 0;
    if (a = 3) {
        printf("%d", a / b);
    }
    while (1) {
        a++;
    }
    return 0;
}
`
	report := New().Analyze(code, 2)

	require.Equal(t, 55, report.Category(CategoryControlFlow))
	require.Equal(t, 96, report.Category(CategoryVariables))
	require.Equal(t, 90, report.Category(CategoryQuality))
	require.Equal(t, 94, report.LogicScore)
	require.Contains(t, report.Feedback, "Control flow needs improvement")

	issues := strings.Join(report.Issues, "\n")
	require.Contains(t, issues, "'=' where '==' was probably intended")
	require.Contains(t, issues, "Division by 'b'")
	require.Contains(t, issues, "Loop has no exit condition")
}

func TestDivisionGuardedIsNotFlagged(t *testing.T) {
	src := csource.Parse("int f(int a, int b) {\n    if (b != 0) {\n        return a / b;\n    }\n    return 0;\n}\n")
	require.Zero(t, divisionByZero(src).Delta)
	require.Equal(t, -20, divisionByZero(csource.Parse("int x = 4 / 0;")).Delta)
}

func TestUninitializedUse(t *testing.T) {
	flagged := csource.Parse("int main(void) {\n    int total;\n    total += 5;\n    printf(\"%d\", total);\n    return 0;\n}\n")
	require.Equal(t, -10, uninitializedUse(flagged).Delta)

	scanned := csource.Parse("int main(void) {\n    int x;\n    scanf(\"%d\", &x);\n    printf(\"%d\", x);\n    return 0;\n}\n")
	require.Zero(t, uninitializedUse(scanned).Delta)
}

func TestUnusedAndSingleLetterVariables(t *testing.T) {
	src := csource.Parse("int main(void) {\n    int q = 1;\n    int count = 2;\n    return count;\n}\n")
	require.Equal(t, -5, unusedVariables(src).Delta)
	require.Equal(t, -2, singleLetterNames(src).Delta)
}

func TestHardcodedOutputWarnsWithoutPenalty(t *testing.T) {
	code := "#include <stdio.h>\nint main(void) {\n    printf(\"25\\n\");\n    return 0;\n}\n"
	report := New().Analyze(code, 1)

	require.True(t, report.Hardcoded)
	require.NotEmpty(t, report.Warnings)
	require.Equal(t, 100, report.Category(CategoryAlgorithm))
}

func TestEmptyMain(t *testing.T) {
	report := New().Analyze("int main(void) {\n    return 0;\n}\n", 0)
	require.Equal(t, 70, report.Category(CategoryAlgorithm))
}

func TestMemorySafety(t *testing.T) {
	leaky := csource.Parse("int main(void) {\n    int *p = malloc(10 * sizeof(int));\n    p[0] = 1;\n    return 0;\n}\n")
	f := memorySafety(leaky)
	require.Equal(t, -25, f.Delta)
	require.Contains(t, strings.Join(f.Issues, " "), "memory may leak")

	careful := csource.Parse("int main(void) {\n    int *p = malloc(4);\n    if (p == NULL) {\n        return 1;\n    }\n    free(p);\n    return 0;\n}\n")
	require.Equal(t, 10, memorySafety(careful).Delta)
}

func TestArrayBoundsAndLoopBounds(t *testing.T) {
	src := csource.Parse("int main(void) {\n    int arr[5];\n    arr[5] = 1;\n    for (int i = 0; i <= 5; i++) {\n        arr[i] = i;\n    }\n    return 0;\n}\n")
	require.Equal(t, -10, arrayIndexBounds(src).Delta)
	require.Equal(t, -10, loopBounds(src).Delta)

	good := csource.Parse("int main(void) {\n    int arr[5];\n    for (int i = 0; i < 5; i++) {\n        arr[i] = i;\n    }\n    return arr[4];\n}\n")
	require.Zero(t, arrayIndexBounds(good).Delta)
	require.Equal(t, 5, loopBounds(good).Delta)
}

func TestSwitchFallthrough(t *testing.T) {
	src := csource.Parse(`int main(void) {
    int x = 1, y = 0;
    switch (x) {
        case 1:
            y = 1;
        case 2:
            y = 2;
            break;
    }
    return y;
}
`)
	f := switchFallthrough(src)
	require.Equal(t, -10, f.Delta)
	require.Len(t, f.Issues, 2)
}

func TestUnreachableAfterReturn(t *testing.T) {
	src := csource.Parse("int f(void) {\n    return 1;\n    printf(\"never\");\n}\n")
	require.Equal(t, -10, unreachableAfterReturn(src).Delta)
}

func TestRecursionBonus(t *testing.T) {
	src := csource.Parse("int fact(int n) {\n    if (n <= 1) {\n        return 1;\n    }\n    return n * fact(n - 1);\n}\n")
	require.Equal(t, 5, recursionPattern(src).Delta)
}

func TestRuleDeltaIsBounded(t *testing.T) {
	harsh := Rule{
		Name:     "harsh",
		Category: CategoryQuality,
		Limit:    10,
		Apply:    func(*csource.Source) Finding { return Finding{Delta: -500} },
	}
	report := New(harsh).Analyze(squareProgram, 2)
	require.Equal(t, 90, report.Category(CategoryQuality))
	require.Equal(t, 100, report.LogicScore)

	floor := Rule{
		Name:     "floor",
		Category: CategoryAlgorithm,
		Limit:    200,
		Apply:    func(*csource.Source) Finding { return Finding{Delta: -150} },
	}
	report = New(floor).Analyze(squareProgram, 2)
	require.Equal(t, 0, report.Category(CategoryAlgorithm))
	require.Equal(t, 55, report.LogicScore)
	require.Contains(t, report.Feedback, "Algorithm structure needs improvement")
}

func TestMissingReturnZeroNote(t *testing.T) {
	report := New().Analyze("int main(void) {\n    int x = 1;\n    printf(\"%d\", x);\n}\n", 1)
	require.Contains(t, report.Notes, "main should end with 'return 0;'")
}

func TestLengthWindow(t *testing.T) {
	lo, hi := LengthWindow(1)
	require.Equal(t, [2]int{5, 40}, [2]int{lo, hi})
	lo, hi = LengthWindow(4)
	require.Equal(t, [2]int{10, 80}, [2]int{lo, hi})
	lo, hi = LengthWindow(9)
	require.Equal(t, [2]int{20, 150}, [2]int{lo, hi})

	require.Contains(t, lengthMessage(3, 1), "too short")
	require.Contains(t, lengthMessage(200, 9), "longer than expected")
}
