// Package similarity compares a submission with its peers after erasing
// identifier names and literal values, so renamed copies still match.
package similarity

import (
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/noah-isme/gema-autograder/internal/grading/csource"
)

// Placeholder tokens.
const (
	TokenIdent  = "ID"
	TokenString = "STR"
	TokenChar   = "CHR"
	TokenInt    = "NUM"
	TokenFloat  = "FLOAT"
	TokenLoop   = "LOOP"
	TokenCond   = "COND"
	TokenElif   = "ELIF"
	TokenSwitch = "SWITCH"
)

var keywords = mapset.NewSet(
	"auto", "break", "case", "char", "const", "continue", "default", "double", "else", "enum",
	"extern", "float", "goto", "int", "long", "register", "return", "short", "signed", "sizeof",
	"static", "struct", "typedef", "union", "unsigned", "void", "volatile", "bool", "true",
	"false", "NULL", "main", "size_t",
)

var stdlib = mapset.NewSet(
	"printf", "scanf", "puts", "gets", "fgets", "getchar", "putchar", "fprintf", "fscanf",
	"sprintf", "sscanf", "malloc", "calloc", "realloc", "free", "strlen", "strcpy", "strncpy",
	"strcmp", "strncmp", "strcat", "strchr", "strstr", "memset", "memcpy", "abs", "fabs",
	"sqrt", "pow", "exp", "log", "floor", "ceil", "round", "sin", "cos", "tan", "rand", "srand",
	"time", "exit", "atoi", "atof", "toupper", "tolower", "isdigit", "isalpha", "isspace",
	"qsort", "bsearch", "fopen", "fclose", "stdin", "stdout", "stderr", "EOF",
)

var algorithmVocabulary = mapset.NewSet(
	"sort", "bubble", "bubble_sort", "bubbleSort", "selection", "insertion", "merge", "quick",
	"quicksort", "partition", "pivot", "swap", "search", "binary", "linear", "find", "min",
	"max", "minimum", "maximum", "sum", "average", "mean", "count", "factorial", "fibonacci",
	"fib", "gcd", "lcm", "prime", "power", "recursive", "reverse", "palindrome", "temp",
)

// IsPreserved reports whether name survives normalization unchanged.
func IsPreserved(name string) bool {
	return keywords.Contains(name) || stdlib.Contains(name) || algorithmVocabulary.Contains(name)
}

// Normalize rewrites code into its canonical token form, one source line per
// output line. Comments and all directives except #include are removed.
func Normalize(code string) string {
	tokens := csource.Tokenize(code)

	var (
		lines   []string
		current []string
		line    = -1
	)
	flush := func() {
		if len(current) > 0 {
			lines = append(lines, strings.Join(current, " "))
			current = current[:0]
		}
	}

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if tok.Line != line {
			flush()
			line = tok.Line
		}

		switch tok.Kind {
		case csource.Directive:
			fields := strings.Fields(tok.Text)
			if strings.HasPrefix(strings.Join(fields, ""), "#include") {
				current = append(current, strings.Join(fields, " "))
			}
		case csource.String:
			current = append(current, TokenString)
		case csource.Char:
			current = append(current, TokenChar)
		case csource.Int:
			current = append(current, TokenInt)
		case csource.Float:
			current = append(current, TokenFloat)
		case csource.Ident:
			switch tok.Text {
			case "for", "while", "do":
				current = append(current, TokenLoop)
			case "if":
				current = append(current, TokenCond)
			case "switch":
				current = append(current, TokenSwitch)
			case "else":
				if i+1 < len(tokens) && tokens[i+1].Text == "if" {
					current = append(current, TokenElif)
					i++
				} else {
					current = append(current, "else")
				}
			default:
				if IsPreserved(tok.Text) {
					current = append(current, tok.Text)
				} else {
					current = append(current, TokenIdent)
				}
			}
		default:
			current = append(current, tok.Text)
		}
	}
	flush()

	return strings.Join(lines, "\n")
}
