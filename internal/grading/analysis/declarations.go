package analysis

import (
	"regexp"
	"strings"

	"github.com/noah-isme/gema-autograder/internal/grading/csource"
)

type declaration struct {
	name        string
	initialized bool
	array       bool
	pointer     bool
	// end is the byte offset in Bare just past the declaration.
	end int
}

var (
	declStatement = regexp.MustCompile(`\b(?:const\s+)?(?:(?:unsigned|signed)\s+)?(?:int|float|double|char|long|short|bool|size_t)\s+([^;(){}]+);`)
	declarator    = regexp.MustCompile(`^(?:(?:long|int|short|double)\s+)*(\**)\s*([A-Za-z_]\w*)\s*(\[[^\]]*\])?\s*(=.*)?$`)
)

// declarations finds simple variable declarations outside parameter lists.
func declarations(src *csource.Source) []declaration {
	var out []declaration
	for _, loc := range declStatement.FindAllStringSubmatchIndex(src.Bare, -1) {
		list := src.Bare[loc[2]:loc[3]]
		for _, part := range strings.Split(list, ",") {
			m := declarator.FindStringSubmatch(strings.TrimSpace(part))
			if m == nil {
				continue
			}
			out = append(out, declaration{
				name:        m[2],
				pointer:     m[1] != "",
				array:       m[3] != "",
				initialized: m[4] != "",
				end:         loc[1],
			})
		}
	}
	return out
}

// usageCount counts word-bounded occurrences of name in Bare.
func usageCount(src *csource.Source, name string) int {
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\b`)
	return len(re.FindAllStringIndex(src.Bare, -1))
}

// readBeforeWrite reports whether the first use of d after its declaration
// reads the value rather than assigning it or taking its address.
func readBeforeWrite(src *csource.Source, d declaration) bool {
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(d.name) + `\b`)
	rest := src.Bare[d.end:]
	for _, loc := range re.FindAllStringIndex(rest, -1) {
		before := strings.TrimRight(rest[:loc[0]], " \t")
		if strings.HasSuffix(before, ".") || strings.HasSuffix(before, "->") {
			continue
		}
		if strings.HasSuffix(before, "&") && !strings.HasSuffix(before, "&&") {
			return false
		}
		after := strings.TrimLeft(rest[loc[1]:], " \t")
		if strings.HasPrefix(after, "=") && !strings.HasPrefix(after, "==") {
			return false
		}
		return true
	}
	return false
}
