package articulation

import "strings"

// escapeNormalizer resolves the literal escape sequences models leave in their
// answers. strings.Replacer makes a single left-to-right pass and, at each
// position, tries the pairs in argument order, so a resolved backslash is never
// consumed a second time: `\\n` becomes `\n`, not a backslash plus newline.
var escapeNormalizer = strings.NewReplacer(
	`\n`, "\n",
	`\t`, "\t",
	"\\`", "`",
	`\"`, `"`,
	`\\`, `\`,
)

// patternUnescaper undoes the JSON string escapes a regular expression capture
// still carries. It is the pattern fallback's stand-in for a JSON decoder.
var patternUnescaper = strings.NewReplacer(
	`\n`, "\n",
	`\"`, `"`,
	`\\`, `\`,
)

// NormalizeEscapes resolves \n, \t, \`, \" and \\ exactly once.
func NormalizeEscapes(s string) string {
	if strings.IndexByte(s, '\\') < 0 {
		return s
	}
	return escapeNormalizer.Replace(s)
}
