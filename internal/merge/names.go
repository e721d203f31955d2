package merge

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// ContractName derives the type name used for {{CONTRACT_NAME}}: separators
// are removed and each word is capitalised, so "my-token project" becomes
// "MyTokenProject". Leading digits are dropped since identifiers cannot
// start with one.
func ContractName(project string) string {
	project = strings.TrimLeftFunc(project, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	words := strings.FieldsFunc(project, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	var b strings.Builder
	for _, word := range words {
		first, size := utf8.DecodeRuneInString(word)
		b.WriteRune(unicode.ToUpper(first))
		b.WriteString(word[size:])
	}
	return b.String()
}

// OutputPath strips the template suffix from a file path.
func OutputPath(path string) string {
	return strings.TrimSuffix(path, TemplateSuffix)
}
