package service

import (
	"fmt"
	"strings"
	"unicode"
)

// buildStudentCode derives the unique student code: a grade prefix, a
// disambiguating fragment (numeric national ID when available, otherwise
// three alphanumeric characters of the first name), and a millisecond
// counter. Batch callers offset the counter per row so two identical rows
// created in the same millisecond still get distinct codes.
func buildStudentCode(grade, dni, firstName string, millis int64) string {
	prefix := []rune(strings.ToUpper(grade))
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}

	fragment := dni
	if !isNumeric(dni) {
		fragment = nameFragment(firstName)
	}

	return fmt.Sprintf("%s-%s-%d", string(prefix), fragment, millis)
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func nameFragment(name string) string {
	var b strings.Builder
	count := 0
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
			count++
			if count == 3 {
				break
			}
		}
	}
	return b.String()
}
