package db

import (
	"fmt"
	"strings"
	"unicode"
)

// TagFilter builds "@field:{v1 | v2 | ...}" with every value escaped.
func TagFilter(field string, values ...string) string {
	escaped := make([]string, len(values))
	for i, v := range values {
		escaped[i] = EscapeTag(v)
	}
	return fmt.Sprintf("@%s:{%s}", field, strings.Join(escaped, " | "))
}

// GeoFilter builds "@field:[lng lat radius km]".
func GeoFilter(field string, lng, lat float64, radiusKm string) string {
	return fmt.Sprintf("@%s:[%g %g %s km]", field, lng, lat, radiusKm)
}

// TextTerms splits free text the way the TEXT tokenizer splits indexed
// values: any rune that is not a letter or digit separates terms.
func TextTerms(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// TextFilter builds "@f1|f2:(t1 | t2)", matching documents that contain any
// of the terms. Terms must come from TextTerms; they carry no syntax characters.
func TextFilter(fields []string, terms []string) string {
	return fmt.Sprintf("@%s:(%s)", strings.Join(fields, "|"), strings.Join(terms, " | "))
}

// EscapeTag escapes a TAG value for query syntax.
func EscapeTag(s string) string {
	return tagEscaper.Replace(s)
}

var tagEscaper = strings.NewReplacer(
	`\`, `\\`,
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"[", "\\[",
	"]", "\\]",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	"|", "\\|",
	"/", "\\/",
	" ", "\\ ",
)
