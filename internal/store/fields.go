package store

import "strings"

// Delimiter separates fields on a record line.
const Delimiter = '|'

var fieldEscaper = strings.NewReplacer(
	`\`, `\\`,
	`|`, `\|`,
	"\n", `\n`,
	"\r", `\r`,
)

// EscapeField makes a value safe to place between delimiters on one line.
func EscapeField(s string) string {
	return fieldEscaper.Replace(s)
}

// JoinFields escapes and joins values into one record line.
func JoinFields(values ...string) string {
	escaped := make([]string, len(values))
	for i, v := range values {
		escaped[i] = EscapeField(v)
	}
	return strings.Join(escaped, string(Delimiter))
}

// SplitFields splits a line on unescaped delimiters into at most limit fields
// and decodes escapes. Once the last field is reached, delimiters are kept
// verbatim. A backslash before any other character is left alone. Lines
// written before escaping read back unchanged unless they contain one of
// the four escape sequences, which are decoded like any other line.
func SplitFields(line string, limit int) []string {
	var fields []string
	var cur strings.Builder
	for i := 0; i < len(line); i++ {
		c := line[i]
		if c == '\\' && i+1 < len(line) {
			switch line[i+1] {
			case '\\':
				cur.WriteByte('\\')
				i++
				continue
			case '|':
				cur.WriteByte('|')
				i++
				continue
			case 'n':
				cur.WriteByte('\n')
				i++
				continue
			case 'r':
				cur.WriteByte('\r')
				i++
				continue
			}
		}
		if c == Delimiter && (limit <= 0 || len(fields) < limit-1) {
			fields = append(fields, cur.String())
			cur.Reset()
			continue
		}
		cur.WriteByte(c)
	}
	return append(fields, cur.String())
}
